package dialer

import (
	"context"
	"errors"
	"testing"
	"time"

	"outreach-dialer/internal/audit"
	"outreach-dialer/internal/calls"
	"outreach-dialer/internal/dnc"
	"outreach-dialer/internal/telephony"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSleep struct {
	calls []time.Duration
	// cancel, when set, is invoked on the nth sleep (1-based).
	cancelAt int
	cancel   context.CancelFunc
}

func (s *recordingSleep) sleep(ctx context.Context, d time.Duration) error {
	s.calls = append(s.calls, d)
	if s.cancel != nil && len(s.calls) == s.cancelAt {
		s.cancel()
		return ctx.Err()
	}
	return nil
}

type errGate struct{ failFor string }

func (g errGate) IsBlocked(ctx context.Context, phone string) (bool, error) {
	if phone == g.failFor {
		return false, errors.New("redis: connection refused")
	}
	return false, nil
}

type fakeLimiter struct {
	allow    bool
	acquired int
	released int
}

func (l *fakeLimiter) Acquire(ctx context.Context) (bool, error) {
	l.acquired++
	return l.allow, nil
}

func (l *fakeLimiter) Release(ctx context.Context) error {
	l.released++
	return nil
}

func leads(numbers ...string) []Lead {
	out := make([]Lead, 0, len(numbers))
	for i, n := range numbers {
		out = append(out, Lead{LeadID: "lead-" + string(rune('1'+i)), PhoneNumber: n})
	}
	return out
}

func fixedID() string { return "batch-1" }

func TestRun_FailureIsIsolated(t *testing.T) {
	p := telephony.NewMockProvider()
	p.FailNumbers["+15550000002"] = "carrier rejected"
	store := calls.NewMemoryRepo()
	sl := &recordingSleep{}

	d := New(p, store, dnc.NewMemoryList(), Options{Pacer: NewPacerWithSleep(sl.sleep), NewID: fixedID})
	res, err := d.Run(context.Background(), Job{
		Leads:    leads("+15550000001", "+15550000002", "+15550000003"),
		ScriptID: "s1",
		Delay:    2 * time.Second,
	})
	require.NoError(t, err)

	assert.Equal(t, "batch-1", res.BatchID)
	assert.Equal(t, 2, res.Queued)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Results, 3)
	assert.True(t, res.Results[0].Success)
	assert.False(t, res.Results[1].Success)
	assert.True(t, res.Results[2].Success)
	assert.Contains(t, res.Results[1].Error, "carrier rejected")
	assert.Len(t, p.Placed(), 3)

	// Sleeps happen between placed calls only.
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, sl.calls)

	ok, err := store.GetByProviderCallID(context.Background(), res.Results[2].ProviderCallID)
	require.NoError(t, err)
	assert.Equal(t, "lead-3", ok.LeadID)
	assert.Equal(t, "batch-1", ok.BatchID)
	assert.Equal(t, calls.StatusQueued, ok.Status)

	failed, err := store.Get(context.Background(), res.Results[1].CallID)
	require.NoError(t, err)
	assert.Equal(t, calls.StatusFailed, failed.Status)
	assert.Contains(t, failed.EndedReason, "carrier rejected")
}

func TestRun_DNCBlockedLeadIsNeverDialed(t *testing.T) {
	p := telephony.NewMockProvider()
	store := calls.NewMemoryRepo()
	auditRepo := audit.NewMemoryRepo()
	sl := &recordingSleep{}

	d := New(p, store, dnc.NewMemoryList("+15550000002"), Options{
		Pacer:   NewPacerWithSleep(sl.sleep),
		Auditor: audit.NewService(auditRepo),
	})
	res, err := d.Run(context.Background(), Job{
		Leads: leads("+15550000001", "+15550000002", "+15550000003"),
		Delay: time.Second,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Queued)
	assert.Equal(t, 0, res.Failed)
	assert.Equal(t, 1, res.Filtered)
	assert.Equal(t, []SkippedLead{{LeadID: "lead-2", PhoneNumber: "+15550000002"}}, res.Skipped)
	require.Len(t, res.Results, 2)

	for _, req := range p.Placed() {
		assert.NotEqual(t, "+15550000002", req.PhoneNumber)
	}
	assert.Len(t, store.List(), 2, "no call record for suppressed lead")
	// Only one pause: suppressed leads are not placed calls.
	assert.Len(t, sl.calls, 1)

	assert.Len(t, auditRepo.OfType(audit.EventTypeDNCSuppressed), 1)
	assert.Len(t, auditRepo.OfType(audit.EventTypeBatchCompleted), 1)
}

func TestRun_GateErrorFailsLeadWithoutDialing(t *testing.T) {
	p := telephony.NewMockProvider()
	auditRepo := audit.NewMemoryRepo()
	d := New(p, calls.NewMemoryRepo(), errGate{failFor: "+15550000001"}, Options{
		Pacer:   NewPacerWithSleep((&recordingSleep{}).sleep),
		Auditor: audit.NewService(auditRepo),
	})

	res, err := d.Run(context.Background(), Job{Leads: leads("+15550000001", "+15550000002")})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Queued)
	assert.Equal(t, 1, res.Failed)
	assert.Contains(t, res.Results[0].Error, "dnc check failed")
	assert.Empty(t, res.Results[0].CallID)
	require.Len(t, p.Placed(), 1)
	assert.Equal(t, "+15550000002", p.Placed()[0].PhoneNumber)
	assert.Len(t, auditRepo.OfType(audit.EventTypeCallFailed), 1)
}

func TestRun_CircuitBreaker(t *testing.T) {
	p := telephony.NewMockProvider()
	p.FailNumbers["+15550000001"] = "boom"
	p.FailNumbers["+15550000002"] = "boom"

	d := New(p, calls.NewMemoryRepo(), nil, Options{
		MaxConsecutiveFailures: 2,
		Pacer:                  NewPacerWithSleep((&recordingSleep{}).sleep),
	})
	res, err := d.Run(context.Background(), Job{
		Leads: leads("+15550000001", "+15550000002", "+15550000003", "+15550000004"),
	})
	require.NoError(t, err)

	assert.Equal(t, 0, res.Queued)
	assert.Equal(t, 4, res.Failed)
	assert.Len(t, p.Placed(), 2)
	assert.Equal(t, ErrCircuitOpen.Error(), res.Results[2].Error)
	assert.Equal(t, ErrCircuitOpen.Error(), res.Results[3].Error)
}

func TestRun_OpenCircuitStillFiltersDNC(t *testing.T) {
	p := telephony.NewMockProvider()
	p.FailNumbers["+15550000001"] = "boom"

	d := New(p, calls.NewMemoryRepo(), dnc.NewMemoryList("+15550000002"), Options{
		MaxConsecutiveFailures: 1,
		Pacer:                  NewPacerWithSleep((&recordingSleep{}).sleep),
	})
	res, err := d.Run(context.Background(), Job{
		Leads: leads("+15550000001", "+15550000002", "+15550000003"),
	})
	require.NoError(t, err)

	assert.Equal(t, 0, res.Queued)
	assert.Equal(t, 2, res.Failed)
	assert.Equal(t, 1, res.Filtered)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, "lead-2", res.Skipped[0].LeadID)
	require.Len(t, res.Results, 2)
	assert.Equal(t, "lead-3", res.Results[1].LeadID)
	assert.Equal(t, ErrCircuitOpen.Error(), res.Results[1].Error)
	assert.Len(t, p.Placed(), 1)
}

func TestRun_SuccessResetsBreaker(t *testing.T) {
	p := telephony.NewMockProvider()
	p.FailNumbers["+15550000001"] = "boom"
	p.FailNumbers["+15550000003"] = "boom"

	d := New(p, calls.NewMemoryRepo(), nil, Options{
		MaxConsecutiveFailures: 2,
		Pacer:                  NewPacerWithSleep((&recordingSleep{}).sleep),
	})
	res, err := d.Run(context.Background(), Job{
		Leads: leads("+15550000001", "+15550000002", "+15550000003", "+15550000004"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Queued)
	assert.Len(t, p.Placed(), 4)
}

func TestRun_CancellationReturnsPartialResult(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p := telephony.NewMockProvider()
	sl := &recordingSleep{cancelAt: 1, cancel: cancel}

	d := New(p, calls.NewMemoryRepo(), nil, Options{Pacer: NewPacerWithSleep(sl.sleep)})
	res, err := d.Run(ctx, Job{
		Leads: leads("+15550000001", "+15550000002", "+15550000003"),
		Delay: time.Second,
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, res.Aborted)
	assert.Equal(t, 1, res.Queued)
	assert.Len(t, res.Results, 1)
	assert.Len(t, p.Placed(), 1)
}

func TestRun_InvalidJob(t *testing.T) {
	d := New(telephony.NewMockProvider(), calls.NewMemoryRepo(), nil, Options{MaxDelay: time.Minute})

	cases := []Job{
		{},
		{Leads: []Lead{{LeadID: "l1", PhoneNumber: "555-1234"}}},
		{Leads: []Lead{{PhoneNumber: "+15550000001"}}},
		{Leads: leads("+15550000001"), Delay: -time.Second},
		{Leads: leads("+15550000001"), Delay: time.Hour},
	}
	for i, job := range cases {
		_, err := d.Run(context.Background(), job)
		assert.ErrorIs(t, err, ErrInvalidJob, "case %d", i)
	}
}

func TestRun_BatchLimiter(t *testing.T) {
	lim := &fakeLimiter{allow: false}
	d := New(telephony.NewMockProvider(), calls.NewMemoryRepo(), nil, Options{Limiter: lim})

	_, err := d.Run(context.Background(), Job{Leads: leads("+15550000001")})
	assert.ErrorIs(t, err, ErrBatchLimit)
	assert.Equal(t, 0, lim.released)

	lim.allow = true
	_, err = d.Run(context.Background(), Job{Leads: leads("+15550000001")})
	require.NoError(t, err)
	assert.Equal(t, 2, lim.acquired)
	assert.Equal(t, 1, lim.released)
}

func TestPacer_ZeroDelayDoesNotSleep(t *testing.T) {
	sl := &recordingSleep{}
	p := NewPacerWithSleep(sl.sleep)
	require.NoError(t, p.Wait(context.Background(), 0))
	assert.Empty(t, sl.calls)
}

func TestPacer_RealSleepHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewPacer().Wait(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewRedisLimiter_Validates(t *testing.T) {
	_, err := NewRedisLimiter(nil, 1, time.Minute)
	assert.Error(t, err)
}
