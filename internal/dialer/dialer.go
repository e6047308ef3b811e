// Package dialer drives sequential outbound calls for a batch of leads.
//
// Per lead, in order: context check, DNC check, pacing, call record, provider call,
// call record update. One lead's failure never stops the batch.
package dialer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"outreach-dialer/internal/calls"
	"outreach-dialer/internal/dnc"
	"outreach-dialer/internal/telephony"
	"outreach-dialer/pkg/logger"

	"github.com/google/uuid"
)

// Auditor receives best-effort records of dialing decisions. *audit.Service satisfies it.
type Auditor interface {
	LogDNCSuppressed(ctx context.Context, batchID, leadID, phoneNumber string) error
	LogCallFailed(ctx context.Context, batchID, leadID, callID, reason string) error
	LogBatchCompleted(ctx context.Context, batchID string, details map[string]any) error
}

type Options struct {
	// MaxConsecutiveFailures trips a circuit breaker after that many failed leads in a
	// row; the remaining dialable leads fail with ErrCircuitOpen without being dialed, while
	// DNC-blocked leads are still filtered. 0 disables it.
	MaxConsecutiveFailures int
	// MaxDelay bounds Job.Delay; 0 means unbounded.
	MaxDelay time.Duration

	Pacer   *Pacer
	Limiter Limiter
	Auditor Auditor
	Logger  *slog.Logger
	NewID   func() string
}

type Dialer struct {
	provider telephony.Provider
	store    calls.Store
	gate     dnc.Gate
	opts     Options
	log      *slog.Logger
}

// New wires a dialer. A nil gate lets every number through.
func New(provider telephony.Provider, store calls.Store, gate dnc.Gate, opts Options) *Dialer {
	if opts.Pacer == nil {
		opts.Pacer = NewPacer()
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Dialer{provider: provider, store: store, gate: gate, opts: opts, log: log}
}

// Run dials every lead of job in order and returns the per-lead outcomes.
//
// The returned error is non-nil only when the job is invalid, the batch limiter refused
// it, or ctx ended mid-batch; in the last case the partial Result is returned too.
// A call that was already placed is never aborted.
func (d *Dialer) Run(ctx context.Context, job Job) (Result, error) {
	if d.provider == nil || d.store == nil {
		return Result{}, fmt.Errorf("dialer: %w", telephony.ErrNotConfigured)
	}
	if err := job.Validate(d.opts.MaxDelay); err != nil {
		return Result{}, err
	}

	if d.opts.Limiter != nil {
		ok, err := d.opts.Limiter.Acquire(ctx)
		if err != nil {
			return Result{}, fmt.Errorf("dialer: acquire batch slot: %w", err)
		}
		if !ok {
			return Result{}, ErrBatchLimit
		}
		defer func() {
			if err := d.opts.Limiter.Release(context.WithoutCancel(ctx)); err != nil {
				d.log.Warn("batch slot release failed", "err", err)
			}
		}()
	}

	res := Result{
		BatchID: d.opts.NewID(),
		Results: make([]LeadResult, 0, len(job.Leads)),
		Skipped: []SkippedLead{},
	}
	log := logger.FromOr(ctx, d.log).With("batch_id", res.BatchID, "provider", d.provider.Name())
	log.Info("batch started", "leads", len(job.Leads), "delay", job.Delay.String())

	var (
		placed      int
		consecutive int
		tripped     bool
		runErr      error
	)

	for _, lead := range job.Leads {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		llog := log.With("lead_id", lead.LeadID)

		if d.gate != nil {
			blocked, err := d.gate.IsBlocked(ctx, lead.PhoneNumber)
			if err != nil {
				llog.Warn("dnc check failed; lead not dialed", "err", err)
				lr := LeadResult{LeadID: lead.LeadID, Error: "dnc check failed: " + err.Error()}
				res.Results = append(res.Results, lr)
				d.auditFailure(ctx, res.BatchID, lr)
				consecutive++
				tripped = d.trip(consecutive, llog)
				continue
			}
			if blocked {
				llog.Info("lead suppressed by dnc")
				res.Skipped = append(res.Skipped, SkippedLead{LeadID: lead.LeadID, PhoneNumber: lead.PhoneNumber})
				res.Filtered++
				if d.opts.Auditor != nil {
					if err := d.opts.Auditor.LogDNCSuppressed(ctx, res.BatchID, lead.LeadID, lead.PhoneNumber); err != nil {
						llog.Warn("audit failed", "err", err)
					}
				}
				continue
			}
		}

		// Blocked leads are filtered above even once the circuit is open.
		if tripped {
			res.Results = append(res.Results, LeadResult{LeadID: lead.LeadID, Error: ErrCircuitOpen.Error()})
			continue
		}

		if placed > 0 {
			if err := d.opts.Pacer.Wait(ctx, job.Delay); err != nil {
				runErr = err
				break
			}
		}
		placed++

		lr := d.dialOne(ctx, res.BatchID, job, lead, llog)
		res.Results = append(res.Results, lr)
		if lr.Success {
			consecutive = 0
			continue
		}
		d.auditFailure(ctx, res.BatchID, lr)
		consecutive++
		tripped = d.trip(consecutive, llog)
	}

	for _, r := range res.Results {
		if r.Success {
			res.Queued++
		} else {
			res.Failed++
		}
	}
	if runErr != nil {
		res.Aborted = true
	}

	log.Info("batch finished",
		"queued", res.Queued,
		"failed", res.Failed,
		"filtered", res.Filtered,
		"aborted", res.Aborted,
	)
	if d.opts.Auditor != nil {
		details := map[string]any{
			"queued":   res.Queued,
			"failed":   res.Failed,
			"filtered": res.Filtered,
			"aborted":  res.Aborted,
		}
		if err := d.opts.Auditor.LogBatchCompleted(context.WithoutCancel(ctx), res.BatchID, details); err != nil {
			log.Warn("audit failed", "err", err)
		}
	}
	return res, runErr
}

// dialOne creates the call record, places the call and stores the outcome.
func (d *Dialer) dialOne(ctx context.Context, batchID string, job Job, lead Lead, log *slog.Logger) LeadResult {
	callID, err := d.store.Create(ctx, calls.Call{
		LeadID:      lead.LeadID,
		ScriptID:    job.ScriptID,
		BatchID:     batchID,
		Provider:    d.provider.Name(),
		PhoneNumber: lead.PhoneNumber,
		Status:      calls.StatusQueued,
	})
	if err != nil {
		log.Error("call record create failed", "err", err)
		return LeadResult{LeadID: lead.LeadID, Error: "create call record: " + err.Error()}
	}

	out, err := d.provider.InitiateCall(ctx, telephony.CallRequest{
		CallID:      callID,
		LeadID:      lead.LeadID,
		PhoneNumber: lead.PhoneNumber,
		ScriptID:    job.ScriptID,
		Assistant:   job.Assistant,
	})

	// The vendor may already have the call; record the outcome even if ctx just ended.
	storeCtx := context.WithoutCancel(ctx)

	if err != nil {
		log.Warn("initiate call failed", "call_id", callID, "err", err)
		patch := calls.Patch{Status: calls.StatusPtr(calls.StatusFailed), EndedReason: calls.StringPtr(err.Error())}
		if uerr := d.store.UpdateByID(storeCtx, callID, patch); uerr != nil {
			log.Error("call record update failed", "call_id", callID, "err", uerr)
		}
		return LeadResult{LeadID: lead.LeadID, CallID: callID, Status: calls.StatusFailed, Error: err.Error()}
	}

	status := out.Status
	if !status.IsKnown() {
		status = calls.StatusQueued
	}
	patch := calls.Patch{ProviderCallID: calls.StringPtr(out.ProviderCallID), Status: calls.StatusPtr(status)}
	if uerr := d.store.UpdateByID(storeCtx, callID, patch); uerr != nil {
		// The call is placed; a lost update is repaired by the next webhook or poll.
		log.Error("call record update failed", "call_id", callID, "provider_call_id", out.ProviderCallID, "err", uerr)
	}
	log.Info("call placed", "call_id", callID, "provider_call_id", out.ProviderCallID, "status", status)
	return LeadResult{
		LeadID:         lead.LeadID,
		Success:        true,
		CallID:         callID,
		ProviderCallID: out.ProviderCallID,
		Status:         status,
	}
}

func (d *Dialer) trip(consecutive int, log *slog.Logger) bool {
	if d.opts.MaxConsecutiveFailures <= 0 || consecutive < d.opts.MaxConsecutiveFailures {
		return false
	}
	log.Warn("circuit open; remaining leads will not be dialed", "consecutive_failures", consecutive)
	return true
}

func (d *Dialer) auditFailure(ctx context.Context, batchID string, lr LeadResult) {
	if d.opts.Auditor == nil {
		return
	}
	if err := d.opts.Auditor.LogCallFailed(ctx, batchID, lr.LeadID, lr.CallID, lr.Error); err != nil {
		d.log.Warn("audit failed", "batch_id", batchID, "lead_id", lr.LeadID, "err", err)
	}
}
