package steps

import (
	"testing"

	"outreach-dialer/internal/calls"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_Integrity(t *testing.T) {
	require.NoError(t, Validate())
	assert.Len(t, States(), 18)

	for _, s := range States() {
		d, ok := Describe(s)
		require.True(t, ok, s)
		for _, n := range d.AllowedNext {
			assert.True(t, Known(n), "%s -> %s dangles", s, n)
		}
	}

	d, _ := Describe(Completed)
	assert.Empty(t, d.AllowedNext)
	d, _ = Describe(Idle)
	assert.Equal(t, []State{LeadSelected}, d.AllowedNext)
}

func TestIsValidTransition(t *testing.T) {
	assert.True(t, IsValidTransition(Idle, LeadSelected))
	assert.True(t, IsValidTransition(Dialing, NoAnswer))
	assert.True(t, IsValidTransition(NextLead, Completed))
	assert.False(t, IsValidTransition(Completed, Idle))
	assert.False(t, IsValidTransition("ghost-state", Idle))
	assert.False(t, IsValidTransition(Idle, "ghost-state"))
	assert.False(t, IsValidTransition(Speaking, Dialing))
}

func TestDescribe_Unknown(t *testing.T) {
	_, ok := Describe("ghost-state")
	assert.False(t, ok)
}

func TestDescribe_ReturnsCopy(t *testing.T) {
	d, _ := Describe(Dialing)
	d.AllowedNext[0] = Completed
	assert.True(t, IsValidTransition(Dialing, Speaking))
}

func TestForCallStatus(t *testing.T) {
	for _, s := range calls.Statuses() {
		step := ForCallStatus(s)
		if s == calls.StatusUnknown {
			assert.Empty(t, step)
			continue
		}
		assert.True(t, Known(step), "status %s mapped to %q", s, step)
	}
	assert.Equal(t, NoAnswer, ForCallStatus(calls.StatusNoAnswer))
	assert.Equal(t, Ended, ForCallStatus(calls.StatusCompleted))
}
