package calls

import "time"

// Patch is a partial update of a Call. Nil / empty fields are left untouched.
type Patch struct {
	ProviderCallID *string
	Status         *Status

	DurationSeconds *int
	RecordingURL    *string
	Transcript      *string
	Summary         *string
	Cost            *float64
	EndedReason     *string
	AnsweredBy      *string
}

// IsEmpty reports whether applying p would change nothing.
func (p Patch) IsEmpty() bool {
	return p.ProviderCallID == nil &&
		p.Status == nil &&
		p.DurationSeconds == nil &&
		p.RecordingURL == nil &&
		p.Transcript == nil &&
		p.Summary == nil &&
		p.Cost == nil &&
		p.EndedReason == nil &&
		p.AnsweredBy == nil
}

// Apply mutates c according to the lifecycle rules:
//   - terminal status is final; only late recording/transcript/summary/cost/duration
//     metadata may still be filled in
//   - StatusUnknown never overwrites a known status
//   - applying the same patch twice yields the same call
//
// It returns true if anything changed.
func Apply(c *Call, p Patch, now time.Time) bool {
	changed := false
	terminal := c.Status.IsTerminal()

	if !terminal {
		if p.ProviderCallID != nil && *p.ProviderCallID != "" && c.ProviderCallID != *p.ProviderCallID {
			c.ProviderCallID = *p.ProviderCallID
			changed = true
		}
		if p.Status != nil && p.Status.IsKnown() && c.Status != *p.Status {
			c.Status = *p.Status
			changed = true
		}
		if p.EndedReason != nil && *p.EndedReason != "" && c.EndedReason != *p.EndedReason {
			c.EndedReason = *p.EndedReason
			changed = true
		}
		if p.AnsweredBy != nil && *p.AnsweredBy != "" && c.AnsweredBy != *p.AnsweredBy {
			c.AnsweredBy = *p.AnsweredBy
			changed = true
		}
	}

	// Late-arriving metadata.
	if p.DurationSeconds != nil && (c.DurationSeconds == nil || *c.DurationSeconds != *p.DurationSeconds) {
		d := *p.DurationSeconds
		c.DurationSeconds = &d
		changed = true
	}
	if p.RecordingURL != nil && *p.RecordingURL != "" && c.RecordingURL != *p.RecordingURL {
		c.RecordingURL = *p.RecordingURL
		changed = true
	}
	if p.Transcript != nil && *p.Transcript != "" && c.Transcript != *p.Transcript {
		c.Transcript = *p.Transcript
		changed = true
	}
	if p.Summary != nil && *p.Summary != "" && c.Summary != *p.Summary {
		c.Summary = *p.Summary
		changed = true
	}
	if p.Cost != nil && (c.Cost == nil || *c.Cost != *p.Cost) {
		v := *p.Cost
		c.Cost = &v
		changed = true
	}

	if changed {
		c.UpdatedAt = now
	}
	return changed
}

// StatusPtr returns a pointer to s for building patches.
func StatusPtr(s Status) *Status { return &s }

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
