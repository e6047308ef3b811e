package audit

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
//
// It MUST be append-only. No Update/Delete methods are provided.
type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service records dialing decisions.
// Callers should treat audit logging as best-effort.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}
	if e.BatchID == "" && e.CallID == "" {
		return ErrInvalidEvent
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	return s.repo.Append(ctx, e)
}

// LogDNCSuppressed records a lead skipped because its number is on the DNC list.
func (s *Service) LogDNCSuppressed(ctx context.Context, batchID, leadID, phoneNumber string) error {
	return s.Append(ctx, Event{
		Type:        EventTypeDNCSuppressed,
		BatchID:     batchID,
		LeadID:      leadID,
		PhoneNumber: phoneNumber,
		Message:     "number on do-not-call list",
	})
}

// LogCallFailed records a lead whose call could not be placed.
func (s *Service) LogCallFailed(ctx context.Context, batchID, leadID, callID, reason string) error {
	return s.Append(ctx, Event{
		Type:    EventTypeCallFailed,
		BatchID: batchID,
		LeadID:  leadID,
		CallID:  callID,
		Message: reason,
	})
}

// LogBatchCompleted records batch totals. details is stored as JSON metadata.
func (s *Service) LogBatchCompleted(ctx context.Context, batchID string, details map[string]any) error {
	var meta string
	if len(details) > 0 {
		b, err := json.Marshal(details)
		if err != nil {
			return err
		}
		meta = string(b)
	}
	return s.Append(ctx, Event{
		Type:     EventTypeBatchCompleted,
		BatchID:  batchID,
		Message:  "batch completed",
		Metadata: meta,
	})
}
