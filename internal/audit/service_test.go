package audit

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestService_AppendRequiresTypeAndTarget(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.Append(context.Background(), Event{BatchID: "b"}); err == nil {
		t.Fatalf("expected error")
	}
	if err := svc.Append(context.Background(), Event{Type: EventTypeCallFailed}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestService_AppendsImmutableEvents(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.LogDNCSuppressed(context.Background(), "b1", "lead-2", "+15551234567"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if err := svc.LogBatchCompleted(context.Background(), "b1", map[string]any{"queued": 2, "failed": 1}); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	evs := repo.Events()
	if len(evs) != 2 {
		t.Fatalf("expected 2 events, got %d", len(evs))
	}
	if evs[0].Type != EventTypeDNCSuppressed || evs[0].PhoneNumber != "+15551234567" {
		t.Fatalf("unexpected event: %+v", evs[0])
	}
	if evs[0].ID == "" || evs[0].CreatedAt.IsZero() {
		t.Fatalf("expected id and created_at set")
	}
	if !strings.Contains(evs[1].Metadata, `"queued":2`) {
		t.Fatalf("expected metadata json, got %q", evs[1].Metadata)
	}
}

func TestPostgresRepo_Append(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	at := time.Unix(1700000000, 0).UTC()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_events")).
		WithArgs("e1", "call_failed", "b1", "lead-1", "c1", nil, "vendor rejected", nil, at).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewPostgresRepo(db)
	err = repo.Append(context.Background(), Event{
		ID: "e1", Type: EventTypeCallFailed, BatchID: "b1", LeadID: "lead-1", CallID: "c1",
		Message: "vendor rejected", CreatedAt: at,
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
