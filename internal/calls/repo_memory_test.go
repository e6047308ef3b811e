package calls

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryRepo_CreateAndUpdate(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo()

	id, err := repo.Create(ctx, Call{LeadID: "lead-1", PhoneNumber: "+15551234567", Provider: "mock"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if id == "" {
		t.Fatalf("expected generated id")
	}

	got, err := repo.Get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusQueued {
		t.Fatalf("expected queued default, got %q", got.Status)
	}

	if err := repo.UpdateByID(ctx, id, Patch{ProviderCallID: StringPtr("CA123"), Status: StatusPtr(StatusRinging)}); err != nil {
		t.Fatalf("update by id: %v", err)
	}
	if err := repo.UpdateByProviderCallID(ctx, "CA123", Patch{Status: StatusPtr(StatusBusy), EndedReason: StringPtr("busy")}); err != nil {
		t.Fatalf("update by provider id: %v", err)
	}

	got, err = repo.GetByProviderCallID(ctx, "CA123")
	if err != nil {
		t.Fatalf("get by provider id: %v", err)
	}
	if got.ID != id || got.Status != StatusBusy || got.EndedReason != "busy" {
		t.Fatalf("unexpected call: %+v", got)
	}
}

func TestMemoryRepo_NotFound(t *testing.T) {
	repo := NewMemoryRepo()
	err := repo.UpdateByProviderCallID(context.Background(), "missing", Patch{Status: StatusPtr(StatusCompleted)})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryRepo_CreateRequiresLead(t *testing.T) {
	repo := NewMemoryRepo()
	if _, err := repo.Create(context.Background(), Call{}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}
