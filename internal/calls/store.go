package calls

import (
	"context"
	"errors"
)

var (
	ErrNotFound        = errors.New("calls: not found")
	ErrInvalidArgument = errors.New("calls: invalid argument")
)

// Store is the persistence contract for Call rows.
//
// The orchestration core only creates rows and patches them by id or by provider call id.
// Implementations must apply each patch atomically per row (see Apply).
type Store interface {
	Create(ctx context.Context, c Call) (string, error)
	UpdateByID(ctx context.Context, id string, p Patch) error
	UpdateByProviderCallID(ctx context.Context, providerCallID string, p Patch) error
}

// Reader exposes lookups used by the HTTP surface. Not required by the dialer.
type Reader interface {
	Get(ctx context.Context, id string) (Call, error)
	GetByProviderCallID(ctx context.Context, providerCallID string) (Call, error)
}

// ReadWriter is implemented by both MemoryRepo and PostgresStore.
type ReadWriter interface {
	Store
	Reader
}
