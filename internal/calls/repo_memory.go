package calls

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepo is an in-memory Store for tests, local runs and the mock provider.
// It is not intended for production use.
type MemoryRepo struct {
	mu    sync.Mutex
	calls map[string]*Call
	// byProvider indexes provider call id -> call id.
	byProvider map[string]string

	Now func() time.Time
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		calls:      map[string]*Call{},
		byProvider: map[string]string{},
		Now:        time.Now,
	}
}

func (r *MemoryRepo) Create(ctx context.Context, c Call) (string, error) {
	if c.LeadID == "" {
		return "", ErrInvalidArgument
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if _, exists := r.calls[c.ID]; exists {
		return "", ErrInvalidArgument
	}
	if c.Status == "" {
		c.Status = StatusQueued
	}
	c.CreatedAt = now
	c.UpdatedAt = now

	r.calls[c.ID] = &c
	if c.ProviderCallID != "" {
		r.byProvider[c.ProviderCallID] = c.ID
	}
	return c.ID, nil
}

func (r *MemoryRepo) UpdateByID(ctx context.Context, id string, p Patch) error {
	if id == "" {
		return ErrInvalidArgument
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.calls[id]
	if !ok {
		return ErrNotFound
	}
	r.apply(c, p)
	return nil
}

func (r *MemoryRepo) UpdateByProviderCallID(ctx context.Context, providerCallID string, p Patch) error {
	if providerCallID == "" {
		return ErrInvalidArgument
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byProvider[providerCallID]
	if !ok {
		return ErrNotFound
	}
	r.apply(r.calls[id], p)
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.calls[id]
	if !ok {
		return Call{}, ErrNotFound
	}
	return *c, nil
}

func (r *MemoryRepo) GetByProviderCallID(ctx context.Context, providerCallID string) (Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byProvider[providerCallID]
	if !ok {
		return Call{}, ErrNotFound
	}
	return *r.calls[id], nil
}

// List returns a snapshot of all calls, in no particular order.
func (r *MemoryRepo) List() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call, 0, len(r.calls))
	for _, c := range r.calls {
		out = append(out, *c)
	}
	return out
}

// apply must be called with mu held.
func (r *MemoryRepo) apply(c *Call, p Patch) {
	before := c.ProviderCallID
	Apply(c, p, r.now())
	if c.ProviderCallID != before && c.ProviderCallID != "" {
		r.byProvider[c.ProviderCallID] = c.ID
	}
}

func (r *MemoryRepo) now() time.Time {
	if r.Now == nil {
		return time.Now().UTC()
	}
	return r.Now().UTC()
}
