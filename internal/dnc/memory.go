package dnc

import (
	"context"
	"sync"
)

// MemoryList is an in-process DNC list for tests and local runs.
type MemoryList struct {
	mu      sync.RWMutex
	numbers map[string]string
}

// NewMemoryList returns a list seeded with numbers. Unparseable seeds are skipped.
func NewMemoryList(numbers ...string) *MemoryList {
	l := &MemoryList{numbers: map[string]string{}}
	for _, n := range numbers {
		if norm, err := Normalize(n); err == nil {
			l.numbers[norm] = ""
		}
	}
	return l
}

func (l *MemoryList) IsBlocked(ctx context.Context, phoneNumber string) (bool, error) {
	n, err := Normalize(phoneNumber)
	if err != nil {
		return false, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.numbers[n]
	return ok, nil
}

func (l *MemoryList) Add(ctx context.Context, phoneNumber, reason string) error {
	n, err := Normalize(phoneNumber)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.numbers[n] = reason
	return nil
}

func (l *MemoryList) Remove(ctx context.Context, phoneNumber string) error {
	n, err := Normalize(phoneNumber)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.numbers, n)
	return nil
}
