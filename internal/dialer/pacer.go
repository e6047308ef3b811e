package dialer

import (
	"context"
	"time"
)

// Pacer suspends the dial loop between calls. The sleep function is injectable
// so tests never wait on the wall clock.
type Pacer struct {
	sleep func(ctx context.Context, d time.Duration) error
}

func NewPacer() *Pacer {
	return &Pacer{sleep: sleepContext}
}

func NewPacerWithSleep(sleep func(ctx context.Context, d time.Duration) error) *Pacer {
	if sleep == nil {
		sleep = sleepContext
	}
	return &Pacer{sleep: sleep}
}

// Wait blocks for d or until ctx is done.
func (p *Pacer) Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	return p.sleep(ctx, d)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
