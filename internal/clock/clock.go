package clock

import (
	"context"
	"time"

	"go.uber.org/fx"
)

// Clock abstracts time for everything that waits: backoff sleeps, rate-limit
// refills and run timing all go through it so tests can drive time directly.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type systemClock struct{}

// New returns a Clock backed by the wall clock.
func New() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

// Sleep waits for d or until ctx is cancelled, whichever comes first.
func (systemClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Module provides the system clock.
var Module = fx.Module("clock",
	fx.Provide(New),
)
