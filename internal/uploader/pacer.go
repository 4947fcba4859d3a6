package uploader

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

type pauser interface {
	Pause(ctx context.Context) error
}

// Pacer spaces successful uploads at most one per interval. Time spent
// uploading counts toward the interval, so a slow upload gets a shorter pause.
type Pacer struct {
	limiter *rate.Limiter
}

// NewPacer returns a pacer for the given interval. A zero interval never pauses.
func NewPacer(interval time.Duration) *Pacer {
	if interval <= 0 {
		return &Pacer{}
	}

	limiter := rate.NewLimiter(rate.Every(interval), 1)
	// Start with an empty bucket so the first pause waits a full interval
	limiter.Allow()

	return &Pacer{limiter: limiter}
}

// Pause blocks until the next upload may start or ctx is done
func (p *Pacer) Pause(ctx context.Context) error {
	if p.limiter == nil {
		return nil
	}
	return p.limiter.Wait(ctx)
}
