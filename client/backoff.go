package client

import (
	"math"
	"time"

	"github.com/Mmx233/rvlink/config"
)

// Backoff computes exponential retry delays.
type Backoff struct {
	Base time.Duration
	Max  time.Duration
}

// NewBackoff returns the backoff described by the configuration.
func NewBackoff(cfg config.Backoff) Backoff {
	return Backoff{Base: cfg.Base, Max: cfg.Max}
}

// Delay returns the pause before retry attempt (1-based):
// min(Base * 2^(attempt-1), Max). A zero Max leaves the delay uncapped.
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 1 || b.Base <= 0 {
		return 0
	}
	delay := b.Base
	for i := 1; i < attempt; i++ {
		if b.Max > 0 && delay >= b.Max {
			break
		}
		if delay > math.MaxInt64/2 {
			return math.MaxInt64
		}
		delay *= 2
	}
	if b.Max > 0 && delay > b.Max {
		delay = b.Max
	}
	return delay
}
