package stream

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	// InitialRetryDelay is the delay before the first reconnect attempt.
	InitialRetryDelay = time.Second
	// MaxRetryDelay caps the reconnect delay.
	MaxRetryDelay = 30 * time.Second
)

// NewPolicy returns the reconnect schedule: 1s, 2s, 4s, ... capped at 30s,
// without jitter and without giving up.
func NewPolicy() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = InitialRetryDelay
	bo.RandomizationFactor = 0
	bo.Multiplier = 2
	bo.MaxInterval = MaxRetryDelay
	bo.MaxElapsedTime = 0
	bo.Reset()
	return bo
}
