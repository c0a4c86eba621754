package activity

import (
	"fmt"
	"math"
	"time"
)

// Policy bounds how a single step is attempted.
type Policy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Coefficient     float64
	Timeout         time.Duration
}

// DefaultPolicy returns three attempts with backoff from one second,
// doubling up to one minute, and no per-attempt timeout.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:     3,
		InitialInterval: time.Second,
		MaxInterval:     time.Minute,
		Coefficient:     2,
	}
}

// WithTimeout returns a copy of p with the per-attempt timeout set.
func (p Policy) WithTimeout(d time.Duration) Policy {
	p.Timeout = d
	return p
}

// Backoff returns the delay that follows the given failed attempt (1-based).
func (p Policy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	d := float64(p.InitialInterval) * math.Pow(p.Coefficient, float64(attempt-1))
	if p.MaxInterval > 0 && d > float64(p.MaxInterval) {
		return p.MaxInterval
	}
	return time.Duration(d)
}

// Validate reports whether p can drive the retry loop.
func (p Policy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be positive")
	}
	if p.InitialInterval < 0 {
		return fmt.Errorf("initial_interval must not be negative")
	}
	if p.Coefficient < 1 {
		return fmt.Errorf("coefficient must be at least 1")
	}
	if p.MaxInterval > 0 && p.MaxInterval < p.InitialInterval {
		return fmt.Errorf("max_interval cannot be less than initial_interval")
	}
	return nil
}
