package backoff

import (
	"math"
	"math/rand"
	"time"
)

// Strategy calculates the delay before a retry attempt.
// Implementations must be safe for concurrent use and must return
// monotonically non-decreasing intervals for increasing attempt numbers.
type Strategy interface {
	// NextInterval returns the delay for the given attempt.
	// Attempt starts at 1 for the first retry.
	NextInterval(attempt int) time.Duration
}

// Linear grows the delay by a fixed step per attempt.
// This is the default policy for channel delivery retries: 5, 10, 15 minutes.
type Linear struct {
	// Step is the per-attempt increment. Zero means 5 minutes.
	Step time.Duration
	// Max caps the delay. Zero means no cap.
	Max time.Duration
}

// NextInterval returns Step * attempt, capped at Max when set.
func (l Linear) NextInterval(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	step := l.Step
	if step == 0 {
		step = 5 * time.Minute
	}

	delay := step * time.Duration(attempt)
	if l.Max > 0 && delay > l.Max {
		delay = l.Max
	}

	return delay
}

// Fixed returns the same delay for every attempt.
type Fixed struct {
	Interval time.Duration
}

func (f Fixed) NextInterval(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return f.Interval
}

// Exponential doubles (by default) the delay each attempt, with optional
// jitter to spread retries from channels that failed at the same time.
type Exponential struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	JitterFactor    float64
}

// NextInterval calculates InitialInterval * Multiplier^(attempt-1) with
// jitter applied, capped at MaxInterval.
func (e Exponential) NextInterval(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	initial := e.InitialInterval
	if initial == 0 {
		initial = time.Minute
	}

	max := e.MaxInterval
	if max == 0 {
		max = time.Hour
	}

	multiplier := e.Multiplier
	if multiplier == 0 {
		multiplier = 2
	}

	interval := float64(initial) * math.Pow(multiplier, float64(attempt-1))

	if e.JitterFactor > 0 {
		randomJitter := (rand.Float64()*2 - 1) * e.JitterFactor
		interval = interval * (1 + randomJitter)
	}

	if interval > float64(max) {
		interval = float64(max)
	}

	return time.Duration(interval)
}

// Default returns the linear policy used for delivery retries.
func Default() Strategy {
	return Linear{Step: 5 * time.Minute}
}
