// Package circuit tracks whether an upstream is in an outage.
package circuit

import "sync"

// Transition reports a state change caused by a recorded outcome.
type Transition int

const (
	NoChange Transition = iota
	Opened
	Closed
)

// Breaker counts consecutive outcomes. It opens after FailureThreshold
// failures in a row and closes again after SuccessThreshold successes in a
// row. Calls are never blocked: callers decide what being open means.
type Breaker struct {
	mu               sync.Mutex
	name             string
	open             bool
	failures         int
	successes        int
	failureThreshold int
	successThreshold int
}

type Option func(*Breaker)

// WithFailureThreshold defaults to 5.
func WithFailureThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.failureThreshold = n
		}
	}
}

// WithSuccessThreshold defaults to 3.
func WithSuccessThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.successThreshold = n
		}
	}
}

func New(name string, opts ...Option) *Breaker {
	b := &Breaker{
		name:             name,
		failureThreshold: 5,
		successThreshold: 3,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Breaker) Name() string {
	return b.name
}

func (b *Breaker) IsOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open
}

func (b *Breaker) RecordFailure() Transition {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.successes = 0
	if !b.open && b.failures >= b.failureThreshold {
		b.open = true
		return Opened
	}
	return NoChange
}

func (b *Breaker) RecordSuccess() Transition {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	if !b.open {
		return NoChange
	}
	b.successes++
	if b.successes >= b.successThreshold {
		b.open = false
		b.successes = 0
		return Closed
	}
	return NoChange
}
