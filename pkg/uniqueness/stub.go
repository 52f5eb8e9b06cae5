package uniqueness

import (
	"context"
	"strings"
	"sync"
	"time"
)

// DefaultDelay is the simulated lookup latency of the stub.
const DefaultDelay = time.Second

// Stub reports values as taken when they appear in its set. Each check waits
// for the configured delay, honouring context cancellation.
type Stub struct {
	delay time.Duration

	mu    sync.RWMutex
	taken map[string]struct{}
}

// StubOption configures a Stub.
type StubOption func(*Stub)

// WithDelay overrides the simulated latency. Zero disables it.
func WithDelay(d time.Duration) StubOption {
	return func(s *Stub) {
		if d >= 0 {
			s.delay = d
		}
	}
}

// WithTaken replaces the default taken set.
func WithTaken(values ...string) StubOption {
	return func(s *Stub) {
		s.taken = make(map[string]struct{}, len(values))
		for _, value := range values {
			s.taken[normalise(value)] = struct{}{}
		}
	}
}

// NewStub returns a stub where test@example.com is already registered.
func NewStub(options ...StubOption) *Stub {
	s := &Stub{
		delay: DefaultDelay,
		taken: map[string]struct{}{"test@example.com": {}},
	}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Check implements validation.Checker.
func (s *Stub) Check(ctx context.Context, value string) (bool, error) {
	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-timer.C:
		}
	}
	s.mu.RLock()
	_, taken := s.taken[normalise(value)]
	s.mu.RUnlock()
	return !taken, nil
}

// Reserve marks a value as taken.
func (s *Stub) Reserve(_ context.Context, value string) error {
	s.mu.Lock()
	s.taken[normalise(value)] = struct{}{}
	s.mu.Unlock()
	return nil
}

func normalise(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
