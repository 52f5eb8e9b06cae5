package wizard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/submission"
)

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithSessionLogger sets the session logger.
func WithSessionLogger(logger *zap.Logger) SessionOption {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithIDGenerator overrides how session ids are minted.
func WithIDGenerator(fn func() string) SessionOption {
	return func(s *Session) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// Session runs wizard intents against stored states. Validations run outside
// the per-session lock; their results are applied only if their token is
// still the latest when they complete.
type Session struct {
	wizard *Wizard
	store  Store
	sink   submission.Sink
	logger *zap.Logger
	newID  func() string

	locks sync.Map
}

// NewSession binds a wizard to a store and a sink.
func NewSession(w *Wizard, store Store, sink submission.Sink, options ...SessionOption) (*Session, error) {
	if w == nil || store == nil || sink == nil {
		return nil, fmt.Errorf("wizard: session requires a wizard, a store and a sink")
	}
	s := &Session{
		wizard: w,
		store:  store,
		sink:   sink,
		logger: zap.NewNop(),
		newID:  uuid.NewString,
	}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Wizard returns the session's wizard.
func (s *Session) Wizard() *Wizard {
	return s.wizard
}

// Start creates a new session.
func (s *Session) Start(ctx context.Context) (string, State, error) {
	id := s.newID()
	st := s.wizard.Start()
	if err := s.store.Save(ctx, id, st); err != nil {
		return "", State{}, fmt.Errorf("wizard: save %s: %w", id, err)
	}
	return id, st, nil
}

// Get loads the state of a session.
func (s *Session) Get(ctx context.Context, id string) (State, error) {
	st, err := s.store.Load(ctx, id)
	if err != nil {
		return State{}, err
	}
	return s.wizard.Restore(st), nil
}

// Reset discards a session. It waits for in-flight updates of id and drops
// the lock entry only after the state is gone.
func (s *Session) Reset(ctx context.Context, id string) error {
	lock := s.lock(id)
	lock.Lock()
	err := s.store.Delete(ctx, id)
	s.locks.CompareAndDelete(id, lock)
	lock.Unlock()
	return err
}

// Apply stores input values.
func (s *Session) Apply(ctx context.Context, id string, values model.Record) (State, error) {
	return s.update(ctx, id, func(st State) (State, error) {
		return s.wizard.Apply(st, values)
	})
}

// Retreat moves back one step.
func (s *Session) Retreat(ctx context.Context, id string) (State, error) {
	return s.update(ctx, id, s.wizard.Retreat)
}

// Blur validates one field.
func (s *Session) Blur(ctx context.Context, id, field string) (State, error) {
	return s.run(ctx, id, IntentField, field)
}

// Advance validates the current step and moves forward on success.
func (s *Session) Advance(ctx context.Context, id string) (State, error) {
	return s.run(ctx, id, IntentAdvance, "")
}

// Submit validates the full record from the last step and hands it to the
// sink. The session is marked submitted only once the sink accepts it.
func (s *Session) Submit(ctx context.Context, id string) (State, submission.Receipt, error) {
	var receipt submission.Receipt
	st, err := s.twoPhase(ctx, id, IntentSubmit, "", func(next State) (State, error) {
		if !next.Submitted {
			return next, nil
		}
		sub := submission.New(s.wizard.Form().Schema(), next.Accepted, s.wizard.now())
		r, err := s.sink.Submit(ctx, sub)
		if err != nil {
			next.Submitted = false
			return next, fmt.Errorf("wizard: %s: submit: %w", s.wizard.Form().ID, err)
		}
		receipt = r
		s.logger.Info("wizard submitted", zap.String("session", id), zap.String("submission", r.ID))
		return next, nil
	})
	return st, receipt, err
}

func (s *Session) run(ctx context.Context, id string, intent Intent, target string) (State, error) {
	return s.twoPhase(ctx, id, intent, target, nil)
}

// twoPhase issues a token under the session lock, validates without it, then
// re-acquires the lock and resolves against the latest stored state.
func (s *Session) twoPhase(ctx context.Context, id string, intent Intent, target string, after func(State) (State, error)) (State, error) {
	var (
		pending State
		token   uint64
	)
	_, err := s.update(ctx, id, func(st State) (State, error) {
		var err error
		pending, token, err = s.wizard.Begin(st, intent, target)
		return pending, err
	})
	if err != nil {
		return pending, err
	}

	started := time.Now()
	result, validateErr := s.wizard.Validate(ctx, pending)
	s.logger.Debug("wizard validation finished",
		zap.String("session", id),
		zap.String("intent", string(intent)),
		zap.Uint64("token", token),
		zap.Duration("elapsed", time.Since(started)),
	)

	// Resolve even if the request context was cancelled.
	saveCtx := context.WithoutCancel(ctx)
	return s.update(saveCtx, id, func(st State) (State, error) {
		if validateErr != nil {
			return s.wizard.Abort(st, token), validateErr
		}
		next, err := s.wizard.Resolve(st, token, result)
		if errors.Is(err, ErrStaleValidation) {
			return st, err
		}
		if after != nil && err == nil {
			return after(next)
		}
		return next, err
	})
}

// update loads, transforms and saves a state under the session lock. States
// returned alongside stale, pending or already-submitted errors are not saved.
func (s *Session) update(ctx context.Context, id string, fn func(State) (State, error)) (State, error) {
	lock := s.lock(id)
	lock.Lock()
	defer lock.Unlock()

	st, err := s.store.Load(ctx, id)
	if err != nil {
		return State{}, err
	}
	next, fnErr := fn(s.wizard.Restore(st))
	if errors.Is(fnErr, ErrStaleValidation) || errors.Is(fnErr, ErrValidationPending) || errors.Is(fnErr, ErrAlreadySubmitted) {
		return next, fnErr
	}
	if err := s.store.Save(ctx, id, next); err != nil {
		return next, fmt.Errorf("wizard: save %s: %w", id, err)
	}
	return next, fnErr
}

func (s *Session) lock(id string) *sync.Mutex {
	lock, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	return lock.(*sync.Mutex)
}
