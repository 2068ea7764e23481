package notifier

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/anonto42/hexagon/backend/pkg/log"
)

var ErrSupervisorClosed = errors.New("supervisor is shutting down")

// Supervisor runs background tasks with a bounded lifetime. Every failure,
// including a panic, is logged and reported to the Observer.
type Supervisor struct {
	ctx     context.Context
	cancel  context.CancelFunc
	timeout time.Duration

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup

	observer Observer
	logger   log.Logger
}

func NewSupervisor(timeout time.Duration, observer Observer, logger log.Logger) *Supervisor {
	ctx, cancel := context.WithCancel(context.Background())
	return &Supervisor{
		ctx:      ctx,
		cancel:   cancel,
		timeout:  timeout,
		observer: observer,
		logger:   logger,
	}
}

// Go starts fn in its own goroutine. userID is used for reporting only.
func (s *Supervisor) Go(name, userID string, fn func(ctx context.Context) error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.logger.Warnf("notifier: task %s for %s rejected: %v", name, userID, ErrSupervisorClosed)
		s.observer.Failed(StageTask, userID, ErrSupervisorClosed)
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		if err := s.run(name, fn); err != nil {
			s.logger.Errorf("notifier: task %s for %s failed: %v", name, userID, err)
			s.observer.Failed(StageTask, userID, err)
		}
	}()
}

func (s *Supervisor) run(name string, fn func(ctx context.Context) error) (err error) {
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %s panicked: %v\n%s", name, r, debug.Stack())
		}
	}()
	return fn(ctx)
}

// Context is cancelled only when Shutdown gives up on running tasks.
func (s *Supervisor) Context() context.Context {
	return s.ctx
}

// Wait blocks until every started task has returned.
func (s *Supervisor) Wait() {
	s.wg.Wait()
}

// Shutdown stops accepting tasks and waits for running ones. When ctx
// expires first, running tasks are cancelled and ctx.Err() is returned.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		return ctx.Err()
	}
}
