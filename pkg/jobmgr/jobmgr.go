// Package jobmgr runs named background jobs that share a parent context and
// can be stopped one by one or all together at shutdown.
//
//	jobs := jobmgr.New(ctx)
//	_ = jobs.Go("webhook", srv.Run)
//	defer jobs.Shutdown(5 * time.Second)
package jobmgr

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	ErrRunning    = errors.New("job is already running")
	ErrNotRunning = errors.New("job is not running")
	ErrClosed     = errors.New("job manager is shut down")
)

// Func is the body of a job. It should return once ctx is done.
type Func func(ctx context.Context) error

type job struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Manager tracks running jobs. Safe for concurrent use.
type Manager struct {
	parent context.Context
	logger zerolog.Logger

	mu     sync.Mutex
	jobs   map[string]*job
	wg     sync.WaitGroup
	closed bool
}

// New returns a Manager whose jobs are cancelled together with parent.
func New(parent context.Context) *Manager {
	return &Manager{
		parent: parent,
		logger: log.With().Str("component", "jobs").Logger(),
		jobs:   make(map[string]*job),
	}
}

// Go starts fn in its own goroutine under name. A job that ends on its own,
// with or without an error, is forgotten.
func (m *Manager) Go(name string, fn Func) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	if _, ok := m.jobs[name]; ok {
		return fmt.Errorf("%s: %w", name, ErrRunning)
	}

	ctx, cancel := context.WithCancel(m.parent)
	j := &job{cancel: cancel, done: make(chan struct{})}
	m.jobs[name] = j
	m.wg.Add(1)

	go func() {
		defer m.wg.Done()
		defer close(j.done)
		defer cancel()

		m.logger.Debug().Str("job", name).Msg("Job started")
		err := fn(ctx)
		switch {
		case err == nil, errors.Is(err, context.Canceled) && ctx.Err() != nil:
			m.logger.Debug().Str("job", name).Msg("Job finished")
		default:
			m.logger.Error().Err(err).Str("job", name).Msg("Job failed")
		}

		m.mu.Lock()
		if m.jobs[name] == j {
			delete(m.jobs, name)
		}
		m.mu.Unlock()
	}()
	return nil
}

// Stop cancels the named job and waits for it to return.
func (m *Manager) Stop(name string) error {
	m.mu.Lock()
	j, ok := m.jobs[name]
	if ok {
		delete(m.jobs, name)
	}
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%s: %w", name, ErrNotRunning)
	}
	j.cancel()
	<-j.done
	return nil
}

// Running lists active job names in order.
func (m *Manager) Running() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, 0, len(m.jobs))
	for name := range m.jobs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Shutdown cancels every job and waits up to timeout for them to return.
// No new jobs are accepted afterwards.
func (m *Manager) Shutdown(timeout time.Duration) error {
	m.mu.Lock()
	m.closed = true
	for _, j := range m.jobs {
		j.cancel()
	}
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("jobs still running after %s: %v", timeout, m.Running())
	}
}
