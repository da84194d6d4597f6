// Package startup brings service dependencies up in declared order with
// bounded retry, and tears them down in reverse on shutdown.
package startup

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
)

// Dependency is one startable unit: database, cache, broker, server.
type Dependency interface {
	GetName() string
	DependsOn() []string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

type status int

const (
	statusPending status = iota
	statusStarted
	statusStopped
	statusFailed
)

// Startup starts registered dependencies in registration order, honoring
// DependsOn edges, and retries the whole sequence with Fibonacci backoff.
// Dependencies that already started are not started twice on retry.
type Startup struct {
	order       []Dependency
	byName      map[string]Dependency
	statuses    map[string]status
	logger      ectologger.Logger
	maxAttempts int
}

// NewStartup creates a new Startup
func NewStartup(logger ectologger.Logger, maxAttempts int) *Startup {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Startup{
		byName:      make(map[string]Dependency),
		statuses:    make(map[string]status),
		logger:      logger,
		maxAttempts: maxAttempts,
	}
}

// AddDependency registers a dependency. Registration order is start order
// for dependencies with no edge between them.
func (s *Startup) AddDependency(dep Dependency) {
	if _, exists := s.byName[dep.GetName()]; exists {
		return
	}
	s.byName[dep.GetName()] = dep
	s.order = append(s.order, dep)
}

// Start brings every dependency up, retrying failed attempts.
func (s *Startup) Start(ctx context.Context) error {
	var lastErr error

	a, b := 1, 1
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		s.logger.WithField("attempt", attempt).Infof("Beginning startup attempt %d", attempt)

		lastErr = nil
		for _, dep := range s.order {
			if err := s.start(ctx, dep); err != nil {
				s.logger.WithError(err).Errorf("Startup dependency '%s' attempt %d failed", dep.GetName(), attempt)
				lastErr = err
				break
			}
		}
		if lastErr == nil {
			return nil
		}
		if attempt == s.maxAttempts {
			break
		}

		s.logger.Infof("Retrying in %d seconds (attempt %d/%d)", a, attempt, s.maxAttempts)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(a) * time.Second):
		}
		a, b = b, a+b
	}

	return fmt.Errorf("startup failed after %d attempts: %w", s.maxAttempts, lastErr)
}

func (s *Startup) start(ctx context.Context, dep Dependency) error {
	if s.statuses[dep.GetName()] == statusStarted {
		return nil
	}

	for _, name := range dep.DependsOn() {
		parent, ok := s.byName[name]
		if !ok {
			return fmt.Errorf("dependency '%s' depends on unknown '%s'", dep.GetName(), name)
		}
		if s.statuses[name] != statusStarted {
			if err := s.start(ctx, parent); err != nil {
				return err
			}
		}
	}

	s.logger.Infof("Starting dependency '%s'", dep.GetName())
	if err := dep.Start(ctx); err != nil {
		s.statuses[dep.GetName()] = statusFailed
		return err
	}
	s.statuses[dep.GetName()] = statusStarted
	return nil
}

// Stop tears started dependencies down in reverse start order. Stop keeps
// going past failures so one stuck dependency cannot block the rest of the
// shutdown; the first error is returned.
func (s *Startup) Stop(ctx context.Context) error {
	var firstErr error
	for i := len(s.order) - 1; i >= 0; i-- {
		dep := s.order[i]
		if s.statuses[dep.GetName()] != statusStarted {
			continue
		}

		s.logger.Infof("Stopping dependency '%s'", dep.GetName())
		if err := dep.Stop(ctx); err != nil {
			s.logger.WithError(err).Errorf("Failed to stop dependency '%s'", dep.GetName())
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		s.statuses[dep.GetName()] = statusStopped
	}
	return firstErr
}

// Func adapts start/stop closures into a Dependency.
type Func struct {
	Name    string
	Needs   []string
	OnStart func(ctx context.Context) error
	OnStop  func(ctx context.Context) error
}

func (f *Func) GetName() string     { return f.Name }
func (f *Func) DependsOn() []string { return f.Needs }

func (f *Func) Start(ctx context.Context) error {
	if f.OnStart == nil {
		return nil
	}
	return f.OnStart(ctx)
}

func (f *Func) Stop(ctx context.Context) error {
	if f.OnStop == nil {
		return nil
	}
	return f.OnStop(ctx)
}
