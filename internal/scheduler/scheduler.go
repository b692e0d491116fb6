// Package scheduler runs the periodic tasks a view owns for its lifetime.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Task is one periodic job. Run is called from a single goroutine per task,
// never concurrently with itself.
type Task struct {
	Name      string
	Interval  time.Duration
	Immediate bool
	Run       func(ctx context.Context)
}

// Scheduler starts its tasks together and stops them together. A stopped
// scheduler leaves no goroutines or tickers behind.
type Scheduler struct {
	Tasks []Task

	mu      sync.Mutex
	wg      sync.WaitGroup
	cancel  context.CancelFunc
	running bool
}

var ErrRunning = errors.New("scheduler already running")

func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrRunning
	}
	for _, t := range s.Tasks {
		if t.Interval <= 0 {
			return errors.New("scheduler: task " + t.Name + " has no interval")
		}
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true
	for _, t := range s.Tasks {
		t := t
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			loop(ctx, t)
		}()
	}
	return nil
}

// Stop cancels every task and waits for in-flight runs to return. Safe to call twice.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.running = false
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

// Run blocks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	s.Stop()
	return ctx.Err()
}

func loop(ctx context.Context, t Task) {
	tk := time.NewTicker(t.Interval)
	defer tk.Stop()

	if t.Immediate {
		t.Run(ctx)
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-tk.C:
			t.Run(ctx)
		}
	}
}
