// Package sweeper runs periodic housekeeping tasks on a ticker.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const DefaultInterval = 30 * time.Minute

// Task is one unit of periodic housekeeping.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Sweeper runs its tasks every interval until stopped.
type Sweeper struct {
	interval time.Duration
	logger   *slog.Logger
	tasks    []Task

	startOnce sync.Once
	stopOnce  sync.Once
	stop      chan struct{}
	wg        sync.WaitGroup
}

// New creates a Sweeper. A non-positive interval falls back to DefaultInterval.
func New(interval time.Duration, logger *slog.Logger, tasks ...Task) *Sweeper {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		interval: interval,
		logger:   logger,
		tasks:    tasks,
		stop:     make(chan struct{}),
	}
}

// Start launches the ticker goroutine. Only the first call has any effect.
func (s *Sweeper) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		s.wg.Add(1)
		go s.run(ctx)
		s.logger.Info("sweeper started", "interval", s.interval.String(), "tasks", len(s.tasks))
	})
}

// Stop halts the ticker and waits for an in-progress sweep to finish.
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	s.wg.Wait()
}

// RunOnce executes every task immediately, in order. A failing task is logged
// and does not prevent the rest from running.
func (s *Sweeper) RunOnce(ctx context.Context) {
	for _, t := range s.tasks {
		start := time.Now()
		if err := s.runTask(ctx, t); err != nil {
			s.logger.Error("sweep task failed", "task", t.Name, "error", err)
			continue
		}
		s.logger.Debug("sweep task done", "task", t.Name, "duration_ms", time.Since(start).Milliseconds())
	}
}

func (s *Sweeper) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

func (s *Sweeper) runTask(ctx context.Context, t Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return t.Run(ctx)
}
