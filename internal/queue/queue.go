// Package queue runs uploaded replays through the analysis pipeline one at a time.
//
// The job table lives in memory only. A single worker goroutine picks the oldest
// waiting job, drives it through the fixed phase sequence and records the result;
// every public method is safe for concurrent use.
package queue

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/wardscope/wardscope/internal/analysis"
	"github.com/wardscope/wardscope/internal/replay"
	"github.com/wardscope/wardscope/pkg/models"
)

const (
	DefaultRetention     = time.Hour
	defaultNotifyTimeout = 2 * time.Second
)

// Generator turns a parsed statistics table into per-player results.
type Generator func(models.StatsTable) ([]models.PlayerAnalysis, error)

// Notifier is told about job state changes. Calls are made one at a time, in
// the order the changes happened, outside the queue lock. They must not call
// back into the Queue.
type Notifier interface {
	JobUpdated(ctx context.Context, job models.Job)
	JobRemoved(ctx context.Context, id string)
}

// Notifiers fans each call out to every notifier in order.
type Notifiers []Notifier

func (ns Notifiers) JobUpdated(ctx context.Context, job models.Job) {
	for _, n := range ns {
		n.JobUpdated(ctx, job.Clone())
	}
}

func (ns Notifiers) JobRemoved(ctx context.Context, id string) {
	for _, n := range ns {
		n.JobRemoved(ctx, id)
	}
}

// Option configures a Queue.
type Option func(*Queue)

func WithLogger(l *slog.Logger) Option {
	return func(q *Queue) { q.logger = l }
}

// WithUploadDir sets the directory job file names are resolved against.
func WithUploadDir(dir string) Option {
	return func(q *Queue) { q.uploadDir = dir }
}

// WithTimeScale multiplies every phase duration. Zero disables the delays.
func WithTimeScale(scale float64) Option {
	return func(q *Queue) {
		if scale >= 0 {
			q.timeScale = scale
		}
	}
}

func WithStepsPerPhase(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.steps = n
		}
	}
}

func WithRetention(d time.Duration) Option {
	return func(q *Queue) {
		if d > 0 {
			q.retention = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(q *Queue) { q.now = now }
}

func WithNotifier(n Notifier) Option {
	return func(q *Queue) { q.notifier = n }
}

func WithGenerator(g Generator) Option {
	return func(q *Queue) { q.generate = g }
}

// event is a pending notification. Events are queued while q.mu is held so they
// are delivered in the order the changes were made.
type event struct {
	job     models.Job
	removed string
}

type entry struct {
	job    models.Job
	seq    uint64
	cancel context.CancelFunc // non-nil while the job is processing
}

// Queue is the in-memory replay processing queue.
type Queue struct {
	parser    replay.Parser
	generate  Generator
	notifier  Notifier
	logger    *slog.Logger
	uploadDir string
	timeScale float64
	steps     int
	retention time.Duration
	now       func() time.Time

	mu      sync.Mutex
	jobs    map[string]*entry
	seq     uint64
	stopRun context.CancelFunc

	events   []event
	flushing bool

	wake      chan struct{}
	startOnce sync.Once
	wg        sync.WaitGroup
}

// New creates a Queue. The worker does not run until Start is called.
func New(parser replay.Parser, opts ...Option) *Queue {
	q := &Queue{
		parser:    parser,
		generate:  analysis.Generate,
		logger:    slog.Default(),
		timeScale: 1,
		steps:     defaultStepsPerPhase,
		retention: DefaultRetention,
		now:       time.Now,
		jobs:      make(map[string]*entry),
		wake:      make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Start launches the worker goroutine. Calls after the first are no-ops.
func (q *Queue) Start(ctx context.Context) {
	q.startOnce.Do(func() {
		runCtx, cancel := context.WithCancel(ctx)
		q.mu.Lock()
		q.stopRun = cancel
		q.mu.Unlock()

		q.wg.Add(1)
		go q.run(runCtx)
		q.logger.Info("queue worker started")
	})
}

// Stop cancels the worker and any in-flight pipeline and waits for them to exit.
func (q *Queue) Stop() {
	q.mu.Lock()
	stop := q.stopRun
	q.stopRun = nil
	q.mu.Unlock()
	if stop == nil {
		return
	}
	stop()
	q.wg.Wait()
	q.logger.Info("queue worker stopped")
}

// Started reports whether Start has been called and Stop has not.
func (q *Queue) Started() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stopRun != nil
}

// AddJob enqueues a waiting job and wakes the worker. It returns ErrDuplicateJob
// if id is already tracked; the existing job is left untouched.
func (q *Queue) AddJob(id, fileName string) (models.Job, error) {
	if id == "" {
		return models.Job{}, ErrInvalidJobID
	}

	q.mu.Lock()
	if _, exists := q.jobs[id]; exists {
		q.mu.Unlock()
		return models.Job{}, fmt.Errorf("%w: %s", ErrDuplicateJob, id)
	}
	q.seq++
	e := &entry{
		seq: q.seq,
		job: models.Job{
			ID:        id,
			FileName:  fileName,
			Status:    models.JobStatusWaiting,
			CreatedAt: q.now(),
		},
	}
	q.jobs[id] = e
	snap := e.job.Clone()
	q.emitUpdated(e.job)
	q.mu.Unlock()

	q.logger.Info("job queued", "job_id", id, "file_name", fileName)
	q.flush()
	q.signal()
	return snap, nil
}

// GetJob returns a snapshot of the job or ErrJobNotFound.
func (q *Queue) GetJob(id string) (models.Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	e, ok := q.jobs[id]
	if !ok {
		return models.Job{}, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return e.job.Clone(), nil
}

// GetAllJobs returns snapshots of every tracked job, newest first.
func (q *Queue) GetAllJobs() []models.Job {
	q.mu.Lock()
	entries := make([]*entry, 0, len(q.jobs))
	for _, e := range q.jobs {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return newerThan(entries[i], entries[j])
	})
	jobs := make([]models.Job, len(entries))
	for i, e := range entries {
		jobs[i] = e.job.Clone()
	}
	q.mu.Unlock()
	return jobs
}

// CancelJob removes a waiting or processing job and reports whether it did.
// A cancelled in-flight pipeline is abandoned; its later writes are dropped.
func (q *Queue) CancelJob(id string) bool {
	q.mu.Lock()
	e, ok := q.jobs[id]
	if !ok || e.job.Status.Terminal() {
		q.mu.Unlock()
		return false
	}
	delete(q.jobs, id)
	cancel := e.cancel
	wasProcessing := e.job.Status == models.JobStatusProcessing
	q.emitRemoved(id)
	q.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	q.logger.Info("job cancelled", "job_id", id, "was_processing", wasProcessing)
	q.flush()
	return true
}

// Cleanup evicts every job created more than the retention window ago,
// whatever its status, and returns how many were removed.
func (q *Queue) Cleanup() int {
	cutoff := q.now().Add(-q.retention)

	q.mu.Lock()
	var removed []string
	var cancels []context.CancelFunc
	for id, e := range q.jobs {
		if e.job.CreatedAt.Before(cutoff) {
			delete(q.jobs, id)
			removed = append(removed, id)
			q.emitRemoved(id)
			if e.cancel != nil {
				cancels = append(cancels, e.cancel)
			}
		}
	}
	q.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	for _, id := range removed {
		q.logger.Info("job evicted", "job_id", id)
	}
	q.flush()
	return len(removed)
}

func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *Queue) run(ctx context.Context) {
	defer q.wg.Done()
	for {
		for {
			e, runCtx, cancel := q.next(ctx)
			if e == nil {
				break
			}
			q.execute(runCtx, e)
			cancel()
		}

		select {
		case <-ctx.Done():
			return
		case <-q.wake:
		}
	}
}

// next claims the oldest waiting job and marks it processing.
func (q *Queue) next(ctx context.Context) (*entry, context.Context, context.CancelFunc) {
	q.mu.Lock()
	if ctx.Err() != nil {
		q.mu.Unlock()
		return nil, nil, nil
	}

	var oldest *entry
	for _, e := range q.jobs {
		if e.job.Status != models.JobStatusWaiting {
			continue
		}
		if oldest == nil || newerThan(oldest, e) {
			oldest = e
		}
	}
	if oldest == nil {
		q.mu.Unlock()
		return nil, nil, nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	now := q.now()
	oldest.cancel = cancel
	oldest.job.Status = models.JobStatusProcessing
	oldest.job.StartedAt = &now
	oldest.job.Phase = pipeline[0].name
	oldest.job.Progress = 0
	q.emitUpdated(oldest.job)
	q.mu.Unlock()

	q.logger.Info("job started", "job_id", oldest.job.ID)
	q.flush()
	return oldest, runCtx, cancel
}

// execute runs the pipeline and returns when it finishes or the run is
// cancelled, whichever comes first. A cancelled pipeline is left to unwind on its own.
func (q *Queue) execute(ctx context.Context, e *entry) {
	done := make(chan struct{})
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		defer close(done)
		q.process(ctx, e)
	}()

	select {
	case <-done:
	case <-ctx.Done():
	}
}

func (q *Queue) process(ctx context.Context, e *entry) {
	id := e.job.ID // immutable after insert
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("panic in replay pipeline", "job_id", id, "error", r)
			q.fail(e, fmt.Sprintf("internal error: %v", r))
		}
	}()

	q.mu.Lock()
	path := filepath.Join(q.uploadDir, e.job.FileName)
	q.mu.Unlock()

	var (
		table  models.StatsTable
		result []models.PlayerAnalysis
	)

	for i, ph := range pipeline {
		if i > 0 {
			if !q.mutate(e, func(j *models.Job) { j.Phase = ph.name }) {
				return
			}
		}
		q.logger.Debug("job phase", "job_id", id, "phase", ph.name)

		switch ph.stage {
		case stageExtract:
			t, err := q.parser.Parse(ctx, path)
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				q.fail(e, err.Error())
				return
			}
			table = t
		case stageAnalyze:
			r, err := q.generate(table)
			if err != nil {
				q.fail(e, err.Error())
				return
			}
			result = r
		}

		if !q.advance(ctx, e, ph) {
			return
		}
	}

	q.complete(e, result)
}

// advance steps progress toward the phase target. It returns false if the run
// was cancelled or the job no longer exists.
func (q *Queue) advance(ctx context.Context, e *entry, ph phase) bool {
	delay := time.Duration(float64(ph.duration) * q.timeScale / float64(q.steps))

	var inc float64
	if !q.mutate(e, func(j *models.Job) { inc = (ph.target - j.Progress) / float64(q.steps) }) {
		return false
	}

	for i := 0; i < q.steps; i++ {
		if !sleep(ctx, delay) {
			return false
		}
		last := i == q.steps-1
		if !q.mutate(e, func(j *models.Job) {
			j.Progress = stepProgress(j.Progress, inc, ph.target, last)
		}) {
			return false
		}
	}
	return true
}

func (q *Queue) complete(e *entry, result []models.PlayerAnalysis) {
	snap, ok := q.finish(e, func(j *models.Job) {
		j.Status = models.JobStatusCompleted
		j.Progress = 100
		j.Phase = PhaseComplete
		j.Result = result
	})
	if !ok {
		return
	}
	q.logger.Info("job completed", "job_id", snap.ID, "players", len(result))
	q.flush()
}

func (q *Queue) fail(e *entry, msg string) {
	snap, ok := q.finish(e, func(j *models.Job) {
		j.Status = models.JobStatusFailed
		j.Error = msg
		j.Phase = PhaseFailed
	})
	if !ok {
		return
	}
	q.logger.Warn("job failed", "job_id", snap.ID, "error", msg)
	q.flush()
}

// finish applies a terminal transition once and releases the run's cancel func.
func (q *Queue) finish(e *entry, fn func(*models.Job)) (models.Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.jobs[e.job.ID] != e || e.job.Status.Terminal() {
		return models.Job{}, false
	}
	now := q.now()
	fn(&e.job)
	e.job.CompletedAt = &now
	e.cancel = nil
	q.emitUpdated(e.job)
	return e.job.Clone(), true
}

// mutate applies fn to the job if the entry is still the tracked one for its id.
// Writes from an orphaned pipeline become no-ops here.
func (q *Queue) mutate(e *entry, fn func(*models.Job)) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.jobs[e.job.ID] != e || e.job.Status.Terminal() {
		return false
	}
	fn(&e.job)
	return true
}

// emitUpdated and emitRemoved queue a notification. The caller holds q.mu.
func (q *Queue) emitUpdated(job models.Job) {
	if q.notifier != nil {
		q.events = append(q.events, event{job: job.Clone()})
	}
}

func (q *Queue) emitRemoved(id string) {
	if q.notifier != nil {
		q.events = append(q.events, event{removed: id})
	}
}

// flush delivers queued events one at a time, oldest first, without holding
// q.mu. If another goroutine is already delivering, it takes over the new
// events and flush returns at once.
func (q *Queue) flush() {
	q.mu.Lock()
	if q.flushing {
		q.mu.Unlock()
		return
	}
	q.flushing = true
	for len(q.events) > 0 {
		batch := q.events
		q.events = nil
		q.mu.Unlock()
		for _, ev := range batch {
			q.deliver(ev)
		}
		q.mu.Lock()
	}
	q.flushing = false
	q.mu.Unlock()
}

func (q *Queue) deliver(ev event) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("panic in job notifier", "job_id", ev.job.ID, "removed", ev.removed, "error", r)
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), defaultNotifyTimeout)
	defer cancel()
	if ev.removed != "" {
		q.notifier.JobRemoved(ctx, ev.removed)
		return
	}
	q.notifier.JobUpdated(ctx, ev.job)
}

// newerThan orders by CreatedAt, falling back to insertion order for equal timestamps.
func newerThan(a, b *entry) bool {
	if !a.job.CreatedAt.Equal(b.job.CreatedAt) {
		return a.job.CreatedAt.After(b.job.CreatedAt)
	}
	return a.seq > b.seq
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
