package lane

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/obiverse/dojo/internal/tracing"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ErrClosed is returned for tasks enqueued after Close
var ErrClosed = fmt.Errorf("lane queue closed")

// Task is one unit of work run inside a lane
type Task func(ctx context.Context) (interface{}, error)

// Observer is notified whenever a lane's queue or running count changes
type Observer interface {
	LaneChanged(lane string, queued, running int)
}

type taskRecord struct {
	id         string
	task       Task
	ctx        context.Context
	enqueuedAt time.Time
	abandoned  atomic.Bool
	result     chan taskResult
}

type taskResult struct {
	value interface{}
	err   error
}

type laneState struct {
	concurrency int
	queue       []*taskRecord
	running     int
	mu          sync.Mutex
}

// Stats is a snapshot of one lane
type Stats struct {
	Queued      int `json:"queued"`
	Running     int `json:"running"`
	Concurrency int `json:"concurrency"`
}

// Queue runs tasks in named lanes. Each lane is FIFO and runs at most its
// concurrency limit of tasks at once.
type Queue struct {
	lanes     map[string]*laneState
	taskIDSeq int
	mu        sync.RWMutex
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	closed    atomic.Bool
	observer  Observer
	logger    zerolog.Logger
}

// Option configures a Queue
type Option func(*Queue)

// WithLogger sets the queue logger
func WithLogger(logger zerolog.Logger) Option {
	return func(q *Queue) {
		q.logger = logger
	}
}

// WithObserver registers an observer for lane changes
func WithObserver(o Observer) Option {
	return func(q *Queue) {
		q.observer = o
	}
}

// New creates a new Queue
func New(opts ...Option) *Queue {
	ctx, cancel := context.WithCancel(context.Background())

	q := &Queue{
		lanes:  make(map[string]*laneState),
		ctx:    ctx,
		cancel: cancel,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// lane returns the lane state, creating it with concurrency 1 if needed.
func (q *Queue) lane(name string) *laneState {
	q.mu.RLock()
	ls, exists := q.lanes[name]
	q.mu.RUnlock()
	if exists {
		return ls
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if ls, exists = q.lanes[name]; !exists {
		ls = &laneState{concurrency: 1}
		q.lanes[name] = ls
		q.logger.Debug().Str("lane", name).Int("concurrency", 1).Msg("Lane initialized")
	}
	return ls
}

// SetConcurrency updates the concurrency limit for a lane. Values below 1
// are treated as 1.
func (q *Queue) SetConcurrency(name string, concurrency int) {
	if concurrency < 1 {
		concurrency = 1
	}

	ls := q.lane(name)
	ls.mu.Lock()
	oldMax := ls.concurrency
	ls.concurrency = concurrency
	ls.mu.Unlock()

	q.logger.Debug().
		Str("lane", name).
		Int("oldMax", oldMax).
		Int("newMax", concurrency).
		Msg("Lane concurrency updated")

	if concurrency > oldMax {
		q.processLane(name)
	}
}

// Enqueue adds a task to a lane and waits for its result. If ctx ends while
// the task is still queued, the task is dropped without running.
func (q *Queue) Enqueue(ctx context.Context, name string, task Task) (interface{}, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if q.closed.Load() {
		return nil, ErrClosed
	}

	ls := q.lane(name)

	q.mu.Lock()
	q.taskIDSeq++
	taskID := fmt.Sprintf("%s-%d", name, q.taskIDSeq)
	q.mu.Unlock()

	record := &taskRecord{
		id:         taskID,
		task:       task,
		ctx:        ctx,
		enqueuedAt: time.Now(),
		result:     make(chan taskResult, 1),
	}

	ls.mu.Lock()
	ls.queue = append(ls.queue, record)
	queued, running := len(ls.queue), ls.running
	ls.mu.Unlock()

	q.logger.Debug().
		Str("lane", name).
		Str("taskId", taskID).
		Int("queueSize", queued).
		Msg("Task enqueued")
	q.notify(name, queued, running)

	q.processLane(name)

	select {
	case result := <-record.result:
		return result.value, result.err
	case <-ctx.Done():
		record.abandoned.Store(true)
		return nil, ctx.Err()
	}
}

// processLane starts queued tasks while the lane has capacity
func (q *Queue) processLane(name string) {
	ls := q.lane(name)
	ls.mu.Lock()
	defer ls.mu.Unlock()

	for ls.running < ls.concurrency && len(ls.queue) > 0 {
		record := ls.queue[0]
		ls.queue = ls.queue[1:]

		if record.abandoned.Load() || record.ctx.Err() != nil {
			q.logger.Debug().Str("lane", name).Str("taskId", record.id).Msg("Skipping abandoned task")
			continue
		}

		ls.running++
		q.wg.Add(1)
		go q.executeTask(name, record)
	}

	q.notify(name, len(ls.queue), ls.running)
}

// executeTask runs a single task and releases its slot
func (q *Queue) executeTask(name string, record *taskRecord) {
	defer q.wg.Done()

	taskCtx, span := tracing.StartSpan(
		record.ctx,
		"dojo.lane",
		"lane.execute",
		attribute.String("lane", name),
		attribute.String("task_id", record.id),
	)
	defer span.End()

	runCtx, cancel := context.WithCancel(taskCtx)
	stopCancel := context.AfterFunc(q.ctx, cancel)
	defer func() {
		stopCancel()
		cancel()
	}()

	waited := time.Since(record.enqueuedAt)
	startTime := time.Now()

	value, err := record.task(runCtx)

	duration := time.Since(startTime)

	ls := q.lane(name)
	ls.mu.Lock()
	ls.running--
	ls.mu.Unlock()

	record.result <- taskResult{value: value, err: err}
	close(record.result)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	q.logger.Debug().
		Str("lane", name).
		Str("taskId", record.id).
		Dur("waited", waited).
		Dur("duration", duration).
		Bool("success", err == nil).
		Msg("Task completed")

	q.processLane(name)
}

func (q *Queue) notify(name string, queued, running int) {
	if q.observer != nil {
		q.observer.LaneChanged(name, queued, running)
	}
}

// Stats returns a snapshot of every lane
func (q *Queue) Stats() map[string]Stats {
	q.mu.RLock()
	defer q.mu.RUnlock()

	stats := make(map[string]Stats, len(q.lanes))
	for name, ls := range q.lanes {
		ls.mu.Lock()
		stats[name] = Stats{
			Queued:      len(ls.queue),
			Running:     ls.running,
			Concurrency: ls.concurrency,
		}
		ls.mu.Unlock()
	}
	return stats
}

// Close cancels running tasks and waits for them to return
func (q *Queue) Close() error {
	q.closed.Store(true)
	q.cancel()
	q.wg.Wait()
	return nil
}
