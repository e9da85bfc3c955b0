package tasks

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/shivam222343/aura/internal/metrics"
)

// Task is a named unit of background work. Run receives a fresh context
// because the request that enqueued the task has already returned.
type Task struct {
	Name string
	Run  func(ctx context.Context)
}

// Dispatcher executes tasks on a fixed worker pool behind a bounded
// queue. Enqueue never blocks: a full queue drops the task and reports
// it. Workers do not recover panics; a panicking task is a bug and
// takes the process down.
type Dispatcher struct {
	log     *zap.Logger
	metrics *metrics.Metrics
	queue   chan Task

	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
}

func New(log *zap.Logger, m *metrics.Metrics, workers, queueSize int) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 16
	}

	d := &Dispatcher{
		log:     log,
		metrics: m,
		queue:   make(chan Task, queueSize),
	}

	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}

	return d
}

func (d *Dispatcher) Enqueue(name string, run func(ctx context.Context)) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return false
	}

	select {
	case d.queue <- Task{Name: name, Run: run}:
		d.metrics.TasksEnqueued.Inc()
		return true
	default:
		d.metrics.TasksDropped.Inc()
		d.log.Warn("task queue full, dropping task", zap.String("task", name))
		return false
	}
}

// Stop closes intake and waits until every queued task has run.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()

	for task := range d.queue {
		start := time.Now()
		task.Run(context.Background())
		d.log.Debug("task finished",
			zap.String("task", task.Name),
			zap.Duration("took", time.Since(start)),
		)
	}
}
