package hook

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Dispatcher queues word changes for a Runner and drops jobs when the queue
// is full so polling never blocks on a slow hook.
type Dispatcher struct {
	runner  *Runner
	logger  *logrus.Logger
	ch      chan Job
	sent    atomic.Int64
	dropped atomic.Int64
	failed  atomic.Int64
	once    sync.Once
	wg      sync.WaitGroup
}

// NewDispatcher returns a Dispatcher with a queue of size (at least 1).
func NewDispatcher(r *Runner, logger *logrus.Logger, size int) *Dispatcher {
	return &Dispatcher{runner: r, logger: logger, ch: make(chan Job, max(1, size))}
}

// Start runs the worker until ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	d.once.Do(func() {
		d.wg.Add(1)
		go d.work(ctx)
	})
}

// Wait blocks until the worker has exited.
func (d *Dispatcher) Wait() { d.wg.Wait() }

func (d *Dispatcher) work(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-d.ch:
			if err := d.runner.Run(ctx, job); err != nil {
				d.failed.Add(1)
				d.logger.Errorf("hook: %v", err)
				continue
			}
			d.sent.Add(1)
		}
	}
}

// WordChanged enqueues a hook run for word, honouring the cooldown.
func (d *Dispatcher) WordChanged(word string) {
	if !d.runner.Enabled() {
		return
	}
	if !d.runner.ShouldRun() {
		d.logger.Debug("hook skipped (cooldown)")
		return
	}
	select {
	case d.ch <- Job{Word: word, Timestamp: time.Now()}:
	default:
		d.dropped.Add(1)
		d.logger.Warn("hook queue full, dropping job")
	}
}

// Sent returns the number of successful hook runs.
func (d *Dispatcher) Sent() int64 { return d.sent.Load() }

// Dropped returns the number of jobs dropped on a full queue.
func (d *Dispatcher) Dropped() int64 { return d.dropped.Load() }

// Failed returns the number of hook runs that returned an error.
func (d *Dispatcher) Failed() int64 { return d.failed.Load() }
