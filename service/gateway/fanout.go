package gateway

import (
	"context"
	"sync"
)

// Delivery is the handle for one in-flight fan-out. Completion means every
// resolved connection either accepted the frame into its send queue or was
// skipped as unreachable; it does not mean remote peers acknowledged.
type Delivery struct {
	done chan struct{}

	mu       sync.Mutex
	enqueued int
	skipped  int
}

func newDelivery() *Delivery {
	return &Delivery{done: make(chan struct{})}
}

// Wait blocks until the fan-out completed or ctx expires.
func (d *Delivery) Wait(ctx context.Context) error {
	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Enqueued reports how many connections accepted the frame.
func (d *Delivery) Enqueued() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.enqueued
}

// Skipped reports how many connections were unreachable (closed or slow).
func (d *Delivery) Skipped() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.skipped
}

func (d *Delivery) record(ok bool) {
	d.mu.Lock()
	if ok {
		d.enqueued++
	} else {
		d.skipped++
	}
	d.mu.Unlock()
}

func (d *Delivery) finish() { close(d.done) }

type fanoutJob struct {
	conns []*Client
	frame outFrame
	d     *Delivery
}

// Fanout delivers one payload to a resolved set of connections as a single
// logical operation, decoupled from the caller by a small worker pool.
type Fanout struct {
	jobs     chan fanoutJob
	stopOnce sync.Once
	stopped  chan struct{}
}

func NewFanout(workers, queue int) *Fanout {
	if workers <= 0 {
		workers = 4
	}
	if queue <= 0 {
		queue = 1024
	}
	f := &Fanout{
		jobs:    make(chan fanoutJob, queue),
		stopped: make(chan struct{}),
	}
	for i := 0; i < workers; i++ {
		go f.worker()
	}
	return f
}

func (f *Fanout) worker() {
	for {
		select {
		case job := <-f.jobs:
			for _, c := range job.conns {
				job.d.record(c.enqueue(job.frame))
			}
			job.d.finish()
		case <-f.stopped:
			return
		}
	}
}

// Dispatch queues one fan-out and returns its handle immediately.
func (f *Fanout) Dispatch(conns []*Client, frame outFrame) *Delivery {
	d := newDelivery()
	if len(conns) == 0 {
		d.finish()
		return d
	}
	select {
	case f.jobs <- fanoutJob{conns: conns, frame: frame, d: d}:
	case <-f.stopped:
		d.finish()
	}
	return d
}

func (f *Fanout) Close() {
	f.stopOnce.Do(func() { close(f.stopped) })
}
