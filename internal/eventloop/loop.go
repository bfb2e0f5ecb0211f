package eventloop

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

var (
	ErrFull       = errors.New("event queue full")
	ErrNotStarted = errors.New("event loop not started")
	ErrStopped    = errors.New("event loop stopped")
)

// Handler mutates application state. Handlers run one at a time on the loop
// goroutine, so they never interleave.
type Handler func(ctx context.Context) error

type event struct {
	name   string
	handle Handler
	done   chan error
}

// Stats exposes current loop metrics.
type Stats struct {
	Length    int    `json:"length"`
	Capacity  int    `json:"capacity"`
	Processed uint64 `json:"processed"`
	Failed    uint64 `json:"failed"`
}

// Loop is a bounded, totally ordered event queue drained by a single
// goroutine.
type Loop struct {
	events    chan event
	timeout   time.Duration
	mu        sync.RWMutex
	started   bool
	stopped   bool
	wg        sync.WaitGroup
	processed uint64
	failed    uint64
}

// New creates a loop holding up to capacity pending events. Each handler
// gets timeout to finish.
func New(capacity int, timeout time.Duration) *Loop {
	if capacity < 1 {
		capacity = 1
	}
	return &Loop{events: make(chan event, capacity), timeout: timeout}
}

// Start launches the loop goroutine.
func (l *Loop) Start(ctx context.Context) {
	l.mu.Lock()
	if l.started || l.stopped {
		l.mu.Unlock()
		return
	}
	l.started = true
	l.mu.Unlock()
	l.wg.Add(1)
	go l.run(ctx)
}

// Submit enqueues handler and waits until it has run. The returned error is
// the handler's own error, or a queueing failure.
func (l *Loop) Submit(ctx context.Context, name string, h Handler) error {
	done := make(chan error, 1)
	if err := l.enqueue(event{name: name, handle: h, done: done}); err != nil {
		return err
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Post enqueues handler without waiting for it.
func (l *Loop) Post(name string, h Handler) error {
	return l.enqueue(event{name: name, handle: h})
}

func (l *Loop) enqueue(ev event) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	switch {
	case l.stopped:
		return ErrStopped
	case !l.started:
		return ErrNotStarted
	}
	select {
	case l.events <- ev:
		return nil
	default:
		log.Printf("eventloop: queue full, dropping event %s", ev.name)
		return ErrFull
	}
}

// Stop stops accepting events and waits for queued ones to drain until ctx
// is done.
func (l *Loop) Stop(ctx context.Context) {
	l.mu.Lock()
	if !l.started || l.stopped {
		l.stopped = true
		l.mu.Unlock()
		return
	}
	l.stopped = true
	close(l.events)
	l.mu.Unlock()

	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}

func (l *Loop) Stats() Stats {
	return Stats{
		Length:    len(l.events),
		Capacity:  cap(l.events),
		Processed: atomic.LoadUint64(&l.processed),
		Failed:    atomic.LoadUint64(&l.failed),
	}
}

// Healthy reports whether the loop is accepting events.
func (l *Loop) Healthy() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.started && !l.stopped
}

func (l *Loop) run(ctx context.Context) {
	defer l.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-l.events:
			if !ok {
				return
			}
			l.handle(ctx, ev)
		}
	}
}

func (l *Loop) handle(ctx context.Context, ev event) {
	start := time.Now()
	err := l.call(ctx, ev)
	atomic.AddUint64(&l.processed, 1)
	status := "ok"
	if err != nil {
		atomic.AddUint64(&l.failed, 1)
		status = err.Error()
	}
	if ev.done != nil {
		ev.done <- err
	}
	log.Printf("eventloop: event=%s duration_ms=%d status=%s", ev.name, time.Since(start).Milliseconds(), status)
}

func (l *Loop) call(ctx context.Context, ev event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("event %s panicked: %v", ev.name, r)
		}
	}()
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}
	return ev.handle(ctx)
}
