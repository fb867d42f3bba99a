package logging

import (
	"context"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

type Clock interface {
	Now() time.Time
}

type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time {
	return f()
}

// Sink receives routed events on its own goroutine.
type Sink interface {
	Write(Event) error
	Close(context.Context) error
}

type NamedSink struct {
	Name string
	Sink Sink
}

// Router fans published events out to sinks. Publish never blocks the
// caller: a full queue drops the event and counts it.
type Router struct {
	cfg      Config
	clock    Clock
	fallback *log.Logger

	queue   chan Event
	stop    chan struct{}
	workers []*sinkWorker
	wg      sync.WaitGroup
	closed  atomic.Bool

	published atomic.Uint64
	dropped   atomic.Uint64
	drops     dropThrottle
	metrics   Metrics
}

type RouterStats struct {
	EventsTotal  uint64
	DroppedTotal uint64
}

func NewRouter(clock Clock, cfg Config, namedSinks []NamedSink) (*Router, error) {
	if clock == nil {
		clock = ClockFunc(time.Now)
	}
	cfg = cfg.Normalized()
	r := &Router{
		cfg:      cfg,
		clock:    clock,
		fallback: log.New(os.Stderr, "[events] ", log.LstdFlags),
		queue:    make(chan Event, cfg.BufferSize),
		stop:     make(chan struct{}),
		drops:    dropThrottle{interval: cfg.DropWarnInterval},
	}

	backlog := min(max(cfg.BufferSize, 32), 1024)
	for _, named := range namedSinks {
		if named.Sink != nil {
			r.workers = append(r.workers, newSinkWorker(named.Name, named.Sink, backlog, r.fallback))
		}
	}

	for _, w := range r.workers {
		r.wg.Add(1)
		go func(w *sinkWorker) {
			defer r.wg.Done()
			w.run()
		}(w)
	}
	r.wg.Add(1)
	go r.dispatch()
	return r, nil
}

func (r *Router) dispatch() {
	defer r.wg.Done()
	defer func() {
		for _, w := range r.workers {
			close(w.events)
		}
	}()
	for {
		select {
		case event := <-r.queue:
			r.route(event)
		case <-r.stop:
			for {
				select {
				case event := <-r.queue:
					r.route(event)
				default:
					return
				}
			}
		}
	}
}

func (r *Router) route(event Event) {
	if event.Severity < r.cfg.MinimumSeverity {
		return
	}
	if event.Time.IsZero() {
		event.Time = r.clock.Now()
	}
	event = event.withFields(r.cfg.Fields)

	r.published.Add(1)
	category := event.Category
	if category == "" {
		category = "uncategorized"
	}
	r.metrics.TelemetryAdd("events."+category, 1)
	for _, w := range r.workers {
		w.offer(event)
	}
}

// Publish queues event for the sinks. Events without a type and events
// published after Close are ignored.
func (r *Router) Publish(_ context.Context, event Event) {
	if event.Type == "" || r.closed.Load() {
		return
	}
	select {
	case r.queue <- event:
	default:
		r.dropped.Add(1)
		r.metrics.TelemetryAdd("events.dropped", 1)
		if r.drops.allow(time.Now()) {
			r.fallback.Printf("queue full, dropping %s at tick %d", event.Type, event.Tick)
		}
	}
}

// Close drains queued events into the sinks, then closes every sink. A
// second call waits for ctx and returns its error.
func (r *Router) Close(ctx context.Context) error {
	if !r.closed.CompareAndSwap(false, true) {
		<-ctx.Done()
		return ctx.Err()
	}
	close(r.stop)

	flushed := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(flushed)
	}()
	select {
	case <-flushed:
	case <-ctx.Done():
		return ctx.Err()
	}

	var firstErr error
	for _, w := range r.workers {
		if err := w.sink.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *Router) Stats() RouterStats {
	return RouterStats{
		EventsTotal:  r.published.Load(),
		DroppedTotal: r.dropped.Load(),
	}
}

// Metrics exposes per-category event counters.
func (r *Router) Metrics() *Metrics {
	return &r.metrics
}

// Clock reports the clock used to stamp events.
func (r *Router) Clock() Clock {
	return r.clock
}

// Sink returns the sink registered under name, or nil.
func (r *Router) Sink(name string) Sink {
	for _, w := range r.workers {
		if w.name == name {
			return w.sink
		}
	}
	return nil
}

// dropThrottle rate-limits the fallback warning for dropped events.
type dropThrottle struct {
	interval time.Duration
	next     atomic.Int64
}

func (d *dropThrottle) allow(now time.Time) bool {
	next := d.next.Load()
	if next != 0 && now.UnixNano() < next {
		return false
	}
	return d.next.CompareAndSwap(next, now.Add(d.interval).UnixNano())
}
