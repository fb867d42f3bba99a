package logging

import (
	"log"
	"time"
)

const maxSinkBackoff = 32 * time.Second

// sinkWorker feeds one sink from its own backlog. A failing sink backs off
// exponentially; its backlog overflows instead of stalling the router.
type sinkWorker struct {
	name     string
	sink     Sink
	events   chan Event
	fallback *log.Logger

	failures int
	resumeAt time.Time
}

func newSinkWorker(name string, sink Sink, backlog int, fallback *log.Logger) *sinkWorker {
	return &sinkWorker{
		name:     name,
		sink:     sink,
		events:   make(chan Event, backlog),
		fallback: fallback,
	}
}

func (w *sinkWorker) offer(event Event) {
	select {
	case w.events <- event.Clone():
	default:
		w.fallback.Printf("sink %s backlog full, dropping %s", w.name, event.Type)
	}
}

func (w *sinkWorker) run() {
	for event := range w.events {
		if wait := time.Until(w.resumeAt); wait > 0 {
			time.Sleep(wait)
		}
		if err := w.sink.Write(event); err != nil {
			w.backoff(err)
			continue
		}
		w.failures = 0
		w.resumeAt = time.Time{}
	}
}

func (w *sinkWorker) backoff(err error) {
	w.failures++
	delay := time.Second << min(w.failures, 5)
	if delay > maxSinkBackoff {
		delay = maxSinkBackoff
	}
	w.resumeAt = time.Now().Add(delay)
	w.fallback.Printf("sink %s failed: %v (retry in %s)", w.name, err, delay)
}
