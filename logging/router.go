package logging

import (
	"context"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time {
	return f()
}

// Sink receives events already accepted by the router.
type Sink interface {
	Write(Event) error
	Close(context.Context) error
}

type NamedSink struct {
	Name string
	Sink Sink
}

// Router buffers published events and forwards them to every sink from a
// single dispatch goroutine. Publishing never blocks the simulation: when
// the buffer is full the event is dropped and counted.
type Router struct {
	queue       chan Event
	sinks       []NamedSink
	clock       Clock
	fallback    *log.Logger
	cancel      context.CancelFunc
	closed      atomic.Bool
	minSeverity Severity
	fields      map[string]any
	wg          sync.WaitGroup

	dropWarnInterval time.Duration
	eventsTotal      atomic.Uint64
	droppedTotal     atomic.Uint64
	lastDropLog      atomic.Int64
}

type RouterStats struct {
	EventsTotal  uint64
	DroppedTotal uint64
}

func NewRouter(clock Clock, cfg Config, namedSinks []NamedSink) *Router {
	if clock == nil {
		clock = ClockFunc(time.Now)
	}
	bufferSize := cfg.BufferSize
	if bufferSize <= 0 {
		bufferSize = 512
	}
	dropWarn := cfg.DropWarnInterval
	if dropWarn <= 0 {
		dropWarn = 5 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	r := &Router{
		queue:            make(chan Event, bufferSize),
		clock:            clock,
		fallback:         log.New(os.Stderr, "[logging] ", log.LstdFlags),
		cancel:           cancel,
		minSeverity:      cfg.MinimumSeverity,
		fields:           cfg.CloneFields(),
		dropWarnInterval: dropWarn,
	}
	for _, named := range namedSinks {
		if named.Sink == nil {
			continue
		}
		r.sinks = append(r.sinks, named)
	}

	r.wg.Add(1)
	go r.dispatch(ctx)
	return r
}

// Publish satisfies Publisher.
func (r *Router) Publish(_ context.Context, event Event) {
	if r == nil || r.closed.Load() {
		return
	}
	if event.Severity < r.minSeverity {
		return
	}
	if event.Time.IsZero() {
		event.Time = r.clock.Now()
	}
	if len(r.fields) > 0 {
		event = cloneEvent(event)
		if event.Extra == nil {
			event.Extra = make(map[string]any, len(r.fields))
		}
		for k, v := range r.fields {
			if _, exists := event.Extra[k]; !exists {
				event.Extra[k] = v
			}
		}
	}
	select {
	case r.queue <- event:
		r.eventsTotal.Add(1)
	default:
		r.recordDrop()
	}
}

func (r *Router) recordDrop() {
	r.droppedTotal.Add(1)
	now := r.clock.Now().UnixNano()
	last := r.lastDropLog.Load()
	if now-last < r.dropWarnInterval.Nanoseconds() {
		return
	}
	if r.lastDropLog.CompareAndSwap(last, now) {
		r.fallback.Printf("event buffer full; dropped %d events so far", r.droppedTotal.Load())
	}
}

func (r *Router) dispatch(ctx context.Context) {
	defer r.wg.Done()
	for {
		select {
		case <-ctx.Done():
			r.drain()
			return
		case event := <-r.queue:
			r.forward(event)
		}
	}
}

func (r *Router) drain() {
	for {
		select {
		case event := <-r.queue:
			r.forward(event)
		default:
			return
		}
	}
}

func (r *Router) forward(event Event) {
	for _, named := range r.sinks {
		if err := named.Sink.Write(event); err != nil {
			r.fallback.Printf("sink %s write failed: %v", named.Name, err)
		}
	}
}

// Close stops the dispatcher, flushes queued events, and closes every sink.
func (r *Router) Close(ctx context.Context) error {
	if r == nil || !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	r.cancel()
	r.wg.Wait()
	var firstErr error
	for _, named := range r.sinks {
		if err := named.Sink.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *Router) Stats() RouterStats {
	if r == nil {
		return RouterStats{}
	}
	return RouterStats{
		EventsTotal:  r.eventsTotal.Load(),
		DroppedTotal: r.droppedTotal.Load(),
	}
}
