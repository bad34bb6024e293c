package mykafka

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

const DefaultQueueSize = 1024

var (
	ErrQueueFull = errors.New("kafka: publish queue full")
	ErrClosed    = errors.New("kafka: publisher closed")
)

type queuedEvent struct {
	key   string
	event any
}

// AsyncPublisher hands events to a single background worker. PublishEvent
// never waits on the broker; when the queue is full the event is dropped and
// ErrQueueFull is returned.
type AsyncPublisher struct {
	next  Publisher
	log   *slog.Logger
	queue chan queuedEvent
	done  chan struct{}

	mu     sync.RWMutex
	closed bool
}

func NewAsyncPublisher(next Publisher, size int, log *slog.Logger) *AsyncPublisher {
	if size <= 0 {
		size = DefaultQueueSize
	}
	if log == nil {
		log = slog.Default()
	}
	a := &AsyncPublisher{
		next:  next,
		log:   log.With("svc", "kafka.async"),
		queue: make(chan queuedEvent, size),
		done:  make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *AsyncPublisher) PublishEvent(_ context.Context, key string, event any) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return ErrClosed
	}

	select {
	case a.queue <- queuedEvent{key: key, event: event}:
		return nil
	default:
		return ErrQueueFull
	}
}

func (a *AsyncPublisher) run() {
	defer close(a.done)
	for ev := range a.queue {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		if err := a.next.PublishEvent(ctx, ev.key, ev.event); err != nil {
			a.log.Warn("event_publish_failed", "key", ev.key, "error", err)
		}
		cancel()
	}
}

// Close stops accepting events, drains the queue and closes the wrapped
// publisher.
func (a *AsyncPublisher) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	close(a.queue)
	a.mu.Unlock()

	<-a.done
	return a.next.Close()
}
