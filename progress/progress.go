// Package progress carries best-effort run notifications from a clustering
// engine to whatever is watching it (a socket, a log stream, a test).
//
// Publishing never blocks the producer: Queue buffers events and hands them
// to a Publisher on its own goroutine, dropping events when saturated.
package progress

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"
)

// DefaultChannel is the channel clustering events are published on.
const DefaultChannel = "clusteringLog"

// Kind distinguishes textual log events from rendered images.
type Kind string

const (
	KindLog   Kind = "log"
	KindImage Kind = "image"
)

var (
	// ErrQueueFull is returned by Queue.Publish when the buffer is saturated.
	ErrQueueFull = errors.New("progress: queue full")
	// ErrClosed is returned by Queue.Publish after Close.
	ErrClosed = errors.New("progress: queue closed")
)

// Event is a single progress notification.
type Event struct {
	RunID     string    `json:"run_id,omitempty"`
	Time      time.Time `json:"time"`
	Channel   string    `json:"channel"`
	Kind      Kind      `json:"type"`
	Iteration int       `json:"iteration,omitempty"`
	Content   string    `json:"content"`
}

// Sink receives progress events. Implementations must not block for long;
// callers treat a returned error as informational only.
type Sink interface {
	Publish(Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event) error

func (f SinkFunc) Publish(e Event) error { return f(e) }

// Discard is a Sink that drops every event.
var Discard Sink = SinkFunc(func(Event) error { return nil })

// Publisher delivers an event to its final destination. It may block; Queue
// calls it from a dedicated goroutine.
type Publisher func(ctx context.Context, e Event) error

// Queue is a non-blocking Sink backed by a buffered channel and one delivery
// goroutine.
type Queue struct {
	events  chan Event
	publish Publisher
	logger  *slog.Logger

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewQueue starts a Queue with the given buffer size. A nil logger discards
// delivery errors silently.
func NewQueue(size int, publish Publisher, logger *slog.Logger) *Queue {
	if size < 1 {
		size = 1
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	q := &Queue{
		events:  make(chan Event, size),
		publish: publish,
		logger:  logger,
		done:    make(chan struct{}),
	}
	go q.loop()
	return q
}

// Publish enqueues e without blocking.
func (q *Queue) Publish(e Event) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrClosed
	}
	if e.Channel == "" {
		e.Channel = DefaultChannel
	}
	if e.Kind == "" {
		e.Kind = KindLog
	}
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	select {
	case q.events <- e:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting events and waits until the buffered ones have been
// delivered or ctx is done.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.events)
	}
	q.mu.Unlock()

	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) loop() {
	defer close(q.done)
	ctx := context.Background()
	for e := range q.events {
		if err := q.deliver(ctx, e); err != nil {
			q.logger.Warn("progress delivery failed",
				"channel", e.Channel,
				"run_id", e.RunID,
				"error", err,
			)
		}
	}
}

func (q *Queue) deliver(ctx context.Context, e Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.New("progress: publisher panicked")
		}
	}()
	return q.publish(ctx, e)
}

// WriterPublisher returns a Publisher that writes each event as one JSON
// line to w.
func WriterPublisher(w io.Writer) Publisher {
	var mu sync.Mutex
	enc := json.NewEncoder(w)
	return func(_ context.Context, e Event) error {
		mu.Lock()
		defer mu.Unlock()
		return enc.Encode(e)
	}
}
