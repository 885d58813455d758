// Package stream delivers ordered session events to consumers. A Stream
// owns the per-session sequence counter, so every published event gets a
// gap-free, monotonically increasing sequence number regardless of which
// goroutine produced it, and the channel itself guarantees delivery
// order matches sequence order.
package stream

import (
	"sync"

	"github.com/chronicler-ai/chronicler/core"
	"github.com/chronicler-ai/chronicler/logging"
)

// Publisher is the producer-side interface the reasoning engine writes
// to. The engine publishes exactly one session_start first and exactly
// one terminal event last; the Stream closes itself after the terminal
// event so consumers ranging over Events observe a finite sequence.
type Publisher interface {
	Publish(ev core.Event)
}

// Options configure a Stream.
type Options struct {
	// Buffer is the event channel capacity. A small buffer absorbs
	// bursts without coupling engine progress to consumer speed.
	Buffer int

	// Logger defaults to NoOpLogger.
	Logger logging.Logger
}

// Stream is a single-session event pipe. Producer calls Publish; the
// consumer ranges over Events. When the consumer goes away it calls
// Cancel, after which publishes are silently discarded so the engine is
// never blocked by a dead reader.
type Stream struct {
	ch     chan core.Event
	done   chan struct{}
	logger logging.Logger

	mu       sync.Mutex
	seq      uint64
	finished bool
	canceled bool
	dropped  int
}

// New constructs a Stream.
func New(optFns ...func(o *Options)) *Stream {
	opts := Options{
		Buffer: 64,
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Buffer < 1 {
		opts.Buffer = 1
	}
	return &Stream{
		ch:     make(chan core.Event, opts.Buffer),
		done:   make(chan struct{}),
		logger: opts.Logger,
	}
}

// Events returns the consumer side of the stream. The channel is closed
// after the terminal event, so `for ev := range s.Events()` terminates.
func (s *Stream) Events() <-chan core.Event {
	return s.ch
}

// Publish assigns the next sequence number and delivers the event. It
// blocks while the buffer is full unless the consumer has canceled, in
// which case the event is discarded. After a terminal event the channel
// is closed and further publishes are discarded with a warning.
func (s *Stream) Publish(ev core.Event) {
	s.mu.Lock()
	if s.finished {
		s.mu.Unlock()
		s.logger.Warn("event published after terminal event, discarding",
			"type", string(ev.Type), "session_id", ev.SessionID)
		return
	}
	s.seq++
	ev.Sequence = s.seq
	terminal := ev.IsTerminal()
	if terminal {
		s.finished = true
	}
	if s.canceled {
		s.dropped++
		if terminal {
			close(s.ch)
		}
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	select {
	case s.ch <- ev:
	case <-s.done:
		s.mu.Lock()
		s.dropped++
		s.mu.Unlock()
	}

	if terminal {
		close(s.ch)
	}
}

// Cancel marks the consumer as gone. Subsequent and currently blocked
// publishes are discarded. Safe to call more than once.
func (s *Stream) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.canceled {
		return
	}
	s.canceled = true
	close(s.done)
}

// Dropped reports how many events were discarded after cancellation.
func (s *Stream) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Drain consumes the stream to completion and returns every event in
// order. Used by synchronous callers that want the full trace after the
// fact rather than incremental delivery.
func Drain(s *Stream) []core.Event {
	var events []core.Event
	for ev := range s.Events() {
		events = append(events, ev)
	}
	return events
}
