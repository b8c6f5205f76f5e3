package session

import (
	"context"
	"sync"
	"time"

	"github.com/nudriin/humbet-cli/internal/core/event"
)

const (
	// MaxBufferedEvents caps the per-session trace buffer; the oldest
	// event is evicted first once the cap is reached.
	MaxBufferedEvents = 500

	// openWait bounds how long Start blocks for the transport to open
	// before letting the caller proceed with a possibly-not-yet-connected
	// stream.
	openWait = 400 * time.Millisecond
)

// Stream is the live-event connection a thinking session consumes.
type Stream interface {
	Connect(onEvent func(event.StreamEvent), onError func(error), onOpen func())
	Close()
}

// StreamFactory opens a fresh stream for each session start.
type StreamFactory func() Stream

// ThinkingSession correlates one user-initiated request with a transient
// view of the backend's live reasoning stream. It owns a capped FIFO event
// buffer and an "is the backend still thinking" flag, and closes its stream
// once the terminal final-status event arrives.
type ThinkingSession struct {
	newStream StreamFactory

	mu       sync.Mutex
	stream   Stream
	events   []event.StreamEvent
	thinking bool
}

// NewThinkingSession creates a session that opens streams via factory.
func NewThinkingSession(factory StreamFactory) *ThinkingSession {
	return &ThinkingSession{newStream: factory}
}

// Start discards any previous session state, opens a new stream and flips
// the thinking flag. It returns once the transport signals open or after a
// short fixed wait, whichever comes first; a late open after the wait has
// elapsed has no further effect.
func (s *ThinkingSession) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.stream != nil {
		s.stream.Close()
	}
	s.events = nil
	st := s.newStream()
	s.stream = st
	s.thinking = true
	s.mu.Unlock()

	opened := make(chan struct{})
	var once sync.Once
	st.Connect(
		func(e event.StreamEvent) { s.handleEvent(st, e) },
		func(error) { s.handleStreamError(st) },
		func() { once.Do(func() { close(opened) }) },
	)

	select {
	case <-opened:
	case <-time.After(openWait):
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// handleEvent appends the event to the capped buffer and shuts the stream
// down when the terminal stage arrives. Events from a stream that has
// already been replaced are dropped.
func (s *ThinkingSession) handleEvent(st Stream, e event.StreamEvent) {
	s.mu.Lock()
	if s.stream != st {
		s.mu.Unlock()
		return
	}
	s.events = append(s.events, e)
	if len(s.events) > MaxBufferedEvents {
		s.events = append(s.events[:0], s.events[1:]...)
	}
	terminal := e.Stage.IsTerminal()
	if terminal {
		s.thinking = false
		s.stream = nil
	}
	s.mu.Unlock()

	if terminal {
		st.Close()
	}
}

// handleStreamError clears the thinking flag but leaves the connection to
// the stream's own reconnect policy.
func (s *ThinkingSession) handleStreamError(st Stream) {
	s.mu.Lock()
	if s.stream == st {
		s.thinking = false
	}
	s.mu.Unlock()
}

// Events returns a snapshot of the buffered trace, oldest first.
func (s *ThinkingSession) Events() []event.StreamEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]event.StreamEvent, len(s.events))
	copy(out, s.events)
	return out
}

// IsThinking reports whether the backend is still producing trace events.
func (s *ThinkingSession) IsThinking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.thinking
}

// Reset closes the stream and clears the buffer without waiting.
func (s *ThinkingSession) Reset() {
	s.Close()
	s.mu.Lock()
	s.events = nil
	s.mu.Unlock()
}

// Close tears down the stream if one is open. Owners must call it when the
// surrounding UI context goes away so no connection leaks.
func (s *ThinkingSession) Close() {
	s.mu.Lock()
	st := s.stream
	s.stream = nil
	s.thinking = false
	s.mu.Unlock()

	if st != nil {
		st.Close()
	}
}
