package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/nudriin/humbet-cli/internal/core/event"
)

// fakeStream is a hand-driven Stream: tests push events, errors, and the
// open signal through the captured callbacks.
type fakeStream struct {
	mu      sync.Mutex
	onEvent func(event.StreamEvent)
	onError func(error)
	onOpen  func()
	closed  int
}

func (f *fakeStream) Connect(onEvent func(event.StreamEvent), onError func(error), onOpen func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onEvent = onEvent
	f.onError = onError
	f.onOpen = onOpen
}

func (f *fakeStream) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
}

func (f *fakeStream) closeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeStream) open() {
	f.mu.Lock()
	fn := f.onOpen
	f.mu.Unlock()
	fn()
}

func (f *fakeStream) push(e event.StreamEvent) {
	f.mu.Lock()
	fn := f.onEvent
	f.mu.Unlock()
	fn(e)
}

func (f *fakeStream) fail(err error) {
	f.mu.Lock()
	fn := f.onError
	f.mu.Unlock()
	fn(err)
}

func newSessionWithFake() (*ThinkingSession, *fakeStream) {
	st := &fakeStream{}
	return NewThinkingSession(func() Stream { return st }), st
}

// startOpened starts the session with a stream that opens immediately so
// tests never sit out the fallback wait.
func startOpened(t *testing.T, s *ThinkingSession, st *fakeStream) {
	t.Helper()
	st.mu.Lock()
	st.onOpen = nil
	st.mu.Unlock()
	go func() {
		for {
			st.mu.Lock()
			fn := st.onOpen
			st.mu.Unlock()
			if fn != nil {
				fn()
				return
			}
			time.Sleep(time.Millisecond)
		}
	}()
	require.NoError(t, s.Start(context.Background()))
}

// TestThinkingSession_StartFlipsThinking tests that starting a session
// raises the thinking flag with an empty buffer.
func TestThinkingSession_StartFlipsThinking(t *testing.T) {
	s, st := newSessionWithFake()
	startOpened(t, s, st)

	assert.True(t, s.IsThinking())
	assert.Empty(t, s.Events())
}

// TestThinkingSession_BuffersEventsInOrder tests FIFO ordering.
func TestThinkingSession_BuffersEventsInOrder(t *testing.T) {
	s, st := newSessionWithFake()
	startOpened(t, s, st)

	st.push(event.StreamEvent{Stage: event.StageRetrieval, Summary: "first"})
	st.push(event.StreamEvent{Stage: event.StageReranker, Summary: "second"})
	st.push(event.StreamEvent{Stage: event.StageGeneration, Summary: "third"})

	events := s.Events()
	require.Len(t, events, 3)
	assert.Equal(t, "first", events[0].Summary)
	assert.Equal(t, "second", events[1].Summary)
	assert.Equal(t, "third", events[2].Summary)
	assert.True(t, s.IsThinking())
}

// TestThinkingSession_BufferEvictsOldest tests the cap: once full, each new
// event evicts the oldest one and the buffer never exceeds the cap.
func TestThinkingSession_BufferEvictsOldest(t *testing.T) {
	s, st := newSessionWithFake()
	startOpened(t, s, st)

	overflow := 25
	for i := 0; i < MaxBufferedEvents+overflow; i++ {
		st.push(event.StreamEvent{Stage: event.StageLog, Summary: fmt.Sprintf("event-%d", i)})
	}

	events := s.Events()
	require.Len(t, events, MaxBufferedEvents)
	assert.Equal(t, fmt.Sprintf("event-%d", overflow), events[0].Summary)
	assert.Equal(t, fmt.Sprintf("event-%d", MaxBufferedEvents+overflow-1), events[len(events)-1].Summary)
}

// TestThinkingSession_FinalStatusClosesStream tests the terminal transition:
// the final-status event is kept, thinking drops, and the stream is closed
// exactly once.
func TestThinkingSession_FinalStatusClosesStream(t *testing.T) {
	s, st := newSessionWithFake()
	startOpened(t, s, st)

	st.push(event.StreamEvent{Stage: event.StageGeneration, Summary: "drafting"})
	st.push(event.StreamEvent{Stage: event.StageFinal, Summary: "done"})

	assert.False(t, s.IsThinking())
	assert.Equal(t, 1, st.closeCount())

	events := s.Events()
	require.Len(t, events, 2)
	assert.Equal(t, event.StageFinal, events[1].Stage)
}

// TestThinkingSession_StreamErrorClearsThinking tests that a transport
// error clears thinking but keeps the buffered trace.
func TestThinkingSession_StreamErrorClearsThinking(t *testing.T) {
	s, st := newSessionWithFake()
	startOpened(t, s, st)

	st.push(event.StreamEvent{Stage: event.StageRetrieval, Summary: "searching"})
	st.fail(assert.AnError)

	assert.False(t, s.IsThinking())
	assert.Len(t, s.Events(), 1)
	assert.Equal(t, 0, st.closeCount(), "errors must not tear the stream down")
}

// TestThinkingSession_StartTimesOutWithoutOpen tests that Start returns on
// its own when the transport never signals open.
func TestThinkingSession_StartTimesOutWithoutOpen(t *testing.T) {
	s, _ := newSessionWithFake()

	started := time.Now()
	require.NoError(t, s.Start(context.Background()))
	elapsed := time.Since(started)

	assert.GreaterOrEqual(t, elapsed, openWait)
	assert.Less(t, elapsed, 5*openWait)
	assert.True(t, s.IsThinking())
}

// TestThinkingSession_StartHonorsContext tests that a cancelled context
// unblocks Start before the fallback wait.
func TestThinkingSession_StartHonorsContext(t *testing.T) {
	s, _ := newSessionWithFake()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Start(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

// TestThinkingSession_RestartDropsStaleEvents tests that events from a
// replaced stream never reach the new session's buffer.
func TestThinkingSession_RestartDropsStaleEvents(t *testing.T) {
	first := &fakeStream{}
	second := &fakeStream{}
	streams := []*fakeStream{first, second}
	i := 0
	s := NewThinkingSession(func() Stream {
		st := streams[i]
		i++
		return st
	})

	startOpened(t, s, first)
	first.push(event.StreamEvent{Stage: event.StageRetrieval, Summary: "old"})

	startOpened(t, s, second)
	assert.Equal(t, 1, first.closeCount(), "restart must close the previous stream")

	first.push(event.StreamEvent{Stage: event.StageGeneration, Summary: "stale"})
	second.push(event.StreamEvent{Stage: event.StageRetrieval, Summary: "fresh"})

	events := s.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "fresh", events[0].Summary)
}

// TestThinkingSession_Reset tests that Reset closes the stream and clears
// both the buffer and the thinking flag.
func TestThinkingSession_Reset(t *testing.T) {
	s, st := newSessionWithFake()
	startOpened(t, s, st)
	st.push(event.StreamEvent{Stage: event.StageLog, RawText: "noise"})

	s.Reset()

	assert.False(t, s.IsThinking())
	assert.Empty(t, s.Events())
	assert.Equal(t, 1, st.closeCount())
}

// TestThinkingSession_CloseIsIdempotent tests that repeated Close calls
// only close the underlying stream once.
func TestThinkingSession_CloseIsIdempotent(t *testing.T) {
	s, st := newSessionWithFake()
	startOpened(t, s, st)

	s.Close()
	s.Close()

	assert.Equal(t, 1, st.closeCount())
	assert.False(t, s.IsThinking())
}

// TestThinkingSession_BufferNeverExceedsCap is a property test: any mix of
// pushed events leaves the buffer at most the cap, ordered oldest first.
func TestThinkingSession_BufferNeverExceedsCap(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s, st := newSessionWithFake()
		st.Connect(
			func(e event.StreamEvent) { s.handleEvent(st, e) },
			func(error) { s.handleStreamError(st) },
			func() {},
		)
		s.mu.Lock()
		s.stream = st
		s.thinking = true
		s.mu.Unlock()

		n := rapid.IntRange(0, 2*MaxBufferedEvents).Draw(t, "n")
		for i := 0; i < n; i++ {
			st.push(event.StreamEvent{Stage: event.StageLog, Summary: fmt.Sprintf("e%d", i)})
		}

		events := s.Events()
		if n <= MaxBufferedEvents {
			assert.Len(t, events, n)
		} else {
			assert.Len(t, events, MaxBufferedEvents)
			assert.Equal(t, fmt.Sprintf("e%d", n-MaxBufferedEvents), events[0].Summary)
		}
	})
}
