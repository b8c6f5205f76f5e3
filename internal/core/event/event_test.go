package event

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestIsHeartbeat_SuppressesSentinels tests that keepalive payloads and
// empty payloads are recognized and dropped.
func TestIsHeartbeat_SuppressesSentinels(t *testing.T) {
	tests := []struct {
		name      string
		payload   string
		heartbeat bool
	}{
		{name: "Ping", payload: "ping", heartbeat: true},
		{name: "ColonPing", payload: ":ping", heartbeat: true},
		{name: "ColonSpacePing", payload: ": ping", heartbeat: true},
		{name: "PingWithWhitespace", payload: "  ping \n", heartbeat: true},
		{name: "Empty", payload: "", heartbeat: true},
		{name: "OnlyWhitespace", payload: "   ", heartbeat: true},
		{name: "RealPayload", payload: `{"stage":"retrieval"}`, heartbeat: false},
		{name: "PingInsideText", payload: "ping pong", heartbeat: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.heartbeat, IsHeartbeat(tt.payload))
		})
	}
}

// TestNormalize_StructuredPayload tests that recognized JSON fields are
// extracted exactly and the raw-text fallback stays empty.
func TestNormalize_StructuredPayload(t *testing.T) {
	payload := `{
		"time": "2025-01-02T03:04:05Z",
		"stage": "retrieval",
		"action": "search",
		"summary": "retrieved 5 documents",
		"details": {"num_docs": 5, "index": "main"},
		"unknown_field": "dropped"
	}`

	e := Normalize(payload)

	assert.Equal(t, "2025-01-02T03:04:05Z", e.Time)
	assert.Equal(t, StageRetrieval, e.Stage)
	assert.Equal(t, "search", e.Action)
	assert.Equal(t, "retrieved 5 documents", e.Summary)
	require.NotNil(t, e.Details)
	assert.Equal(t, float64(5), e.Details["num_docs"])
	assert.Equal(t, "main", e.Details["index"])
	assert.Empty(t, e.RawText, "structured events must not carry raw text")
}

// TestNormalize_MalformedPayload tests the raw-text fallback: the trimmed
// payload is preserved verbatim, the stage is log, and a fresh timestamp
// is stamped on.
func TestNormalize_MalformedPayload(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{name: "PlainText", payload: "retriever warmed up", want: "retriever warmed up"},
		{name: "TruncatedJSON", payload: `{"stage": "retr`, want: `{"stage": "retr`},
		{name: "JSONArray", payload: `[1,2,3]`, want: `[1,2,3]`},
		{name: "JSONScalar", payload: `"hello"`, want: `"hello"`},
		{name: "Whitespace", payload: "  some log line \n", want: "some log line"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := Normalize(tt.payload)

			assert.Equal(t, StageLog, e.Stage)
			assert.Equal(t, tt.want, e.RawText)
			assert.NotEmpty(t, e.Time, "fallback events must carry a timestamp")
			assert.Empty(t, e.Summary)
			assert.Nil(t, e.Details)
		})
	}
}

// TestNormalize_NeverPanics is a property test: Normalize must accept any
// input without panicking and always yield either structured fields or a
// log-stage fallback with a timestamp.
func TestNormalize_NeverPanics(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		payload := rapid.String().Draw(t, "payload")

		e := Normalize(payload)

		if e.Stage == StageLog && e.RawText != "" {
			assert.NotEmpty(t, e.Time)
		}
	})
}

// TestStage_IsTerminal tests that only final_status ends a trace.
func TestStage_IsTerminal(t *testing.T) {
	assert.True(t, StageFinal.IsTerminal())

	for _, stage := range []Stage{StageRqRag, StageRetrieval, StageReranker, StageDragin, StageGeneration, StageLog} {
		assert.False(t, stage.IsTerminal(), "stage %s must not be terminal", stage)
	}
}

// TestStreamEvent_Describe tests the display preference order.
func TestStreamEvent_Describe(t *testing.T) {
	assert.Equal(t, "sum", StreamEvent{Summary: "sum", Action: "act", RawText: "raw"}.Describe())
	assert.Equal(t, "act", StreamEvent{Action: "act", RawText: "raw"}.Describe())
	assert.Equal(t, "raw", StreamEvent{RawText: "raw"}.Describe())
	assert.Equal(t, fmt.Sprintf("[%s]", StageGeneration), StreamEvent{Stage: StageGeneration}.Describe())
}
