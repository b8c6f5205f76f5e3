package event

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Stage classifies a stream event within the RAG pipeline taxonomy. The
// values are the wire names emitted by the backend.
type Stage string

const (
	StageRqRag       Stage = "rq_rag"
	StageRetrieval   Stage = "retrieval"
	StageReranker    Stage = "reranker"
	StageDragin      Stage = "dragin"
	StageGeneration  Stage = "generation"
	StageFinal       Stage = "final_status"
	StageLog         Stage = "log"
)

// String returns the wire representation of the stage.
func (s Stage) String() string {
	return string(s)
}

// IsTerminal reports whether the stage ends a reasoning trace.
func (s Stage) IsTerminal() bool {
	return s == StageFinal
}

// StreamEvent is one normalized unit of server-pushed reasoning-trace data.
// Either the structured fields or RawText are populated, never both: RawText
// is the fallback for payloads that could not be parsed as JSON.
type StreamEvent struct {
	Time    string         `json:"time,omitempty"`
	Stage   Stage          `json:"stage,omitempty"`
	Action  string         `json:"action,omitempty"`
	Summary string         `json:"summary,omitempty"`
	Details map[string]any `json:"details,omitempty"`
	RawText string         `json:"rawText,omitempty"`
}

// heartbeat sentinels sent by the backend to keep the connection alive.
// They carry no information and must not reach any listener.
var heartbeats = map[string]struct{}{
	"ping":   {},
	":ping":  {},
	": ping": {},
}

// IsHeartbeat reports whether the trimmed payload is a keepalive sentinel
// or empty, in which case it must be dropped without emitting an event.
func IsHeartbeat(payload string) bool {
	trimmed := strings.TrimSpace(payload)
	if trimmed == "" {
		return true
	}
	_, ok := heartbeats[trimmed]
	return ok
}

// Normalize converts one raw stream payload into a StreamEvent. Valid JSON
// objects have their recognized fields extracted (unknown fields dropped);
// anything else is preserved verbatim as a log-stage event stamped with the
// current time. Malformed payloads are never an error.
func Normalize(payload string) StreamEvent {
	trimmed := strings.TrimSpace(payload)

	var parsed struct {
		Time    string         `json:"time"`
		Stage   string         `json:"stage"`
		Action  string         `json:"action"`
		Summary string         `json:"summary"`
		Details map[string]any `json:"details"`
	}
	if err := json.Unmarshal([]byte(trimmed), &parsed); err != nil || !strings.HasPrefix(trimmed, "{") {
		return StreamEvent{
			Stage:   StageLog,
			RawText: trimmed,
			Time:    time.Now().Format(time.RFC3339),
		}
	}

	return StreamEvent{
		Time:    parsed.Time,
		Stage:   Stage(parsed.Stage),
		Action:  parsed.Action,
		Summary: parsed.Summary,
		Details: parsed.Details,
	}
}

// Describe renders a short single-line description for display, preferring
// the summary, then the action, then the raw text.
func (e StreamEvent) Describe() string {
	switch {
	case e.Summary != "":
		return e.Summary
	case e.Action != "":
		return e.Action
	case e.RawText != "":
		return e.RawText
	default:
		return fmt.Sprintf("[%s]", e.Stage)
	}
}
