package ports

import "github.com/nudriin/humbet-cli/internal/core/domain"

// SessionEventKind distinguishes session-store change notifications.
type SessionEventKind string

const (
	// SessionUpdated: a new token pair was persisted; dependents should
	// re-read the store.
	SessionUpdated SessionEventKind = "updated"
	// SessionExpired: the session was cleared after an irrecoverable auth
	// failure; Message carries the user-facing explanation.
	SessionExpired SessionEventKind = "expired"
)

// SessionEvent is the typed payload delivered to session-store observers.
type SessionEvent struct {
	Kind    SessionEventKind
	Message string
}

// SessionStore is the single process-wide home of the persisted credential
// bundle. Implementations must survive restarts (file store) or be fully
// in-memory for tests. Observers replace ambient global notifications.
type SessionStore interface {
	// Load returns the current session. A zero Session means logged out.
	Load() (domain.Session, error)

	// Save replaces the session wholesale. Implementations must reject a
	// session violating the access/refresh pairing invariant.
	Save(session domain.Session) error

	// Clear wipes all credential fields together and notifies observers
	// with the given expiry message when one is provided.
	Clear(message string) error

	// Subscribe registers an observer for session changes and returns an
	// unsubscribe function removing only that observer.
	Subscribe(fn func(SessionEvent)) func()
}
