package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nudriin/humbet-cli/internal/core/domain"
	"github.com/nudriin/humbet-cli/internal/core/ports"
	"github.com/nudriin/humbet-cli/internal/infrastructure/auth"
)

// recordedRequest captures what the backend saw for later assertions.
type recordedRequest struct {
	method string
	path   string
	bearer string
}

// authBackend scripts a backend that rejects stale tokens with 401, honors
// the refresh endpoint, and records every request.
type authBackend struct {
	mu            sync.Mutex
	requests      []recordedRequest
	validToken    string
	refreshToken  string
	refreshFails  bool
	refreshCalls  int
	protectedBody string
}

func (b *authBackend) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.requests = append(b.requests, recordedRequest{
			method: r.Method,
			path:   r.URL.Path,
			bearer: r.Header.Get("Authorization"),
		})
		b.mu.Unlock()

		if r.URL.Path == "/refresh" {
			b.mu.Lock()
			b.refreshCalls++
			fails := b.refreshFails
			b.mu.Unlock()
			if fails {
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]string{"detail": "refresh token revoked"})
				return
			}
			var req domain.RefreshRequest
			json.NewDecoder(r.Body).Decode(&req)
			if req.RefreshToken != b.refreshToken {
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]string{"detail": "unknown refresh token"})
				return
			}
			json.NewEncoder(w).Encode(domain.RefreshResponse{
				AccessToken:  "fresh-access",
				RefreshToken: "fresh-refresh",
			})
			return
		}

		if r.Header.Get("Authorization") != "Bearer "+b.validToken {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"detail": "token expired"})
			return
		}
		w.Write([]byte(b.protectedBody))
	})
}

func (b *authBackend) recorded() []recordedRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]recordedRequest, len(b.requests))
	copy(out, b.requests)
	return out
}

func countRefreshes(requests []recordedRequest) int {
	n := 0
	for _, r := range requests {
		if r.path == "/refresh" {
			n++
		}
	}
	return n
}

// TestAuthorizedDo_RefreshAndRetryOn401 tests the recovery path: a stale
// access token triggers exactly one refresh, the original request is
// retried with the fresh token, and the new pair is persisted.
func TestAuthorizedDo_RefreshAndRetryOn401(t *testing.T) {
	backend := &authBackend{
		validToken:    "fresh-access",
		refreshToken:  "old-refresh",
		protectedBody: `[{"id":1,"title":"first","created_at":"2025-01-01T00:00:00Z"}]`,
	}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	store := auth.NewMemorySessionStore()
	require.NoError(t, store.Save(domain.Session{
		AccessToken:  "stale-access",
		RefreshToken: "old-refresh",
		User:         &domain.User{ID: 1, Username: "admin"},
	}))

	client := NewClient(srv.URL, store)
	history, err := client.GetHistory(context.Background(), 0, 20)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "first", history[0].Title)

	requests := backend.recorded()
	require.Len(t, requests, 3, "expected initial request, refresh, retry")
	assert.Equal(t, "Bearer stale-access", requests[0].bearer)
	assert.Equal(t, "/refresh", requests[1].path)
	assert.Equal(t, "Bearer fresh-access", requests[2].bearer)

	session, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "fresh-access", session.AccessToken)
	assert.Equal(t, "fresh-refresh", session.RefreshToken)
	require.NotNil(t, session.User, "the previous profile must survive a refresh that omits it")
	assert.Equal(t, "admin", session.User.Username)
}

// TestAuthorizedDo_SecondUnauthorizedIsFinal tests the single-cycle bound:
// when the retried request is rejected too, no second refresh happens and
// the 401 surfaces to the caller.
func TestAuthorizedDo_SecondUnauthorizedIsFinal(t *testing.T) {
	backend := &authBackend{
		// nothing matches, so the retry 401s as well
		validToken:   "never-issued",
		refreshToken: "old-refresh",
	}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	store := auth.NewMemorySessionStore()
	require.NoError(t, store.Save(domain.Session{
		AccessToken:  "stale-access",
		RefreshToken: "old-refresh",
	}))

	client := NewClient(srv.URL, store)
	_, err := client.GetHistory(context.Background(), 0, 20)
	require.Error(t, err)

	var apiErr *domain.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, 1, countRefreshes(backend.recorded()), "a 401 on the retry must not trigger another refresh")
}

// TestAuthorizedDo_NoRefreshTokenClearsSession tests that a 401 without a
// stored refresh token gives up immediately: the session is cleared, the
// expiry notification fires, and the original 401 is returned.
func TestAuthorizedDo_NoRefreshTokenClearsSession(t *testing.T) {
	backend := &authBackend{validToken: "never-issued"}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	store := auth.NewMemorySessionStore()
	var mu sync.Mutex
	var events []ports.SessionEvent
	store.Subscribe(func(evt ports.SessionEvent) {
		mu.Lock()
		events = append(events, evt)
		mu.Unlock()
	})

	client := NewClient(srv.URL, store)
	_, err := client.GetHistory(context.Background(), 0, 20)
	require.Error(t, err)

	var apiErr *domain.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "token expired", apiErr.Detail)

	assert.Equal(t, 0, countRefreshes(backend.recorded()))

	session, loadErr := store.Load()
	require.NoError(t, loadErr)
	assert.False(t, session.IsAuthenticated())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 1)
	assert.Equal(t, ports.SessionExpired, events[0].Kind)
	assert.Equal(t, sessionExpiredMessage, events[0].Message)
}

// TestAuthorizedDo_FailedRefreshClearsSession tests that a rejected refresh
// clears the session, notifies expiry, and surfaces the refresh failure.
func TestAuthorizedDo_FailedRefreshClearsSession(t *testing.T) {
	backend := &authBackend{
		validToken:   "never-issued",
		refreshToken: "old-refresh",
		refreshFails: true,
	}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	store := auth.NewMemorySessionStore()
	require.NoError(t, store.Save(domain.Session{
		AccessToken:  "stale-access",
		RefreshToken: "old-refresh",
	}))

	var mu sync.Mutex
	expired := 0
	store.Subscribe(func(evt ports.SessionEvent) {
		if evt.Kind == ports.SessionExpired {
			mu.Lock()
			expired++
			mu.Unlock()
		}
	})

	client := NewClient(srv.URL, store)
	_, err := client.GetHistory(context.Background(), 0, 20)
	require.Error(t, err)

	var apiErr *domain.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "refresh token revoked", apiErr.Detail)

	session, loadErr := store.Load()
	require.NoError(t, loadErr)
	assert.False(t, session.IsAuthenticated())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, expired)
}

// TestAuthorizedDo_NoRecoveryOnSuccess tests that a valid token goes
// straight through without touching the refresh endpoint.
func TestAuthorizedDo_NoRecoveryOnSuccess(t *testing.T) {
	backend := &authBackend{
		validToken:    "good-access",
		protectedBody: `[]`,
	}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	store := auth.NewMemorySessionStore()
	require.NoError(t, store.Save(domain.Session{
		AccessToken:  "good-access",
		RefreshToken: "good-refresh",
	}))

	client := NewClient(srv.URL, store)
	_, err := client.GetHistory(context.Background(), 0, 20)
	require.NoError(t, err)

	requests := backend.recorded()
	require.Len(t, requests, 1)
	assert.Equal(t, 0, countRefreshes(requests))
}

// TestAPIErrorFromResponse tests detail extraction precedence.
func TestAPIErrorFromResponse(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantDetail string
	}{
		{
			name:       "DetailField",
			status:     http.StatusNotFound,
			body:       `{"detail": "conversation not found"}`,
			wantDetail: "conversation not found",
		},
		{
			name:       "NonJSONBody",
			status:     http.StatusBadGateway,
			body:       "upstream unavailable",
			wantDetail: "upstream unavailable",
		},
		{
			name:       "JSONWithoutDetail",
			status:     http.StatusUnprocessableEntity,
			body:       `{"error": "bad input"}`,
			wantDetail: `{"error": "bad input"}`,
		},
		{
			name:       "EmptyBody",
			status:     http.StatusInternalServerError,
			body:       "",
			wantDetail: http.StatusText(http.StatusInternalServerError),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			resp, err := http.Get(srv.URL)
			require.NoError(t, err)

			apiErr := apiErrorFromResponse(resp)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, http.StatusText(tt.status), apiErr.StatusText)
			assert.Equal(t, tt.wantDetail, apiErr.Detail)
		})
	}
}
