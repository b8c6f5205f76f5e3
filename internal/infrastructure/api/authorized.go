package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/nudriin/humbet-cli/internal/core/domain"
)

// sessionExpiredMessage is the user-facing explanation attached to the
// session-expired notification when authentication cannot be recovered.
const sessionExpiredMessage = "Sesi berakhir, silakan login lagi"

// authorizedDo performs a request with the bearer token attached, and
// transparently recovers from an expired access token with exactly one
// refresh-and-retry cycle. The bound is enforced by an explicit loop flag
// so a 401 on the retried request can never trigger a second refresh.
//
// On success the raw response is returned for the caller to interpret; all
// failures surface as *domain.APIError (or a wrapped transport error).
func (c *Client) authorizedDo(ctx context.Context, method, path, contentType string, body []byte) (*http.Response, error) {
	refreshed := false
	for {
		session, err := c.store.Load()
		if err != nil {
			return nil, fmt.Errorf("failed to load session: %w", err)
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		if session.AccessToken != "" {
			req.Header.Set("Authorization", "Bearer "+session.AccessToken)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("request failed: %w", err)
		}

		if resp.StatusCode == http.StatusUnauthorized && !refreshed {
			refreshed = true

			if session.RefreshToken == "" {
				c.store.Clear(sessionExpiredMessage)
				return nil, apiErrorFromResponse(resp)
			}

			if err := c.refreshSession(ctx, session); err != nil {
				c.store.Clear(sessionExpiredMessage)
				var apiErr *domain.APIError
				if errors.As(err, &apiErr) {
					drainAndClose(resp)
					return nil, apiErr
				}
				return nil, apiErrorFromResponse(resp)
			}

			drainAndClose(resp)
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, apiErrorFromResponse(resp)
		}
		return resp, nil
	}
}

// refreshSession exchanges the stored refresh token for a new pair and
// persists it. The returned user profile wins over the previously known
// one; when the refresh response omits it the old profile is kept.
func (c *Client) refreshSession(ctx context.Context, current domain.Session) error {
	refreshed, err := c.PostRefresh(ctx, domain.RefreshRequest{RefreshToken: current.RefreshToken})
	if err != nil {
		return err
	}

	user := refreshed.User
	if user == nil {
		user = current.User
	}
	return c.store.Save(domain.Session{
		AccessToken:  refreshed.AccessToken,
		RefreshToken: refreshed.RefreshToken,
		User:         user,
	})
}

// apiErrorFromResponse normalizes a non-2xx response into an APIError. The
// detail comes from the body's "detail" field when present, else the raw
// body, else the HTTP status text. Consumes and closes the body.
func apiErrorFromResponse(resp *http.Response) *domain.APIError {
	defer resp.Body.Close()

	statusText := http.StatusText(resp.StatusCode)
	detail := statusText

	body, err := io.ReadAll(resp.Body)
	if err == nil && len(bytes.TrimSpace(body)) > 0 {
		var payload struct {
			Detail string `json:"detail"`
		}
		if json.Unmarshal(body, &payload) == nil && payload.Detail != "" {
			detail = payload.Detail
		} else {
			detail = string(bytes.TrimSpace(body))
		}
	}

	return domain.NewAPIError(resp.StatusCode, statusText, detail)
}

func drainAndClose(resp *http.Response) {
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
