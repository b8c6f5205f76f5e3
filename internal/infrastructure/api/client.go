package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nudriin/humbet-cli/internal/core/domain"
	"github.com/nudriin/humbet-cli/internal/core/ports"
)

// Client handles HTTP communication with the Humbet RAG backend. All
// endpoints of the backend contract are covered; authenticated calls go
// through the refresh-and-retry path in authorizedDo.
type Client struct {
	baseURL    string
	store      ports.SessionStore
	httpClient *http.Client
}

// NewClient creates an API client for the given base URL, reading and
// writing credentials through the session store.
func NewClient(baseURL string, store ports.SessionStore) *Client {
	return NewClientWithHTTP(baseURL, store, &http.Client{Timeout: 30 * time.Second})
}

// NewClientWithHTTP creates an API client with a custom HTTP client.
func NewClientWithHTTP(baseURL string, store ports.SessionStore, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		store:      store,
		httpClient: httpClient,
	}
}

// BaseURL returns the configured backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// postJSON performs an unauthenticated JSON request and decodes the
// response into out when non-nil.
func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apiErrorFromResponse(resp)
	}
	defer resp.Body.Close()

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// authorizedJSON performs an authenticated request with an optional JSON
// body and decodes the response into out when non-nil.
func (c *Client) authorizedJSON(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	contentType := ""
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		contentType = "application/json"
	}

	resp, err := c.authorizedDo(ctx, method, path, contentType, payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// PostChat submits a query, optionally bound to an existing conversation.
func (c *Client) PostChat(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	var out domain.ChatResponse
	if err := c.postJSON(ctx, "/chat", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetHistory returns paginated conversation summaries.
func (c *Client) GetHistory(ctx context.Context, offset, limit int) ([]domain.ConversationSummary, error) {
	path := fmt.Sprintf("/history?offset=%d&limit=%d", offset, limit)
	var out []domain.ConversationSummary
	if err := c.authorizedJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetConversationDetail returns a full conversation with its messages.
func (c *Client) GetConversationDetail(ctx context.Context, id int) (*domain.ConversationDetail, error) {
	var out domain.ConversationDetail
	if err := c.authorizedJSON(ctx, http.MethodGet, fmt.Sprintf("/history/%d", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteConversation deletes one conversation.
func (c *Client) DeleteConversation(ctx context.Context, id int) error {
	return c.authorizedJSON(ctx, http.MethodDelete, fmt.Sprintf("/history/%d", id), nil, nil)
}

// DeleteAllHistory deletes every conversation.
func (c *Client) DeleteAllHistory(ctx context.Context) error {
	return c.authorizedJSON(ctx, http.MethodDelete, "/history", nil, nil)
}

// GetDashboardStats returns aggregate usage statistics.
func (c *Client) GetDashboardStats(ctx context.Context) (*domain.DashboardStats, error) {
	var out domain.DashboardStats
	if err := c.authorizedJSON(ctx, http.MethodGet, "/dashboard/stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitFeedback attaches a 1-5 score and optional comment to a message.
func (c *Client) SubmitFeedback(ctx context.Context, req domain.FeedbackRequest) (*domain.FeedbackResponse, error) {
	var out domain.FeedbackResponse
	if err := c.postJSON(ctx, "/feedback", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Export downloads one conversation, or all of them when conversationID is
// nil, as raw JSON for the caller to write out.
func (c *Client) Export(ctx context.Context, conversationID *int) (json.RawMessage, error) {
	path := "/export"
	if conversationID != nil {
		path = fmt.Sprintf("/export?conversation_id=%d", *conversationID)
	}
	var out json.RawMessage
	if err := c.authorizedJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PostEvaluate runs retrieval/generation evaluation over a question set.
func (c *Client) PostEvaluate(ctx context.Context, req domain.EvaluateRequest) (*domain.EvaluateResponse, error) {
	var out domain.EvaluateResponse
	if err := c.authorizedJSON(ctx, http.MethodPost, "/evaluate", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Ingest uploads a PDF or HTML document for indexing via multipart form.
func (c *Client) Ingest(ctx context.Context, filename string, content io.Reader) (*domain.IngestResponse, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize form: %w", err)
	}

	resp, err := c.authorizedDo(ctx, http.MethodPost, "/ingest", writer.FormDataContentType(), buf.Bytes())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out domain.IngestResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &out, nil
}

// PostLogin exchanges credentials for a token pair and profile. The caller
// is responsible for persisting the resulting session.
func (c *Client) PostLogin(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error) {
	var out domain.LoginResponse
	if err := c.postJSON(ctx, "/login", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PostRefresh exchanges a refresh token for a new token pair.
func (c *Client) PostRefresh(ctx context.Context, req domain.RefreshRequest) (*domain.RefreshResponse, error) {
	var out domain.RefreshResponse
	if err := c.postJSON(ctx, "/refresh", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PostAdminRegister creates a new admin account (privileged).
func (c *Client) PostAdminRegister(ctx context.Context, req domain.AdminRegisterRequest) (*domain.AdminRegisterResponse, error) {
	var out domain.AdminRegisterResponse
	if err := c.authorizedJSON(ctx, http.MethodPost, "/admin/register", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PostVectorsReset wipes the vector store.
func (c *Client) PostVectorsReset(ctx context.Context) (*domain.VectorResetResponse, error) {
	var out domain.VectorResetResponse
	if err := c.authorizedJSON(ctx, http.MethodPost, "/vectors/reset", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PostVectorsDeleteBySource removes all chunks for a named source.
func (c *Client) PostVectorsDeleteBySource(ctx context.Context, source string) (*domain.VectorDeleteResponse, error) {
	var out domain.VectorDeleteResponse
	req := domain.VectorDeleteRequest{Source: source}
	if err := c.authorizedJSON(ctx, http.MethodPost, "/vectors/delete-by-source", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetVectorsSources lists indexed sources with chunk counts.
func (c *Client) GetVectorsSources(ctx context.Context) (*domain.VectorSourcesResponse, error) {
	var out domain.VectorSourcesResponse
	if err := c.authorizedJSON(ctx, http.MethodGet, "/vectors/sources", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetVectorsSourceDetail lists the stored chunks for one source.
func (c *Client) GetVectorsSourceDetail(ctx context.Context, source string) (*domain.VectorSourceDetailResponse, error) {
	path := "/vectors/source-detail?source=" + url.QueryEscape(source)
	var out domain.VectorSourceDetailResponse
	if err := c.authorizedJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
