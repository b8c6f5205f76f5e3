package di

import (
	"fmt"
	"net/http"

	"github.com/nudriin/humbet-cli/internal/config"
	"github.com/nudriin/humbet-cli/internal/core/ports"
	"github.com/nudriin/humbet-cli/internal/core/session"
	"github.com/nudriin/humbet-cli/internal/infrastructure/api"
	"github.com/nudriin/humbet-cli/internal/infrastructure/auth"
	"github.com/nudriin/humbet-cli/internal/infrastructure/streaming"
)

// Container wires configuration, the session store and the backend clients
// together for the CLI commands.
type Container struct {
	Config       *config.Config
	SessionStore ports.SessionStore
	APIClient    *api.Client
}

// NewContainer builds the full dependency graph from the given config file
// path (empty means the default location).
func NewContainer(configPath string) (*Container, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	store, err := auth.NewFileSessionStore(cfg.StateDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize session store: %w", err)
	}

	client := api.NewClientWithHTTP(cfg.APIBaseURL, store, &http.Client{Timeout: cfg.Timeout()})

	return &Container{
		Config:       cfg,
		SessionStore: store,
		APIClient:    client,
	}, nil
}

// ApplyAPIBaseURLOverride replaces the backend base URL, rebuilding the API
// client. Used by the CLI --api-url flag.
func (c *Container) ApplyAPIBaseURLOverride(baseURL string) {
	c.Config.APIBaseURL = baseURL
	c.APIClient = api.NewClientWithHTTP(baseURL, c.SessionStore, &http.Client{Timeout: c.Config.Timeout()})
}

// NewStreamClient opens a fresh reasoning-trace stream client against the
// configured backend.
func (c *Container) NewStreamClient() *streaming.Client {
	return streaming.NewClient(c.Config.APIBaseURL)
}

// NewThinkingSession creates a thinking session backed by fresh stream
// clients from this container.
func (c *Container) NewThinkingSession() *session.ThinkingSession {
	return session.NewThinkingSession(func() session.Stream {
		return c.NewStreamClient()
	})
}
