package streaming

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/nudriin/humbet-cli/internal/core/event"
)

// backoffSchedule is the fixed sequence of waits between reconnect attempts.
// Once every slot has been consumed the client gives up for good.
var backoffSchedule = []time.Duration{
	2 * time.Second,
	5 * time.Second,
	10 * time.Second,
	10 * time.Second,
	10 * time.Second,
}

// MessageHandler receives each normalized stream event.
type MessageHandler = func(event.StreamEvent)

// ErrorHandler receives transport-level failures. Errors are never returned
// to callers directly; this channel is the only way they surface.
type ErrorHandler = func(error)

// OpenHandler fires when the transport signals a successful open.
type OpenHandler = func()

// Client maintains at most one live SSE connection to the backend's
// reasoning-trace endpoint, normalizes inbound payloads into stream events
// and reconnects across transient failures with a bounded backoff schedule.
type Client struct {
	url        string
	httpClient *http.Client

	mu          sync.Mutex
	connected   bool
	retries     int
	cancel      context.CancelFunc
	gen         int
	reconnect   *time.Timer
	nextHandler int
	msgHandlers map[int]MessageHandler
	errHandlers map[int]ErrorHandler
	openHandler map[int]OpenHandler
}

// NewClient creates a stream client for the given backend base URL.
func NewClient(baseURL string) *Client {
	return NewClientWithHTTP(baseURL, &http.Client{})
}

// NewClientWithHTTP creates a stream client with a custom HTTP client. The
// client must not carry an overall timeout: the stream stays open for the
// lifetime of the connection.
func NewClientWithHTTP(baseURL string, httpClient *http.Client) *Client {
	return &Client{
		url:         strings.TrimRight(baseURL, "/") + "/logs/stream",
		httpClient:  httpClient,
		msgHandlers: make(map[int]MessageHandler),
		errHandlers: make(map[int]ErrorHandler),
		openHandler: make(map[int]OpenHandler),
	}
}

// URL returns the stream endpoint this client connects to.
func (c *Client) URL() string {
	return c.url
}

// Connected reports whether the transport is currently open.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Retries returns the number of reconnect attempts made since the last
// explicit Disconnect.
func (c *Client) Retries() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.retries
}

// Connect registers the given callbacks (nil callbacks are skipped; earlier
// registrations are kept, not replaced) and opens a connection if none is
// live. Calling Connect while a connection is open only adds the callbacks.
func (c *Client) Connect(onEvent MessageHandler, onError ErrorHandler, onOpen OpenHandler) {
	c.mu.Lock()
	if onEvent != nil {
		c.msgHandlers[c.handlerID()] = onEvent
	}
	if onError != nil {
		c.errHandlers[c.handlerID()] = onError
	}
	if onOpen != nil {
		c.openHandler[c.handlerID()] = onOpen
	}
	if c.cancel != nil {
		c.mu.Unlock()
		return
	}
	c.connected = false
	c.gen++
	gen := c.gen
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.mu.Unlock()

	go c.run(ctx, gen)
}

// OnMessage adds a message handler and returns its unsubscribe function.
func (c *Client) OnMessage(handler MessageHandler) func() {
	c.mu.Lock()
	id := c.handlerID()
	c.msgHandlers[id] = handler
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.msgHandlers, id)
		c.mu.Unlock()
	}
}

// OnError adds an error handler and returns its unsubscribe function.
func (c *Client) OnError(handler ErrorHandler) func() {
	c.mu.Lock()
	id := c.handlerID()
	c.errHandlers[id] = handler
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.errHandlers, id)
		c.mu.Unlock()
	}
}

// Disconnect tears down any live connection, cancels a pending reconnect
// and resets the retry counter. Idempotent.
func (c *Client) Disconnect() {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.reconnect != nil {
		c.reconnect.Stop()
		c.reconnect = nil
	}
	c.retries = 0
	c.connected = false
	c.mu.Unlock()
}

// Close is an alias for Disconnect.
func (c *Client) Close() {
	c.Disconnect()
}

// handlerID issues the next handler key. Callers must hold c.mu.
func (c *Client) handlerID() int {
	c.nextHandler++
	return c.nextHandler
}

// run owns one connection attempt: it opens the stream, marks the client
// connected, then reads payloads until the transport fails or the
// connection is torn down.
func (c *Client) run(ctx context.Context, gen int) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		c.transportError(gen, fmt.Errorf("failed to create stream request: %w", err))
		return
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		c.transportError(gen, fmt.Errorf("stream connection failed: %w", err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.transportError(gen, fmt.Errorf("stream endpoint returned status %d", resp.StatusCode))
		return
	}

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return
	}
	c.connected = true
	opens := make([]OpenHandler, 0, len(c.openHandler))
	for _, h := range c.openHandler {
		opens = append(opens, h)
	}
	c.mu.Unlock()
	for _, h := range opens {
		h()
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		payload := strings.TrimSpace(strings.TrimPrefix(scanner.Text(), "data:"))
		if event.IsHeartbeat(payload) {
			continue
		}
		c.dispatch(gen, event.Normalize(payload))
	}

	if ctx.Err() != nil {
		return
	}
	err = scanner.Err()
	if err == nil {
		err = fmt.Errorf("stream closed by server")
	}
	c.transportError(gen, err)
}

// dispatch delivers an event to every registered message handler. Handlers
// are invoked outside the lock so they may call back into the client.
func (c *Client) dispatch(gen int, e event.StreamEvent) {
	c.mu.Lock()
	if c.gen != gen || c.cancel == nil {
		c.mu.Unlock()
		return
	}
	handlers := make([]MessageHandler, 0, len(c.msgHandlers))
	for _, h := range c.msgHandlers {
		handlers = append(handlers, h)
	}
	c.mu.Unlock()

	for _, h := range handlers {
		h(e)
	}
}

// transportError flips the connected flag, notifies error handlers and
// unconditionally schedules a reconnect attempt.
func (c *Client) transportError(gen int, err error) {
	c.mu.Lock()
	if c.gen != gen || c.cancel == nil {
		c.mu.Unlock()
		return
	}
	c.connected = false
	handlers := make([]ErrorHandler, 0, len(c.errHandlers))
	for _, h := range c.errHandlers {
		handlers = append(handlers, h)
	}
	c.mu.Unlock()

	for _, h := range handlers {
		h(err)
	}

	c.scheduleReconnect(gen)
}

// scheduleReconnect tears down the failed connection and arms a timer for
// the next attempt per the backoff schedule. Once the schedule is exhausted
// the client closes permanently; the retry counter is reset only by an
// explicit Disconnect, never by a successful reconnect.
func (c *Client) scheduleReconnect(gen int) {
	c.mu.Lock()
	if c.gen != gen || c.cancel == nil {
		c.mu.Unlock()
		return
	}
	c.cancel()
	c.cancel = nil

	if c.retries >= len(backoffSchedule) {
		c.connected = false
		c.mu.Unlock()
		return
	}
	delay := backoffSchedule[c.retries]
	c.retries++
	c.reconnect = time.AfterFunc(delay, func() {
		c.mu.Lock()
		c.reconnect = nil
		c.mu.Unlock()
		c.Connect(nil, nil, nil)
	})
	c.mu.Unlock()
}
