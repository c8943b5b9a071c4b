// Package overlay streams pipeline events to browser overlays over WebSocket.
//
// A [Hub] is a [pipeline.Observer]: every event is encoded once as JSON and
// queued to each connected client. Clients that fall behind by more than the
// queue size are disconnected rather than slowing the pipeline down. A newly
// connected client first receives the most recent entry so the overlay can
// show the current line immediately.
package overlay

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/MrWong99/ocrlite/internal/observe"
	"github.com/MrWong99/ocrlite/internal/pipeline"
)

const (
	defaultQueueSize    = 32
	defaultWriteTimeout = 5 * time.Second
)

// Option is a functional option for configuring a [Hub].
type Option func(*Hub)

// WithQueueSize sets how many events may be pending per client before it is
// dropped. Default: 32.
func WithQueueSize(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.queueSize = n
		}
	}
}

// WithWriteTimeout bounds a single write to a client. Default: 5s.
func WithWriteTimeout(d time.Duration) Option {
	return func(h *Hub) {
		if d > 0 {
			h.writeTimeout = d
		}
	}
}

// WithOriginPatterns allows cross-origin connections from hosts matching the
// given patterns (see [websocket.AcceptOptions]).
func WithOriginPatterns(patterns ...string) Option {
	return func(h *Hub) {
		h.originPatterns = append(h.originPatterns, patterns...)
	}
}

// WithMetrics records the number of connected clients on m.
func WithMetrics(m *observe.Metrics) Option {
	return func(h *Hub) {
		h.metrics = m
	}
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
	gone chan struct{}
}

func (c *client) drop() {
	c.once.Do(func() { close(c.gone) })
}

// Hub fans pipeline events out to WebSocket clients.
//
// All methods are safe for concurrent use.
type Hub struct {
	queueSize      int
	writeTimeout   time.Duration
	originPatterns []string
	metrics        *observe.Metrics

	mu        sync.Mutex
	clients   map[*client]struct{}
	lastEntry []byte
	closed    bool
}

// New creates an empty hub.
func New(opts ...Option) *Hub {
	h := &Hub{
		queueSize:    defaultQueueSize,
		writeTimeout: defaultWriteTimeout,
		clients:      make(map[*client]struct{}),
	}
	for _, o := range opts {
		o(h)
	}
	if h.metrics == nil {
		h.metrics = observe.DefaultMetrics()
	}
	return h
}

// Observe implements [pipeline.Observer]. It never blocks.
func (h *Hub) Observe(e pipeline.Event) {
	msg, err := json.Marshal(e)
	if err != nil {
		slog.Warn("overlay: encode event", "kind", e.Kind, "err", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	if e.Kind == pipeline.EventEntry {
		h.lastEntry = msg
	}
	if e.Kind == pipeline.EventState && e.State == pipeline.StateIdle {
		h.lastEntry = nil
	}
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			slog.Warn("overlay: dropping slow client")
			c.drop()
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request to a WebSocket and streams events until the
// client disconnects, falls behind, or the hub is closed. Messages sent by
// the client are not expected; any data message closes the connection.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		slog.Debug("overlay: accept failed", "remote", r.RemoteAddr, "err", err)
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, h.queueSize),
		gone: make(chan struct{}),
	}
	if !h.register(c) {
		conn.Close(websocket.StatusGoingAway, "shutting down")
		return
	}
	defer h.unregister(c)

	ctx := conn.CloseRead(r.Context())
	reason := h.writeLoop(ctx, c)
	conn.Close(reason.code, reason.text)
}

type closeReason struct {
	code websocket.StatusCode
	text string
}

func (h *Hub) writeLoop(ctx context.Context, c *client) closeReason {
	for {
		select {
		case <-ctx.Done():
			return closeReason{websocket.StatusNormalClosure, ""}
		case <-c.gone:
			return closeReason{websocket.StatusPolicyViolation, "too slow"}
		case msg, ok := <-c.send:
			if !ok {
				return closeReason{websocket.StatusGoingAway, "shutting down"}
			}
			wctx, cancel := context.WithTimeout(ctx, h.writeTimeout)
			err := c.conn.Write(wctx, websocket.MessageText, msg)
			cancel()
			if err != nil {
				slog.Debug("overlay: write failed", "err", err)
				return closeReason{websocket.StatusInternalError, "write failed"}
			}
		}
	}
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	if h.lastEntry != nil {
		c.send <- h.lastEntry
	}
	h.clients[c] = struct{}{}
	h.metrics.OverlayClients.Add(context.Background(), 1)
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	h.metrics.OverlayClients.Add(context.Background(), -1)
}

// Close disconnects every client and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for c := range h.clients {
		close(c.send)
	}
}
