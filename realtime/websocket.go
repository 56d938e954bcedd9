package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/craterhq/crater-go/logging"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ErrNotConnected reports an Emit attempted without an established link.
var ErrNotConnected = errors.New("socket not connected")

// errSuperseded stops a reconnect loop whose connection generation an
// explicit Connect has since replaced.
var errSuperseded = errors.New("connection superseded")

// TokenFunc resolves the connection-time credential. Called on every dial so
// reconnects pick up refreshed tokens.
type TokenFunc func(ctx context.Context) (string, error)

// envelope is the wire frame: every message carries an event name and a
// payload.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type outEnvelope struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// WebSocket is the gorilla-backed Socket implementation with automatic
// reconnection under exponential backoff.
type WebSocket struct {
	url        string
	dialer     *websocket.Dialer
	token      TokenFunc
	logger     logging.Logger
	ackTimeout time.Duration
	maxRetry   time.Duration

	mu       sync.RWMutex
	conn     *websocket.Conn
	closed   bool
	gen      uint64
	handlers map[string]map[string]func(json.RawMessage)

	// gorilla connections allow one concurrent writer only
	writeMu sync.Mutex
}

type WebSocketOption func(*WebSocket)

func WithDialer(d *websocket.Dialer) WebSocketOption {
	return func(w *WebSocket) { w.dialer = d }
}

func WithSocketLogger(l logging.Logger) WebSocketOption {
	return func(w *WebSocket) { w.logger = l }
}

// WithMaxRetryElapsed bounds how long the reconnect loop keeps trying before
// it gives up and reports a disconnect.
func WithMaxRetryElapsed(d time.Duration) WebSocketOption {
	return func(w *WebSocket) { w.maxRetry = d }
}

func NewWebSocket(url string, token TokenFunc, opts ...WebSocketOption) *WebSocket {
	w := &WebSocket{
		url:        url,
		dialer:     websocket.DefaultDialer,
		token:      token,
		logger:     logging.Discard(),
		ackTimeout: 10 * time.Second,
		maxRetry:   2 * time.Minute,
		handlers:   make(map[string]map[string]func(json.RawMessage)),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Connect dials, waits for the server acknowledgment frame, and starts the
// read pump. It bumps the connection generation, superseding any reconnect
// loop still retrying for the previous one; an existing connection is closed
// so at most one live connection ever feeds the handler table.
func (w *WebSocket) Connect(ctx context.Context) error {
	conn, err := w.dial(ctx)
	if err != nil {
		return err
	}

	w.mu.Lock()
	old := w.conn
	w.gen++
	w.conn = conn
	w.closed = false
	w.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}
	go w.readPump(conn)
	w.dispatch(EventConnected, nil)
	return nil
}

func (w *WebSocket) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	if w.token != nil {
		token, err := w.token(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve connection credential: %w", err)
		}
		if token != "" {
			header.Set("Authorization", "Bearer "+token)
		}
	}

	conn, resp, err := w.dialer.DialContext(ctx, w.url, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", w.url, err)
	}

	// The server confirms the handshake with a "connected" frame before any
	// event traffic.
	deadline := time.Now().Add(w.ackTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetReadDeadline(deadline)
	var ack envelope
	if err := conn.ReadJSON(&ack); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to read connection acknowledgment: %w", err)
	}
	if ack.Event != EventConnected {
		_ = conn.Close()
		return nil, fmt.Errorf("unexpected acknowledgment event %q", ack.Event)
	}
	_ = conn.SetReadDeadline(time.Time{})
	return conn, nil
}

func (w *WebSocket) readPump(conn *websocket.Conn) {
	for {
		var env envelope
		if err := conn.ReadJSON(&env); err != nil {
			w.mu.RLock()
			stale := w.closed || w.conn != conn
			gen := w.gen
			w.mu.RUnlock()
			if stale {
				// Explicitly closed, or this connection was already
				// replaced; the replacement owns the link.
				return
			}
			w.logger.Warn(context.Background(), "socket read failed, reconnecting", "error", err)
			w.dispatch(EventReconnecting, nil)
			w.reconnectLoop(gen)
			return
		}
		w.dispatch(env.Event, env.Data)
	}
}

// reconnectLoop re-dials on behalf of the connection generation it was
// started for. An explicit Connect bumps the generation and supersedes the
// loop: a dial the loop has already won is closed instead of installed, so
// two live connections can never feed the handler table at once.
func (w *WebSocket) reconnectLoop(gen uint64) {
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = w.maxRetry

	err := backoff.Retry(func() error {
		if w.superseded(gen) {
			return backoff.Permanent(errSuperseded)
		}

		ctx, cancel := context.WithTimeout(context.Background(), w.ackTimeout)
		defer cancel()
		conn, err := w.dial(ctx)
		if err != nil {
			return err
		}

		w.mu.Lock()
		if w.closed || w.gen != gen {
			w.mu.Unlock()
			_ = conn.Close()
			return backoff.Permanent(errSuperseded)
		}
		w.conn = conn
		w.mu.Unlock()
		go w.readPump(conn)
		return nil
	}, policy)

	if errors.Is(err, errSuperseded) {
		return
	}
	if err != nil {
		if w.superseded(gen) {
			return
		}
		w.logger.Error(context.Background(), "reconnect attempts exhausted", "error", err)
		w.dispatch(EventDisconnected, nil)
		return
	}
	w.dispatch(EventReconnected, nil)
}

// superseded reports whether the socket was closed or the given connection
// generation has been replaced by an explicit Connect.
func (w *WebSocket) superseded(gen uint64) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.closed || w.gen != gen
}

// Disconnect closes the link. The read pump observes the closed flag and
// exits without reporting a transport disconnect.
func (w *WebSocket) Disconnect() error {
	w.mu.Lock()
	conn := w.conn
	w.conn = nil
	w.closed = true
	w.mu.Unlock()

	if conn == nil {
		return nil
	}
	w.writeMu.Lock()
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	w.writeMu.Unlock()
	return conn.Close()
}

func (w *WebSocket) Emit(event string, data any) error {
	w.mu.RLock()
	conn := w.conn
	w.mu.RUnlock()
	if conn == nil {
		return ErrNotConnected
	}

	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	return conn.WriteJSON(outEnvelope{Event: event, Data: data})
}

func (w *WebSocket) On(event string, handler func(data json.RawMessage)) func() {
	id := uuid.NewString()
	w.mu.Lock()
	if w.handlers[event] == nil {
		w.handlers[event] = make(map[string]func(json.RawMessage))
	}
	w.handlers[event][id] = handler
	w.mu.Unlock()

	return func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		if hs, ok := w.handlers[event]; ok {
			delete(hs, id)
			if len(hs) == 0 {
				delete(w.handlers, event)
			}
		}
	}
}

// dispatch invokes the handlers registered for event on a snapshot, so a
// handler detaching itself mid-dispatch cannot skip its siblings. A panic in
// one handler never reaches the read pump.
func (w *WebSocket) dispatch(event string, data json.RawMessage) {
	w.mu.RLock()
	snapshot := make([]func(json.RawMessage), 0, len(w.handlers[event]))
	for _, h := range w.handlers[event] {
		snapshot = append(snapshot, h)
	}
	w.mu.RUnlock()

	for _, h := range snapshot {
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					w.logger.Error(context.Background(), "socket handler panicked", "event", event, "panic", rec)
				}
			}()
			h(data)
		}()
	}
}

var _ Socket = (*WebSocket)(nil)
