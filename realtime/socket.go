// Package realtime keeps a set of live collection subscriptions synchronized
// with the backend across connect/disconnect/reconnect cycles.
//
// The transport-layer primitive is the Socket interface; the gorilla-backed
// implementation lives in websocket.go. The Conn state machine owns the
// Socket and its lifecycle; the subscription and execution registries own
// their listener handles on it.
package realtime

import (
	"context"
	"encoding/json"
)

// Reserved lifecycle event names delivered through Socket.On. They share the
// handler namespace with server events but never collide: server events are
// either "{collection}:{action}" or "workflow:execution:*".
const (
	// EventConnected fires once the server acknowledges a fresh dial.
	EventConnected = "connected"

	// EventReconnecting fires when the transport lost its link and started
	// its retry loop.
	EventReconnecting = "reconnecting"

	// EventReconnected fires when the retry loop re-established the link.
	EventReconnected = "reconnected"

	// EventDisconnected fires when the transport gave up reconnecting. It is
	// not fired on explicit Disconnect; the state machine handles that path
	// itself.
	EventDisconnected = "disconnected"
)

// Socket is the transport-layer primitive carrying realtime events.
type Socket interface {
	// Connect dials the server with the current connection-time credential
	// and waits for the acknowledgment event before returning.
	Connect(ctx context.Context) error

	// Disconnect tears the link down and stops any reconnect attempt.
	Disconnect() error

	// Emit sends one named event with a JSON payload.
	Emit(event string, data any) error

	// On registers a handler for a named event and returns its detach
	// function. Handlers survive reconnects; detaching is the only way to
	// remove one.
	On(event string, handler func(data json.RawMessage)) (off func())
}
