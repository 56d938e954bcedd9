package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/craterhq/crater-go/logging"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// State of the connection lifecycle.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "disconnected"
	}
}

// Conn owns the realtime transport handle and its lifecycle, and hosts the
// subscription and execution registries. Connection-state listeners are
// notified on every transition into Connected or Disconnected; the
// intermediate Connecting/Reconnecting states are observable through State()
// only.
type Conn struct {
	sock   Socket
	logger logging.Logger

	group singleflight.Group
	state atomic.Int32

	mu        sync.Mutex
	listeners map[string]func(connected bool)

	subs  *SubscriptionRegistry
	execs *ExecutionRegistry

	offs []func()
}

func NewConn(sock Socket, logger logging.Logger) *Conn {
	if logger == nil {
		logger = logging.Discard()
	}
	c := &Conn{
		sock:      sock,
		logger:    logger,
		listeners: make(map[string]func(bool)),
	}
	c.subs = newSubscriptionRegistry(sock, c.IsConnected, logger)
	c.execs = newExecutionRegistry(sock, c.IsConnected, logger)

	c.offs = append(c.offs,
		sock.On(EventReconnecting, func(json.RawMessage) {
			c.state.Store(int32(StateReconnecting))
		}),
		// A reconnect without replay silently drops every live
		// subscription; the replay is part of the transition itself.
		sock.On(EventReconnected, func(json.RawMessage) {
			c.state.Store(int32(StateConnected))
			c.subs.replayAll(context.Background())
			c.notify(true)
		}),
		sock.On(EventDisconnected, func(json.RawMessage) {
			// Transport gave up. Registrations stay so a later Connect can
			// replay them.
			if State(c.state.Swap(int32(StateDisconnected))) != StateDisconnected {
				c.notify(false)
			}
		}),
	)
	return c
}

// Connect establishes the transport link. A no-op when already connected or
// while the transport's own reconnect loop is retrying — the retry is the
// outstanding attempt, and its outcome arrives through connection-state
// events. Concurrent callers while an attempt is outstanding share its
// outcome.
func (c *Conn) Connect(ctx context.Context) error {
	if s := c.State(); s == StateConnected || s == StateReconnecting {
		return nil
	}
	_, err, _ := c.group.Do("connect", func() (any, error) {
		switch c.State() {
		case StateConnected, StateReconnecting:
			return nil, nil
		}
		c.state.Store(int32(StateConnecting))
		if err := c.sock.Connect(ctx); err != nil {
			c.state.Store(int32(StateDisconnected))
			return nil, err
		}
		c.state.Store(int32(StateConnected))
		// Collections registered before the first connect have never sent
		// their subscribe intent; replay covers them the same way it covers
		// a reconnect.
		c.subs.replayAll(ctx)
		c.notify(true)
		return nil, nil
	})
	return err
}

// Disconnect tears down the transport and intentionally drops all
// registrations. This is the only path that clears the registries.
func (c *Conn) Disconnect() error {
	err := c.sock.Disconnect()
	c.subs.clear()
	c.execs.clear()
	if State(c.state.Swap(int32(StateDisconnected))) != StateDisconnected {
		c.notify(false)
	}
	return err
}

func (c *Conn) State() State {
	return State(c.state.Load())
}

func (c *Conn) IsConnected() bool {
	return c.State() == StateConnected
}

// OnConnectionChange registers a listener for transitions into Connected
// (true) or Disconnected (false) and returns its removal function.
func (c *Conn) OnConnectionChange(fn func(connected bool)) func() {
	id := uuid.NewString()
	c.mu.Lock()
	c.listeners[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// Subscribe registers a callback for a collection's events. See
// SubscriptionRegistry.Subscribe.
func (c *Conn) Subscribe(collection string, cb EventHandler) func() {
	return c.subs.Subscribe(collection, cb)
}

// SubscribeToExecution registers a callback for a workflow execution's
// progress and completion events. The room join is fire-and-forget and is
// not replayed after a reconnect: executions are short-lived and the server
// garbage-collects their rooms on disconnect. Callers that must survive a
// reconnect window should re-join from an OnConnectionChange listener.
func (c *Conn) SubscribeToExecution(executionID string, cb ExecutionHandler) func() {
	return c.execs.Subscribe(executionID, cb)
}

func (c *Conn) notify(connected bool) {
	c.mu.Lock()
	snapshot := make([]func(bool), 0, len(c.listeners))
	for _, fn := range c.listeners {
		snapshot = append(snapshot, fn)
	}
	c.mu.Unlock()
	for _, fn := range snapshot {
		fn(connected)
	}
}
