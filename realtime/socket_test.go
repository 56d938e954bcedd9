package realtime

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
)

// fakeSocket is an in-memory Socket for exercising the state machine and the
// registries without a network. Tests drive inbound traffic through fire.
type fakeSocket struct {
	mu           sync.Mutex
	connectErr   error
	connectCalls int
	emitted      []emittedEvent
	handlers     map[string]map[string]func(json.RawMessage)
	nextID       int
}

type emittedEvent struct {
	event string
	data  any
}

func newFakeSocket() *fakeSocket {
	return &fakeSocket{handlers: make(map[string]map[string]func(json.RawMessage))}
}

func (f *fakeSocket) Connect(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connectCalls++
	return f.connectErr
}

func (f *fakeSocket) Disconnect() error {
	return nil
}

func (f *fakeSocket) Emit(event string, data any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emitted = append(f.emitted, emittedEvent{event: event, data: data})
	return nil
}

func (f *fakeSocket) On(event string, handler func(data json.RawMessage)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := strconv.Itoa(f.nextID)
	if f.handlers[event] == nil {
		f.handlers[event] = make(map[string]func(json.RawMessage))
	}
	f.handlers[event][id] = handler
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.handlers[event], id)
	}
}

// fire delivers one inbound event to the registered handlers, like the read
// pump would.
func (f *fakeSocket) fire(event string, data json.RawMessage) {
	f.mu.Lock()
	snapshot := make([]func(json.RawMessage), 0, len(f.handlers[event]))
	for _, h := range f.handlers[event] {
		snapshot = append(snapshot, h)
	}
	f.mu.Unlock()
	for _, h := range snapshot {
		h(data)
	}
}

// emittedNamed returns the payloads of every emitted event with the given
// name, in order.
func (f *fakeSocket) emittedNamed(event string) []any {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []any
	for _, e := range f.emitted {
		if e.event == event {
			out = append(out, e.data)
		}
	}
	return out
}

var _ Socket = (*fakeSocket)(nil)
