package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craterhq/crater-go/logging"
)

func newTestExecutions(sock *fakeSocket, connected bool) *ExecutionRegistry {
	return newExecutionRegistry(sock, func() bool { return connected }, logging.Discard())
}

func TestExecutionRegistry_JoinsRoomOncePerExecution(t *testing.T) {
	sock := newFakeSocket()
	r := newTestExecutions(sock, true)

	r.Subscribe("exec-1", func(ExecutionEvent) {})
	r.Subscribe("exec-1", func(ExecutionEvent) {})

	joins := sock.emittedNamed("workflow:execution:join")
	require.Len(t, joins, 1, "one join per execution, not per callback")
	assert.Equal(t, map[string]string{"executionId": "exec-1"}, joins[0])
}

func TestExecutionRegistry_NoJoinWithoutLink(t *testing.T) {
	sock := newFakeSocket()
	r := newTestExecutions(sock, false)

	r.Subscribe("exec-1", func(ExecutionEvent) {})

	assert.Empty(t, sock.emittedNamed("workflow:execution:join"))
}

func TestExecutionRegistry_RoutesByExecutionID(t *testing.T) {
	sock := newFakeSocket()
	r := newTestExecutions(sock, true)

	var got []ExecutionEvent
	r.Subscribe("exec-1", func(e ExecutionEvent) { got = append(got, e) })
	r.Subscribe("exec-2", func(ExecutionEvent) { t.Error("event delivered to the wrong execution") })

	sock.fire(eventExecutionUpdate, []byte(`{"executionId":"exec-1","status":"running","progress":0.5}`))

	require.Len(t, got, 1)
	assert.Equal(t, "running", got[0].Status)
	assert.Equal(t, 0.5, got[0].Progress)
}

func TestExecutionRegistry_CompletionWithoutStatusGetsCompleted(t *testing.T) {
	sock := newFakeSocket()
	r := newTestExecutions(sock, true)

	var got []ExecutionEvent
	r.Subscribe("exec-1", func(e ExecutionEvent) { got = append(got, e) })

	sock.fire(eventExecutionComplete, []byte(`{"executionId":"exec-1","result":{"rows":3}}`))

	require.Len(t, got, 1)
	assert.Equal(t, StatusCompleted, got[0].Status)
	assert.JSONEq(t, `{"rows":3}`, string(got[0].Result))
}

func TestExecutionRegistry_CompletionKeepsExplicitStatus(t *testing.T) {
	sock := newFakeSocket()
	r := newTestExecutions(sock, true)

	var got []ExecutionEvent
	r.Subscribe("exec-1", func(e ExecutionEvent) { got = append(got, e) })

	sock.fire(eventExecutionComplete, []byte(`{"executionId":"exec-1","status":"failed","error":"node timed out"}`))

	require.Len(t, got, 1)
	assert.Equal(t, "failed", got[0].Status)
	assert.Equal(t, "node timed out", got[0].Error)
}

func TestExecutionRegistry_RemovalSendsNoMessage(t *testing.T) {
	sock := newFakeSocket()
	r := newTestExecutions(sock, true)

	var delivered int
	off := r.Subscribe("exec-1", func(ExecutionEvent) { delivered++ })
	off()

	sock.fire(eventExecutionUpdate, []byte(`{"executionId":"exec-1","status":"running"}`))

	assert.Zero(t, delivered)
	// The server garbage-collects execution rooms; the client never sends a
	// leave message.
	assert.Len(t, sock.emitted, 1, "only the join was sent")
}
