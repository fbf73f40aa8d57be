package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rcp-bridge/rcp"
	"rcp-bridge/rcp/network"
)

// fakeTransport records outbound frames and lets tests inject inbound
// frames and failures through the registered handlers.
type fakeTransport struct {
	mu          sync.Mutex
	handlers    network.Handlers
	sent        [][]byte
	closed      bool
	connectErr  error
	connectedCh chan struct{}
}

func (t *fakeTransport) Connect() error {
	if t.connectErr != nil {
		return t.connectErr
	}
	close(t.connectedCh)
	return nil
}

func (t *fakeTransport) Send(data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	frame := make([]byte, len(data))
	copy(frame, data)
	t.sent = append(t.sent, frame)
	return nil
}

func (t *fakeTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

func (t *fakeTransport) sentTypes() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	types := make([]string, 0, len(t.sent))
	for _, frame := range t.sent {
		var msg struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(frame, &msg); err != nil {
			types = append(types, "raw")
			continue
		}
		types = append(types, msg.Type)
	}
	return types
}

func (t *fakeTransport) sentCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sent)
}

func (t *fakeTransport) sentFrames() [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	frames := make([][]byte, len(t.sent))
	copy(frames, t.sent)
	return frames
}

func (t *fakeTransport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// fakeDialer hands out one fakeTransport per connection attempt.
type fakeDialer struct {
	mu         sync.Mutex
	transports []*fakeTransport
	connectErr error
}

func (d *fakeDialer) dial(addr string, handlers network.Handlers) network.Transport {
	d.mu.Lock()
	defer d.mu.Unlock()

	t := &fakeTransport{
		handlers:    handlers,
		connectErr:  d.connectErr,
		connectedCh: make(chan struct{}),
	}
	d.transports = append(d.transports, t)
	return t
}

func (d *fakeDialer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.transports)
}

func (d *fakeDialer) last() *fakeTransport {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.transports) == 0 {
		return nil
	}
	return d.transports[len(d.transports)-1]
}

func newTestHandler(t *testing.T, host string, dialer *fakeDialer) *CameraHandler {
	return newTestHandlerPoll(t, host, dialer, 20*time.Millisecond)
}

func newTestHandlerPoll(t *testing.T, host string, dialer *fakeDialer, poll time.Duration) *CameraHandler {
	t.Helper()

	h := NewCameraHandler(context.Background(), CameraHandlerOptions{
		Host:           host,
		PollInterval:   poll,
		ReconnectDelay: 50 * time.Millisecond,
		Dialer:         dialer.dial,
	})
	h.StartMainLoop()
	t.Cleanup(func() { _ = h.Close() })

	// Attach and drain so notification delivery is exercised.
	go func() {
		for range h.Notifications() {
		}
	}()

	return h
}

// barrier waits until the session loop has processed everything posted before
// the call.
func (h *CameraHandler) barrier() {
	done := make(chan struct{})
	h.post(func() { close(done) })
	<-done
}

func waitForState(t *testing.T, h *CameraHandler, want ConnectionState) {
	t.Helper()
	require.Eventually(t, func() bool {
		state, _ := h.State()
		return state == want
	}, time.Second, time.Millisecond, "expected state %v", want)
}

func TestConnectLifecycle(t *testing.T) {
	dialer := &fakeDialer{}
	h := newTestHandler(t, "10.0.0.5", dialer)

	h.Connect()
	waitForState(t, h, Connected)

	transport := dialer.last()
	require.NotNil(t, transport)

	// Entry to Connected sends the handshake exactly once, then one full
	// re-query (one rcp_get per tracked parameter).
	require.Eventually(t, func() bool {
		return transport.sentCount() >= 1+len(rcp.TrackedParams)
	}, time.Second, time.Millisecond)

	types := transport.sentTypes()
	assert.Equal(t, "rcp_config", types[0])
	for i := 0; i < len(rcp.TrackedParams); i++ {
		assert.Equal(t, "rcp_get", types[1+i])
	}
	assert.Equal(t, 1, countOf(types, "rcp_config"), "handshake must be sent exactly once")

	// The poll ticker repeats the full re-query.
	require.Eventually(t, func() bool {
		return transport.sentCount() >= 1+2*len(rcp.TrackedParams)
	}, time.Second, time.Millisecond, "expected a second re-query cycle")
	assert.Equal(t, 1, countOf(transport.sentTypes(), "rcp_config"))
}

func TestConnectWithoutHostFailsWithoutDialing(t *testing.T) {
	dialer := &fakeDialer{}
	h := newTestHandler(t, "   ", dialer)

	h.Connect()
	waitForState(t, h, Failed)

	_, status := h.State()
	assert.Contains(t, status, "not configured")
	assert.Zero(t, dialer.count(), "a configuration error must not dial")

	// Configuration errors do not retry until reconfiguration.
	time.Sleep(120 * time.Millisecond)
	assert.Zero(t, dialer.count())

	h.Reconfigure("10.0.0.5")
	waitForState(t, h, Connected)
	assert.Equal(t, 1, dialer.count())
}

func TestTransportErrorSchedulesSingleReconnect(t *testing.T) {
	dialer := &fakeDialer{}
	h := newTestHandler(t, "10.0.0.5", dialer)

	h.Connect()
	waitForState(t, h, Connected)
	first := dialer.last()

	// A burst of failure events must collapse into one pending reconnect.
	first.handlers.OnError(fmt.Errorf("read tcp: connection reset"))
	first.handlers.OnError(fmt.Errorf("read tcp: connection reset"))
	first.handlers.OnClosed()

	waitForState(t, h, Failed)
	h.barrier()
	assert.True(t, first.isClosed())
	assert.Equal(t, 1, dialer.count(), "no dial before the delay elapses")

	waitForState(t, h, Connected)
	assert.Equal(t, 2, dialer.count(), "exactly one reconnect attempt")

	// Give any duplicate timer a chance to fire wrongly.
	time.Sleep(120 * time.Millisecond)
	assert.Equal(t, 2, dialer.count())
}

func TestReconfigureCancelsTimersAndSupersedesTransport(t *testing.T) {
	dialer := &fakeDialer{}
	h := newTestHandler(t, "10.0.0.5", dialer)

	h.Connect()
	waitForState(t, h, Connected)
	first := dialer.last()

	h.Reconfigure("10.0.0.6")
	waitForState(t, h, Connected)
	h.barrier()

	require.Equal(t, 2, dialer.count())
	assert.True(t, first.isClosed(), "reconfigure must tear down the old transport")

	// Late events from the superseded transport must be ignored.
	second := dialer.last()
	first.handlers.OnError(fmt.Errorf("stale"))
	h.barrier()

	state, _ := h.State()
	assert.Equal(t, Connected, state)
	assert.Equal(t, 2, dialer.count(), "stale events must not trigger reconnects")
	assert.False(t, second.isClosed())
}

func TestInboundUpdateWritesStore(t *testing.T) {
	dialer := &fakeDialer{}
	h := newTestHandler(t, "10.0.0.5", dialer)

	h.Connect()
	waitForState(t, h, Connected)
	transport := dialer.last()

	transport.handlers.OnFrame([]byte(`{"type":"rcp_cur_int_edit_info","id":"RCP_PARAM_SENSOR_FRAME_RATE","cur":{"val":2400},"divider":100,"digits":2}`))
	h.barrier()
	assert.Equal(t, "24.00 FPS", h.Value("fps"))

	// Re-query idempotence: the same response yields the same value.
	transport.handlers.OnFrame([]byte(`{"type":"rcp_cur_int_edit_info","id":"RCP_PARAM_SENSOR_FRAME_RATE","cur":{"val":2400},"divider":100,"digits":2}`))
	h.barrier()
	assert.Equal(t, "24.00 FPS", h.Value("fps"))

	// Malformed frames and foreign message types are dropped without
	// touching the store or the connection.
	transport.handlers.OnFrame([]byte(`{"type":`))
	transport.handlers.OnFrame([]byte(`{"type":"rcp_notify","id":"RCP_PARAM_SENSOR_FRAME_RATE","cur":{"val":1}}`))
	transport.handlers.OnFrame([]byte(`{"type":"rcp_cur_int","id":"RCP_PARAM_SENSOR_FRAME_RATE","cur":{"val":1}}`))
	h.barrier()

	state, _ := h.State()
	assert.Equal(t, Connected, state)
	assert.Equal(t, "24.00 FPS", h.Value("fps"))
}

func TestCommandsWhileDisconnectedAreDropped(t *testing.T) {
	dialer := &fakeDialer{}
	h := newTestHandler(t, "10.0.0.5", dialer)

	// Never connected: every command is a silent no-op.
	h.SetISO("800")
	h.StartRecording()
	h.SendRaw(`{"type":"rcp_get","id":"RCP_PARAM_ISO"}`)
	h.barrier()

	assert.Zero(t, dialer.count())
}

func TestStructuredCommands(t *testing.T) {
	dialer := &fakeDialer{}
	// Poll interval beyond the test horizon: no re-query tick can interleave
	// its rcp_get frames into the command window.
	h := newTestHandlerPoll(t, "10.0.0.5", dialer, time.Hour)

	h.Connect()
	waitForState(t, h, Connected)
	transport := dialer.last()
	h.barrier()
	base := transport.sentCount()

	h.SetISO("800")
	h.SetFrameRate("23.98")
	h.StartRecording()
	h.StopRecording()
	h.barrier()

	sent := transport.sentFrames()[base:]
	require.Len(t, sent, 4)
	assert.JSONEq(t, `{"type":"rcp_set","id":"RCP_PARAM_ISO","value":800}`, string(sent[0]))
	assert.JSONEq(t, `{"type":"rcp_set","id":"RCP_PARAM_SENSOR_FRAME_RATE","value":23976}`, string(sent[1]))
	assert.JSONEq(t, `{"type":"rcp_set","id":"RCP_PARAM_RECORD_STATE","value":1}`, string(sent[2]))
	assert.JSONEq(t, `{"type":"rcp_set","id":"RCP_PARAM_RECORD_STATE","value":0}`, string(sent[3]))

	// A value outside the enumeration is rejected before the wire.
	h.SetISO("999")
	h.barrier()
	assert.Equal(t, base+4, transport.sentCount())

	// Raw payloads bypass structuring entirely.
	h.SendRaw(`{"type":"rcp_get","id":"RCP_PARAM_ISO"} `)
	h.barrier()
	frames := transport.sentFrames()
	require.Len(t, frames, base+5)
	assert.Equal(t, `{"type":"rcp_get","id":"RCP_PARAM_ISO"} `, string(frames[base+4]))
}

func TestNotificationsDiscardedUntilConsumerAttaches(t *testing.T) {
	dialer := &fakeDialer{}
	h := NewCameraHandler(context.Background(), CameraHandlerOptions{
		Host:           "10.0.0.5",
		PollInterval:   time.Hour,
		ReconnectDelay: 50 * time.Millisecond,
		Dialer:         dialer.dial,
	})
	h.StartMainLoop()
	t.Cleanup(func() { _ = h.Close() })

	h.Connect()
	waitForState(t, h, Connected)
	transport := dialer.last()

	// Far more publishes than the buffer holds, with nobody consuming. The
	// session must keep processing and the buffer must stay empty.
	for i := 0; i < 3*notificationBuffer; i++ {
		frame := fmt.Sprintf(`{"type":"rcp_cur_int","id":"RCP_PARAM_ISO","cur":{"val":%d}}`, 250+i)
		transport.handlers.OnFrame([]byte(frame))
	}
	h.barrier()

	assert.Equal(t, fmt.Sprintf("%d", 250+3*notificationBuffer-1), h.Value("iso"))
	assert.Zero(t, len(h.notifications), "unattached publishes must be discarded, not buffered")

	// Once a consumer attaches, delivery starts.
	ch := h.Notifications()
	h.Subscribe("fb-1", "iso", "")
	require.Eventually(t, func() bool {
		select {
		case n := <-ch:
			return n.Type == VariableChanged && n.Variable == "iso"
		default:
			return false
		}
	}, time.Second, time.Millisecond)
}

func TestCloseEndsDisconnected(t *testing.T) {
	dialer := &fakeDialer{}
	h := NewCameraHandler(context.Background(), CameraHandlerOptions{
		Host:           "10.0.0.5",
		PollInterval:   20 * time.Millisecond,
		ReconnectDelay: 50 * time.Millisecond,
		Dialer:         dialer.dial,
	})
	h.StartMainLoop()
	go func() {
		for range h.Notifications() {
		}
	}()

	h.Connect()
	waitForState(t, h, Connected)

	require.NoError(t, h.Close())

	state, _ := h.State()
	assert.Equal(t, Disconnected, state)
	assert.True(t, dialer.last().isClosed())
}

func countOf(values []string, want string) int {
	n := 0
	for _, v := range values {
		if v == want {
			n++
		}
	}
	return n
}
