package handler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"rcp-bridge/rcp/network"
)

const (
	// DefaultPollInterval is the fixed period of the full re-query while
	// Connected.
	DefaultPollInterval = 1 * time.Second

	// DefaultReconnectDelay is the fixed delay before a reconnect attempt
	// after a transport failure.
	DefaultReconnectDelay = 5 * time.Second

	notificationBuffer = 64
	eventBuffer        = 64
)

// CameraHandlerOptions configures a CameraHandler.
type CameraHandlerOptions struct {
	// Host is the camera address. Required by the time Connect is called;
	// an empty host puts the handler into the Failed state with a
	// configuration-error status instead of dialing.
	Host string

	// ClientName and ClientVersion identify this bridge in the rcp_config
	// handshake.
	ClientName    string
	ClientVersion string

	PollInterval   time.Duration
	ReconnectDelay time.Duration

	// Dialer creates the transport for each connection attempt. Defaults to
	// the TCP transport; tests inject fakes here.
	Dialer network.Dialer
}

// CameraHandler owns the camera link: one transport, at most two timers, the
// variable store and the subscription registry. All lifecycle transitions and
// inbound processing run on a single session goroutine; external calls are
// serialized onto it through the event channel.
type CameraHandler struct {
	ctx    context.Context
	cancel context.CancelFunc
	opts   CameraHandlerOptions

	store *VariableStore
	subs  *Subscriptions

	// notifications delivers store publishes and state transitions to the
	// consumer attached via Notifications. Sends never block the session;
	// with no consumer attached, publishes are discarded.
	notifications chan Notification
	attached      atomic.Bool

	events chan event
	doneCh chan struct{}

	// session-goroutine state
	transport      network.Transport
	gen            int
	pollTicker     *time.Ticker
	reconnectTimer *time.Timer

	stateMu sync.RWMutex
	state   ConnectionState
	status  string

	started atomic.Bool
}

// NewCameraHandler creates a handler in the Disconnected state. Call
// StartMainLoop and then Connect to bring the link up.
func NewCameraHandler(ctx context.Context, opts CameraHandlerOptions) *CameraHandler {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = DefaultReconnectDelay
	}
	if opts.Dialer == nil {
		opts.Dialer = network.NewTCPTransport
	}
	if opts.ClientName == "" {
		opts.ClientName = "rcp-bridge"
	}
	if opts.ClientVersion == "" {
		opts.ClientVersion = "1.0.0"
	}

	handlerCtx, cancel := context.WithCancel(ctx)
	return &CameraHandler{
		ctx:            handlerCtx,
		cancel:         cancel,
		opts:           opts,
		store:          NewVariableStore(),
		subs:           NewSubscriptions(),
		notifications:  make(chan Notification, notificationBuffer),
		events:         make(chan event, eventBuffer),
		doneCh:         make(chan struct{}),
		state:          Disconnected,
	}
}

// StartMainLoop starts the session goroutine.
func (h *CameraHandler) StartMainLoop() {
	if h.started.Swap(true) {
		return
	}
	go h.run()
}

// Connect tears down any existing transport, cancels pending timers, and
// opens a new connection. Safe to call from any goroutine and in any state.
func (h *CameraHandler) Connect() {
	h.post(func() { h.connect() })
}

// Reconfigure replaces the camera host and reconnects.
func (h *CameraHandler) Reconfigure(host string) {
	h.post(func() {
		h.opts.Host = host
		h.connect()
	})
}

// Close shuts the handler down: cancels both timers, closes the transport and
// ends in the Disconnected state. It waits for the session goroutine to exit.
func (h *CameraHandler) Close() error {
	h.cancel()
	if h.started.Load() {
		<-h.doneCh
	}
	return nil
}

// State returns the connection state and, for Failed, the failure status.
// Notifications hands the notification stream to a consumer. Until it is
// called, publishes are discarded so a handler with no observer attached can
// run indefinitely without filling the buffer.
func (h *CameraHandler) Notifications() <-chan Notification {
	h.attached.Store(true)
	return h.notifications
}

func (h *CameraHandler) State() (ConnectionState, string) {
	h.stateMu.RLock()
	defer h.stateMu.RUnlock()
	return h.state, h.status
}

// Variables returns a snapshot of all tracked variables.
func (h *CameraHandler) Variables() map[string]string {
	return h.store.Snapshot()
}

// Value returns the current value of one variable.
func (h *CameraHandler) Value(name string) string {
	return h.store.Get(name)
}

// Subscribe registers an observer interest keyed by an opaque id. After
// startup the current value of the variable is republished so a late
// subscriber sees the present state.
func (h *CameraHandler) Subscribe(id, variable, subPath string) {
	h.subs.Register(id, Subscription{Variable: variable, SubPath: subPath})
	if h.started.Load() {
		h.notify(Notification{Type: VariableChanged, Variable: variable, Value: h.store.Get(variable)})
	}
}

// Unsubscribe removes the subscription for id.
func (h *CameraHandler) Unsubscribe(id string) {
	h.subs.Unregister(id)
}

// SubscriptionList returns a copy of the active subscriptions.
func (h *CameraHandler) SubscriptionList() map[string]Subscription {
	return h.subs.List()
}

// post serializes do onto the session goroutine.
func (h *CameraHandler) post(do func()) {
	select {
	case h.events <- event{kind: evDo, do: do}:
	case <-h.ctx.Done():
	}
}

// postTransportEvent delivers a transport callback into the session loop.
// Called from transport read goroutines.
func (h *CameraHandler) postTransportEvent(ev event) {
	select {
	case h.events <- ev:
	case <-h.ctx.Done():
	}
}
