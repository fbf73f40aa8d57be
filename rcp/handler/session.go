package handler

import (
	"encoding/json"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"rcp-bridge/rcp"
	"rcp-bridge/rcp/network"
)

// The session loop. Every lifecycle transition, timer firing, inbound frame
// and outbound command executes here as one non-overlapping step.

func (h *CameraHandler) run() {
	defer close(h.doneCh)

	for {
		var pollC, reconnectC <-chan time.Time
		if h.pollTicker != nil {
			pollC = h.pollTicker.C
		}
		if h.reconnectTimer != nil {
			reconnectC = h.reconnectTimer.C
		}

		select {
		case <-h.ctx.Done():
			h.teardown()
			h.setState(Disconnected, "")
			return

		case ev := <-h.events:
			h.handleEvent(ev)

		case <-pollC:
			h.requery()

		case <-reconnectC:
			h.reconnectTimer = nil
			slog.Info("Reconnect delay elapsed, retrying", "host", h.opts.Host)
			h.connect()
		}
	}
}

func (h *CameraHandler) handleEvent(ev event) {
	switch ev.kind {
	case evDo:
		ev.do()

	case evFrame:
		if ev.gen != h.gen {
			return
		}
		h.handleFrame(ev.frame)

	case evError:
		if ev.gen != h.gen {
			return
		}
		h.handleFailure(ev.err.Error())

	case evClosed:
		if ev.gen != h.gen {
			return
		}
		h.handleFailure("connection closed unexpectedly")
	}
}

// connect tears down the current session and opens a fresh transport. With no
// host configured it ends in Failed with a configuration-error status and
// does not dial.
func (h *CameraHandler) connect() {
	h.teardown()

	host := strings.TrimSpace(h.opts.Host)
	if host == "" {
		slog.Error("Camera host is not configured")
		h.setState(Failed, "camera host is not configured")
		return
	}

	h.setState(Connecting, "")

	gen := h.gen
	addr := net.JoinHostPort(host, strconv.Itoa(rcp.Port))
	transport := h.opts.Dialer(addr, network.Handlers{
		OnFrame:  func(data []byte) { h.postTransportEvent(event{kind: evFrame, gen: gen, frame: data}) },
		OnError:  func(err error) { h.postTransportEvent(event{kind: evError, gen: gen, err: err}) },
		OnClosed: func() { h.postTransportEvent(event{kind: evClosed, gen: gen}) },
	})

	if err := transport.Connect(); err != nil {
		slog.Error("Failed to open camera connection", "addr", addr, "err", err)
		h.setState(Failed, err.Error())
		h.scheduleReconnect()
		return
	}

	h.transport = transport
	h.onOpened()
}

// onOpened runs the Connected entry side effects: the one-time rcp_config
// handshake, one full re-query, and the poll ticker.
func (h *CameraHandler) onOpened() {
	h.setState(Connected, "")
	slog.Info("Connected to camera", "host", h.opts.Host)

	h.send(rcp.NewConfigMessage(h.opts.ClientName, h.opts.ClientVersion))
	h.requery()
	h.pollTicker = time.NewTicker(h.opts.PollInterval)
}

// handleFailure covers transport errors and unexpected closes while the link
// is up or being opened. The poll ticker stops and exactly one reconnect
// timer is left pending; a failure arriving while one is already scheduled
// replaces it.
func (h *CameraHandler) handleFailure(status string) {
	slog.Error("Camera connection lost", "status", status)

	if h.pollTicker != nil {
		h.pollTicker.Stop()
		h.pollTicker = nil
	}
	if h.transport != nil {
		_ = h.transport.Close()
		h.transport = nil
	}
	h.gen++ // events from the dead transport are now stale

	h.setState(Failed, status)
	h.scheduleReconnect()
}

func (h *CameraHandler) scheduleReconnect() {
	if h.reconnectTimer != nil {
		h.reconnectTimer.Stop()
	}
	h.reconnectTimer = time.NewTimer(h.opts.ReconnectDelay)
}

// teardown closes the transport and cancels both timers. The generation bump
// invalidates events still in flight from the old transport.
func (h *CameraHandler) teardown() {
	if h.pollTicker != nil {
		h.pollTicker.Stop()
		h.pollTicker = nil
	}
	if h.reconnectTimer != nil {
		h.reconnectTimer.Stop()
		h.reconnectTimer = nil
	}
	if h.transport != nil {
		_ = h.transport.Close()
		h.transport = nil
	}
	h.gen++
}

// handleFrame parses one inbound frame and routes recognized current-value
// updates through the normalizer into the store. Failures here never affect
// the connection state.
func (h *CameraHandler) handleFrame(frame []byte) {
	update, err := rcp.ParseUpdate(frame)
	if err != nil {
		slog.Warn("Discarding malformed frame", "err", err)
		return
	}

	if !update.Kind.IsCurrentValue() {
		slog.Debug("Ignoring message without current-value prefix", "type", string(update.Kind))
		return
	}

	value, ok := rcp.Normalize(update)
	if !ok {
		slog.Debug("Dropping unrecognized update", "id", string(update.ID), "type", string(update.Kind))
		return
	}

	name, _ := rcp.VariableName(update.ID)
	h.store.Set(name, value)
	h.notify(Notification{Type: VariableChanged, Variable: name, Value: value})
}

// requery asks for the current value of every tracked parameter. Responses
// arrive asynchronously and are matched only by parameter id; nothing here
// waits or correlates.
func (h *CameraHandler) requery() {
	for _, id := range rcp.TrackedParams {
		h.send(rcp.NewGetMessage(id))
	}
}

// send marshals and transmits one message. With no open transport the message
// is dropped; commands are never queued or retried.
func (h *CameraHandler) send(msg any) {
	if h.transport == nil {
		slog.Debug("Dropping outbound message, link not open")
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("Failed to marshal outbound message", "err", err)
		return
	}
	if err := h.transport.Send(data); err != nil {
		slog.Warn("Failed to send message", "err", err)
	}
}

// sendRaw transmits a caller-supplied literal payload unmodified.
func (h *CameraHandler) sendRaw(payload string) {
	if h.transport == nil {
		slog.Debug("Dropping raw payload, link not open")
		return
	}
	if err := h.transport.Send([]byte(payload)); err != nil {
		slog.Warn("Failed to send raw payload", "err", err)
	}
}

func (h *CameraHandler) setState(state ConnectionState, status string) {
	h.stateMu.Lock()
	h.state = state
	h.status = status
	h.stateMu.Unlock()

	h.notify(Notification{Type: ConnectionStateChanged, State: state, Status: status})
}

// notify delivers a notification without ever blocking the session loop.
// Publishes before a consumer attaches are discarded silently.
func (h *CameraHandler) notify(n Notification) {
	if !h.attached.Load() {
		return
	}
	select {
	case h.notifications <- n:
	default:
		slog.Warn("Notification channel is full, dropping", "type", int(n.Type))
	}
}
