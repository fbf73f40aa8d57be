package server

import (
	"context"
	"fmt"
	"log/slog"

	"rcp-bridge/protocol"
	"rcp-bridge/rcp/handler"
)

// WebSocketServer publishes camera variables and connection state to observer
// clients and routes their commands into the camera handler.
type WebSocketServer struct {
	ctx       context.Context
	cancel    context.CancelFunc
	transport WebSocketTransport
	camera    *handler.CameraHandler
}

// NewWebSocketServer creates a bridge server on addr backed by camera.
func NewWebSocketServer(ctx context.Context, addr string, camera *handler.CameraHandler) *WebSocketServer {
	return newWebSocketServer(ctx, camera, func(serverCtx context.Context) WebSocketTransport {
		return NewDefaultWebSocketTransport(serverCtx, addr)
	})
}

func newWebSocketServer(ctx context.Context, camera *handler.CameraHandler, makeTransport func(context.Context) WebSocketTransport) *WebSocketServer {
	serverCtx, cancel := context.WithCancel(ctx)

	ws := &WebSocketServer{
		ctx:       serverCtx,
		cancel:    cancel,
		transport: makeTransport(serverCtx),
		camera:    camera,
	}

	ws.transport.SetConnectHandler(ws.handleClientConnect)
	ws.transport.SetMessageHandler(ws.handleClientMessage)
	ws.transport.SetDisconnectHandler(ws.handleClientDisconnect)

	// Attach before returning so no notification published between
	// construction and the goroutine's first receive is discarded.
	go ws.listenForNotifications(camera.Notifications())

	return ws
}

// Start runs the server; it blocks until Stop or a listen error.
func (ws *WebSocketServer) Start(options StartOptions) error {
	return ws.transport.Start(options)
}

func (ws *WebSocketServer) Stop() error {
	ws.cancel()
	return ws.transport.Stop()
}

// listenForNotifications rebroadcasts every store publish and state
// transition to all connected clients.
func (ws *WebSocketServer) listenForNotifications(notifications <-chan handler.Notification) {
	for {
		select {
		case <-ws.ctx.Done():
			return
		case n := <-notifications:
			switch n.Type {
			case handler.VariableChanged:
				ws.broadcast(protocol.MessageTypeVariableChanged, protocol.VariableChangedPayload{
					Name:  n.Variable,
					Value: n.Value,
				})
			case handler.ConnectionStateChanged:
				ws.broadcast(protocol.MessageTypeConnectionState, protocol.ConnectionStatePayload{
					State:  n.State.String(),
					Status: n.Status,
				})
			}
		}
	}
}

// handleClientConnect sends the full current state to a new client.
func (ws *WebSocketServer) handleClientConnect(connID string) error {
	slog.Debug("New WebSocket connection established", "connID", connID)

	state, status := ws.camera.State()
	payload := protocol.InitialStatePayload{
		Variables:       ws.camera.Variables(),
		ConnectionState: state.String(),
		Status:          status,
	}
	return ws.sendMessageToClient(connID, protocol.MessageTypeInitialState, payload, "")
}

func (ws *WebSocketServer) handleClientDisconnect(connID string) {
	slog.Debug("WebSocket connection closed", "connID", connID)
}

// handleClientMessage dispatches one client message by its type.
func (ws *WebSocketServer) handleClientMessage(connID string, message []byte) error {
	msg, err := protocol.ParseMessage(message)
	if err != nil {
		slog.Warn("Error parsing client message", "err", err)
		errorPayload := protocol.ErrorNotificationPayload{
			Code:    protocol.ErrorCodeInvalidRequestFormat,
			Message: fmt.Sprintf("Error parsing message: %v", err),
		}
		return ws.sendMessageToClient(connID, protocol.MessageTypeErrorNotification, errorPayload, "")
	}

	switch msg.Type {
	case protocol.MessageTypeCommand:
		return ws.handleCommandFromClient(connID, msg)
	case protocol.MessageTypeSubscribe:
		return ws.handleSubscribeFromClient(connID, msg)
	case protocol.MessageTypeUnsubscribe:
		return ws.handleUnsubscribeFromClient(connID, msg)
	default:
		slog.Warn("Unknown message type", "type", string(msg.Type))
		errorPayload := protocol.ErrorNotificationPayload{
			Code:    protocol.ErrorCodeInvalidRequestFormat,
			Message: fmt.Sprintf("Unknown message type: %s", msg.Type),
		}
		return ws.sendMessageToClient(connID, protocol.MessageTypeErrorNotification, errorPayload, msg.RequestID)
	}
}

// handleCommandFromClient routes one user command to the camera handler. The
// handler itself never errors; the result only reflects whether the request
// was well-formed.
func (ws *WebSocketServer) handleCommandFromClient(connID string, msg *protocol.Message) error {
	var payload protocol.CommandPayload
	if err := protocol.ParsePayload(msg, &payload); err != nil {
		return ws.sendCommandResult(connID, msg.RequestID, &protocol.Error{
			Code:    protocol.ErrorCodeInvalidParameters,
			Message: fmt.Sprintf("Error parsing command payload: %v", err),
		})
	}

	switch payload.Command {
	case protocol.CommandSetISO:
		ws.camera.SetISO(payload.Value)
	case protocol.CommandSetFrameRate:
		ws.camera.SetFrameRate(payload.Value)
	case protocol.CommandSetRecordFormat:
		ws.camera.SetRecordFormat(payload.Value)
	case protocol.CommandStartRecording:
		ws.camera.StartRecording()
	case protocol.CommandStopRecording:
		ws.camera.StopRecording()
	case protocol.CommandSendRaw:
		ws.camera.SendRaw(payload.Value)
	default:
		return ws.sendCommandResult(connID, msg.RequestID, &protocol.Error{
			Code:    protocol.ErrorCodeUnknownCommand,
			Message: fmt.Sprintf("Unknown command: %s", payload.Command),
		})
	}

	return ws.sendCommandResult(connID, msg.RequestID, nil)
}

func (ws *WebSocketServer) handleSubscribeFromClient(connID string, msg *protocol.Message) error {
	var payload protocol.SubscribePayload
	if err := protocol.ParsePayload(msg, &payload); err != nil {
		return ws.sendCommandResult(connID, msg.RequestID, &protocol.Error{
			Code:    protocol.ErrorCodeInvalidParameters,
			Message: fmt.Sprintf("Error parsing subscribe payload: %v", err),
		})
	}

	ws.camera.Subscribe(payload.ID, payload.Variable, payload.SubPath)
	return ws.sendCommandResult(connID, msg.RequestID, nil)
}

func (ws *WebSocketServer) handleUnsubscribeFromClient(connID string, msg *protocol.Message) error {
	var payload protocol.UnsubscribePayload
	if err := protocol.ParsePayload(msg, &payload); err != nil {
		return ws.sendCommandResult(connID, msg.RequestID, &protocol.Error{
			Code:    protocol.ErrorCodeInvalidParameters,
			Message: fmt.Sprintf("Error parsing unsubscribe payload: %v", err),
		})
	}

	ws.camera.Unsubscribe(payload.ID)
	return ws.sendCommandResult(connID, msg.RequestID, nil)
}

func (ws *WebSocketServer) sendCommandResult(connID, requestID string, cmdErr *protocol.Error) error {
	payload := protocol.CommandResultPayload{
		Success: cmdErr == nil,
		Error:   cmdErr,
	}
	return ws.sendMessageToClient(connID, protocol.MessageTypeCommandResult, payload, requestID)
}

func (ws *WebSocketServer) sendMessageToClient(connID string, msgType protocol.MessageType, payload interface{}, requestID string) error {
	data, err := protocol.CreateMessage(msgType, payload, requestID)
	if err != nil {
		return fmt.Errorf("error creating message: %w", err)
	}
	return ws.transport.SendMessage(connID, data)
}

func (ws *WebSocketServer) broadcast(msgType protocol.MessageType, payload interface{}) {
	data, err := protocol.CreateMessage(msgType, payload, "")
	if err != nil {
		slog.Error("Error creating broadcast message", "err", err)
		return
	}
	if err := ws.transport.BroadcastMessage(data); err != nil {
		slog.Error("Error broadcasting message", "err", err)
	}
}
