package protocol

import "encoding/json"

// The JSON protocol spoken between the bridge's WebSocket server and its
// observer clients. This is our own surface; the camera-side RCP contract
// lives in the rcp package.

// MessageType defines the type of message being sent between client and server
type MessageType string

const (
	// Server -> Client message types
	MessageTypeInitialState      MessageType = "initial_state"
	MessageTypeVariableChanged   MessageType = "variable_changed"
	MessageTypeConnectionState   MessageType = "connection_state"
	MessageTypeCommandResult     MessageType = "command_result"
	MessageTypeErrorNotification MessageType = "error_notification"

	// Client -> Server message types
	MessageTypeCommand     MessageType = "command"
	MessageTypeSubscribe   MessageType = "subscribe"
	MessageTypeUnsubscribe MessageType = "unsubscribe"
)

// CommandName identifies one user-facing camera command.
type CommandName string

const (
	CommandSetISO          CommandName = "set_iso"
	CommandSetFrameRate    CommandName = "set_frame_rate"
	CommandSetRecordFormat CommandName = "set_record_format"
	CommandStartRecording  CommandName = "start_recording"
	CommandStopRecording   CommandName = "stop_recording"
	CommandSendRaw         CommandName = "send_raw"
)

// ErrorCode defines error codes for error messages
type ErrorCode string

const (
	ErrorCodeInvalidRequestFormat ErrorCode = "INVALID_REQUEST_FORMAT"
	ErrorCodeInvalidParameters    ErrorCode = "INVALID_PARAMETERS"
	ErrorCodeUnknownCommand       ErrorCode = "UNKNOWN_COMMAND"
	ErrorCodeInternalServerError  ErrorCode = "INTERNAL_SERVER_ERROR"
)

// Message is the base structure for all WebSocket messages
type Message struct {
	Type      MessageType     `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	RequestID string          `json:"requestId,omitempty"`
}

// Error represents an error in the WebSocket protocol
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// InitialStatePayload is the payload for the initial_state message
type InitialStatePayload struct {
	Variables       map[string]string `json:"variables"`
	ConnectionState string            `json:"connectionState"`
	Status          string            `json:"status,omitempty"`
}

// VariableChangedPayload is the payload for the variable_changed message
type VariableChangedPayload struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ConnectionStatePayload is the payload for the connection_state message
type ConnectionStatePayload struct {
	State  string `json:"state"`
	Status string `json:"status,omitempty"`
}

// CommandPayload is the payload for the command message
type CommandPayload struct {
	Command CommandName `json:"command"`
	Value   string      `json:"value,omitempty"`
}

// CommandResultPayload is the payload for the command_result message
type CommandResultPayload struct {
	Success bool   `json:"success"`
	Error   *Error `json:"error,omitempty"`
}

// SubscribePayload is the payload for the subscribe message
type SubscribePayload struct {
	ID       string `json:"id"`
	Variable string `json:"variable"`
	SubPath  string `json:"subPath,omitempty"`
}

// UnsubscribePayload is the payload for the unsubscribe message
type UnsubscribePayload struct {
	ID string `json:"id"`
}

// ErrorNotificationPayload is the payload for the error_notification message
type ErrorNotificationPayload struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// CreateMessage builds a JSON message with the given type and payload
func CreateMessage(msgType MessageType, payload interface{}, requestID string) ([]byte, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	msg := Message{
		Type:      msgType,
		Payload:   payloadBytes,
		RequestID: requestID,
	}

	return json.Marshal(msg)
}

// ParseMessage parses a JSON message into a Message struct
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// ParsePayload parses the payload of a message into the given struct
func ParsePayload(msg *Message, payload interface{}) error {
	return json.Unmarshal(msg.Payload, payload)
}
