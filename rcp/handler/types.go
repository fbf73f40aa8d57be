package handler

// ConnectionState tracks the camera link lifecycle. Exactly one state exists
// per handler and only the session loop changes it.
type ConnectionState int

const (
	Disconnected ConnectionState = iota
	Connecting
	Connected
	Failed
)

func (s ConnectionState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// NotificationType classifies handler notifications.
type NotificationType int

const (
	// VariableChanged reports a store update after a successful normalization.
	VariableChanged NotificationType = iota
	// ConnectionStateChanged reports a lifecycle transition, with Status
	// carrying the failure detail when State is Failed.
	ConnectionStateChanged
)

// Notification is delivered on the channel returned by
// CameraHandler.Notifications for every store publish and state transition.
type Notification struct {
	Type     NotificationType
	Variable string
	Value    string
	State    ConnectionState
	Status   string
}

// eventKind discriminates the events driving the session loop.
type eventKind int

const (
	evFrame eventKind = iota
	evError
	evClosed
	evDo // externally posted closure, run on the loop
)

// event is one unit of work for the session loop. gen ties transport events
// to the connection attempt that produced them; events from a superseded
// transport are discarded.
type event struct {
	kind  eventKind
	gen   int
	frame []byte
	err   error
	do    func()
}
