package console

import (
	"fmt"
	"strings"

	"golang.org/x/exp/slices"

	"rcp-bridge/rcp/handler"
)

// CommandType identifies a console command.
type CommandType int

const (
	CmdUnknown CommandType = iota
	CmdQuit
	CmdHelp
	CmdSet
	CmdRecord
	CmdRaw
	CmdStatus
	CmdConnect
	CmdDebug
)

// Setting names accepted by the set command.
const (
	SettingISO    = "iso"
	SettingFPS    = "fps"
	SettingFormat = "format"
)

// Command represents one parsed console command.
type Command struct {
	Type        CommandType
	Setting     string        // set command target (iso, fps, format)
	Value       string        // set value, raw payload, or connect host
	StartRecord bool          // record command direction
	DebugMode   *string       // debug command mode ("on" or "off")
	HelpCommand *string       // help topic
	Done        chan struct{} // closed when the command has been executed
	Error       error         // execution error, valid after Done closes
}

func newCommand(t CommandType) *Command {
	return &Command{Type: t, Done: make(chan struct{})}
}

// CameraController is the slice of the camera handler the console drives.
type CameraController interface {
	SetISO(label string)
	SetFrameRate(label string)
	SetRecordFormat(label string)
	StartRecording()
	StopRecording()
	SendRaw(payload string)
	Connect()
	Reconfigure(host string)
	State() (handler.ConnectionState, string)
	Variables() map[string]string
}

// CommandParser turns an input line into a Command using the command table.
type CommandParser struct{}

func NewCommandParser() *CommandParser {
	return &CommandParser{}
}

// ParseCommand parses a line of input. Returns (nil, nil) for blank input.
func (p *CommandParser) ParseCommand(line string) (*Command, error) {
	trimmed := strings.TrimSpace(line)
	parts := strings.Fields(trimmed)
	if len(parts) == 0 {
		return nil, nil
	}

	name := parts[0]
	// rest carries the argument text verbatim so raw JSON payloads survive
	// intact.
	rest := strings.TrimSpace(strings.TrimPrefix(trimmed, name))

	for _, def := range CommandTable {
		if def.Name == name || slices.Contains(def.Aliases, name) {
			return def.ParseFunc(parts, rest)
		}
	}

	return nil, fmt.Errorf("unknown command: %s (type 'help' for usage)", name)
}
