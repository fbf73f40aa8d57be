package rcp

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Port is the camera's RCP listen port. It is fixed by the firmware and not
// user-configurable.
const Port = 1111

// CurrentValuePrefix gates inbound routing: only messages whose type starts
// with this prefix report a parameter's current value.
const CurrentValuePrefix = "rcp_cur"

// UpdateKind is the type discriminator of an inbound current-value message.
type UpdateKind string

const (
	KindCurInt         UpdateKind = "rcp_cur_int"
	KindCurStr         UpdateKind = "rcp_cur_str"
	KindCurIntEditInfo UpdateKind = "rcp_cur_int_edit_info"
)

// ConfigMessage is the one-time session handshake sent after the transport
// opens. It declares client identity and the encoding options the bridge
// expects on the stream.
type ConfigMessage struct {
	Type                  string       `json:"type"`
	StringsDecoded        int          `json:"strings_decoded"`
	JSONMinified          int          `json:"json_minified"`
	IncludeCacheableFlags int          `json:"include_cacheable_flags"`
	EncodingType          string       `json:"encoding_type"`
	Client                ClientConfig `json:"client"`
}

// ClientConfig identifies the connecting client to the camera.
type ClientConfig struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// GetMessage requests the current value of one parameter.
type GetMessage struct {
	Type string      `json:"type"`
	ID   ParameterID `json:"id"`
}

// SetMessage assigns a numeric value to one parameter.
type SetMessage struct {
	Type  string      `json:"type"`
	ID    ParameterID `json:"id"`
	Value int         `json:"value"`
}

// NewConfigMessage builds the session handshake for the given client identity.
func NewConfigMessage(name, version string) ConfigMessage {
	return ConfigMessage{
		Type:                  "rcp_config",
		StringsDecoded:        1,
		JSONMinified:          1,
		IncludeCacheableFlags: 0,
		EncodingType:          "legacy",
		Client:                ClientConfig{Name: name, Version: version},
	}
}

// NewGetMessage builds a current-value query for one parameter.
func NewGetMessage(id ParameterID) GetMessage {
	return GetMessage{Type: "rcp_get", ID: id}
}

// NewSetMessage builds a set request for one parameter.
func NewSetMessage(id ParameterID, value int) SetMessage {
	return SetMessage{Type: "rcp_set", ID: id, Value: value}
}

// Update is one decoded current-value frame. Optional wire fields are
// represented as pointers so the normalizer can distinguish absent from zero.
type Update struct {
	Kind    UpdateKind
	ID      ParameterID
	Cur     *float64 // cur.val
	Val     *float64 // generic fallback value; nil when absent or non-numeric
	Display *string  // display.str
	Divider *float64
	Digits  *int
}

// wireFrame mirrors the inbound JSON shape before it is narrowed to an Update.
type wireFrame struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	Cur  *struct {
		Val *float64 `json:"val"`
	} `json:"cur"`
	Val     json.RawMessage `json:"val"`
	Display *struct {
		Str *string `json:"str"`
	} `json:"display"`
	Divider *float64 `json:"divider"`
	Digits  *int     `json:"digits"`
}

// ParseUpdate decodes one raw frame into an Update. It returns an error for
// malformed JSON or a frame without a type. Frames whose type lacks the
// rcp_cur prefix are well-formed but carry no current value; callers detect
// them with IsCurrentValue before routing to the normalizer.
func ParseUpdate(data []byte) (Update, error) {
	var frame wireFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return Update{}, fmt.Errorf("malformed frame: %w", err)
	}
	if frame.Type == "" {
		return Update{}, fmt.Errorf("frame missing type discriminator")
	}

	u := Update{
		Kind:    UpdateKind(frame.Type),
		ID:      ParameterID(frame.ID),
		Divider: frame.Divider,
		Digits:  frame.Digits,
	}
	if frame.Cur != nil {
		u.Cur = frame.Cur.Val
	}
	if frame.Display != nil {
		u.Display = frame.Display.Str
	}
	// The generic val field is untyped on the wire. A numeric value is kept;
	// anything else is treated as absent.
	if len(frame.Val) > 0 {
		var n float64
		if err := json.Unmarshal(frame.Val, &n); err == nil {
			u.Val = &n
		}
	}
	return u, nil
}

// IsCurrentValue reports whether kind carries a parameter's current value.
func (k UpdateKind) IsCurrentValue() bool {
	return strings.HasPrefix(string(k), CurrentValuePrefix)
}
