package handler

import (
	"log/slog"

	"rcp-bridge/rcp"
)

// The user-facing command surface. Structured commands validate their value
// against the closed choice enumerations before anything touches the wire;
// values outside an enumeration are rejected, not passed through. None of
// these return an error: a command that cannot currently be transmitted is
// dropped.

// SetISO sends an ISO set request for one of the enumerated sensitivities.
func (h *CameraHandler) SetISO(label string) {
	h.setChoice(rcp.ParamISO, rcp.ISOChoices, label)
}

// SetFrameRate sends a sensor frame rate set request.
func (h *CameraHandler) SetFrameRate(label string) {
	h.setChoice(rcp.ParamSensorFrameRate, rcp.FrameRateChoices, label)
}

// SetRecordFormat sends a record format set request.
func (h *CameraHandler) SetRecordFormat(label string) {
	h.setChoice(rcp.ParamRecordFormat, rcp.RecordFormatChoices, label)
}

// StartRecording asks the camera to start recording.
func (h *CameraHandler) StartRecording() {
	h.post(func() { h.send(rcp.NewSetMessage(rcp.ParamRecordState, 1)) })
}

// StopRecording asks the camera to stop recording.
func (h *CameraHandler) StopRecording() {
	h.post(func() { h.send(rcp.NewSetMessage(rcp.ParamRecordState, 0)) })
}

// SendRaw transmits a caller-supplied payload verbatim, bypassing all
// structuring and validation.
func (h *CameraHandler) SendRaw(payload string) {
	h.post(func() { h.sendRaw(payload) })
}

func (h *CameraHandler) setChoice(id rcp.ParameterID, choices []rcp.Choice, label string) {
	choice, ok := rcp.FindChoice(choices, label)
	if !ok {
		slog.Warn("Rejecting value outside enumeration", "id", string(id), "value", label)
		return
	}
	h.post(func() { h.send(rcp.NewSetMessage(id, choice.Value)) })
}
