package rcp

// RCP (R.E.D. Control Protocol) identifiers and the fixed set of camera
// parameters this bridge tracks. The identifiers are defined by the camera
// firmware and must be sent verbatim.

// ParameterID identifies one controllable/observable camera parameter.
type ParameterID string

const (
	ParamISO              ParameterID = "RCP_PARAM_ISO"
	ParamColorTemperature ParameterID = "RCP_PARAM_COLOR_TEMPERATURE"
	ParamSensorFrameRate  ParameterID = "RCP_PARAM_SENSOR_FRAME_RATE"
	ParamRecordState      ParameterID = "RCP_PARAM_RECORD_STATE"
	ParamExposureDisplay  ParameterID = "RCP_PARAM_EXPOSURE_DISPLAY"
	ParamRecordFormat     ParameterID = "RCP_PARAM_RECORD_FORMAT"
)

// TrackedParams is the fixed set of parameters queried at connect time and on
// every poll cycle. Order determines re-query order on the wire.
var TrackedParams = []ParameterID{
	ParamISO,
	ParamColorTemperature,
	ParamSensorFrameRate,
	ParamRecordState,
	ParamExposureDisplay,
	ParamRecordFormat,
}

// variableNames maps a parameter to the variable name exposed to observers.
var variableNames = map[ParameterID]string{
	ParamISO:              "iso",
	ParamColorTemperature: "white_balance",
	ParamSensorFrameRate:  "fps",
	ParamRecordState:      "recording",
	ParamExposureDisplay:  "shutter",
	ParamRecordFormat:     "record_format",
}

// VariableName returns the observer-facing variable name for id, or ok=false
// for a parameter outside the tracked set.
func VariableName(id ParameterID) (string, bool) {
	name, ok := variableNames[id]
	return name, ok
}

// IsTracked reports whether id belongs to the tracked parameter set.
func IsTracked(id ParameterID) bool {
	_, ok := variableNames[id]
	return ok
}
