package rcp

import (
	"fmt"
	"strconv"
)

// Normalization of current-value updates into the single display string stored
// per parameter. Each parameter has its own policy over the message kinds it
// accepts; the functions here are pure and keep no state beyond the lookup
// tables in this package.

// normalizer converts one update into a display string. ok=false means the
// update's kind is not accepted for the parameter and the store must be left
// unchanged.
type normalizer func(Update) (string, bool)

var normalizers = map[ParameterID]normalizer{
	ParamISO:              normalizeISO,
	ParamColorTemperature: normalizeColorTemperature,
	ParamSensorFrameRate:  normalizeFrameRate,
	ParamRecordState:      normalizeRecordState,
	ParamExposureDisplay:  normalizeExposure,
	ParamRecordFormat:     normalizeRecordFormat,
}

// Normalize maps one current-value update into the display string for its
// parameter. ok=false marks an unrecognized combination (unknown parameter, or
// a message kind the parameter's policy rejects); such updates must be dropped
// without touching the store. A successful result may still be the empty
// string, which is a legal stored value.
func Normalize(u Update) (string, bool) {
	fn, ok := normalizers[u.ID]
	if !ok {
		return "", false
	}
	return fn(u)
}

func normalizeISO(u Update) (string, bool) {
	if u.Cur != nil {
		return formatNumber(*u.Cur), true
	}
	if u.Val != nil {
		return formatNumber(*u.Val), true
	}
	return "", true
}

func normalizeColorTemperature(u Update) (string, bool) {
	if u.Cur != nil {
		return formatNumber(*u.Cur), true
	}
	if u.Display != nil {
		return *u.Display, true
	}
	if u.Val != nil {
		return formatNumber(*u.Val), true
	}
	return "", true
}

func normalizeFrameRate(u Update) (string, bool) {
	switch u.Kind {
	case KindCurStr:
		// Pre-formatted by the camera, used verbatim.
		if u.Display != nil {
			return *u.Display, true
		}
		return "", true
	case KindCurIntEditInfo:
		if u.Cur == nil {
			return "", true
		}
		divider := 1.0
		if u.Divider != nil && *u.Divider != 0 {
			divider = *u.Divider
		}
		digits := 2
		if u.Digits != nil {
			digits = *u.Digits
		}
		return fmt.Sprintf("%.*f FPS", digits, *u.Cur/divider), true
	default:
		return "", false
	}
}

func normalizeRecordState(u Update) (string, bool) {
	val := u.Cur
	if val == nil {
		val = u.Val
	}
	if val != nil && *val == 1 {
		return "Recording", true
	}
	return "Idle", true
}

func normalizeExposure(u Update) (string, bool) {
	if u.Display != nil {
		return *u.Display, true
	}
	if u.Cur != nil {
		return fmt.Sprintf("1/%.2f", *u.Cur/1000), true
	}
	return "", true
}

func normalizeRecordFormat(u Update) (string, bool) {
	if u.Kind != KindCurInt {
		return "", false
	}
	if u.Cur == nil {
		return "", false
	}
	return RecordFormatLabel(int(*u.Cur)), true
}

// formatNumber renders a wire number without a trailing fraction when it is
// integral (ISO 800 renders as "800", not "800.000000").
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
