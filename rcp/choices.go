package rcp

import "golang.org/x/exp/slices"

// Closed enumerations for the structured set commands. Values outside these
// lists are rejected at the dispatch boundary instead of being passed through
// to the camera.

// Choice pairs a user-facing label with the numeric value sent on the wire.
type Choice struct {
	Label string
	Value int
}

// ISOChoices lists the sensitivities the camera accepts via rcp_set.
var ISOChoices = []Choice{
	{"250", 250}, {"320", 320}, {"400", 400}, {"500", 500},
	{"640", 640}, {"800", 800}, {"1000", 1000}, {"1280", 1280},
	{"1600", 1600}, {"2000", 2000}, {"2560", 2560}, {"3200", 3200},
	{"4000", 4000}, {"5120", 5120}, {"6400", 6400}, {"8000", 8000},
	{"10240", 10240}, {"12800", 12800},
}

// FrameRateChoices lists the sensor frame rates. Wire values are in
// milli-frames per second, matching the camera's integer encoding.
var FrameRateChoices = []Choice{
	{"23.98", 23976}, {"24", 24000}, {"25", 25000},
	{"29.97", 29970}, {"30", 30000}, {"47.95", 47952},
	{"48", 48000}, {"50", 50000}, {"59.94", 59940},
	{"60", 60000}, {"120", 120000},
}

// RecordFormatChoices mirrors the record-format table codes.
var RecordFormatChoices = func() []Choice {
	choices := make([]Choice, 0, len(recordFormats))
	for code := 0; code < len(recordFormats); code++ {
		choices = append(choices, Choice{Label: recordFormats[code], Value: code})
	}
	return choices
}()

// FindChoice resolves a label within a choice list.
func FindChoice(choices []Choice, label string) (Choice, bool) {
	i := slices.IndexFunc(choices, func(c Choice) bool { return c.Label == label })
	if i < 0 {
		return Choice{}, false
	}
	return choices[i], true
}

// ChoiceLabels returns the labels of a choice list, in order.
func ChoiceLabels(choices []Choice) []string {
	labels := make([]string, len(choices))
	for i, c := range choices {
		labels[i] = c.Label
	}
	return labels
}
