package rcp

import "fmt"

// recordFormats maps the camera's record-format code to a human-readable
// resolution + aspect-ratio label. The table is fixed for the lifetime of the
// process.
var recordFormats = map[int]string{
	0: "8K 2:1",
	1: "8K 16:9",
	2: "7K 17:9",
	3: "6K 16:9",
	4: "6K 2:1",
	5: "5K 17:9",
	6: "4K 16:9",
	7: "4K 2:1",
	8: "2K 16:9",
}

// RecordFormatLabel resolves a record-format code to its label. Codes outside
// the table yield a synthesized Unknown(code) string rather than failing.
func RecordFormatLabel(code int) string {
	if label, ok := recordFormats[code]; ok {
		return label
	}
	return fmt.Sprintf("Unknown(%d)", code)
}
