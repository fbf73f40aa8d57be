package rcp

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseUpdate(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    Update
		wantErr bool
	}{
		{
			name: "IntEditInfo",
			data: `{"type":"rcp_cur_int_edit_info","id":"RCP_PARAM_SENSOR_FRAME_RATE","cur":{"val":2400},"divider":100,"digits":2}`,
			want: Update{
				Kind:    KindCurIntEditInfo,
				ID:      ParamSensorFrameRate,
				Cur:     ptr(2400.0),
				Divider: ptr(100.0),
				Digits:  ptr(2),
			},
		},
		{
			name: "DisplayString",
			data: `{"type":"rcp_cur_str","id":"RCP_PARAM_SENSOR_FRAME_RATE","display":{"str":"23.98 FPS"}}`,
			want: Update{
				Kind:    KindCurStr,
				ID:      ParamSensorFrameRate,
				Display: ptr("23.98 FPS"),
			},
		},
		{
			name: "GenericNumericVal",
			data: `{"type":"rcp_cur_int","id":"RCP_PARAM_ISO","val":800}`,
			want: Update{Kind: KindCurInt, ID: ParamISO, Val: ptr(800.0)},
		},
		{
			name: "NonNumericValTreatedAsAbsent",
			data: `{"type":"rcp_cur_int","id":"RCP_PARAM_ISO","val":"800"}`,
			want: Update{Kind: KindCurInt, ID: ParamISO},
		},
		{
			name:    "MalformedJSON",
			data:    `{"type":`,
			wantErr: true,
		},
		{
			name:    "MissingType",
			data:    `{"id":"RCP_PARAM_ISO"}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseUpdate([]byte(tt.data))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseUpdate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseUpdate() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestIsCurrentValue(t *testing.T) {
	if !KindCurInt.IsCurrentValue() {
		t.Errorf("rcp_cur_int should be a current-value kind")
	}
	if UpdateKind("rcp_cur_list").IsCurrentValue() != true {
		t.Errorf("any rcp_cur-prefixed kind should pass the gate")
	}
	if UpdateKind("rcp_notify").IsCurrentValue() {
		t.Errorf("rcp_notify should not pass the current-value gate")
	}
}

func TestOutboundMessages(t *testing.T) {
	cfg, err := json.Marshal(NewConfigMessage("rcp-bridge", "1.0.0"))
	if err != nil {
		t.Fatalf("Failed to marshal config message: %v", err)
	}
	wantCfg := `{"type":"rcp_config","strings_decoded":1,"json_minified":1,"include_cacheable_flags":0,"encoding_type":"legacy","client":{"name":"rcp-bridge","version":"1.0.0"}}`
	if string(cfg) != wantCfg {
		t.Errorf("config message = %s, want %s", cfg, wantCfg)
	}

	get, err := json.Marshal(NewGetMessage(ParamISO))
	if err != nil {
		t.Fatalf("Failed to marshal get message: %v", err)
	}
	if string(get) != `{"type":"rcp_get","id":"RCP_PARAM_ISO"}` {
		t.Errorf("unexpected get message: %s", get)
	}

	set, err := json.Marshal(NewSetMessage(ParamISO, 800))
	if err != nil {
		t.Fatalf("Failed to marshal set message: %v", err)
	}
	if string(set) != `{"type":"rcp_set","id":"RCP_PARAM_ISO","value":800}` {
		t.Errorf("unexpected set message: %s", set)
	}
}

func TestFindChoice(t *testing.T) {
	c, ok := FindChoice(FrameRateChoices, "23.98")
	if !ok || c.Value != 23976 {
		t.Errorf("FindChoice(23.98) = %+v, %v", c, ok)
	}
	if _, ok := FindChoice(ISOChoices, "12345"); ok {
		t.Errorf("FindChoice accepted a value outside the enumeration")
	}
}

func TestRecordFormatLabel(t *testing.T) {
	if got := RecordFormatLabel(3); got != "6K 16:9" {
		t.Errorf("RecordFormatLabel(3) = %q", got)
	}
	if got := RecordFormatLabel(99); got != "Unknown(99)" {
		t.Errorf("RecordFormatLabel(99) = %q", got)
	}
}
