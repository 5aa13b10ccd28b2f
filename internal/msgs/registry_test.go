package msgs

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestRegistry_Validate(t *testing.T) {
	types := DefaultRegistry()

	tests := []struct {
		name    string
		typ     string
		payload any
		want    string
		wantErr bool
	}{
		{
			name:    "struct payload",
			typ:     TypeString,
			payload: String{Data: "hello"},
			want:    `{"data":"hello"}`,
		},
		{
			name:    "map payload",
			typ:     TypeWheelsCmdStamped,
			payload: map[string]any{"vel_left": 0.5, "vel_right": 0.5},
			want:    `{"vel_left":0.5,"vel_right":0.5}`,
		},
		{
			name:    "raw JSON payload",
			typ:     TypeString,
			payload: json.RawMessage(`{"data":"raw"}`),
			want:    `{"data":"raw"}`,
		},
		{
			name:    "unknown type passes through",
			typ:     "custom_msgs/Thing",
			payload: map[string]any{"anything": 1},
			want:    `{"anything":1}`,
		},
		{name: "misspelled field", typ: TypeString, payload: map[string]any{"date": "x"}, wantErr: true},
		{name: "wrong field type", typ: TypeWheelsCmdStamped, payload: map[string]any{"vel_left": "fast"}, wantErr: true},
		{name: "not an object", typ: TypeString, payload: "hello", wantErr: true},
		{name: "nil payload", typ: TypeString, payload: nil, wantErr: true},
		{name: "invalid raw JSON", typ: "custom_msgs/Thing", payload: []byte(`{"a":`), wantErr: true},
		{name: "unmarshalable value", typ: TypeString, payload: map[string]any{"data": make(chan int)}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := types.Validate(tt.typ, tt.payload)
			if tt.wantErr {
				var verr *ValidationError
				if !errors.As(err, &verr) {
					t.Fatalf("Validate() error = %v, want *ValidationError", err)
				}
				if verr.Type != tt.typ {
					t.Errorf("ValidationError.Type = %q, want %q", verr.Type, tt.typ)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("Validate() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRegistry_ValidateRequest(t *testing.T) {
	types := DefaultRegistry()

	raw, err := types.ValidateRequest(TypeSetFSMState, SetFSMStateRequest{State: StateLaneFollowing})
	if err != nil {
		t.Fatalf("ValidateRequest() error = %v", err)
	}
	if string(raw) != `{"state":"LANE_FOLLOWING"}` {
		t.Errorf("ValidateRequest() = %s", raw)
	}

	raw, err = types.ValidateRequest("std_srvs/Trigger", nil)
	if err != nil {
		t.Fatalf("ValidateRequest(nil) error = %v", err)
	}
	if string(raw) != `{}` {
		t.Errorf("ValidateRequest(nil) = %s, want {}", raw)
	}

	if _, err := types.ValidateRequest(TypeSetFSMState, map[string]any{"mode": "x"}); err == nil {
		t.Error("ValidateRequest() accepted an unknown field")
	}
}

func TestRegistry_Decode(t *testing.T) {
	types := DefaultRegistry()

	v, err := types.Decode(TypeCompressedImage, json.RawMessage(`{"header":{"seq":3,"stamp":{"secs":10,"nsecs":5},"frame_id":"cam"},"format":"jpeg","data":"AQID"}`))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	img, ok := v.(*CompressedImage)
	if !ok {
		t.Fatalf("Decode() type = %T, want *CompressedImage", v)
	}
	if img.Format != "jpeg" || len(img.Data) != 3 || img.Header.Seq != 3 || img.Header.Stamp.Secs != 10 {
		t.Errorf("Decode() = %+v", img)
	}

	v, err = types.Decode("custom_msgs/Thing", json.RawMessage(`{"x":1}`))
	if err != nil {
		t.Fatalf("Decode(unknown) error = %v", err)
	}
	m, ok := v.(map[string]any)
	if !ok || m["x"] != float64(1) {
		t.Errorf("Decode(unknown) = %#v", v)
	}

	// Inbound messages may carry fields newer than our structs
	if _, err := types.Decode(TypeString, json.RawMessage(`{"data":"a","extra":true}`)); err != nil {
		t.Errorf("Decode() rejected an extra field: %v", err)
	}

	if _, err := types.Decode(TypeString, json.RawMessage(`[1]`)); !errors.Is(err, ErrNotObject) {
		t.Errorf("Decode(array) error = %v, want ErrNotObject", err)
	}
}

func TestRegistry_DecodeResponse(t *testing.T) {
	v, err := DefaultRegistry().DecodeResponse(TypeSetFSMState, json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("DecodeResponse() error = %v", err)
	}
	if _, ok := v.(*SetFSMStateResponse); !ok {
		t.Errorf("DecodeResponse() type = %T, want *SetFSMStateResponse", v)
	}
}

func TestRegistry_Register(t *testing.T) {
	type twist struct {
		V     float64 `json:"v"`
		Omega float64 `json:"omega"`
	}

	types := NewRegistry()
	if types.Known("duckietown_msgs/Twist2DStamped") {
		t.Fatal("empty registry knows a type")
	}

	types.Register("duckietown_msgs/Twist2DStamped", func() any { return &twist{} })
	if !types.Known("duckietown_msgs/Twist2DStamped") {
		t.Error("Known() = false after Register")
	}
	if _, err := types.Validate("duckietown_msgs/Twist2DStamped", map[string]any{"v": 1, "omega": 0}); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
	if _, err := types.Validate("duckietown_msgs/Twist2DStamped", map[string]any{"speed": 1}); err == nil {
		t.Error("Validate() accepted an unknown field")
	}
}

func TestNewHeader(t *testing.T) {
	h := NewHeader("base", time.Unix(1700000000, 250))

	if h.Stamp.Secs != 1700000000 || h.Stamp.Nsecs != 250 || h.FrameID != "base" {
		t.Errorf("NewHeader() = %+v", h)
	}
}
