package frame_test

import (
	"errors"
	"math"
	"testing"

	"github.com/rgregg/frigate-event-processor/internal/frame"
)

func TestDecode_New(t *testing.T) {
	payload := []byte(`{
		"type": "new",
		"after": {
			"id": "evt1", "camera": "yard", "label": "person",
			"start_time": 1000, "frame_time": 1000,
			"current_zones": ["yard"], "box": [0.1, 0.2, 0.3, 0.4],
			"has_snapshot": true, "has_clip": false
		}
	}`)
	f, err := frame.Decode(payload)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if f.ID != "evt1" || f.Camera != "yard" || f.Label != "person" {
		t.Errorf("unexpected identity fields: %+v", f)
	}
	if f.Type != frame.New {
		t.Errorf("Type = %v, want new", f.Type)
	}
	// The center is a float midpoint ((0.2+0.4)/2 is 0.30000000000000004),
	// so compare within a tolerance rather than bit-for-bit.
	const eps = 1e-9
	if f.BBoxCenter == nil || math.Abs(f.BBoxCenter.X-0.2) > eps || math.Abs(f.BBoxCenter.Y-0.3) > eps {
		t.Errorf("BBoxCenter = %+v, want {0.2 0.3}", f.BBoxCenter)
	}
	if !f.HasSnapshot || f.HasClip {
		t.Errorf("artifact flags = snapshot=%v clip=%v", f.HasSnapshot, f.HasClip)
	}
}

func TestDecode_EndPrefersBefore(t *testing.T) {
	payload := []byte(`{
		"type": "end",
		"before": {"id": "evt1", "camera": "yard", "label": "person", "current_zones": ["yard"]},
		"after": {"id": "evt1", "camera": "yard", "label": "person", "current_zones": []}
	}`)
	f, err := frame.Decode(payload)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if len(f.Zones) != 1 || f.Zones[0] != "yard" {
		t.Errorf("expected end frame to use 'before' zones, got %v", f.Zones)
	}
}

func TestDecode_MalformedJSON(t *testing.T) {
	_, err := frame.Decode([]byte(`not json`))
	if !errors.Is(err, frame.ErrMalformed) {
		t.Errorf("expected ErrMalformed, got %v", err)
	}
}

func TestDecode_MissingRequiredField(t *testing.T) {
	cases := []string{
		`{"type":"new","after":{"camera":"yard","label":"person"}}`,
		`{"type":"new","after":{"id":"evt1","label":"person"}}`,
		`{"type":"new","after":{"id":"evt1","camera":"yard"}}`,
	}
	for _, payload := range cases {
		_, err := frame.Decode([]byte(payload))
		if !errors.Is(err, frame.ErrMalformed) {
			t.Errorf("payload %q: expected ErrMalformed, got %v", payload, err)
		}
	}
}

func TestDecode_UnknownType(t *testing.T) {
	_, err := frame.Decode([]byte(`{"type":"weird","after":{"id":"e","camera":"c","label":"l"}}`))
	if !errors.Is(err, frame.ErrMalformed) {
		t.Errorf("expected ErrMalformed for unknown type, got %v", err)
	}
}

func TestDecode_UnknownFieldsIgnored(t *testing.T) {
	payload := []byte(`{"type":"new","after":{"id":"e","camera":"c","label":"l","totally_unknown_field":123}}`)
	if _, err := frame.Decode(payload); err != nil {
		t.Errorf("unexpected error tolerating unknown field: %v", err)
	}
}

func TestDecode_MissingBBoxLeavesNilCenter(t *testing.T) {
	f, err := frame.Decode([]byte(`{"type":"new","after":{"id":"e","camera":"c","label":"l"}}`))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if f.BBoxCenter != nil {
		t.Errorf("expected nil BBoxCenter, got %+v", f.BBoxCenter)
	}
}
