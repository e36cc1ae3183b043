// Package frame decodes inbound Frigate event messages into a closed
// tagged variant (New | Update | End) instead of the duck-typed
// before/after payload the upstream server actually publishes.
package frame

import (
	"encoding/json"
	"errors"
	"time"
)

// Type discriminates a frame's place in an event's lifecycle.
type Type string

const (
	New    Type = "new"
	Update Type = "update"
	End    Type = "end"
)

// ErrMalformed is returned when a message cannot be decoded into a Frame.
var ErrMalformed = errors.New("frame: malformed message")

// Point is a bbox center in frame-normalized coordinates.
type Point struct {
	X float64
	Y float64
}

// Frame is a single decoded inbound event message.
type Frame struct {
	ID          string
	Type        Type
	Camera      string
	Label       string
	SubLabel    string
	Created     time.Time
	LastUpdated time.Time
	Zones       []string
	BBoxCenter  *Point
	HasSnapshot bool
	HasClip     bool
}

// wireEnvelope mirrors the {type, before, after} shape Frigate publishes.
type wireEnvelope struct {
	Type   string          `json:"type"`
	Before json.RawMessage `json:"before"`
	After  json.RawMessage `json:"after"`
}

// wireEvent mirrors a single before/after event object. Unknown fields
// are ignored automatically by encoding/json.
type wireEvent struct {
	ID           string    `json:"id"`
	Camera       string    `json:"camera"`
	Label        string    `json:"label"`
	SubLabel     []wireSub `json:"sub_label"`
	StartTime    float64   `json:"start_time"`
	FrameTime    float64   `json:"frame_time"`
	CurrentZones []string  `json:"current_zones"`
	Box          []float64 `json:"box"`
	HasClip      bool      `json:"has_clip"`
	HasSnapshot  bool      `json:"has_snapshot"`
}

type wireSub struct {
	SubLabel string `json:"subLabel"`
}

// Decode parses a raw MQ ingress payload into a Frame. Malformed
// messages (bad JSON, missing id/camera/label) return ErrMalformed
// wrapping the underlying cause; callers must log and drop, never crash.
func Decode(payload []byte) (Frame, error) {
	var env wireEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return Frame{}, errors.Join(ErrMalformed, err)
	}

	var body json.RawMessage
	switch Type(env.Type) {
	case New, Update:
		body = env.After
	case End:
		if len(env.Before) > 0 {
			body = env.Before
		} else {
			body = env.After
		}
	default:
		return Frame{}, errors.Join(ErrMalformed, errors.New("frame: unknown type "+env.Type))
	}
	if len(body) == 0 {
		return Frame{}, errors.Join(ErrMalformed, errors.New("frame: missing event body"))
	}

	var we wireEvent
	if err := json.Unmarshal(body, &we); err != nil {
		return Frame{}, errors.Join(ErrMalformed, err)
	}
	if we.ID == "" || we.Camera == "" || we.Label == "" {
		return Frame{}, errors.Join(ErrMalformed, errors.New("frame: missing id/camera/label"))
	}

	f := Frame{
		ID:          we.ID,
		Type:        Type(env.Type),
		Camera:      we.Camera,
		Label:       we.Label,
		Zones:       we.CurrentZones,
		HasSnapshot: we.HasSnapshot,
		HasClip:     we.HasClip,
	}
	if len(we.SubLabel) > 0 {
		f.SubLabel = we.SubLabel[0].SubLabel
	}
	if we.StartTime > 0 {
		f.Created = time.Unix(0, int64(we.StartTime*float64(time.Second))).UTC()
	}
	if we.FrameTime > 0 {
		f.LastUpdated = time.Unix(0, int64(we.FrameTime*float64(time.Second))).UTC()
	}
	if len(we.Box) == 4 {
		f.BBoxCenter = &Point{
			X: (we.Box[0] + we.Box[2]) / 2,
			Y: (we.Box[1] + we.Box[3]) / 2,
		}
	}
	return f, nil
}
