// Package stationary implements the per-event bounding-box tracker: a
// bounded window of recent bbox centers used to detect objects that have
// stopped moving.
package stationary

import (
	"math"
	"time"

	"github.com/rgregg/frigate-event-processor/internal/frame"
)

// WindowSize bounds how many recent bbox-center samples a Track keeps.
const WindowSize = 8

// DefaultThreshold is τ, the default displacement threshold in
// frame-normalized units.
const DefaultThreshold = 0.02

type sample struct {
	at     time.Time
	center frame.Point
}

// Track holds one live event's bounded FIFO of recent bbox centers.
type Track struct {
	samples []sample
}

// Append records a new bbox center sample. A nil center (missing bbox)
// is skipped.
func (t *Track) Append(center *frame.Point, at time.Time) {
	if center == nil {
		return
	}
	t.samples = append(t.samples, sample{at: at, center: *center})
	if len(t.samples) > WindowSize {
		t.samples = t.samples[len(t.samples)-WindowSize:]
	}
}

// Displacement returns the maximum pairwise Euclidean distance over the
// window, and the time span the window covers.
func (t *Track) Displacement() (dist float64, span time.Duration) {
	if len(t.samples) == 0 {
		return 0, 0
	}
	span = t.samples[len(t.samples)-1].at.Sub(t.samples[0].at)
	for i := 0; i < len(t.samples); i++ {
		for j := i + 1; j < len(t.samples); j++ {
			d := euclidean(t.samples[i].center, t.samples[j].center)
			if d > dist {
				dist = d
			}
		}
	}
	return dist, span
}

func euclidean(a, b frame.Point) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Tracker evaluates whether a live event's Track is stationary.
type Tracker struct {
	Enabled          bool
	Threshold        float64
	MinEventDuration time.Duration
}

// IsStationary reports whether track's displacement is below Threshold
// AND the window spans at least MinEventDuration. When the tracker is
// disabled it always reports non-stationary.
func (t Tracker) IsStationary(track *Track) bool {
	if !t.Enabled || track == nil {
		return false
	}
	threshold := t.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	dist, span := track.Displacement()
	if len(track.samples) < 2 {
		return false
	}
	return dist < threshold && span >= t.MinEventDuration
}
