// Package artifact implements the Artifact Gate: it decides whether an
// Admitted event's snapshot/clip prerequisites are satisfied, optionally
// cross-checking the frame's has_snapshot/has_clip flags against
// Frigate's own HTTP surface when absolute confirmation is configured.
package artifact

import (
	"context"
	"fmt"
	"time"
)

// Kind identifies which artifact is being checked.
type Kind string

const (
	Snapshot Kind = "snapshot"
	Clip     Kind = "clip"
)

// Prober confirms artifact availability against the upstream server.
// HTTPProber is the production implementation.
type Prober interface {
	Available(ctx context.Context, eventID string, kind Kind) (bool, error)
}

// Gate optionally cross-checks artifact availability via Prober. The
// Gate never fetches artifacts itself — it only reads the frame's flags,
// delegating to Prober when Confirm is enabled.
type Gate struct {
	Prober  Prober
	Confirm bool
}

// New creates a Gate. A nil prober or Confirm=false disables active
// confirmation; the Admission Engine then relies solely on the frame's
// own has_snapshot/has_clip flags.
func New(prober Prober, confirm bool) *Gate {
	return &Gate{Prober: prober, Confirm: confirm}
}

// Check reports whether kind is available for eventID. A true flagValue
// (the frame's own flag) is trusted without probing. A false flagValue
// is returned unchanged when confirmation is disabled; otherwise the
// HTTP probe decides, and a probe error leaves the result false.
func (g *Gate) Check(ctx context.Context, eventID string, kind Kind, flagValue bool) bool {
	if flagValue || g == nil || !g.Confirm || g.Prober == nil {
		return flagValue
	}
	ok, err := g.Prober.Available(ctx, eventID, kind)
	if err != nil {
		return flagValue
	}
	return ok
}

// probeTimeout bounds a single HTTP confirmation attempt.
const probeTimeout = 3 * time.Second

func timeoutCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, probeTimeout)
}

func pathFor(kind Kind, eventID string) (string, error) {
	switch kind {
	case Snapshot:
		return fmt.Sprintf("/api/events/%s/snapshot.jpg", eventID), nil
	case Clip:
		return fmt.Sprintf("/api/events/%s/clip.mp4", eventID), nil
	default:
		return "", fmt.Errorf("artifact: unknown kind %q", kind)
	}
}
