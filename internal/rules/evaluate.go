// Package rules implements the admission rule evaluator: a pure function
// from (event snapshot, configured rules, now) to an admit/deny
// decision. It never mutates state and never reads the wall clock
// itself — "now" is always an explicit input, which keeps it
// deterministic and independently testable.
package rules

import (
	"time"

	"github.com/rgregg/frigate-event-processor/internal/config"
)

// Decision is the outcome of Evaluate.
type Decision struct {
	Admit  bool
	Reason string // empty when Admit is true
}

func admit() Decision             { return Decision{Admit: true} }
func deny(reason string) Decision { return Decision{Admit: false, Reason: reason} }

// Snapshot is the read-only view of a live event the evaluator needs.
// It intentionally does not import eventtable to keep this package pure
// and independently testable.
type Snapshot struct {
	Camera      string
	Label       string
	Zones       []string
	Created     time.Time
	HasSnapshot bool
	HasClip     bool

	// Stationary and TrackerEnabled feed the stationary-object check.
	// The evaluator never checks a minimum duration itself; that is the
	// Admission Engine's deferral responsibility.
	Stationary     bool
	TrackerEnabled bool
}

// Evaluate runs the admission pipeline in a fixed step order,
// short-circuiting on the first failing step.
func Evaluate(snap Snapshot, doc *config.Document, now time.Time) Decision {
	rule, ok := doc.RuleFor(snap.Camera)
	if !ok {
		return deny("no-rule")
	}

	if !hasLabel(rule.Labels, snap.Label) {
		return deny("label")
	}

	for _, z := range rule.Zones.Ignore {
		if zonesIntersect(snap.Zones, z.Zone) && labelScoped(z.Labels, snap.Label) {
			return deny("ignored-zone")
		}
	}

	if len(rule.Zones.Require) > 0 {
		matched := false
		for _, z := range rule.Zones.Require {
			if zonesIntersect(snap.Zones, z.Zone) && labelScoped(z.Labels, snap.Label) {
				matched = true
				break
			}
		}
		if !matched {
			return deny("missing-required-zone")
		}
	}

	maxDur := doc.AlertRules.MaxEventDuration.AsDuration()
	if maxDur > 0 {
		age := now.Sub(snap.Created)
		if age > maxDur {
			return deny("too-old")
		}
	}

	if doc.AlertRules.Snapshot && !snap.HasSnapshot {
		return deny("no-snapshot")
	}
	if doc.AlertRules.Video && !snap.HasClip {
		return deny("no-clip")
	}

	if snap.TrackerEnabled && snap.Stationary {
		return deny("stationary")
	}

	return admit()
}

// hasLabel reports whether labels contains label or the wildcard "*".
func hasLabel(labels []string, label string) bool {
	for _, l := range labels {
		if l == "*" || l == label {
			return true
		}
	}
	return false
}

// labelScoped reports whether a zone entry's label scope covers label.
// A scope of ["*"] (or empty, treated permissively as "*") matches any label.
func labelScoped(scope []string, label string) bool {
	if len(scope) == 0 {
		return true
	}
	for _, l := range scope {
		if l == "*" || l == label {
			return true
		}
	}
	return false
}

// zonesIntersect reports whether zone appears in the event's current zones.
// Zone comparisons are exact-string, case-sensitive.
func zonesIntersect(eventZones []string, zone string) bool {
	for _, z := range eventZones {
		if z == zone {
			return true
		}
	}
	return false
}
