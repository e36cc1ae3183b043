// Package cooldown implements the cooldown ledger: last-alert timestamps
// keyed by camera and by (camera, label), used to suppress repeat alerts
// within a configured window. It is authoritative only within the
// process; a restart clears it by design.
package cooldown

import (
	"fmt"
	"time"
)

// Result is the outcome of Check.
type Result struct {
	Allowed bool
	Until   time.Time // set when Allowed is false
}

// Ledger tracks last-alert times per camera and per (camera, label).
// It is mutated only by the Publisher Adapter path.
type Ledger struct {
	byCamera     map[string]time.Time
	byCameraName map[string]time.Time
	cameraWindow time.Duration
	labelWindow  time.Duration
}

// New creates a Ledger for the given cooldown windows. A zero window
// disables the corresponding dimension.
func New(cameraWindow, labelWindow time.Duration) *Ledger {
	return &Ledger{
		byCamera:     make(map[string]time.Time),
		byCameraName: make(map[string]time.Time),
		cameraWindow: cameraWindow,
		labelWindow:  labelWindow,
	}
}

// Check reports whether an alert for (camera, label) is allowed at now.
func (l *Ledger) Check(camera, label string, now time.Time) Result {
	if l.cameraWindow > 0 {
		if last, ok := l.byCamera[camera]; ok {
			until := last.Add(l.cameraWindow)
			if now.Before(until) {
				return Result{Allowed: false, Until: until}
			}
		}
	}
	if l.labelWindow > 0 {
		key := labelKey(camera, label)
		if last, ok := l.byCameraName[key]; ok {
			until := last.Add(l.labelWindow)
			if now.Before(until) {
				return Result{Allowed: false, Until: until}
			}
		}
	}
	return Result{Allowed: true}
}

// Record stores now for both the camera and (camera, label) keys.
// Called only on successful publish.
func (l *Ledger) Record(camera, label string, now time.Time) {
	l.byCamera[camera] = now
	l.byCameraName[labelKey(camera, label)] = now
}

// Prune discards entries older than both cooldown windows, lazily
// bounding the ledger's memory.
func (l *Ledger) Prune(now time.Time) {
	longest := l.cameraWindow
	if l.labelWindow > longest {
		longest = l.labelWindow
	}
	if longest <= 0 {
		return
	}
	for k, t := range l.byCamera {
		if now.Sub(t) > longest {
			delete(l.byCamera, k)
		}
	}
	for k, t := range l.byCameraName {
		if now.Sub(t) > longest {
			delete(l.byCameraName, k)
		}
	}
}

func labelKey(camera, label string) string {
	return fmt.Sprintf("%s\x00%s", camera, label)
}
