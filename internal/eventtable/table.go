// Package eventtable holds the in-memory map of live Frigate events. All
// operations are expected to run on the admission engine's single
// execution context; the type itself does no locking.
package eventtable

import (
	"time"

	"github.com/rgregg/frigate-event-processor/internal/clock"
	"github.com/rgregg/frigate-event-processor/internal/frame"
	"github.com/rgregg/frigate-event-processor/internal/stationary"
)

// Status is a live event's place in its admission lifecycle. Transitions
// are monotone: Pending -> {Admitted, Suppressed, Terminal}; Admitted ->
// Terminal; Suppressed -> Terminal, with the one narrow Suppressed ->
// Pending exception the Admission Engine implements.
type Status int

const (
	Pending Status = iota
	Admitted
	Suppressed
	Terminal
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Admitted:
		return "admitted"
	case Suppressed:
		return "suppressed"
	case Terminal:
		return "terminal"
	default:
		return "unknown"
	}
}

// LiveEvent is the Event Table's record for an in-flight event id.
type LiveEvent struct {
	// identity
	EventID  string
	Camera   string
	Label    string
	SubLabel string
	Created  time.Time

	// latest
	LastFrame       frame.Frame
	LastZones       []string
	LastBBoxCenter  *frame.Point
	LastUpdated     time.Time
	LastHasSnapshot bool
	LastHasClip     bool

	Status Status

	// deferral
	DeferralHandle clock.Handle
	DeferralAt     time.Time

	// SuppressReason records the last Deny reason so the engine can
	// apply the narrow Suppressed -> Pending exception for artifact
	// prerequisites only.
	SuppressReason string

	Track *stationary.Track

	Alerted bool
}

// Table is the keyed map of live events.
type Table struct {
	events map[string]*LiveEvent
}

// New creates an empty Table.
func New() *Table {
	return &Table{events: make(map[string]*LiveEvent)}
}

// Upsert creates a record for an unknown event id, or returns the
// existing one, applying the monotone-update rule: the frame is only
// merged into `latest` when its LastUpdated is >= the stored one, so a
// stale out-of-order frame cannot revert zones. merged reports whether f
// actually became the new `latest` (always true for a new record), so
// callers know whether to feed the Stationary Tracker.
func (t *Table) Upsert(f frame.Frame) (rec *LiveEvent, wasNew, merged bool) {
	rec, ok := t.events[f.ID]
	if !ok {
		rec = &LiveEvent{
			EventID: f.ID,
			Camera:  f.Camera,
			Label:   f.Label,
			Created: f.Created,
			Status:  Pending,
			Track:   &stationary.Track{},
		}
		t.events[f.ID] = rec
		wasNew = true
	}
	merged = wasNew || !f.LastUpdated.Before(rec.LastUpdated)
	if merged {
		rec.LastFrame = f
		rec.SubLabel = f.SubLabel
		rec.LastZones = f.Zones
		rec.LastBBoxCenter = f.BBoxCenter
		rec.LastUpdated = f.LastUpdated
		rec.LastHasSnapshot = f.HasSnapshot
		rec.LastHasClip = f.HasClip
	}
	return rec, wasNew, merged
}

// Get returns the record for id, or nil if none exists.
func (t *Table) Get(id string) *LiveEvent {
	return t.events[id]
}

// Mark transitions rec to status. Callers are responsible for only
// requesting transitions that respect the monotone lifecycle above.
func (t *Table) Mark(id string, status Status) {
	if rec, ok := t.events[id]; ok {
		rec.Status = status
	}
}

// Remove deletes id's record, once its status is Terminal and any
// deferral has settled.
func (t *Table) Remove(id string) {
	delete(t.events, id)
}

// Len reports how many live events are currently tracked. Like every
// other Table method, this must only be called from the goroutine that
// owns the Table (the Admission Engine's Run loop) — it does no locking
// of its own.
func (t *Table) Len() int {
	return len(t.events)
}

// Snapshot returns a shallow copy of all live records. The returned
// *LiveEvent pointers still alias engine-owned state and keep changing
// after the call returns, so callers on the Table's owning goroutine
// must copy out whatever fields they need before handing them anywhere
// else (see admission.Engine.publishSnapshot).
func (t *Table) Snapshot() []*LiveEvent {
	out := make([]*LiveEvent, 0, len(t.events))
	for _, rec := range t.events {
		out = append(out, rec)
	}
	return out
}
