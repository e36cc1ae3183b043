// Package admission implements the Admission Engine: the state machine
// that consumes inbound event frames, drives the Event Table, schedules
// deferrals, and triggers publish. It is the only mutator of the Event
// Table and Cooldown Ledger, and it runs on a single goroutine so two
// operations for the same event id never interleave.
package admission

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/rgregg/frigate-event-processor/internal/artifact"
	"github.com/rgregg/frigate-event-processor/internal/clock"
	"github.com/rgregg/frigate-event-processor/internal/config"
	"github.com/rgregg/frigate-event-processor/internal/cooldown"
	"github.com/rgregg/frigate-event-processor/internal/eventtable"
	"github.com/rgregg/frigate-event-processor/internal/frame"
	"github.com/rgregg/frigate-event-processor/internal/metrics"
	"github.com/rgregg/frigate-event-processor/internal/publisher"
	"github.com/rgregg/frigate-event-processor/internal/rules"
	"github.com/rgregg/frigate-event-processor/internal/stationary"
	"github.com/rgregg/frigate-event-processor/internal/workerpool"
)

// reasonNoSnapshot and reasonNoClip are the only Deny reasons that permit
// the narrow Suppressed -> Pending exception (see isArtifactReason);
// reasonCooldown is recorded when the Cooldown Ledger blocks a publish.
const (
	reasonNoSnapshot = "no-snapshot"
	reasonNoClip     = "no-clip"
	reasonCooldown   = "cooldown"
)

func isArtifactReason(reason string) bool {
	return reason == reasonNoSnapshot || reason == reasonNoClip
}

type publishResult struct {
	eventID string
	err     error
}

// EventSummary is a diagnostic projection of one live event, copied out
// of the Event Table so a caller can hold it safely off the engine's own
// goroutine.
type EventSummary struct {
	EventID string
	Camera  string
	Label   string
	Status  string
	Alerted bool
	Reason  string
}

// liveSnapshot is the engine's hot diagnostic state, published by the
// Run goroutine and read lock-free by anyone else (the ops surface's
// live-event dump), the same atomic.Pointer hot-swap pattern used for
// other hot, frequently-read, rarely-written state.
type liveSnapshot struct {
	count  int
	events []EventSummary
}

// Engine is the Admission Engine. Construct with New and run with Run.
// Submit and Reconfigure are safe to call from other goroutines (they
// hand work to the engine's own loop over channels), as are the
// read-only QueueLen, QueueCap, EventCount and Snapshot.
type Engine struct {
	table    *eventtable.Table
	cooldown *cooldown.Ledger
	clk      clock.Clock
	gate     *artifact.Gate
	pub      *publisher.Publisher
	log      *slog.Logger

	cfg     *config.Document
	tracker stationary.Tracker

	pool *workerpool.Pool

	frames      chan frame.Frame
	deferrals   chan string
	publishDone chan publishResult
	reconfig    chan *config.Document

	snapshot atomic.Pointer[liveSnapshot]
}

// Options configures a new Engine.
type Options struct {
	Config     *config.Document
	Clock      clock.Clock
	Gate       *artifact.Gate
	Publisher  *publisher.Publisher
	Logger     *slog.Logger
	QueueDepth int
	Workers    int
}

// New builds an Engine. Call Run to start its event loop.
func New(ctx context.Context, opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.QueueDepth <= 0 {
		opts.QueueDepth = 256
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	e := &Engine{
		table:       eventtable.New(),
		cooldown:    cooldown.New(opts.Config.AlertRules.Cooldown.Camera.AsDuration(), opts.Config.AlertRules.Cooldown.Label.AsDuration()),
		clk:         opts.Clock,
		gate:        opts.Gate,
		pub:         opts.Publisher,
		log:         opts.Logger,
		cfg:         opts.Config,
		pool:        workerpool.New(ctx, opts.Workers, opts.QueueDepth),
		frames:      make(chan frame.Frame, opts.QueueDepth),
		deferrals:   make(chan string, opts.QueueDepth),
		publishDone: make(chan publishResult, opts.QueueDepth),
		reconfig:    make(chan *config.Document, 1),
	}
	e.tracker = trackerFor(opts.Config)
	e.snapshot.Store(&liveSnapshot{})
	return e
}

func trackerFor(cfg *config.Document) stationary.Tracker {
	return stationary.Tracker{
		Enabled:          cfg.ObjectTracking.Enabled,
		Threshold:        cfg.ObjectTracking.DisplacementThreshold,
		MinEventDuration: cfg.AlertRules.MinEventDuration.AsDuration(),
	}
}

// Submit hands an inbound frame to the engine, non-blocking. It returns
// false if the inbound queue is full, in which case the caller (the MQ
// subscriber callback) should log and drop rather than block.
func (e *Engine) Submit(f frame.Frame) bool {
	select {
	case e.frames <- f:
		return true
	default:
		return false
	}
}

// Reconfigure swaps the engine's live config document and rebuilds the
// derived cooldown windows and tracker settings. Applied on the engine's
// own loop, so it never races a frame or deferral in flight.
func (e *Engine) Reconfigure(cfg *config.Document) {
	e.reconfig <- cfg
}

// QueueLen and QueueCap expose inbound-queue occupancy for the ops
// surface's readiness check.
func (e *Engine) QueueLen() int { return len(e.frames) }
func (e *Engine) QueueCap() int { return cap(e.frames) }

// EventCount reports how many live events the Event Table currently
// holds, as of the last processed loop iteration. Safe to call from any
// goroutine: it reads the atomically published snapshot rather than the
// Event Table itself, which only the Run goroutine may touch.
func (e *Engine) EventCount() int { return e.snapshot.Load().count }

// Snapshot returns a diagnostic view of live events for internal/api,
// copied out of the Event Table on the engine's own goroutine. Safe to
// call from any goroutine for the same reason as EventCount.
func (e *Engine) Snapshot() []EventSummary { return e.snapshot.Load().events }

// Run drains inbound frames, deferral fires, publish completions, and
// config swaps on a single goroutine until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case f := <-e.frames:
			e.handleFrame(f)
		case id := <-e.deferrals:
			e.handleDeferralFire(id)
		case res := <-e.publishDone:
			e.handlePublishResult(res)
		case cfg := <-e.reconfig:
			e.applyConfig(cfg)
		}
		e.publishSnapshot()
		if e.QueueCap() > 0 {
			metrics.InboundQueueUtilization.Set(float64(e.QueueLen()) / float64(e.QueueCap()))
		}
		if e.pool.QueueCap() > 0 {
			metrics.PublishQueueUtilization.Set(float64(e.pool.QueueLen()) / float64(e.pool.QueueCap()))
		}
	}
}

// publishSnapshot copies the Event Table's current state into a fresh
// liveSnapshot and hot-swaps it in. It must only run on the Run
// goroutine, the Event Table's sole owner.
func (e *Engine) publishSnapshot() {
	recs := e.table.Snapshot()
	events := make([]EventSummary, len(recs))
	for i, r := range recs {
		events[i] = EventSummary{
			EventID: r.EventID,
			Camera:  r.Camera,
			Label:   r.Label,
			Status:  r.Status.String(),
			Alerted: r.Alerted,
			Reason:  r.SuppressReason,
		}
	}
	e.snapshot.Store(&liveSnapshot{count: len(recs), events: events})
	metrics.LiveEvents.Set(float64(len(recs)))
}

func (e *Engine) applyConfig(cfg *config.Document) {
	e.cfg = cfg
	e.cooldown = cooldown.New(cfg.AlertRules.Cooldown.Camera.AsDuration(), cfg.AlertRules.Cooldown.Label.AsDuration())
	e.tracker = trackerFor(cfg)
	e.log.Info("admission engine reconfigured")
}

func (e *Engine) handleFrame(f frame.Frame) {
	metrics.FramesReceived.WithLabelValues(string(f.Type)).Inc()
	rec := e.table.Get(f.ID)
	if rec == nil {
		e.handleFirstFrame(f)
		return
	}
	switch f.Type {
	case frame.End:
		e.handleEnd(rec, f)
	default:
		e.handleUpdate(rec, f)
	}
}

// handleFirstFrame handles a frame for an event id the Event Table
// hasn't seen yet, including the edge case where the first-ever frame
// received for an id is already type end.
func (e *Engine) handleFirstFrame(f frame.Frame) {
	if f.Type == frame.End {
		rec, _, _ := e.table.Upsert(f)
		e.table.Mark(rec.EventID, eventtable.Terminal)
		e.table.Remove(rec.EventID)
		return
	}

	rec, _, _ := e.table.Upsert(f)
	rec.Track.Append(f.BBoxCenter, f.LastUpdated)

	now := e.clk.Now()
	decision := rules.Evaluate(e.snapshotFor(rec), e.cfg, now)
	if !decision.Admit {
		metrics.AdmissionDecisions.WithLabelValues(decision.Reason).Inc()
		e.table.Mark(rec.EventID, eventtable.Suppressed)
		rec.SuppressReason = decision.Reason
		return
	}

	e.scheduleDeferral(rec, now)
}

func (e *Engine) scheduleDeferral(rec *eventtable.LiveEvent, now time.Time) {
	minDur := e.cfg.AlertRules.MinEventDuration.AsDuration()
	fireAt := now
	if minDur > 0 {
		age := now.Sub(rec.Created)
		if age < minDur {
			fireAt = rec.Created.Add(minDur)
		}
	}
	rec.DeferralAt = fireAt
	id := rec.EventID
	rec.DeferralHandle = e.clk.Schedule(fireAt, func() {
		e.deferrals <- id
	})
}

// handleUpdate handles a frame for an event id already tracked in the
// Event Table, including the narrow Suppressed -> Pending artifact
// exception and a "significant change" optimization that skips
// re-evaluation on frames that can't change the admission outcome.
func (e *Engine) handleUpdate(rec *eventtable.LiveEvent, f frame.Frame) {
	prevZones := rec.LastZones
	prevSnapshot := rec.LastHasSnapshot
	prevClip := rec.LastHasClip
	prevSubLabel := rec.SubLabel

	_, _, merged := e.table.Upsert(f)
	if merged {
		rec.Track.Append(f.BBoxCenter, f.LastUpdated)
	}
	if !merged {
		return
	}

	if rec.Status != eventtable.Suppressed {
		return
	}
	if !isArtifactReason(rec.SuppressReason) {
		return
	}
	if !isSignificant(prevZones, rec.LastZones, prevSnapshot, rec.LastHasSnapshot, prevClip, rec.LastHasClip, prevSubLabel, rec.SubLabel) {
		return
	}

	now := e.clk.Now()
	maxDur := e.cfg.AlertRules.MaxEventDuration.AsDuration()
	if maxDur > 0 && now.Sub(rec.Created) > maxDur {
		return
	}

	decision := rules.Evaluate(e.snapshotFor(rec), e.cfg, now)
	if !decision.Admit {
		rec.SuppressReason = decision.Reason
		return
	}

	e.table.Mark(rec.EventID, eventtable.Pending)
	rec.SuppressReason = ""
	e.scheduleDeferral(rec, now)
}

// isSignificant reports whether an update frame changed anything the
// admission decision can depend on. A bbox-only or timestamp-only update
// still feeds the Stationary Tracker but never triggers re-evaluation.
func isSignificant(prevZones, zones []string, prevSnapshot, snapshot, prevClip, clip bool, prevSubLabel, subLabel string) bool {
	if prevSnapshot != snapshot || prevClip != clip || prevSubLabel != subLabel {
		return true
	}
	if len(prevZones) != len(zones) {
		return true
	}
	seen := make(map[string]bool, len(prevZones))
	for _, z := range prevZones {
		seen[z] = true
	}
	for _, z := range zones {
		if !seen[z] {
			return true
		}
	}
	return false
}

// handleEnd handles the terminal frame for a tracked event id.
func (e *Engine) handleEnd(rec *eventtable.LiveEvent, f frame.Frame) {
	e.table.Upsert(f) // capture final zones/artifacts for diagnostics

	if rec.DeferralHandle != nil {
		rec.DeferralHandle.Cancel()
		rec.DeferralHandle = nil
	}

	wasAdmittedInFlight := rec.Status == eventtable.Admitted && !rec.Alerted
	e.table.Mark(rec.EventID, eventtable.Terminal)

	if wasAdmittedInFlight {
		// A publish is in flight; handlePublishResult removes the
		// record once it settles, and still sets alerted exactly once.
		return
	}
	e.table.Remove(rec.EventID)
}

// handleDeferralFire re-evaluates a record when its scheduled deferral
// fires, applying the cooldown check and dispatching a publish on admit.
func (e *Engine) handleDeferralFire(id string) {
	rec := e.table.Get(id)
	if rec == nil || rec.Status != eventtable.Pending {
		return
	}
	rec.DeferralHandle = nil
	now := e.clk.Now()
	metrics.DeferralLatency.Observe(now.Sub(rec.Created).Seconds())

	decision := rules.Evaluate(e.snapshotFor(rec), e.cfg, now)
	if isArtifactReason(decision.Reason) {
		var retried bool
		decision, retried = e.retryWithGate(rec, decision, now)
		if retried {
			return
		}
	}
	if !decision.Admit {
		metrics.AdmissionDecisions.WithLabelValues(decision.Reason).Inc()
		e.table.Mark(rec.EventID, eventtable.Suppressed)
		rec.SuppressReason = decision.Reason
		return
	}

	cd := e.cooldown.Check(rec.Camera, rec.Label, now)
	if !cd.Allowed {
		metrics.AdmissionDecisions.WithLabelValues(reasonCooldown).Inc()
		e.table.Mark(rec.EventID, eventtable.Suppressed)
		rec.SuppressReason = reasonCooldown
		return
	}

	metrics.AdmissionDecisions.WithLabelValues("admit").Inc()
	e.table.Mark(rec.EventID, eventtable.Admitted)
	e.dispatchPublish(rec)
}

// retryWithGate cross-checks an artifact-prerequisite Deny against the
// Gate's optional HTTP confirmation. If the artifact is now confirmed
// available it re-evaluates once with the flag flipped;
// otherwise, when age is still within max_event_duration, it reschedules
// a retry deferral and reports retried=true so the caller leaves the
// record Pending instead of finalizing the Deny. The HTTP confirmation
// runs synchronously on the engine goroutine, so frame processing waits
// for it (up to its 3s timeout); it is not dispatched to the worker pool.
func (e *Engine) retryWithGate(rec *eventtable.LiveEvent, decision rules.Decision, now time.Time) (result rules.Decision, retried bool) {
	if e.gate != nil && e.gate.Confirm {
		kind := artifact.Snapshot
		if decision.Reason == reasonNoClip {
			kind = artifact.Clip
		}
		confirmCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		available := e.gate.Check(confirmCtx, rec.EventID, kind, false)
		cancel()
		if available {
			if kind == artifact.Snapshot {
				rec.LastHasSnapshot = true
			} else {
				rec.LastHasClip = true
			}
			return rules.Evaluate(e.snapshotFor(rec), e.cfg, now), false
		}
	}
	return e.artifactTimeoutOrRetry(rec, decision, now)
}

// artifactTimeoutOrRetry reschedules a deferral to retry an
// artifact-prerequisite check, unless max_event_duration has elapsed.
func (e *Engine) artifactTimeoutOrRetry(rec *eventtable.LiveEvent, decision rules.Decision, now time.Time) (rules.Decision, bool) {
	maxDur := e.cfg.AlertRules.MaxEventDuration.AsDuration()
	if maxDur <= 0 || now.Sub(rec.Created) < maxDur {
		retryAt := now.Add(1 * time.Second)
		if maxDur > 0 {
			if deadline := rec.Created.Add(maxDur); retryAt.After(deadline) {
				retryAt = deadline
			}
		}
		id := rec.EventID
		rec.DeferralHandle = e.clk.Schedule(retryAt, func() {
			e.deferrals <- id
		})
		return rules.Decision{}, true
	}
	return decision, false
}

func (e *Engine) snapshotFor(rec *eventtable.LiveEvent) rules.Snapshot {
	return rules.Snapshot{
		Camera:         rec.Camera,
		Label:          rec.Label,
		Zones:          rec.LastZones,
		Created:        rec.Created,
		HasSnapshot:    rec.LastHasSnapshot,
		HasClip:        rec.LastHasClip,
		Stationary:     e.tracker.IsStationary(rec.Track),
		TrackerEnabled: e.tracker.Enabled,
	}
}

func (e *Engine) dispatchPublish(rec *eventtable.LiveEvent) {
	alert := publisher.Alert{
		EventID:   rec.EventID,
		Camera:    rec.Camera,
		Label:     rec.Label,
		SubLabel:  rec.SubLabel,
		CreatedAt: rec.Created.UTC().Format(time.RFC3339),
		Zones:     rec.LastZones,
		Reason:    "admit",
	}
	if rec.LastHasSnapshot {
		alert.SnapshotURL = artifactURL(e.cfg, rec.EventID, "snapshot.jpg")
	}
	if rec.LastHasClip {
		alert.ClipURL = artifactURL(e.cfg, rec.EventID, "clip.mp4")
	}

	id := rec.EventID
	if !e.pool.Submit(func(ctx context.Context) {
		err := e.pub.Publish(ctx, alert)
		e.publishDone <- publishResult{eventID: id, err: err}
	}) {
		e.log.Error("publish pool saturated, dropping alert", "event_id", id)
		e.publishDone <- publishResult{eventID: id, err: context.DeadlineExceeded}
	}
}

func artifactURL(cfg *config.Document, eventID, kind string) string {
	scheme := "http"
	if cfg.Frigate.SSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s:%d/api/events/%s/%s", scheme, cfg.Frigate.Host, cfg.Frigate.Port, eventID, kind)
}

// handlePublishResult applies the publish-outcome rules: alerted is set
// exactly once, and cooldown is recorded only on success.
func (e *Engine) handlePublishResult(res publishResult) {
	rec := e.table.Get(res.eventID)
	if rec == nil {
		return
	}
	rec.Alerted = true
	if res.err == nil {
		metrics.AlertsPublished.Inc()
		now := e.clk.Now()
		e.cooldown.Record(rec.Camera, rec.Label, now)
		// Every successful publish is a convenient, low-frequency point to
		// lazily bound the ledger's memory without a separate timer.
		e.cooldown.Prune(now)
	} else {
		metrics.PublishFailures.Inc()
	}
	if rec.Status == eventtable.Terminal {
		e.table.Remove(rec.EventID)
	}
}
