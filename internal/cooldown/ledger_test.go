package cooldown_test

import (
	"testing"
	"time"

	"github.com/rgregg/frigate-event-processor/internal/cooldown"
)

func TestLedger_CameraWindowBlocksOtherLabelOnSameCamera(t *testing.T) {
	l := cooldown.New(10*time.Second, 0)
	now := time.Unix(0, 0)
	l.Record("yard", "person", now)

	got := l.Check("yard", "car", now.Add(5*time.Second))
	if got.Allowed {
		t.Error("expected camera cooldown to block second alert regardless of label")
	}

	got = l.Check("yard", "car", now.Add(11*time.Second))
	if !got.Allowed {
		t.Error("expected camera cooldown to expire after window")
	}
}

func TestLedger_LabelWindowIsPerCameraLabelPair(t *testing.T) {
	l := cooldown.New(0, 10*time.Second)
	now := time.Unix(0, 0)
	l.Record("yard", "person", now)

	if got := l.Check("yard", "person", now.Add(5*time.Second)); got.Allowed {
		t.Error("expected label cooldown to block same camera+label")
	}
	if got := l.Check("yard", "car", now.Add(5*time.Second)); !got.Allowed {
		t.Error("expected label cooldown to allow different label on same camera")
	}
	if got := l.Check("driveway", "person", now.Add(5*time.Second)); !got.Allowed {
		t.Error("expected label cooldown to allow same label on different camera")
	}
}

func TestLedger_ZeroWindowDisablesDimension(t *testing.T) {
	l := cooldown.New(0, 0)
	now := time.Unix(0, 0)
	l.Record("yard", "person", now)
	if got := l.Check("yard", "person", now); !got.Allowed {
		t.Error("expected zero windows to disable cooldown entirely")
	}
}

func TestLedger_Prune_RemovesExpiredEntries(t *testing.T) {
	l := cooldown.New(5*time.Second, 5*time.Second)
	now := time.Unix(0, 0)
	l.Record("yard", "person", now)
	l.Prune(now.Add(100 * time.Second))

	// After pruning, the window has also long elapsed, so Check should
	// allow regardless; the meaningful assertion is that Record after
	// prune starts a fresh window rather than colliding with stale state.
	l.Record("yard", "person", now.Add(100*time.Second))
	got := l.Check("yard", "person", now.Add(102*time.Second))
	if got.Allowed {
		t.Error("expected fresh record after prune to still enforce its own window")
	}
}

func TestLedger_UntilReflectsWindowEnd(t *testing.T) {
	l := cooldown.New(10*time.Second, 0)
	now := time.Unix(0, 0)
	l.Record("yard", "person", now)
	got := l.Check("yard", "person", now.Add(3*time.Second))
	want := now.Add(10 * time.Second)
	if got.Allowed || !got.Until.Equal(want) {
		t.Errorf("Check = %+v, want Until=%v", got, want)
	}
}
