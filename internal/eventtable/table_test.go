package eventtable_test

import (
	"testing"
	"time"

	"github.com/rgregg/frigate-event-processor/internal/eventtable"
	"github.com/rgregg/frigate-event-processor/internal/frame"
)

func TestUpsert_CreatesNewRecord(t *testing.T) {
	table := eventtable.New()
	f := frame.Frame{ID: "evt1", Camera: "yard", Label: "person", Zones: []string{"yard"}}

	rec, wasNew, merged := table.Upsert(f)
	if !wasNew || !merged {
		t.Fatalf("Upsert(new) = wasNew=%v merged=%v, want true,true", wasNew, merged)
	}
	if rec.EventID != "evt1" || rec.Status != eventtable.Pending {
		t.Errorf("unexpected new record: %+v", rec)
	}
	if table.Len() != 1 {
		t.Errorf("Len() = %d, want 1", table.Len())
	}
}

func TestUpsert_MergesNewerFrame(t *testing.T) {
	table := eventtable.New()
	base := time.Unix(1000, 0)
	first := frame.Frame{ID: "evt1", Camera: "yard", Label: "person", Zones: []string{"yard"}, LastUpdated: base}
	table.Upsert(first)

	second := frame.Frame{ID: "evt1", Camera: "yard", Label: "person", Zones: []string{"yard", "steps"}, LastUpdated: base.Add(time.Second)}
	rec, wasNew, merged := table.Upsert(second)
	if wasNew {
		t.Error("second upsert reported wasNew=true")
	}
	if !merged {
		t.Fatal("expected newer frame to merge")
	}
	if len(rec.LastZones) != 2 {
		t.Errorf("LastZones = %v, want merged zones", rec.LastZones)
	}
}

func TestUpsert_StaleFrameDoesNotMerge(t *testing.T) {
	table := eventtable.New()
	base := time.Unix(1000, 0)
	first := frame.Frame{ID: "evt1", Camera: "yard", Label: "person", Zones: []string{"yard", "steps"}, LastUpdated: base}
	table.Upsert(first)

	stale := frame.Frame{ID: "evt1", Camera: "yard", Label: "person", Zones: []string{"driveway"}, LastUpdated: base.Add(-time.Second)}
	rec, wasNew, merged := table.Upsert(stale)
	if wasNew {
		t.Error("stale upsert reported wasNew=true")
	}
	if merged {
		t.Fatal("expected stale frame not to merge")
	}
	if len(rec.LastZones) != 2 || rec.LastZones[1] != "steps" {
		t.Errorf("LastZones = %v, want unchanged from first frame", rec.LastZones)
	}
}

func TestUpsert_EqualTimestampMerges(t *testing.T) {
	table := eventtable.New()
	base := time.Unix(1000, 0)
	first := frame.Frame{ID: "evt1", Camera: "yard", Label: "person", Zones: []string{"yard"}, LastUpdated: base}
	table.Upsert(first)

	same := frame.Frame{ID: "evt1", Camera: "yard", Label: "person", Zones: []string{"steps"}, LastUpdated: base}
	rec, _, merged := table.Upsert(same)
	if !merged {
		t.Fatal("expected equal-timestamp frame to merge (>= comparison)")
	}
	if len(rec.LastZones) != 1 || rec.LastZones[0] != "steps" {
		t.Errorf("LastZones = %v, want [steps]", rec.LastZones)
	}
}

func TestMark_TransitionsStatus(t *testing.T) {
	table := eventtable.New()
	f := frame.Frame{ID: "evt1", Camera: "yard", Label: "person"}
	table.Upsert(f)
	table.Mark("evt1", eventtable.Admitted)
	if got := table.Get("evt1").Status; got != eventtable.Admitted {
		t.Errorf("Status = %v, want Admitted", got)
	}
}

func TestRemove_DeletesRecord(t *testing.T) {
	table := eventtable.New()
	table.Upsert(frame.Frame{ID: "evt1", Camera: "yard", Label: "person"})
	table.Remove("evt1")
	if table.Get("evt1") != nil {
		t.Error("expected record to be removed")
	}
	if table.Len() != 0 {
		t.Errorf("Len() = %d, want 0", table.Len())
	}
}

func TestSnapshot_ReturnsAllRecords(t *testing.T) {
	table := eventtable.New()
	table.Upsert(frame.Frame{ID: "evt1", Camera: "yard", Label: "person"})
	table.Upsert(frame.Frame{ID: "evt2", Camera: "driveway", Label: "car"})
	snap := table.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("Snapshot() len = %d, want 2", len(snap))
	}
}

func TestStatus_String(t *testing.T) {
	cases := map[eventtable.Status]string{
		eventtable.Pending:    "pending",
		eventtable.Admitted:   "admitted",
		eventtable.Suppressed: "suppressed",
		eventtable.Terminal:   "terminal",
		eventtable.Status(99): "unknown",
	}
	for status, want := range cases {
		if got := status.String(); got != want {
			t.Errorf("Status(%d).String() = %q, want %q", status, got, want)
		}
	}
}
