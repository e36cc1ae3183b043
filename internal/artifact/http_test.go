package artifact_test

import (
	"context"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/rgregg/frigate-event-processor/internal/artifact"
)

func TestHTTPProber_Available(t *testing.T) {
	prober := artifact.NewHTTPProber("http://frigate.local:5000", nil)
	httpmock.ActivateNonDefault(prober.Client)
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(
		"HEAD", "http://frigate.local:5000/api/events/evt1/snapshot.jpg",
		httpmock.NewStringResponder(200, ""),
	)

	ok, err := prober.Available(context.Background(), "evt1", artifact.Snapshot)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("expected snapshot to be reported available")
	}
}

func TestHTTPProber_NotFound(t *testing.T) {
	prober := artifact.NewHTTPProber("http://frigate.local:5000", nil)
	httpmock.ActivateNonDefault(prober.Client)
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(
		"HEAD", "http://frigate.local:5000/api/events/evt1/clip.mp4",
		httpmock.NewStringResponder(404, ""),
	)

	ok, err := prober.Available(context.Background(), "evt1", artifact.Clip)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected clip to be reported unavailable on 404")
	}
}

func TestHTTPProber_UnexpectedStatusIsError(t *testing.T) {
	prober := artifact.NewHTTPProber("http://frigate.local:5000", nil)
	httpmock.ActivateNonDefault(prober.Client)
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(
		"HEAD", "http://frigate.local:5000/api/events/evt1/snapshot.jpg",
		httpmock.NewStringResponder(500, ""),
	)

	_, err := prober.Available(context.Background(), "evt1", artifact.Snapshot)
	if err == nil {
		t.Error("expected an error on unexpected status code")
	}
}
