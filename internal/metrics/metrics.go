package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FramesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fep_frames_received_total",
		Help: "Total inbound event frames received, labelled by type.",
	}, []string{"type"})

	FramesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fep_frames_dropped_total",
		Help: "Total inbound frames dropped: malformed JSON or a full inbound queue.",
	})

	AdmissionDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fep_admission_decisions_total",
		Help: "Total admission decisions, labelled by outcome (admit or a deny reason).",
	}, []string{"decision"})

	AlertsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fep_alerts_published_total",
		Help: "Total alerts successfully published to the egress topic.",
	})

	PublishFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fep_publish_failures_total",
		Help: "Total alert publishes that failed after exhausting retries.",
	})

	LiveEvents = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fep_live_events",
		Help: "Current number of in-flight events tracked in the Event Table.",
	})

	InboundQueueUtilization = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fep_inbound_queue_utilization_ratio",
		Help: "Current inbound frame queue utilization (0-1).",
	})

	PublishQueueUtilization = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fep_publish_queue_utilization_ratio",
		Help: "Current publish worker pool queue utilization (0-1).",
	})

	DeferralLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fep_deferral_latency_seconds",
		Help:    "Elapsed time between an event's creation and its deferral fire.",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
	})
)
