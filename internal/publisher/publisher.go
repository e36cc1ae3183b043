// Package publisher implements the Publisher Adapter: it serializes an
// Admitted live event into the alert payload and hands it to the
// message-queue egress, retrying with backoff on failure.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// Egress is the narrow MQ publish surface the adapter depends on.
// internal/mqttclient.Client satisfies this.
type Egress interface {
	Publish(ctx context.Context, topic string, qos byte, retained bool, payload []byte) error
}

// Alert is the serialized admitted-event egress payload.
type Alert struct {
	EventID     string   `json:"event_id"`
	Camera      string   `json:"camera"`
	Label       string   `json:"label"`
	SubLabel    string   `json:"sub_label,omitempty"`
	CreatedAt   string   `json:"created_at"`
	Zones       []string `json:"zones"`
	SnapshotURL string   `json:"snapshot_url,omitempty"`
	ClipURL     string   `json:"clip_url,omitempty"`
	Reason      string   `json:"reason"`
}

// maxAttempts is the total number of attempts (first try included) for a
// single publish.
const maxAttempts = 3

// attemptTimeout bounds a single publish submission.
const attemptTimeout = 5 * time.Second

// Publisher hands admitted alerts to the egress topic.
type Publisher struct {
	egress Egress
	topic  string
	qos    byte
	log    *slog.Logger
}

// New creates a Publisher writing to topic at the given QoS.
func New(egress Egress, topic string, qos byte, log *slog.Logger) *Publisher {
	if log == nil {
		log = slog.Default()
	}
	return &Publisher{egress: egress, topic: topic, qos: qos, log: log}
}

// Publish serializes alert and submits it, making up to maxAttempts
// attempts with exponential backoff between them. It returns the last error if every
// attempt fails; callers still mark the event alerted on a final
// failure, since a retried publish after exhausting backoff risks a
// duplicate reaching a consumer that already saw the first attempt.
func (p *Publisher) Publish(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("publisher: marshal alert %s: %w", alert.EventID, err)
	}

	var lastErr error
	backoff := 250 * time.Millisecond
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, attemptTimeout)
		lastErr = p.egress.Publish(attemptCtx, p.topic, p.qos, false, payload)
		cancel()
		if lastErr == nil {
			return nil
		}
		p.log.Warn("alert publish attempt failed",
			"event_id", alert.EventID, "attempt", attempt, "err", lastErr)
		if attempt < maxAttempts {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			backoff *= 2
		}
	}
	p.log.Error("alert publish failed permanently", "event_id", alert.EventID, "err", lastErr)
	return lastErr
}
