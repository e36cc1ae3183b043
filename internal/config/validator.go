package config

import (
	"fmt"
	"strings"
)

// Validate checks a Document for fatal-at-startup errors: duplicate
// camera rules, empty label lists, and missing MQ endpoints.
func Validate(cfg *Document) error {
	var errs []string

	if cfg.MQTT.Host == "" {
		errs = append(errs, "mqtt.host is required")
	}
	if cfg.MQTT.ListenTopic == "" {
		errs = append(errs, "mqtt.listen_topic is required")
	}
	if cfg.MQTT.AlertTopic == "" {
		errs = append(errs, "mqtt.alert_topic is required")
	}

	seenCameras := make(map[string]bool, len(cfg.Alerts))
	for i, a := range cfg.Alerts {
		if a.Camera == "" {
			errs = append(errs, fmt.Sprintf("alerts[%d]: camera is required", i))
			continue
		}
		if seenCameras[a.Camera] {
			errs = append(errs, fmt.Sprintf("alerts[%d]: duplicate camera rule for %q", i, a.Camera))
		}
		seenCameras[a.Camera] = true
		if len(a.Labels) == 0 {
			errs = append(errs, fmt.Sprintf("alerts[%d] (%s): labels must not be empty", i, a.Camera))
		}
		for j, z := range a.Zones.Require {
			if z.Zone == "" {
				errs = append(errs, fmt.Sprintf("alerts[%d] (%s): zones.require[%d].zone is required", i, a.Camera, j))
			}
		}
		for j, z := range a.Zones.Ignore {
			if z.Zone == "" {
				errs = append(errs, fmt.Sprintf("alerts[%d] (%s): zones.ignore[%d].zone is required", i, a.Camera, j))
			}
		}
	}

	// Negative durations can't reach here: ParseDuration (duration.go)
	// already rejects a "-" numeral before a Duration value ever exists.
	minDur := cfg.AlertRules.MinEventDuration.AsDuration()
	maxDur := cfg.AlertRules.MaxEventDuration.AsDuration()
	if maxDur > 0 && minDur > maxDur {
		errs = append(errs, "alert_rules.min_event_duration must not exceed alert_rules.max_event_duration")
	}
	if cfg.ObjectTracking.DisplacementThreshold < 0 {
		errs = append(errs, "object_tracking.displacement_threshold must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// RuleFor returns the enabled alert rule for camera, or ok=false if
// none matches.
func (d *Document) RuleFor(camera string) (AlertRule, bool) {
	for _, a := range d.Alerts {
		if a.Camera == camera && a.EnabledOrDefault() {
			return a, true
		}
	}
	return AlertRule{}, false
}
