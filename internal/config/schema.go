package config

import "time"

// Document is the top-level YAML structure recognized by FEP.
type Document struct {
	MQTT           MQTTConfig       `yaml:"mqtt"`
	Frigate        FrigateConfig    `yaml:"frigate"`
	Alerts         []AlertRule      `yaml:"alerts"`
	AlertRules     ThresholdConfig  `yaml:"alert_rules"`
	ObjectTracking ObjectTracking   `yaml:"object_tracking"`
	Logging        LoggingConfig    `yaml:"logging"`
}

// MQTTConfig holds the MQ endpoint the transport adapter connects to.
type MQTTConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	ListenTopic string `yaml:"listen_topic"`
	AlertTopic  string `yaml:"alert_topic"`
}

// FrigateConfig is the artifact fetch base URL.
type FrigateConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	SSL  bool   `yaml:"ssl"`
}

// ZoneRule scopes a require/ignore zone entry to a set of labels.
// A Labels value of ["*"] matches any label.
type ZoneRule struct {
	Zone   string   `yaml:"zone"`
	Labels []string `yaml:"labels"`
}

// AlertRule is a single per-camera admission rule.
type AlertRule struct {
	Camera  string     `yaml:"camera"`
	Labels  []string   `yaml:"labels"`
	Enabled *bool      `yaml:"enabled"`
	Zones   ZonesBlock `yaml:"zones"`
}

// ZonesBlock separates required from ignored zones.
type ZonesBlock struct {
	Require []ZoneRule `yaml:"require"`
	Ignore  []ZoneRule `yaml:"ignore"`
}

// EnabledOrDefault treats an absent `enabled` key as true: a rule only
// drops out of consideration when its enabled key is explicitly false.
func (a AlertRule) EnabledOrDefault() bool {
	return a.Enabled == nil || *a.Enabled
}

// ThresholdConfig holds the global duration/artifact/cooldown thresholds.
type ThresholdConfig struct {
	MinEventDuration Duration       `yaml:"min_event_duration"`
	MaxEventDuration Duration       `yaml:"max_event_duration"`
	Snapshot         bool           `yaml:"snapshot"`
	Video            bool           `yaml:"video"`
	Cooldown         CooldownConfig `yaml:"cooldown"`
}

// CooldownConfig holds the two cooldown windows. Zero disables the
// corresponding dimension.
type CooldownConfig struct {
	Camera Duration `yaml:"camera"`
	Label  Duration `yaml:"label"`
}

// ObjectTracking toggles the stationary-object tracker.
type ObjectTracking struct {
	Enabled              bool    `yaml:"enabled"`
	DisplacementThreshold float64 `yaml:"displacement_threshold"`
}

// LoggingConfig configures the external log sink.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	Path    string `yaml:"path"`
	MaxKeep int    `yaml:"max-keep"`
}

// defaultDisplacementThreshold is the stationary tracker's default
// bounding-box displacement threshold, as a fraction of frame width.
const defaultDisplacementThreshold = 0.02

// applyDefaults fills in the zero-value defaults FEP ships with.
func (d *Document) applyDefaults() {
	if d.ObjectTracking.DisplacementThreshold == 0 {
		d.ObjectTracking.DisplacementThreshold = defaultDisplacementThreshold
	}
	if d.MQTT.Port == 0 {
		d.MQTT.Port = 1883
	}
	if d.Frigate.Port == 0 {
		d.Frigate.Port = 5000
	}
	if d.Logging.Level == "" {
		d.Logging.Level = "info"
	}
}

// Duration wraps time.Duration for YAML decoding of a "s"/"m"/"h" suffix
// format. A bare number is rejected: the unit is always required.
type Duration time.Duration

func (d Duration) AsDuration() time.Duration { return time.Duration(d) }

func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		*d = 0
		return nil
	}
	parsed, err := ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}
