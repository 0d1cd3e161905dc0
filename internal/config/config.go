package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
)

// Weekday labels accepted in active_days, Monday first to match the UI.
var WeekdayLabels = []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

type Config struct {
	InstanceName string        `yaml:"instance_name,omitempty" json:"instance_name,omitempty"`
	Server       ServerConfig  `yaml:"server" json:"server"`
	Camera       CameraConfig  `yaml:"camera" json:"camera"`
	Capture      CaptureConfig `yaml:"capture" json:"capture"`
	Paused       bool          `yaml:"paused" json:"paused"`
}

type ServerConfig struct {
	Addr string `yaml:"addr" json:"addr"`
}

type CameraConfig struct {
	URL      string `yaml:"url" json:"url"`
	AuthType string `yaml:"auth_type" json:"auth_type"` // none, basic or digest
	Username string `yaml:"username,omitempty" json:"username,omitempty"`
	Password string `yaml:"password,omitempty" json:"password,omitempty"`
}

type CaptureConfig struct {
	SavePath        string   `yaml:"save_path" json:"save_path"`
	IntervalSeconds int      `yaml:"interval_seconds" json:"interval_seconds"`
	ActiveStart     string   `yaml:"active_start" json:"active_start"` // "HH:MM", window may wrap past midnight
	ActiveEnd       string   `yaml:"active_end" json:"active_end"`
	ActiveDays      []string `yaml:"active_days,omitempty" json:"active_days,omitempty"` // empty = every day
	UseSolar        bool     `yaml:"use_solar" json:"use_solar"`
	Latitude        float64  `yaml:"latitude" json:"latitude"`
	Longitude       float64  `yaml:"longitude" json:"longitude"`
	Timezone        string   `yaml:"timezone" json:"timezone"`
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	applyDefaults(&cfg)

	if err := validateAndNormalize(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Normalize applies defaults and validates a configuration assembled in
// memory, e.g. from a settings form, the same way Load treats one from disk.
func Normalize(cfg *Config) error {
	applyDefaults(cfg)
	return validateAndNormalize(cfg)
}

// Save writes the configuration back to disk. The dashboard calls this on
// settings edits and pause/resume so the state survives restarts.
func Save(path string, cfg *Config) error {
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Clone returns a deep copy so a reload can replace the config wholesale
// without sharing the weekday slice with the old snapshot.
func (c *Config) Clone() *Config {
	out := *c
	if c.Capture.ActiveDays != nil {
		out.Capture.ActiveDays = append([]string(nil), c.Capture.ActiveDays...)
	}
	return &out
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Server.Addr) == "" {
		cfg.Server.Addr = ":8080"
	}

	if strings.TrimSpace(cfg.Camera.AuthType) == "" {
		cfg.Camera.AuthType = "none"
	}

	cap := &cfg.Capture
	if strings.TrimSpace(cap.SavePath) == "" {
		cap.SavePath = "./pictures"
	}
	if cap.IntervalSeconds <= 0 {
		cap.IntervalSeconds = 10
	}
	if strings.TrimSpace(cap.ActiveStart) == "" {
		cap.ActiveStart = "06:00"
	}
	if strings.TrimSpace(cap.ActiveEnd) == "" {
		cap.ActiveEnd = "22:00"
	}
	if strings.TrimSpace(cap.Timezone) == "" {
		cap.Timezone = "Europe/Berlin"
	}
}

func validateAndNormalize(cfg *Config) error {
	cfg.Camera.URL = strings.TrimSpace(cfg.Camera.URL)
	cfg.Camera.AuthType = strings.ToLower(strings.TrimSpace(cfg.Camera.AuthType))

	if cfg.Camera.URL != "" &&
		!strings.HasPrefix(cfg.Camera.URL, "http://") && !strings.HasPrefix(cfg.Camera.URL, "https://") {
		return fmt.Errorf("config: camera url must start with http:// or https://")
	}

	switch cfg.Camera.AuthType {
	case "none", "basic", "digest":
	default:
		return fmt.Errorf("config: invalid auth_type %q (use none, basic or digest)", cfg.Camera.AuthType)
	}
	if cfg.Camera.AuthType != "none" && cfg.Camera.Username == "" {
		return fmt.Errorf("config: auth_type %q requires a username", cfg.Camera.AuthType)
	}

	cap := &cfg.Capture
	days := make([]string, 0, len(cap.ActiveDays))
	for _, d := range cap.ActiveDays {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		if !validWeekday(d) {
			return fmt.Errorf("config: invalid weekday %q (use %s)", d, strings.Join(WeekdayLabels, "/"))
		}
		days = append(days, d)
	}
	cap.ActiveDays = days

	if cap.Latitude < -90 || cap.Latitude > 90 {
		return fmt.Errorf("config: latitude must be -90..90")
	}
	if cap.Longitude < -180 || cap.Longitude > 180 {
		return fmt.Errorf("config: longitude must be -180..180")
	}

	// Active start/end are deliberately not validated here: a malformed
	// window string degrades to always-active at evaluation time so a bad
	// edit can never silently stop captures.
	return nil
}

func validWeekday(d string) bool {
	for _, w := range WeekdayLabels {
		if w == d {
			return true
		}
	}
	return false
}
