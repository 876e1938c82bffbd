// Package config handles configuration loading, validation, and management for touchbox.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"touchbox/internal/gamepad"
	"touchbox/internal/mapper"
	"touchbox/internal/repeat"
)

// Version is the current configuration schema version.
const Version = 1

// Config holds the complete touchbox configuration.
type Config struct {
	// Version is the configuration schema version.
	Version int `toml:"version" json:"version" yaml:"version"`

	// Input configuration for controller polling and quantization.
	Input InputConfig `toml:"input" json:"input" yaml:"input"`

	// Repeat overrides the system key-repeat timing.
	Repeat RepeatConfig `toml:"repeat" json:"repeat" yaml:"repeat"`

	// Bindings maps button names to key names or actions. Entries override
	// the default layout; "none" unbinds a button.
	Bindings map[string]string `toml:"bindings" json:"bindings" yaml:"bindings"`

	// Sink configuration for key injection.
	Sink SinkConfig `toml:"sink" json:"sink" yaml:"sink"`

	// Logging configuration.
	Logging LoggingConfig `toml:"logging" json:"logging" yaml:"logging"`

	// Audit configuration for the key transition log.
	Audit AuditConfig `toml:"audit" json:"audit" yaml:"audit"`

	// Metrics configuration for the Prometheus endpoint.
	Metrics MetricsConfig `toml:"metrics" json:"metrics" yaml:"metrics"`
}

// InputConfig holds controller polling configuration.
type InputConfig struct {
	// PollIntervalMs is the sleep between driver iterations.
	PollIntervalMs int `toml:"poll_interval_ms" json:"poll_interval_ms" yaml:"poll_interval_ms"`

	// LeftDeadzone is the left stick deadzone radius.
	LeftDeadzone int `toml:"left_deadzone" json:"left_deadzone" yaml:"left_deadzone"`

	// RightDeadzone is the right stick deadzone radius.
	RightDeadzone int `toml:"right_deadzone" json:"right_deadzone" yaml:"right_deadzone"`

	// TriggerThreshold is the trigger value a pull must exceed (0-255).
	TriggerThreshold int `toml:"trigger_threshold" json:"trigger_threshold" yaml:"trigger_threshold"`

	// MaxPads is the number of controller slots polled (1-4).
	MaxPads int `toml:"max_pads" json:"max_pads" yaml:"max_pads"`

	// Devices lists explicit evdev device paths (Linux only).
	// If empty, gamepads are discovered.
	Devices []string `toml:"devices" json:"devices" yaml:"devices"`
}

// RepeatConfig holds key-repeat overrides. Zero uses the system value.
type RepeatConfig struct {
	// InitialDelayMs is the delay before the first repeat.
	InitialDelayMs int `toml:"initial_delay_ms" json:"initial_delay_ms" yaml:"initial_delay_ms"`

	// RepeatIntervalMs is the interval between repeats.
	RepeatIntervalMs int `toml:"repeat_interval_ms" json:"repeat_interval_ms" yaml:"repeat_interval_ms"`
}

// SinkConfig holds key injection configuration.
type SinkConfig struct {
	// Backend is "native" (OS injection) or "log" (dry run).
	Backend string `toml:"backend" json:"backend" yaml:"backend"`

	// DeviceName names the virtual keyboard (Linux).
	DeviceName string `toml:"device_name" json:"device_name" yaml:"device_name"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level: "debug", "info", "warn", "error".
	Level string `toml:"level" json:"level" yaml:"level"`

	// Format is the log format: "text" or "json".
	Format string `toml:"format" json:"format" yaml:"format"`

	// Output is the log output: "stdout", "stderr", "file", or a file path.
	Output string `toml:"output" json:"output" yaml:"output"`

	// FilePath is the path to the log file (when Output is "file").
	FilePath string `toml:"file_path" json:"file_path" yaml:"file_path"`

	// MaxSizeMB is the maximum log file size before rotation.
	MaxSizeMB int `toml:"max_size_mb" json:"max_size_mb" yaml:"max_size_mb"`

	// MaxBackups is the number of old log files to keep.
	MaxBackups int `toml:"max_backups" json:"max_backups" yaml:"max_backups"`

	// MaxAgeDays is the maximum age of log files in days.
	MaxAgeDays int `toml:"max_age_days" json:"max_age_days" yaml:"max_age_days"`

	// Compress determines whether to compress rotated logs.
	Compress bool `toml:"compress" json:"compress" yaml:"compress"`
}

// AuditConfig holds key transition audit log configuration.
type AuditConfig struct {
	// Enabled determines whether transitions are written to the audit log.
	Enabled bool `toml:"enabled" json:"enabled" yaml:"enabled"`

	// Path is the audit log file.
	Path string `toml:"path" json:"path" yaml:"path"`
}

// MetricsConfig holds Prometheus endpoint configuration.
type MetricsConfig struct {
	// Enabled determines whether the metrics endpoint is served.
	Enabled bool `toml:"enabled" json:"enabled" yaml:"enabled"`

	// Listen is the host:port to serve on.
	Listen string `toml:"listen" json:"listen" yaml:"listen"`

	// Path is the HTTP path of the endpoint.
	Path string `toml:"path" json:"path" yaml:"path"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	logDir := PlatformLogDir()

	return &Config{
		Version: Version,
		Input: InputConfig{
			PollIntervalMs:   1,
			LeftDeadzone:     gamepad.DefaultLeftDeadzone,
			RightDeadzone:    gamepad.DefaultRightDeadzone,
			TriggerThreshold: gamepad.DefaultTriggerThreshold,
			MaxPads:          gamepad.MaxUsers,
			Devices:          []string{},
		},
		Repeat:   RepeatConfig{},
		Bindings: map[string]string{},
		Sink: SinkConfig{
			Backend:    "native",
			DeviceName: "touchbox virtual keyboard",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stderr",
			FilePath:   filepath.Join(logDir, "touchbox.log"),
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 7,
			Compress:   true,
		},
		Audit: AuditConfig{
			Enabled: false,
			Path:    filepath.Join(logDir, "transitions.jsonl"),
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Listen:  "127.0.0.1:9464",
			Path:    "/metrics",
		},
	}
}

// ConfigPath returns the default configuration file path.
func ConfigPath() string {
	return filepath.Join(TouchboxDir(), "config.toml")
}

// TouchboxDir returns the configuration directory.
// Uses the platform config directory or the TOUCHBOX_CONFIG_DIR override.
func TouchboxDir() string {
	if envDir := os.Getenv("TOUCHBOX_CONFIG_DIR"); envDir != "" {
		return envDir
	}
	return PlatformConfigDir()
}

// Load reads configuration from the specified path.
// If the file doesn't exist, returns default configuration.
// Supports TOML, JSON, and YAML formats based on file extension.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg, err := loadConfigFromFile(path)
	if err != nil {
		return nil, err
	}

	cfg.ApplyEnvOverrides()
	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if err := ValidateConfig(c); err != nil {
		return err
	}
	return ValidateSchema(c)
}

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables are prefixed with TOUCHBOX_ and use underscores.
func (c *Config) ApplyEnvOverrides() {
	// Logging overrides
	if v := os.Getenv("TOUCHBOX_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("TOUCHBOX_LOG_PATH"); v != "" {
		c.Logging.Output = "file"
		c.Logging.FilePath = v
	}

	// Sink override
	if v := os.Getenv("TOUCHBOX_SINK"); v != "" {
		c.Sink.Backend = v
	}

	// Metrics override
	if v := os.Getenv("TOUCHBOX_METRICS_LISTEN"); v != "" {
		c.Metrics.Enabled = true
		c.Metrics.Listen = v
	}
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c

	clone.Input.Devices = append([]string{}, c.Input.Devices...)
	clone.Bindings = make(map[string]string, len(c.Bindings))
	for k, v := range c.Bindings {
		clone.Bindings[k] = v
	}

	return &clone
}

// EnsureDirectories creates the directories of every configured file.
func (c *Config) EnsureDirectories() error {
	dirs := []string{}
	if c.Logging.Output == "file" {
		dirs = append(dirs, filepath.Dir(c.Logging.FilePath))
	}
	if c.Audit.Enabled {
		dirs = append(dirs, filepath.Dir(c.Audit.Path))
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	return nil
}

// PollInterval returns the driver sleep between iterations.
func (c InputConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// Thresholds returns the quantization thresholds.
func (c InputConfig) Thresholds() gamepad.Thresholds {
	return gamepad.Thresholds{
		LeftDeadzone:     c.LeftDeadzone,
		RightDeadzone:    c.RightDeadzone,
		TriggerThreshold: uint8(c.TriggerThreshold),
	}
}

// Apply overrides t with the configured values.
func (c RepeatConfig) Apply(t repeat.Timing) repeat.Timing {
	return t.Override(
		time.Duration(c.InitialDelayMs)*time.Millisecond,
		time.Duration(c.RepeatIntervalMs)*time.Millisecond,
	)
}

// BindingTable returns the default layout with the configured bindings
// applied.
func (c *Config) BindingTable() (mapper.Table, error) {
	return mapper.DefaultTable().With(c.Bindings)
}
