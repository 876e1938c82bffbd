package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"touchbox/internal/gamepad"
	"touchbox/internal/mapper"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// ErrInvalidConfig is returned when schema validation fails.
var ErrInvalidConfig = errors.New("invalid configuration")

// ValidateConfig performs comprehensive validation of the configuration.
func ValidateConfig(c *Config) error {
	var errs ValidationErrors

	// Validate version
	if c.Version < 1 || c.Version > Version {
		errs = append(errs, ValidationError{
			Field:   "version",
			Message: fmt.Sprintf("unsupported version %d (current: %d)", c.Version, Version),
		})
	}

	errs = append(errs, validateInput(&c.Input)...)
	errs = append(errs, validateRepeat(&c.Repeat)...)
	errs = append(errs, validateBindings(c.Bindings)...)
	errs = append(errs, validateSink(&c.Sink)...)
	errs = append(errs, validateLogging(&c.Logging)...)
	errs = append(errs, validateAudit(&c.Audit)...)
	errs = append(errs, validateMetrics(&c.Metrics)...)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateInput(in *InputConfig) ValidationErrors {
	var errs ValidationErrors

	if in.PollIntervalMs < 1 || in.PollIntervalMs > 1000 {
		errs = append(errs, *RangeError("input.poll_interval_ms", 1, 1000))
	}
	if in.LeftDeadzone < 0 || in.LeftDeadzone > 32767 {
		errs = append(errs, *RangeError("input.left_deadzone", 0, 32767))
	}
	if in.RightDeadzone < 0 || in.RightDeadzone > 32767 {
		errs = append(errs, *RangeError("input.right_deadzone", 0, 32767))
	}
	if in.TriggerThreshold < 0 || in.TriggerThreshold > 255 {
		errs = append(errs, *RangeError("input.trigger_threshold", 0, 255))
	}
	if in.MaxPads < 1 || in.MaxPads > gamepad.MaxUsers {
		errs = append(errs, *RangeError("input.max_pads", 1, gamepad.MaxUsers))
	}
	for i, dev := range in.Devices {
		if expandPath(dev) == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("input.devices[%d]", i),
				Message: "path cannot be empty",
			})
		}
	}

	return errs
}

func validateRepeat(r *RepeatConfig) ValidationErrors {
	var errs ValidationErrors

	if r.InitialDelayMs < 0 || r.InitialDelayMs > 10000 {
		errs = append(errs, *RangeError("repeat.initial_delay_ms", 0, 10000))
	}
	if r.RepeatIntervalMs < 0 || r.RepeatIntervalMs > 10000 {
		errs = append(errs, *RangeError("repeat.repeat_interval_ms", 0, 10000))
	}

	return errs
}

func validateBindings(bindings map[string]string) ValidationErrors {
	var errs ValidationErrors

	names := make([]string, 0, len(bindings))
	for name := range bindings {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		field := "bindings." + name
		if _, err := gamepad.ParseButton(name); err != nil {
			errs = append(errs, ValidationError{Field: field, Message: err.Error()})
			continue
		}
		value := bindings[name]
		if strings.EqualFold(value, "none") {
			continue
		}
		if _, err := mapper.ParseAction(value); err != nil {
			errs = append(errs, ValidationError{Field: field, Message: err.Error()})
		}
	}

	return errs
}

func validateSink(s *SinkConfig) ValidationErrors {
	var errs ValidationErrors

	switch s.Backend {
	case "native", "log":
		// Valid backends
	default:
		errs = append(errs, ValidationError{
			Field:   "sink.backend",
			Message: fmt.Sprintf("invalid sink backend: %s (valid: native, log)", s.Backend),
		})
	}

	if len(s.DeviceName) > 79 {
		errs = append(errs, ValidationError{
			Field:   "sink.device_name",
			Message: "device name cannot exceed 79 bytes",
		})
	}

	return errs
}

func validateLogging(l *LoggingConfig) ValidationErrors {
	var errs ValidationErrors

	switch l.Level {
	case "debug", "info", "warn", "error":
		// Valid levels
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid log level: %s (valid: debug, info, warn, error)", l.Level),
		})
	}

	switch l.Format {
	case "text", "json":
		// Valid formats
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("invalid log format: %s (valid: text, json)", l.Format),
		})
	}

	switch l.Output {
	case "stdout", "stderr", "file":
		if l.Output == "file" && l.FilePath == "" {
			errs = append(errs, ValidationError{
				Field:   "logging.file_path",
				Message: "file path is required when output is 'file'",
			})
		}
	default:
		// Assume it's a file path
		if l.Output == "" {
			errs = append(errs, *RequiredFieldError("logging.output"))
		}
	}

	if l.MaxSizeMB < 1 {
		errs = append(errs, ValidationError{
			Field:   "logging.max_size_mb",
			Message: "max size must be at least 1 MB",
		})
	}

	if l.MaxBackups < 0 {
		errs = append(errs, ValidationError{
			Field:   "logging.max_backups",
			Message: "max backups cannot be negative",
		})
	}

	if l.MaxAgeDays < 0 {
		errs = append(errs, ValidationError{
			Field:   "logging.max_age_days",
			Message: "max age cannot be negative",
		})
	}

	return errs
}

func validateAudit(a *AuditConfig) ValidationErrors {
	var errs ValidationErrors

	if a.Enabled && a.Path == "" {
		errs = append(errs, ValidationError{
			Field:   "audit.path",
			Message: "path is required when audit is enabled",
		})
	}

	return errs
}

func validateMetrics(m *MetricsConfig) ValidationErrors {
	var errs ValidationErrors

	if !m.Enabled {
		return errs
	}

	if _, _, err := net.SplitHostPort(m.Listen); err != nil {
		errs = append(errs, ValidationError{
			Field:   "metrics.listen",
			Message: fmt.Sprintf("invalid listen address: %v", err),
		})
	}
	if !strings.HasPrefix(m.Path, "/") {
		errs = append(errs, ValidationError{
			Field:   "metrics.path",
			Message: "path must start with /",
		})
	}

	return errs
}

// Helper functions

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// RequiredFieldError creates a validation error for a required field.
func RequiredFieldError(field string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: "required field is missing",
	}
}

// RangeError creates a validation error for an out-of-range value.
func RangeError(field string, min, max interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: fmt.Sprintf("value must be between %v and %v", min, max),
	}
}
