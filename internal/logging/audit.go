package logging

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"touchbox/internal/synth"
)

// AuditEventType represents the type of audit event.
type AuditEventType string

// Audit event types.
const (
	AuditEventStartup      AuditEventType = "startup"
	AuditEventShutdown     AuditEventType = "shutdown"
	AuditEventTransition   AuditEventType = "transition"
	AuditEventConfigChange AuditEventType = "config_change"
	AuditEventPad          AuditEventType = "pad"
	AuditEventError        AuditEventType = "error"
)

// AuditEvent is one line of the audit log.
type AuditEvent struct {
	Timestamp time.Time      `json:"timestamp"`
	EventType AuditEventType `json:"event_type"`
	Component string         `json:"component,omitempty"`
	Source    string         `json:"source,omitempty"`
	Tag       string         `json:"tag,omitempty"`
	Code      string         `json:"code,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// AuditLoggerConfig holds configuration for the audit logger.
type AuditLoggerConfig struct {
	// FilePath is the path to the audit log file.
	FilePath string

	// MaxSize is the maximum size in MB before rotation.
	MaxSize int64

	// MaxAge is the maximum age in days before deletion.
	MaxAge int

	// MaxBackups is the maximum number of rotated files to keep.
	MaxBackups int

	// Compress determines if rotated logs should be compressed.
	Compress bool

	// Component is the component name for audit events.
	Component string
}

// AuditLogger writes key transitions and lifecycle events as JSON lines.
// It implements synth.Observer.
type AuditLogger struct {
	config  *AuditLoggerConfig
	rotator *FileRotator
	now     func() time.Time
	mu      sync.Mutex
	errs    int
}

// NewAuditLogger creates a new AuditLogger.
func NewAuditLogger(cfg *AuditLoggerConfig) (*AuditLogger, error) {
	if cfg == nil || cfg.FilePath == "" {
		return nil, fmt.Errorf("audit log path is required")
	}

	rotator, err := NewFileRotator(&Config{
		FilePath:   cfg.FilePath,
		MaxSize:    cfg.MaxSize,
		MaxAge:     cfg.MaxAge,
		MaxBackups: cfg.MaxBackups,
		Compress:   cfg.Compress,
	})
	if err != nil {
		return nil, fmt.Errorf("create audit rotator: %w", err)
	}

	return &AuditLogger{
		config:  cfg,
		rotator: rotator,
		now:     time.Now,
	}, nil
}

// Log writes an audit event.
func (a *AuditLogger) Log(event AuditEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = a.now()
	}
	event.Timestamp = event.Timestamp.UTC()
	if event.Component == "" {
		event.Component = a.config.Component
	}

	data, err := json.Marshal(event)
	if err != nil {
		a.errs++
		return fmt.Errorf("marshal audit event: %w", err)
	}

	data = append(data, '\n')
	if _, err := a.rotator.Write(data); err != nil {
		a.errs++
		return fmt.Errorf("write audit event: %w", err)
	}

	return nil
}

// Observe records one key transition. Write failures are counted by
// Failures.
func (a *AuditLogger) Observe(d synth.Diagnostic) {
	_ = a.LogTransition(d)
}

// LogTransition logs one key transition.
func (a *AuditLogger) LogTransition(d synth.Diagnostic) error {
	return a.Log(AuditEvent{
		Timestamp: d.Time,
		EventType: AuditEventTransition,
		Source:    d.Source,
		Tag:       string(d.Tag),
		Code:      d.Code.String(),
	})
}

// Failures returns the number of events that could not be written.
func (a *AuditLogger) Failures() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.errs
}

// LogStartup logs a startup event.
func (a *AuditLogger) LogStartup(version string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	details["version"] = version
	return a.Log(AuditEvent{
		EventType: AuditEventStartup,
		Details:   details,
	})
}

// LogShutdown logs a shutdown event.
func (a *AuditLogger) LogShutdown(reason string, released int) error {
	return a.Log(AuditEvent{
		EventType: AuditEventShutdown,
		Details: map[string]any{
			"reason":   reason,
			"released": released,
		},
	})
}

// LogConfigChange logs a configuration change.
func (a *AuditLogger) LogConfigChange(setting, oldValue, newValue string) error {
	return a.Log(AuditEvent{
		EventType: AuditEventConfigChange,
		Details: map[string]any{
			"setting":   setting,
			"old_value": oldValue,
			"new_value": newValue,
		},
	})
}

// LogPad logs a controller connecting or disconnecting.
func (a *AuditLogger) LogPad(user int, connected bool) error {
	return a.Log(AuditEvent{
		EventType: AuditEventPad,
		Source:    fmt.Sprintf("pad%d", user),
		Details: map[string]any{
			"connected": connected,
		},
	})
}

// LogError logs an error event.
func (a *AuditLogger) LogError(operation string, err error) error {
	event := AuditEvent{
		EventType: AuditEventError,
		Details: map[string]any{
			"operation": operation,
		},
	}
	if err != nil {
		event.Error = err.Error()
	}
	return a.Log(event)
}

// Close closes the audit logger.
func (a *AuditLogger) Close() error {
	if a.rotator != nil {
		return a.rotator.Close()
	}
	return nil
}

// Sync flushes any buffered audit events.
func (a *AuditLogger) Sync() error {
	if a.rotator != nil {
		return a.rotator.Sync()
	}
	return nil
}
