package logging

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"sort"
	"sync"
	"time"
)

// ErrPanic wraps a recovered panic.
var ErrPanic = errors.New("panic")

// CrashReport represents information about a crash.
type CrashReport struct {
	Timestamp    time.Time      `json:"timestamp"`
	Version      string         `json:"version"`
	GOOS         string         `json:"goos"`
	GOARCH       string         `json:"goarch"`
	NumGoroutine int            `json:"num_goroutine"`
	PanicValue   string         `json:"panic_value"`
	StackTrace   string         `json:"stack_trace"`
	Component    string         `json:"component,omitempty"`
	Context      map[string]any `json:"context,omitempty"`
}

// CrashHandlerConfig configures the crash handler.
type CrashHandlerConfig struct {
	// CrashDir is the directory to write crash dumps. Empty disables dumps.
	CrashDir string

	// Version is the application version.
	Version string

	// Component is the component name.
	Component string

	// OnCrash runs after the report is written, before Recover returns.
	// The driver uses it to release every held key.
	OnCrash func(CrashReport)

	// Logger receives the crash summary. Nil uses slog.Default.
	Logger *slog.Logger
}

// CrashHandler turns panics into crash reports and errors.
type CrashHandler struct {
	mu     sync.Mutex
	config CrashHandlerConfig
}

// NewCrashHandler creates a new CrashHandler.
func NewCrashHandler(cfg CrashHandlerConfig) *CrashHandler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &CrashHandler{config: cfg}
}

// Recover runs fn and converts a panic into an error wrapping ErrPanic.
func (h *CrashHandler) Recover(contextInfo map[string]any, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			report := h.HandlePanic(r, contextInfo)
			err = fmt.Errorf("%w: %s", ErrPanic, report.PanicValue)
		}
	}()
	return fn()
}

// HandlePanic records panicValue and runs OnCrash.
func (h *CrashHandler) HandlePanic(panicValue any, contextInfo map[string]any) CrashReport {
	h.mu.Lock()
	defer h.mu.Unlock()

	report := CrashReport{
		Timestamp:    time.Now().UTC(),
		Version:      h.config.Version,
		GOOS:         runtime.GOOS,
		GOARCH:       runtime.GOARCH,
		NumGoroutine: runtime.NumGoroutine(),
		PanicValue:   fmt.Sprintf("%v", panicValue),
		StackTrace:   string(debug.Stack()),
		Component:    h.config.Component,
		Context:      contextInfo,
	}

	path, err := h.writeCrashDump(report)
	if err != nil {
		h.config.Logger.Error("write crash report", "error", err)
	}

	if h.config.OnCrash != nil {
		h.config.OnCrash(report)
	}

	h.config.Logger.Error("crash",
		"panic", report.PanicValue,
		"report", path,
	)
	return report
}

func (h *CrashHandler) writeCrashDump(report CrashReport) (string, error) {
	if h.config.CrashDir == "" {
		return "", nil
	}
	if err := os.MkdirAll(h.config.CrashDir, 0750); err != nil {
		return "", fmt.Errorf("create crash dir: %w", err)
	}

	filename := fmt.Sprintf("crash-%s-%s.json",
		report.Component,
		report.Timestamp.Format("20060102-150405.000"))
	path := filepath.Join(h.config.CrashDir, filename)

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal crash report: %w", err)
	}

	if err := os.WriteFile(path, data, 0640); err != nil {
		return "", fmt.Errorf("write crash report: %w", err)
	}

	return path, nil
}

// CrashReports returns the reports in CrashDir, oldest first.
func (h *CrashHandler) CrashReports() ([]CrashReport, error) {
	if h.config.CrashDir == "" {
		return nil, nil
	}
	files, err := filepath.Glob(filepath.Join(h.config.CrashDir, "crash-*.json"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)

	reports := make([]CrashReport, 0, len(files))
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			continue
		}

		var report CrashReport
		if err := json.Unmarshal(data, &report); err != nil {
			continue
		}

		reports = append(reports, report)
	}

	return reports, nil
}
