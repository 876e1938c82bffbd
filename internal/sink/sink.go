// Package sink delivers synthetic key events to the operating system.
//
// Platform support:
// - Windows: SendInput, with GetAsyncKeyState as the liveness probe
// - Linux: a uinput virtual keyboard (requires write access to /dev/uinput),
//   with evdev key state of the physical keyboards as the liveness probe
//
// The log backend and the Recorder work everywhere.
package sink

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"touchbox/internal/synth"
)

// Backend names.
const (
	BackendNative = "native"
	BackendLog    = "log"
)

// DefaultDeviceName names the Linux virtual keyboard.
const DefaultDeviceName = "touchbox virtual keyboard"

// ErrNotAvailable is returned when the native backend cannot be used on
// this platform.
var ErrNotAvailable = errors.New("sink: native key injection not available")

// Device is a sink that can also report OS key state.
type Device interface {
	synth.Sink
	synth.Prober
	Close() error
}

// Config configures Open.
type Config struct {
	// Backend is BackendNative or BackendLog. Empty means native.
	Backend string

	// DeviceName names the virtual keyboard where one is created.
	DeviceName string

	Logger *slog.Logger
}

// Open returns the configured backend.
func Open(cfg Config) (Device, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.DeviceName == "" {
		cfg.DeviceName = DefaultDeviceName
	}
	switch cfg.Backend {
	case "", BackendNative:
		return newNative(cfg)
	case BackendLog:
		return NewLog(cfg.Logger), nil
	default:
		return nil, fmt.Errorf("sink: unknown backend %q", cfg.Backend)
	}
}

// Log writes every event to a logger and never reports a key down.
type Log struct {
	logger *slog.Logger
}

// NewLog creates a Log sink.
func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logger}
}

// Emit logs the event.
func (l *Log) Emit(code synth.Code, pressed bool) error {
	l.logger.Info("key event", "code", code.String(), "pressed", pressed)
	return nil
}

// IsDown always reports false.
func (l *Log) IsDown(code synth.Code) bool {
	return false
}

// Close is a no-op.
func (l *Log) Close() error {
	return nil
}

// Event is one recorded key event.
type Event struct {
	Code    synth.Code
	Pressed bool
}

// Recorder keeps every event and mirrors the resulting key state. It is
// safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	down   map[synth.Code]bool
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{down: make(map[synth.Code]bool)}
}

// Emit records the event.
func (r *Recorder) Emit(code synth.Code, pressed bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Code: code, Pressed: pressed})
	if pressed {
		r.down[code] = true
	} else {
		delete(r.down, code)
	}
	return nil
}

// IsDown reports whether the last event for code was a press.
func (r *Recorder) IsDown(code synth.Code) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.down[code]
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Down returns the codes currently down, ordered by kind then value.
func (r *Recorder) Down() []synth.Code {
	r.mu.Lock()
	defer r.mu.Unlock()
	codes := make([]synth.Code, 0, len(r.down))
	for c := range r.down {
		codes = append(codes, c)
	}
	sort.Slice(codes, func(i, j int) bool {
		if codes[i].Kind != codes[j].Kind {
			return codes[i].Kind < codes[j].Kind
		}
		return codes[i].Value < codes[j].Value
	})
	return codes
}

// Reset forgets all events and state.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
	r.down = make(map[synth.Code]bool)
}

// Close is a no-op.
func (r *Recorder) Close() error {
	return nil
}
