package gamepad

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrNotAvailable is returned when no controller backend exists on this
// platform or the backend cannot be loaded.
var ErrNotAvailable = errors.New("gamepad: controller input not available")

// Handler receives the state changes of every polled controller. A non-nil
// error stops the current Read.
type Handler interface {
	// ButtonsChanged is called when the button mask differs.
	ButtonsChanged(user int, old, cur State) error

	// LeftZoneChanged is called when the left stick moves to another zone.
	LeftZoneChanged(user int, old, cur State) error

	// RightZoneChanged is called when the right stick moves to another zone.
	RightZoneChanged(user int, old, cur State) error

	// LeftTriggerChanged is called when the left trigger crosses the threshold.
	LeftTriggerChanged(user int, cur State) error

	// RightTriggerChanged is called when the right trigger crosses the threshold.
	RightTriggerChanged(user int, cur State) error
}

// Source delivers raw controller samples.
type Source interface {
	// Poll returns the latest sample for a user slot. ok is false when no
	// controller is connected in that slot.
	Poll(user int) (raw Raw, ok bool)

	// Close releases the backend.
	Close() error
}

// SourceConfig configures Open.
type SourceConfig struct {
	// Devices lists explicit device paths (Linux). Empty means discover.
	Devices []string

	// Logger receives backend events. Nil uses slog.Default.
	Logger *slog.Logger
}

// Open returns the controller backend for the current platform.
func Open(cfg SourceConfig) (Source, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return newPlatformSource(cfg)
}

// ReaderConfig configures a Reader.
type ReaderConfig struct {
	Thresholds Thresholds

	// Users is the number of slots polled, at most MaxUsers. Zero means
	// MaxUsers.
	Users int

	Logger *slog.Logger
}

// Reader polls a Source and reports changes to a Handler. It is not safe
// for concurrent use.
type Reader struct {
	source     Source
	thresholds Thresholds
	users      int
	logger     *slog.Logger

	states    [MaxUsers]State
	connected [MaxUsers]bool
}

// NewReader creates a Reader over src.
func NewReader(src Source, cfg ReaderConfig) *Reader {
	users := cfg.Users
	if users <= 0 || users > MaxUsers {
		users = MaxUsers
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{
		source:     src,
		thresholds: cfg.Thresholds,
		users:      users,
		logger:     logger,
	}
}

// SetThresholds replaces the quantization thresholds. The next changed
// sample of each slot uses them.
func (r *Reader) SetThresholds(t Thresholds) {
	r.thresholds = t
}

// State returns the last state seen for user.
func (r *Reader) State(user int) State {
	if user < 0 || user >= MaxUsers {
		return State{}
	}
	return r.states[user]
}

// Connected reports whether user had a controller at the last Read.
func (r *Reader) Connected(user int) bool {
	if user < 0 || user >= MaxUsers {
		return false
	}
	return r.connected[user]
}

// Read polls every slot once. Slots whose packet number is unchanged are
// skipped. For the rest, h is called for each facet that changed, in the
// order buttons, left zone, right zone, left trigger, right trigger.
//
// A controller that disconnects is reported as a transition to the zero
// State so that nothing it held stays down.
func (r *Reader) Read(h Handler) error {
	for user := 0; user < r.users; user++ {
		raw, ok := r.source.Poll(user)
		if !ok {
			if r.connected[user] {
				r.connected[user] = false
				r.logger.Info("controller disconnected", "user", user)
				if err := r.update(h, user, State{}); err != nil {
					return err
				}
			}
			continue
		}
		if !r.connected[user] {
			r.connected[user] = true
			r.logger.Info("controller connected", "user", user)
		}
		if raw.Packet == r.states[user].Packet {
			continue
		}
		if err := r.update(h, user, r.thresholds.State(raw)); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reader) update(h Handler, user int, cur State) error {
	old := r.states[user]
	r.states[user] = cur

	if err := dispatch(h, user, old, cur); err != nil {
		return fmt.Errorf("user %d: %w", user, err)
	}
	return nil
}

func dispatch(h Handler, user int, old, cur State) error {
	if cur.Buttons != old.Buttons {
		if err := h.ButtonsChanged(user, old, cur); err != nil {
			return err
		}
	}
	if cur.Left != old.Left {
		if err := h.LeftZoneChanged(user, old, cur); err != nil {
			return err
		}
	}
	if cur.Right != old.Right {
		if err := h.RightZoneChanged(user, old, cur); err != nil {
			return err
		}
	}
	if cur.LeftTrigger != old.LeftTrigger {
		if err := h.LeftTriggerChanged(user, cur); err != nil {
			return err
		}
	}
	if cur.RightTrigger != old.RightTrigger {
		if err := h.RightTriggerChanged(user, cur); err != nil {
			return err
		}
	}
	return nil
}
