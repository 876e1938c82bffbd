// Package repeat derives keyboard auto-repeat timing from the host's
// keyboard settings.
//
// The host reports two small integers: a delay setting (0-3, shortest to
// longest) and a speed setting (0-31, slowest to fastest). They map to
// durations the same way the Windows keyboard control panel does:
//
//	initialDelay   = 250ms*(3-delay)/3 + 1000ms*delay/3
//	repeatInterval = 1000ms / (2.5*(31-speed)/31 + 30*speed/31)
//
// Platforms without these settings map their native values onto them.
package repeat

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"
)

// Setting bounds.
const (
	MaxDelay = 3
	MaxSpeed = 31
)

// ErrNotSupported is returned when the platform has no keyboard settings query.
var ErrNotSupported = errors.New("repeat: keyboard settings query not supported on this platform")

// Settings are the raw host keyboard settings.
type Settings struct {
	// Delay is the initial repeat delay setting, 0 (250ms) to 3 (1s).
	Delay int
	// Speed is the repeat rate setting, 0 (2.5Hz) to 31 (30Hz).
	Speed int
}

// Clamp returns s with both fields forced into their valid ranges.
func (s Settings) Clamp() Settings {
	return Settings{
		Delay: clampInt(s.Delay, 0, MaxDelay),
		Speed: clampInt(s.Speed, 0, MaxSpeed),
	}
}

// Timing holds the auto-repeat durations.
type Timing struct {
	// InitialDelay is the time between the first down-event and the first repeat.
	InitialDelay time.Duration
	// RepeatInterval is the time between consecutive repeats.
	RepeatInterval time.Duration
}

// FromSettings computes the repeat timing for s. Out of range settings are
// clamped. Durations are truncated to whole milliseconds.
func FromSettings(s Settings) Timing {
	s = s.Clamp()
	delay := float64(s.Delay)
	speed := float64(s.Speed)

	delayMs := 250*(MaxDelay-delay)/MaxDelay + 1000*delay/MaxDelay
	hz := 2.5*(MaxSpeed-speed)/MaxSpeed + 30*speed/MaxSpeed

	return Timing{
		InitialDelay:   truncMs(delayMs),
		RepeatInterval: truncMs(1000 / hz),
	}
}

// Override returns t with non-zero arguments replacing the computed values.
func (t Timing) Override(initialDelay, repeatInterval time.Duration) Timing {
	if initialDelay > 0 {
		t.InitialDelay = initialDelay
	}
	if repeatInterval > 0 {
		t.RepeatInterval = repeatInterval
	}
	return t
}

// String returns a human-readable form of t.
func (t Timing) String() string {
	return fmt.Sprintf("delay=%s interval=%s", t.InitialDelay, t.RepeatInterval)
}

// SettingsForDurations returns the settings whose timing is closest to the
// given durations. It is used on platforms that report durations directly.
func SettingsForDurations(initialDelay, repeatInterval time.Duration) Settings {
	var s Settings

	// initialDelay is linear in delay: 250ms + 250ms*delay.
	ms := float64(initialDelay) / float64(time.Millisecond)
	s.Delay = int(math.Round((ms - 250) / 250))

	// Intervals are truncated, so pick the speed whose interval is nearest
	// rather than inverting the rate.
	if repeatInterval > 0 {
		best := time.Duration(math.MaxInt64)
		for speed := 0; speed <= MaxSpeed; speed++ {
			d := FromSettings(Settings{Speed: speed}).RepeatInterval - repeatInterval
			if d < 0 {
				d = -d
			}
			if d < best {
				best = d
				s.Speed = speed
			}
		}
	}

	return s.Clamp()
}

var (
	systemTiming Timing
	systemOnce   sync.Once
	systemErr    error
)

// System returns the timing derived from the host settings at first use.
// Later changes to the host settings are not observed. If the query fails,
// zero settings are used.
func System() Timing {
	systemOnce.Do(func() {
		s, err := QuerySettings()
		if err != nil {
			systemErr = err
			s = Settings{}
		}
		systemTiming = FromSettings(s)
	})
	return systemTiming
}

// SystemErr reports the error, if any, of the query made by System.
func SystemErr() error {
	System()
	return systemErr
}

func truncMs(ms float64) time.Duration {
	return time.Duration(math.Trunc(ms)) * time.Millisecond
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
