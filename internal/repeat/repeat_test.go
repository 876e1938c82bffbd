package repeat

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromSettings(t *testing.T) {
	tests := []struct {
		settings Settings
		delay    time.Duration
		interval time.Duration
	}{
		{Settings{Delay: 0, Speed: 0}, 250 * time.Millisecond, 400 * time.Millisecond},
		{Settings{Delay: 3, Speed: 31}, 1000 * time.Millisecond, 33 * time.Millisecond},
		{Settings{Delay: 1, Speed: 0}, 500 * time.Millisecond, 400 * time.Millisecond},
		{Settings{Delay: 2, Speed: 31}, 750 * time.Millisecond, 33 * time.Millisecond},
		// 1000/hz is 233.96ms and 193.75ms; whole milliseconds are kept.
		{Settings{Delay: 0, Speed: 2}, 250 * time.Millisecond, 233 * time.Millisecond},
		{Settings{Delay: 0, Speed: 3}, 250 * time.Millisecond, 193 * time.Millisecond},
		{Settings{Delay: 0, Speed: 27}, 250 * time.Millisecond, 37 * time.Millisecond},
	}

	for _, test := range tests {
		t.Run(fmt.Sprintf("delay=%d,speed=%d", test.settings.Delay, test.settings.Speed), func(t *testing.T) {
			timing := FromSettings(test.settings)
			assert.Equal(t, test.delay, timing.InitialDelay)
			assert.Equal(t, test.interval, timing.RepeatInterval)
		})
	}
}

func TestFromSettingsClampsOutOfRange(t *testing.T) {
	assert.Equal(t, FromSettings(Settings{Delay: 0, Speed: 0}), FromSettings(Settings{Delay: -4, Speed: -1}))
	assert.Equal(t, FromSettings(Settings{Delay: 3, Speed: 31}), FromSettings(Settings{Delay: 9, Speed: 200}))
}

func TestOverride(t *testing.T) {
	base := FromSettings(Settings{})

	got := base.Override(0, 0)
	assert.Equal(t, base, got)

	got = base.Override(600*time.Millisecond, 0)
	assert.Equal(t, 600*time.Millisecond, got.InitialDelay)
	assert.Equal(t, base.RepeatInterval, got.RepeatInterval)

	got = base.Override(0, 20*time.Millisecond)
	assert.Equal(t, base.InitialDelay, got.InitialDelay)
	assert.Equal(t, 20*time.Millisecond, got.RepeatInterval)
}

func TestSettingsForDurationsRoundTrip(t *testing.T) {
	for delay := 0; delay <= MaxDelay; delay++ {
		for speed := 0; speed <= MaxSpeed; speed++ {
			s := Settings{Delay: delay, Speed: speed}
			timing := FromSettings(s)
			assert.Equal(t, s, SettingsForDurations(timing.InitialDelay, timing.RepeatInterval), "settings %+v", s)
		}
	}
}

func TestSettingsForDurationsClamps(t *testing.T) {
	// GNOME allows delays and rates outside the Windows ranges.
	s := SettingsForDurations(5*time.Second, 5*time.Millisecond)
	assert.Equal(t, Settings{Delay: MaxDelay, Speed: MaxSpeed}, s)

	s = SettingsForDurations(0, 0)
	assert.Equal(t, Settings{Delay: 0, Speed: 0}, s)
}

func TestSystemIsStable(t *testing.T) {
	first := System()
	second := System()
	assert.Equal(t, first, second)
	assert.Positive(t, first.InitialDelay)
	assert.Positive(t, first.RepeatInterval)
}
