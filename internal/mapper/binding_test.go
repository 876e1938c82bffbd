package mapper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"touchbox/internal/gamepad"
	"touchbox/internal/synth"
)

func TestDefaultTable(t *testing.T) {
	table := DefaultTable()

	tests := []struct {
		button gamepad.Button
		want   Action
	}{
		{gamepad.A, Key(synth.VKSpace)},
		{gamepad.B, Key(synth.VKReturn)},
		{gamepad.X, Key(synth.VKBack)},
		{gamepad.Y, Key(synth.VKEscape)},
		{gamepad.DPadUp, Key(synth.VKUp)},
		{gamepad.DPadDown, Key(synth.VKDown)},
		{gamepad.DPadLeft, Key(synth.VKLeft)},
		{gamepad.DPadRight, Key(synth.VKRight)},
		{gamepad.LeftShoulder, LeftShoulder},
		{gamepad.RightShoulder, RightShoulder},
		{gamepad.Back, Quit},
	}
	for _, test := range tests {
		t.Run(test.button.String(), func(t *testing.T) {
			got, ok := table.Lookup(test.button)
			require.True(t, ok)
			assert.Equal(t, test.want, got)
		})
	}

	_, ok := table.Lookup(gamepad.Start)
	assert.False(t, ok)
}

func TestParseAction(t *testing.T) {
	a, err := ParseAction("Left_Shoulder")
	require.NoError(t, err)
	assert.Equal(t, LeftShoulder, a)

	a, err = ParseAction("quit")
	require.NoError(t, err)
	assert.Equal(t, Quit, a)

	a, err = ParseAction("esc")
	require.NoError(t, err)
	assert.Equal(t, Key(synth.VKEscape), a)

	_, err = ParseAction("launch_missiles")
	assert.Error(t, err)
}

func TestTableWith(t *testing.T) {
	table, err := DefaultTable().With(map[string]string{
		"a":     "enter",
		"back":  "none",
		"start": "quit",
		"ls":    "tab",
	})
	require.NoError(t, err)

	a, _ := table.Lookup(gamepad.A)
	assert.Equal(t, Key(synth.VKReturn), a)

	_, ok := table.Lookup(gamepad.Back)
	assert.False(t, ok)

	start, _ := table.Lookup(gamepad.Start)
	assert.Equal(t, Quit, start)

	// Appended bindings follow button order.
	n := len(table)
	assert.Equal(t, gamepad.Start, table[n-2].Button)
	assert.Equal(t, gamepad.LeftThumb, table[n-1].Button)

	// The original is untouched.
	back, ok := DefaultTable().Lookup(gamepad.Back)
	require.True(t, ok)
	assert.Equal(t, Quit, back)
}

func TestTableWithErrors(t *testing.T) {
	_, err := DefaultTable().With(map[string]string{"z": "space"})
	assert.Error(t, err)

	_, err = DefaultTable().With(map[string]string{"a": "warp"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "binding a")
}

func TestTableMap(t *testing.T) {
	m := DefaultTable().Map()
	assert.Equal(t, "space", m["a"])
	assert.Equal(t, "left_shoulder", m["lb"])
	assert.Equal(t, "quit", m["back"])
	assert.Len(t, m, 11)
}
