package synth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVK(t *testing.T) {
	tests := []struct {
		input    string
		expected uint16
	}{
		{"space", VKSpace},
		{"SPACE", VKSpace},
		{"enter", VKReturn},
		{"return", VKReturn},
		{"esc", VKEscape},
		{"backspace", VKBack},
		{"up", VKUp},
		{"f1", VKF1},
		{"f12", VKF1 + 11},
		{"a", 'A'},
		{"Z", 'Z'},
		{"7", '7'},
		{" lshift ", VKLShift},
	}

	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			vk, err := ParseVK(test.input)
			require.NoError(t, err)
			assert.Equal(t, test.expected, vk)
		})
	}
}

func TestParseVKUnknown(t *testing.T) {
	_, err := ParseVK("hyper")
	assert.Error(t, err)
	_, err = ParseVK("")
	assert.Error(t, err)
}

func TestVKName(t *testing.T) {
	assert.Equal(t, "space", VKName(VKSpace))
	assert.Equal(t, "a", VKName('A'))
	assert.Equal(t, "0xff", VKName(0xFF))
}

func TestKeyNamesSorted(t *testing.T) {
	names := KeyNames()
	assert.Contains(t, names, "space")
	assert.Contains(t, names, "esc")
	assert.IsNonDecreasing(t, names)
}

func TestCodeString(t *testing.T) {
	assert.Equal(t, "vk:0x20", VK(VKSpace).String())
	assert.Equal(t, "sc:0x1e", Scan(0x1E).String())
}

func TestTagsForVirtualKeys(t *testing.T) {
	assert.Equal(t, VKPressed, tagFor(VirtualKey, Pressed))
	assert.Equal(t, VKReleased, tagFor(VirtualKey, Released))
	assert.Equal(t, VKIgnored, tagFor(VirtualKey, Ignored))
	assert.Equal(t, VKAlreadyReleased, tagFor(VirtualKey, AlreadyReleased))
	assert.Equal(t, Ignored, tagFor(Scancode, Ignored))
	assert.Len(t, Tags, 8)
}
