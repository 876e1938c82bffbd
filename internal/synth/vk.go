package synth

import (
	"fmt"
	"sort"
	"strings"
)

// Windows virtual-key codes used by the default bindings and accepted in
// configuration.
const (
	VKBack     uint16 = 0x08
	VKTab      uint16 = 0x09
	VKReturn   uint16 = 0x0D
	VKPause    uint16 = 0x13
	VKCapital  uint16 = 0x14
	VKEscape   uint16 = 0x1B
	VKSpace    uint16 = 0x20
	VKPrior    uint16 = 0x21
	VKNext     uint16 = 0x22
	VKEnd      uint16 = 0x23
	VKHome     uint16 = 0x24
	VKLeft     uint16 = 0x25
	VKUp       uint16 = 0x26
	VKRight    uint16 = 0x27
	VKDown     uint16 = 0x28
	VKInsert   uint16 = 0x2D
	VKDelete   uint16 = 0x2E
	VKLWin     uint16 = 0x5B
	VKApps     uint16 = 0x5D
	VKF1       uint16 = 0x70
	VKLShift   uint16 = 0xA0
	VKRShift   uint16 = 0xA1
	VKLControl uint16 = 0xA2
	VKRControl uint16 = 0xA3
	VKLMenu    uint16 = 0xA4
	VKRMenu    uint16 = 0xA5
)

var vkNames = map[string]uint16{
	"backspace": VKBack,
	"tab":       VKTab,
	"enter":     VKReturn,
	"pause":     VKPause,
	"capslock":  VKCapital,
	"escape":    VKEscape,
	"space":     VKSpace,
	"pageup":    VKPrior,
	"pagedown":  VKNext,
	"end":       VKEnd,
	"home":      VKHome,
	"left":      VKLeft,
	"up":        VKUp,
	"right":     VKRight,
	"down":      VKDown,
	"insert":    VKInsert,
	"delete":    VKDelete,
	"lwin":      VKLWin,
	"menu":      VKApps,
	"lshift":    VKLShift,
	"rshift":    VKRShift,
	"lctrl":     VKLControl,
	"rctrl":     VKRControl,
	"lalt":      VKLMenu,
	"ralt":      VKRMenu,
}

var vkAliases = map[string]string{
	"return": "enter",
	"esc":    "escape",
	"back":   "backspace",
	"del":    "delete",
}

func init() {
	for i := 0; i < 12; i++ {
		vkNames[fmt.Sprintf("f%d", i+1)] = VKF1 + uint16(i)
	}
	for c := '0'; c <= '9'; c++ {
		vkNames[string(c)] = uint16(c)
	}
	for c := 'a'; c <= 'z'; c++ {
		vkNames[string(c)] = uint16(c - 'a' + 'A')
	}
}

// ParseVK returns the virtual-key code for a key name such as "space",
// "enter", "f5" or "q". Names are case-insensitive.
func ParseVK(name string) (uint16, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if alias, ok := vkAliases[n]; ok {
		n = alias
	}
	if vk, ok := vkNames[n]; ok {
		return vk, nil
	}
	return 0, fmt.Errorf("unknown key name %q", name)
}

// VKName returns the canonical name of vk, or its hex value.
func VKName(vk uint16) string {
	for name, v := range vkNames {
		if v == vk {
			return name
		}
	}
	return fmt.Sprintf("0x%02x", vk)
}

// KeyNames returns every accepted key name, sorted.
func KeyNames() []string {
	names := make([]string, 0, len(vkNames)+len(vkAliases))
	for name := range vkNames {
		names = append(names, name)
	}
	for name := range vkAliases {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
