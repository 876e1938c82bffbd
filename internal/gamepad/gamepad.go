// Package gamepad models game-controller state and turns polled samples into
// change notifications.
//
// A Source delivers raw samples per user slot. The Reader quantizes each
// sample into a State, compares it with the previous State of that slot and
// calls the Handler once for every facet that changed: buttons, either
// thumbstick zone, either trigger.
//
// Platform support:
// - Windows: XInput (xinput1_4.dll)
// - Linux: evdev joystick devices (requires the input group or root)
package gamepad

import (
	"fmt"
	"strings"

	"touchbox/internal/analog"
)

// MaxUsers is the number of controller slots polled.
const MaxUsers = 4

// Button is one bit of the controller button mask. Values match XInput.
type Button uint16

const (
	DPadUp        Button = 0x0001
	DPadDown      Button = 0x0002
	DPadLeft      Button = 0x0004
	DPadRight     Button = 0x0008
	Start         Button = 0x0010
	Back          Button = 0x0020
	LeftThumb     Button = 0x0040
	RightThumb    Button = 0x0080
	LeftShoulder  Button = 0x0100
	RightShoulder Button = 0x0200
	A             Button = 0x1000
	B             Button = 0x2000
	X             Button = 0x4000
	Y             Button = 0x8000
)

// Buttons lists every button in bit order.
var Buttons = []Button{
	DPadUp, DPadDown, DPadLeft, DPadRight,
	Start, Back, LeftThumb, RightThumb,
	LeftShoulder, RightShoulder,
	A, B, X, Y,
}

var buttonNames = map[Button]string{
	DPadUp:        "dpad_up",
	DPadDown:      "dpad_down",
	DPadLeft:      "dpad_left",
	DPadRight:     "dpad_right",
	Start:         "start",
	Back:          "back",
	LeftThumb:     "ls",
	RightThumb:    "rs",
	LeftShoulder:  "lb",
	RightShoulder: "rb",
	A:             "a",
	B:             "b",
	X:             "x",
	Y:             "y",
}

func (b Button) String() string {
	if name, ok := buttonNames[b]; ok {
		return name
	}
	return fmt.Sprintf("button(0x%04x)", uint16(b))
}

// ParseButton returns the button with the given name, as produced by String.
func ParseButton(name string) (Button, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for b, s := range buttonNames {
		if s == n {
			return b, nil
		}
	}
	return 0, fmt.Errorf("unknown button %q", name)
}

// Raw is one unprocessed controller sample.
type Raw struct {
	Packet       uint32
	Buttons      uint16
	LeftTrigger  uint8
	RightTrigger uint8
	ThumbLX      int16
	ThumbLY      int16
	ThumbRX      int16
	ThumbRY      int16
}

// State is a quantized controller sample.
type State struct {
	Packet       uint32
	Buttons      uint16
	Left         analog.Zone
	Right        analog.Zone
	LeftTrigger  bool
	RightTrigger bool
}

// Pressed reports whether b is held in s.
func (s State) Pressed(b Button) bool {
	return s.Buttons&uint16(b) != 0
}

func (s State) String() string {
	return fmt.Sprintf("packet=%d buttons=0x%04x left=%s right=%s lt=%t rt=%t",
		s.Packet, s.Buttons, s.Left, s.Right, s.LeftTrigger, s.RightTrigger)
}

// XInput defaults.
const (
	DefaultLeftDeadzone     = 7849
	DefaultRightDeadzone    = 8689
	DefaultTriggerThreshold = 30
)

// Thresholds controls how a Raw sample is quantized.
type Thresholds struct {
	LeftDeadzone     int
	RightDeadzone    int
	TriggerThreshold uint8
}

// DefaultThresholds returns the XInput recommended thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		LeftDeadzone:     DefaultLeftDeadzone,
		RightDeadzone:    DefaultRightDeadzone,
		TriggerThreshold: DefaultTriggerThreshold,
	}
}

// State quantizes r. A trigger counts as pulled when it exceeds the
// threshold.
func (t Thresholds) State(r Raw) State {
	return State{
		Packet:       r.Packet,
		Buttons:      r.Buttons,
		Left:         analog.Quantize(int(r.ThumbLX), int(r.ThumbLY), t.LeftDeadzone*t.LeftDeadzone),
		Right:        analog.Quantize(int(r.ThumbRX), int(r.ThumbRY), t.RightDeadzone*t.RightDeadzone),
		LeftTrigger:  r.LeftTrigger > t.TriggerThreshold,
		RightTrigger: r.RightTrigger > t.TriggerThreshold,
	}
}

// Edges describes the button transitions between two masks.
type Edges struct {
	old, cur uint16
}

// Diff returns the transitions from old to cur.
func Diff(old, cur uint16) Edges {
	return Edges{old: old, cur: cur}
}

// Pressed reports whether b went down.
func (e Edges) Pressed(b Button) bool {
	return e.old&uint16(b) == 0 && e.cur&uint16(b) != 0
}

// Released reports whether b went up.
func (e Edges) Released(b Button) bool {
	return e.old&uint16(b) != 0 && e.cur&uint16(b) == 0
}

// Changed reports whether b went up or down.
func (e Edges) Changed(b Button) bool {
	return (e.old^e.cur)&uint16(b) != 0
}

// Down reports whether b is held after the transition.
func (e Edges) Down(b Button) bool {
	return e.cur&uint16(b) != 0
}
