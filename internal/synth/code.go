// Package synth synthesizes keyboard input with host-style auto-repeat.
//
// An Engine owns the logical keys of one input source. Pressing a key sends
// one down-event and arms a repeat deadline; Tick re-sends the down-event
// each time the deadline passes, the way the host keyboard driver repeats a
// held key. Releasing sends one up-event for whichever code is currently
// down. Every press or release produces exactly one diagnostic Tag.
package synth

import "fmt"

// Kind tags a Code as a virtual-key code or a hardware scancode.
type Kind uint8

const (
	// VirtualKey codes are layout-independent key identifiers (Windows VK_*).
	VirtualKey Kind = iota
	// Scancode codes are PC set 1 keyboard positions.
	Scancode
)

func (k Kind) String() string {
	switch k {
	case VirtualKey:
		return "vk"
	case Scancode:
		return "sc"
	default:
		return "unknown"
	}
}

// Code identifies one synthesizable key.
type Code struct {
	Kind  Kind
	Value uint16
}

// VK returns the virtual-key Code v.
func VK(v uint16) Code {
	return Code{Kind: VirtualKey, Value: v}
}

// Scan returns the scancode Code s.
func Scan(s uint16) Code {
	return Code{Kind: Scancode, Value: s}
}

func (c Code) String() string {
	return fmt.Sprintf("%s:0x%02x", c.Kind, c.Value)
}

// Sink receives synthetic key events.
type Sink interface {
	Emit(code Code, pressed bool) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(code Code, pressed bool) error

// Emit calls f.
func (f SinkFunc) Emit(code Code, pressed bool) error {
	return f(code, pressed)
}

// Prober reports whether a key is currently down at the OS level.
// Implementations report false when the state cannot be determined.
type Prober interface {
	IsDown(code Code) bool
}

// ProberFunc adapts a function to Prober.
type ProberFunc func(code Code) bool

// IsDown calls f.
func (f ProberFunc) IsDown(code Code) bool {
	return f(code)
}

type discard struct{}

func (discard) Emit(Code, bool) error { return nil }

type neverDown struct{}

func (neverDown) IsDown(Code) bool { return false }
