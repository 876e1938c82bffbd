//go:build windows

package sink

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"

	"touchbox/internal/synth"
)

var (
	user32               = windows.NewLazySystemDLL("user32.dll")
	procSendInput        = user32.NewProc("SendInput")
	procGetAsyncKeyState = user32.NewProc("GetAsyncKeyState")
	procMapVirtualKeyW   = user32.NewProc("MapVirtualKeyW")
)

const (
	inputKeyboard     = 1
	keyeventfKeyUp    = 0x0002
	keyeventfScancode = 0x0008
	mapvkVscToVk      = 1
	asyncKeyDown      = 0x8000
)

// keybdInput matches KEYBDINPUT.
type keybdInput struct {
	vk        uint16
	scan      uint16
	flags     uint32
	time      uint32
	extraInfo uintptr
}

// input matches INPUT with the keyboard member; padding covers the larger
// MOUSEINPUT member of the union.
type input struct {
	typ     uint32
	ki      keybdInput
	padding [8]byte
}

// sendInput injects events with SendInput and probes with GetAsyncKeyState.
type sendInput struct{}

func newNative(cfg Config) (Device, error) {
	for _, p := range []*windows.LazyProc{procSendInput, procGetAsyncKeyState, procMapVirtualKeyW} {
		if err := p.Find(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNotAvailable, err)
		}
	}
	cfg.Logger.Debug("using SendInput")
	return sendInput{}, nil
}

func (sendInput) Emit(code synth.Code, pressed bool) error {
	in := input{typ: inputKeyboard}
	switch code.Kind {
	case synth.Scancode:
		in.ki.scan = code.Value
		in.ki.flags = keyeventfScancode
	default:
		in.ki.vk = code.Value
	}
	if !pressed {
		in.ki.flags |= keyeventfKeyUp
	}

	n, _, err := procSendInput.Call(1, uintptr(unsafe.Pointer(&in)), unsafe.Sizeof(in))
	if n != 1 {
		return fmt.Errorf("SendInput %s: %w", code, err)
	}
	return nil
}

// IsDown reports the most significant bit of GetAsyncKeyState. Scancodes
// are translated to virtual keys first; an untranslatable code is not down.
func (sendInput) IsDown(code synth.Code) bool {
	vk := uintptr(code.Value)
	if code.Kind == synth.Scancode {
		vk, _, _ = procMapVirtualKeyW.Call(uintptr(code.Value), mapvkVscToVk)
		if vk == 0 {
			return false
		}
	}
	state, _, _ := procGetAsyncKeyState.Call(vk)
	return state&asyncKeyDown != 0
}

func (sendInput) Close() error {
	return nil
}
