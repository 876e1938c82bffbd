//go:build linux

package sink

import (
	evdev "github.com/holoplot/go-evdev"

	"touchbox/internal/synth"
)

// vkToLinux maps the virtual keys touchbox can bind to Linux key codes.
var vkToLinux = map[uint16]evdev.EvCode{
	synth.VKBack:     evdev.KEY_BACKSPACE,
	synth.VKTab:      evdev.KEY_TAB,
	synth.VKReturn:   evdev.KEY_ENTER,
	synth.VKPause:    evdev.KEY_PAUSE,
	synth.VKCapital:  evdev.KEY_CAPSLOCK,
	synth.VKEscape:   evdev.KEY_ESC,
	synth.VKSpace:    evdev.KEY_SPACE,
	synth.VKPrior:    evdev.KEY_PAGEUP,
	synth.VKNext:     evdev.KEY_PAGEDOWN,
	synth.VKEnd:      evdev.KEY_END,
	synth.VKHome:     evdev.KEY_HOME,
	synth.VKLeft:     evdev.KEY_LEFT,
	synth.VKUp:       evdev.KEY_UP,
	synth.VKRight:    evdev.KEY_RIGHT,
	synth.VKDown:     evdev.KEY_DOWN,
	synth.VKInsert:   evdev.KEY_INSERT,
	synth.VKDelete:   evdev.KEY_DELETE,
	synth.VKLWin:     evdev.KEY_LEFTMETA,
	synth.VKApps:     evdev.KEY_COMPOSE,
	synth.VKLShift:   evdev.KEY_LEFTSHIFT,
	synth.VKRShift:   evdev.KEY_RIGHTSHIFT,
	synth.VKLControl: evdev.KEY_LEFTCTRL,
	synth.VKRControl: evdev.KEY_RIGHTCTRL,
	synth.VKLMenu:    evdev.KEY_LEFTALT,
	synth.VKRMenu:    evdev.KEY_RIGHTALT,

	synth.VKF1:      evdev.KEY_F1,
	synth.VKF1 + 1:  evdev.KEY_F2,
	synth.VKF1 + 2:  evdev.KEY_F3,
	synth.VKF1 + 3:  evdev.KEY_F4,
	synth.VKF1 + 4:  evdev.KEY_F5,
	synth.VKF1 + 5:  evdev.KEY_F6,
	synth.VKF1 + 6:  evdev.KEY_F7,
	synth.VKF1 + 7:  evdev.KEY_F8,
	synth.VKF1 + 8:  evdev.KEY_F9,
	synth.VKF1 + 9:  evdev.KEY_F10,
	synth.VKF1 + 10: evdev.KEY_F11,
	synth.VKF1 + 11: evdev.KEY_F12,

	'0': evdev.KEY_0, '1': evdev.KEY_1, '2': evdev.KEY_2, '3': evdev.KEY_3, '4': evdev.KEY_4,
	'5': evdev.KEY_5, '6': evdev.KEY_6, '7': evdev.KEY_7, '8': evdev.KEY_8, '9': evdev.KEY_9,

	'A': evdev.KEY_A, 'B': evdev.KEY_B, 'C': evdev.KEY_C, 'D': evdev.KEY_D, 'E': evdev.KEY_E,
	'F': evdev.KEY_F, 'G': evdev.KEY_G, 'H': evdev.KEY_H, 'I': evdev.KEY_I, 'J': evdev.KEY_J,
	'K': evdev.KEY_K, 'L': evdev.KEY_L, 'M': evdev.KEY_M, 'N': evdev.KEY_N, 'O': evdev.KEY_O,
	'P': evdev.KEY_P, 'Q': evdev.KEY_Q, 'R': evdev.KEY_R, 'S': evdev.KEY_S, 'T': evdev.KEY_T,
	'U': evdev.KEY_U, 'V': evdev.KEY_V, 'W': evdev.KEY_W, 'X': evdev.KEY_X, 'Y': evdev.KEY_Y,
	'Z': evdev.KEY_Z,
}

// linuxKeyCode converts code to a Linux key code. Set 1 scancodes of the
// main key block are numerically equal to Linux key codes.
func linuxKeyCode(code synth.Code) (evdev.EvCode, bool) {
	if code.Kind == synth.Scancode {
		if code.Value == 0 || code.Value > 0x58 {
			return 0, false
		}
		return evdev.EvCode(code.Value), true
	}
	kc, ok := vkToLinux[code.Value]
	return kc, ok
}
