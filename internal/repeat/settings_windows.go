//go:build windows

package repeat

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	spiGetKeyboardSpeed = 0x000A
	spiGetKeyboardDelay = 0x0016
)

var (
	user32                   = windows.NewLazySystemDLL("user32.dll")
	procSystemParametersInfo = user32.NewProc("SystemParametersInfoW")
)

// QuerySettings reads the keyboard delay and speed from SystemParametersInfo.
func QuerySettings() (Settings, error) {
	var s Settings

	delay, err := systemParameter(spiGetKeyboardDelay)
	if err != nil {
		return s, fmt.Errorf("query keyboard delay: %w", err)
	}
	speed, err := systemParameter(spiGetKeyboardSpeed)
	if err != nil {
		return s, fmt.Errorf("query keyboard speed: %w", err)
	}

	s.Delay = int(delay)
	s.Speed = int(speed)
	return s, nil
}

func systemParameter(action uintptr) (uint32, error) {
	if err := procSystemParametersInfo.Find(); err != nil {
		return 0, err
	}
	var v uint32
	r, _, errno := procSystemParametersInfo.Call(action, 0, uintptr(unsafe.Pointer(&v)), 0)
	if r == 0 {
		return 0, errno
	}
	return v, nil
}
