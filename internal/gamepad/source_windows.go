//go:build windows

package gamepad

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	xinput             = windows.NewLazySystemDLL("xinput1_4.dll")
	procXInputGetState = xinput.NewProc("XInputGetState")
)

// xinputState matches XINPUT_STATE.
type xinputState struct {
	PacketNumber uint32
	Buttons      uint16
	LeftTrigger  uint8
	RightTrigger uint8
	ThumbLX      int16
	ThumbLY      int16
	ThumbRX      int16
	ThumbRY      int16
}

// xinputSource polls XInput user slots.
type xinputSource struct{}

func newPlatformSource(cfg SourceConfig) (Source, error) {
	if err := procXInputGetState.Find(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotAvailable, err)
	}
	cfg.Logger.Debug("using XInput", "dll", xinput.Name)
	return xinputSource{}, nil
}

func (xinputSource) Poll(user int) (Raw, bool) {
	var st xinputState
	ret, _, _ := procXInputGetState.Call(uintptr(user), uintptr(unsafe.Pointer(&st)))
	if ret != uintptr(windows.ERROR_SUCCESS) {
		// ERROR_DEVICE_NOT_CONNECTED
		return Raw{}, false
	}
	return Raw{
		Packet:       st.PacketNumber,
		Buttons:      st.Buttons,
		LeftTrigger:  st.LeftTrigger,
		RightTrigger: st.RightTrigger,
		ThumbLX:      st.ThumbLX,
		ThumbLY:      st.ThumbLY,
		ThumbRX:      st.ThumbRX,
		ThumbRY:      st.ThumbRY,
	}, true
}

func (xinputSource) Close() error {
	return nil
}
