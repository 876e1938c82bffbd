//go:build linux

package sink

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/bendahl/uinput"
	evdev "github.com/holoplot/go-evdev"

	"touchbox/internal/synth"
)

const uinputPath = "/dev/uinput"

// uinputDevice injects events through a uinput virtual keyboard. Liveness
// combines the keys this device holds with the key state of every physical
// keyboard.
type uinputDevice struct {
	keyboard uinput.Keyboard

	mu        sync.Mutex
	held      map[evdev.EvCode]bool
	keyboards []*evdev.InputDevice
}

func newNative(cfg Config) (Device, error) {
	kb, err := uinput.CreateKeyboard(uinputPath, []byte(cfg.DeviceName))
	if err != nil {
		return nil, fmt.Errorf("%w: create uinput keyboard: %v", ErrNotAvailable, err)
	}

	d := &uinputDevice{
		keyboard: kb,
		held:     make(map[evdev.EvCode]bool),
	}
	d.keyboards = findKeyboards(cfg.DeviceName, cfg.Logger)
	cfg.Logger.Info("virtual keyboard created",
		"name", cfg.DeviceName,
		"physical_keyboards", len(d.keyboards),
	)
	return d, nil
}

// findKeyboards opens devices with both KEY_A and KEY_ENTER, skipping the
// virtual keyboard itself.
func findKeyboards(ownName string, logger *slog.Logger) []*evdev.InputDevice {
	paths, err := evdev.ListDevicePaths()
	if err != nil {
		logger.Warn("list input devices", "error", err)
		return nil
	}

	var kbds []*evdev.InputDevice
	for _, p := range paths {
		if p.Name == ownName {
			continue
		}
		dev, err := evdev.Open(p.Path)
		if err != nil {
			continue
		}
		codes := dev.CapableEvents(evdev.EV_KEY)
		if slices.Contains(codes, evdev.KEY_A) && slices.Contains(codes, evdev.KEY_ENTER) {
			kbds = append(kbds, dev)
			continue
		}
		dev.Close()
	}
	return kbds
}

func (d *uinputDevice) Emit(code synth.Code, pressed bool) error {
	kc, ok := linuxKeyCode(code)
	if !ok {
		return fmt.Errorf("no Linux key code for %s", code)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if pressed {
		if err := d.keyboard.KeyDown(int(kc)); err != nil {
			return fmt.Errorf("key down %s: %w", code, err)
		}
		d.held[kc] = true
		return nil
	}
	if err := d.keyboard.KeyUp(int(kc)); err != nil {
		return fmt.Errorf("key up %s: %w", code, err)
	}
	delete(d.held, kc)
	return nil
}

func (d *uinputDevice) IsDown(code synth.Code) bool {
	kc, ok := linuxKeyCode(code)
	if !ok {
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.held[kc] {
		return true
	}
	for _, kbd := range d.keyboards {
		state, err := kbd.State(evdev.EV_KEY)
		if err != nil {
			continue
		}
		if state[kc] {
			return true
		}
	}
	return false
}

func (d *uinputDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, kbd := range d.keyboards {
		kbd.Close()
	}
	d.keyboards = nil
	return d.keyboard.Close()
}
