//go:build linux

package gamepad

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	evdev "github.com/holoplot/go-evdev"
)

// evdevButtons maps evdev key codes to XInput button bits. xpad reports the
// X button as BTN_NORTH and Y as BTN_WEST.
var evdevButtons = map[evdev.EvCode]Button{
	evdev.BTN_SOUTH:      A,
	evdev.BTN_EAST:       B,
	evdev.BTN_NORTH:      X,
	evdev.BTN_WEST:       Y,
	evdev.BTN_TL:         LeftShoulder,
	evdev.BTN_TR:         RightShoulder,
	evdev.BTN_SELECT:     Back,
	evdev.BTN_START:      Start,
	evdev.BTN_THUMBL:     LeftThumb,
	evdev.BTN_THUMBR:     RightThumb,
	evdev.BTN_DPAD_UP:    DPadUp,
	evdev.BTN_DPAD_DOWN:  DPadDown,
	evdev.BTN_DPAD_LEFT:  DPadLeft,
	evdev.BTN_DPAD_RIGHT: DPadRight,
}

// evdevSource reads one evdev device per user slot. Each device is read on
// its own goroutine; Poll returns the last committed snapshot.
type evdevSource struct {
	logger *slog.Logger
	wg     sync.WaitGroup

	mu   sync.Mutex
	pads []*evdevPad
}

type evdevPad struct {
	dev  *evdev.InputDevice
	path string
	abs  map[evdev.EvCode]evdev.AbsInfo

	// Guarded by evdevSource.mu.
	pending   Raw
	published Raw
	hatX      int32
	hatY      int32
	buttons   uint16
	connected bool
}

func newPlatformSource(cfg SourceConfig) (Source, error) {
	paths := cfg.Devices
	if len(paths) == 0 {
		found, err := findGamepads()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNotAvailable, err)
		}
		paths = found
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no gamepad devices found", ErrNotAvailable)
	}

	s := &evdevSource{logger: cfg.Logger}
	for _, path := range paths {
		if len(s.pads) == MaxUsers {
			break
		}
		dev, err := evdev.Open(path)
		if err != nil {
			s.logger.Warn("open gamepad", "path", path, "error", err)
			continue
		}
		abs, err := dev.AbsInfos()
		if err != nil {
			s.logger.Warn("read axis ranges", "path", path, "error", err)
			abs = map[evdev.EvCode]evdev.AbsInfo{}
		}
		name, _ := dev.Name()
		s.logger.Info("gamepad opened", "user", len(s.pads), "path", path, "name", name)
		s.pads = append(s.pads, &evdevPad{dev: dev, path: path, abs: abs, connected: true})
	}
	if len(s.pads) == 0 {
		return nil, fmt.Errorf("%w: cannot open gamepad devices (need to be in 'input' group or run as root)", ErrNotAvailable)
	}

	for _, p := range s.pads {
		s.wg.Add(1)
		go s.readLoop(p)
	}
	return s, nil
}

// findGamepads returns devices reporting both a south button and a left
// stick.
func findGamepads() ([]string, error) {
	inputs, err := evdev.ListDevicePaths()
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, in := range inputs {
		dev, err := evdev.Open(in.Path)
		if err != nil {
			continue
		}
		isPad := slices.Contains(dev.CapableEvents(evdev.EV_KEY), evdev.BTN_SOUTH) &&
			slices.Contains(dev.CapableEvents(evdev.EV_ABS), evdev.ABS_X)
		dev.Close()
		if isPad {
			paths = append(paths, in.Path)
		}
	}
	slices.Sort(paths)
	return paths, nil
}

func (s *evdevSource) readLoop(p *evdevPad) {
	defer s.wg.Done()
	for {
		ev, err := p.dev.ReadOne()
		if err != nil {
			s.mu.Lock()
			wasConnected := p.connected
			p.connected = false
			s.mu.Unlock()
			if wasConnected {
				s.logger.Debug("gamepad read stopped", "path", p.path, "error", err)
			}
			return
		}
		s.mu.Lock()
		p.apply(ev)
		s.mu.Unlock()
	}
}

func (p *evdevPad) apply(ev *evdev.InputEvent) {
	switch ev.Type {
	case evdev.EV_KEY:
		b, ok := evdevButtons[ev.Code]
		if !ok {
			return
		}
		if ev.Value != 0 {
			p.buttons |= uint16(b)
		} else {
			p.buttons &^= uint16(b)
		}
	case evdev.EV_ABS:
		info := p.abs[ev.Code]
		switch ev.Code {
		case evdev.ABS_X:
			p.pending.ThumbLX = scaleStick(ev.Value, info.Minimum, info.Maximum)
		case evdev.ABS_Y:
			p.pending.ThumbLY = invertStick(scaleStick(ev.Value, info.Minimum, info.Maximum))
		case evdev.ABS_RX:
			p.pending.ThumbRX = scaleStick(ev.Value, info.Minimum, info.Maximum)
		case evdev.ABS_RY:
			p.pending.ThumbRY = invertStick(scaleStick(ev.Value, info.Minimum, info.Maximum))
		case evdev.ABS_Z:
			p.pending.LeftTrigger = scaleTrigger(ev.Value, info.Minimum, info.Maximum)
		case evdev.ABS_RZ:
			p.pending.RightTrigger = scaleTrigger(ev.Value, info.Minimum, info.Maximum)
		case evdev.ABS_HAT0X:
			p.hatX = ev.Value
		case evdev.ABS_HAT0Y:
			p.hatY = ev.Value
		}
	case evdev.EV_SYN:
		if ev.Code != evdev.SYN_REPORT {
			return
		}
		p.pending.Buttons = p.buttons | hatButtons(p.hatX, p.hatY)
		p.pending.Packet = p.published.Packet
		if p.pending != p.published {
			p.pending.Packet++
			p.published = p.pending
		}
	}
}

func (s *evdevSource) Poll(user int) (Raw, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user < 0 || user >= len(s.pads) {
		return Raw{}, false
	}
	p := s.pads[user]
	if !p.connected {
		return Raw{}, false
	}
	return p.published, true
}

func (s *evdevSource) Close() error {
	var firstErr error
	for _, p := range s.pads {
		if err := p.dev.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.wg.Wait()
	return firstErr
}
