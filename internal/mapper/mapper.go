// Package mapper turns controller state changes into synthetic keyboard
// input.
//
// Face buttons and the d-pad press fixed keys from a binding Table. The
// shoulder buttons and triggers type letters from a split virtual keyboard:
// the stick on the same side picks the key around the home position (D on
// the left, K on the right), the trigger types it, and the shoulder types
// the key two columns further out. A shoulder pressed with its stick
// centered acts as shift instead.
package mapper

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"touchbox/internal/analog"
	"touchbox/internal/gamepad"
	"touchbox/internal/repeat"
	"touchbox/internal/synth"
)

var (
	// ErrUnbound is returned when a button with no key binding is asked
	// to press its key.
	ErrUnbound = errors.New("mapper: button is not bound to a key")

	// ErrQuit is returned when the quit button is pressed.
	ErrQuit = errors.New("mapper: quit requested")
)

// Config configures a Mapper. Every pad engine shares the timing, sink,
// prober, clock and observers.
type Config struct {
	Table     Table
	Timing    repeat.Timing
	Sink      synth.Sink
	Prober    synth.Prober
	Now       func() time.Time
	Observers []synth.Observer
	Logger    *slog.Logger
}

type shoulder struct {
	key   *synth.Key
	shift *synth.ModifierKey
}

// Pad holds the keys of one controller.
type Pad struct {
	engine    *synth.Engine
	keys      map[gamepad.Button]*synth.Key
	triggers  [2]*synth.Key
	shoulders [2]shoulder
}

// Engine returns the pad's key engine.
func (p *Pad) Engine() *synth.Engine {
	return p.engine
}

// Mapper implements gamepad.Handler. It is not safe for concurrent use.
type Mapper struct {
	cfg    Config
	table  Table
	logger *slog.Logger
	pads   [gamepad.MaxUsers]*Pad
}

var _ gamepad.Handler = (*Mapper)(nil)

// New creates a Mapper. A nil table uses DefaultTable.
func New(cfg Config) *Mapper {
	if cfg.Table == nil {
		cfg.Table = DefaultTable()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Mapper{
		cfg:    cfg,
		table:  cfg.Table,
		logger: cfg.Logger,
	}
}

// Table returns the active binding table.
func (m *Mapper) Table() Table {
	return m.table
}

// Pad returns the pad for user, creating it on first use.
func (m *Mapper) Pad(user int) (*Pad, error) {
	if user < 0 || user >= gamepad.MaxUsers {
		return nil, fmt.Errorf("mapper: user %d out of range", user)
	}
	if p := m.pads[user]; p != nil {
		return p, nil
	}

	e := synth.New(synth.Config{
		Timing:    m.cfg.Timing,
		Sink:      m.cfg.Sink,
		Prober:    m.cfg.Prober,
		Now:       m.cfg.Now,
		Observers: m.cfg.Observers,
		Logger:    m.logger,
		Source:    fmt.Sprintf("pad%d", user),
	})
	p := &Pad{
		engine: e,
		keys:   make(map[gamepad.Button]*synth.Key),
		triggers: [2]*synth.Key{
			e.NewKey(synth.Scancode),
			e.NewKey(synth.Scancode),
		},
		shoulders: [2]shoulder{
			{key: e.NewKey(synth.Scancode), shift: e.NewModifier(synth.VKLShift)},
			{key: e.NewKey(synth.Scancode), shift: e.NewModifier(synth.VKRShift)},
		},
	}
	m.bindKeys(p)
	m.pads[user] = p
	return p, nil
}

func (m *Mapper) bindKeys(p *Pad) {
	for _, b := range m.table {
		if b.Action.Kind != ActionKey {
			continue
		}
		if _, ok := p.keys[b.Button]; !ok {
			p.keys[b.Button] = p.engine.NewKey(synth.VirtualKey)
		}
	}
}

// Press presses or releases the key bound to b on the given pad.
func (m *Mapper) Press(user int, b gamepad.Button, pressed bool) (synth.Tag, error) {
	p, err := m.Pad(user)
	if err != nil {
		return "", err
	}
	return m.press(p, b, pressed)
}

func (m *Mapper) press(p *Pad, b gamepad.Button, pressed bool) (synth.Tag, error) {
	action, ok := m.table.Lookup(b)
	key := p.keys[b]
	if !ok || action.Kind != ActionKey || key == nil {
		return "", fmt.Errorf("%w: %s", ErrUnbound, b)
	}
	return p.engine.ChangeKey(key, synth.VK(action.VK), pressed), nil
}

// ButtonsChanged applies every binding whose button changed.
func (m *Mapper) ButtonsChanged(user int, old, cur gamepad.State) error {
	m.logger.Debug("buttons",
		"user", user,
		"packet", cur.Packet,
		"buttons", fmt.Sprintf("0x%04x", cur.Buttons),
		"lt", cur.LeftTrigger,
		"rt", cur.RightTrigger,
	)

	p, err := m.Pad(user)
	if err != nil {
		return err
	}

	edges := gamepad.Diff(old.Buttons, cur.Buttons)
	quit := false
	for _, b := range m.table {
		if !edges.Changed(b.Button) {
			continue
		}
		down := edges.Down(b.Button)
		switch b.Action.Kind {
		case ActionKey:
			if _, err := m.press(p, b.Button, down); err != nil {
				return err
			}
		case ActionLeftShoulder:
			m.shoulderChanged(p, analog.Left, cur.Left, down)
		case ActionRightShoulder:
			m.shoulderChanged(p, analog.Right, cur.Right, down)
		case ActionQuit:
			if down {
				quit = true
			}
		}
	}
	if quit {
		return ErrQuit
	}
	return nil
}

// shoulderChanged shifts while the pad's shift is latched or when pressed
// with the stick centered; otherwise it types the key two columns out from
// the home position in the stick's direction.
func (m *Mapper) shoulderChanged(p *Pad, side analog.Side, zone analog.Zone, pressed bool) {
	s := p.shoulders[side]
	if s.shift.Pressed() || (pressed && zone.Centered()) {
		p.engine.ModifierChange(s.shift, pressed)
		return
	}
	code := analog.Scancode(side, -int(zone.Y), 2*int(zone.X))
	p.engine.ChangeKey(s.key, synth.Scan(code), pressed)
}

// LeftZoneChanged only logs; zones take effect on the next trigger or
// shoulder edge.
func (m *Mapper) LeftZoneChanged(user int, old, cur gamepad.State) error {
	m.logger.Debug("zone", "user", user, "side", analog.Left.String(), "zone", cur.Left.String())
	return nil
}

// RightZoneChanged only logs.
func (m *Mapper) RightZoneChanged(user int, old, cur gamepad.State) error {
	m.logger.Debug("zone", "user", user, "side", analog.Right.String(), "zone", cur.Right.String())
	return nil
}

// LeftTriggerChanged types the key under the left stick.
func (m *Mapper) LeftTriggerChanged(user int, cur gamepad.State) error {
	return m.triggerChanged(user, analog.Left, cur.Left, cur.LeftTrigger)
}

// RightTriggerChanged types the key under the right stick.
func (m *Mapper) RightTriggerChanged(user int, cur gamepad.State) error {
	return m.triggerChanged(user, analog.Right, cur.Right, cur.RightTrigger)
}

func (m *Mapper) triggerChanged(user int, side analog.Side, zone analog.Zone, pressed bool) error {
	p, err := m.Pad(user)
	if err != nil {
		return err
	}
	m.logger.Debug("trigger", "user", user, "side", side.String(), "pressed", pressed, "zone", zone.String())
	code := analog.Scancode(side, -int(zone.Y), int(zone.X))
	p.engine.ChangeKey(p.triggers[side], synth.Scan(code), pressed)
	return nil
}

// KeyRepeat ticks every pad engine and returns the number of repeats sent.
func (m *Mapper) KeyRepeat() int {
	n := 0
	for _, p := range m.pads {
		if p != nil {
			n += p.engine.Tick()
		}
	}
	return n
}

// ReleaseAll releases everything held on every pad and returns the number
// of up-events sent.
func (m *Mapper) ReleaseAll() int {
	n := 0
	for _, p := range m.pads {
		if p != nil {
			n += p.engine.ReleaseAll()
		}
	}
	return n
}

// Rebind replaces the binding table. A held key whose button loses its key
// binding, or is bound to a different key, is released first. So is a held
// shoulder key or shift when any button leaves that shoulder's action.
func (m *Mapper) Rebind(t Table) {
	var moved [2]bool
	for _, b := range m.table {
		side, ok := shoulderSide(b.Action)
		if !ok {
			continue
		}
		if next, ok := t.Lookup(b.Button); !ok || next != b.Action {
			moved[side] = true
		}
	}

	for _, p := range m.pads {
		if p == nil {
			continue
		}
		for button, key := range p.keys {
			if !key.Down() {
				continue
			}
			next, ok := t.Lookup(button)
			prev, _ := m.table.Lookup(button)
			if !ok || next != prev {
				p.engine.ChangeKey(key, key.Asserted(), false)
			}
		}
		for side, s := range p.shoulders {
			if !moved[side] {
				continue
			}
			if s.key.Down() {
				p.engine.ChangeKey(s.key, s.key.Asserted(), false)
			}
			if s.shift.Pressed() {
				p.engine.ModifierChange(s.shift, false)
			}
		}
	}
	m.table = t
	for _, p := range m.pads {
		if p != nil {
			m.bindKeys(p)
		}
	}
	m.logger.Info("bindings updated", "count", len(t))
}

func shoulderSide(a Action) (analog.Side, bool) {
	switch a.Kind {
	case ActionLeftShoulder:
		return analog.Left, true
	case ActionRightShoulder:
		return analog.Right, true
	}
	return 0, false
}
