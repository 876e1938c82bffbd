package synth

import (
	"log/slog"
	"time"

	"touchbox/internal/repeat"
)

// Key is a logical key tracked by an Engine. Its kind is fixed at creation;
// the code backing it is chosen on each press.
type Key struct {
	kind     Kind
	down     bool
	asserted Code
	deadline time.Time
}

// Kind returns the kind of code the key is bound to.
func (k *Key) Kind() Kind {
	return k.kind
}

// Down reports whether the key is asserted.
func (k *Key) Down() bool {
	return k.down
}

// Asserted returns the code currently down. It is meaningful only when Down
// reports true.
func (k *Key) Asserted() Code {
	return k.asserted
}

// Deadline returns the time of the next repeat while the key is down.
func (k *Key) Deadline() time.Time {
	return k.deadline
}

// ModifierKey mirrors one OS modifier key. Modifiers never repeat.
type ModifierKey struct {
	code    Code
	pressed bool
}

// Pressed reports the mirrored state.
func (m *ModifierKey) Pressed() bool {
	return m.pressed
}

// Code returns the modifier's virtual-key code.
func (m *ModifierKey) Code() Code {
	return m.code
}

// Config configures an Engine.
type Config struct {
	// Timing sets the initial delay and repeat interval.
	Timing repeat.Timing

	// Sink receives all events. Nil discards them.
	Sink Sink

	// Prober checks OS key state before a press. Nil never reports a key down.
	Prober Prober

	// Now returns the current time. Nil uses time.Now.
	Now func() time.Time

	// Observers receive the diagnostic stream.
	Observers []Observer

	// Logger receives sink failures. Nil uses slog.Default.
	Logger *slog.Logger

	// Source labels diagnostics, e.g. "pad0".
	Source string
}

// Engine synthesizes key events for one input source. It is not safe for
// concurrent use; a single driver loop owns it.
type Engine struct {
	timing    repeat.Timing
	sink      Sink
	prober    Prober
	now       func() time.Time
	observers []Observer
	logger    *slog.Logger
	source    string

	pressed   []*Key
	modifiers []*ModifierKey
}

// New creates an Engine.
func New(cfg Config) *Engine {
	e := &Engine{
		timing:    cfg.Timing,
		sink:      cfg.Sink,
		prober:    cfg.Prober,
		now:       cfg.Now,
		observers: cfg.Observers,
		logger:    cfg.Logger,
		source:    cfg.Source,
	}
	if e.sink == nil {
		e.sink = discard{}
	}
	if e.prober == nil {
		e.prober = neverDown{}
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// Timing returns the engine's repeat timing.
func (e *Engine) Timing() repeat.Timing {
	return e.timing
}

// NewKey returns a logical key of the given kind for use with e.
func (e *Engine) NewKey(kind Kind) *Key {
	return &Key{kind: kind}
}

// NewModifier registers a modifier mirroring the virtual key vk.
func (e *Engine) NewModifier(vk uint16) *ModifierKey {
	m := &ModifierKey{code: VK(vk)}
	e.modifiers = append(e.modifiers, m)
	return m
}

// Asserted returns the number of keys currently down.
func (e *Engine) Asserted() int {
	return len(e.pressed)
}

// ChangeKey presses or releases k.
//
// A release sends an up-event for the code k asserted, whatever code is
// passed, and reports RELEASED; releasing a key that is not down reports
// ALREADY_RELEASED and sends nothing. A press first asks the prober whether
// code is already down at the OS level. If it is, the press reports IGNORED
// and nothing changes. Otherwise k asserts code, arms the initial repeat
// delay, sends a down-event and reports PRESSED. Virtual-key keys report
// the VK_ variants.
func (e *Engine) ChangeKey(k *Key, code Code, pressed bool) Tag {
	if !pressed {
		if !k.down {
			return e.report(tagFor(k.kind, AlreadyReleased), code)
		}
		released := k.asserted
		e.emit(released, false)
		e.clear(k)
		return e.report(tagFor(k.kind, Released), released)
	}

	if e.prober.IsDown(code) {
		return e.report(tagFor(k.kind, Ignored), code)
	}

	if !k.down {
		e.pressed = append(e.pressed, k)
	}
	k.down = true
	k.asserted = code
	k.deadline = e.now().Add(e.timing.InitialDelay)
	e.emit(code, true)
	return e.report(tagFor(k.kind, Pressed), code)
}

// Tick sends a repeat down-event for every asserted key whose deadline has
// passed and advances the deadline by one interval per repeat, so a late
// tick catches up on every missed repeat. It returns the number of repeats
// sent.
func (e *Engine) Tick() int {
	now := e.now()
	interval := e.timing.RepeatInterval
	repeats := 0

	for _, k := range e.pressed {
		if interval <= 0 {
			if now.After(k.deadline) {
				e.emit(k.asserted, true)
				k.deadline = now
				repeats++
			}
			continue
		}
		for now.After(k.deadline) {
			e.emit(k.asserted, true)
			k.deadline = k.deadline.Add(interval)
			repeats++
		}
	}
	return repeats
}

// ModifierChange sends one down or up event for m and records pressed. It
// does not consult the prober or the previous state.
func (e *Engine) ModifierChange(m *ModifierKey, pressed bool) Tag {
	e.emit(m.code, pressed)
	m.pressed = pressed
	if pressed {
		return e.report(VKPressed, m.code)
	}
	return e.report(VKReleased, m.code)
}

// ReleaseAll releases every asserted key and pressed modifier. It returns
// the number of up-events sent.
func (e *Engine) ReleaseAll() int {
	n := 0
	for len(e.pressed) > 0 {
		k := e.pressed[0]
		e.ChangeKey(k, k.asserted, false)
		n++
	}
	for _, m := range e.modifiers {
		if m.pressed {
			e.ModifierChange(m, false)
			n++
		}
	}
	return n
}

func (e *Engine) clear(k *Key) {
	k.down = false
	k.asserted = Code{}
	k.deadline = time.Time{}
	for i, p := range e.pressed {
		if p == k {
			e.pressed = append(e.pressed[:i], e.pressed[i+1:]...)
			return
		}
	}
}

func (e *Engine) emit(code Code, pressed bool) {
	if err := e.sink.Emit(code, pressed); err != nil {
		e.logger.Warn("emit key event",
			"code", code.String(),
			"pressed", pressed,
			"source", e.source,
			"error", err,
		)
	}
}

func (e *Engine) report(tag Tag, code Code) Tag {
	d := Diagnostic{
		Tag:    tag,
		Code:   code,
		Source: e.source,
		Time:   e.now(),
	}
	for _, o := range e.observers {
		o.Observe(d)
	}
	return tag
}
