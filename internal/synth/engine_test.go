package synth

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"touchbox/internal/repeat"
)

const (
	testDelay    = 500 * time.Millisecond
	testInterval = 100 * time.Millisecond
)

type event struct {
	code    Code
	pressed bool
}

// recorder is a Sink that remembers events and mirrors the resulting key
// state, standing in for the OS.
type recorder struct {
	events []event
	down   map[Code]bool
	err    error
}

func newRecorder() *recorder {
	return &recorder{down: make(map[Code]bool)}
}

func (r *recorder) Emit(code Code, pressed bool) error {
	r.events = append(r.events, event{code, pressed})
	if pressed {
		r.down[code] = true
	} else {
		delete(r.down, code)
	}
	return r.err
}

func (r *recorder) IsDown(code Code) bool {
	return r.down[code]
}

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.t = c.t.Add(d)
}

type harness struct {
	engine *Engine
	sink   *recorder
	clock  *fakeClock
	diags  []Diagnostic
}

func newHarness(t *testing.T, useProber bool) *harness {
	t.Helper()
	h := &harness{
		sink:  newRecorder(),
		clock: &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	cfg := Config{
		Timing: repeat.Timing{InitialDelay: testDelay, RepeatInterval: testInterval},
		Sink:   h.sink,
		Now:    h.clock.Now,
		Source: "pad0",
		Observers: []Observer{ObserverFunc(func(d Diagnostic) {
			h.diags = append(h.diags, d)
		})},
	}
	if useProber {
		cfg.Prober = h.sink
	}
	h.engine = New(cfg)
	return h
}

func TestReleaseWhenNotAssertedIsIdempotent(t *testing.T) {
	h := newHarness(t, true)
	vkKey := h.engine.NewKey(VirtualKey)
	scanKey := h.engine.NewKey(Scancode)

	for i := 0; i < 2; i++ {
		assert.Equal(t, VKAlreadyReleased, h.engine.ChangeKey(vkKey, VK(VKSpace), false))
		assert.Equal(t, AlreadyReleased, h.engine.ChangeKey(scanKey, Scan(0x1E), false))
	}

	assert.Empty(t, h.sink.events)
	assert.Len(t, h.diags, 4)
}

func TestDoublePressIsIgnoredWhileLive(t *testing.T) {
	h := newHarness(t, true)
	k := h.engine.NewKey(VirtualKey)

	assert.Equal(t, VKPressed, h.engine.ChangeKey(k, VK(VKSpace), true))
	assert.Equal(t, VKIgnored, h.engine.ChangeKey(k, VK(VKSpace), true))

	require.Len(t, h.sink.events, 1)
	assert.Equal(t, event{VK(VKSpace), true}, h.sink.events[0])
	assert.Equal(t, 1, h.engine.Asserted())
}

func TestPressIgnoredWhenAnotherSourceHoldsTheKey(t *testing.T) {
	h := newHarness(t, true)
	first := h.engine.NewKey(VirtualKey)
	second := h.engine.NewKey(VirtualKey)

	require.Equal(t, VKPressed, h.engine.ChangeKey(first, VK(VKReturn), true))
	assert.Equal(t, VKIgnored, h.engine.ChangeKey(second, VK(VKReturn), true))
	assert.False(t, second.Down())

	// The ignored key was never asserted, so its release is a no-op.
	assert.Equal(t, VKAlreadyReleased, h.engine.ChangeKey(second, VK(VKReturn), false))
	assert.Len(t, h.sink.events, 1)
}

func TestRepeatTimingLaw(t *testing.T) {
	h := newHarness(t, true)
	k := h.engine.NewKey(Scancode)
	t0 := h.clock.Now()

	require.Equal(t, Pressed, h.engine.ChangeKey(k, Scan(0x20), true))
	assert.Equal(t, t0.Add(testDelay), k.Deadline())

	h.clock.t = t0.Add(testDelay - time.Millisecond)
	assert.Equal(t, 0, h.engine.Tick())

	h.clock.t = t0.Add(testDelay + time.Millisecond)
	assert.Equal(t, 1, h.engine.Tick())
	assert.Equal(t, t0.Add(testDelay+testInterval), k.Deadline())

	h.clock.t = t0.Add(testDelay + 5*testInterval/2)
	assert.Equal(t, 2, h.engine.Tick())
	assert.Equal(t, t0.Add(testDelay+3*testInterval), k.Deadline())

	require.Len(t, h.sink.events, 4)
	for _, ev := range h.sink.events {
		assert.Equal(t, event{Scan(0x20), true}, ev)
	}

	// Repeats are not diagnostics.
	assert.Len(t, h.diags, 1)
}

func TestTickAtDeadlineDoesNotRepeat(t *testing.T) {
	h := newHarness(t, false)
	k := h.engine.NewKey(Scancode)
	h.engine.ChangeKey(k, Scan(0x20), true)

	h.clock.Advance(testDelay)
	assert.Equal(t, 0, h.engine.Tick())

	h.clock.Advance(time.Nanosecond)
	assert.Equal(t, 1, h.engine.Tick())
}

func TestLateTickCatchesUp(t *testing.T) {
	h := newHarness(t, false)
	k := h.engine.NewKey(Scancode)
	t0 := h.clock.Now()
	h.engine.ChangeKey(k, Scan(0x20), true)

	// Deadlines at D, D+R and D+2R have all passed.
	h.clock.t = t0.Add(testDelay + 5*testInterval/2)
	assert.Equal(t, 3, h.engine.Tick())
	assert.Equal(t, t0.Add(testDelay+3*testInterval), k.Deadline())
}

func TestPressThenTickInSameInstantDoesNotRepeat(t *testing.T) {
	h := newHarness(t, false)
	k := h.engine.NewKey(VirtualKey)

	h.engine.ChangeKey(k, VK(VKSpace), true)
	assert.Equal(t, 0, h.engine.Tick())
	assert.Len(t, h.sink.events, 1)
}

func TestEndToEnd(t *testing.T) {
	h := newHarness(t, true)
	a := h.engine.NewKey(Scancode)
	code := Scan(0x1E)

	assert.Equal(t, Pressed, h.engine.ChangeKey(a, code, true))
	assert.Len(t, h.sink.events, 1)

	h.clock.Advance(testDelay / 2)
	h.engine.Tick()
	assert.Len(t, h.sink.events, 1)

	h.clock.Advance(testDelay)
	assert.Equal(t, 1, h.engine.Tick())
	assert.Len(t, h.sink.events, 2)

	assert.Equal(t, Released, h.engine.ChangeKey(a, code, false))
	require.Len(t, h.sink.events, 3)
	assert.Equal(t, event{code, false}, h.sink.events[2])

	assert.Equal(t, AlreadyReleased, h.engine.ChangeKey(a, code, false))
	assert.Len(t, h.sink.events, 3)

	var tags []Tag
	for _, d := range h.diags {
		tags = append(tags, d.Tag)
	}
	assert.Equal(t, []Tag{Pressed, Released, AlreadyReleased}, tags)
}

func TestReleaseTargetsAssertedCode(t *testing.T) {
	h := newHarness(t, true)
	k := h.engine.NewKey(Scancode)

	h.engine.ChangeKey(k, Scan(0x20), true)
	assert.Equal(t, Scan(0x20), k.Asserted())

	// The stick moved before release; the new code must not be released.
	assert.Equal(t, Released, h.engine.ChangeKey(k, Scan(0x21), false))
	require.Len(t, h.sink.events, 2)
	assert.Equal(t, event{Scan(0x20), false}, h.sink.events[1])
	assert.Equal(t, Scan(0x20), h.diags[1].Code)
	assert.Empty(t, h.sink.down)
}

func TestReleaseStopsRepeats(t *testing.T) {
	h := newHarness(t, false)
	k := h.engine.NewKey(Scancode)

	h.engine.ChangeKey(k, Scan(0x20), true)
	h.clock.Advance(testDelay + 3*testInterval + time.Millisecond)
	h.engine.ChangeKey(k, Scan(0x20), false)

	assert.Equal(t, 0, h.engine.Tick())
	assert.Equal(t, 0, h.engine.Asserted())
	assert.False(t, k.Down())
	assert.True(t, k.Deadline().IsZero())
}

func TestRepeatsFollowAssertionOrder(t *testing.T) {
	h := newHarness(t, false)
	first := h.engine.NewKey(Scancode)
	second := h.engine.NewKey(Scancode)

	h.engine.ChangeKey(first, Scan(0x10), true)
	h.clock.Advance(time.Millisecond)
	h.engine.ChangeKey(second, Scan(0x11), true)

	h.clock.Advance(testDelay + time.Millisecond)
	assert.Equal(t, 2, h.engine.Tick())
	assert.Equal(t, []event{
		{Scan(0x10), true},
		{Scan(0x11), true},
		{Scan(0x10), true},
		{Scan(0x11), true},
	}, h.sink.events)
}

func TestModifierChangeMirrorsUnconditionally(t *testing.T) {
	h := newHarness(t, true)
	shift := h.engine.NewModifier(VKLShift)

	assert.Equal(t, VKPressed, h.engine.ModifierChange(shift, true))
	assert.True(t, shift.Pressed())
	// No liveness check and no idempotence guard.
	assert.Equal(t, VKPressed, h.engine.ModifierChange(shift, true))
	assert.Equal(t, VKReleased, h.engine.ModifierChange(shift, false))
	assert.Equal(t, VKReleased, h.engine.ModifierChange(shift, false))
	assert.False(t, shift.Pressed())

	assert.Equal(t, []event{
		{VK(VKLShift), true},
		{VK(VKLShift), true},
		{VK(VKLShift), false},
		{VK(VKLShift), false},
	}, h.sink.events)

	h.clock.Advance(10 * testDelay)
	assert.Equal(t, 0, h.engine.Tick())
}

func TestReleaseAll(t *testing.T) {
	h := newHarness(t, true)
	a := h.engine.NewKey(VirtualKey)
	b := h.engine.NewKey(Scancode)
	shift := h.engine.NewModifier(VKRShift)
	idle := h.engine.NewModifier(VKLShift)

	h.engine.ChangeKey(a, VK(VKUp), true)
	h.engine.ChangeKey(b, Scan(0x25), true)
	h.engine.ModifierChange(shift, true)
	_ = idle

	assert.Equal(t, 3, h.engine.ReleaseAll())
	assert.Equal(t, 0, h.engine.Asserted())
	assert.False(t, shift.Pressed())
	assert.Empty(t, h.sink.down)
	assert.Equal(t, 0, h.engine.ReleaseAll())
}

func TestSinkErrorDoesNotChangeOutcome(t *testing.T) {
	var buf bytes.Buffer
	h := newHarness(t, false)
	h.sink.err = errors.New("injection blocked")
	h.engine.logger = slog.New(slog.NewTextHandler(&buf, nil))
	k := h.engine.NewKey(Scancode)

	assert.Equal(t, Pressed, h.engine.ChangeKey(k, Scan(0x20), true))
	assert.True(t, k.Down())
	assert.Equal(t, Released, h.engine.ChangeKey(k, Scan(0x20), false))
	assert.True(t, strings.Contains(buf.String(), "injection blocked"))
}

func TestNonPositiveIntervalRepeatsOncePerTick(t *testing.T) {
	h := newHarness(t, false)
	h.engine.timing.RepeatInterval = 0
	k := h.engine.NewKey(Scancode)

	h.engine.ChangeKey(k, Scan(0x20), true)
	h.clock.Advance(10 * testDelay)
	assert.Equal(t, 1, h.engine.Tick())
	assert.Equal(t, 0, h.engine.Tick())
	h.clock.Advance(time.Millisecond)
	assert.Equal(t, 1, h.engine.Tick())
}

func TestDiagnosticCarriesSourceAndTime(t *testing.T) {
	h := newHarness(t, false)
	k := h.engine.NewKey(VirtualKey)

	h.engine.ChangeKey(k, VK(VKEscape), true)
	require.Len(t, h.diags, 1)
	assert.Equal(t, Diagnostic{
		Tag:    VKPressed,
		Code:   VK(VKEscape),
		Source: "pad0",
		Time:   h.clock.Now(),
	}, h.diags[0])
}

func TestLogObserver(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	LogObserver(logger).Observe(Diagnostic{Tag: Ignored, Code: Scan(0x1E), Source: "pad1"})
	out := buf.String()
	assert.Contains(t, out, "msg=IGNORED")
	assert.Contains(t, out, "code=sc:0x1e")
	assert.Contains(t, out, "source=pad1")
}

func TestNewDefaults(t *testing.T) {
	e := New(Config{})
	k := e.NewKey(VirtualKey)
	assert.Equal(t, VKPressed, e.ChangeKey(k, VK(VKSpace), true))
	assert.Equal(t, VKReleased, e.ChangeKey(k, VK(VKSpace), false))
}
