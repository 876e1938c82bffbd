package mapper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"touchbox/internal/analog"
	"touchbox/internal/gamepad"
	"touchbox/internal/repeat"
	"touchbox/internal/sink"
	"touchbox/internal/synth"
)

var testTiming = repeat.Timing{InitialDelay: 500 * time.Millisecond, RepeatInterval: 100 * time.Millisecond}

type fixture struct {
	mapper *Mapper
	rec    *sink.Recorder
	now    time.Time
	diags  []synth.Diagnostic
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		rec: sink.NewRecorder(),
		now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	f.mapper = New(Config{
		Timing: testTiming,
		Sink:   f.rec,
		Prober: f.rec,
		Now:    func() time.Time { return f.now },
		Observers: []synth.Observer{synth.ObserverFunc(func(d synth.Diagnostic) {
			f.diags = append(f.diags, d)
		})},
	})
	return f
}

func (f *fixture) buttons(t *testing.T, user int, old, cur gamepad.State) error {
	t.Helper()
	return f.mapper.ButtonsChanged(user, old, cur)
}

func ev(code synth.Code, pressed bool) sink.Event {
	return sink.Event{Code: code, Pressed: pressed}
}

func TestFaceButtonPressesBoundKey(t *testing.T) {
	f := newFixture(t)
	down := gamepad.State{Buttons: uint16(gamepad.A)}

	require.NoError(t, f.buttons(t, 0, gamepad.State{}, down))
	require.NoError(t, f.buttons(t, 0, down, gamepad.State{}))

	assert.Equal(t, []sink.Event{
		ev(synth.VK(synth.VKSpace), true),
		ev(synth.VK(synth.VKSpace), false),
	}, f.rec.Events())
}

func TestDPadAndFaceButtonsTogether(t *testing.T) {
	f := newFixture(t)
	cur := gamepad.State{Buttons: uint16(gamepad.B | gamepad.DPadLeft)}

	require.NoError(t, f.buttons(t, 0, gamepad.State{}, cur))
	assert.Equal(t, []sink.Event{
		ev(synth.VK(synth.VKReturn), true),
		ev(synth.VK(synth.VKLeft), true),
	}, f.rec.Events())
}

func TestTriggerTypesKeyUnderStick(t *testing.T) {
	tests := []struct {
		name string
		side analog.Side
		zone analog.Zone
		want uint16
	}{
		{"left centered is D", analog.Left, analog.Zone{}, 0x20},
		{"left up is E", analog.Left, analog.Zone{Y: 1}, 0x12},
		{"left down-left is X", analog.Left, analog.Zone{X: -1, Y: -1}, 0x2D},
		{"right centered is K", analog.Right, analog.Zone{}, 0x25},
		{"right right is L", analog.Right, analog.Zone{X: 1}, 0x26},
		{"right up-left is U", analog.Right, analog.Zone{X: -1, Y: 1}, 0x16},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			f := newFixture(t)
			var err error
			if test.side == analog.Left {
				err = f.mapper.LeftTriggerChanged(0, gamepad.State{Left: test.zone, LeftTrigger: true})
			} else {
				err = f.mapper.RightTriggerChanged(0, gamepad.State{Right: test.zone, RightTrigger: true})
			}
			require.NoError(t, err)
			assert.Equal(t, []sink.Event{ev(synth.Scan(test.want), true)}, f.rec.Events())
		})
	}
}

func TestTriggerReleaseTargetsAssertedCode(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.mapper.LeftTriggerChanged(0, gamepad.State{LeftTrigger: true}))
	require.NoError(t, f.mapper.LeftZoneChanged(0, gamepad.State{}, gamepad.State{Left: analog.Zone{Y: 1}}))
	require.NoError(t, f.mapper.LeftTriggerChanged(0, gamepad.State{Left: analog.Zone{Y: 1}}))

	assert.Equal(t, []sink.Event{
		ev(synth.Scan(0x20), true),
		ev(synth.Scan(0x20), false),
	}, f.rec.Events())
	assert.False(t, f.rec.IsDown(synth.Scan(0x12)))
}

func TestShoulderCenteredShifts(t *testing.T) {
	f := newFixture(t)
	held := gamepad.State{Buttons: uint16(gamepad.LeftShoulder)}

	require.NoError(t, f.buttons(t, 0, gamepad.State{}, held))
	// Moving the stick while shift is latched does not turn the release
	// into a letter.
	moved := gamepad.State{Left: analog.Zone{X: 1}}
	require.NoError(t, f.buttons(t, 0, held, moved))

	assert.Equal(t, []sink.Event{
		ev(synth.VK(synth.VKLShift), true),
		ev(synth.VK(synth.VKLShift), false),
	}, f.rec.Events())
}

func TestShoulderWithStickTypesOuterKey(t *testing.T) {
	f := newFixture(t)
	zone := analog.Zone{X: 1}
	held := gamepad.State{Buttons: uint16(gamepad.LeftShoulder), Left: zone}

	require.NoError(t, f.buttons(t, 0, gamepad.State{Left: zone}, held))
	require.NoError(t, f.buttons(t, 0, held, gamepad.State{Left: zone}))

	// Two columns right of D.
	assert.Equal(t, []sink.Event{
		ev(synth.Scan(0x22), true),
		ev(synth.Scan(0x22), false),
	}, f.rec.Events())
}

func TestRightShoulder(t *testing.T) {
	f := newFixture(t)

	zone := analog.Zone{X: -1}
	held := gamepad.State{Buttons: uint16(gamepad.RightShoulder), Right: zone}
	require.NoError(t, f.buttons(t, 0, gamepad.State{Right: zone}, held))
	require.NoError(t, f.buttons(t, 0, held, gamepad.State{Right: zone}))

	shifted := gamepad.State{Buttons: uint16(gamepad.RightShoulder)}
	require.NoError(t, f.buttons(t, 0, gamepad.State{}, shifted))

	assert.Equal(t, []sink.Event{
		ev(synth.Scan(0x23), true),
		ev(synth.Scan(0x23), false),
		ev(synth.VK(synth.VKRShift), true),
	}, f.rec.Events())
}

func TestShiftAppliesToTriggerLetters(t *testing.T) {
	f := newFixture(t)
	shift := gamepad.State{Buttons: uint16(gamepad.RightShoulder)}

	require.NoError(t, f.buttons(t, 0, gamepad.State{}, shift))
	require.NoError(t, f.mapper.LeftTriggerChanged(0, gamepad.State{Buttons: shift.Buttons, LeftTrigger: true}))

	assert.Equal(t, []sink.Event{
		ev(synth.VK(synth.VKRShift), true),
		ev(synth.Scan(0x20), true),
	}, f.rec.Events())
}

func TestBackQuits(t *testing.T) {
	f := newFixture(t)
	back := gamepad.State{Buttons: uint16(gamepad.Back | gamepad.A)}

	err := f.buttons(t, 0, gamepad.State{}, back)
	require.ErrorIs(t, err, ErrQuit)
	// Other bindings in the same update are still applied.
	assert.True(t, f.rec.IsDown(synth.VK(synth.VKSpace)))

	assert.NoError(t, f.buttons(t, 0, back, gamepad.State{}))
}

func TestPressUnbound(t *testing.T) {
	f := newFixture(t)

	_, err := f.mapper.Press(0, gamepad.Start, true)
	require.ErrorIs(t, err, ErrUnbound)
	assert.Contains(t, err.Error(), "start")

	_, err = f.mapper.Press(0, gamepad.LeftShoulder, true)
	assert.ErrorIs(t, err, ErrUnbound)

	tag, err := f.mapper.Press(0, gamepad.Y, true)
	require.NoError(t, err)
	assert.Equal(t, synth.VKPressed, tag)

	_, err = f.mapper.Press(gamepad.MaxUsers, gamepad.Y, true)
	assert.Error(t, err)
}

func TestKeyRepeat(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.buttons(t, 0, gamepad.State{}, gamepad.State{Buttons: uint16(gamepad.X)}))

	f.now = f.now.Add(testTiming.InitialDelay - time.Millisecond)
	assert.Equal(t, 0, f.mapper.KeyRepeat())

	f.now = f.now.Add(2 * time.Millisecond)
	assert.Equal(t, 1, f.mapper.KeyRepeat())
	assert.Len(t, f.rec.Events(), 2)
}

func TestPadsAreIndependent(t *testing.T) {
	f := newFixture(t)
	f.mapper.cfg.Prober = nil
	held := gamepad.State{Buttons: uint16(gamepad.A)}

	require.NoError(t, f.buttons(t, 0, gamepad.State{}, held))
	require.NoError(t, f.buttons(t, 1, gamepad.State{}, held))
	require.NoError(t, f.buttons(t, 0, held, gamepad.State{}))

	p0, err := f.mapper.Pad(0)
	require.NoError(t, err)
	p1, err := f.mapper.Pad(1)
	require.NoError(t, err)
	assert.Equal(t, 0, p0.Engine().Asserted())
	assert.Equal(t, 1, p1.Engine().Asserted())

	require.Len(t, f.diags, 3)
	assert.Equal(t, "pad0", f.diags[0].Source)
	assert.Equal(t, "pad1", f.diags[1].Source)
}

func TestSecondPadIgnoredWhileKeyLive(t *testing.T) {
	f := newFixture(t)
	held := gamepad.State{Buttons: uint16(gamepad.A)}

	require.NoError(t, f.buttons(t, 0, gamepad.State{}, held))
	require.NoError(t, f.buttons(t, 1, gamepad.State{}, held))

	assert.Len(t, f.rec.Events(), 1)
	assert.Equal(t, synth.VKIgnored, f.diags[1].Tag)
}

func TestReleaseAll(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.buttons(t, 0, gamepad.State{}, gamepad.State{Buttons: uint16(gamepad.A | gamepad.LeftShoulder)}))
	require.NoError(t, f.mapper.RightTriggerChanged(1, gamepad.State{RightTrigger: true}))

	assert.Equal(t, 3, f.mapper.ReleaseAll())
	assert.Empty(t, f.rec.Down())
}

func TestRebindReleasesChangedKeys(t *testing.T) {
	f := newFixture(t)
	held := gamepad.State{Buttons: uint16(gamepad.A | gamepad.B)}
	require.NoError(t, f.buttons(t, 0, gamepad.State{}, held))

	table, err := DefaultTable().With(map[string]string{"a": "tab", "start": "f5"})
	require.NoError(t, err)
	f.mapper.Rebind(table)

	assert.False(t, f.rec.IsDown(synth.VK(synth.VKSpace)))
	assert.True(t, f.rec.IsDown(synth.VK(synth.VKReturn)))

	require.NoError(t, f.buttons(t, 0, held, gamepad.State{Buttons: uint16(gamepad.B)}))
	require.NoError(t, f.buttons(t, 0, gamepad.State{Buttons: uint16(gamepad.B)}, gamepad.State{Buttons: uint16(gamepad.A | gamepad.B | gamepad.Start)}))

	assert.True(t, f.rec.IsDown(synth.VK(synth.VKTab)))
	assert.True(t, f.rec.IsDown(synth.VK(synth.VKF1+4)))
}

func TestRebindReleasesShoulderKey(t *testing.T) {
	f := newFixture(t)
	zone := analog.Zone{X: 1}
	held := gamepad.State{Buttons: uint16(gamepad.LeftShoulder), Left: zone}
	require.NoError(t, f.buttons(t, 0, gamepad.State{Left: zone}, held))
	require.True(t, f.rec.IsDown(synth.Scan(0x22)))

	// Rebinding another button leaves the shoulder alone.
	table, err := DefaultTable().With(map[string]string{"a": "tab"})
	require.NoError(t, err)
	f.mapper.Rebind(table)
	assert.True(t, f.rec.IsDown(synth.Scan(0x22)))

	table, err = DefaultTable().With(map[string]string{"lb": "tab"})
	require.NoError(t, err)
	f.mapper.Rebind(table)
	assert.False(t, f.rec.IsDown(synth.Scan(0x22)))

	require.NoError(t, f.buttons(t, 0, held, gamepad.State{Left: zone}))
	pad, err := f.mapper.Pad(0)
	require.NoError(t, err)
	assert.Equal(t, 0, pad.Engine().Asserted())

	f.now = f.now.Add(time.Second)
	assert.Equal(t, 0, f.mapper.KeyRepeat())
	assert.Empty(t, f.rec.Down())
}

func TestRebindReleasesLatchedShift(t *testing.T) {
	f := newFixture(t)
	held := gamepad.State{Buttons: uint16(gamepad.LeftShoulder)}
	require.NoError(t, f.buttons(t, 0, gamepad.State{}, held))
	require.True(t, f.rec.IsDown(synth.VK(synth.VKLShift)))

	table, err := DefaultTable().With(map[string]string{"lb": "none"})
	require.NoError(t, err)
	f.mapper.Rebind(table)
	assert.False(t, f.rec.IsDown(synth.VK(synth.VKLShift)))

	require.NoError(t, f.buttons(t, 0, held, gamepad.State{}))
	assert.Empty(t, f.rec.Down())
}

func TestReaderDrivesMapper(t *testing.T) {
	f := newFixture(t)
	src := &stepSource{}
	r := gamepad.NewReader(src, gamepad.ReaderConfig{Thresholds: gamepad.DefaultThresholds(), Users: 1})

	src.raw = gamepad.Raw{Packet: 1, ThumbLY: 30000}
	require.NoError(t, r.Read(f.mapper))
	src.raw = gamepad.Raw{Packet: 2, ThumbLY: 30000, LeftTrigger: 255}
	require.NoError(t, r.Read(f.mapper))
	src.raw = gamepad.Raw{Packet: 3, LeftTrigger: 0}
	require.NoError(t, r.Read(f.mapper))
	src.raw = gamepad.Raw{Packet: 4, Buttons: uint16(gamepad.Back)}
	require.ErrorIs(t, r.Read(f.mapper), ErrQuit)

	assert.Equal(t, []sink.Event{
		ev(synth.Scan(0x12), true),
		ev(synth.Scan(0x12), false),
	}, f.rec.Events())
}

type stepSource struct {
	raw gamepad.Raw
}

func (s *stepSource) Poll(user int) (gamepad.Raw, bool) { return s.raw, true }
func (s *stepSource) Close() error                      { return nil }
