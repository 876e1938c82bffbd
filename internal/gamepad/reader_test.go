package gamepad

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedSource returns a fixed sample per slot; a missing slot is
// disconnected.
type scriptedSource struct {
	samples map[int]Raw
	polls   []int
}

func (s *scriptedSource) Poll(user int) (Raw, bool) {
	s.polls = append(s.polls, user)
	raw, ok := s.samples[user]
	return raw, ok
}

func (s *scriptedSource) Close() error { return nil }

type recordingHandler struct {
	calls []string
	fail  map[string]error
}

func (h *recordingHandler) record(name string, user int) error {
	h.calls = append(h.calls, fmt.Sprintf("%s:%d", name, user))
	return h.fail[name]
}

func (h *recordingHandler) ButtonsChanged(user int, old, cur State) error {
	return h.record("buttons", user)
}

func (h *recordingHandler) LeftZoneChanged(user int, old, cur State) error {
	return h.record("left", user)
}

func (h *recordingHandler) RightZoneChanged(user int, old, cur State) error {
	return h.record("right", user)
}

func (h *recordingHandler) LeftTriggerChanged(user int, cur State) error {
	return h.record("lt", user)
}

func (h *recordingHandler) RightTriggerChanged(user int, cur State) error {
	return h.record("rt", user)
}

func newTestReader(src Source) *Reader {
	return NewReader(src, ReaderConfig{Thresholds: DefaultThresholds()})
}

func TestReadDispatchesOnlyChangedFacets(t *testing.T) {
	src := &scriptedSource{samples: map[int]Raw{
		1: {Packet: 1, Buttons: uint16(A)},
	}}
	r := newTestReader(src)
	h := &recordingHandler{}

	require.NoError(t, r.Read(h))
	assert.Equal(t, []string{"buttons:1"}, h.calls)
	assert.Equal(t, []int{0, 1, 2, 3}, src.polls)

	h.calls = nil
	src.samples[1] = Raw{Packet: 2, Buttons: uint16(A), ThumbLY: 30000, RightTrigger: 200}
	require.NoError(t, r.Read(h))
	assert.Equal(t, []string{"left:1", "rt:1"}, h.calls)
}

func TestReadDispatchOrder(t *testing.T) {
	src := &scriptedSource{samples: map[int]Raw{
		0: {Packet: 9, Buttons: uint16(B), ThumbLX: 30000, ThumbRX: 30000, LeftTrigger: 255, RightTrigger: 255},
	}}
	h := &recordingHandler{}

	require.NoError(t, newTestReader(src).Read(h))
	assert.Equal(t, []string{"buttons:0", "left:0", "right:0", "lt:0", "rt:0"}, h.calls)
}

func TestReadSkipsUnchangedPacket(t *testing.T) {
	src := &scriptedSource{samples: map[int]Raw{0: {Packet: 5, Buttons: uint16(X)}}}
	r := newTestReader(src)
	h := &recordingHandler{}

	require.NoError(t, r.Read(h))
	require.Len(t, h.calls, 1)

	// Same packet number: the sample is not even compared.
	src.samples[0] = Raw{Packet: 5, Buttons: uint16(Y)}
	require.NoError(t, r.Read(h))
	assert.Len(t, h.calls, 1)
	assert.Equal(t, uint16(X), r.State(0).Buttons)
}

func TestReadNewPacketWithoutChangesDispatchesNothing(t *testing.T) {
	src := &scriptedSource{samples: map[int]Raw{0: {Packet: 1, ThumbLX: 100}}}
	r := newTestReader(src)
	h := &recordingHandler{}

	require.NoError(t, r.Read(h))
	src.samples[0] = Raw{Packet: 2, ThumbLX: 200}
	require.NoError(t, r.Read(h))
	assert.Empty(t, h.calls)
	assert.Equal(t, uint32(2), r.State(0).Packet)
}

func TestReadDisconnectReleasesEverything(t *testing.T) {
	src := &scriptedSource{samples: map[int]Raw{
		2: {Packet: 1, Buttons: uint16(LeftShoulder), LeftTrigger: 255},
	}}
	r := newTestReader(src)
	h := &recordingHandler{}

	require.NoError(t, r.Read(h))
	assert.True(t, r.Connected(2))
	h.calls = nil

	delete(src.samples, 2)
	require.NoError(t, r.Read(h))
	assert.Equal(t, []string{"buttons:2", "lt:2"}, h.calls)
	assert.False(t, r.Connected(2))
	assert.Equal(t, State{}, r.State(2))

	h.calls = nil
	require.NoError(t, r.Read(h))
	assert.Empty(t, h.calls)
}

func TestReadStopsOnHandlerError(t *testing.T) {
	boom := errors.New("boom")
	src := &scriptedSource{samples: map[int]Raw{
		0: {Packet: 1, Buttons: uint16(A), LeftTrigger: 255},
		1: {Packet: 1, Buttons: uint16(A)},
	}}
	h := &recordingHandler{fail: map[string]error{"buttons": boom}}

	err := newTestReader(src).Read(h)
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "user 0")
	assert.Equal(t, []string{"buttons:0"}, h.calls)
}

func TestReaderUsersLimit(t *testing.T) {
	src := &scriptedSource{samples: map[int]Raw{}}
	r := NewReader(src, ReaderConfig{Users: 2})
	require.NoError(t, r.Read(&recordingHandler{}))
	assert.Equal(t, []int{0, 1}, src.polls)

	assert.Equal(t, State{}, r.State(-1))
	assert.False(t, r.Connected(MaxUsers))
}

func TestSetThresholds(t *testing.T) {
	src := &scriptedSource{samples: map[int]Raw{0: {Packet: 1, ThumbLX: 5000}}}
	r := newTestReader(src)
	h := &recordingHandler{}

	require.NoError(t, r.Read(h))
	assert.Empty(t, h.calls)

	r.SetThresholds(Thresholds{LeftDeadzone: 1000, RightDeadzone: 1000, TriggerThreshold: 30})
	src.samples[0] = Raw{Packet: 2, ThumbLX: 5000}
	require.NoError(t, r.Read(h))
	assert.Equal(t, []string{"left:0"}, h.calls)
}
