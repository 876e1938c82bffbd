package mapper

import (
	"fmt"
	"sort"
	"strings"

	"touchbox/internal/gamepad"
	"touchbox/internal/synth"
)

// ActionKind selects what a bound button does.
type ActionKind uint8

const (
	// ActionKey presses a fixed virtual key while the button is held.
	ActionKey ActionKind = iota + 1
	// ActionLeftShoulder types from the left half of the keyboard, or
	// shifts when the left stick is centered.
	ActionLeftShoulder
	// ActionRightShoulder is the right-hand counterpart.
	ActionRightShoulder
	// ActionQuit stops the driver when the button is pressed.
	ActionQuit
)

// Action is the target of a binding.
type Action struct {
	Kind ActionKind
	VK   uint16
}

// Key returns an action pressing vk.
func Key(vk uint16) Action {
	return Action{Kind: ActionKey, VK: vk}
}

var (
	LeftShoulder  = Action{Kind: ActionLeftShoulder}
	RightShoulder = Action{Kind: ActionRightShoulder}
	Quit          = Action{Kind: ActionQuit}
)

// Action names accepted in configuration besides key names.
const (
	nameLeftShoulder  = "left_shoulder"
	nameRightShoulder = "right_shoulder"
	nameQuit          = "quit"
	nameNone          = "none"
)

func (a Action) String() string {
	switch a.Kind {
	case ActionKey:
		return synth.VKName(a.VK)
	case ActionLeftShoulder:
		return nameLeftShoulder
	case ActionRightShoulder:
		return nameRightShoulder
	case ActionQuit:
		return nameQuit
	default:
		return nameNone
	}
}

// ParseAction parses an action name or a key name.
func ParseAction(name string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case nameLeftShoulder:
		return LeftShoulder, nil
	case nameRightShoulder:
		return RightShoulder, nil
	case nameQuit:
		return Quit, nil
	}
	vk, err := synth.ParseVK(name)
	if err != nil {
		return Action{}, fmt.Errorf("invalid action: %w", err)
	}
	return Key(vk), nil
}

// Binding ties one button to one action.
type Binding struct {
	Button gamepad.Button
	Action Action
}

// Table is an ordered set of bindings, at most one per button.
type Table []Binding

// DefaultTable returns the stock layout.
func DefaultTable() Table {
	return Table{
		{gamepad.A, Key(synth.VKSpace)},
		{gamepad.B, Key(synth.VKReturn)},
		{gamepad.X, Key(synth.VKBack)},
		{gamepad.Y, Key(synth.VKEscape)},
		{gamepad.DPadUp, Key(synth.VKUp)},
		{gamepad.DPadDown, Key(synth.VKDown)},
		{gamepad.DPadLeft, Key(synth.VKLeft)},
		{gamepad.DPadRight, Key(synth.VKRight)},
		{gamepad.LeftShoulder, LeftShoulder},
		{gamepad.RightShoulder, RightShoulder},
		{gamepad.Back, Quit},
	}
}

// Lookup returns the action bound to b.
func (t Table) Lookup(b gamepad.Button) (Action, bool) {
	for _, binding := range t {
		if binding.Button == b {
			return binding.Action, true
		}
	}
	return Action{}, false
}

// With returns a copy of t with overrides applied. Keys are button names,
// values are action or key names; "none" removes the binding. Overrides for
// buttons not in t are appended in button order.
func (t Table) With(overrides map[string]string) (Table, error) {
	out := make(Table, len(t))
	copy(out, t)

	names := make([]string, 0, len(overrides))
	for name := range overrides {
		names = append(names, name)
	}
	sort.Strings(names)

	var added Table
	for _, name := range names {
		b, err := gamepad.ParseButton(name)
		if err != nil {
			return nil, err
		}
		value := overrides[name]
		if strings.EqualFold(strings.TrimSpace(value), nameNone) {
			out = out.without(b)
			added = added.without(b)
			continue
		}
		a, err := ParseAction(value)
		if err != nil {
			return nil, fmt.Errorf("binding %s: %w", name, err)
		}
		if i := out.index(b); i >= 0 {
			out[i].Action = a
			continue
		}
		added = append(added, Binding{Button: b, Action: a})
	}

	sort.Slice(added, func(i, j int) bool { return added[i].Button < added[j].Button })
	return append(out, added...), nil
}

// Map returns the table as button name to action name.
func (t Table) Map() map[string]string {
	m := make(map[string]string, len(t))
	for _, b := range t {
		m[b.Button.String()] = b.Action.String()
	}
	return m
}

func (t Table) index(b gamepad.Button) int {
	for i, binding := range t {
		if binding.Button == b {
			return i
		}
	}
	return -1
}

func (t Table) without(b gamepad.Button) Table {
	i := t.index(b)
	if i < 0 {
		return t
	}
	return append(t[:i:i], t[i+1:]...)
}
