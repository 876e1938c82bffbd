package analog

// Side selects one half of the virtual split keyboard.
type Side int

const (
	Left Side = iota
	Right
)

func (s Side) String() string {
	switch s {
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return "unknown"
	}
}

// Matrix dimensions.
const (
	Rows = 6
	Cols = 14
)

// Anchors: the home row, and the middle finger key of each hand (D and K).
const (
	baseRow      = 3
	leftBaseCol  = 3
	rightBaseCol = 8
)

// scanMatrix holds PC set 1 scancodes laid out like a US keyboard.
var scanMatrix = [Rows][Cols]uint16{
	// Esc F1..F12 Backspace
	{0x01, 0x3B, 0x3C, 0x3D, 0x3E, 0x3F, 0x40, 0x41, 0x42, 0x43, 0x44, 0x57, 0x58, 0x0E},
	// ` 1 2 3 4 5 6 7 8 9 0 - = Backspace
	{0x29, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0A, 0x0B, 0x0C, 0x0D, 0x0E},
	// Tab Q W E R T Y U I O P [ ] \
	{0x0F, 0x10, 0x11, 0x12, 0x13, 0x14, 0x15, 0x16, 0x17, 0x18, 0x19, 0x1A, 0x1B, 0x2B},
	// Caps A S D F G H J K L ; ' Enter Enter
	{0x3A, 0x1E, 0x1F, 0x20, 0x21, 0x22, 0x23, 0x24, 0x25, 0x26, 0x27, 0x28, 0x1C, 0x1C},
	// LShift Z X C V B N M , . / RShift RShift RShift
	{0x2A, 0x2C, 0x2D, 0x2E, 0x2F, 0x30, 0x31, 0x32, 0x33, 0x34, 0x35, 0x36, 0x36, 0x36},
	// Ctrl Alt Space... Alt Ctrl
	{0x1D, 0x38, 0x39, 0x39, 0x39, 0x39, 0x39, 0x39, 0x39, 0x39, 0x39, 0x39, 0x38, 0x1D},
}

// Scancode returns the scancode at the given offset from the side's anchor
// key. Row and column are each clamped to the matrix, so any offset yields
// the nearest key on the edge.
func Scancode(side Side, rowOffset, colOffset int) uint16 {
	col := leftBaseCol
	if side == Right {
		col = rightBaseCol
	}

	row := clamp(baseRow+rowOffset, 0, Rows-1)
	col = clamp(col+colOffset, 0, Cols-1)
	return scanMatrix[row][col]
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
