package pan

const (
	// windowCap is the longest run the window holds. Reaching it shifts the
	// oldest digit out, so 17 is never classified directly.
	windowCap = 17

	minCandidate = 13
	maxCandidate = 16

	// contextSize is how many recent bytes stay addressable for lookaround.
	contextSize = 256

	// lookahead is the furthest a check reads past the last digit.
	lookahead = 3
)

// digitWindow is the current run of digits with the absolute offset of each.
type digitWindow struct {
	digits  [windowCap]uint8
	offsets [windowCap]int64
	n       int
}

func (w *digitWindow) push(d uint8, off int64) {
	w.digits[w.n] = d
	w.offsets[w.n] = off
	w.n++
}

// shift drops the oldest digit.
func (w *digitWindow) shift() {
	copy(w.digits[:], w.digits[1:w.n])
	copy(w.offsets[:], w.offsets[1:w.n])
	w.n--
}

func (w *digitWindow) reset() {
	w.n = 0
}

func (w *digitWindow) full() bool {
	return w.n == windowCap
}

// contextBuffer is a ring of the most recent bytes of a stream, addressed
// by absolute offset.
type contextBuffer struct {
	buf  [contextSize]byte
	next int64 // absolute offset of the next byte
}

func (c *contextBuffer) push(b byte) {
	c.buf[c.next%contextSize] = b
	c.next++
}

// at returns the byte at off. Offsets not yet seen, or already overwritten,
// report false.
func (c *contextBuffer) at(off int64) (byte, bool) {
	if off < 0 || off >= c.next || off < c.next-contextSize {
		return 0, false
	}
	return c.buf[off%contextSize], true
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// isNoise reports bytes that may sit inside a card number without breaking
// the run: NUL, CR, LF and '-'.
func isNoise(b byte) bool {
	return b == 0 || b == '\r' || b == '\n' || b == '-'
}
