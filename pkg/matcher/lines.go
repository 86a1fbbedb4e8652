package matcher

import (
	"bytes"

	"github.com/praetorian-inc/panscan/pkg/types"
)

// lineIndex maps absolute offsets to line:column positions while input
// streams through. Newlines before the stream's horizon are folded into a
// count so memory stays bounded.
type lineIndex struct {
	newlines   []int64 // offsets of '\n' at or after the horizon
	pruned     int     // newlines dropped by prune
	lastPruned int64   // offset of the last dropped newline, -1 if none
}

func newLineIndex() *lineIndex {
	return &lineIndex{lastPruned: -1}
}

// observe records the newlines of a chunk starting at base.
func (l *lineIndex) observe(content []byte, base int64) {
	for i := 0; ; {
		j := bytes.IndexByte(content[i:], '\n')
		if j < 0 {
			return
		}
		l.newlines = append(l.newlines, base+int64(i+j))
		i += j + 1
	}
}

// prune forgets newlines before horizon.
func (l *lineIndex) prune(horizon int64) {
	n := 0
	for n < len(l.newlines) && l.newlines[n] < horizon {
		n++
	}
	if n == 0 {
		return
	}
	l.pruned += n
	l.lastPruned = l.newlines[n-1]
	l.newlines = append(l.newlines[:0], l.newlines[n:]...)
}

// point returns the 1-based position of off. off must not precede the
// horizon of the last prune.
func (l *lineIndex) point(off int64) types.SourcePoint {
	line := l.pruned + 1
	prev := l.lastPruned
	for _, nl := range l.newlines {
		if nl >= off {
			break
		}
		line++
		prev = nl
	}
	return types.SourcePoint{Line: line, Column: int(off - prev)}
}
