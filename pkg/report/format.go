package report

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/praetorian-inc/panscan/pkg/types"
)

// Format selects the base layout of a result line.
type Format int

const (
	// FormatTab is "file\tbrand\tpan".
	FormatTab Format = iota
	// FormatCSV is "pan,brand,file". The file goes last so names holding
	// commas stay recoverable.
	FormatCSV
	// FormatFilename prints the file name only.
	FormatFilename
)

// ParseFormat maps a --format value to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "text", "tab":
		return FormatTab, nil
	case "csv":
		return FormatCSV, nil
	case "filename":
		return FormatFilename, nil
	default:
		return 0, fmt.Errorf("unknown line format: %s", s)
	}
}

// TimeLayout is the ctime(3) layout used for --julian-times.
const TimeLayout = time.ANSIC

// Options controls how result lines are rendered.
type Options struct {
	Format Format

	// Optional suffixes, appended in this order.
	ByteOffset  bool // "\t<offset>"
	JulianTimes bool // "\t<mtime>\t<atime>\t<ctime>" in TimeLayout
	EpochTimes  bool // "\t<mtime>\t<atime>\t<ctime>" in Unix seconds
	Tracks      bool // "\tTRACK_n" on tagged matches

	// Mask hides the middle digits.
	Mask bool

	// Location renders JulianTimes. Nil means time.Local.
	Location *time.Location
}

// Line renders one result line without a trailing newline.
func (o Options) Line(path string, times types.FileTimes, m *types.Match) string {
	digits := m.Digits
	if o.Mask {
		digits = Mask(digits)
	}

	var b strings.Builder
	switch o.Format {
	case FormatFilename:
		b.WriteString(path)
	case FormatCSV:
		b.WriteString(digits)
		b.WriteByte(',')
		b.WriteString(m.Brand)
		b.WriteByte(',')
		b.WriteString(path)
	default:
		b.WriteString(path)
		b.WriteByte('\t')
		b.WriteString(m.Brand)
		b.WriteByte('\t')
		b.WriteString(digits)
	}

	if o.ByteOffset {
		b.WriteByte('\t')
		b.WriteString(strconv.FormatInt(m.Location.Offset.Start, 10))
	}
	if o.JulianTimes {
		loc := o.Location
		if loc == nil {
			loc = time.Local
		}
		for _, t := range []time.Time{times.Modified, times.Accessed, times.Changed} {
			b.WriteByte('\t')
			b.WriteString(t.In(loc).Format(TimeLayout))
		}
	}
	if o.EpochTimes {
		for _, t := range []time.Time{times.Modified, times.Accessed, times.Changed} {
			b.WriteByte('\t')
			b.WriteString(strconv.FormatInt(epoch(t), 10))
		}
	}
	if o.Tracks && m.Track != "" {
		b.WriteByte('\t')
		b.WriteString(m.Track)
	}
	return b.String()
}

func epoch(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}
