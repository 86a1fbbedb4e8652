package report

import (
	"os"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// Styles holds color formatters for human-facing output.
type Styles struct {
	Heading *color.Color
	Label   *color.Color
	Value   *color.Color
	Brand   *color.Color
	Number  *color.Color
	Path    *color.Color
	Track   *color.Color
}

// NewStyles creates color formatters.
// enabled=false respects --color never and the NO_COLOR env var.
func NewStyles(enabled bool) *Styles {
	s := &Styles{
		Heading: color.New(color.Bold, color.FgHiWhite),
		Label:   color.New(color.Bold),
		Value:   color.New(color.FgHiGreen),
		Brand:   color.New(color.Bold, color.FgHiBlue),
		Number:  color.New(color.FgYellow),
		Path:    color.New(color.FgHiBlue),
		Track:   color.New(color.FgHiRed),
	}

	for _, c := range []*color.Color{s.Heading, s.Label, s.Value, s.Brand, s.Number, s.Path, s.Track} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	return s
}

// ColorEnabled resolves a --color mode (auto, always, never) for f.
func ColorEnabled(mode string, f *os.File) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	default:
		if os.Getenv("NO_COLOR") != "" {
			return false
		}
		return term.IsTerminal(int(f.Fd()))
	}
}
