package explore

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
)

// keyMap holds the explorer's bindings. The status bar and the help overlay
// are rendered from the bindings' help text.
type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	Left     key.Binding
	Right    key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Home     key.Binding
	End      key.Binding

	FocusFilters  key.Binding
	FocusFindings key.Binding
	FocusDetails  key.Binding
	ToggleFilters key.Binding

	ToggleFilter key.Binding
	ResetFilter  key.Binding

	Accept         key.Binding
	Reject         key.Binding
	AcceptNext     key.Binding
	RejectNext     key.Binding
	NextUnreviewed key.Binding
	Comment        key.Binding

	SortNext    key.Binding
	ReverseSort key.Binding
	OpenSource  key.Binding
	ToggleHelp  key.Binding

	Quit      key.Binding
	ForceQuit key.Binding
}

func bind(help, desc string, keys ...string) key.Binding {
	return key.NewBinding(key.WithKeys(keys...), key.WithHelp(help, desc))
}

// newKeyMap returns the bindings for an explorer session. A masked session
// never hands the file to a pager, so "o" only shows the masked context.
func newKeyMap(mask bool) *keyMap {
	km := &keyMap{
		Up:       bind("k/up", "up", "up", "k"),
		Down:     bind("j/dn", "down", "down", "j"),
		Left:     bind("h", "previous match", "left", "h"),
		Right:    bind("l", "next match", "right", "l"),
		PageUp:   bind("C-b", "page up", "pgup", "ctrl+b"),
		PageDown: bind("C-f", "page down", "pgdown", "ctrl+f"),
		Home:     bind("g", "top", "home", "g"),
		End:      bind("G", "bottom", "end", "G"),

		FocusFilters:  bind("F1", "filters", "f1"),
		FocusFindings: bind("f", "findings", "f"),
		FocusDetails:  bind("d", "details", "d"),
		ToggleFilters: bind("F7", "show/hide filters", "f7"),

		ToggleFilter: bind("x/spc", "toggle value", "x", " ", "enter"),
		ResetFilter:  bind("C-r", "reset filters", "ctrl+r"),

		Accept:         bind("a", "accept", "a"),
		Reject:         bind("r", "reject", "r"),
		AcceptNext:     bind("A", "accept and advance", "A"),
		RejectNext:     bind("R", "reject and advance", "R"),
		NextUnreviewed: bind("n", "next unreviewed", "n"),
		Comment:        bind("c", "comment", "c"),

		SortNext:    bind("s", "sort", "s"),
		ReverseSort: bind("S", "reverse sort", "S"),
		OpenSource:  bind("o", "open file", "o"),
		ToggleHelp:  bind("?", "help", "?"),

		Quit:      bind("q", "quit", "q"),
		ForceQuit: bind("C-c", "quit", "ctrl+c"),
	}
	if mask {
		km.OpenSource.SetHelp("o", "context")
	}
	return km
}

// statusBindings are the hints shown on the status bar.
func (k *keyMap) statusBindings() []key.Binding {
	return []key.Binding{k.Down, k.Accept, k.Reject, k.NextUnreviewed, k.Comment, k.SortNext, k.OpenSource, k.ToggleHelp}
}

type helpSection struct {
	title    string
	bindings []key.Binding
	note     string
}

func (k *keyMap) helpSections() []helpSection {
	return []helpSection{
		{title: "NAVIGATION", bindings: []key.Binding{k.Up, k.Down, k.Left, k.Right, k.PageDown, k.PageUp, k.Home, k.End}},
		{title: "FOCUS", bindings: []key.Binding{k.FocusFilters, k.FocusFindings, k.FocusDetails, k.ToggleFilters}},
		{title: "FILTERS", bindings: []key.Binding{k.ToggleFilter, k.ResetFilter}},
		{
			title:    "TRIAGE",
			bindings: []key.Binding{k.Accept, k.Reject, k.AcceptNext, k.RejectNext, k.NextUnreviewed, k.Comment},
			note:     "pressing a/r again clears the status; rejected numbers\nare exported by report --format ignore",
		},
		{title: "VIEWS", bindings: []key.Binding{k.SortNext, k.ReverseSort, k.OpenSource, k.ToggleHelp}},
		{title: "QUIT", bindings: []key.Binding{k.Quit, k.ForceQuit}},
	}
}

// renderHelp lays out every section of the key map as plain text.
func renderHelp(k *keyMap) string {
	var b strings.Builder
	b.WriteString("panscan explore - card number triage\n")
	for _, s := range k.helpSections() {
		b.WriteString("\n" + s.title + "\n")
		for _, binding := range s.bindings {
			h := binding.Help()
			fmt.Fprintf(&b, "  %-10s %s\n", h.Key, h.Desc)
		}
		if s.note != "" {
			for _, line := range strings.Split(s.note, "\n") {
				b.WriteString("  " + strings.Repeat(" ", 11) + line + "\n")
			}
		}
	}
	return b.String()
}
