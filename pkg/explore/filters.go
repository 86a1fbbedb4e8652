package explore

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/praetorian-inc/panscan/pkg/types"
)

// filterPane lists the facets on the left. Each facet is a header followed
// by its values unless the facet is collapsed.
type filterPane struct {
	keys      *keyMap
	facets    *facetState
	collapsed map[facetID]bool
	rows      []filterRow
	cursor    int
	offset    int
	width     int
	height    int
	focused   bool
}

// filterRow is one visible line: a facet header when value is nil.
type filterRow struct {
	facet facetID
	value *facetValue
}

func newFilterPane(facets *facetState, keys *keyMap) filterPane {
	fp := filterPane{
		keys:      keys,
		facets:    facets,
		collapsed: make(map[facetID]bool),
	}
	fp.rebuildItems()
	return fp
}

// setFacets swaps in a rebuilt facet state, keeping the cursor in range.
func (fp *filterPane) setFacets(facets *facetState) {
	fp.facets = facets
	fp.rebuildItems()
	fp.cursor = min(fp.cursor, max(0, len(fp.rows)-1))
	fp.ensureVisible()
}

func (fp *filterPane) rebuildItems() {
	fp.rows = fp.rows[:0]
	for _, def := range facetDefs {
		values := fp.facets.Values[def.ID]
		if len(values) == 0 {
			continue
		}
		fp.rows = append(fp.rows, filterRow{facet: def.ID})
		if fp.collapsed[def.ID] {
			continue
		}
		for _, v := range values {
			fp.rows = append(fp.rows, filterRow{facet: def.ID, value: v})
		}
	}
}

func (fp filterPane) Update(msg tea.Msg) (filterPane, tea.Cmd) {
	if !fp.focused {
		return fp, nil
	}
	msgKey, ok := msg.(tea.KeyMsg)
	if !ok {
		return fp, nil
	}

	last := max(0, len(fp.rows)-1)
	switch {
	case key.Matches(msgKey, fp.keys.Up):
		fp.cursor = max(fp.cursor-1, 0)
	case key.Matches(msgKey, fp.keys.Down):
		fp.cursor = min(fp.cursor+1, last)
	case key.Matches(msgKey, fp.keys.Home):
		fp.cursor = 0
	case key.Matches(msgKey, fp.keys.End):
		fp.cursor = last
	case key.Matches(msgKey, fp.keys.PageDown):
		fp.cursor = min(fp.cursor+fp.visibleRows(), last)
	case key.Matches(msgKey, fp.keys.PageUp):
		fp.cursor = max(fp.cursor-fp.visibleRows(), 0)
	case key.Matches(msgKey, fp.keys.Left):
		fp.setCollapsed(true)
	case key.Matches(msgKey, fp.keys.Right):
		fp.setCollapsed(false)
	case key.Matches(msgKey, fp.keys.ToggleFilter):
		fp.toggleCurrent()
	case key.Matches(msgKey, fp.keys.ResetFilter):
		fp.facets.resetAll()
	}
	fp.ensureVisible()
	return fp, nil
}

func (fp *filterPane) current() (filterRow, bool) {
	if fp.cursor < 0 || fp.cursor >= len(fp.rows) {
		return filterRow{}, false
	}
	return fp.rows[fp.cursor], true
}

// setCollapsed folds or unfolds the facet under the cursor and parks the
// cursor on its header.
func (fp *filterPane) setCollapsed(collapsed bool) {
	row, ok := fp.current()
	if !ok {
		return
	}
	fp.collapsed[row.facet] = collapsed
	fp.rebuildItems()
	for i, r := range fp.rows {
		if r.value == nil && r.facet == row.facet {
			fp.cursor = i
			break
		}
	}
}

func (fp *filterPane) toggleCurrent() {
	row, ok := fp.current()
	if !ok {
		return
	}
	if row.value == nil {
		fp.setCollapsed(!fp.collapsed[row.facet])
		return
	}
	row.value.Selected = !row.value.Selected
}

func (fp filterPane) View() string {
	if fp.width <= 0 || fp.height <= 0 {
		return ""
	}
	inner := fp.width - 2

	var lines []string
	end := min(fp.offset+fp.visibleRows(), len(fp.rows))
	for i := fp.offset; i < end; i++ {
		line := fp.renderRow(fp.rows[i], inner)
		if i == fp.cursor && fp.focused {
			line = selectedRowStyle.Width(inner).Render(stripAnsi(line))
		}
		lines = append(lines, padRight(line, inner))
	}
	for len(lines) < fp.visibleRows() {
		lines = append(lines, strings.Repeat(" ", max(0, inner)))
	}

	border := inactiveBorderStyle
	if fp.focused {
		border = activeBorderStyle
	}
	title := " Filters "
	if fp.facets.hasActiveFilters() {
		title = " Filters (active) "
	}
	box := border.Width(inner).Height(fp.height - 3).Render(strings.Join(lines, "\n"))
	return lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(title), box)
}

func (fp filterPane) renderRow(row filterRow, width int) string {
	if row.value == nil {
		arrow := "▾"
		if fp.collapsed[row.facet] {
			arrow = "▸"
		}
		return facetLabelStyle.Render(fmt.Sprintf(" %s %s", arrow, facetLabel(row.facet)))
	}

	v := row.value
	label := truncateString(facetValueLabel(row.facet, v.Value), width-12)
	count := facetCountStyle.Render(fmt.Sprintf("(%d)", v.Count))
	if v.Selected {
		return fmt.Sprintf("   %s %s %s", facetSelectedStyle.Render("+"), facetSelectedStyle.Render(label), count)
	}
	return fmt.Sprintf("     %s %s", label, count)
}

func facetLabel(id facetID) string {
	for _, def := range facetDefs {
		if def.ID == id {
			return def.Label
		}
	}
	return "?"
}

// facetValueLabel turns stored facet values into readable labels.
func facetValueLabel(id facetID, value string) string {
	switch {
	case value != "-":
	case id == facetStatus:
		return "unreviewed"
	case id == facetTrack:
		return "no track data"
	case id == facetExtension:
		return "no extension"
	}
	switch value {
	case types.Track1:
		return "track 1"
	case types.Track2:
		return "track 2"
	}
	return value
}

func (fp filterPane) visibleRows() int {
	return max(1, fp.height-4)
}

func (fp *filterPane) ensureVisible() {
	if fp.cursor < fp.offset {
		fp.offset = fp.cursor
	}
	if fp.cursor >= fp.offset+fp.visibleRows() {
		fp.offset = fp.cursor - fp.visibleRows() + 1
	}
}

func (fp *filterPane) setSize(w, h int) {
	fp.width = w
	fp.height = h
}
