package explore

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// sortField defines which column to sort by.
type sortField int

const (
	sortByBrand sortField = iota
	sortByNumber
	sortByHits
	sortByFiles
	sortByStatus
	sortFieldCount // sentinel
)

var sortFieldNames = [sortFieldCount]string{
	"Brand", "Number", "Hits", "Files", "Status",
}

// findingsPane is the top-right findings table.
type findingsPane struct {
	keys    *keyMap
	rows    []*findingRow // filtered rows
	allRows []*findingRow // all rows (unfiltered)
	cursor  int
	offset  int
	width   int
	height  int
	focused bool
	sortBy  sortField
	sortAsc bool

	// Column widths
	colBrand  int
	colNumber int
	colHits   int
	colFiles  int
	colTrack  int
	colStatus int
}

func newFindingsPane(rows []*findingRow, keys *keyMap) findingsPane {
	fp := findingsPane{
		keys:    keys,
		allRows: rows,
		rows:    rows,
		sortAsc: true,
	}
	fp.sort()
	return fp
}

func (fp *findingsPane) setFilteredRows(rows []*findingRow) {
	fp.rows = rows
	fp.sort()
	if fp.cursor >= len(fp.rows) {
		fp.cursor = max(0, len(fp.rows)-1)
	}
	fp.ensureVisible()
}

func (fp findingsPane) selectedFinding() *findingRow {
	if fp.cursor < 0 || fp.cursor >= len(fp.rows) {
		return nil
	}
	return fp.rows[fp.cursor]
}

func (fp findingsPane) Update(msg tea.Msg) (findingsPane, tea.Cmd) {
	if !fp.focused {
		return fp, nil
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, fp.keys.Up):
			if fp.cursor > 0 {
				fp.cursor--
				fp.ensureVisible()
			}
		case key.Matches(msg, fp.keys.Down):
			if fp.cursor < len(fp.rows)-1 {
				fp.cursor++
				fp.ensureVisible()
			}
		case key.Matches(msg, fp.keys.Home):
			fp.cursor = 0
			fp.offset = 0
		case key.Matches(msg, fp.keys.End):
			fp.cursor = max(0, len(fp.rows)-1)
			fp.ensureVisible()
		case key.Matches(msg, fp.keys.PageDown):
			fp.cursor = min(fp.cursor+fp.visibleRows(), len(fp.rows)-1)
			fp.ensureVisible()
		case key.Matches(msg, fp.keys.PageUp):
			fp.cursor = max(fp.cursor-fp.visibleRows(), 0)
			fp.ensureVisible()
		case key.Matches(msg, fp.keys.SortNext):
			fp.sortBy = (fp.sortBy + 1) % sortFieldCount
			fp.sort()
		case key.Matches(msg, fp.keys.ReverseSort):
			fp.sortAsc = !fp.sortAsc
			fp.sort()
		}
	}

	return fp, nil
}

// sort orders the visible rows by the current column. Ties keep the
// number order so the table is stable across re-sorts.
func (fp *findingsPane) sort() {
	var compare func(a, b *findingRow) int
	switch fp.sortBy {
	case sortByBrand:
		compare = func(a, b *findingRow) int { return strings.Compare(a.Brand, b.Brand) }
	case sortByNumber:
		compare = func(a, b *findingRow) int { return 0 }
	case sortByHits:
		compare = func(a, b *findingRow) int { return cmp.Compare(a.MatchCount, b.MatchCount) }
	case sortByFiles:
		compare = func(a, b *findingRow) int { return cmp.Compare(a.FileCount, b.FileCount) }
	case sortByStatus:
		compare = func(a, b *findingRow) int { return strings.Compare(a.AnnotationStatus, b.AnnotationStatus) }
	}
	slices.SortStableFunc(fp.rows, func(a, b *findingRow) int {
		c := compare(a, b)
		if c == 0 {
			c = strings.Compare(a.Number, b.Number)
		}
		if !fp.sortAsc {
			c = -c
		}
		return c
	})
}

func (fp findingsPane) View() string {
	if fp.width <= 0 || fp.height <= 0 {
		return ""
	}

	// Calculate column widths
	contentWidth := fp.width - 4 // borders
	fp.colNumber = 19
	fp.colHits = 6
	fp.colFiles = 6
	fp.colTrack = 6
	fp.colStatus = 8
	fp.colBrand = contentWidth - fp.colNumber - fp.colHits - fp.colFiles - fp.colTrack - fp.colStatus - 6 // separators
	if fp.colBrand < 10 {
		fp.colBrand = 10
	}

	var b strings.Builder

	// Header row
	sortIndicator := func(f sortField) string {
		if fp.sortBy == f {
			if fp.sortAsc {
				return " ^"
			}
			return " v"
		}
		return ""
	}

	header := fmt.Sprintf(" %-*s %-*s %*s %*s %-*s %-*s",
		fp.colBrand, "Brand"+sortIndicator(sortByBrand),
		fp.colNumber, "Number"+sortIndicator(sortByNumber),
		fp.colHits, "Hits"+sortIndicator(sortByHits),
		fp.colFiles, "Files"+sortIndicator(sortByFiles),
		fp.colTrack, "Track",
		fp.colStatus, "Status"+sortIndicator(sortByStatus),
	)
	b.WriteString(headerRowStyle.Width(contentWidth).Render(truncateString(header, contentWidth)))
	b.WriteString("\n")

	// Separator
	b.WriteString(strings.Repeat("─", contentWidth))
	b.WriteString("\n")

	// Data rows
	visibleEnd := min(fp.offset+fp.visibleRows(), len(fp.rows))
	for i := fp.offset; i < visibleEnd; i++ {
		row := fp.rows[i]
		isCurrent := i == fp.cursor

		statusStr := renderAnnotationStatus(row.AnnotationStatus)

		line := fmt.Sprintf(" %-*s %-*s %*d %*d %-*s %-*s",
			fp.colBrand, truncateString(row.Brand, fp.colBrand),
			fp.colNumber, truncateString(row.Number, fp.colNumber),
			fp.colHits, row.MatchCount,
			fp.colFiles, row.FileCount,
			fp.colTrack, row.trackSummary(),
			fp.colStatus, statusStr,
		)

		if isCurrent && fp.focused {
			line = selectedRowStyle.Width(contentWidth).Render(stripAnsi(line))
		}

		b.WriteString(padRight(line, contentWidth))
		if i < visibleEnd-1 {
			b.WriteString("\n")
		}
	}

	// Fill empty rows
	for i := visibleEnd - fp.offset; i < fp.visibleRows(); i++ {
		b.WriteString(strings.Repeat(" ", contentWidth))
		if i < fp.visibleRows()-1 {
			b.WriteString("\n")
		}
	}

	title := titleStyle.Render(fmt.Sprintf(" Findings (%d/%d) [sort: %s] ", len(fp.rows), len(fp.allRows), sortFieldNames[fp.sortBy]))

	borderStyle := inactiveBorderStyle
	if fp.focused {
		borderStyle = activeBorderStyle
	}

	content := borderStyle.
		Width(fp.width - 2).
		Height(fp.height - 3).
		Render(b.String())

	return lipgloss.JoinVertical(lipgloss.Left, title, content)
}

func (fp findingsPane) visibleRows() int {
	return max(1, fp.height-6) // title + border + header + separator
}

func (fp *findingsPane) ensureVisible() {
	if fp.cursor < fp.offset {
		fp.offset = fp.cursor
	}
	if fp.cursor >= fp.offset+fp.visibleRows() {
		fp.offset = fp.cursor - fp.visibleRows() + 1
	}
}

func (fp *findingsPane) setSize(w, h int) {
	fp.width = w
	fp.height = h
}
