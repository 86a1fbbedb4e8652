package explore

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/praetorian-inc/panscan/pkg/types"
)

// detailsPane shows match details for the selected finding.
type detailsPane struct {
	keys        *keyMap
	finding     *findingRow
	matchCursor int
	width       int
	height      int
	offset      int // scroll offset for content
	focused     bool

	// loadContext reads the bytes around a match; context caches the result
	// for the match under the cursor.
	loadContext func(*findingRow, *matchRow) *matchContext
	context     *matchContext
}

func newDetailsPane(loadContext func(*findingRow, *matchRow) *matchContext, keys *keyMap) detailsPane {
	return detailsPane{keys: keys, loadContext: loadContext}
}

func (dp *detailsPane) setFinding(f *findingRow) {
	dp.finding = f
	dp.setMatch(0)
}

func (dp *detailsPane) setMatch(i int) {
	dp.matchCursor = i
	dp.offset = 0
	dp.context = nil
	if dp.loadContext != nil {
		dp.context = dp.loadContext(dp.finding, dp.selectedMatch())
	}
}

func (dp detailsPane) selectedMatch() *matchRow {
	if dp.finding == nil || dp.matchCursor < 0 || dp.matchCursor >= len(dp.finding.Matches) {
		return nil
	}
	return dp.finding.Matches[dp.matchCursor]
}

func (dp detailsPane) Update(msg tea.Msg) (detailsPane, tea.Cmd) {
	if !dp.focused {
		return dp, nil
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, dp.keys.Up):
			if dp.offset > 0 {
				dp.offset--
			}
		case key.Matches(msg, dp.keys.Down):
			dp.offset++
		case key.Matches(msg, dp.keys.Left):
			if dp.matchCursor > 0 {
				dp.setMatch(dp.matchCursor - 1)
			}
		case key.Matches(msg, dp.keys.Right):
			if dp.finding != nil && dp.matchCursor < len(dp.finding.Matches)-1 {
				dp.setMatch(dp.matchCursor + 1)
			}
		case key.Matches(msg, dp.keys.Home):
			dp.offset = 0
		case key.Matches(msg, dp.keys.PageDown):
			dp.offset += dp.visibleRows()
		case key.Matches(msg, dp.keys.PageUp):
			dp.offset = max(0, dp.offset-dp.visibleRows())
		}
	}

	return dp, nil
}

func (dp detailsPane) View() string {
	if dp.width <= 0 || dp.height <= 0 {
		return ""
	}

	contentWidth := dp.width - 4

	var lines []string

	if dp.finding == nil {
		lines = append(lines, "  No finding selected")
	} else {
		f := dp.finding

		lines = append(lines, fmt.Sprintf("  %s %s",
			fieldLabelStyle.Render("Brand:"),
			fieldValueStyle.Render(f.Brand)))
		lines = append(lines, fmt.Sprintf("  %s %s",
			fieldLabelStyle.Render("Number:"),
			snippetMatchStyle.Render(f.Number)))
		lines = append(lines, fmt.Sprintf("  %s %d in %d files",
			fieldLabelStyle.Render("Hits:"),
			f.MatchCount, f.FileCount))

		if f.AnnotationStatus != "" {
			lines = append(lines, fmt.Sprintf("  %s %s",
				fieldLabelStyle.Render("Status:"),
				renderAnnotationStatus(f.AnnotationStatus)))
		}
		if f.Comment != "" {
			lines = append(lines, fmt.Sprintf("  %s %s",
				fieldLabelStyle.Render("Comment:"),
				fieldValueStyle.Render(f.Comment)))
		}

		lines = append(lines, "")

		// Match details
		if len(f.Matches) > 0 {
			lines = append(lines, fmt.Sprintf("  %s",
				headerRowStyle.Render(fmt.Sprintf("Match %d/%d (h/l to navigate)", dp.matchCursor+1, len(f.Matches)))))
			lines = append(lines, "  "+strings.Repeat("─", min(40, contentWidth-4)))

			m := dp.selectedMatch()
			if m != nil {
				lines = append(lines, renderMatchDetails(m, dp.context, contentWidth)...)
			}
		} else {
			lines = append(lines, "  No matches")
		}
	}

	// Apply scroll offset
	if dp.offset >= len(lines) {
		dp.offset = max(0, len(lines)-1)
	}
	visibleLines := lines
	if dp.offset < len(visibleLines) {
		visibleLines = visibleLines[dp.offset:]
	}
	if len(visibleLines) > dp.visibleRows() {
		visibleLines = visibleLines[:dp.visibleRows()]
	}

	var b strings.Builder
	for i, line := range visibleLines {
		b.WriteString(padRight(truncateString(line, contentWidth), contentWidth))
		if i < len(visibleLines)-1 {
			b.WriteString("\n")
		}
	}
	// Fill empty
	for i := len(visibleLines); i < dp.visibleRows(); i++ {
		b.WriteString(strings.Repeat(" ", contentWidth))
		if i < dp.visibleRows()-1 {
			b.WriteString("\n")
		}
	}

	title := titleStyle.Render(" Details ")

	borderStyle := inactiveBorderStyle
	if dp.focused {
		borderStyle = activeBorderStyle
	}

	content := borderStyle.
		Width(dp.width - 2).
		Height(dp.height - 3).
		Render(b.String())

	return lipgloss.JoinVertical(lipgloss.Left, title, content)
}

func renderMatchDetails(m *matchRow, ctx *matchContext, maxWidth int) []string {
	var lines []string

	for _, prov := range m.Provenance {
		switch p := prov.(type) {
		case types.FileProvenance:
			lines = append(lines, fmt.Sprintf("  %s %s",
				fieldLabelStyle.Render("File:"),
				fieldValueStyle.Render(p.FilePath)))
			if !p.Times.Modified.IsZero() {
				lines = append(lines, fmt.Sprintf("  %s %s",
					fieldLabelStyle.Render("Modified:"),
					p.Times.Modified.Format("2006-01-02 15:04:05")))
			}
		case types.ArchiveProvenance:
			lines = append(lines, fmt.Sprintf("  %s %s",
				fieldLabelStyle.Render("Archive:"),
				fieldValueStyle.Render(p.ArchivePath)))
			lines = append(lines, fmt.Sprintf("  %s %s",
				fieldLabelStyle.Render("Member:"),
				fieldValueStyle.Render(p.MemberPath)))
		case types.GitProvenance:
			lines = append(lines, fmt.Sprintf("  %s %s",
				fieldLabelStyle.Render("Repo:"),
				fieldValueStyle.Render(p.RepoPath)))
			lines = append(lines, fmt.Sprintf("  %s %s",
				fieldLabelStyle.Render("Path:"),
				fieldValueStyle.Render(p.BlobPath)))
			if p.Commit != nil {
				lines = append(lines, fmt.Sprintf("  %s %s",
					fieldLabelStyle.Render("Commit:"),
					fieldValueStyle.Render(p.Commit.CommitID)))
				if p.Commit.AuthorName != "" {
					lines = append(lines, fmt.Sprintf("  %s %s <%s>",
						fieldLabelStyle.Render("Author:"),
						fieldValueStyle.Render(p.Commit.AuthorName),
						p.Commit.AuthorEmail))
				}
			}
		case types.StreamProvenance:
			lines = append(lines, fmt.Sprintf("  %s %s",
				fieldLabelStyle.Render("Stream:"),
				fieldValueStyle.Render(p.Source)))
		}
	}

	blob := m.BlobID.Hex()
	if len(blob) > 12 {
		blob = blob[:12] + "..."
	}
	lines = append(lines, fmt.Sprintf("  %s %s",
		fieldLabelStyle.Render("Blob:"),
		fieldValueStyle.Render(blob)))

	if m.Location.Source.Start.Line > 0 {
		lines = append(lines, fmt.Sprintf("  %s %d:%d - %d:%d (bytes %d-%d)",
			fieldLabelStyle.Render("Location:"),
			m.Location.Source.Start.Line, m.Location.Source.Start.Column,
			m.Location.Source.End.Line, m.Location.Source.End.Column,
			m.Location.Offset.Start, m.Location.Offset.End))
	}

	lines = append(lines, fmt.Sprintf("  %s %s",
		fieldLabelStyle.Render("Rule:"),
		fieldValueStyle.Render(m.RuleID)))
	lines = append(lines, fmt.Sprintf("  %s %s",
		fieldLabelStyle.Render("Track:"),
		renderTrack(m.Track)))

	// Match annotation
	if m.AnnotationStatus != "" {
		lines = append(lines, fmt.Sprintf("  %s %s",
			fieldLabelStyle.Render("Status:"),
			renderAnnotationStatus(m.AnnotationStatus)))
	}
	if m.Comment != "" {
		lines = append(lines, fmt.Sprintf("  %s %s",
			fieldLabelStyle.Render("Comment:"),
			fieldValueStyle.Render(m.Comment)))
	}

	if ctx == nil {
		return lines
	}

	lines = append(lines, "")
	lines = append(lines, fmt.Sprintf("  %s", fieldLabelStyle.Render("Context:")))

	width := maxWidth - 6
	before := strings.Split(ctx.Before, "\n")
	after := strings.Split(ctx.After, "\n")

	// The match shares a line with the tail of before and the head of after.
	for _, line := range before[:len(before)-1] {
		if line != "" {
			lines = append(lines, "    "+snippetContextStyle.Render(truncateString(line, width)))
		}
	}
	lines = append(lines, "    "+
		snippetContextStyle.Render(before[len(before)-1])+
		snippetMatchStyle.Render(ctx.Matching)+
		snippetContextStyle.Render(after[0]))
	for _, line := range after[1:] {
		if line != "" {
			lines = append(lines, "    "+snippetContextStyle.Render(truncateString(line, width)))
		}
	}

	return lines
}

func (dp detailsPane) visibleRows() int {
	return max(1, dp.height-4)
}

func (dp *detailsPane) setSize(w, h int) {
	dp.width = w
	dp.height = h
}
