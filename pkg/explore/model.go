package explore

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/praetorian-inc/panscan/pkg/store"
	"github.com/praetorian-inc/panscan/pkg/types"
)

type focusedPane int

const (
	paneFilters focusedPane = iota
	paneFindings
	paneDetails
)

type overlay int

const (
	overlayNone overlay = iota
	overlayHelp
	overlaySource
	overlayComment
)

// pagerFinishedMsg is sent when an external pager process exits.
type pagerFinishedMsg struct{ err error }

// Model is the root Bubble Tea model for the explore TUI.
type Model struct {
	keys     *keyMap
	data     *exploreData
	filters  filterPane
	findings findingsPane
	details  detailsPane

	focus         focusedPane
	activeOverlay overlay
	showFilters   bool

	// Scrollable overlay text (help or source context).
	overlayText   string
	overlayOffset int

	// Comment input; commentKind is store.AnnotationFinding or store.AnnotationMatch.
	commentInput string
	commentKind  string

	width  int
	height int
	err    error
}

// New creates a new Model by loading data from the given datastore path.
// With mask set, card numbers are shown with their middle digits hidden.
func New(datastorePath string, mask bool) (Model, error) {
	data, err := loadData(datastorePath, mask)
	if err != nil {
		return Model{}, err
	}
	return newModel(data), nil
}

func newModel(data *exploreData) Model {
	keys := newKeyMap(data.mask)
	m := Model{
		keys:        keys,
		data:        data,
		filters:     newFilterPane(buildFacets(data.findings), keys),
		findings:    newFindingsPane(data.findings, keys),
		details:     newDetailsPane(data.context, keys),
		showFilters: true,
	}
	m.setFocus(paneFindings)
	m.details.setFinding(m.findings.selectedFinding())
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.SetWindowTitle("panscan explore")
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case pagerFinishedMsg:
		m.err = msg.err
		return m, nil

	case tea.MouseMsg:
		if m.activeOverlay == overlayNone && msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft {
			m.handleMouseClick(msg.X, msg.Y)
		}
		return m, nil

	case tea.KeyMsg:
		if m.activeOverlay != overlayNone {
			return m.updateOverlay(msg)
		}
		if handled, cmd := m.handleGlobalKey(msg); handled {
			return m, cmd
		}
		if m.focus != paneFilters {
			if handled, cmd := m.handleTriageKey(msg); handled {
				return m, cmd
			}
		}
		return m.updateFocused(msg)
	}
	return m, nil
}

func (m *Model) handleGlobalKey(msg tea.KeyMsg) (bool, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.ForceQuit, m.keys.Quit):
		return true, tea.Quit
	case key.Matches(msg, m.keys.ToggleHelp):
		m.showOverlay(overlayHelp, renderHelp(m.keys))
	case key.Matches(msg, m.keys.ToggleFilters):
		m.showFilters = !m.showFilters
		if !m.showFilters && m.focus == paneFilters {
			m.setFocus(paneFindings)
		}
		m.resize()
	case key.Matches(msg, m.keys.FocusFilters):
		m.showFilters = true
		m.setFocus(paneFilters)
		m.resize()
	case key.Matches(msg, m.keys.FocusFindings):
		m.setFocus(paneFindings)
	case key.Matches(msg, m.keys.FocusDetails):
		m.setFocus(paneDetails)
	default:
		return false, nil
	}
	return true, nil
}

// handleTriageKey applies annotation keys to the selected finding, or to the
// selected match when the details pane has focus.
func (m *Model) handleTriageKey(msg tea.KeyMsg) (bool, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Accept):
		m.toggleStatus(store.StatusAccept)
	case key.Matches(msg, m.keys.Reject):
		m.toggleStatus(store.StatusReject)
	case key.Matches(msg, m.keys.AcceptNext):
		m.toggleStatus(store.StatusAccept)
		m.moveNext()
	case key.Matches(msg, m.keys.RejectNext):
		m.toggleStatus(store.StatusReject)
		m.moveNext()
	case key.Matches(msg, m.keys.NextUnreviewed):
		m.nextUnreviewed()
	case key.Matches(msg, m.keys.Comment):
		m.startComment()
	case key.Matches(msg, m.keys.OpenSource):
		return true, m.openSource()
	default:
		return false, nil
	}
	return true, nil
}

func (m Model) updateFocused(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.focus {
	case paneFilters:
		m.filters, cmd = m.filters.Update(msg)
		m.applyFilters()
	case paneFindings:
		prev := m.findings.selectedFinding()
		m.findings, cmd = m.findings.Update(msg)
		if f := m.findings.selectedFinding(); f != prev {
			m.details.setFinding(f)
		}
	case paneDetails:
		m.details, cmd = m.details.Update(msg)
	}
	return m, cmd
}

func (m *Model) showOverlay(o overlay, text string) {
	m.activeOverlay = o
	m.overlayText = text
	m.overlayOffset = 0
}

func (m *Model) updateOverlay(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.activeOverlay == overlayComment {
		m.updateComment(msg)
		return *m, nil
	}

	closeKey := m.keys.ToggleHelp
	if m.activeOverlay == overlaySource {
		closeKey = m.keys.OpenSource
	}
	switch {
	case key.Matches(msg, m.keys.Quit, m.keys.ForceQuit, closeKey):
		m.activeOverlay = overlayNone
	case key.Matches(msg, m.keys.Down):
		m.overlayOffset++
	case key.Matches(msg, m.keys.Up):
		m.overlayOffset = max(0, m.overlayOffset-1)
	case key.Matches(msg, m.keys.PageDown):
		m.overlayOffset += m.height / 2
	case key.Matches(msg, m.keys.PageUp):
		m.overlayOffset = max(0, m.overlayOffset-m.height/2)
	}
	return *m, nil
}

func (m *Model) updateComment(msg tea.KeyMsg) {
	switch msg.Type {
	case tea.KeyEnter:
		m.saveComment()
		m.activeOverlay = overlayNone
	case tea.KeyEsc, tea.KeyCtrlC:
		m.activeOverlay = overlayNone
	case tea.KeyBackspace:
		if r := []rune(m.commentInput); len(r) > 0 {
			m.commentInput = string(r[:len(r)-1])
		}
	case tea.KeySpace:
		m.commentInput += " "
	case tea.KeyRunes:
		m.commentInput += string(msg.Runes)
	}
}

// paneLayout is the screen split shared by View and mouse handling.
type paneLayout struct {
	filtersWidth   int
	findingsHeight int
	contentHeight  int
}

func (m *Model) layout() paneLayout {
	l := paneLayout{contentHeight: m.height - 2}
	if m.showFilters {
		l.filtersWidth = min(m.width*30/100, 50)
	}
	l.findingsHeight = l.contentHeight * 40 / 100
	return l
}

// resize hands each pane its share of the screen so that paging and
// scrolling use the real row counts.
func (m *Model) resize() {
	l := m.layout()
	dataWidth := m.width - l.filtersWidth
	m.findings.setSize(dataWidth, l.findingsHeight)
	m.details.setSize(dataWidth, l.contentHeight-l.findingsHeight)
	m.filters.setSize(l.filtersWidth, l.contentHeight)
}

func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}
	if m.activeOverlay != overlayNone {
		return m.renderOverlay()
	}

	body := lipgloss.JoinVertical(lipgloss.Left, m.findings.View(), m.details.View())
	if m.showFilters {
		body = lipgloss.JoinHorizontal(lipgloss.Top, m.filters.View(), body)
	}
	return lipgloss.JoinVertical(lipgloss.Left, body, m.renderStatusBar())
}

func (m *Model) reviewed() int {
	n := 0
	for _, f := range m.data.findings {
		if f.AnnotationStatus != "" {
			n++
		}
	}
	return n
}

func (m *Model) renderStatusBar() string {
	status := fmt.Sprintf(" %d findings | %d shown | %d reviewed", len(m.data.findings), len(m.findings.rows), m.reviewed())
	if m.data.mask {
		status += " | masked"
	}
	if m.err != nil {
		status += " | " + m.err.Error()
	}
	left := statusBarStyle.Render(status)

	hints := make([]string, 0, 8)
	for _, b := range m.keys.statusBindings() {
		h := b.Help()
		hints = append(hints, helpKeyStyle.Render(h.Key)+":"+helpDescStyle.Render(h.Desc))
	}
	right := strings.Join(hints, "  ")

	gap := max(0, m.width-lipgloss.Width(left)-lipgloss.Width(right))
	return left + strings.Repeat(" ", gap) + right
}

func (m *Model) renderOverlay() string {
	width := m.width * 80 / 100
	height := m.height * 80 / 100

	var title, content string
	switch m.activeOverlay {
	case overlayHelp:
		title = " Help (q to close) "
		content = m.scrollOverlay(height - 4)
	case overlaySource:
		title = " Context (q to close) "
		content = "  No context available"
		if m.overlayText != "" {
			content = m.scrollOverlay(height - 4)
		}
	case overlayComment:
		title = " Comment (enter to save, esc to cancel) "
		width = min(60, m.width-4)
		height = 5
		content = fmt.Sprintf("\n  > %s_\n", m.commentInput)
	}

	box := modalStyle.Width(width - 4).Height(height - 2).Render(content)
	view := lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(title), box)

	hPad := max(0, (m.width-lipgloss.Width(view))/2)
	vPad := max(0, (m.height-lipgloss.Height(view))/2)
	return strings.Repeat("\n", vPad) + lipgloss.NewStyle().PaddingLeft(hPad).Render(view)
}

func (m *Model) scrollOverlay(height int) string {
	lines := strings.Split(m.overlayText, "\n")
	m.overlayOffset = min(m.overlayOffset, max(0, len(lines)-1))
	end := min(m.overlayOffset+max(1, height), len(lines))
	return strings.Join(lines[m.overlayOffset:end], "\n")
}

func (m *Model) setFocus(p focusedPane) {
	m.filters.focused = p == paneFilters
	m.findings.focused = p == paneFindings
	m.details.focused = p == paneDetails
	m.focus = p
}

func (m *Model) handleMouseClick(x, y int) {
	l := m.layout()
	if y >= l.contentHeight {
		return
	}

	switch {
	case x < l.filtersWidth:
		m.setFocus(paneFilters)
		idx := y - 2 + m.filters.offset // title and top border
		if y >= 2 && idx < len(m.filters.rows) {
			m.filters.cursor = idx
			m.filters.toggleCurrent()
			m.applyFilters()
		}
	case y < l.findingsHeight:
		m.setFocus(paneFindings)
		idx := y - 4 + m.findings.offset // title, border, header, separator
		if y >= 4 && idx < len(m.findings.rows) {
			m.findings.cursor = idx
			m.details.setFinding(m.findings.selectedFinding())
		}
	default:
		m.setFocus(paneDetails)
	}
}

func (m *Model) applyFilters() {
	filtered := m.data.findings
	if m.filters.facets.hasActiveFilters() {
		filtered = nil
		for _, f := range m.data.findings {
			if m.filters.facets.matchesFinding(f) {
				filtered = append(filtered, f)
			}
		}
	}
	m.findings.setFilteredRows(filtered)
	m.filters.facets.updateCounts(m.data.findings)
	m.details.setFinding(m.findings.selectedFinding())
}

// toggleStatus sets status on the target, or clears it when already set,
// and persists the annotation immediately.
func (m *Model) toggleStatus(status string) {
	switch m.focus {
	case paneFindings:
		f := m.findings.selectedFinding()
		if f == nil {
			return
		}
		f.AnnotationStatus = toggled(f.AnnotationStatus, status)
		m.err = m.data.setFindingAnnotation(f.FindingID, f.AnnotationStatus, f.Comment)
		m.refreshFacets()
	case paneDetails:
		match := m.details.selectedMatch()
		if match == nil {
			return
		}
		match.AnnotationStatus = toggled(match.AnnotationStatus, status)
		m.err = m.data.setMatchAnnotation(match.StructuralID, match.AnnotationStatus, match.Comment)
	}
}

func toggled(current, status string) string {
	if current == status {
		return ""
	}
	return status
}

// refreshFacets rebuilds the facet values after a finding's status changed,
// keeping the current selections.
func (m *Model) refreshFacets() {
	old := m.filters.facets
	fresh := buildFacets(m.data.findings)
	for id, values := range fresh.Values {
		selected := old.selectedValues(id)
		for _, v := range values {
			v.Selected = selected[v.Value]
		}
	}
	m.filters.setFacets(fresh)
	fresh.updateCounts(m.data.findings)
}

func (m *Model) moveNext() {
	switch m.focus {
	case paneFindings:
		if m.findings.cursor < len(m.findings.rows)-1 {
			m.selectRow(m.findings.cursor + 1)
		}
	case paneDetails:
		if f := m.findings.selectedFinding(); f != nil && m.details.matchCursor < len(f.Matches)-1 {
			m.details.setMatch(m.details.matchCursor + 1)
		}
	}
}

// nextUnreviewed moves to the next shown finding without a status,
// wrapping around the table.
func (m *Model) nextUnreviewed() {
	n := len(m.findings.rows)
	for i := 1; i <= n; i++ {
		idx := (m.findings.cursor + i) % n
		if m.findings.rows[idx].AnnotationStatus == "" {
			m.selectRow(idx)
			return
		}
	}
}

func (m *Model) selectRow(idx int) {
	m.findings.cursor = idx
	m.findings.ensureVisible()
	m.details.setFinding(m.findings.selectedFinding())
}

func (m *Model) startComment() {
	switch m.focus {
	case paneFindings:
		f := m.findings.selectedFinding()
		if f == nil {
			return
		}
		m.commentKind = store.AnnotationFinding
		m.commentInput = f.Comment
	case paneDetails:
		match := m.details.selectedMatch()
		if match == nil {
			return
		}
		m.commentKind = store.AnnotationMatch
		m.commentInput = match.Comment
	default:
		return
	}
	m.activeOverlay = overlayComment
}

func (m *Model) saveComment() {
	switch m.commentKind {
	case store.AnnotationFinding:
		if f := m.findings.selectedFinding(); f != nil {
			f.Comment = m.commentInput
			m.err = m.data.setFindingAnnotation(f.FindingID, f.AnnotationStatus, f.Comment)
		}
	case store.AnnotationMatch:
		if match := m.details.selectedMatch(); match != nil {
			match.Comment = m.commentInput
			m.err = m.data.setMatchAnnotation(match.StructuralID, match.AnnotationStatus, match.Comment)
		}
	}
}

// openSource pages the scanned file at the match line. Masked sessions, and
// matches whose file is gone, get the context window in an overlay instead.
func (m *Model) openSource() tea.Cmd {
	match := m.details.selectedMatch()
	if match == nil {
		return nil
	}

	if !m.data.mask {
		for _, prov := range match.Provenance {
			fp, ok := prov.(types.FileProvenance)
			if !ok {
				continue
			}
			if _, err := os.Stat(fp.FilePath); err == nil {
				return openInPager(fp.FilePath, match.Location.Source.Start.Line)
			}
		}
	}

	text := ""
	if ctx := m.details.context; ctx != nil {
		text = ctx.Before + ctx.Matching + ctx.After
	}
	m.showOverlay(overlaySource, text)
	return nil
}

func openInPager(path string, line int) tea.Cmd {
	pager := os.Getenv("PAGER")
	if pager == "" {
		pager = "less"
	}
	var args []string
	if line > 0 && pager == "less" {
		args = append(args, fmt.Sprintf("+%d", line))
	}
	args = append(args, path)

	return tea.ExecProcess(exec.Command(pager, args...), func(err error) tea.Msg {
		return pagerFinishedMsg{err: err}
	})
}

// Close releases resources held by the model.
func (m *Model) Close() error {
	if m.data != nil {
		return m.data.close()
	}
	return nil
}
