package explore

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/praetorian-inc/panscan/pkg/report"
	"github.com/praetorian-inc/panscan/pkg/store"
	"github.com/praetorian-inc/panscan/pkg/types"
)

// contextRadius is how many bytes either side of a match the details pane
// reads back from disk.
const contextRadius = 64

// exploreData holds all loaded data for the TUI.
type exploreData struct {
	store    store.Store
	mask     bool
	findings []*findingRow
}

// loadData opens a datastore and loads all findings, matches, provenance, and annotations.
// This follows the same pattern as cmd/panscan/report.go:runReport.
func loadData(storePath string, mask bool) (*exploreData, error) {
	if storePath == ":memory:" {
		return nil, fmt.Errorf("cannot explore an in-memory store")
	}
	if _, err := os.Stat(storePath); err != nil {
		return nil, fmt.Errorf("datastore not found: %s", storePath)
	}

	s, err := store.New(store.Config{Path: storePath})
	if err != nil {
		return nil, fmt.Errorf("opening datastore: %w", err)
	}

	// Findings come back with their matches attached.
	findings, err := s.GetFindings()
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("retrieving findings: %w", err)
	}

	provCache := make(map[types.BlobID][]types.Provenance)
	rows := make([]*findingRow, 0, len(findings))
	for _, f := range findings {
		row, err := buildFindingRow(f, s, provCache, mask)
		if err != nil {
			s.Close()
			return nil, err
		}
		rows = append(rows, row)
	}

	return &exploreData{
		store:    s,
		mask:     mask,
		findings: rows,
	}, nil
}

// buildFindingRow creates a findingRow from a Finding and its matches. s may
// be nil, in which case provenance and annotations are left empty.
func buildFindingRow(f *types.Finding, s store.Store, provCache map[types.BlobID][]types.Provenance, mask bool) (*findingRow, error) {
	row := &findingRow{
		FindingID:  f.ID,
		Brand:      f.Brand,
		Number:     f.Digits,
		MatchCount: len(f.Matches),
	}
	if mask {
		row.Number = report.Mask(f.Digits)
	}

	if s != nil {
		status, comment, err := s.GetAnnotation(store.AnnotationFinding, f.ID)
		if err != nil {
			return nil, fmt.Errorf("loading annotation: %w", err)
		}
		row.AnnotationStatus = status
		row.Comment = comment
	}

	files := make(map[string]bool)
	tracks := make(map[string]bool)
	exts := make(map[string]bool)

	row.Matches = make([]*matchRow, 0, len(f.Matches))
	for _, m := range f.Matches {
		mr, err := buildMatchRow(m, s, provCache)
		if err != nil {
			return nil, err
		}
		row.Matches = append(row.Matches, mr)

		tracks[trackLabel(m.Track)] = true
		for _, p := range mr.Provenance {
			files[p.Path()] = true
			exts[extensionOf(p)] = true
		}
	}

	row.FileCount = len(files)
	row.Tracks = sortedKeys(tracks)
	row.Extensions = sortedKeys(exts)
	return row, nil
}

// buildMatchRow creates a matchRow from a Match.
func buildMatchRow(m *types.Match, s store.Store, provCache map[types.BlobID][]types.Provenance) (*matchRow, error) {
	mr := &matchRow{
		StructuralID: m.StructuralID,
		BlobID:       m.BlobID,
		RuleID:       m.RuleID,
		Track:        m.Track,
		Location:     m.Location,
	}
	if s == nil {
		return mr, nil
	}

	provs, ok := provCache[m.BlobID]
	if !ok {
		var err error
		provs, err = s.GetProvenance(m.BlobID)
		if err != nil {
			return nil, fmt.Errorf("retrieving provenance: %w", err)
		}
		provCache[m.BlobID] = provs
	}
	mr.Provenance = provs

	status, comment, err := s.GetAnnotation(store.AnnotationMatch, m.StructuralID)
	if err != nil {
		return nil, fmt.Errorf("loading annotation: %w", err)
	}
	mr.AnnotationStatus = status
	mr.Comment = comment
	return mr, nil
}

// trackLabel maps an empty track to "-" so it can be selected as a facet.
func trackLabel(track string) string {
	if track == "" {
		return "-"
	}
	return track
}

// extensionOf returns the lowercased extension of the scanned file, or "-".
func extensionOf(p types.Provenance) string {
	path := p.Path()
	if ap, ok := p.(types.ArchiveProvenance); ok {
		path = ap.MemberPath
	}
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return "-"
	}
	return ext
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// matchContext is the text around a match, read back from the scanned file.
type matchContext struct {
	Before   string
	Matching string
	After    string
}

// readContext reads up to radius bytes either side of span from path.
// Control bytes are shown as '.'. When display is non-empty it replaces the
// matched bytes and every digit around the match is shown as '*'.
func readContext(path string, span types.OffsetSpan, radius int64, display string) (*matchContext, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	start := max(0, span.Start-radius)
	buf := make([]byte, span.End+radius-start)
	n, err := f.ReadAt(buf, start)
	if err != nil && err != io.EOF {
		return nil, err
	}
	buf = buf[:n]

	lo := int(span.Start - start)
	hi := int(span.End - start)
	if lo > len(buf) || hi > len(buf) {
		return nil, fmt.Errorf("match at %d-%d is past the end of %s", span.Start, span.End, path)
	}

	ctx := &matchContext{
		Before:   printable(buf[:lo]),
		Matching: strings.ReplaceAll(printable(buf[lo:hi]), "\n", "."),
		After:    printable(buf[hi:]),
	}
	if display != "" {
		ctx.Matching = display
		ctx.Before = hideDigits(ctx.Before)
		ctx.After = hideDigits(ctx.After)
	}
	return ctx, nil
}

func hideDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return '*'
		}
		return r
	}, s)
}

func printable(b []byte) string {
	out := make([]byte, len(b))
	for i, c := range b {
		switch {
		case c == '\n' || c == '\t':
			out[i] = c
		case c < 0x20 || c > 0x7e:
			out[i] = '.'
		default:
			out[i] = c
		}
	}
	return string(out)
}

// context returns the bytes around m from the first provenance that still
// exists on disk as a plain file.
func (d *exploreData) context(f *findingRow, m *matchRow) *matchContext {
	if f == nil || m == nil {
		return nil
	}
	display := ""
	if d != nil && d.mask {
		display = f.Number
	}
	for _, prov := range m.Provenance {
		fp, ok := prov.(types.FileProvenance)
		if !ok {
			continue
		}
		if ctx, err := readContext(fp.FilePath, m.Location.Offset, contextRadius, display); err == nil {
			return ctx
		}
	}
	return nil
}

// close closes the underlying store.
func (d *exploreData) close() error {
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// setFindingAnnotation persists a finding annotation.
func (d *exploreData) setFindingAnnotation(findingID, status, comment string) error {
	return d.store.SetAnnotation(store.AnnotationFinding, findingID, status, comment)
}

// setMatchAnnotation persists a match annotation.
func (d *exploreData) setMatchAnnotation(matchID, status, comment string) error {
	return d.store.SetAnnotation(store.AnnotationMatch, matchID, status, comment)
}
