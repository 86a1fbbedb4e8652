package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/praetorian-inc/panscan/pkg/report"
	"github.com/praetorian-inc/panscan/pkg/sarif"
	"github.com/praetorian-inc/panscan/pkg/store"
	"github.com/praetorian-inc/panscan/pkg/types"
)

var (
	reportDatastore string
	reportFormat    string
	reportColor     string
	reportMask      bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate a report from scan results",
	Long:  "Read results from a datastore written by scan --datastore and print them again",
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportDatastore, "datastore", "panscan.db", "Path to datastore file")
	reportCmd.Flags().StringVar(&reportFormat, "format", "text", "Output format: text, csv, json, sarif, table, ignore")
	reportCmd.Flags().StringVar(&reportColor, "color", "auto", "Color output: auto, always, never")
	reportCmd.Flags().BoolVarP(&reportMask, "mask", "m", false, "Mask the middle digits of card numbers")
}

// record is one match at one location, the unit of json output.
type record struct {
	Path      string `json:"path"`
	Brand     string `json:"brand"`
	Number    string `json:"number"`
	Length    int    `json:"length"`
	Track     string `json:"track,omitempty"`
	Offset    int64  `json:"offset"`
	Line      int    `json:"line"`
	Column    int    `json:"column"`
	FindingID string `json:"finding_id"`
	BlobID    string `json:"blob_id"`

	match *types.Match
	times types.FileTimes
}

func runReport(cmd *cobra.Command, args []string) error {
	// Check if it's :memory: (invalid for report)
	if reportDatastore == ":memory:" {
		return fmt.Errorf("cannot report from in-memory store")
	}
	if _, err := os.Stat(reportDatastore); err != nil {
		return fmt.Errorf("datastore not found: %s", reportDatastore)
	}

	s, err := store.New(store.Config{Path: reportDatastore})
	if err != nil {
		return fmt.Errorf("opening datastore: %w", err)
	}
	defer s.Close()

	out := cmd.OutOrStdout()
	switch reportFormat {
	case "text", "csv":
		format, err := report.ParseFormat(reportFormat)
		if err != nil {
			return err
		}
		return outputLines(out, s, report.Options{Format: format, Tracks: true, Mask: reportMask})
	case "json":
		return outputJSON(out, s, reportMask)
	case "sarif":
		rules, err := loadRules("", "", "")
		if err != nil {
			return err
		}
		return outputSARIF(out, s, rules, reportMask)
	case "table":
		return outputTable(out, s, report.NewStyles(report.ColorEnabled(reportColor, os.Stdout)))
	case "ignore":
		return outputIgnore(out, s)
	default:
		return fmt.Errorf("unknown output format: %s", reportFormat)
	}
}

// =============================================================================
// HELPERS
// =============================================================================

// collectRecords expands every stored match to one record per provenance.
func collectRecords(s store.Store, mask bool) ([]record, error) {
	matches, err := s.GetAllMatches()
	if err != nil {
		return nil, fmt.Errorf("retrieving matches: %w", err)
	}

	// Cache provenance by blob ID to avoid repeated queries
	provenanceCache := make(map[types.BlobID][]types.Provenance)

	var records []record
	for _, m := range matches {
		provs, ok := provenanceCache[m.BlobID]
		if !ok {
			provs, err = s.GetProvenance(m.BlobID)
			if err != nil {
				return nil, fmt.Errorf("retrieving provenance: %w", err)
			}
			provenanceCache[m.BlobID] = provs
		}

		number := m.Digits
		if mask {
			number = report.Mask(number)
		}
		base := record{
			Brand:     m.Brand,
			Number:    number,
			Length:    m.Length,
			Track:     m.Track,
			Offset:    m.Location.Offset.Start,
			Line:      m.Location.Source.Start.Line,
			Column:    m.Location.Source.Start.Column,
			FindingID: m.FindingID,
			BlobID:    m.BlobID.Hex(),
			match:     m,
		}
		if len(provs) == 0 {
			// If no provenance found, use blob ID as fallback
			base.Path = m.BlobID.Hex()
			records = append(records, base)
			continue
		}
		for _, p := range provs {
			r := base
			r.Path = p.Path()
			r.times = types.TimesOf(p)
			records = append(records, r)
		}
	}
	return records, nil
}

func outputLines(w io.Writer, s store.Store, opts report.Options) error {
	records, err := collectRecords(s, false)
	if err != nil {
		return err
	}
	for _, r := range records {
		if _, err := fmt.Fprintln(w, opts.Line(r.Path, r.times, r.match)); err != nil {
			return err
		}
	}
	return nil
}

func outputJSON(w io.Writer, s store.Store, mask bool) error {
	records, err := collectRecords(s, mask)
	if err != nil {
		return err
	}
	if records == nil {
		records = []record{}
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(records)
}

// outputSARIF outputs matches in SARIF 2.1.0 format
func outputSARIF(w io.Writer, s store.Store, rules []*types.IssuerRule, mask bool) error {
	rep := sarif.NewReport()
	for _, r := range rules {
		rep.AddRule(r)
	}

	records, err := collectRecords(s, mask)
	if err != nil {
		return err
	}
	for _, r := range records {
		rep.AddResult(r.match, r.Path, r.Number)
	}

	jsonBytes, err := rep.ToJSON()
	if err != nil {
		return fmt.Errorf("serializing SARIF: %w", err)
	}
	if _, err := w.Write(jsonBytes); err != nil {
		return fmt.Errorf("writing SARIF output: %w", err)
	}
	return nil
}

// outputTable prints hit counts per file and brand.
func outputTable(w io.Writer, s store.Store, st *report.Styles) error {
	records, err := collectRecords(s, false)
	if err != nil {
		return err
	}

	type row struct {
		hits   int
		tracks int
		brands map[string]int
	}
	rows := make(map[string]*row)
	for _, r := range records {
		x, ok := rows[r.Path]
		if !ok {
			x = &row{brands: make(map[string]int)}
			rows[r.Path] = x
		}
		x.hits++
		x.brands[r.Brand]++
		if r.Track != "" {
			x.tracks++
		}
	}

	paths := make([]string, 0, len(rows))
	for p := range rows {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	table := tablewriter.NewWriter(w)
	table.Header("File", "Hits", "Track", "Brands")
	for _, p := range paths {
		x := rows[p]
		if err := table.Append(st.Path.Sprint(p), st.Value.Sprint(x.hits), strconv.Itoa(x.tracks), brandList(x.brands)); err != nil {
			return fmt.Errorf("rendering table: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("rendering table: %w", err)
	}

	_, err = fmt.Fprintf(w, "%s %d files, %d matches\n", st.Label.Sprint("Total:"), len(paths), len(records))
	return err
}

// outputIgnore prints the numbers of findings annotated as rejected, one
// per line, in the format scan --ignore-file reads.
func outputIgnore(w io.Writer, s store.Store) error {
	findings, err := s.GetFindings()
	if err != nil {
		return fmt.Errorf("retrieving findings: %w", err)
	}

	seen := make(map[string]bool)
	for _, f := range findings {
		status, _, err := s.GetAnnotation(store.AnnotationFinding, f.ID)
		if err != nil {
			return err
		}
		if status != store.StatusReject || seen[f.Digits] {
			continue
		}
		seen[f.Digits] = true
		if _, err := fmt.Fprintln(w, f.Digits); err != nil {
			return err
		}
	}
	return nil
}

func brandList(brands map[string]int) string {
	names := make([]string, 0, len(brands))
	for b := range brands {
		names = append(names, b)
	}
	sort.Strings(names)

	out := ""
	for i, b := range names {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%s (%d)", b, brands[b])
	}
	return out
}
