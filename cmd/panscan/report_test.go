package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praetorian-inc/panscan/pkg/store"
	"github.com/praetorian-inc/panscan/pkg/types"
)

// newReportCmd creates a fresh report command for testing
func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:  "report",
		RunE: runReport,
	}
	cmd.Flags().StringVar(&reportDatastore, "datastore", "panscan.db", "Path to datastore file")
	cmd.Flags().StringVar(&reportFormat, "format", "text", "Output format")
	cmd.Flags().StringVar(&reportColor, "color", "never", "Color output")
	cmd.Flags().BoolVarP(&reportMask, "mask", "m", false, "Mask card numbers")
	return cmd
}

// seedDatastore writes one file with a plain and a track 2 match.
func seedDatastore(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "scan.db")

	s, err := store.NewSQLite(dbPath)
	require.NoError(t, err)
	defer s.Close()

	content := []byte("4111111111111111\n;5555555555554444=2512?\n")
	blobID := types.ComputeBlobID(content)
	require.NoError(t, s.AddBlob(blobID, int64(len(content))))
	require.NoError(t, s.AddProvenance(blobID, types.FileProvenance{FilePath: "/data/orders.txt"}))

	matches := []*types.Match{
		{
			BlobID: blobID, RuleID: "pan.visa.16", Brand: "VISA", Digits: "4111111111111111", Length: 16,
			Location: types.Location{
				Offset: types.OffsetSpan{Start: 0, End: 16},
				Source: types.SourceSpan{Start: types.SourcePoint{Line: 1, Column: 1}, End: types.SourcePoint{Line: 1, Column: 16}},
			},
		},
		{
			BlobID: blobID, RuleID: "pan.mastercard.16", Brand: "MASTERCARD", Digits: "5555555555554444", Length: 16,
			Track: types.Track2,
			Location: types.Location{
				Offset: types.OffsetSpan{Start: 18, End: 34},
				Source: types.SourceSpan{Start: types.SourcePoint{Line: 2, Column: 2}, End: types.SourcePoint{Line: 2, Column: 17}},
			},
		},
	}
	for _, m := range matches {
		m.FindingID = types.ComputeFindingID(m.Brand, m.Digits)
		m.StructuralID = m.ComputeStructuralID()
		require.NoError(t, s.AddMatch(m))
		require.NoError(t, s.AddFinding(&types.Finding{ID: m.FindingID, Brand: m.Brand, Digits: m.Digits}))
	}
	return dbPath
}

func execReport(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	cmd := newReportCmd()
	cmd.SetOut(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestReportCommand_Text(t *testing.T) {
	dbPath := seedDatastore(t)

	out, err := execReport(t, "--datastore", dbPath)
	require.NoError(t, err)
	assert.Equal(t,
		"/data/orders.txt\tVISA\t4111111111111111\n"+
			"/data/orders.txt\tMASTERCARD\t5555555555554444\tTRACK_2\n",
		out)
}

func TestReportCommand_CSVMasked(t *testing.T) {
	dbPath := seedDatastore(t)

	out, err := execReport(t, "--datastore", dbPath, "--format", "csv", "-m")
	require.NoError(t, err)
	assert.Contains(t, out, "4111******111111,VISA,/data/orders.txt\n")
	assert.Contains(t, out, "5555******554444,MASTERCARD,/data/orders.txt\tTRACK_2\n")
}

func TestReportCommand_JSON(t *testing.T) {
	dbPath := seedDatastore(t)

	out, err := execReport(t, "--datastore", dbPath, "--format", "json")
	require.NoError(t, err)

	var records []record
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	require.Len(t, records, 2)

	byBrand := map[string]record{}
	for _, r := range records {
		byBrand[r.Brand] = r
	}
	assert.Equal(t, "/data/orders.txt", byBrand["VISA"].Path)
	assert.Equal(t, 1, byBrand["VISA"].Line)
	assert.Equal(t, types.Track2, byBrand["MASTERCARD"].Track)
	assert.Equal(t, int64(18), byBrand["MASTERCARD"].Offset)
	assert.Equal(t, types.ComputeFindingID("VISA", "4111111111111111"), byBrand["VISA"].FindingID)
}

func TestReportCommand_JSONEmpty(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "empty.db")
	s, err := store.NewSQLite(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	out, err := execReport(t, "--datastore", dbPath, "--format", "json")
	require.NoError(t, err)
	assert.Equal(t, "[]\n", out)
}

func TestReportCommand_SARIF(t *testing.T) {
	dbPath := seedDatastore(t)

	out, err := execReport(t, "--datastore", dbPath, "--format", "sarif")
	require.NoError(t, err)
	assert.Contains(t, out, `"version": "2.1.0"`)
	assert.Contains(t, out, `"ruleId": "pan.mastercard.16"`)
	assert.Contains(t, out, `"uri": "file:///data/orders.txt"`)
	assert.Contains(t, out, "MASTERCARD card number in track 2 data")
}

func TestReportCommand_Table(t *testing.T) {
	dbPath := seedDatastore(t)

	out, err := execReport(t, "--datastore", dbPath, "--format", "table")
	require.NoError(t, err)
	assert.Contains(t, strings.ToUpper(out), "BRANDS")
	assert.Contains(t, out, "/data/orders.txt")
	assert.Contains(t, out, "MASTERCARD (1), VISA (1)")
	assert.Contains(t, out, "Total: 1 files, 2 matches")
}

func TestReportCommand_Ignore(t *testing.T) {
	dbPath := seedDatastore(t)

	out, err := execReport(t, "--datastore", dbPath, "--format", "ignore")
	require.NoError(t, err)
	assert.Empty(t, out)

	s, err := store.NewSQLite(dbPath)
	require.NoError(t, err)
	visa := types.ComputeFindingID("VISA", "4111111111111111")
	mc := types.ComputeFindingID("MASTERCARD", "5555555555554444")
	require.NoError(t, s.SetAnnotation(store.AnnotationFinding, visa, store.StatusReject, "test card"))
	require.NoError(t, s.SetAnnotation(store.AnnotationFinding, mc, store.StatusAccept, ""))
	require.NoError(t, s.Close())

	out, err = execReport(t, "--datastore", dbPath, "--format", "ignore")
	require.NoError(t, err)
	assert.Equal(t, "4111111111111111\n", out)
}

func TestReportCommand_Errors(t *testing.T) {
	_, err := execReport(t, "--datastore", ":memory:")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "in-memory")

	_, err = execReport(t, "--datastore", filepath.Join(t.TempDir(), "missing.db"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "datastore not found")

	_, err = execReport(t, "--datastore", seedDatastore(t), "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")
}
