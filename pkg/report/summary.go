package report

import (
	"fmt"
	"io"
	"time"

	"github.com/praetorian-inc/panscan/pkg/types"
)

// WriteSummary prints the end-of-run totals.
func WriteSummary(w io.Writer, run *types.ScanRun, tracks bool, st *Styles) error {
	if st == nil {
		st = NewStyles(false)
	}

	rows := []struct {
		label string
		value int64
	}{
		{"Files searched ->\t\t", run.FilesSearched},
		{"Search time (seconds) ->\t", int64(run.Elapsed() / time.Second)},
		{"Credit card matches->\t\t", run.Matches},
	}
	if tracks {
		rows = append(rows, struct {
			label string
			value int64
		}{"Track data pattern matches->\t", run.TrackMatches})
	}

	if _, err := fmt.Fprint(w, "\n\n"); err != nil {
		return err
	}
	for _, r := range rows {
		if _, err := fmt.Fprintf(w, "%s%s\n", st.Label.Sprint(r.label), st.Value.Sprint(r.value)); err != nil {
			return err
		}
	}
	if run.Interrupted {
		if _, err := fmt.Fprintln(w, st.Track.Sprint("Scan interrupted")); err != nil {
			return err
		}
	}

	end := run.FinishedAt
	if end.IsZero() {
		end = time.Now()
	}
	_, err := fmt.Fprintf(w, "\nLocal end time: %s\n\n", end.Local().Format(TimeLayout))
	return err
}
