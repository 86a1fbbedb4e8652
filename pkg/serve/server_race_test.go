package serve

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praetorian-inc/panscan/pkg/scanner"
)

// TestServer_ScanBatch_RaceCondition checks that a scan_batch response is
// sent even when EOF arrives before the main loop picks up the request.
func TestServer_ScanBatch_RaceCondition(t *testing.T) {
	core, err := scanner.NewCore("builtin", nil)
	require.NoError(t, err)
	defer core.Close()

	for i := range 10 {
		request := `{"type":"scan_batch","payload":{"items":[{"source":"s1","content":"none"},{"source":"s2","content":"4111111111111111"}]}}` + "\n"
		out := &strings.Builder{}

		srv := NewServer(core, 0, strings.NewReader(request), out)
		require.NoError(t, srv.Run(context.Background()))

		lines := strings.Split(strings.TrimSpace(out.String()), "\n")
		require.Len(t, lines, 2, "iteration %d: expected ready + scan_batch", i)

		var resp Response
		require.NoError(t, json.Unmarshal([]byte(lines[1]), &resp), "iteration %d", i)
		assert.True(t, resp.Success, "iteration %d", i)
		assert.Equal(t, TypeScanBatch, resp.Type, "iteration %d", i)
	}
}
