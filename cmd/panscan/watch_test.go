package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lockedBuffer lets the test read output while the watcher writes it.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRunWatch_ScansNewFiles(t *testing.T) {
	resetScanFlags(t)
	watchSettle = 50 * time.Millisecond
	watchDatastore = ":memory:"
	dir := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var out lockedBuffer
	cmd := &cobra.Command{}
	cmd.SetContext(ctx)
	cmd.SetOut(&out)

	done := make(chan error, 1)
	go func() { done <- runWatch(cmd, []string{dir}) }()

	// The watcher may not be installed yet, so keep touching the file.
	card := filepath.Join(dir, "drop.txt")
	require.Eventually(t, func() bool {
		require.NoError(t, os.WriteFile(card, []byte("paid 6011000990139424\n"), 0o644))
		return strings.Contains(out.String(), card+"\tDISCOVER\t6011000990139424")
	}, 10*time.Second, 200*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
	assert.Contains(t, out.String(), "Scan interrupted")
}

func TestRunWatch_Errors(t *testing.T) {
	resetScanFlags(t)

	err := runWatch(&cobra.Command{}, []string{"/nonexistent/dir"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "target does not exist")

	file := writeFile(t, filepath.Join(t.TempDir(), "f.txt"), "x")
	err = runWatch(&cobra.Command{}, []string{file})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}
