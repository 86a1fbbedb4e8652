package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/praetorian-inc/panscan/pkg/explore"
)

var (
	exploreDatastore string
	exploreMask      bool
)

var exploreCmd = &cobra.Command{
	Use:   "explore",
	Short: "Interactively triage scan results",
	Long: `Launch an interactive TUI to browse card numbers from a scan datastore.

Features:
  - Three-pane layout: filters, findings table, match details
  - Faceted search by brand, track data, review status, and file extension
  - Accept/reject annotations with comments
  - Context read back from the scanned file around each match
  - Vi-style navigation (hjkl, Ctrl-f/b, g/G)

Rejected numbers can be exported with "report --format ignore" and fed back
to scan --ignore-file.`,
	RunE: runExplore,
}

func init() {
	exploreCmd.Flags().StringVar(&exploreDatastore, "datastore", "panscan.db", "Path to datastore file")
	exploreCmd.Flags().BoolVarP(&exploreMask, "mask", "m", false, "Mask the middle digits of card numbers")
}

func runExplore(cmd *cobra.Command, args []string) error {
	model, err := explore.New(exploreDatastore, exploreMask)
	if err != nil {
		return fmt.Errorf("loading datastore: %w", err)
	}
	defer model.Close()

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running explore TUI: %w", err)
	}

	return nil
}
