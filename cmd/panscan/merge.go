package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/praetorian-inc/panscan/pkg/store"
)

var (
	mergeOutput string
)

var mergeCmd = &cobra.Command{
	Use:   "merge <source1.db> <source2.db> [source3.db...]",
	Short: "Merge multiple panscan datastores",
	Long: `Merge multiple panscan datastores into a single output database.

This is useful for combining results from scans of different hosts or
different directory trees.

Deduplication is automatic - duplicate blobs, matches, findings and scan
runs are only stored once in the merged database.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runMerge,
}

func init() {
	mergeCmd.Flags().StringVarP(&mergeOutput, "output", "o", "merged.db", "Output database path")
}

func runMerge(cmd *cobra.Command, args []string) error {
	stats, err := store.Merge(store.MergeConfig{
		SourcePaths: args,
		DestPath:    mergeOutput,
	})
	if err != nil {
		return fmt.Errorf("merge failed: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Merge complete:\n")
	fmt.Fprintf(out, "  Sources processed: %d\n", stats.SourcesProcessed)
	fmt.Fprintf(out, "  Blobs merged: %d\n", stats.BlobsMerged)
	fmt.Fprintf(out, "  Matches merged: %d\n", stats.MatchesMerged)
	fmt.Fprintf(out, "  Findings merged: %d\n", stats.FindingsMerged)
	fmt.Fprintf(out, "  Provenance merged: %d\n", stats.ProvenanceMerged)
	fmt.Fprintf(out, "  Scans merged: %d\n", stats.ScansMerged)
	fmt.Fprintf(out, "  Annotations merged: %d\n", stats.AnnotationsMerged)
	fmt.Fprintf(out, "Output: %s\n", mergeOutput)

	return nil
}
