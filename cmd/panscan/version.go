package main

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/praetorian-inc/panscan/pkg/sarif"
	"github.com/praetorian-inc/panscan/pkg/scanner"
)

var (
	version = "dev"
	commit  = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long:  "Display the version of panscan and the brands its builtin issuer table recognizes",
	RunE:  runVersion,
}

func init() {
	sarif.ToolVersion = version
}

func runVersion(cmd *cobra.Command, args []string) error {
	rules, err := scanner.GetBuiltinRules()
	if err != nil {
		return fmt.Errorf("loading builtin rules: %w", err)
	}
	var brands []string
	seen := make(map[string]bool)
	for _, r := range rules {
		if !seen[r.Brand] {
			seen[r.Brand] = true
			brands = append(brands, r.Brand)
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "panscan v%s\n", version)
	fmt.Fprintf(out, "Commit: %s\n", commit)
	fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
	fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Fprintf(out, "Issuer rules: %d (%s)\n", len(rules), strings.Join(brands, ", "))
	return nil
}
