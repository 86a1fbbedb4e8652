package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/praetorian-inc/panscan/pkg/observability"
	"github.com/praetorian-inc/panscan/pkg/scanner"
	"github.com/praetorian-inc/panscan/pkg/serve"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run as a streaming NDJSON scan server",
	Long: `Run panscan as a long-lived server that accepts scan requests on stdin
and writes results to stdout, one JSON object per line.

Rules load once at startup. Requests are processed until stdin closes, a
close request arrives or SIGTERM is received.`,
	RunE: runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringP("track", "t", "", "Search for track data: 1, 2 or both")
	f.BoolP("all-tracks", "T", false, "Search for track 1 and track 2 data")
	f.IntP("limit", "l", 0, "Stop scanning an item after N results (0 = unlimited)")
	f.StringP("ignore-file", "i", "", "File of card numbers to ignore, one per line")
	f.BoolP("mask", "m", false, "Mask the middle digits of card numbers")
	f.StringVar(&scanRulesPath, "rules", "", "Path to a custom issuer rules file")

	serveCmd.MarkFlagsMutuallyExclusive("track", "all-tracks")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := appConfig.Scan

	rules, err := loadRules(scanRulesPath, "", "")
	if err != nil {
		return fmt.Errorf("loading rules: %w", err)
	}
	ignore, err := loadIgnore(cfg.IgnoreFile)
	if err != nil {
		return err
	}

	core, err := scanner.NewCoreWithOptions(scanner.Options{
		Rules:  rules,
		Track1: cfg.Track1(),
		Track2: cfg.Track2(),
		Limit:  cfg.Limit,
		Mask:   cfg.Mask,
		Ignore: ignore,
	}, observability.DebugLogger{Logger: observability.GetLogger()})
	if err != nil {
		return err
	}
	defer core.Close()

	ctx, stop := signalContext(cmd)
	defer stop()

	srv := serve.NewServer(core, len(rules), cmd.InOrStdin(), cmd.OutOrStdout())
	return srv.Run(ctx)
}
