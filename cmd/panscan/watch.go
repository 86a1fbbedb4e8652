package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/praetorian-inc/panscan/pkg/enum"
	"github.com/praetorian-inc/panscan/pkg/matcher"
	"github.com/praetorian-inc/panscan/pkg/observability"
	"github.com/praetorian-inc/panscan/pkg/report"
	"github.com/praetorian-inc/panscan/pkg/scanner"
	"github.com/praetorian-inc/panscan/pkg/store"
)

var (
	watchSettle    time.Duration
	watchDatastore string
)

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Scan files as they are created or modified",
	Long: `Watch a directory tree and scan each file once writes to it settle.
Result lines use the same layout as scan. Runs until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	f := watchCmd.Flags()
	f.BoolP("ascii-only", "a", false, "Stop reading a file at the first chunk holding a non-ASCII byte")
	f.StringP("track", "t", "", "Search for track data: 1, 2 or both")
	f.BoolP("all-tracks", "T", false, "Search for track 1 and track 2 data")
	f.IntP("limit", "l", 0, "Stop scanning a file after N results (0 = unlimited)")
	f.StringP("ignore-file", "i", "", "File of card numbers to ignore, one per line")
	f.BoolP("mask", "m", false, "Mask the middle digits of card numbers")
	f.StringSliceP("exclude-ext", "n", nil, "Skip files with these extensions (e.g. .dll,.exe)")
	f.StringSlice("exclude-glob", nil, "Skip paths matching these glob patterns")
	f.Bool("include-hidden", true, "Include hidden files and directories")
	f.String("extract", "", "Extract text from archives and documents: all, or a list of zip,7z,xlsx,docx,pdf")

	f.BoolVarP(&scanByteOffset, "byte-offset", "b", false, "Append the byte offset of each number")
	f.BoolVarP(&scanCSV, "csv", "C", false, "Print pan,brand,file lines")
	f.BoolVarP(&scanEpochTimes, "epoch-times", "e", false, "Append modify, access and change times as Unix seconds")
	f.BoolVarP(&scanFilenameOnly, "filename-only", "f", false, "Print only the file name of each result")
	f.BoolVarP(&scanJulianTimes, "julian-times", "j", false, "Append modify, access and change times")
	f.StringVar(&scanRulesPath, "rules", "", "Path to a custom issuer rules file")

	f.DurationVar(&watchSettle, "settle", enum.DefaultSettle, "Quiet period before a changed file is scanned")
	f.StringVar(&watchDatastore, "datastore", ":memory:", "Results database path")

	watchCmd.MarkFlagsMutuallyExclusive("csv", "filename-only")
	watchCmd.MarkFlagsMutuallyExclusive("track", "all-tracks")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg := appConfig.Scan
	logger := observability.GetLogger()

	info, err := os.Stat(args[0])
	if err != nil {
		return fmt.Errorf("target does not exist: %s", args[0])
	}
	if !info.IsDir() {
		return fmt.Errorf("not a directory: %s", args[0])
	}

	rules, err := loadRules(scanRulesPath, "", "")
	if err != nil {
		return fmt.Errorf("loading rules: %w", err)
	}
	ignore, err := loadIgnore(cfg.IgnoreFile)
	if err != nil {
		return err
	}
	filter := &report.Filter{Ignore: ignore}

	m, err := matcher.New(matcher.Config{
		Rules:     rules,
		Track1:    cfg.Track1(),
		Track2:    cfg.Track2(),
		ASCIIOnly: cfg.ASCIIOnly,
		Limit:     cfg.Limit,
		Accept:    filter.Accept,
	})
	if err != nil {
		return fmt.Errorf("creating matcher: %w", err)
	}
	defer m.Close()

	s, err := store.New(store.Config{Path: watchDatastore})
	if err != nil {
		return fmt.Errorf("creating store: %w", err)
	}
	defer s.Close()

	ecfg := enumConfig(cfg, nil, logger)
	ecfg.Root = args[0]
	watcher := enum.NewWatchEnumerator(ecfg)
	watcher.Settle = watchSettle

	runner, err := scanner.NewRunner(scanner.RunConfig{
		Matcher:  m,
		Store:    s,
		Reporter: report.NewReporter(cmd.OutOrStdout(), lineOptions(cfg)),
		Logger:   logger,
		Mask:     cfg.Mask,
	})
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	logger.Info("watching", zap.String("path", args[0]), zap.Duration("settle", watchSettle))
	run, err := runner.Run(ctx, watcher)
	if err != nil {
		return err
	}

	styles := report.NewStyles(report.ColorEnabled("auto", os.Stdout))
	return report.WriteSummary(cmd.OutOrStdout(), run, cfg.Tracks(), styles)
}
