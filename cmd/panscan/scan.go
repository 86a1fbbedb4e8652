package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/praetorian-inc/panscan/pkg/config"
	"github.com/praetorian-inc/panscan/pkg/enum"
	"github.com/praetorian-inc/panscan/pkg/matcher"
	"github.com/praetorian-inc/panscan/pkg/observability"
	"github.com/praetorian-inc/panscan/pkg/report"
	"github.com/praetorian-inc/panscan/pkg/rule"
	"github.com/praetorian-inc/panscan/pkg/scanner"
	"github.com/praetorian-inc/panscan/pkg/store"
	"github.com/praetorian-inc/panscan/pkg/types"
)

var (
	scanRulesPath    string
	scanRulesInclude string
	scanRulesExclude string
	scanDatastore    string
	scanOutputFormat string
	scanGit          bool
	scanIncremental  bool
	scanColor        string

	scanByteOffset   bool
	scanCount        bool
	scanCSV          bool
	scanDirsStdin    bool
	scanFilesStdin   bool
	scanEpochTimes   bool
	scanFilenameOnly bool
	scanJulianTimes  bool
	scanLogfile      string
	scanStatus       bool
)

var scanCmd = &cobra.Command{
	Use:   "scan [flags] <path>...",
	Short: "Scan files for payment card numbers",
	Long: `Scan files, directories or git repositories for payment card numbers.

Each result line names the file, the card brand and the number. Scanning
continues past unreadable files; a summary is printed at the end or when the
scan is interrupted.`,
	RunE: runScan,
}

func init() {
	f := scanCmd.Flags()

	// Detection
	f.BoolP("ascii-only", "a", false, "Stop reading a file at the first chunk holding a non-ASCII byte")
	f.StringP("track", "t", "", "Search for track data: 1, 2 or both")
	f.BoolP("all-tracks", "T", false, "Search for track 1 and track 2 data")
	f.IntP("limit", "l", 0, "Stop scanning a file after N results (0 = unlimited)")
	f.StringP("ignore-file", "i", "", "File of card numbers to ignore, one per line")
	f.BoolP("mask", "m", false, "Mask the middle digits of card numbers")
	f.StringVar(&scanRulesPath, "rules", "", "Path to a custom issuer rules file")
	f.StringVar(&scanRulesInclude, "rules-include", "", "Include rules matching regex pattern (comma-separated)")
	f.StringVar(&scanRulesExclude, "rules-exclude", "", "Exclude rules matching regex pattern (comma-separated)")

	// Result lines
	f.BoolVarP(&scanByteOffset, "byte-offset", "b", false, "Append the byte offset of each number")
	f.BoolVarP(&scanCount, "count", "c", false, "Print a hit count per file (with --output)")
	f.BoolVarP(&scanCSV, "csv", "C", false, "Print pan,brand,file lines")
	f.BoolVarP(&scanEpochTimes, "epoch-times", "e", false, "Append modify, access and change times as Unix seconds")
	f.BoolVarP(&scanFilenameOnly, "filename-only", "f", false, "Print only the file name of each result")
	f.BoolVarP(&scanJulianTimes, "julian-times", "j", false, "Append modify, access and change times")
	f.StringVarP(&scanLogfile, "output", "o", "", "Append result lines to a logfile")
	f.BoolVarP(&scanStatus, "status", "s", false, "Show a progress line on stderr (with --output)")
	f.StringVar(&scanOutputFormat, "format", "text", "Output format: text, json, sarif")
	f.StringVar(&scanColor, "color", "auto", "Color output: auto, always, never")

	// Sources
	f.BoolVarP(&scanDirsStdin, "dirs-from-stdin", "D", false, "Read directory paths from stdin")
	f.BoolVarP(&scanFilesStdin, "files-from-stdin", "F", false, "Read file paths from stdin")
	f.BoolVar(&scanGit, "git", false, "Scan the HEAD tree of git repositories")
	f.StringSliceP("exclude-ext", "n", nil, "Skip files with these extensions (e.g. .dll,.exe)")
	f.StringSlice("exclude-glob", nil, "Skip paths matching these glob patterns")
	f.Bool("include-hidden", true, "Include hidden files and directories")
	f.Bool("respect-gitignore", false, "Skip files ignored by .gitignore")
	f.Int64("max-file-size", 0, "Maximum file size to scan in bytes (0 = unlimited)")
	f.String("extract", "", "Extract text from archives and documents: all, or a list of zip,7z,xlsx,docx,pdf")
	f.Int("workers", 0, "Parallel file readers (0 = number of CPUs)")

	// Storage
	f.StringVar(&scanDatastore, "datastore", ":memory:", "Results database path")
	f.BoolVar(&scanIncremental, "incremental", false, "Skip content already in the datastore")

	scanCmd.MarkFlagsMutuallyExclusive("csv", "filename-only")
	scanCmd.MarkFlagsMutuallyExclusive("track", "all-tracks")
	scanCmd.MarkFlagsMutuallyExclusive("files-from-stdin", "dirs-from-stdin")
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg := appConfig.Scan
	logger := observability.GetLogger()

	if len(args) == 0 && !scanFilesStdin && !scanDirsStdin {
		return fmt.Errorf("no paths to scan")
	}
	if scanOutputFormat != "text" && scanOutputFormat != "json" && scanOutputFormat != "sarif" {
		return fmt.Errorf("unknown output format: %s", scanOutputFormat)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Load rules
	rules, err := loadRules(scanRulesPath, scanRulesInclude, scanRulesExclude)
	if err != nil {
		return fmt.Errorf("loading rules: %w", err)
	}

	ignore, err := loadIgnore(cfg.IgnoreFile)
	if err != nil {
		return err
	}
	filter := &report.Filter{Ignore: ignore}

	// Create matcher
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

	// Create store
	s, err := store.New(store.Config{Path: scanDatastore})
	if err != nil {
		return fmt.Errorf("creating store: %w", err)
	}
	defer s.Close()

	// Result lines go to the logfile, stdout, or nowhere for json/sarif
	var skipPaths []string
	var reporter *report.Reporter
	var status *report.Status
	if scanOutputFormat == "text" {
		lines := cmd.OutOrStdout()
		if scanLogfile != "" {
			logfile, err := report.OpenLogfile(scanLogfile)
			if err != nil {
				return err
			}
			defer logfile.Close()
			lines = logfile
			skipPaths = append(skipPaths, scanLogfile)
		}

		reporter = report.NewReporter(lines, lineOptions(cfg))
		if scanLogfile != "" {
			if scanStatus {
				status = report.NewStatus(os.Stderr)
			} else if scanCount {
				reporter.WithHitCounts(cmd.OutOrStdout())
			}
		}
	}

	enumerator, err := createEnumerator(cmd.InOrStdin(), args, enumConfig(cfg, skipPaths, logger))
	if err != nil {
		return fmt.Errorf("creating enumerator: %w", err)
	}

	runner, err := scanner.NewRunner(scanner.RunConfig{
		Matcher:     m,
		Store:       s,
		Reporter:    reporter,
		Status:      status,
		Logger:      logger,
		Incremental: scanIncremental,
		Mask:        cfg.Mask,
	})
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	run, err := runner.Run(ctx, enumerator)
	if err != nil {
		return err
	}
	if scanIncremental {
		logger.Info("incremental scan", zap.Int64("skipped", runner.Skipped()))
	}

	// Output results (summary to stderr when using json/sarif to keep stdout pure JSON)
	summaryOut := cmd.OutOrStdout()
	summaryFile := os.Stdout
	if scanOutputFormat != "text" {
		summaryOut = cmd.ErrOrStderr()
		summaryFile = os.Stderr
	}

	switch scanOutputFormat {
	case "json":
		if err := outputJSON(cmd.OutOrStdout(), s, cfg.Mask); err != nil {
			return err
		}
	case "sarif":
		if err := outputSARIF(cmd.OutOrStdout(), s, rules, cfg.Mask); err != nil {
			return err
		}
	}

	styles := report.NewStyles(report.ColorEnabled(scanColor, summaryFile))
	return report.WriteSummary(summaryOut, run, cfg.Tracks(), styles)
}

// =============================================================================
// HELPERS
// =============================================================================

func loadRules(path, include, exclude string) ([]*types.IssuerRule, error) {
	loader := rule.NewLoader()

	var rules []*types.IssuerRule
	var err error

	if path != "" {
		rules, err = loader.LoadRuleFile(path)
	} else {
		rules, err = loader.LoadBuiltinRules()
	}
	if err != nil {
		return nil, err
	}

	// Apply filtering if patterns specified
	if include != "" || exclude != "" {
		rules, err = rule.Filter(rules, rule.FilterConfig{
			Include: rule.ParsePatterns(include),
			Exclude: rule.ParsePatterns(exclude),
		})
		if err != nil {
			return nil, fmt.Errorf("filtering rules: %w", err)
		}
	}
	if len(rules) == 0 {
		return nil, fmt.Errorf("no rules left after filtering")
	}

	return rules, nil
}

func loadIgnore(path string) (*report.IgnoreSet, error) {
	if path == "" {
		return nil, nil
	}
	return report.LoadIgnoreSet(path)
}

func lineOptions(cfg config.ScanConfig) report.Options {
	format := report.FormatTab
	switch {
	case scanCSV:
		format = report.FormatCSV
	case scanFilenameOnly:
		format = report.FormatFilename
	}
	return report.Options{
		Format:      format,
		ByteOffset:  scanByteOffset,
		JulianTimes: scanJulianTimes,
		EpochTimes:  scanEpochTimes,
		Tracks:      cfg.Tracks(),
		Mask:        cfg.Mask,
	}
}

func enumConfig(cfg config.ScanConfig, skipPaths []string, logger *zap.Logger) enum.Config {
	return enum.Config{
		IncludeHidden:     cfg.IncludeHidden,
		MaxFileSize:       cfg.MaxFileSize,
		RespectGitignore:  cfg.RespectGitignore,
		ExcludeExtensions: cfg.Extensions(),
		ExcludeGlobs:      cfg.ExcludeGlobs,
		SkipPaths:         skipPaths,
		ExtractArchives:   cfg.Extract,
		Workers:           cfg.Workers,
		OnSkip: func(path string, err error) {
			if err != nil {
				logger.Warn("skipping", zap.String("path", path), zap.Error(err))
			} else {
				logger.Debug("skipping", zap.String("path", path))
			}
		},
	}
}

// createEnumerator builds one enumerator over every target: path arguments
// first, then paths listed on stdin.
func createEnumerator(stdin io.Reader, targets []string, config enum.Config) (enum.Enumerator, error) {
	var enumerators []enum.Enumerator

	for _, target := range targets {
		if _, err := os.Stat(target); err != nil {
			return nil, fmt.Errorf("target does not exist: %s", target)
		}
		c := config
		c.Root = target
		if scanGit {
			enumerators = append(enumerators, enum.NewGitEnumerator(c))
		} else {
			enumerators = append(enumerators, enum.NewFilesystemEnumerator(c))
		}
	}

	switch {
	case scanFilesStdin:
		enumerators = append(enumerators, enum.NewFileListEnumerator(config, stdin))
	case scanDirsStdin:
		enumerators = append(enumerators, enum.NewDirListEnumerator(config, stdin))
	}

	if len(enumerators) == 1 {
		return enumerators[0], nil
	}
	return enum.NewCombinedEnumerator(enumerators...), nil
}

// signalContext cancels on the signals that end a scan early. The summary
// is still printed.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGQUIT)
}
