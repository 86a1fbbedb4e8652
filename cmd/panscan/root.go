package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/praetorian-inc/panscan/pkg/config"
	"github.com/praetorian-inc/panscan/pkg/observability"
)

var (
	verbose bool
	quiet   bool
	cfgFile string

	v         = viper.New()
	appConfig = config.NewDefaultConfig()
)

// configKeys maps flag names to config keys. Any command that defines one of
// these flags has it bound before the config is loaded.
var configKeys = map[string]string{
	"track":             "scan.track",
	"mask":              "scan.mask",
	"ascii-only":        "scan.ascii_only",
	"limit":             "scan.limit",
	"ignore-file":       "scan.ignore_file",
	"exclude-ext":       "scan.exclude_extensions",
	"exclude-glob":      "scan.exclude_globs",
	"workers":           "scan.workers",
	"max-file-size":     "scan.max_file_size",
	"include-hidden":    "scan.include_hidden",
	"respect-gitignore": "scan.respect_gitignore",
	"extract":           "scan.extract",
}

var rootCmd = &cobra.Command{
	Use:   "panscan",
	Short: "panscan - payment card number scanner",
	Long: `panscan finds payment card numbers (PANs) in files, directories, archives and
git repositories. Candidates must pass the Luhn check and match an issuer's
prefix and length, and magnetic-stripe track data can be tagged.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Quiet mode (errors only)")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default is ./"+config.DefaultFile+")")

	// Add subcommands
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mergeCmd)
	rootCmd.AddCommand(exploreCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig merges file, environment and flags, then starts the logger.
func loadConfig(cmd *cobra.Command, args []string) error {
	for flag, key := range configKeys {
		if f := cmd.Flags().Lookup(flag); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("binding --%s: %w", flag, err)
			}
		}
	}

	if err := config.Init(v, cfgFile); err != nil {
		return err
	}
	cfg, err := config.FromViper(v)
	if err != nil {
		return err
	}

	if all, _ := cmd.Flags().GetBool("all-tracks"); all {
		cfg.Scan.Track = config.TrackBoth
	}

	switch {
	case verbose:
		cfg.Logger.Level = "debug"
	case quiet:
		cfg.Logger.Level = "error"
	}
	appConfig = cfg

	observability.InitializeLogger(cfg.Logger)
	observability.GetLogger().Debug("configuration loaded", zap.String("file", v.ConfigFileUsed()))
	return nil
}

// Execute runs the root command.
func Execute() error {
	defer observability.Sync()
	return rootCmd.Execute()
}
