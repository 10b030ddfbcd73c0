// Package cmd implements the CLI commands using Cobra.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"odkdl/internal/config"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Global flags
var (
	flagDownload string
	flagPlay     bool
	flagPlayer   string
	flagLanguage string
	flagNoSubs   bool
	flagJSON     bool
	flagDebug    bool
)

// downloadDirFromConfig is the --download value used when no directory is given.
const downloadDirFromConfig = "@config"

// cfg holds the loaded configuration (merged: defaults < config file < environment < flags).
var cfg *config.Config

// errReported marks an error whose message was already shown to the user.
var errReported = errors.New("reported")

var rootCmd = &cobra.Command{
	Use:   "odkdl <url>",
	Short: "Resolve and download OnDemandKorea videos",
	Long: `odkdl resolves OnDemandKorea player and legacy page URLs into video
metadata, formats and subtitles, and can download or play the best format.`,
	Args:              cobra.ExactArgs(1),
	PersistentPreRunE: loadConfig,
	RunE:              resolveRun,
	SilenceUsage:      true,
}

// Execute runs the root command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func init() {
	log.SetOutput(os.Stderr)
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp: true,
	})

	rootCmd.PersistentFlags().StringVarP(&flagDownload, "download", "d", "", "Download to directory (--download=DIR; bare -d uses download_dir)")
	rootCmd.PersistentFlags().Lookup("download").NoOptDefVal = downloadDirFromConfig
	rootCmd.PersistentFlags().BoolVarP(&flagPlay, "play", "p", false, "Play the best format with the configured player")
	rootCmd.PersistentFlags().StringVar(&flagPlayer, "player", "", "Media player: mpv | vlc | iina | celluloid")
	rootCmd.PersistentFlags().StringVarP(&flagLanguage, "language", "l", "", "Subtitle language (default: English)")
	rootCmd.PersistentFlags().BoolVarP(&flagNoSubs, "no-subs", "n", false, "Disable subtitles")
	rootCmd.PersistentFlags().BoolVarP(&flagJSON, "json", "j", false, "Output video metadata as JSON")
	rootCmd.PersistentFlags().BoolVarP(&flagDebug, "debug", "x", false, "Debug logging to stderr")

	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig loads and merges configuration, then sets up logging.
func loadConfig(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	applyFlags(cfg)

	// Re-validate after flag overrides
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
	log.WithField("config", fmt.Sprintf("%+v", *cfg)).Debug("Loaded config")

	return nil
}

// applyFlags copies explicitly set CLI flags over c.
func applyFlags(c *config.Config) {
	if flagPlayer != "" {
		c.Player = flagPlayer
	}
	if flagLanguage != "" {
		c.SubsLanguage = flagLanguage
	}
	if flagDebug {
		c.Debug = true
	}
}

// downloadDir returns the directory --download asked for, falling back to
// the configured download_dir when the flag was given without a value.
func downloadDir(c *config.Config) (string, error) {
	if flagDownload != downloadDirFromConfig {
		return flagDownload, nil
	}
	dir, err := c.ExpandDownloadDir()
	if err != nil {
		return "", fmt.Errorf("resolving download dir: %w", err)
	}
	return dir, nil
}
