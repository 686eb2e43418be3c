// Package cmd implements the CLI commands using Cobra.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"tubesb/internal/browser"
	"tubesb/internal/config"
	"tubesb/internal/httputil"
	"tubesb/internal/log"
	"tubesb/internal/pipeline"
	"tubesb/internal/provider"
	"tubesb/internal/ui"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Global flags
var (
	flagTimeout        int
	flagGap            int
	flagSkipResolution bool
	flagJSON           bool
	flagTrace          bool
	flagDebug          bool
	flagPlay           bool
	flagDownload       string
	flagSelect         bool
	flagPlayer         string
	flagChrome         string
	flagShowBrowser    bool
)

// cfg holds the loaded configuration (merged: defaults < config file < flags).
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "tubesb [url]",
	Short: "Resolve stream URLs and download routes of a video page",
	Long: `tubesb opens a video page in a headless browser, captures the player's
manifest request and lists the stream of every quality together with the
download route scraped from the page.`,
	Args:              cobra.ExactArgs(1),
	PersistentPreRunE: loadConfig,
	RunE:              mediaRun,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

// Execute runs the root command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, ui.Error(err))
		stop()
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.IntVarP(&flagTimeout, "timeout", "t", 10000, "Deadline of a run in milliseconds")
	flags.IntVar(&flagGap, "gap", 1000, "Wait before reading the quality menu, in milliseconds")
	flags.BoolVarP(&flagSkipResolution, "skip-resolution", "s", false, "Do not read quality labels from the player")
	flags.BoolVarP(&flagJSON, "json", "j", false, "Print results as JSON")
	flags.BoolVar(&flagTrace, "trace", false, "Print the run diagnostics")
	flags.BoolVarP(&flagDebug, "debug", "x", false, "Debug logging to stderr")
	flags.BoolVarP(&flagPlay, "play", "p", false, "Play the chosen stream")
	flags.StringVarP(&flagDownload, "download", "d", "", "Download the chosen item to download_dir, or to DIR with --download=DIR")
	flags.Lookup("download").NoOptDefVal = configDownloadDir
	flags.BoolVar(&flagSelect, "select", false, "Choose an item interactively")
	flags.StringVar(&flagPlayer, "player", "", "Media player: mpv | vlc | iina | celluloid")
	flags.StringVar(&flagChrome, "chrome", "", "Path to the Chrome or Chromium binary")
	flags.BoolVar(&flagShowBrowser, "show-browser", false, "Run the browser with a visible window")

	rootCmd.AddCommand(streamsCmd)
	rootCmd.AddCommand(routesCmd)
	rootCmd.AddCommand(linkCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig loads and merges configuration: defaults < config file < CLI flags.
func loadConfig(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// CLI flags override config file values
	if cmd.Flags().Changed("timeout") {
		cfg.TimeoutMS = flagTimeout
	}
	if cmd.Flags().Changed("gap") {
		cfg.ResolutionGapMS = flagGap
	}
	if flagSkipResolution {
		cfg.SkipResolution = true
	}
	if flagPlayer != "" {
		cfg.Player = flagPlayer
	}
	if flagChrome != "" {
		cfg.ChromePath = flagChrome
	}
	if flagShowBrowser {
		cfg.Headless = false
	}
	if flagDebug {
		cfg.Debug = true
	}

	// Re-validate after flag overrides
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log.Setup(cfg.Debug, cfg.JSONLogs)
	log.Debugf("config loaded: timeout=%dms gap=%dms skip_resolution=%t", cfg.TimeoutMS, cfg.ResolutionGapMS, cfg.SkipResolution)

	return nil
}

// newSite builds the page scraper from the config.
func newSite() *provider.Site {
	client := httputil.NewClient(httputil.Options{
		Timeout:     cfg.Timeout() + 5*time.Second,
		Fingerprint: cfg.Fingerprint,
	})
	return provider.New(cfg.Site, client, cfg.UserAgent)
}

// newPipeline builds a pipeline backed by Chrome.
func newPipeline(site *provider.Site) *pipeline.Pipeline {
	open := browser.NewChromeFactory(browser.ChromeOptions{
		ExecPath:  cfg.ChromePath,
		Headless:  cfg.Headless,
		UserAgent: cfg.UserAgent,
	})
	return pipeline.New(pipeline.Options{
		Timeout:        cfg.Timeout(),
		ResolutionGap:  cfg.ResolutionGap(),
		SkipResolution: cfg.SkipResolution,
	}, open, site)
}
