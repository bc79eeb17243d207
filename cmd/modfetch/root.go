// Command modfetch resolves mod profiles against remote registries, caches
// the artifacts, and assembles distributable client packs.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/modfetch/modfetch/internal/config"
	"github.com/modfetch/modfetch/internal/log"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var (
	cfgFile       string
	verbose       bool
	gameVersion   string
	loader        string
	loaderVersion string
	cacheDir      string

	cfg    *config.Config
	logger *slog.Logger

	rootCmd = &cobra.Command{
		Use:   "modfetch",
		Short: "Mod resolution, caching and pack assembly",
		Long: titleStyle.Render("modfetch") + mutedStyle.Render(" - mod resolution, caching and pack assembly") + `

modfetch resolves the mods listed in a profile against a remote registry,
downloads the newest versions compatible with your platform target, and
materializes them into server and client directories. Completed work is
remembered, so interrupted runs resume where they left off.`,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is ~/.config/modfetch/config.yaml)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	pf.StringVar(&gameVersion, "game-version", "", "override the configured game version")
	pf.StringVar(&loader, "loader", "", "override the configured mod loader")
	pf.StringVar(&loaderVersion, "loader-version", "", "override the configured loader version")
	pf.StringVar(&cacheDir, "cache-dir", "", "override the configured cache directory")

	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(packCmd)
	rootCmd.AddCommand(validateCmd)
}

// setup loads configuration and the logger before any subcommand runs.
// Flags override config values.
func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return err
	}

	if gameVersion != "" {
		cfg.Target.GameVersion = gameVersion
	}
	if loader != "" {
		cfg.Target.Loader = loader
	}
	if loaderVersion != "" {
		cfg.Target.LoaderVersion = loaderVersion
	}
	if cacheDir != "" {
		cfg.Paths.CacheDir = cacheDir
	}

	level := cfg.Logging.Level
	if verbose {
		level = "DEBUG"
	}
	logger, err = log.Setup(cfg.Logging.File, level)
	if err != nil {
		// Logging is best-effort; the tool still works without a log file.
		fmt.Fprintln(os.Stderr, warningStyle.Render("Warning: ")+err.Error())
		logger = log.NullLogger()
	}
	return nil
}

// exitError signals a specific exit code from a RunE handler without calling
// os.Exit mid-command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	return fmt.Sprintf("exit status %d", e.code)
}

func (e *exitError) Unwrap() error { return e.err }

// Execute runs the CLI. An interrupt cancels the command context, so
// in-flight downloads stop at the next checkpoint and progress stays intact.
func Execute() {
	err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(Version),
		fang.WithNotifySignal(os.Interrupt),
	)
	if err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		os.Exit(1)
	}
}
