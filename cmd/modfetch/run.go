package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/modfetch/modfetch/internal/domain"
	"github.com/modfetch/modfetch/internal/fetch"
	"github.com/modfetch/modfetch/internal/profile"
	"github.com/modfetch/modfetch/internal/registry"
	"github.com/modfetch/modfetch/internal/store"
)

var (
	runMode       string
	runCategories []string
	runStrict     bool

	runCmd = &cobra.Command{
		Use:   "run <profile>",
		Short: "Resolve and materialize every mod in a profile",
		Long: `Process a profile: resolve each entry against the registry, download and
verify artifacts, and materialize them into the server and client
directories. Entries already completed for this profile and target are
skipped; use --mode force to re-fetch or --mode reset to start over.`,
		Args: cobra.ExactArgs(1),
		RunE: runRun,
	}
)

func init() {
	runCmd.Flags().StringVar(&runMode, "mode", "normal", "progress handling: normal, force or reset")
	runCmd.Flags().StringSliceVar(&runCategories, "categories", nil, "restrict to categories (server,client,shared)")
	runCmd.Flags().BoolVar(&runStrict, "strict", false, "exit non-zero when any entry fails")
}

func runRun(cmd *cobra.Command, args []string) error {
	prof, warns, err := profile.ParseFile(args[0])
	if err != nil {
		return err
	}
	printWarnings(warns)

	categories, err := parseCategories(runCategories)
	if err != nil {
		return err
	}

	mode, err := parseMode(runMode)
	if err != nil {
		return err
	}

	report, err := executeRun(cmd, prof, fetch.Options{Mode: mode, Categories: categories})
	if err != nil {
		return err
	}

	printSummary(report)

	if runStrict && report.Totals().Failed > 0 {
		return &exitError{code: 1, err: fmt.Errorf("%d entries failed", report.Totals().Failed)}
	}
	return nil
}

// executeRun wires the store, registry and orchestrator together and runs the
// profile. Shared between the run and pack commands.
func executeRun(cmd *cobra.Command, prof *profile.Profile, opts fetch.Options) (*domain.RunReport, error) {
	source, err := registry.New(cfg.Registry.Source, cfg, logger)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.Paths.CacheDir)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	retry := fetch.RetryPolicy{
		MaxAttempts:    cfg.Fetch.MaxAttempts,
		InitialBackoff: cfg.Fetch.InitialBackoff,
	}

	orch := fetch.New(source, st, retry,
		cfg.Paths.ServerDir, cfg.Paths.ClientDir,
		cfg.Fetch.Concurrency, logger)

	return orch.Run(cmd.Context(), prof, cfg.PlatformTarget(), opts)
}

func parseMode(s string) (fetch.Mode, error) {
	switch fetch.Mode(s) {
	case fetch.ModeNormal, fetch.ModeForce, fetch.ModeReset:
		return fetch.Mode(s), nil
	default:
		return "", fmt.Errorf("unknown mode %q (want normal, force or reset)", s)
	}
}

func parseCategories(names []string) (map[domain.Category]bool, error) {
	if len(names) == 0 {
		return nil, nil
	}
	set := make(map[domain.Category]bool, len(names))
	for _, n := range names {
		c := domain.Category(strings.TrimSpace(n))
		if !c.Valid() {
			return nil, fmt.Errorf("unknown category %q (want server, client or shared)", n)
		}
		set[c] = true
	}
	return set, nil
}

func printWarnings(warns []profile.ParseWarning) {
	for _, w := range warns {
		fmt.Fprintln(os.Stderr, warningStyle.Render("Warning: ")+w.String())
	}
}

// printSummary renders the per-category outcome table every run ends with.
func printSummary(report *domain.RunReport) {
	fmt.Println(titleStyle.Render("Run " + report.RunID[:8]) + mutedStyle.Render(" "+report.Target.String()))
	for _, c := range []domain.Category{domain.CategoryServer, domain.CategoryClient, domain.CategoryShared} {
		counts := report.ByCategory[c]
		if counts == nil || counts.Succeeded+counts.Skipped+counts.Failed == 0 {
			continue
		}
		line := fmt.Sprintf("  %-7s %s  %s  %s", c,
			successStyle.Render(fmt.Sprintf("%d succeeded", counts.Succeeded)),
			mutedStyle.Render(fmt.Sprintf("%d skipped", counts.Skipped)),
			failStyle(counts.Failed))
		fmt.Println(line)
	}
	for _, res := range report.Failed() {
		fmt.Println(errorStyle.Render("  failed: ") + res.Entry.Filename + mutedStyle.Render(" ("+res.Err.Error()+")"))
	}
}

func failStyle(n int) string {
	s := fmt.Sprintf("%d failed", n)
	if n > 0 {
		return errorStyle.Render(s)
	}
	return mutedStyle.Render(s)
}
