package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/modfetch/modfetch/internal/profile"
	"github.com/modfetch/modfetch/internal/validate"
)

var (
	validateServerDir string
	validateClientDir string

	validateCmd = &cobra.Command{
		Use:   "validate <profile>",
		Short: "Check materialized directories against the profile",
		Long: `Check that no client-only mod sits in the server directory (and vice
versa), and flag files matching known-incompatible patterns.
Files present in a directory but absent from the profile are reported
as warnings and do not fail validation.`,
		Args: cobra.ExactArgs(1),
		RunE: runValidate,
	}
)

func init() {
	validateCmd.Flags().StringVar(&validateServerDir, "server-dir", "", "server mods directory (default from config)")
	validateCmd.Flags().StringVar(&validateClientDir, "client-dir", "", "client mods directory (default from config)")
}

func runValidate(cmd *cobra.Command, args []string) error {
	prof, warns, err := profile.ParseFile(args[0])
	if err != nil {
		return err
	}
	printWarnings(warns)

	serverDir := validateServerDir
	if serverDir == "" {
		serverDir = cfg.Paths.ServerDir
	}
	clientDir := validateClientDir
	if clientDir == "" {
		clientDir = cfg.Paths.ClientDir
	}

	serverListing, err := listDir(serverDir)
	if err != nil {
		return err
	}
	clientListing, err := listDir(clientDir)
	if err != nil {
		return err
	}

	report := validate.Validate(prof, serverListing, clientListing, cfg.IncompatibilityPatterns())

	for _, m := range report.Mismatches {
		fmt.Println(errorStyle.Render("mismatch: ") + m.String())
	}
	for _, f := range report.Flagged {
		fmt.Println(errorStyle.Render("flagged: ") + f.String())
	}
	for _, u := range report.Unclassified {
		fmt.Println(warningStyle.Render("unclassified: ") + u)
	}

	if !report.OK() {
		return &exitError{code: 1, err: fmt.Errorf("validation failed: %d mismatches, %d flagged",
			len(report.Mismatches), len(report.Flagged))}
	}
	fmt.Println(successStyle.Render("validation passed") + mutedStyle.Render(fmt.Sprintf(" (%d server, %d client files)",
		len(serverListing), len(clientListing))))
	return nil
}

// listDir returns the filenames in dir. A missing directory is an empty
// listing, not an error: validating before the first run should pass.
func listDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}
