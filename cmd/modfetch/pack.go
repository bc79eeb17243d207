package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/modfetch/modfetch/internal/domain"
	"github.com/modfetch/modfetch/internal/fetch"
	"github.com/modfetch/modfetch/internal/pack"
	"github.com/modfetch/modfetch/internal/profile"
)

var (
	packOutput string

	packCmd = &cobra.Command{
		Use:   "pack <profile>",
		Short: "Assemble the distributable client pack",
		Long: `Materialize the profile's client and shared mods, then assemble them into
a zip archive with a manifest. The build aborts if any client or shared
mod is missing; a partial pack is never written.`,
		Args: cobra.ExactArgs(1),
		RunE: runPack,
	}
)

func init() {
	packCmd.Flags().StringVarP(&packOutput, "output", "o", "", "archive path (default <profile>-pack.zip)")
}

func runPack(cmd *cobra.Command, args []string) error {
	prof, warns, err := profile.ParseFile(args[0])
	if err != nil {
		return err
	}
	printWarnings(warns)

	clientSide := map[domain.Category]bool{
		domain.CategoryClient: true,
		domain.CategoryShared: true,
	}
	report, err := executeRun(cmd, prof, fetch.Options{Mode: fetch.ModeNormal, Categories: clientSide})
	if err != nil {
		return err
	}
	printSummary(report)

	// A failed client or shared entry means the pack would ship incomplete.
	if failed := report.Failed(); len(failed) > 0 {
		missing := make([]string, 0, len(failed))
		for _, res := range failed {
			missing = append(missing, res.Entry.Filename)
		}
		incomplete := &domain.IncompletePackError{Missing: missing}
		fmt.Println(errorStyle.Render("pack aborted: ") + incomplete.Error())
		return &exitError{code: 1, err: incomplete}
	}

	outPath := packOutput
	if outPath == "" {
		outPath = prof.ID + "-pack.zip"
	}

	assembler := pack.New(cfg.Paths.ClientDir, logger)
	manifest, err := assembler.Assemble(prof, cfg.PlatformTarget(), outPath)
	if err != nil {
		var incomplete *domain.IncompletePackError
		if errors.As(err, &incomplete) {
			fmt.Println(errorStyle.Render("pack aborted: ") + incomplete.Error())
			return &exitError{code: 1, err: incomplete}
		}
		return err
	}

	abs, _ := filepath.Abs(outPath)
	fmt.Println(successStyle.Render("pack written ") + abs + mutedStyle.Render(fmt.Sprintf(" (%d mods)", len(manifest.Mods))))
	return nil
}
