package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/modfetch/modfetch/internal/domain"
	"github.com/modfetch/modfetch/internal/fetch"
	"github.com/modfetch/modfetch/internal/registry"
	"github.com/modfetch/modfetch/internal/store"
)

var (
	downloadSource string
	downloadOutput string

	downloadCmd = &cobra.Command{
		Use:   "download <id-or-slug>",
		Short: "Download a single mod for the configured target",
		Long: `Resolve a project to its newest version compatible with the platform
target, download and verify the artifact, cache it, and write it to the
output directory.`,
		Args: cobra.ExactArgs(1),
		RunE: runDownload,
	}
)

func init() {
	downloadCmd.Flags().StringVar(&downloadSource, "source", "", "registry to resolve against (default: configured source)")
	downloadCmd.Flags().StringVarP(&downloadOutput, "output", "o", ".", "directory to write the artifact to")
}

func runDownload(cmd *cobra.Command, args []string) error {
	id := args[0]
	target := cfg.PlatformTarget()
	ctx := cmd.Context()

	source, err := registry.New(sourceOrDefault(downloadSource), cfg, logger)
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.Paths.CacheDir)
	if err != nil {
		return err
	}
	defer st.Close()

	retry := fetch.RetryPolicy{
		MaxAttempts:    cfg.Fetch.MaxAttempts,
		InitialBackoff: cfg.Fetch.InitialBackoff,
	}

	version, err := resolveWithRetry(ctx, retry, source, id, target)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", id, err)
	}

	key := store.CacheKey(id, target)
	rec, err := st.GetArtifact(key, target)
	if err != nil {
		var data []byte
		err = retry.Do(ctx, func() error {
			d, derr := source.Download(ctx, version)
			if derr != nil {
				return derr
			}
			data = d
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to download %s: %w", version.Filename, err)
		}
		rec, err = st.PutArtifact(key, version.Filename, target, data, version.Checksum)
		if err != nil {
			return err
		}
	} else {
		fmt.Println(mutedStyle.Render("cache hit: " + rec.Filename))
	}

	if err := os.MkdirAll(downloadOutput, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	data, err := os.ReadFile(rec.Path)
	if err != nil {
		return fmt.Errorf("failed to read cached artifact: %w", err)
	}
	dst := filepath.Join(downloadOutput, rec.Filename)
	if err := os.WriteFile(dst, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", dst, err)
	}

	fmt.Println(successStyle.Render("downloaded ") + rec.Filename + mutedStyle.Render(" ("+version.Name+")"))
	return nil
}

func resolveWithRetry(ctx context.Context, retry fetch.RetryPolicy, source registry.Source, id string, target domain.Target) (*domain.Version, error) {
	var version *domain.Version
	err := retry.Do(ctx, func() error {
		v, rerr := source.Resolve(ctx, id, target)
		if rerr != nil {
			return rerr
		}
		version = v
		return nil
	})
	return version, err
}
