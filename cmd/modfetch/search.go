package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/modfetch/modfetch/internal/domain"
	"github.com/modfetch/modfetch/internal/registry"
	"github.com/modfetch/modfetch/internal/search"
)

var (
	searchSource string
	searchLimit  int

	searchCmd = &cobra.Command{
		Use:   "search <term>",
		Short: "Search registries for mod projects",
		Long: `Search one or both registries for projects matching a term,
filtered to the configured platform target. Results are ranked by match
quality, then by download count.`,
		Args: cobra.ExactArgs(1),
		RunE: runSearch,
	}
)

func init() {
	searchCmd.Flags().StringVar(&searchSource, "source", "", "registry to search: modrinth, curseforge or both (default: configured source)")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 10, "maximum number of results")
}

func runSearch(cmd *cobra.Command, args []string) error {
	term := args[0]
	target := cfg.PlatformTarget()

	var sources []registry.Source
	switch src := sourceOrDefault(searchSource); src {
	case "both":
		sources = registry.All(cfg, logger)
	default:
		s, err := registry.New(src, cfg, logger)
		if err != nil {
			return err
		}
		sources = []registry.Source{s}
	}

	results, err := search.Query(cmd.Context(), sources, term, target, searchLimit, logger)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			fmt.Println(mutedStyle.Render(fmt.Sprintf("no projects matching %q for %s", term, target)))
			return nil
		}
		return err
	}

	fmt.Println(titleStyle.Render(fmt.Sprintf("Results for %q (%s)", term, target)))
	for i, r := range results {
		p := r.Project
		fmt.Printf("%2d. %s %s\n", i+1, p.Title, mutedStyle.Render(fmt.Sprintf("(%s, %s, %s downloads)", p.Slug, p.Source, humanCount(p.Downloads))))
		if p.Description != "" {
			fmt.Printf("    %s\n", mutedStyle.Render(p.Description))
		}
	}
	return nil
}

func sourceOrDefault(flag string) string {
	if flag != "" {
		return flag
	}
	return cfg.Registry.Source
}

// humanCount renders a download count compactly (12_345_678 -> "12.3M").
func humanCount(n int64) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	default:
		return fmt.Sprintf("%d", n)
	}
}
