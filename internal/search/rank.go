// Package search merges and ranks project search results across registry
// backends.
package search

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/modfetch/modfetch/internal/domain"
	"github.com/modfetch/modfetch/internal/registry"
)

// Result is a ranked project hit.
type Result struct {
	Project domain.Project
	Score   int
}

// Query searches every given backend for the term and returns a merged,
// ranked result list. A backend failure is logged and skipped; partial
// results beat no results.
func Query(ctx context.Context, sources []registry.Source, term string, target domain.Target, limit int, logger *slog.Logger) ([]Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if limit < 1 {
		limit = 10
	}

	var projects []domain.Project
	for _, src := range sources {
		hits, err := src.Search(ctx, term, target, limit)
		if err != nil {
			logger.Warn("search backend failed", "source", src.Name(), "error", err)
			continue
		}
		projects = append(projects, hits...)
	}
	if len(projects) == 0 {
		return nil, domain.ErrNotFound
	}

	ranked := Rank(term, dedupe(projects))
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

// Rank scores projects against the term and orders them best-first.
// Ties break on download count descending, so the well-known project
// surfaces above the sound-alike.
func Rank(term string, projects []domain.Project) []Result {
	results := make([]Result, 0, len(projects))
	for _, p := range projects {
		results = append(results, Result{Project: p, Score: score(term, p)})
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Project.Downloads > results[j].Project.Downloads
	})
	return results
}

// score rates how well a project matches the term. Exact slug or title
// matches rank above fuzzy ones; a non-matching project scores zero.
func score(term string, p domain.Project) int {
	t := strings.ToLower(term)
	slug := strings.ToLower(p.Slug)
	title := strings.ToLower(p.Title)

	switch {
	case slug == t || title == t:
		return 1000
	case strings.HasPrefix(slug, t) || strings.HasPrefix(title, t):
		return 500
	case strings.Contains(slug, t) || strings.Contains(title, t):
		return 250
	}

	best := 0
	for _, candidate := range []string{slug, title} {
		if rank := fuzzy.RankMatchNormalizedFold(t, candidate); rank >= 0 {
			// Lower rank is a closer fuzzy match.
			if s := 200 - rank; s > best {
				best = s
			}
		}
	}
	return best
}

// dedupe drops repeated (source, id) hits, keeping the first occurrence.
func dedupe(projects []domain.Project) []domain.Project {
	seen := make(map[string]bool, len(projects))
	out := projects[:0]
	for _, p := range projects {
		key := p.Source + "|" + p.ID
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p)
	}
	return out
}
