// Package registry adapts remote mod-hosting services behind a single Source
// interface. Backends are selected by configuration, never by branching on a
// source name at call sites.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/modfetch/modfetch/internal/config"
	"github.com/modfetch/modfetch/internal/domain"
	"github.com/modfetch/modfetch/internal/registry/curseforge"
	"github.com/modfetch/modfetch/internal/registry/modrinth"
)

// Source names accepted by New.
const (
	SourceModrinth   = "modrinth"
	SourceCurseforge = "curseforge"
)

// Source is the capability interface a mod registry backend must implement.
// Implementations are stateless with respect to local storage; their only
// side effect is network I/O.
type Source interface {
	// Name identifies the backend ("modrinth", "curseforge").
	Name() string

	// Search resolves a search term to candidate projects, most relevant
	// first. Empty terms and incomplete targets are rejected.
	Search(ctx context.Context, term string, target domain.Target, limit int) ([]domain.Project, error)

	// Resolve picks the newest version of a project compatible with the
	// target. Returns domain.ErrNotFound when the project does not exist and
	// domain.ErrNoVersion when nothing matches the target.
	Resolve(ctx context.Context, idOrSlug string, target domain.Target) (*domain.Version, error)

	// Download fetches the version's artifact and verifies it against the
	// registry-declared checksum. A mismatch returns domain.ErrIntegrity and
	// the bytes are discarded; they must never reach the cache.
	Download(ctx context.Context, v *domain.Version) ([]byte, error)
}

// New creates a Source for the named backend. This factory is the only place
// that knows about concrete backend types.
func New(name string, cfg *config.Config, logger *slog.Logger) (Source, error) {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Fetch.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	switch name {
	case SourceModrinth:
		return modrinth.NewClient(cfg.Registry.ModrinthURL, cfg.Registry.ModrinthToken, timeout, logger), nil
	case SourceCurseforge:
		return curseforge.NewClient(cfg.Registry.CurseforgeURL, cfg.Registry.CurseforgeKey, timeout, logger), nil
	default:
		return nil, fmt.Errorf("unknown registry source: %s", name)
	}
}

// All returns every configured backend, for cross-source search.
func All(cfg *config.Config, logger *slog.Logger) []Source {
	sources := make([]Source, 0, 2)
	for _, name := range []string{SourceModrinth, SourceCurseforge} {
		if s, err := New(name, cfg, logger); err == nil {
			sources = append(sources, s)
		}
	}
	return sources
}
