// Package fetch drives resolution, download, caching and materialization
// across all profile entries. It is the only component with control flow
// over the registry client, the cache store and the progress tracker.
package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/modfetch/modfetch/internal/domain"
	"github.com/modfetch/modfetch/internal/profile"
	"github.com/modfetch/modfetch/internal/registry"
	"github.com/modfetch/modfetch/internal/store"
)

// Mode selects how a run treats prior progress.
type Mode string

const (
	// ModeNormal skips entries already recorded as materialized.
	ModeNormal Mode = "normal"
	// ModeForce re-fetches everything without clearing the progress record.
	ModeForce Mode = "force"
	// ModeReset clears the progress record once at run start, then proceeds
	// as normal.
	ModeReset Mode = "reset"
)

// Options configures one orchestrator run.
type Options struct {
	Mode Mode
	// Categories restricts processing to entries of the given categories.
	// Nil means all. Pack builds pass {client, shared}.
	Categories map[domain.Category]bool
}

// Orchestrator coordinates one profile run. The store is passed in
// explicitly so tests can run in parallel against isolated stores.
type Orchestrator struct {
	source      registry.Source
	store       *store.Store
	retry       RetryPolicy
	serverDir   string
	clientDir   string
	concurrency int
	logger      *slog.Logger
}

// New creates an orchestrator. Concurrency below 1 is treated as 1: the
// default is a single worker, out of respect for registry rate limits.
func New(source registry.Source, st *store.Store, retry RetryPolicy, serverDir, clientDir string, concurrency int, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &Orchestrator{
		source:      source,
		store:       st,
		retry:       retry,
		serverDir:   serverDir,
		clientDir:   clientDir,
		concurrency: concurrency,
		logger:      logger,
	}
}

// runState is the per-run shared state. The dependency set keeps required
// dependencies from being fetched once per dependent entry.
type runState struct {
	done  map[string]bool
	force bool

	mu       sync.Mutex
	depsSeen map[string]bool
}

// Run processes every selected profile entry in profile order (report order
// is deterministic regardless of worker count). Per-entry failures are
// recorded and do not halt the batch; only systemic failures return an error.
func (o *Orchestrator) Run(ctx context.Context, prof *profile.Profile, target domain.Target, opts Options) (*domain.RunReport, error) {
	if !target.Complete() {
		return nil, fmt.Errorf("platform target must specify game version and loader")
	}
	for _, dir := range []string{o.serverDir, o.clientDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create target directory: %w", err)
		}
	}

	if opts.Mode == ModeReset {
		if err := o.store.ResetProgress(prof.ID, target); err != nil {
			return nil, fmt.Errorf("failed to reset progress: %w", err)
		}
		o.logger.Info("progress reset", "profile", prof.ID, "target", target.Key())
	}

	done, err := o.store.LoadProgress(prof.ID, target)
	if err != nil {
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}

	state := &runState{
		done:     done,
		force:    opts.Mode == ModeForce,
		depsSeen: make(map[string]bool),
	}

	entries := prof.Filter(opts.Categories)
	report := domain.NewRunReport(uuid.NewString(), target)
	results := make([]domain.EntryResult, len(entries))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < o.concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = o.processEntry(ctx, prof.ID, entries[i], target, state)
			}
		}()
	}

dispatch:
	for i := range entries {
		select {
		case <-ctx.Done():
			break dispatch
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	for _, res := range results {
		if res.Status == "" {
			continue // never dispatched (cancelled)
		}
		report.Record(res)
	}
	report.FinishedAt = time.Now()

	totals := report.Totals()
	o.logger.Info("run complete",
		"run", report.RunID,
		"succeeded", totals.Succeeded,
		"skipped", totals.Skipped,
		"failed", totals.Failed)

	if ctx.Err() != nil {
		return report, ctx.Err()
	}
	return report, nil
}

// processEntry walks one entry through the state machine:
// Pending → Resolving → Fetching → Verifying → Materialized, or → Failed /
// Skipped. Terminal states are final for the run.
func (o *Orchestrator) processEntry(ctx context.Context, profileID string, entry domain.ModEntry, target domain.Target, state *runState) domain.EntryResult {
	res := domain.EntryResult{Entry: entry, Status: domain.StatusPending}

	if state.done[entry.Filename] && !state.force {
		o.logger.Debug("entry already materialized", "file", entry.Filename)
		res.Status = domain.StatusSkipped
		return res
	}

	cacheID := entry.RegistryID
	if cacheID == "" {
		cacheID = entry.Filename
	}
	key := store.CacheKey(cacheID, target)

	// Cache hit short-circuits the network entirely, unless forced.
	if !state.force {
		if rec, err := o.store.GetArtifact(key, target); err == nil && satisfies(entry.Filename, rec.Filename) {
			if err := materialize(rec.Path, rec.Filename, o.targetDirs(entry.Category)); err != nil {
				res.Status = domain.StatusFailed
				res.Err = err
				return res
			}
			if err := o.store.MarkDone(profileID, target, entry.Filename); err != nil {
				res.Status = domain.StatusFailed
				res.Err = err
				return res
			}
			o.logger.Info("materialized from cache", "file", entry.Filename)
			res.Status = domain.StatusMaterialized
			return res
		}
	}

	res.Status = domain.StatusResolving
	var version *domain.Version
	err := o.retry.Do(ctx, func() error {
		v, rerr := o.source.Resolve(ctx, entry.Slug(), target)
		if rerr != nil {
			return rerr
		}
		version = v
		return nil
	})
	if err != nil {
		o.logger.Warn("resolve failed", "file", entry.Filename, "slug", entry.Slug(), "error", err)
		res.Status = domain.StatusFailed
		res.Err = err
		return res
	}
	res.Version = version

	res.Status = domain.StatusFetching
	var data []byte
	err = o.retry.Do(ctx, func() error {
		d, derr := o.source.Download(ctx, version)
		if derr != nil {
			return derr
		}
		data = d
		return nil
	})
	if err != nil {
		o.logger.Warn("download failed", "file", entry.Filename, "error", err)
		res.Status = domain.StatusFailed
		res.Err = err
		return res
	}

	// Download already verified the stream; PutArtifact re-verifies before
	// the record becomes visible.
	res.Status = domain.StatusVerifying
	rec, err := o.store.PutArtifact(key, version.Filename, target, data, version.Checksum)
	if err != nil {
		res.Status = domain.StatusFailed
		res.Err = err
		return res
	}

	if err := materialize(rec.Path, rec.Filename, o.targetDirs(entry.Category)); err != nil {
		res.Status = domain.StatusFailed
		res.Err = err
		return res
	}

	o.fetchDependencies(ctx, version, entry.Category, target, state)

	if err := o.store.MarkDone(profileID, target, entry.Filename); err != nil {
		res.Status = domain.StatusFailed
		res.Err = err
		return res
	}

	o.logger.Info("materialized", "file", entry.Filename, "version", version.VersionID)
	res.Status = domain.StatusMaterialized
	return res
}

// fetchDependencies resolves and materializes registry-declared required
// dependencies, one level deep. A dependency failure is logged, not fatal:
// the depending entry already materialized.
func (o *Orchestrator) fetchDependencies(ctx context.Context, version *domain.Version, category domain.Category, target domain.Target, state *runState) {
	for _, depID := range version.Dependencies {
		if state.markDepSeen(depID) {
			continue
		}

		dep, err := o.source.Resolve(ctx, depID, target)
		if err != nil {
			o.logger.Warn("dependency resolve failed", "dependency", depID, "error", err)
			continue
		}

		key := store.CacheKey(depID, target)
		rec, err := o.store.GetArtifact(key, target)
		if err != nil {
			data, derr := o.source.Download(ctx, dep)
			if derr != nil {
				o.logger.Warn("dependency download failed", "dependency", depID, "error", derr)
				continue
			}
			rec, err = o.store.PutArtifact(key, dep.Filename, target, data, dep.Checksum)
			if err != nil {
				o.logger.Warn("dependency cache failed", "dependency", depID, "error", err)
				continue
			}
		}

		if err := materialize(rec.Path, rec.Filename, o.targetDirs(category)); err != nil {
			o.logger.Warn("dependency materialize failed", "dependency", depID, "error", err)
		}
	}
}

// markDepSeen records a dependency fetch attempt and reports whether one
// already happened this run.
func (s *runState) markDepSeen(depID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := s.depsSeen[depID]
	s.depsSeen[depID] = true
	return seen
}

// targetDirs returns the directories an entry of the given category
// materializes into.
func (o *Orchestrator) targetDirs(c domain.Category) []string {
	var dirs []string
	if c.OnServer() {
		dirs = append(dirs, o.serverDir)
	}
	if c.OnClient() {
		dirs = append(dirs, o.clientDir)
	}
	return dirs
}
