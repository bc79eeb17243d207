package fetch

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/modfetch/modfetch/internal/domain"
	"github.com/modfetch/modfetch/internal/log"
	"github.com/modfetch/modfetch/internal/profile"
	"github.com/modfetch/modfetch/internal/store"
)

var testTarget = domain.Target{GameVersion: "1.21.5", Loader: "fabric"}

// fakeSource serves canned versions and bytes keyed by slug, counting calls.
type fakeSource struct {
	mu        sync.Mutex
	versions  map[string]*domain.Version
	data      map[string][]byte
	failWith  map[string]error
	resolves  map[string]int
	downloads map[string]int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		versions:  make(map[string]*domain.Version),
		data:      make(map[string][]byte),
		failWith:  make(map[string]error),
		resolves:  make(map[string]int),
		downloads: make(map[string]int),
	}
}

// add registers a mod under slug with the given artifact filename and bytes.
func (f *fakeSource) add(slug, filename string, data []byte, deps ...string) {
	sum := sha1.Sum(data)
	f.versions[slug] = &domain.Version{
		Source:       "fake",
		ProjectID:    slug,
		VersionID:    slug + "-v1",
		Name:         slug + " 1.0",
		Filename:     filename,
		URL:          "fake://" + filename,
		Checksum:     domain.Checksum{Algo: "sha1", Value: hex.EncodeToString(sum[:])},
		GameVersions: []string{testTarget.GameVersion},
		Loaders:      []string{testTarget.Loader},
		PublishedAt:  time.Now(),
		Dependencies: deps,
	}
	f.data[slug] = data
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) Search(ctx context.Context, term string, target domain.Target, limit int) ([]domain.Project, error) {
	return nil, domain.ErrNotFound
}

func (f *fakeSource) Resolve(ctx context.Context, idOrSlug string, target domain.Target) (*domain.Version, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolves[idOrSlug]++
	if err, ok := f.failWith[idOrSlug]; ok {
		return nil, err
	}
	v, ok := f.versions[idOrSlug]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return v, nil
}

func (f *fakeSource) Download(ctx context.Context, v *domain.Version) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.downloads[v.ProjectID]++
	return f.data[v.ProjectID], nil
}

func (f *fakeSource) resolveCount(slug string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resolves[slug]
}

type testEnv struct {
	orch      *Orchestrator
	source    *fakeSource
	store     *store.Store
	serverDir string
	clientDir string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	root := t.TempDir()
	st, err := store.Open(filepath.Join(root, "cache"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })

	src := newFakeSource()
	serverDir := filepath.Join(root, "server", "mods")
	clientDir := filepath.Join(root, "client", "mods")
	retry := RetryPolicy{MaxAttempts: 3, InitialBackoff: time.Millisecond}

	return &testEnv{
		orch:      New(src, st, retry, serverDir, clientDir, 1, log.NullLogger()),
		source:    src,
		store:     st,
		serverDir: serverDir,
		clientDir: clientDir,
	}
}

func exists(t *testing.T, path string) bool {
	t.Helper()
	_, err := os.Stat(path)
	return err == nil
}

const testProfile = `[server] lithium-0.16.jar
[client] sodium-0.6.jar
[shared] fabric-api-0.119.jar
`

func setupProfile(t *testing.T, env *testEnv) *profile.Profile {
	t.Helper()
	env.source.add("lithium", "lithium-0.16.jar", []byte("lithium bytes"))
	env.source.add("sodium", "sodium-0.6.jar", []byte("sodium bytes"))
	env.source.add("fabric", "fabric-api-0.119.jar", []byte("fabric bytes"))
	p, warns := profile.Parse("test", testProfile)
	if len(warns) != 0 {
		t.Fatalf("profile warnings: %v", warns)
	}
	return p
}

func TestRunMaterializesByCategory(t *testing.T) {
	env := newTestEnv(t)
	p := setupProfile(t, env)

	report, err := env.orch.Run(context.Background(), p, testTarget, Options{Mode: ModeNormal})
	if err != nil {
		t.Fatal(err)
	}
	if totals := report.Totals(); totals.Succeeded != 3 || totals.Failed != 0 {
		t.Fatalf("totals = %+v, want 3 succeeded", totals)
	}

	checks := []struct {
		path string
		want bool
	}{
		{filepath.Join(env.serverDir, "lithium-0.16.jar"), true},
		{filepath.Join(env.clientDir, "lithium-0.16.jar"), false},
		{filepath.Join(env.clientDir, "sodium-0.6.jar"), true},
		{filepath.Join(env.serverDir, "sodium-0.6.jar"), false},
		{filepath.Join(env.serverDir, "fabric-api-0.119.jar"), true},
		{filepath.Join(env.clientDir, "fabric-api-0.119.jar"), true},
	}
	for _, c := range checks {
		if got := exists(t, c.path); got != c.want {
			t.Errorf("%s: exists = %v, want %v", c.path, got, c.want)
		}
	}
}

func TestRunDeterministicOrder(t *testing.T) {
	env := newTestEnv(t)
	p := setupProfile(t, env)

	report, err := env.orch.Run(context.Background(), p, testTarget, Options{Mode: ModeNormal})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"lithium-0.16.jar", "sodium-0.6.jar", "fabric-api-0.119.jar"}
	for i, res := range report.Entries {
		if res.Entry.Filename != want[i] {
			t.Errorf("entry %d = %s, want %s (report must follow profile order)", i, res.Entry.Filename, want[i])
		}
	}
}

func TestRunIdempotent(t *testing.T) {
	env := newTestEnv(t)
	p := setupProfile(t, env)

	if _, err := env.orch.Run(context.Background(), p, testTarget, Options{Mode: ModeNormal}); err != nil {
		t.Fatal(err)
	}
	before := env.source.resolveCount("lithium")

	report, err := env.orch.Run(context.Background(), p, testTarget, Options{Mode: ModeNormal})
	if err != nil {
		t.Fatal(err)
	}
	if totals := report.Totals(); totals.Skipped != 3 || totals.Succeeded != 0 {
		t.Fatalf("second run totals = %+v, want 3 skipped", totals)
	}
	if after := env.source.resolveCount("lithium"); after != before {
		t.Error("second run must not touch the registry for completed entries")
	}
}

func TestRunResumes(t *testing.T) {
	env := newTestEnv(t)
	p := setupProfile(t, env)

	// Simulate an earlier interrupted run that completed only lithium.
	if err := env.store.MarkDone("test", testTarget, "lithium-0.16.jar"); err != nil {
		t.Fatal(err)
	}

	report, err := env.orch.Run(context.Background(), p, testTarget, Options{Mode: ModeNormal})
	if err != nil {
		t.Fatal(err)
	}
	if totals := report.Totals(); totals.Skipped != 1 || totals.Succeeded != 2 {
		t.Fatalf("totals = %+v, want 1 skipped / 2 succeeded", totals)
	}
	if env.source.resolveCount("lithium") != 0 {
		t.Error("completed entry must not be re-resolved")
	}
}

func TestRunModeReset(t *testing.T) {
	env := newTestEnv(t)
	p := setupProfile(t, env)

	if _, err := env.orch.Run(context.Background(), p, testTarget, Options{Mode: ModeNormal}); err != nil {
		t.Fatal(err)
	}

	report, err := env.orch.Run(context.Background(), p, testTarget, Options{Mode: ModeReset})
	if err != nil {
		t.Fatal(err)
	}
	// Progress is cleared, but the artifacts are still cached: entries
	// re-materialize from cache without hitting the registry's download path.
	if totals := report.Totals(); totals.Succeeded != 3 || totals.Skipped != 0 {
		t.Fatalf("reset run totals = %+v, want 3 succeeded", totals)
	}
}

func TestRunModeForce(t *testing.T) {
	env := newTestEnv(t)
	p := setupProfile(t, env)

	if _, err := env.orch.Run(context.Background(), p, testTarget, Options{Mode: ModeNormal}); err != nil {
		t.Fatal(err)
	}
	before := env.source.resolveCount("lithium")

	report, err := env.orch.Run(context.Background(), p, testTarget, Options{Mode: ModeForce})
	if err != nil {
		t.Fatal(err)
	}
	if totals := report.Totals(); totals.Succeeded != 3 {
		t.Fatalf("force run totals = %+v, want 3 succeeded", totals)
	}
	if after := env.source.resolveCount("lithium"); after != before+1 {
		t.Errorf("force run should re-resolve (resolves %d -> %d)", before, after)
	}
}

func TestRunCategoryFilter(t *testing.T) {
	env := newTestEnv(t)
	p := setupProfile(t, env)

	report, err := env.orch.Run(context.Background(), p, testTarget, Options{
		Mode: ModeNormal,
		Categories: map[domain.Category]bool{
			domain.CategoryClient: true,
			domain.CategoryShared: true,
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if totals := report.Totals(); totals.Succeeded != 2 {
		t.Fatalf("totals = %+v, want 2 succeeded (client+shared)", totals)
	}
	if exists(t, filepath.Join(env.serverDir, "lithium-0.16.jar")) {
		t.Error("server-only entry processed despite category filter")
	}
	if env.source.resolveCount("lithium") != 0 {
		t.Error("filtered-out entry must not be resolved")
	}
}

func TestRunFailureIsolation(t *testing.T) {
	env := newTestEnv(t)
	p := setupProfile(t, env)
	env.source.failWith["sodium"] = domain.ErrNotFound

	report, err := env.orch.Run(context.Background(), p, testTarget, Options{Mode: ModeNormal})
	if err != nil {
		t.Fatal(err)
	}
	totals := report.Totals()
	if totals.Failed != 1 || totals.Succeeded != 2 {
		t.Fatalf("totals = %+v, want 1 failed / 2 succeeded", totals)
	}
	failed := report.Failed()
	if len(failed) != 1 || failed[0].Entry.Filename != "sodium-0.6.jar" {
		t.Fatalf("failed = %v", failed)
	}
	if !errors.Is(failed[0].Err, domain.ErrNotFound) {
		t.Errorf("failure cause = %v, want ErrNotFound", failed[0].Err)
	}

	// The failed entry is retried on the next run, the rest skip.
	report2, err := env.orch.Run(context.Background(), p, testTarget, Options{Mode: ModeNormal})
	if err != nil {
		t.Fatal(err)
	}
	if totals := report2.Totals(); totals.Skipped != 2 || totals.Failed != 1 {
		t.Errorf("second run totals = %+v, want 2 skipped / 1 failed", totals)
	}
}

func TestRunRetryCeiling(t *testing.T) {
	env := newTestEnv(t)
	p := setupProfile(t, env)
	env.source.failWith["lithium"] = &domain.TransportError{Op: "resolve", Err: fmt.Errorf("connection reset")}

	report, err := env.orch.Run(context.Background(), p, testTarget, Options{Mode: ModeNormal})
	if err != nil {
		t.Fatal(err)
	}
	if got := env.source.resolveCount("lithium"); got != 3 {
		t.Errorf("retryable failure resolved %d times, want MaxAttempts (3)", got)
	}
	if totals := report.Totals(); totals.Failed != 1 {
		t.Errorf("totals = %+v, want 1 failed", totals)
	}
}

func TestRunNoRetryOnPermanentError(t *testing.T) {
	env := newTestEnv(t)
	p := setupProfile(t, env)
	env.source.failWith["lithium"] = domain.ErrNotFound

	if _, err := env.orch.Run(context.Background(), p, testTarget, Options{Mode: ModeNormal}); err != nil {
		t.Fatal(err)
	}
	if got := env.source.resolveCount("lithium"); got != 1 {
		t.Errorf("permanent failure resolved %d times, want 1", got)
	}
}

func TestRunFetchesDependenciesOnce(t *testing.T) {
	env := newTestEnv(t)
	env.source.add("dep", "dep-api-1.0.jar", []byte("dep bytes"))
	env.source.add("modone", "modone-1.0.jar", []byte("one"), "dep")
	env.source.add("modtwo", "modtwo-1.0.jar", []byte("two"), "dep")

	p, _ := profile.Parse("test", "[shared] modone-1.0.jar\n[shared] modtwo-1.0.jar\n")
	report, err := env.orch.Run(context.Background(), p, testTarget, Options{Mode: ModeNormal})
	if err != nil {
		t.Fatal(err)
	}
	if totals := report.Totals(); totals.Succeeded != 2 {
		t.Fatalf("totals = %+v", totals)
	}
	if !exists(t, filepath.Join(env.serverDir, "dep-api-1.0.jar")) {
		t.Error("required dependency not materialized")
	}
	if got := env.source.resolveCount("dep"); got != 1 {
		t.Errorf("dependency resolved %d times, want 1", got)
	}
}

func TestRunNormalizesSpacedFilenames(t *testing.T) {
	env := newTestEnv(t)
	env.source.add("biomespreader", "BiomeSpreader-1.5.0 mc1.21.5.jar", []byte("spreader"))

	p, _ := profile.Parse("test", "[server] BiomeSpreader-1.5.0-mc1.21.5.jar  # id=biomespreader\n")
	report, err := env.orch.Run(context.Background(), p, testTarget, Options{Mode: ModeNormal})
	if err != nil {
		t.Fatal(err)
	}
	if totals := report.Totals(); totals.Succeeded != 1 {
		t.Fatalf("totals = %+v, report: %+v", totals, report.Failed())
	}
	if !exists(t, filepath.Join(env.serverDir, "BiomeSpreader-1.5.0-mc1.21.5.jar")) {
		t.Error("normalized filename variant not materialized")
	}
}

func TestRunIncompleteTarget(t *testing.T) {
	env := newTestEnv(t)
	p := setupProfile(t, env)

	if _, err := env.orch.Run(context.Background(), p, domain.Target{Loader: "fabric"}, Options{Mode: ModeNormal}); err == nil {
		t.Error("incomplete target must be rejected")
	}
}

func TestRunCancellation(t *testing.T) {
	env := newTestEnv(t)
	p := setupProfile(t, env)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := env.orch.Run(ctx, p, testTarget, Options{Mode: ModeNormal})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
