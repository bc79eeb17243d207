// Package pack assembles the distributable client archive from materialized
// artifacts. Assembly is all-or-nothing: a missing client or shared artifact
// aborts the build rather than shipping a silently partial pack.
package pack

import (
	"archive/zip"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/modfetch/modfetch/internal/domain"
	"github.com/modfetch/modfetch/internal/fetch"
	"github.com/modfetch/modfetch/internal/profile"
)

// Manifest is the pack metadata written as manifest.yaml at the archive root.
// Profile section comments are carried verbatim so the generated manifest
// reads like the profile it came from.
type Manifest struct {
	Name          string    `yaml:"name"`
	GameVersion   string    `yaml:"game_version"`
	Loader        string    `yaml:"loader"`
	LoaderVersion string    `yaml:"loader_version,omitempty"`
	CreatedAt     time.Time `yaml:"created_at"`
	Mods          []ModInfo `yaml:"mods"`
	Sections      []Section `yaml:"sections,omitempty"`
}

// ModInfo is one packed mod in the manifest, in profile order.
type ModInfo struct {
	Filename string `yaml:"filename"`
	Category string `yaml:"category"`
}

// Section mirrors a profile comment block and the packed files under it.
type Section struct {
	Comments []string `yaml:"comments,omitempty"`
	Files    []string `yaml:"files"`
}

// Assembler builds client pack archives from a materialized client directory.
type Assembler struct {
	clientDir string
	now       func() time.Time
	logger    *slog.Logger
}

// Option customizes an Assembler.
type Option func(*Assembler)

// WithTimestamp fixes the manifest and archive timestamps, making the output
// bytes reproducible. Tests and repeatable builds use this.
func WithTimestamp(t time.Time) Option {
	return func(a *Assembler) {
		a.now = func() time.Time { return t }
	}
}

// New creates an Assembler reading artifacts from clientDir.
func New(clientDir string, logger *slog.Logger, opts ...Option) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Assembler{
		clientDir: clientDir,
		now:       time.Now,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assemble writes the client pack archive for the profile to outPath. The
// pack contains every client and shared entry under mods/, a manifest.yaml,
// and a README.txt. Entries appear in profile order so identical inputs
// produce identical archives.
func (a *Assembler) Assemble(prof *profile.Profile, target domain.Target, outPath string) (*Manifest, error) {
	entries := prof.Filter(map[domain.Category]bool{
		domain.CategoryClient: true,
		domain.CategoryShared: true,
	})

	type packed struct {
		entry domain.ModEntry
		path  string
		name  string
	}
	var missing []string
	var files []packed
	for _, e := range entries {
		path, name, err := a.locate(e.Filename)
		if err != nil {
			missing = append(missing, e.Filename)
			continue
		}
		files = append(files, packed{entry: e, path: path, name: name})
	}
	if len(missing) > 0 {
		return nil, &domain.IncompletePackError{Missing: missing}
	}

	now := a.now().UTC()
	manifest := &Manifest{
		Name:          prof.ID,
		GameVersion:   target.GameVersion,
		Loader:        target.Loader,
		LoaderVersion: target.LoaderVersion,
		CreatedAt:     now,
	}
	packedName := make(map[string]string, len(files))
	for _, f := range files {
		manifest.Mods = append(manifest.Mods, ModInfo{
			Filename: f.name,
			Category: f.entry.Category.String(),
		})
		packedName[f.entry.Filename] = f.name
	}
	for _, sec := range prof.Sections {
		out := Section{Comments: sec.Comments}
		for _, e := range sec.Entries {
			if name, ok := packedName[e.Filename]; ok {
				out.Files = append(out.Files, name)
			}
		}
		if len(out.Files) > 0 {
			manifest.Sections = append(manifest.Sections, out)
		}
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	out, err := os.Create(outPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create pack archive: %w", err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)

	manifestBytes, err := yaml.Marshal(manifest)
	if err != nil {
		return nil, fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := a.addFile(zw, "manifest.yaml", manifestBytes, now); err != nil {
		return nil, err
	}
	if err := a.addFile(zw, "README.txt", readme(manifest), now); err != nil {
		return nil, err
	}

	for _, f := range files {
		data, err := os.ReadFile(f.path)
		if err != nil {
			return nil, fmt.Errorf("failed to read artifact %s: %w", f.name, err)
		}
		if err := a.addFile(zw, "mods/"+f.name, data, now); err != nil {
			return nil, err
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize pack archive: %w", err)
	}
	if err := out.Sync(); err != nil {
		return nil, fmt.Errorf("failed to sync pack archive: %w", err)
	}

	a.logger.Info("pack assembled", "path", outPath, "mods", len(files))
	return manifest, nil
}

// locate finds the materialized artifact for a profile filename. Names are
// compared space-normalized in both directions, so a registry artifact with
// embedded spaces still satisfies the dashed profile spelling. The packed
// name is always the normalized one.
func (a *Assembler) locate(filename string) (path, name string, err error) {
	direct := filepath.Join(a.clientDir, filename)
	if info, statErr := os.Stat(direct); statErr == nil && !info.IsDir() {
		return direct, fetch.NormalizeFilename(filename), nil
	}

	want := fetch.NormalizeFilename(filename)
	entries, readErr := os.ReadDir(a.clientDir)
	if readErr != nil {
		return "", "", fmt.Errorf("failed to read client directory: %w", readErr)
	}
	for _, e := range entries {
		if !e.IsDir() && fetch.NormalizeFilename(e.Name()) == want {
			return filepath.Join(a.clientDir, e.Name()), want, nil
		}
	}
	return "", "", fmt.Errorf("artifact not materialized: %s", filename)
}

// addFile writes one archive member with a fixed timestamp and mode, keeping
// the output byte-for-byte deterministic.
func (a *Assembler) addFile(zw *zip.Writer, name string, data []byte, ts time.Time) error {
	hdr := &zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: ts,
	}
	hdr.SetMode(0644)
	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("failed to add %s to archive: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write %s to archive: %w", name, err)
	}
	return nil
}

func readme(m *Manifest) []byte {
	var b []byte
	b = fmt.Appendf(b, "%s client pack\n", m.Name)
	b = fmt.Appendf(b, "Minecraft %s, %s", m.GameVersion, m.Loader)
	if m.LoaderVersion != "" {
		b = fmt.Appendf(b, " %s", m.LoaderVersion)
	}
	b = fmt.Appendf(b, "\n\nCopy the contents of mods/ into your instance's mods folder.\n")
	b = fmt.Appendf(b, "\nIncluded mods (%d):\n", len(m.Mods))
	for _, mod := range m.Mods {
		b = fmt.Appendf(b, "  %s\n", mod.Filename)
	}
	return b
}
