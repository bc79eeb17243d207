package fetch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// NormalizeFilename replaces spaces with dashes. Some registry artifacts
// declare filenames with embedded spaces (e.g. "BiomeSpreader-1.5.0 mc1.21.5.jar")
// while the loader expects the dashed form; materialization tolerates either
// spelling rather than treating the rename as a resolution failure.
func NormalizeFilename(name string) string {
	return strings.ReplaceAll(name, " ", "-")
}

// satisfies reports whether an artifact named got fulfills an entry that
// expects want, accepting the space-normalized variant in either direction.
func satisfies(want, got string) bool {
	return want == got || NormalizeFilename(want) == NormalizeFilename(got)
}

// materialize copies a cached artifact into each target directory. When the
// declared filename contains a space, a normalized copy is written alongside
// so both spellings resolve.
func materialize(srcPath, filename string, dirs []string) error {
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return fmt.Errorf("failed to read cached artifact: %w", err)
	}

	names := []string{filename}
	if normalized := NormalizeFilename(filename); normalized != filename {
		names = append(names, normalized)
	}

	for _, dir := range dirs {
		for _, name := range names {
			dst := filepath.Join(dir, name)
			if err := os.WriteFile(dst, data, 0644); err != nil {
				return fmt.Errorf("failed to materialize %s: %w", name, err)
			}
		}
	}
	return nil
}
