package domain

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// Category marks which deployment target a mod belongs to.
type Category string

const (
	CategoryServer Category = "server"
	CategoryClient Category = "client"
	CategoryShared Category = "shared"
)

// String returns the string representation of Category.
func (c Category) String() string {
	return string(c)
}

// Valid reports whether the category is one of the three known values.
// Matching is case-sensitive: "[Server]" is a parse error, not a category.
func (c Category) Valid() bool {
	return c == CategoryServer || c == CategoryClient || c == CategoryShared
}

// OnServer reports whether artifacts of this category are installed server-side.
func (c Category) OnServer() bool {
	return c == CategoryServer || c == CategoryShared
}

// OnClient reports whether artifacts of this category ship in the client pack.
func (c Category) OnClient() bool {
	return c == CategoryClient || c == CategoryShared
}

// ModEntry is one parsed profile line: a category tag, the expected artifact
// filename, and an optional registry project ID. Entries keep their original
// line order for deterministic reporting; order carries no dependency meaning.
type ModEntry struct {
	Category   Category
	Filename   string
	RegistryID string // optional explicit project ID or slug
	Comment    string // free-text trailing comment, if any
	Line       int    // 1-based line number in the profile
}

// Slug derives a registry search slug from the entry. The explicit RegistryID
// wins; otherwise the leading filename segment is used, the way artifact names
// like "lithium-fabric-0.16.2+mc1.21.5.jar" embed the project slug up front.
func (e ModEntry) Slug() string {
	if e.RegistryID != "" {
		return e.RegistryID
	}
	name := strings.TrimSuffix(e.Filename, ".jar")
	if i := strings.IndexAny(name, "-_ "); i > 0 {
		name = name[:i]
	}
	return strings.ToLower(name)
}

// Target is the immutable (game version, loader, loader version) triple that
// all resolution is filtered by. It is supplied once per invocation.
type Target struct {
	GameVersion   string
	Loader        string
	LoaderVersion string
}

// Complete reports whether the target is specified enough to resolve against a
// registry. The loader version is informational (used in pack metadata) and is
// not required for resolution.
func (t Target) Complete() bool {
	return t.GameVersion != "" && t.Loader != ""
}

// Key returns the canonical store-key form of the target. Cache and progress
// records are scoped by this key so switching game version or loader never
// reuses state from another target.
func (t Target) Key() string {
	return t.GameVersion + "/" + t.Loader
}

func (t Target) String() string {
	if t.LoaderVersion == "" {
		return fmt.Sprintf("%s (%s)", t.GameVersion, t.Loader)
	}
	return fmt.Sprintf("%s (%s %s)", t.GameVersion, t.Loader, t.LoaderVersion)
}

// Project is a search hit: a registry project that may have versions
// compatible with a target.
type Project struct {
	Source      string // registry the project came from ("modrinth", "curseforge")
	ID          string
	Slug        string
	Title       string
	Description string
	Downloads   int64
	UpdatedAt   time.Time
}

// Version is a concrete downloadable artifact for a project, as declared by
// the registry.
type Version struct {
	Source       string
	ProjectID    string
	VersionID    string
	Name         string
	Filename     string
	URL          string
	Checksum     Checksum
	GameVersions []string
	Loaders      []string
	PublishedAt  time.Time

	// Dependencies lists registry-declared required dependency project IDs.
	// Resolution follows these one level; no transitive graph is built.
	Dependencies []string
}

// Compatible reports whether the version's declared compatibility sets
// intersect the target.
func (v *Version) Compatible(t Target) bool {
	return contains(v.GameVersions, t.GameVersion) && contains(v.Loaders, t.Loader)
}

func contains(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

// SelectVersion picks the newest published version compatible with the target.
// Returns nil when none match; the caller maps that to ErrNoVersion.
func SelectVersion(versions []*Version, t Target) *Version {
	var best *Version
	for _, v := range versions {
		if !v.Compatible(t) {
			continue
		}
		if best == nil || v.PublishedAt.After(best.PublishedAt) {
			best = v
		}
	}
	return best
}

// Checksum is a registry-declared content hash. Registries disagree on
// algorithms (Modrinth declares sha512 and sha1, CurseForge sha1 and md5),
// so the algorithm travels with the value.
type Checksum struct {
	Algo  string // "sha512", "sha1" or "md5"
	Value string // lowercase hex
}

// Zero reports whether no checksum was declared.
func (c Checksum) Zero() bool {
	return c.Value == ""
}

// Verify checks data against the checksum. A zero checksum verifies nothing
// and fails: artifacts without a declared hash must not be trusted.
func (c Checksum) Verify(data []byte) error {
	if c.Zero() {
		return fmt.Errorf("%w: no checksum declared", ErrIntegrity)
	}
	var sum string
	switch c.Algo {
	case "sha512":
		h := sha512.Sum512(data)
		sum = hex.EncodeToString(h[:])
	case "sha1":
		h := sha1.Sum(data)
		sum = hex.EncodeToString(h[:])
	case "md5":
		h := md5.Sum(data)
		sum = hex.EncodeToString(h[:])
	default:
		return fmt.Errorf("%w: unsupported checksum algorithm %q", ErrIntegrity, c.Algo)
	}
	if !strings.EqualFold(sum, c.Value) {
		return fmt.Errorf("%w: %s mismatch (want %s, got %s)", ErrIntegrity, c.Algo, c.Value, sum)
	}
	return nil
}
