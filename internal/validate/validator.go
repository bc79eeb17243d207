// Package validate cross-checks materialized directories against a profile's
// category tags and a known-incompatibility list. Validation is a pure
// function of its inputs: no filesystem or network, so it unit-tests directly
// against listings.
package validate

import (
	"fmt"
	"strings"

	"github.com/modfetch/modfetch/internal/domain"
	"github.com/modfetch/modfetch/internal/profile"
)

// Mismatch is a mod present in a directory its category forbids.
type Mismatch struct {
	Filename string
	Category domain.Category
	Listing  string // "server" or "client"
}

func (m Mismatch) String() string {
	return fmt.Sprintf("%s-only mod found in %s: %s", m.Category, m.Listing, m.Filename)
}

// Flag is a mod matching a known-incompatible pattern.
type Flag struct {
	Filename string
	Pattern  string
	Listing  string
}

func (f Flag) String() string {
	return fmt.Sprintf("known-incompatible mod in %s: %s (matches %q)", f.Listing, f.Filename, f.Pattern)
}

// Report holds all validation findings. Checks are independent: every
// finding is collected, nothing short-circuits.
type Report struct {
	Mismatches   []Mismatch
	Flagged      []Flag
	Unclassified []string // files in a listing but not in the profile (warning only)
}

// OK reports whether the listings pass. Unclassified files are warnings and
// do not fail validation.
func (r *Report) OK() bool {
	return len(r.Mismatches) == 0 && len(r.Flagged) == 0
}

// Validate checks the server and client directory listings against the
// profile's categories and the incompatibility patterns.
func Validate(prof *profile.Profile, serverListing, clientListing []string, incompatiblePatterns []string) *Report {
	report := &Report{}

	inServer := listingSet(serverListing)
	inClient := listingSet(clientListing)

	for _, e := range prof.Entries {
		switch e.Category {
		case domain.CategoryServer:
			if inClient[normalKey(e.Filename)] {
				report.Mismatches = append(report.Mismatches, Mismatch{
					Filename: e.Filename, Category: e.Category, Listing: "client",
				})
			}
		case domain.CategoryClient:
			if inServer[normalKey(e.Filename)] {
				report.Mismatches = append(report.Mismatches, Mismatch{
					Filename: e.Filename, Category: e.Category, Listing: "server",
				})
			}
		}
	}

	for _, l := range []struct {
		name  string
		files []string
	}{{"server", serverListing}, {"client", clientListing}} {
		for _, f := range l.files {
			for _, pattern := range incompatiblePatterns {
				if strings.Contains(f, pattern) {
					report.Flagged = append(report.Flagged, Flag{
						Filename: f, Pattern: pattern, Listing: l.name,
					})
					break
				}
			}
		}
	}

	known := make(map[string]bool, len(prof.Entries))
	for _, e := range prof.Entries {
		known[normalKey(e.Filename)] = true
	}
	seen := make(map[string]bool)
	for _, f := range append(append([]string{}, serverListing...), clientListing...) {
		if known[normalKey(f)] || seen[f] {
			continue
		}
		seen[f] = true
		report.Unclassified = append(report.Unclassified, f)
	}

	return report
}

// listingSet indexes a directory listing by normalized filename, so the
// space/dash filename tolerance does not produce phantom mismatches.
func listingSet(files []string) map[string]bool {
	set := make(map[string]bool, len(files))
	for _, f := range files {
		set[normalKey(f)] = true
	}
	return set
}

func normalKey(name string) string {
	return strings.ReplaceAll(name, " ", "-")
}
