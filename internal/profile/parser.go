// Package profile parses declarative mod-list profiles.
//
// A profile is UTF-8, line-oriented text. Each mod line has the shape
//
//	[category] filename  # optional comment
//
// where category is exactly one of server, client or shared. Lines starting
// with '#' are section comments: they carry no parsing semantics but are
// preserved so the generated pack manifest can reproduce them.
package profile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/modfetch/modfetch/internal/domain"
)

// Profile is a parsed mod list.
type Profile struct {
	ID       string // profile identity, derived from the file name
	Path     string
	Entries  []domain.ModEntry // profile order preserved
	Sections []Section
}

// Section groups the entries that follow a block of comment lines. The
// comment text is carried verbatim into the pack manifest.
type Section struct {
	Comments []string
	Entries  []domain.ModEntry
}

// ParseWarning reports a line that could not be used. Warnings never abort
// the parse; a single malformed line must not block a 100-entry profile.
type ParseWarning struct {
	Line   int
	Text   string
	Reason string
}

func (w ParseWarning) String() string {
	return fmt.Sprintf("line %d: %s (%s)", w.Line, w.Reason, w.Text)
}

// ParseFile reads and parses a profile from disk. The returned error covers
// I/O only; malformed content surfaces as warnings.
func ParseFile(path string) (*Profile, []ParseWarning, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open profile: %w", err)
	}
	defer f.Close()

	id := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	p, warns := parse(id, f)
	p.Path = path
	return p, warns, nil
}

// Parse parses profile text under the given profile ID.
func Parse(id, text string) (*Profile, []ParseWarning) {
	return parse(id, strings.NewReader(text))
}

func parse(id string, r io.Reader) (*Profile, []ParseWarning) {
	p := &Profile{ID: id}
	var warns []ParseWarning
	seen := make(map[string]int) // filename -> first line

	var pendingComments []string
	section := -1 // index into p.Sections for the current group

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := scanner.Text()
		line := strings.TrimSpace(raw)

		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "#") {
			// A comment after entries opens the next section block.
			section = -1
			pendingComments = append(pendingComments, line)
			continue
		}

		entry, reason := parseEntry(line, lineNo)
		if reason != "" {
			warns = append(warns, ParseWarning{Line: lineNo, Text: raw, Reason: reason})
			continue
		}

		if first, dup := seen[entry.Filename]; dup {
			warns = append(warns, ParseWarning{
				Line:   lineNo,
				Text:   raw,
				Reason: fmt.Sprintf("duplicate filename, first seen on line %d", first),
			})
			continue
		}
		seen[entry.Filename] = lineNo

		if section < 0 {
			p.Sections = append(p.Sections, Section{Comments: pendingComments})
			pendingComments = nil
			section = len(p.Sections) - 1
		}
		p.Sections[section].Entries = append(p.Sections[section].Entries, entry)
		p.Entries = append(p.Entries, entry)
	}

	return p, warns
}

// parseEntry parses one non-comment line. It returns a non-empty reason when
// the line does not match the grammar.
func parseEntry(line string, lineNo int) (domain.ModEntry, string) {
	if !strings.HasPrefix(line, "[") {
		return domain.ModEntry{}, "missing [category] tag"
	}
	end := strings.Index(line, "]")
	if end < 0 {
		return domain.ModEntry{}, "unterminated [category] tag"
	}

	cat := domain.Category(line[1:end])
	if !cat.Valid() {
		return domain.ModEntry{}, fmt.Sprintf("unknown category %q", string(cat))
	}

	rest := strings.TrimSpace(line[end+1:])
	if rest == "" {
		return domain.ModEntry{}, "missing filename"
	}

	var comment string
	if i := strings.Index(rest, "#"); i >= 0 {
		comment = strings.TrimSpace(rest[i+1:])
		rest = strings.TrimSpace(rest[:i])
	}
	if rest == "" {
		return domain.ModEntry{}, "missing filename"
	}

	entry := domain.ModEntry{
		Category: cat,
		Filename: rest,
		Comment:  comment,
		Line:     lineNo,
	}

	// An "id=" comment pins the entry to an explicit registry project.
	if strings.HasPrefix(comment, "id=") {
		entry.RegistryID = strings.TrimSpace(strings.TrimPrefix(comment, "id="))
	}

	return entry, ""
}

// Filter returns the entries whose category is in the given set. A nil set
// means all entries.
func (p *Profile) Filter(categories map[domain.Category]bool) []domain.ModEntry {
	if categories == nil {
		return p.Entries
	}
	var out []domain.ModEntry
	for _, e := range p.Entries {
		if categories[e.Category] {
			out = append(out, e)
		}
	}
	return out
}

// ByFilename returns the entry for a filename, if present.
func (p *Profile) ByFilename(name string) (domain.ModEntry, bool) {
	for _, e := range p.Entries {
		if e.Filename == name {
			return e, true
		}
	}
	return domain.ModEntry{}, false
}
