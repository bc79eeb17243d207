package curseforge

import (
	"strconv"
	"strings"
	"time"

	"github.com/modfetch/modfetch/internal/domain"
)

// mapProjects converts mod DTOs to domain projects
func mapProjects(mods []modDTO) []domain.Project {
	projects := make([]domain.Project, 0, len(mods))
	for _, m := range mods {
		p := domain.Project{
			Source:      sourceName,
			ID:          strconv.FormatInt(m.ID, 10),
			Slug:        m.Slug,
			Title:       m.Name,
			Description: m.Summary,
			Downloads:   m.DownloadCount,
		}
		if ts, err := time.Parse(time.RFC3339, m.DateModified); err == nil {
			p.UpdatedAt = ts
		}
		projects = append(projects, p)
	}
	return projects
}

// mapFiles converts file DTOs to domain versions. Files without a download
// URL are dropped (CurseForge omits it when the author opted out of API
// distribution).
func mapFiles(modID string, files []fileDTO) []*domain.Version {
	versions := make([]*domain.Version, 0, len(files))
	for _, f := range files {
		if f.DownloadURL == "" {
			continue
		}

		games, loaders := splitGameVersions(f.GameVersions)
		v := &domain.Version{
			Source:       sourceName,
			ProjectID:    modID,
			VersionID:    strconv.FormatInt(f.ID, 10),
			Name:         f.DisplayName,
			Filename:     f.FileName,
			URL:          f.DownloadURL,
			Checksum:     mapChecksum(f.Hashes),
			GameVersions: games,
			Loaders:      loaders,
		}
		if ts, err := time.Parse(time.RFC3339, f.FileDate); err == nil {
			v.PublishedAt = ts
		}
		for _, dep := range f.Dependencies {
			if dep.RelationType == relationRequired && dep.ModID != 0 {
				v.Dependencies = append(v.Dependencies, strconv.FormatInt(dep.ModID, 10))
			}
		}
		versions = append(versions, v)
	}
	return versions
}

// splitGameVersions separates the API's mixed gameVersions list into game
// versions and lowercase loader names.
func splitGameVersions(mixed []string) (games, loaders []string) {
	for _, s := range mixed {
		if _, ok := modLoaderIDs[strings.ToLower(s)]; ok {
			loaders = append(loaders, strings.ToLower(s))
		} else {
			games = append(games, s)
		}
	}
	return games, loaders
}

// mapChecksum prefers sha1 over md5, matching what the API declares.
func mapChecksum(hashes []hashDTO) domain.Checksum {
	var md5sum string
	for _, h := range hashes {
		switch h.Algo {
		case hashAlgoSHA1:
			if h.Value != "" {
				return domain.Checksum{Algo: "sha1", Value: h.Value}
			}
		case hashAlgoMD5:
			md5sum = h.Value
		}
	}
	if md5sum != "" {
		return domain.Checksum{Algo: "md5", Value: md5sum}
	}
	return domain.Checksum{}
}
