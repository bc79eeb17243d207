package modrinth

import (
	"time"

	"github.com/modfetch/modfetch/internal/domain"
)

// mapProjects converts search hits to domain projects
func mapProjects(hits []searchHit) []domain.Project {
	projects := make([]domain.Project, 0, len(hits))
	for _, h := range hits {
		p := domain.Project{
			Source:      sourceName,
			ID:          h.ProjectID,
			Slug:        h.Slug,
			Title:       h.Title,
			Description: h.Description,
			Downloads:   h.Downloads,
		}
		if ts, err := time.Parse(time.RFC3339, h.DateModified); err == nil {
			p.UpdatedAt = ts
		}
		projects = append(projects, p)
	}
	return projects
}

// mapVersions converts version DTOs to domain versions. Versions without any
// file are dropped; there is nothing to download.
func mapVersions(dtos []versionDTO) []*domain.Version {
	versions := make([]*domain.Version, 0, len(dtos))
	for _, d := range dtos {
		f, ok := primaryFile(d.Files)
		if !ok {
			continue
		}

		v := &domain.Version{
			Source:       sourceName,
			ProjectID:    d.ProjectID,
			VersionID:    d.ID,
			Name:         d.Name,
			Filename:     f.Filename,
			URL:          f.URL,
			Checksum:     mapChecksum(f.Hashes),
			GameVersions: d.GameVersions,
			Loaders:      d.Loaders,
		}
		if ts, err := time.Parse(time.RFC3339, d.DatePublished); err == nil {
			v.PublishedAt = ts
		}
		for _, dep := range d.Dependencies {
			if dep.DependencyType == "required" && dep.ProjectID != "" {
				v.Dependencies = append(v.Dependencies, dep.ProjectID)
			}
		}
		versions = append(versions, v)
	}
	return versions
}

// primaryFile picks the file flagged primary, falling back to the first.
func primaryFile(files []fileDTO) (fileDTO, bool) {
	if len(files) == 0 {
		return fileDTO{}, false
	}
	for _, f := range files {
		if f.Primary {
			return f, true
		}
	}
	return files[0], true
}

// mapChecksum prefers sha512 over sha1, matching what the API declares.
func mapChecksum(hashes map[string]string) domain.Checksum {
	if v, ok := hashes["sha512"]; ok && v != "" {
		return domain.Checksum{Algo: "sha512", Value: v}
	}
	if v, ok := hashes["sha1"]; ok && v != "" {
		return domain.Checksum{Algo: "sha1", Value: v}
	}
	return domain.Checksum{}
}
