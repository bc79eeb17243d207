package modrinth

// searchResponse is the envelope for GET /search
type searchResponse struct {
	Hits      []searchHit `json:"hits"`
	Offset    int         `json:"offset"`
	Limit     int         `json:"limit"`
	TotalHits int         `json:"total_hits"`
}

// searchHit is one project in search results
type searchHit struct {
	ProjectID    string   `json:"project_id"`
	Slug         string   `json:"slug"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Downloads    int64    `json:"downloads"`
	Versions     []string `json:"versions,omitempty"`
	DateModified string   `json:"date_modified,omitempty"`
}

// versionDTO is one element of GET /project/{id}/version
type versionDTO struct {
	ID            string          `json:"id"`
	ProjectID     string          `json:"project_id"`
	Name          string          `json:"name"`
	VersionNumber string          `json:"version_number"`
	GameVersions  []string        `json:"game_versions"`
	Loaders       []string        `json:"loaders"`
	DatePublished string          `json:"date_published"`
	Files         []fileDTO       `json:"files"`
	Dependencies  []dependencyDTO `json:"dependencies,omitempty"`
}

// fileDTO is a downloadable file within a version
type fileDTO struct {
	URL      string            `json:"url"`
	Filename string            `json:"filename"`
	Primary  bool              `json:"primary"`
	Size     int64             `json:"size,omitempty"`
	Hashes   map[string]string `json:"hashes"` // keys: "sha512", "sha1"
}

// dependencyDTO is a declared relationship to another project
type dependencyDTO struct {
	ProjectID      string `json:"project_id"`
	VersionID      string `json:"version_id,omitempty"`
	DependencyType string `json:"dependency_type"` // "required", "optional", ...
}
