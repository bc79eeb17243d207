package curseforge

// Minecraft constants for the CurseForge API
const (
	minecraftGameID = 432
	modsClassID     = 6
)

// hash algorithm IDs used by the files API
const (
	hashAlgoSHA1 = 1
	hashAlgoMD5  = 2
)

// relationType 3 marks a required dependency
const relationRequired = 3

// modLoaderIDs maps loader names to CurseForge modLoaderType values
var modLoaderIDs = map[string]int{
	"forge":      1,
	"cauldron":   2,
	"liteloader": 3,
	"fabric":     4,
	"quilt":      5,
}

// searchResponse is the envelope for GET /v1/mods/search
type searchResponse struct {
	Data []modDTO `json:"data"`
}

// modDTO is one project in search results
type modDTO struct {
	ID            int64       `json:"id"`
	Slug          string      `json:"slug"`
	Name          string      `json:"name"`
	Summary       string      `json:"summary"`
	DownloadCount int64       `json:"downloadCount"`
	DateModified  string      `json:"dateModified"`
	Authors       []authorDTO `json:"authors,omitempty"`
}

type authorDTO struct {
	Name string `json:"name"`
}

// filesResponse is the envelope for GET /v1/mods/{id}/files
type filesResponse struct {
	Data []fileDTO `json:"data"`
}

// fileDTO is one downloadable file
type fileDTO struct {
	ID           int64           `json:"id"`
	ModID        int64           `json:"modId"`
	DisplayName  string          `json:"displayName"`
	FileName     string          `json:"fileName"`
	FileDate     string          `json:"fileDate"`
	DownloadURL  string          `json:"downloadUrl"`
	GameVersions []string        `json:"gameVersions"` // mixes versions ("1.21.5") and loaders ("Fabric")
	Hashes       []hashDTO       `json:"hashes,omitempty"`
	Dependencies []dependencyDTO `json:"dependencies,omitempty"`
}

type hashDTO struct {
	Value string `json:"value"`
	Algo  int    `json:"algo"`
}

type dependencyDTO struct {
	ModID        int64 `json:"modId"`
	RelationType int   `json:"relationType"`
}
