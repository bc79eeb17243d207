// Package curseforge implements the registry.Source contract against the
// CurseForge v1 API.
package curseforge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/modfetch/modfetch/internal/domain"
)

const (
	sourceName = "curseforge"
	userAgent  = "modfetch/1.0"
)

// Client talks to the CurseForge v1 API. All endpoints require an API key.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new CurseForge API client
func NewClient(baseURL, apiKey string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Name identifies this backend.
func (c *Client) Name() string {
	return sourceName
}

func (c *Client) doRequest(ctx context.Context, op, path string, query url.Values) ([]byte, error) {
	reqURL := c.baseURL + path
	if query != nil {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("x-api-key", c.apiKey)

	c.logger.Debug("curseforge request", "op", op, "url", reqURL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &domain.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.TransportError{Op: op, Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, domain.ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, domain.ErrRateLimited
	case resp.StatusCode >= 500:
		return nil, &domain.TransportError{Op: op, Err: fmt.Errorf("status %d", resp.StatusCode)}
	default:
		c.logger.Error("curseforge request error", "op", op, "status", resp.StatusCode)
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
}

// Search queries /v1/mods/search scoped to Minecraft mods.
func (c *Client) Search(ctx context.Context, term string, target domain.Target, limit int) ([]domain.Project, error) {
	if term == "" {
		return nil, fmt.Errorf("search term is required")
	}
	if !target.Complete() {
		return nil, fmt.Errorf("platform target must specify game version and loader")
	}
	if limit <= 0 {
		limit = 10
	}

	query := url.Values{}
	query.Set("gameId", strconv.Itoa(minecraftGameID))
	query.Set("classId", strconv.Itoa(modsClassID))
	query.Set("searchFilter", term)
	query.Set("pageSize", strconv.Itoa(limit))
	query.Set("sortField", "2") // popularity
	query.Set("sortOrder", "desc")
	query.Set("gameVersion", target.GameVersion)
	if id, ok := modLoaderIDs[target.Loader]; ok {
		query.Set("modLoaderType", strconv.Itoa(id))
	}

	body, err := c.doRequest(ctx, "search", "/v1/mods/search", query)
	if err != nil {
		return nil, err
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}

	return mapProjects(resp.Data), nil
}

// Resolve lists the mod's files and selects the newest compatible one.
func (c *Client) Resolve(ctx context.Context, idOrSlug string, target domain.Target) (*domain.Version, error) {
	if idOrSlug == "" {
		return nil, fmt.Errorf("project id is required")
	}
	if !target.Complete() {
		return nil, fmt.Errorf("platform target must specify game version and loader")
	}

	query := url.Values{}
	query.Set("gameVersion", target.GameVersion)
	if id, ok := modLoaderIDs[target.Loader]; ok {
		query.Set("modLoaderType", strconv.Itoa(id))
	}

	body, err := c.doRequest(ctx, "resolve", "/v1/mods/"+url.PathEscape(idOrSlug)+"/files", query)
	if err != nil {
		return nil, err
	}

	var resp filesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse files response: %w", err)
	}

	v := domain.SelectVersion(mapFiles(idOrSlug, resp.Data), target)
	if v == nil {
		return nil, fmt.Errorf("%w for %s on %s", domain.ErrNoVersion, idOrSlug, target)
	}
	return v, nil
}

// Download fetches the artifact bytes and verifies the declared checksum.
func (c *Client) Download(ctx context.Context, v *domain.Version) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/octet-stream")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("x-api-key", c.apiKey)

	c.logger.Debug("curseforge download", "file", v.Filename, "url", v.URL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &domain.TransportError{Op: "download", Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, domain.ErrRateLimited
	case resp.StatusCode == http.StatusNotFound:
		return nil, domain.ErrNotFound
	default:
		return nil, &domain.TransportError{Op: "download", Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.TransportError{Op: "download", Err: err}
	}

	if err := v.Checksum.Verify(data); err != nil {
		c.logger.Error("curseforge download corrupt", "file", v.Filename, "error", err)
		return nil, err
	}

	return data, nil
}
