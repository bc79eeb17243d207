// Package modrinth implements the registry.Source contract against the
// Modrinth v2 API.
package modrinth

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
	sourceName = "modrinth"
	userAgent  = "modfetch/1.0"
)

// Client talks to the Modrinth v2 API. It holds no local state beyond the
// HTTP client; all storage concerns live elsewhere.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new Modrinth API client. The token is optional;
// anonymous requests work at a lower rate limit.
func NewClient(baseURL, token string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
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

// doRequest performs an authenticated GET and maps HTTP failures onto the
// domain error taxonomy.
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
	if c.token != "" {
		req.Header.Set("Authorization", c.token)
	}

	c.logger.Debug("modrinth request", "op", op, "url", reqURL)

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
		c.logger.Error("modrinth request error", "op", op, "status", resp.StatusCode)
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
}

// Search queries /search with version and loader facets.
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

	facets, err := json.Marshal([][]string{
		{"versions:" + target.GameVersion},
		{"categories:" + target.Loader},
	})
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("query", term)
	query.Set("limit", strconv.Itoa(limit))
	query.Set("index", "relevance")
	query.Set("facets", string(facets))

	body, err := c.doRequest(ctx, "search", "/search", query)
	if err != nil {
		return nil, err
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}

	return mapProjects(resp.Hits), nil
}

// Resolve lists the project's versions and selects the newest compatible one.
// Resolution is deterministic for an unchanged registry state.
func (c *Client) Resolve(ctx context.Context, idOrSlug string, target domain.Target) (*domain.Version, error) {
	if idOrSlug == "" {
		return nil, fmt.Errorf("project id or slug is required")
	}
	if !target.Complete() {
		return nil, fmt.Errorf("platform target must specify game version and loader")
	}

	body, err := c.doRequest(ctx, "resolve", "/project/"+url.PathEscape(idOrSlug)+"/version", nil)
	if err != nil {
		return nil, err
	}

	var dtos []versionDTO
	if err := json.Unmarshal(body, &dtos); err != nil {
		return nil, fmt.Errorf("failed to parse versions response: %w", err)
	}

	v := domain.SelectVersion(mapVersions(dtos), target)
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
	req.Header.Set("User-Agent", userAgent)

	c.logger.Debug("modrinth download", "file", v.Filename, "url", v.URL)

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
		c.logger.Error("modrinth download corrupt", "file", v.Filename, "error", err)
		return nil, err
	}

	return data, nil
}
