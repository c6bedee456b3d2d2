package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"starmark/pkg/cache"
	"starmark/pkg/errors"
	"starmark/pkg/observability"
)

const (
	defaultBaseURL = "https://api.github.com"
	httpTimeout    = 10 * time.Second
)

// ErrNotFound is returned when a repository doesn't exist or is invisible
// to the supplied credential.
var ErrNotFound = errors.New(errors.ErrCodeRepoNotFound, "repository not found")

// RepoInfo is the metadata record fetched for a repository reference.
type RepoInfo struct {
	Stars      int        `json:"stars"`
	OpenIssues int        `json:"open_issues"`
	Language   string     `json:"language,omitempty"`
	Archived   bool       `json:"archived"`
	PushedAt   *time.Time `json:"pushed_at,omitempty"`
}

// Client provides access to the GitHub API for repository metadata.
// It handles authentication headers, optional response caching, and
// translates rate-limit responses into typed errors carrying the wait
// the server asked for.
type Client struct {
	http     *http.Client
	cache    cache.Cache
	cacheTTL time.Duration
	baseURL  string
	headers  map[string]string
	now      func() time.Time
}

// NewClient creates a GitHub API client with optional authentication.
// Pass an empty token for unauthenticated requests (lower rate limits).
// The cache defaults to a NullCache, so every run re-fetches; pass a file
// cache with a TTL to opt in to persistence between runs.
func NewClient(token string, c cache.Cache, ttl time.Duration) *Client {
	if c == nil {
		c = cache.NewNullCache()
	}
	headers := map[string]string{"Accept": "application/vnd.github.v3+json"}
	if token != "" {
		headers["Authorization"] = "Bearer " + token
	}
	return &Client{
		http:     &http.Client{Timeout: httpTimeout},
		cache:    c,
		cacheTTL: ttl,
		baseURL:  defaultBaseURL,
		headers:  headers,
		now:      time.Now,
	}
}

// FetchRepo retrieves the metadata record for a repository reference.
// Rate-limit responses yield *errors.RateLimitedError; a missing repository
// yields ErrNotFound; other non-2xx statuses are terminal network errors.
func (c *Client) FetchRepo(ctx context.Context, ref Ref) (*RepoInfo, error) {
	key := "github:repo:" + ref.String()
	if data, ok, _ := c.cache.Get(ctx, key); ok {
		var info RepoInfo
		if err := json.Unmarshal(data, &info); err == nil {
			return &info, nil
		}
	}

	var data repoResponse
	url := fmt.Sprintf("%s/repos/%s/%s", c.baseURL, ref.Owner, ref.Name)
	if err := c.get(ctx, url, &data); err != nil {
		return nil, err
	}

	info := &RepoInfo{
		Stars:      data.Stars,
		OpenIssues: data.OpenIssues,
		Language:   data.Language,
		Archived:   data.Archived,
		PushedAt:   data.PushedAt,
	}
	if encoded, err := json.Marshal(info); err == nil {
		_ = c.cache.Set(ctx, key, encoded, c.cacheTTL)
	}
	return info, nil
}

func (c *Client) get(ctx context.Context, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	for k, val := range c.headers {
		req.Header.Set(k, val)
	}

	observability.HTTP().OnRequest(ctx, req.Method, req.URL.Host, req.URL.Path)
	start := c.now()
	resp, err := c.http.Do(req)
	if err != nil {
		observability.HTTP().OnError(ctx, req.Method, req.URL.Host, req.URL.Path, err)
		return errors.Wrap(errors.ErrCodeNetwork, err, "request %s", url)
	}
	defer resp.Body.Close()
	observability.HTTP().OnResponse(ctx, req.Method, req.URL.Host, req.URL.Path, resp.StatusCode, c.now().Sub(start))

	if err := c.checkStatus(resp); err != nil {
		return err
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

func (c *Client) checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests:
		if wait, ok := rateLimitWait(resp, c.now()); ok {
			return &errors.RateLimitedError{Wait: wait}
		}
		return errors.New(errors.ErrCodeForbidden, "status %d", resp.StatusCode)
	case resp.StatusCode == http.StatusUnauthorized:
		return errors.New(errors.ErrCodeUnauthorized, "bad credentials")
	default:
		return errors.New(errors.ErrCodeNetwork, "status %d", resp.StatusCode)
	}
}

// rateLimitWait derives the backoff wait from the rate-limit headers of a
// 403/429 response. An explicit Retry-After is preferred; otherwise an
// exhausted quota with a known reset time yields reset-now plus a one
// second buffer.
func rateLimitWait(resp *http.Response, now time.Time) (time.Duration, bool) {
	if ra := resp.Header.Get("Retry-After"); ra != "" {
		if secs, err := strconv.Atoi(ra); err == nil && secs >= 0 {
			return time.Duration(secs) * time.Second, true
		}
	}
	if resp.Header.Get("X-RateLimit-Remaining") != "0" {
		return 0, false
	}
	reset := resp.Header.Get("X-RateLimit-Reset")
	if reset == "" {
		return 0, false
	}
	unix, err := strconv.ParseInt(reset, 10, 64)
	if err != nil {
		return 0, false
	}
	wait := time.Unix(unix, 0).Sub(now) + time.Second
	if wait < 0 {
		wait = time.Second
	}
	return wait, true
}

type repoResponse struct {
	Stars      int        `json:"stargazers_count"`
	OpenIssues int        `json:"open_issues_count"`
	Language   string     `json:"language"`
	Archived   bool       `json:"archived"`
	PushedAt   *time.Time `json:"pushed_at"`
}
