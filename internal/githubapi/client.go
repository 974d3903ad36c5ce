// Package githubapi wraps the GitHub REST API and the raw-content
// endpoint for repository ingestion.
//
// It provides the small surface reposcope needs: repository metadata,
// the recursive file tree, recent commits, raw file bytes, and a
// rate-limit probe. Successful API responses are cached for a
// configurable TTL and transient failures are retried with backoff.
package githubapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fyrsmithlabs/reposcope/internal/config"
	"github.com/google/go-github/v57/github"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const defaultRawBaseURL = "https://raw.githubusercontent.com"

// Config holds GitHub client configuration.
type Config struct {
	// Token is an optional personal access token. Anonymous requests
	// work but are subject to very low rate limits.
	Token config.Secret

	// Timeout is the per-request HTTP timeout.
	// Default: 15 seconds.
	Timeout time.Duration

	// CacheTTL controls how long successful API responses are cached.
	// Zero disables caching.
	CacheTTL time.Duration

	// Retry configures retry/backoff for API calls. Nil uses defaults.
	Retry *RetryConfig

	// APIBaseURL overrides the GitHub API base URL (tests only).
	APIBaseURL string

	// RawBaseURL overrides the raw-content base URL (tests only).
	RawBaseURL string
}

// Client is a GitHub API client scoped to reposcope's needs.
type Client struct {
	gh         *github.Client
	raw        *http.Client
	rawBaseURL string
	cache      *cachingTransport
	retry      *RetryConfig
	logger     *zap.Logger
}

// New creates a ready-to-use client.
func New(cfg Config, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}

	var transport http.RoundTripper = http.DefaultTransport
	if cfg.Token.IsSet() {
		transport = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token.Value()}),
			Base:   transport,
		}
	}

	var cache *cachingTransport
	if cfg.CacheTTL > 0 {
		cache = newCachingTransport(transport, cfg.CacheTTL)
		transport = cache
	}

	gh := github.NewClient(&http.Client{
		Timeout:   cfg.Timeout,
		Transport: transport,
	})

	if cfg.APIBaseURL != "" {
		base, err := url.Parse(strings.TrimSuffix(cfg.APIBaseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("parsing API base URL: %w", err)
		}
		gh.BaseURL = base
	}

	rawBase := cfg.RawBaseURL
	if rawBase == "" {
		rawBase = defaultRawBaseURL
	}

	return &Client{
		gh:         gh,
		raw:        &http.Client{Timeout: cfg.Timeout},
		rawBaseURL: strings.TrimSuffix(rawBase, "/"),
		cache:      cache,
		retry:      cfg.Retry,
		logger:     logger.Named("githubapi"),
	}, nil
}

// RepoMetadata describes a repository as reported by the provider.
type RepoMetadata struct {
	Owner         string
	Repo          string
	DefaultBranch string
	Description   string
	Stars         int
	Language      string
}

// FullName returns the "owner/repo" form.
func (m *RepoMetadata) FullName() string {
	return m.Owner + "/" + m.Repo
}

// RepoMetadata fetches repository metadata.
//
// A 404 maps to ErrRepoNotFound, a 403 to ErrRateLimited, and any
// other non-2xx to an *APIError carrying the status.
func (c *Client) RepoMetadata(ctx context.Context, owner, repo string) (*RepoMetadata, error) {
	var out *github.Repository
	resp, err := retryOperation(ctx, c.logger, c.retry, func() (*github.Response, error) {
		r, ghResp, err := c.gh.Repositories.Get(ctx, owner, repo)
		out = r
		return ghResp, err
	})
	if err != nil {
		switch statusCode(resp) {
		case http.StatusNotFound:
			return nil, fmt.Errorf("%s/%s: %w", owner, repo, ErrRepoNotFound)
		case http.StatusForbidden:
			return nil, ErrRateLimited
		case 0:
			return nil, fmt.Errorf("fetching repository metadata: %w", err)
		default:
			return nil, &APIError{Status: statusCode(resp)}
		}
	}

	return &RepoMetadata{
		Owner:         owner,
		Repo:          repo,
		DefaultBranch: out.GetDefaultBranch(),
		Description:   out.GetDescription(),
		Stars:         out.GetStargazersCount(),
		Language:      out.GetLanguage(),
	}, nil
}

// TreeEntry is one entry of the recursive repository tree.
type TreeEntry struct {
	Path string
	// Size in bytes. Zero when the provider omits the size, which the
	// filter treats as always allowed.
	Size int64
	// Kind is "blob" for files and "tree" for directories.
	Kind string
}

// Tree fetches the full recursive tree for a branch in one call.
//
// A 404 here means the branch does not exist (the caller has already
// confirmed the repository itself). The truncated flag reports that
// the provider returned an incomplete tree for a very large
// repository; selection then operates on the partial listing.
func (c *Client) Tree(ctx context.Context, owner, repo, branch string) ([]TreeEntry, bool, error) {
	var out *github.Tree
	resp, err := retryOperation(ctx, c.logger, c.retry, func() (*github.Response, error) {
		t, ghResp, err := c.gh.Git.GetTree(ctx, owner, repo, branch, true)
		out = t
		return ghResp, err
	})
	if err != nil {
		switch statusCode(resp) {
		case http.StatusNotFound:
			return nil, false, fmt.Errorf("branch %q: %w", branch, ErrBranchNotFound)
		case http.StatusForbidden:
			return nil, false, ErrRateLimited
		case 0:
			return nil, false, fmt.Errorf("fetching repository tree: %w", err)
		default:
			return nil, false, &APIError{Status: statusCode(resp)}
		}
	}

	entries := make([]TreeEntry, 0, len(out.Entries))
	for _, e := range out.Entries {
		entries = append(entries, TreeEntry{
			Path: e.GetPath(),
			Size: int64(e.GetSize()),
			Kind: e.GetType(),
		})
	}
	return entries, out.GetTruncated(), nil
}

// Commit is one entry of a branch's recent history.
type Commit struct {
	SHA        string    `json:"sha"`
	Message    string    `json:"message"`
	AuthorName string    `json:"author_name"`
	AuthorDate time.Time `json:"author_date"`
	HTMLURL    string    `json:"html_url"`

	// GitHub login details, present only when the commit author maps
	// to a GitHub account.
	Login         string `json:"login,omitempty"`
	AvatarURL     string `json:"avatar_url,omitempty"`
	AuthorHTMLURL string `json:"author_html_url,omitempty"`
}

// RecentCommits fetches the most recent commits for a branch, first
// page only. Any failure maps to ErrCommitsUnavailable; an invalid
// branch is the common cause.
func (c *Client) RecentCommits(ctx context.Context, owner, repo, branch string, limit int) ([]Commit, error) {
	if limit <= 0 {
		limit = 10
	}

	opts := &github.CommitsListOptions{
		SHA:         branch,
		ListOptions: github.ListOptions{PerPage: limit},
	}

	var out []*github.RepositoryCommit
	_, err := retryOperation(ctx, c.logger, c.retry, func() (*github.Response, error) {
		commits, ghResp, err := c.gh.Repositories.ListCommits(ctx, owner, repo, opts)
		out = commits
		return ghResp, err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCommitsUnavailable, err)
	}

	commits := make([]Commit, 0, len(out))
	for _, rc := range out {
		commit := Commit{
			SHA:     rc.GetSHA(),
			HTMLURL: rc.GetHTMLURL(),
		}
		if inner := rc.GetCommit(); inner != nil {
			commit.Message = inner.GetMessage()
			if author := inner.GetAuthor(); author != nil {
				commit.AuthorName = author.GetName()
				commit.AuthorDate = author.GetDate().Time
			}
		}
		if user := rc.GetAuthor(); user != nil {
			commit.Login = user.GetLogin()
			commit.AvatarURL = user.GetAvatarURL()
			commit.AuthorHTMLURL = user.GetHTMLURL()
		}
		commits = append(commits, commit)
	}
	return commits, nil
}

// RawFile downloads the raw text of one file by owner/repo/branch/path.
//
// Non-2xx responses return an *APIError; the downloader records these
// per file instead of failing the batch.
func (c *Client) RawFile(ctx context.Context, owner, repo, branch, path string) (string, error) {
	u := fmt.Sprintf("%s/%s/%s/%s/%s",
		c.rawBaseURL,
		url.PathEscape(owner),
		url.PathEscape(repo),
		url.PathEscape(branch),
		escapePath(path),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.raw.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &APIError{Status: resp.StatusCode, Message: path}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return string(body), nil
}

// RateStatus reports the provider's current rate-limit budget.
type RateStatus struct {
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	Reset     time.Time `json:"reset"`
}

// RateLimit probes the provider's core rate-limit status.
func (c *Client) RateLimit(ctx context.Context) (*RateStatus, error) {
	limits, _, err := c.gh.RateLimits(ctx)
	if err != nil {
		return nil, fmt.Errorf("checking rate limit: %w", err)
	}
	core := limits.GetCore()
	if core == nil {
		return nil, errors.New("rate limit response missing core resource")
	}
	return &RateStatus{
		Limit:     core.Limit,
		Remaining: core.Remaining,
		Reset:     core.Reset.Time,
	}, nil
}

// ClearCache drops all cached API responses.
func (c *Client) ClearCache() {
	if c.cache != nil {
		c.cache.Clear()
	}
}

// CachedResponses returns the number of cached API responses.
func (c *Client) CachedResponses() int {
	if c.cache == nil {
		return 0
	}
	return c.cache.Len()
}

// escapePath escapes each segment of a repository path while keeping
// the separators.
func escapePath(path string) string {
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.Join(segments, "/")
}
