// Package httpapi provides the HTTP API for reposcope.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/fyrsmithlabs/reposcope/internal/corpus"
	"github.com/fyrsmithlabs/reposcope/internal/embeddings"
	"github.com/fyrsmithlabs/reposcope/internal/githubapi"
	"github.com/fyrsmithlabs/reposcope/internal/ingest"
	"github.com/fyrsmithlabs/reposcope/internal/repourl"
	"github.com/fyrsmithlabs/reposcope/internal/search"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server exposes analyze, search, and repository inspection endpoints.
type Server struct {
	echo     *echo.Echo
	logger   *zap.Logger
	config   *Config
	gh       *githubapi.Client
	sessions *ingest.Service
	embedder embeddings.Embedder
	indexer  *search.Indexer

	// mu guards the current index; one analyzed repository at a time.
	mu    sync.Mutex
	index *indexState
}

// indexState is the outcome of the most recent analyze call.
type indexState struct {
	repo       string
	branch     string
	files      []ingest.FileRecord
	chunks     []corpus.Chunk
	analyzedAt time.Time
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// NewServer creates the HTTP server with all routes registered.
func NewServer(gh *githubapi.Client, embedder embeddings.Embedder, logger *zap.Logger, cfg *Config) (*Server, error) {
	if gh == nil {
		return nil, fmt.Errorf("github client cannot be nil")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "localhost",
			Port: 9191,
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})

	s := &Server{
		echo:     e,
		logger:   logger,
		config:   cfg,
		gh:       gh,
		sessions: ingest.NewService(gh, logger),
		embedder: embedder,
		indexer:  search.NewIndexer(embedder, logger),
	}

	// Register routes
	s.registerRoutes()

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	// Health check and metrics
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// API v1 routes
	v1 := s.echo.Group("/api/v1")
	v1.POST("/analyze", s.handleAnalyze)
	v1.POST("/search", s.handleSearch)
	v1.GET("/commits", s.handleCommits)
	v1.GET("/ratelimit", s.handleRateLimit)
	v1.DELETE("/cache", s.handleClearCache)
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// AnalyzeRequest is the request body for POST /api/v1/analyze.
type AnalyzeRequest struct {
	URL             string   `json:"url"`
	Branch          string   `json:"branch,omitempty"`
	Extensions      []string `json:"extensions,omitempty"`
	MaxFileSizeKB   int      `json:"max_file_size_kb,omitempty"`
	FetchEverything bool     `json:"fetch_everything,omitempty"`
}

// AnalyzeResponse is the response body for POST /api/v1/analyze.
type AnalyzeResponse struct {
	Repository     string              `json:"repository"`
	Branch         string              `json:"branch"`
	Description    string              `json:"description,omitempty"`
	Stars          int                 `json:"stars"`
	Language       string              `json:"language,omitempty"`
	Files          []ingest.FileRecord `json:"files"`
	CorpusChars    int                 `json:"corpus_chars"`
	Chunks         int                 `json:"chunks"`
	ChunksEmbedded int                 `json:"chunks_embedded"`
	Cancelled      bool                `json:"cancelled"`
	Warnings       []string            `json:"warnings,omitempty"`
}

// handleAnalyze fetches a repository, assembles its corpus, and
// builds the embedding index the search endpoint queries. The
// previous index is replaced.
func (s *Server) handleAnalyze(c echo.Context) error {
	var req AnalyzeRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid analyze request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.URL == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "url field is required")
	}

	ctx := c.Request().Context()
	sess, err := s.sessions.Analyze(ctx, req.URL, ingest.Options{
		Branch:          req.Branch,
		Extensions:      req.Extensions,
		MaxFileSizeKB:   req.MaxFileSizeKB,
		FetchEverything: req.FetchEverything,
	})
	if err != nil {
		return apiError(err)
	}

	var warnings []string
	for ev := range sess.Events() {
		if ev.Kind == ingest.EventWarning {
			warnings = append(warnings, ev.Message)
		}
	}

	res, err := sess.Wait()
	if err != nil {
		return apiError(err)
	}

	chunks := corpus.Chunks(res.Corpus)
	chunks, err = s.indexer.Index(ctx, chunks, nil)
	if err != nil {
		return apiError(err)
	}

	embedded := 0
	for i := range chunks {
		if chunks[i].Embedded() {
			embedded++
		}
	}

	s.mu.Lock()
	s.index = &indexState{
		repo:       res.Ref.FullName(),
		branch:     res.Branch,
		files:      res.Files,
		chunks:     chunks,
		analyzedAt: time.Now(),
	}
	s.mu.Unlock()

	resp := AnalyzeResponse{
		Repository:     res.Ref.FullName(),
		Branch:         res.Branch,
		Files:          res.Files,
		CorpusChars:    len(res.Corpus),
		Chunks:         len(chunks),
		ChunksEmbedded: embedded,
		Cancelled:      res.Cancelled,
		Warnings:       warnings,
	}
	if res.Metadata != nil {
		resp.Description = res.Metadata.Description
		resp.Stars = res.Metadata.Stars
		resp.Language = res.Metadata.Language
	}
	return c.JSON(http.StatusOK, resp)
}

// SearchRequest is the request body for POST /api/v1/search.
type SearchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

// SearchHit is one ranked result of a search.
type SearchHit struct {
	FileName string  `json:"file_name"`
	Content  string  `json:"content"`
	Score    float64 `json:"score"`
}

// SearchResponse is the response body for POST /api/v1/search.
type SearchResponse struct {
	Repository string      `json:"repository"`
	Hits       []SearchHit `json:"hits"`
	Degraded   bool        `json:"degraded"`
	Reason     string      `json:"reason,omitempty"`
}

// handleSearch runs a similarity search over the current index.
func (s *Server) handleSearch(c echo.Context) error {
	var req SearchRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid search request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query field is required")
	}
	if req.TopK <= 0 {
		req.TopK = 5
	}

	s.mu.Lock()
	index := s.index
	s.mu.Unlock()
	if index == nil {
		return echo.NewHTTPError(http.StatusConflict, "no repository analyzed yet")
	}

	results := search.Search(c.Request().Context(), s.embedder, index.chunks, req.Query, req.TopK, s.logger)

	hits := make([]SearchHit, 0, len(results.Hits))
	for _, hit := range results.Hits {
		hits = append(hits, SearchHit{
			FileName: hit.Chunk.FileName,
			Content:  hit.Chunk.Content,
			Score:    hit.Score,
		})
	}
	return c.JSON(http.StatusOK, SearchResponse{
		Repository: index.repo,
		Hits:       hits,
		Degraded:   results.Degraded,
		Reason:     results.Reason,
	})
}

// CommitsResponse is the response body for GET /api/v1/commits.
type CommitsResponse struct {
	Repository string             `json:"repository"`
	Branch     string             `json:"branch"`
	Commits    []githubapi.Commit `json:"commits"`
}

// handleCommits returns recent commit history. The repository comes
// from the url query parameter, falling back to the currently
// analyzed one.
func (s *Server) handleCommits(c echo.Context) error {
	rawURL := c.QueryParam("url")
	branch := c.QueryParam("branch")

	var ref repourl.RepoRef
	if rawURL != "" {
		parsed, ok := repourl.Parse(rawURL)
		if !ok {
			return echo.NewHTTPError(http.StatusBadRequest, "not a valid GitHub repository URL")
		}
		ref = parsed
	} else {
		s.mu.Lock()
		index := s.index
		s.mu.Unlock()
		if index == nil {
			return echo.NewHTTPError(http.StatusBadRequest, "url query parameter is required")
		}
		parsed, _ := repourl.Parse("github.com/" + index.repo)
		ref = parsed
		if branch == "" {
			branch = index.branch
		}
	}
	if branch == "" {
		branch = "main"
	}

	commits, err := s.gh.RecentCommits(c.Request().Context(), ref.Owner, ref.Repo, branch, 10)
	if err != nil {
		return apiError(err)
	}
	return c.JSON(http.StatusOK, CommitsResponse{
		Repository: ref.FullName(),
		Branch:     branch,
		Commits:    commits,
	})
}

// handleRateLimit reports the GitHub API rate-limit budget.
func (s *Server) handleRateLimit(c echo.Context) error {
	status, err := s.gh.RateLimit(c.Request().Context())
	if err != nil {
		return apiError(err)
	}
	return c.JSON(http.StatusOK, status)
}

// ClearCacheResponse is the response body for DELETE /api/v1/cache.
type ClearCacheResponse struct {
	Cleared int `json:"cleared"`
}

// handleClearCache drops all cached GitHub API responses.
func (s *Server) handleClearCache(c echo.Context) error {
	n := s.gh.CachedResponses()
	s.gh.ClearCache()
	s.logger.Info("api cache cleared", zap.Int("entries", n))
	return c.JSON(http.StatusOK, ClearCacheResponse{Cleared: n})
}

// apiError maps pipeline errors to HTTP status codes.
func apiError(err error) *echo.HTTPError {
	var apiErr *githubapi.APIError
	switch {
	case errors.Is(err, ingest.ErrInvalidURL):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, githubapi.ErrRepoNotFound),
		errors.Is(err, githubapi.ErrBranchNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, githubapi.ErrRateLimited):
		return echo.NewHTTPError(http.StatusTooManyRequests, err.Error())
	case errors.Is(err, ingest.ErrNoFilesFound),
		errors.Is(err, ingest.ErrDownloadFailed),
		errors.Is(err, githubapi.ErrCommitsUnavailable):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &apiErr):
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
