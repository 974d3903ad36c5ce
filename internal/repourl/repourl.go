// Package repourl parses user-supplied GitHub repository URLs.
package repourl

import (
	"net/url"
	"strings"
)

// RepoRef identifies one fetch target. Branch is empty until resolved
// against the repository's reported default.
type RepoRef struct {
	Owner  string
	Repo   string
	Branch string
}

// FullName returns the "owner/repo" form.
func (r RepoRef) FullName() string {
	return r.Owner + "/" + r.Repo
}

// Parse extracts owner and repository name from a GitHub URL.
//
// Accepted forms include:
//
//	https://github.com/owner/repo
//	https://github.com/owner/repo.git
//	github.com/owner/repo/tree/main
//
// The scheme is optional. A trailing ".git" suffix on the repository
// name is stripped. The second return value is false for any input
// that is not a github.com URL with at least two path segments; no
// error is returned because the caller only needs a yes/no signal.
func Parse(raw string) (RepoRef, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return RepoRef{}, false
	}

	// Tolerate scheme-less input ("github.com/owner/repo").
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return RepoRef{}, false
	}

	host := strings.ToLower(u.Hostname())
	if host != "github.com" && host != "www.github.com" {
		return RepoRef{}, false
	}

	var segments []string
	for _, seg := range strings.Split(u.Path, "/") {
		if seg != "" {
			segments = append(segments, seg)
		}
	}
	if len(segments) < 2 {
		return RepoRef{}, false
	}

	owner := segments[0]
	repo := strings.TrimSuffix(segments[1], ".git")
	if owner == "" || repo == "" {
		return RepoRef{}, false
	}

	return RepoRef{Owner: owner, Repo: repo}, true
}
