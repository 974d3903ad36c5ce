package githubapi

import (
	"errors"
	"fmt"
)

// Session-level failures surfaced to callers. File-level download
// errors are reported through ingest file statuses instead.
var (
	ErrRepoNotFound       = errors.New("repository not found")
	ErrRateLimited        = errors.New("github API rate limit exceeded")
	ErrBranchNotFound     = errors.New("branch not found")
	ErrCommitsUnavailable = errors.New("commit history unavailable")
)

// APIError is returned for any other non-2xx provider response,
// carrying the provider's status code.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("github API error: status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("github API error: status %d", e.Status)
}
