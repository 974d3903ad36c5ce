package repourl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantOwner string
		wantRepo  string
		wantOK    bool
	}{
		{"plain https", "https://github.com/torvalds/linux", "torvalds", "linux", true},
		{"git suffix", "https://github.com/golang/go.git", "golang", "go", true},
		{"trailing path segments", "https://github.com/owner/repo/tree/main/src", "owner", "repo", true},
		{"trailing slash", "https://github.com/owner/repo/", "owner", "repo", true},
		{"no scheme", "github.com/owner/repo", "owner", "repo", true},
		{"www host", "https://www.github.com/owner/repo", "owner", "repo", true},
		{"wrong host", "https://gitlab.com/owner/repo", "", "", false},
		{"subdomain host", "https://gist.github.com/owner/repo", "", "", false},
		{"one segment", "https://github.com/owner", "", "", false},
		{"no segments", "https://github.com/", "", "", false},
		{"empty", "", "", "", false},
		{"whitespace", "   ", "", "", false},
		{"garbage", "not a url at all ::", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, ok := Parse(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantOwner, ref.Owner)
			assert.Equal(t, tt.wantRepo, ref.Repo)
		})
	}
}

func TestFullName(t *testing.T) {
	ref := RepoRef{Owner: "fyrsmithlabs", Repo: "reposcope"}
	assert.Equal(t, "fyrsmithlabs/reposcope", ref.FullName())
}
