package ingest

import (
	"sort"
	"strings"

	"github.com/fyrsmithlabs/reposcope/internal/githubapi"
)

// blockedSubstrings and blockedSuffixes are enforced regardless of
// fetch-everything: generated lock files, dependency and build output
// trees, minified bundles, and binary image formats carry no signal
// worth embedding.
var (
	blockedSubstrings = []string{
		"package-lock",
		"yarn.lock",
		"node_modules/",
		"dist/",
		"build/",
		".min.",
	}
	blockedSuffixes = []string{".png", ".jpg", ".ico", ".svg"}
)

func isBlocked(path string) bool {
	lower := strings.ToLower(path)
	for _, s := range blockedSubstrings {
		if strings.Contains(lower, s) {
			return true
		}
	}
	for _, s := range blockedSuffixes {
		if strings.HasSuffix(lower, s) {
			return true
		}
	}
	return false
}

func hasAllowedExtension(path string, exts []string) bool {
	lower := strings.ToLower(path)
	for _, e := range exts {
		if strings.HasSuffix(lower, e) {
			return true
		}
	}
	return false
}

// priorityScore ranks paths for selection and corpus order: READMEs
// first, then standalone manifests, then source under src/, then the
// rest.
func priorityScore(path string) int {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, "readme.md"):
		return 3
	case strings.HasSuffix(lower, ".json") ||
		strings.HasSuffix(lower, ".toml") ||
		strings.HasSuffix(lower, ".yml"):
		return 2
	case strings.HasPrefix(lower, "src/"):
		return 1
	default:
		return 0
	}
}

// selectFiles applies the filter policy to a raw tree listing:
// blobs only, hard blocklist, size cap and extension allow-list
// (both skipped in fetch-everything mode), then a stable
// priority-descending sort and the file-count cap. Assumes opts is
// normalized.
func selectFiles(entries []githubapi.TreeEntry, opts Options) []githubapi.TreeEntry {
	maxBytes := int64(opts.MaxFileSizeKB) * 1024

	var selected []githubapi.TreeEntry
	for _, e := range entries {
		if e.Kind != "blob" {
			continue
		}
		if isBlocked(e.Path) {
			continue
		}
		if !opts.FetchEverything {
			// A zero size means the listing omitted it; let those pass.
			if e.Size > maxBytes {
				continue
			}
			if !hasAllowedExtension(e.Path, opts.Extensions) {
				continue
			}
		}
		selected = append(selected, e)
	}

	// Stable, so ties keep the tree listing's order.
	sort.SliceStable(selected, func(i, j int) bool {
		return priorityScore(selected[i].Path) > priorityScore(selected[j].Path)
	})

	if max := opts.maxFiles(); len(selected) > max {
		selected = selected[:max]
	}
	return selected
}
