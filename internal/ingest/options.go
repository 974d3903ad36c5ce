package ingest

import "strings"

// Selection and download caps. The narrow-filter cap applies when the
// caller restricted the extension list to one or two entries, so a
// focused query is not flooded with matches.
const (
	maxFilesDefault    = 200
	maxFilesEverything = 500
	maxFilesNarrow     = 75

	maxFileChars           = 100_000
	maxFileCharsEverything = 500_000
)

// DefaultExtensions is the built-in allow-list applied when the
// caller does not narrow the selection.
var DefaultExtensions = []string{
	".go", ".py", ".js", ".jsx", ".ts", ".tsx", ".rs", ".java", ".rb",
	".c", ".h", ".cpp", ".hpp", ".cs", ".php", ".swift", ".kt",
	".md", ".txt", ".rst",
	".json", ".yml", ".yaml", ".toml", ".ini", ".cfg",
	".html", ".css", ".scss",
	".sh", ".sql", ".proto",
}

// Options are the caller-configurable filter parameters of a fetch
// session. The zero value selects the built-in defaults.
type Options struct {
	// Branch overrides the repository's default branch when set.
	Branch string
	// Extensions replaces DefaultExtensions when non-empty. Entries
	// are matched case-insensitively and may omit the leading dot.
	Extensions []string
	// MaxFileSizeKB caps individual file size as reported by the tree
	// listing. Zero means the 500 KB default.
	MaxFileSizeKB int
	// FetchEverything disables the extension allow-list and the size
	// cap. The hard blocklist still applies.
	FetchEverything bool
}

// normalized returns the options with defaults applied and extensions
// lower-cased with a leading dot.
func (o Options) normalized() Options {
	if o.MaxFileSizeKB <= 0 {
		o.MaxFileSizeKB = 500
	}
	if len(o.Extensions) == 0 {
		o.Extensions = DefaultExtensions
	} else {
		exts := make([]string, 0, len(o.Extensions))
		for _, e := range o.Extensions {
			e = strings.ToLower(strings.TrimSpace(e))
			if e == "" {
				continue
			}
			if !strings.HasPrefix(e, ".") {
				e = "." + e
			}
			exts = append(exts, e)
		}
		o.Extensions = exts
	}
	return o
}

// maxFiles returns the file-count cap for these options. Assumes
// normalized().
func (o Options) maxFiles() int {
	if o.FetchEverything {
		return maxFilesEverything
	}
	if len(o.Extensions) <= 2 {
		return maxFilesNarrow
	}
	return maxFilesDefault
}

// maxChars returns the per-file truncation threshold in characters.
func (o Options) maxChars() int {
	if o.FetchEverything {
		return maxFileCharsEverything
	}
	return maxFileChars
}
