// Package corpus assembles downloaded repository files into a single
// delimited text blob and splits that blob back into chunks for
// embedding.
//
// # Delimiter protocol (version 1)
//
// A corpus is a header block followed by zero or more file records.
// The format is line-oriented and context-free so any consumer can
// parse it without regular expressions:
//
//	Repository: <owner>/<repo>
//	Branch: <branch>
//	Description: <description>
//	Stars: <count>
//	Primary language: <language>
//
//	--- FILE: <path> ---
//	<file content>
//	--- END OF FILE ---
//
// Every file record's path is unique within one corpus, and record
// order matches the ingestion priority sort, never download
// completion order. A line inside file content that happens to equal
// a delimiter would corrupt parsing; source code does not normally
// contain these markers and the limitation is accepted.
package corpus

import (
	"fmt"
	"strings"
)

const (
	fileStartPrefix = "--- FILE: "
	fileStartSuffix = " ---"
	fileEnd         = "--- END OF FILE ---"
)

// File is one {path, content} pair of a corpus.
type File struct {
	Path    string
	Content string
}

// Header carries the repository metadata rendered at the top of a corpus.
type Header struct {
	FullName    string
	Branch      string
	Description string
	Stars       int
	Language    string
}

// Assemble concatenates the header and file records into a corpus.
// Pure string building; inputs are expected to be validated upstream.
func Assemble(h Header, files []File) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Repository: %s\n", h.FullName)
	fmt.Fprintf(&b, "Branch: %s\n", h.Branch)
	if h.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", h.Description)
	}
	fmt.Fprintf(&b, "Stars: %d\n", h.Stars)
	if h.Language != "" {
		fmt.Fprintf(&b, "Primary language: %s\n", h.Language)
	}

	for _, f := range files {
		b.WriteString("\n")
		b.WriteString(fileStartPrefix)
		b.WriteString(f.Path)
		b.WriteString(fileStartSuffix)
		b.WriteString("\n")
		b.WriteString(f.Content)
		b.WriteString("\n")
		b.WriteString(fileEnd)
		b.WriteString("\n")
	}

	return b.String()
}

// Split re-extracts {path, content} pairs from a corpus. It is the
// exact inverse of Assemble: for every input file, Split recovers the
// identical content string.
func Split(corpusText string) []File {
	var files []File

	lines := strings.Split(corpusText, "\n")
	var (
		current  []string
		path     string
		inRecord bool
	)

	for _, line := range lines {
		switch {
		case !inRecord && strings.HasPrefix(line, fileStartPrefix) && strings.HasSuffix(line, fileStartSuffix):
			path = strings.TrimSuffix(strings.TrimPrefix(line, fileStartPrefix), fileStartSuffix)
			current = current[:0]
			inRecord = true
		case inRecord && line == fileEnd:
			files = append(files, File{
				Path:    path,
				Content: strings.Join(current, "\n"),
			})
			inRecord = false
		case inRecord:
			current = append(current, line)
		}
	}

	return files
}
