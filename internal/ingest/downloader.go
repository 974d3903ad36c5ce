package ingest

import (
	"sync"

	"github.com/fyrsmithlabs/reposcope/internal/githubapi"
	"github.com/fyrsmithlabs/reposcope/internal/metrics"
)

// batchSize is the number of files fetched in parallel. Batches run
// strictly one after another so a cancellation takes effect at a
// batch boundary.
const batchSize = 5

// truncationMarker is appended to content cut at the per-file cap so
// the corpus makes the cut visible.
const truncationMarker = "\n\n[... content truncated ...]"

// downloadAll fetches the selected files batch by batch and returns
// their contents indexed like the input; ok[i] reports whether entry
// i made it. Cancellation is checked before each batch; fetches cut
// off mid-batch by the context are dropped without an error status.
func (s *Session) downloadAll(entries []githubapi.TreeEntry, branch string) (contents []string, ok []bool) {
	total := len(entries)
	contents = make([]string, total)
	ok = make([]bool, total)
	maxChars := s.opts.maxChars()

	for start := 0; start < total; start += batchSize {
		if s.ctx.Err() != nil {
			break
		}
		end := start + batchSize
		if end > total {
			end = total
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				entry := entries[i]

				content, err := s.client.RawFile(s.ctx, s.ref.Owner, s.ref.Repo, branch, entry.Path)
				if err != nil {
					if s.ctx.Err() != nil {
						// Lost to cancellation, not to the provider.
						return
					}
					metrics.FilesFetched.WithLabelValues("error").Inc()
					s.setStatus(entry.Path, StatusError, err.Error(), false)
					return
				}

				content, truncated := truncate(content, maxChars)
				contents[i] = content
				ok[i] = true
				metrics.FilesFetched.WithLabelValues("success").Inc()
				s.setStatus(entry.Path, StatusSuccess, "", truncated)
			}(i)
		}
		wg.Wait()

		s.emit(Event{Kind: EventProgress, Completed: end, Total: total})
		if s.batchDone != nil {
			s.batchDone(end)
		}
	}
	return contents, ok
}

// truncate cuts content at max characters, appending a visible
// marker. Counts runes so multi-byte text is never split mid-rune.
func truncate(content string, max int) (string, bool) {
	runes := []rune(content)
	if len(runes) <= max {
		return content, false
	}
	return string(runes[:max]) + truncationMarker, true
}
