package ingest

import (
	"github.com/fyrsmithlabs/reposcope/internal/corpus"
	"github.com/fyrsmithlabs/reposcope/internal/metrics"
	"go.uber.org/zap"
)

// run drives the session from metadata lookup to assembled corpus.
// It owns the event channel: no event is emitted after the channel
// closes.
func (s *Session) run() {
	defer close(s.done)
	defer close(s.events)
	defer s.cancel()

	s.emitPhase("metadata")
	meta, err := s.client.RepoMetadata(s.ctx, s.ref.Owner, s.ref.Repo)
	if err != nil {
		s.finishErr(err)
		return
	}

	branch := s.opts.Branch
	if branch == "" {
		branch = meta.DefaultBranch
	}
	if branch == "" {
		branch = "main"
	}

	s.emitPhase("tree")
	entries, truncated, err := s.client.Tree(s.ctx, s.ref.Owner, s.ref.Repo, branch)
	if err != nil {
		s.finishErr(err)
		return
	}
	if truncated {
		s.emit(Event{
			Kind:    EventWarning,
			Message: "repository tree listing truncated by provider; selecting from partial listing",
		})
		s.logger.Warn("tree listing truncated", zap.String("branch", branch))
	}

	selected := selectFiles(entries, s.opts)
	if len(selected) == 0 {
		s.finishErr(ErrNoFilesFound)
		return
	}
	s.registerPending(selected)

	s.emitPhase("download")
	contents, ok := s.downloadAll(selected, branch)

	cancelled := s.ctx.Err() != nil
	var files []corpus.File
	for i, entry := range selected {
		if ok[i] {
			files = append(files, corpus.File{Path: entry.Path, Content: contents[i]})
		}
	}
	if len(files) == 0 && !cancelled {
		s.finishErr(ErrDownloadFailed)
		return
	}

	s.emitPhase("assemble")
	// Selection order is priority order, so the corpus layout is
	// independent of which goroutine finished first.
	text := corpus.Assemble(corpus.Header{
		FullName:    meta.FullName(),
		Branch:      branch,
		Description: meta.Description,
		Stars:       meta.Stars,
		Language:    meta.Language,
	}, files)
	metrics.CorpusBytes.Observe(float64(len(text)))

	s.emitPhase("done")
	s.finish(&Result{
		Ref:       s.ref,
		Branch:    branch,
		Metadata:  meta,
		Corpus:    text,
		Files:     s.FileStatuses(),
		Cancelled: cancelled,
	})
}

// finish records a successful (possibly cancelled) outcome.
func (s *Session) finish(res *Result) {
	outcome := "success"
	if res.Cancelled {
		outcome = "cancelled"
	}
	metrics.FetchSessions.WithLabelValues(outcome).Inc()
	s.logger.Info("fetch session finished",
		zap.String("branch", res.Branch),
		zap.Int("files", len(res.Files)),
		zap.Int("corpus_bytes", len(res.Corpus)),
		zap.Bool("cancelled", res.Cancelled),
	)

	s.mu.Lock()
	s.result = res
	s.mu.Unlock()
}

// finishErr records a failed outcome. Cancellation wins: a failure
// observed after the session was cancelled is reported as a
// cancelled result, not an error.
func (s *Session) finishErr(err error) {
	if s.ctx.Err() != nil {
		s.finish(&Result{
			Ref:       s.ref,
			Files:     s.FileStatuses(),
			Cancelled: true,
		})
		return
	}

	metrics.FetchSessions.WithLabelValues("error").Inc()
	s.logger.Warn("fetch session failed", zap.Error(err))

	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}
