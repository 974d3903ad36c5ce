package ingest

import (
	"context"
	"fmt"
	"sync"

	"github.com/fyrsmithlabs/reposcope/internal/githubapi"
	"github.com/fyrsmithlabs/reposcope/internal/repourl"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// eventBuffer sizes the session event channel. A slow consumer loses
// events instead of stalling the download pipeline.
const eventBuffer = 256

// Service creates fetch sessions. It holds at most one live session:
// starting a new one cancels the previous, matching the one-repo-at-
// a-time interaction model of the API and CLI.
type Service struct {
	client *githubapi.Client
	logger *zap.Logger

	mu      sync.Mutex
	current *Session
}

// NewService creates a session service on top of the GitHub client.
func NewService(client *githubapi.Client, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		client: client,
		logger: logger.Named("ingest"),
	}
}

// Analyze parses the repository URL, cancels any session still in
// flight, and starts a new one. The returned session is already
// running; drain Events and call Wait for the outcome.
func (s *Service) Analyze(ctx context.Context, rawURL string, opts Options) (*Session, error) {
	ref, ok := repourl.Parse(rawURL)
	if !ok {
		return nil, fmt.Errorf("%q: %w", rawURL, ErrInvalidURL)
	}

	sess := newSession(ctx, ref, opts, s.client, s.logger)

	s.mu.Lock()
	if s.current != nil {
		s.current.Cancel()
	}
	s.current = sess
	s.mu.Unlock()

	go sess.run()
	return sess, nil
}

// Current returns the most recently started session, or nil.
func (s *Service) Current() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Result is the final state of a completed session.
type Result struct {
	Ref      repourl.RepoRef         `json:"ref"`
	Branch   string                  `json:"branch"`
	Metadata *githubapi.RepoMetadata `json:"metadata,omitempty"`
	Corpus   string                  `json:"corpus"`
	Files    []FileRecord            `json:"files"`
	// Cancelled reports that the session stopped early; Corpus then
	// holds whatever completed batches produced.
	Cancelled bool `json:"cancelled"`
}

// Session is one repository fetch from URL to assembled corpus. All
// state lives on the session; concurrent sessions do not interfere.
type Session struct {
	ID string

	ref    repourl.RepoRef
	opts   Options
	client *githubapi.Client
	logger *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	events chan Event
	done   chan struct{}

	mu       sync.Mutex
	order    []string
	statuses map[string]*FileRecord
	result   *Result
	err      error

	// batchDone, when set, is called after each download batch
	// finishes with the number of files attempted so far. Tests use
	// it to cancel at a deterministic point.
	batchDone func(attempted int)
}

func newSession(ctx context.Context, ref repourl.RepoRef, opts Options, client *githubapi.Client, logger *zap.Logger) *Session {
	sctx, cancel := context.WithCancel(ctx)
	return &Session{
		ID:       uuid.NewString(),
		ref:      ref,
		opts:     opts.normalized(),
		client:   client,
		logger:   logger.With(zap.String("repo", ref.FullName())),
		ctx:      sctx,
		cancel:   cancel,
		events:   make(chan Event, eventBuffer),
		done:     make(chan struct{}),
		statuses: make(map[string]*FileRecord),
	}
}

// Events returns the session's event stream. The channel is closed
// when the session completes.
func (s *Session) Events() <-chan Event {
	return s.events
}

// Cancel stops the session. In-flight batch downloads are abandoned;
// completed files stay in the result.
func (s *Session) Cancel() {
	s.cancel()
}

// Wait blocks until the session completes and returns its outcome.
// A cancelled session returns a Result with Cancelled set and a nil
// error.
func (s *Session) Wait() (*Result, error) {
	<-s.done
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result, s.err
}

// FileStatuses returns a snapshot of all file records in selection
// order.
func (s *Session) FileStatuses() []FileRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]FileRecord, 0, len(s.order))
	for _, path := range s.order {
		out = append(out, *s.statuses[path])
	}
	return out
}

// emit delivers an event without blocking; events are dropped when
// the buffer is full.
func (s *Session) emit(ev Event) {
	select {
	case s.events <- ev:
	default:
	}
}

func (s *Session) emitPhase(phase string) {
	s.emit(Event{Kind: EventPhase, Phase: phase})
}

// registerPending records one pending FileRecord per selected file,
// in selection order, and announces each on the event stream.
func (s *Session) registerPending(entries []githubapi.TreeEntry) {
	s.mu.Lock()
	for _, e := range entries {
		rec := &FileRecord{Path: e.Path, Status: StatusPending, Size: e.Size}
		s.order = append(s.order, e.Path)
		s.statuses[e.Path] = rec
	}
	s.mu.Unlock()

	for _, rec := range s.FileStatuses() {
		rec := rec
		s.emit(Event{Kind: EventFile, File: &rec})
	}
}

// setStatus updates one file record and emits the change.
func (s *Session) setStatus(path string, status FileStatus, errMsg string, truncated bool) {
	s.mu.Lock()
	rec, ok := s.statuses[path]
	if !ok {
		s.mu.Unlock()
		return
	}
	rec.Status = status
	rec.Error = errMsg
	rec.Truncated = truncated
	copied := *rec
	s.mu.Unlock()

	s.emit(Event{Kind: EventFile, File: &copied})
}
