package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fyrsmithlabs/reposcope/internal/corpus"
	"github.com/fyrsmithlabs/reposcope/internal/githubapi"
	"github.com/fyrsmithlabs/reposcope/internal/repourl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeRepo backs a fake GitHub serving one repository at
// octocat/hello.
type fakeRepo struct {
	defaultBranch string
	// files maps path to content, served in map-independent tree
	// order via paths.
	paths []string
	files map[string]string
	// fail lists paths whose raw download returns a 500.
	fail map[string]bool
	// block, when non-nil, makes raw downloads hang until it closes.
	block chan struct{}
}

func (f *fakeRepo) addFile(path, content string) {
	if f.files == nil {
		f.files = make(map[string]string)
	}
	f.paths = append(f.paths, path)
	f.files[path] = content
}

func newFakeClient(t *testing.T, repo *fakeRepo) *githubapi.Client {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octocat/hello", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"default_branch": %q, "description": "Example", "stargazers_count": 7, "language": "Go"}`, repo.defaultBranch)
	})
	mux.HandleFunc("/repos/octocat/hello/git/trees/", func(w http.ResponseWriter, r *http.Request) {
		type entry struct {
			Path string `json:"path"`
			Type string `json:"type"`
			Size int    `json:"size"`
		}
		var entries []entry
		for _, p := range repo.paths {
			entries = append(entries, entry{Path: p, Type: "blob", Size: len(repo.files[p])})
		}
		json.NewEncoder(w).Encode(map[string]any{"sha": "abc", "tree": entries, "truncated": false})
	})
	mux.HandleFunc("/raw/octocat/hello/", func(w http.ResponseWriter, r *http.Request) {
		if repo.block != nil {
			select {
			case <-repo.block:
			case <-r.Context().Done():
				return
			}
		}
		parts := strings.SplitN(strings.TrimPrefix(r.URL.Path, "/raw/octocat/hello/"), "/", 2)
		require.Len(t, parts, 2)
		path := parts[1]
		if repo.fail[path] {
			http.Error(w, "upstream broke", http.StatusInternalServerError)
			return
		}
		content, ok := repo.files[path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, content)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client, err := githubapi.New(githubapi.Config{
		APIBaseURL: srv.URL,
		RawBaseURL: srv.URL + "/raw",
		Retry: &githubapi.RetryConfig{
			MaxRetries:        1,
			InitialBackoff:    time.Millisecond,
			MaxBackoff:        time.Millisecond,
			BackoffMultiplier: 1.0,
		},
	}, nil)
	require.NoError(t, err)
	return client
}

func drainEvents(sess *Session) []Event {
	var events []Event
	for ev := range sess.Events() {
		events = append(events, ev)
	}
	return events
}

func TestAnalyzeHappyPath(t *testing.T) {
	repo := &fakeRepo{defaultBranch: "main"}
	repo.addFile("main.go", "package main\n")
	repo.addFile("README.md", "# hello\n")

	svc := NewService(newFakeClient(t, repo), zap.NewNop())
	sess, err := svc.Analyze(context.Background(), "https://github.com/octocat/hello", Options{})
	require.NoError(t, err)

	events := drainEvents(sess)
	res, err := sess.Wait()
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.Equal(t, "main", res.Branch)
	assert.False(t, res.Cancelled)
	assert.Equal(t, "octocat/hello", res.Ref.FullName())

	files := corpus.Split(res.Corpus)
	require.Len(t, files, 2)
	// README outranks source files.
	assert.Equal(t, "README.md", files[0].Path)
	assert.Equal(t, "# hello\n", files[0].Content)
	assert.Equal(t, "main.go", files[1].Path)

	for _, rec := range res.Files {
		assert.Equal(t, StatusSuccess, rec.Status)
	}

	var phases []string
	for _, ev := range events {
		if ev.Kind == EventPhase {
			phases = append(phases, ev.Phase)
		}
	}
	assert.Equal(t, []string{"metadata", "tree", "download", "assemble", "done"}, phases)
}

func TestAnalyzePartialBatchFailure(t *testing.T) {
	repo := &fakeRepo{defaultBranch: "main", fail: map[string]bool{
		"f.go": true, "g.go": true, "h.go": true,
	}}
	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		repo.addFile(name+".go", "package "+name+"\n")
	}

	svc := NewService(newFakeClient(t, repo), zap.NewNop())
	sess, err := svc.Analyze(context.Background(), "github.com/octocat/hello", Options{})
	require.NoError(t, err)
	go drainEvents(sess)

	res, err := sess.Wait()
	require.NoError(t, err, "session must succeed despite a failed batch")

	files := corpus.Split(res.Corpus)
	require.Len(t, files, 5)

	byStatus := map[FileStatus]int{}
	for _, rec := range res.Files {
		byStatus[rec.Status]++
		if rec.Status == StatusError {
			assert.Contains(t, rec.Error, "500")
		}
	}
	assert.Equal(t, 5, byStatus[StatusSuccess])
	assert.Equal(t, 3, byStatus[StatusError])
}

func TestAnalyzeAllDownloadsFail(t *testing.T) {
	repo := &fakeRepo{defaultBranch: "main", fail: map[string]bool{"a.go": true, "b.go": true}}
	repo.addFile("a.go", "x")
	repo.addFile("b.go", "y")

	svc := NewService(newFakeClient(t, repo), zap.NewNop())
	sess, err := svc.Analyze(context.Background(), "github.com/octocat/hello", Options{})
	require.NoError(t, err)
	go drainEvents(sess)

	_, err = sess.Wait()
	assert.ErrorIs(t, err, ErrDownloadFailed)
}

func TestAnalyzeNoMatchingFiles(t *testing.T) {
	repo := &fakeRepo{defaultBranch: "main"}
	repo.addFile("logo.png", "binary")
	repo.addFile("data.bin", "binary")

	svc := NewService(newFakeClient(t, repo), zap.NewNop())
	sess, err := svc.Analyze(context.Background(), "github.com/octocat/hello", Options{})
	require.NoError(t, err)
	go drainEvents(sess)

	_, err = sess.Wait()
	assert.ErrorIs(t, err, ErrNoFilesFound)
}

func TestAnalyzeRepoNotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message": "Not Found"}`, http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client, err := githubapi.New(githubapi.Config{APIBaseURL: srv.URL, RawBaseURL: srv.URL + "/raw"}, nil)
	require.NoError(t, err)

	svc := NewService(client, zap.NewNop())
	sess, err := svc.Analyze(context.Background(), "github.com/nobody/nothing", Options{})
	require.NoError(t, err)
	go drainEvents(sess)

	_, err = sess.Wait()
	assert.ErrorIs(t, err, githubapi.ErrRepoNotFound)
}

func TestAnalyzeInvalidURL(t *testing.T) {
	svc := NewService(nil, zap.NewNop())
	_, err := svc.Analyze(context.Background(), "https://gitlab.com/owner/repo", Options{})
	assert.ErrorIs(t, err, ErrInvalidURL)
}

func TestAnalyzeBranchOverride(t *testing.T) {
	repo := &fakeRepo{defaultBranch: "main"}
	repo.addFile("main.go", "package main\n")

	svc := NewService(newFakeClient(t, repo), zap.NewNop())
	sess, err := svc.Analyze(context.Background(), "github.com/octocat/hello", Options{Branch: "develop"})
	require.NoError(t, err)
	go drainEvents(sess)

	res, err := sess.Wait()
	require.NoError(t, err)
	assert.Equal(t, "develop", res.Branch)
}

func TestCancelAfterFirstBatch(t *testing.T) {
	repo := &fakeRepo{defaultBranch: "main"}
	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l"} {
		repo.addFile(name+".go", "package "+name+"\n")
	}

	client := newFakeClient(t, repo)
	ref := repourl.RepoRef{Owner: "octocat", Repo: "hello"}
	sess := newSession(context.Background(), ref, Options{}, client, zap.NewNop())
	sess.batchDone = func(attempted int) {
		if attempted == batchSize {
			sess.Cancel()
		}
	}

	go sess.run()
	go drainEvents(sess)

	res, err := sess.Wait()
	require.NoError(t, err, "cancellation is not an error")
	require.NotNil(t, res)
	assert.True(t, res.Cancelled)

	// Exactly the first batch made it into the corpus.
	files := corpus.Split(res.Corpus)
	require.Len(t, files, batchSize)
	assert.Equal(t, []string{"a.go", "b.go", "c.go", "d.go", "e.go"}, []string{
		files[0].Path, files[1].Path, files[2].Path, files[3].Path, files[4].Path,
	})

	byStatus := map[FileStatus]int{}
	for _, rec := range res.Files {
		byStatus[rec.Status]++
	}
	assert.Equal(t, batchSize, byStatus[StatusSuccess])
	assert.Equal(t, 7, byStatus[StatusPending])
	assert.Zero(t, byStatus[StatusError])
}

func TestAnalyzeCancelsPreviousSession(t *testing.T) {
	block := make(chan struct{})
	t.Cleanup(func() { close(block) })

	slow := &fakeRepo{defaultBranch: "main", block: block}
	slow.addFile("main.go", "package main\n")

	fast := &fakeRepo{defaultBranch: "main"}
	fast.addFile("main.go", "package main\n")

	svc := NewService(newFakeClient(t, slow), zap.NewNop())
	first, err := svc.Analyze(context.Background(), "github.com/octocat/hello", Options{})
	require.NoError(t, err)
	go drainEvents(first)

	// The second session takes over and cancels the first.
	svc2 := &Service{client: newFakeClient(t, fast), logger: zap.NewNop()}
	svc2.current = first
	second, err := svc2.Analyze(context.Background(), "github.com/octocat/hello", Options{})
	require.NoError(t, err)
	go drainEvents(second)

	res, err := first.Wait()
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.True(t, res.Cancelled)

	res2, err := second.Wait()
	require.NoError(t, err)
	assert.False(t, res2.Cancelled)
}

func TestProgressEvents(t *testing.T) {
	repo := &fakeRepo{defaultBranch: "main"}
	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		repo.addFile(name+".go", "package "+name+"\n")
	}

	svc := NewService(newFakeClient(t, repo), zap.NewNop())
	sess, err := svc.Analyze(context.Background(), "github.com/octocat/hello", Options{})
	require.NoError(t, err)

	events := drainEvents(sess)
	_, err = sess.Wait()
	require.NoError(t, err)

	var progress []Event
	for _, ev := range events {
		if ev.Kind == EventProgress {
			progress = append(progress, ev)
		}
	}
	require.Len(t, progress, 2)
	assert.Equal(t, 5, progress[0].Completed)
	assert.Equal(t, 7, progress[0].Total)
	assert.Equal(t, 7, progress[1].Completed)
	assert.Equal(t, 7, progress[1].Total)
}
