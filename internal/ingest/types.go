package ingest

import "errors"

// Session-level failures. Per-file download errors never surface
// here; they are reported through FileRecord statuses instead.
var (
	ErrInvalidURL     = errors.New("not a valid GitHub repository URL")
	ErrNoFilesFound   = errors.New("no matching files found in repository")
	ErrDownloadFailed = errors.New("all file downloads failed")
)

// FileStatus tracks one selected file through the download pipeline.
type FileStatus string

const (
	// StatusPending is set for every selected file before the first
	// batch starts.
	StatusPending FileStatus = "pending"
	// StatusSuccess means the file's content made it into the corpus.
	StatusSuccess FileStatus = "success"
	// StatusError means the download failed; the session continues
	// without this file.
	StatusError FileStatus = "error"
)

// FileRecord is the externally visible state of one selected file.
type FileRecord struct {
	Path   string     `json:"path"`
	Status FileStatus `json:"status"`
	// Size in bytes as reported by the tree listing, zero when the
	// provider omitted it.
	Size int64 `json:"size,omitempty"`
	// Error holds the failure description for StatusError records.
	Error string `json:"error,omitempty"`
	// Truncated is set when the content was cut at the per-file
	// character cap.
	Truncated bool `json:"truncated,omitempty"`
}

// EventKind discriminates session events.
type EventKind string

const (
	// EventPhase marks a transition between pipeline stages
	// (metadata, tree, download, assemble, done).
	EventPhase EventKind = "phase"
	// EventFile reports a single file's status change.
	EventFile EventKind = "file"
	// EventProgress reports download progress as completed/total.
	EventProgress EventKind = "progress"
	// EventWarning reports a non-fatal anomaly, such as a truncated
	// tree listing.
	EventWarning EventKind = "warning"
)

// Event is one entry of a session's event stream. The channel is
// buffered; when the caller falls behind, events are dropped rather
// than blocking the pipeline, so consumers must treat the stream as
// advisory and read final state from the Result.
type Event struct {
	Kind EventKind `json:"kind"`

	// Phase is set for EventPhase events.
	Phase string `json:"phase,omitempty"`
	// File is set for EventFile events.
	File *FileRecord `json:"file,omitempty"`
	// Completed and Total are set for EventProgress events.
	Completed int `json:"completed,omitempty"`
	Total     int `json:"total,omitempty"`
	// Message is set for EventWarning events.
	Message string `json:"message,omitempty"`
}
