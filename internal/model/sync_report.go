package model

import "time"

// SyncReport is the outcome of one synchronization of one SyncRoot.
// A traversal runs on a single goroutine, so counters are updated without
// locking; the report is handed to other goroutines only after the run.
type SyncReport struct {
	// Root is the synchronized course.
	Root SyncRoot `json:"root"`

	// OutputDir is the live directory written by the run.
	OutputDir string `json:"output_dir"`

	// StartedAt and FinishedAt bound the run.
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// PagesVisited counts every page fetched and parsed.
	PagesVisited int `json:"pages_visited"`

	// Artifacts counts page text artifacts written.
	Artifacts int `json:"artifacts"`

	// Downloaded counts files fetched with a full GET.
	Downloaded int `json:"downloaded"`

	// Reclaimed counts files moved back from the shadow after a hash match.
	Reclaimed int `json:"reclaimed"`

	// Shortcuts counts URL shortcuts recorded.
	Shortcuts int `json:"shortcuts"`

	// Unhandled counts links no handler recognized.
	Unhandled int `json:"unhandled"`

	// Duplicates counts links skipped because their VisitKey was already handled.
	Duplicates int `json:"duplicates"`

	// Files lists every file written or reclaimed.
	Files []FileRecord `json:"files,omitempty"`

	// Failures lists sub-trees that could not be processed.
	Failures []Failure `json:"failures,omitempty"`

	// Error is set when the root page itself could not be established.
	Error error `json:"-"`

	// ErrorMessage mirrors Error for serialization.
	ErrorMessage string `json:"error,omitempty"`
}

// FileRecord describes one file placed in the live tree.
type FileRecord struct {
	URL       string `json:"url"`
	Path      string `json:"path"`
	ETag      string `json:"etag,omitempty"`
	Reclaimed bool   `json:"reclaimed"`
}

// Failure describes one link or page that failed.
type Failure struct {
	// URL is the failing link.
	URL string `json:"url"`

	// Page is the title (or URL) of the page containing the link.
	Page string `json:"page,omitempty"`

	// Message is the error text.
	Message string `json:"message"`
}

// NewSyncReport creates a report for root, stamped with the current time.
func NewSyncReport(root SyncRoot) *SyncReport {
	return &SyncReport{
		Root:      root,
		StartedAt: time.Now(),
		Files:     make([]FileRecord, 0),
		Failures:  make([]Failure, 0),
	}
}

// AddFile records a file placed in the live tree.
func (r *SyncReport) AddFile(rec FileRecord) {
	if rec.Reclaimed {
		r.Reclaimed++
	} else {
		r.Downloaded++
	}
	r.Files = append(r.Files, rec)
}

// AddFailure records a failed link.
func (r *SyncReport) AddFailure(linkURL, page string, err error) {
	r.Failures = append(r.Failures, Failure{URL: linkURL, Page: page, Message: err.Error()})
}

// SetError marks the run as failed at the root.
func (r *SyncReport) SetError(err error) {
	r.Error = err
	if err != nil {
		r.ErrorMessage = err.Error()
	}
}

// Failed reports whether the root could not be established.
func (r *SyncReport) Failed() bool {
	return r.Error != nil || r.ErrorMessage != ""
}

// Duration returns how long the run took, or zero if it has not finished.
func (r *SyncReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
