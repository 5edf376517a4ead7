package download

import (
	"fmt"

	"github.com/agnosto/redditrip/posts"
	"github.com/agnosto/redditrip/sites"
)

// Outcome is the terminal state of one job. Every eligible post
// reports exactly one.
type Outcome int

const (
	OutcomeCompleted Outcome = iota
	OutcomeSkipped
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeFailed:
		return "failed"
	}
	return "unknown"
}

// Event is one per-job terminal notification, emitted live for
// progress reporting.
type Event struct {
	PostID  string
	Path    string
	Outcome Outcome
	Err     error
}

// FailureDetail carries enough context to diagnose a failed job
// without re-running with higher verbosity.
type FailureDetail struct {
	PostID string
	URL    string
	Stage  string
	Err    error
}

func (d FailureDetail) Error() string {
	return fmt.Sprintf("post %s (%s) failed during %s: %v", d.PostID, d.URL, d.Stage, d.Err)
}

// Summary aggregates the run. Failures are appended as jobs finish.
type Summary struct {
	Completed int
	Skipped   int
	Failed    int
	Bytes     int64
	Failures  []FailureDetail
}

// Merge folds another summary into this one.
func (s *Summary) Merge(other Summary) {
	s.Completed += other.Completed
	s.Skipped += other.Skipped
	s.Failed += other.Failed
	s.Bytes += other.Bytes
	s.Failures = append(s.Failures, other.Failures...)
}

// job is the unit of work: one post, one handler, one destination.
type job struct {
	post    posts.Post
	handler sites.Handler
	dest    string
}
