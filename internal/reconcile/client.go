package reconcile

import (
	"context"
	"fmt"
	"time"
)

// Label is a tracker label.
type Label struct {
	Name        string
	Color       string
	Description string
}

// Issue is an existing tracking issue.
type Issue struct {
	Number int
	Title  string
	Body   string
	State  string // "open" or "closed"
	Labels []string
}

// HasLabel reports whether the issue carries the named label.
func (i Issue) HasLabel(name string) bool {
	for _, l := range i.Labels {
		if l == name {
			return true
		}
	}
	return false
}

// NewIssue is a tracking issue to be created.
type NewIssue struct {
	Title     string
	Body      string
	Labels    []string
	Assignees []string
}

// IssueClient is the tracker surface the engine drives. Implementations
// must return RetryableError for transient abuse/rate-limit signals on
// create so the engine can back off and retry.
type IssueClient interface {
	ListLabels(ctx context.Context) ([]Label, error)
	CreateLabel(ctx context.Context, l Label) error
	ListIssues(ctx context.Context, markerLabel string) ([]Issue, error)
	CreateIssue(ctx context.Context, n NewIssue) (Issue, error)
	AddComment(ctx context.Context, number int, body string) error
	UpdateState(ctx context.Context, number int, state string) error
}

// RetryableError wraps a transient tracker failure with the cooldown the
// tracker asked for (zero means "use the engine's fallback").
type RetryableError struct {
	RetryAfter time.Duration
	Err        error
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("tracker asked to retry after %s: %v", e.RetryAfter, e.Err)
}

func (e *RetryableError) Unwrap() error { return e.Err }
