package gh

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/go-github/v71/github"

	"orgaudit/internal/reconcile"
)

// Tracker drives the issue tracker of a single repo through the GitHub
// API. It satisfies reconcile.IssueClient.
type Tracker struct {
	gh    *github.Client
	owner string
	repo  string
}

// NewTracker creates a tracker for owner/repo.
func NewTracker(client *github.Client, owner, repo string) *Tracker {
	return &Tracker{gh: client, owner: owner, repo: repo}
}

func (t *Tracker) ListLabels(ctx context.Context) ([]reconcile.Label, error) {
	opts := &github.ListOptions{PerPage: pageSize}
	var out []reconcile.Label
	for {
		labels, resp, err := t.gh.Issues.ListLabels(ctx, t.owner, t.repo, opts)
		if err != nil {
			return nil, fmt.Errorf("listing labels: %w", err)
		}
		for _, l := range labels {
			out = append(out, reconcile.Label{
				Name:        l.GetName(),
				Color:       l.GetColor(),
				Description: l.GetDescription(),
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return out, nil
}

func (t *Tracker) CreateLabel(ctx context.Context, l reconcile.Label) error {
	_, _, err := t.gh.Issues.CreateLabel(ctx, t.owner, t.repo, &github.Label{
		Name:        github.Ptr(l.Name),
		Color:       github.Ptr(l.Color),
		Description: github.Ptr(l.Description),
	})
	if err != nil {
		return fmt.Errorf("creating label %q: %w", l.Name, err)
	}
	return nil
}

// ListIssues returns every issue carrying the marker label, open and
// closed. Pull requests share the issue number space and are skipped.
func (t *Tracker) ListIssues(ctx context.Context, markerLabel string) ([]reconcile.Issue, error) {
	opts := &github.IssueListByRepoOptions{
		State:       "all",
		Labels:      []string{markerLabel},
		ListOptions: github.ListOptions{PerPage: pageSize},
	}
	var out []reconcile.Issue
	for {
		issues, resp, err := t.gh.Issues.ListByRepo(ctx, t.owner, t.repo, opts)
		if err != nil {
			return nil, fmt.Errorf("listing issues: %w", err)
		}
		for _, is := range issues {
			if is.IsPullRequest() {
				continue
			}
			rec := reconcile.Issue{
				Number: is.GetNumber(),
				Title:  is.GetTitle(),
				Body:   is.GetBody(),
				State:  is.GetState(),
			}
			for _, l := range is.Labels {
				rec.Labels = append(rec.Labels, l.GetName())
			}
			out = append(out, rec)
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return out, nil
}

func (t *Tracker) CreateIssue(ctx context.Context, n reconcile.NewIssue) (reconcile.Issue, error) {
	req := &github.IssueRequest{
		Title:  github.Ptr(n.Title),
		Body:   github.Ptr(n.Body),
		Labels: &n.Labels,
	}
	if len(n.Assignees) > 0 {
		req.Assignees = &n.Assignees
	}
	is, _, err := t.gh.Issues.Create(ctx, t.owner, t.repo, req)
	if err != nil {
		return reconcile.Issue{}, retryable(fmt.Errorf("creating issue %q: %w", n.Title, err))
	}
	return reconcile.Issue{
		Number: is.GetNumber(),
		Title:  is.GetTitle(),
		Body:   is.GetBody(),
		State:  is.GetState(),
		Labels: n.Labels,
	}, nil
}

func (t *Tracker) AddComment(ctx context.Context, number int, body string) error {
	_, _, err := t.gh.Issues.CreateComment(ctx, t.owner, t.repo, number, &github.IssueComment{
		Body: github.Ptr(body),
	})
	if err != nil {
		return fmt.Errorf("commenting on issue #%d: %w", number, err)
	}
	return nil
}

func (t *Tracker) UpdateState(ctx context.Context, number int, state string) error {
	_, _, err := t.gh.Issues.Edit(ctx, t.owner, t.repo, number, &github.IssueRequest{
		State: github.Ptr(state),
	})
	if err != nil {
		return fmt.Errorf("setting issue #%d to %s: %w", number, state, err)
	}
	return nil
}

// retryable wraps abuse and rate-limit responses as reconcile.RetryableError
// so the engine backs off instead of aborting. Other errors pass through.
func retryable(err error) error {
	var abuse *github.AbuseRateLimitError
	if errors.As(err, &abuse) {
		var after time.Duration
		if abuse.RetryAfter != nil {
			after = *abuse.RetryAfter
		}
		return &reconcile.RetryableError{RetryAfter: after, Err: err}
	}
	var rate *github.RateLimitError
	if errors.As(err, &rate) {
		return &reconcile.RetryableError{RetryAfter: time.Until(rate.Rate.Reset.Time), Err: err}
	}
	return err
}
