package reconcile

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"orgaudit/internal/graph"
	"orgaudit/internal/policy"
	"orgaudit/internal/snapshot"
)

// fakeClient is an in-memory IssueClient that records every mutation.
type fakeClient struct {
	labels []Label
	issues []Issue

	createErrs   []error // popped per CreateIssue call before succeeding
	labelCreates int
	issueCreates int
	stateUpdates []string // "number:state"
	comments     []int
	nextNumber   int
}

func (f *fakeClient) ListLabels(ctx context.Context) ([]Label, error) {
	return append([]Label(nil), f.labels...), nil
}

func (f *fakeClient) CreateLabel(ctx context.Context, l Label) error {
	f.labelCreates++
	f.labels = append(f.labels, l)
	return nil
}

func (f *fakeClient) ListIssues(ctx context.Context, markerLabel string) ([]Issue, error) {
	return append([]Issue(nil), f.issues...), nil
}

func (f *fakeClient) CreateIssue(ctx context.Context, n NewIssue) (Issue, error) {
	if len(f.createErrs) > 0 {
		err := f.createErrs[0]
		f.createErrs = f.createErrs[1:]
		if err != nil {
			return Issue{}, err
		}
	}
	f.issueCreates++
	f.nextNumber++
	is := Issue{Number: f.nextNumber, Title: n.Title, Body: n.Body, State: "open", Labels: n.Labels}
	f.issues = append(f.issues, is)
	return is, nil
}

func (f *fakeClient) AddComment(ctx context.Context, number int, body string) error {
	f.comments = append(f.comments, number)
	return nil
}

func (f *fakeClient) UpdateState(ctx context.Context, number int, state string) error {
	f.stateUpdates = append(f.stateUpdates, fmt.Sprintf("%d:%s", number, state))
	for i := range f.issues {
		if f.issues[i].Number == number {
			f.issues[i].State = state
		}
	}
	return nil
}

func testViolations(t *testing.T) []policy.Violation {
	t.Helper()
	org, err := graph.Build(&snapshot.Org{
		Name:  "contoso",
		Repos: []snapshot.Repo{{Name: "api"}, {Name: "web"}},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return []policy.Violation{
		{
			Descriptor: policy.Descriptor{ID: "OA06", Title: "Archived repo", Severity: policy.SeverityWarning},
			Title:      "Archived repo 'api' still has write grants",
			Body:       "Remove the grants.",
			Repo:       org.Repo("api"),
		},
		{
			Descriptor: policy.Descriptor{ID: "OA03", Title: "Admin collaborator", Severity: policy.SeverityError},
			Title:      "'alice' is a direct admin on 'web'",
			Body:       "Use a team.",
			Repo:       org.Repo("web"),
		},
	}
}

func newTestEngine(client IssueClient) (*Engine, *[]time.Duration) {
	e := NewEngine(client)
	var slept []time.Duration
	e.sleep = func(d time.Duration) { slept = append(slept, d) }
	return e, &slept
}

func TestReconcileConvergence(t *testing.T) {
	client := &fakeClient{}
	e, _ := newTestEngine(client)
	vs := testViolations(t)

	sum, err := e.Reconcile(context.Background(), vs)
	if err != nil {
		t.Fatalf("first Reconcile: %v", err)
	}
	if sum.Created != len(vs) {
		t.Errorf("first pass created %d, want %d", sum.Created, len(vs))
	}

	sum, err = e.Reconcile(context.Background(), vs)
	if err != nil {
		t.Fatalf("second Reconcile: %v", err)
	}
	if sum.Created != 0 || sum.Reopened != 0 || sum.Closed != 0 {
		t.Errorf("second pass not a no-op: %s", sum)
	}
	if sum.Unchanged != len(vs) {
		t.Errorf("second pass unchanged = %d, want %d", sum.Unchanged, len(vs))
	}
	if client.issueCreates != len(vs) {
		t.Errorf("tracker saw %d creates total, want %d", client.issueCreates, len(vs))
	}
}

func TestPlanDeduplicatesFingerprints(t *testing.T) {
	client := &fakeClient{}
	e, _ := newTestEngine(client)

	vs := testViolations(t)
	vs = append(vs, vs[0]) // same subject, same fingerprint

	actions, sum := e.Plan(nil, vs)
	if len(actions) != 2 || sum.Created != 2 {
		t.Fatalf("got %d actions (%d created), want one per distinct fingerprint", len(actions), sum.Created)
	}

	sum, err := e.Reconcile(context.Background(), vs)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if client.issueCreates != 2 {
		t.Errorf("created %d issues, want 2 (duplicate violation collapsed)", client.issueCreates)
	}
	if sum.Created != 2 {
		t.Errorf("summary created = %d, want 2", sum.Created)
	}
}

func TestReconcileReopensClosedIssue(t *testing.T) {
	client := &fakeClient{}
	e, _ := newTestEngine(client)
	vs := testViolations(t)

	if _, err := e.Reconcile(context.Background(), vs); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	// Someone closes an issue while the violation persists.
	client.issues[0].State = "closed"
	client.stateUpdates = nil
	client.comments = nil

	sum, err := e.Reconcile(context.Background(), vs)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if sum.Reopened != 1 {
		t.Errorf("reopened = %d, want 1", sum.Reopened)
	}
	if len(client.stateUpdates) != 1 || client.stateUpdates[0] != "1:open" {
		t.Errorf("state updates = %v, want [1:open]", client.stateUpdates)
	}
	if len(client.comments) != 1 {
		t.Errorf("comments = %v, want one on the reopened issue", client.comments)
	}
}

func TestReconcileClosesResolvedIssue(t *testing.T) {
	client := &fakeClient{}
	e, _ := newTestEngine(client)
	vs := testViolations(t)

	if _, err := e.Reconcile(context.Background(), vs); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	client.stateUpdates = nil

	// First violation is fixed.
	sum, err := e.Reconcile(context.Background(), vs[1:])
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if sum.Closed != 1 {
		t.Errorf("closed = %d, want 1", sum.Closed)
	}
	if len(client.stateUpdates) != 1 || client.stateUpdates[0] != "1:closed" {
		t.Errorf("state updates = %v, want [1:closed]", client.stateUpdates)
	}
}

func TestReconcileRespectsOverride(t *testing.T) {
	client := &fakeClient{}
	e, _ := newTestEngine(client)
	vs := testViolations(t)

	if _, err := e.Reconcile(context.Background(), vs); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	// A human closes the issue and marks it overridden.
	client.issues[0].State = "closed"
	client.issues[0].Labels = append(client.issues[0].Labels, e.OverrideLabel)
	client.stateUpdates = nil

	sum, err := e.Reconcile(context.Background(), vs)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if sum.Overridden != 1 {
		t.Errorf("overridden = %d, want 1", sum.Overridden)
	}
	if sum.Reopened != 0 || len(client.stateUpdates) != 0 {
		t.Errorf("override was not respected: %s, updates %v", sum, client.stateUpdates)
	}
}

func TestReconcileIgnoresUnparsableTitles(t *testing.T) {
	client := &fakeClient{
		issues: []Issue{{Number: 7, Title: "hand-filed issue without a fingerprint", State: "open"}},
	}
	e, _ := newTestEngine(client)

	sum, err := e.Reconcile(context.Background(), nil)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if sum.Closed != 0 {
		t.Errorf("closed = %d, want 0 (unparsable issues are not managed)", sum.Closed)
	}
}

func TestReconcileProvisionsLabelsOnce(t *testing.T) {
	client := &fakeClient{}
	e, _ := newTestEngine(client)
	vs := testViolations(t)

	if _, err := e.Reconcile(context.Background(), vs); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	// marker + override + two distinct rule ids
	if client.labelCreates != 4 {
		t.Errorf("label creates = %d, want 4", client.labelCreates)
	}

	if _, err := e.Reconcile(context.Background(), vs); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if client.labelCreates != 4 {
		t.Errorf("label creates after second pass = %d, want 4 (no duplicates)", client.labelCreates)
	}
}

func TestCreateRetriesOnAbuse(t *testing.T) {
	client := &fakeClient{
		createErrs: []error{
			&RetryableError{RetryAfter: 5 * time.Second, Err: errors.New("abuse detected")},
			&RetryableError{Err: errors.New("abuse detected")},
		},
	}
	e, slept := newTestEngine(client)
	vs := testViolations(t)[:1]

	sum, err := e.Reconcile(context.Background(), vs)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if sum.Created != 1 {
		t.Errorf("created = %d, want 1 after retries", sum.Created)
	}
	if len(*slept) != 2 {
		t.Fatalf("slept %d times, want 2", len(*slept))
	}
	if (*slept)[0] != 5*time.Second {
		t.Errorf("first cooldown = %v, want the tracker-specified 5s", (*slept)[0])
	}
	if (*slept)[1] != e.RetryFallback {
		t.Errorf("second cooldown = %v, want the fallback %v", (*slept)[1], e.RetryFallback)
	}
}

func TestCreateRetriesExhausted(t *testing.T) {
	client := &fakeClient{
		createErrs: []error{
			&RetryableError{Err: errors.New("abuse")},
			&RetryableError{Err: errors.New("abuse")},
			&RetryableError{Err: errors.New("abuse")},
		},
	}
	e, _ := newTestEngine(client)

	_, err := e.Reconcile(context.Background(), testViolations(t)[:1])
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
}

func TestCreateNonRetryableErrorAborts(t *testing.T) {
	client := &fakeClient{createErrs: []error{errors.New("forbidden")}}
	e, slept := newTestEngine(client)

	_, err := e.Reconcile(context.Background(), testViolations(t)[:1])
	if err == nil {
		t.Fatal("expected permanent error to propagate")
	}
	if len(*slept) != 0 {
		t.Errorf("slept %d times, want 0 for a permanent error", len(*slept))
	}
}

func TestParseFingerprint(t *testing.T) {
	vs := testViolations(t)
	title := IssueTitle(&vs[0])
	fp, ok := ParseFingerprint(title)
	if !ok {
		t.Fatalf("ParseFingerprint(%q) failed", title)
	}
	if fp != vs[0].Fingerprint() {
		t.Errorf("recovered %s, want %s", fp, vs[0].Fingerprint())
	}

	for _, bad := range []string{
		"no fingerprint here",
		"trailing text (deadbeef)",
		"(not-a-uuid-at-all-but-parenthesized)",
	} {
		if _, ok := ParseFingerprint(bad); ok {
			t.Errorf("ParseFingerprint(%q) = ok, want failure", bad)
		}
	}
}

func TestIssueBodyRendersAssignees(t *testing.T) {
	org, err := graph.Build(&snapshot.Org{
		Name:  "contoso",
		Users: []snapshot.User{{Login: "alice", IsMember: true}},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	v := policy.Violation{
		Descriptor: policy.Descriptor{ID: "OA01"},
		Body:       "Fix it.",
		Assignees:  []*graph.User{org.User("alice")},
	}
	body := IssueBody(&v)
	want := "Fix it.\n\n### Assignees\n- @alice\n"
	if body != want {
		t.Errorf("IssueBody = %q, want %q", body, want)
	}
}

func TestSeverityColorClosedMapping(t *testing.T) {
	for _, s := range []policy.Severity{policy.SeverityHidden, policy.SeverityWarning, policy.SeverityError} {
		color, desc := SeverityColor(s)
		if color == "" || desc == "" {
			t.Errorf("SeverityColor(%s) incomplete: %q %q", s, color, desc)
		}
	}
	errColor, _ := SeverityColor(policy.SeverityError)
	warnColor, _ := SeverityColor(policy.SeverityWarning)
	if errColor == warnColor {
		t.Error("error and warning should map to distinct colors")
	}
}
