package reconcile

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"orgaudit/internal/policy"
)

// Engine keeps a tracking-issue repo consistent with the current violation
// set: one issue per violation fingerprint, created when the violation
// appears, reopened when it comes back, closed when it goes away, and left
// alone when a human closed it with the override label.
type Engine struct {
	client IssueClient

	// MarkerLabel tags every issue this engine manages; OverrideLabel on a
	// closed issue suppresses reopening.
	MarkerLabel   string
	OverrideLabel string

	// RetryFallback is the cooldown used when the tracker signals abuse
	// without naming one. MaxAttempts bounds create retries.
	RetryFallback time.Duration
	MaxAttempts   int

	sleep func(time.Duration)
}

// NewEngine creates an engine with the standard labels and retry policy.
func NewEngine(client IssueClient) *Engine {
	return &Engine{
		client:        client,
		MarkerLabel:   "policy-violation",
		OverrideLabel: "policy-override",
		RetryFallback: 20 * time.Second,
		MaxAttempts:   3,
		sleep:         time.Sleep,
	}
}

// Summary counts what one reconciliation pass did.
type Summary struct {
	Created    int
	Reopened   int
	Closed     int
	Unchanged  int
	Overridden int
}

func (s Summary) String() string {
	return fmt.Sprintf("%d created, %d reopened, %d closed, %d unchanged, %d overridden",
		s.Created, s.Reopened, s.Closed, s.Unchanged, s.Overridden)
}

// ActionKind is a planned tracker mutation.
type ActionKind int

const (
	ActionCreate ActionKind = iota
	ActionReopen
	ActionClose
)

func (k ActionKind) String() string {
	switch k {
	case ActionCreate:
		return "create"
	case ActionReopen:
		return "reopen"
	default:
		return "close"
	}
}

// Action is one planned create/reopen/close operation.
type Action struct {
	Kind        ActionKind
	Fingerprint uuid.UUID
	Title       string
	IssueNumber int // existing issue, for reopen/close
	Violation   *policy.Violation
}

// fingerprintPattern matches the trailing "(<uuid>)" suffix in a managed
// issue title. Issues whose titles do not parse are ignored entirely.
var fingerprintPattern = regexp.MustCompile(`\(([0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12})\)\s*$`)

// ParseFingerprint recovers a violation fingerprint from an issue title.
func ParseFingerprint(title string) (uuid.UUID, bool) {
	m := fingerprintPattern.FindStringSubmatch(title)
	if m == nil {
		return uuid.UUID{}, false
	}
	id, err := uuid.Parse(m[1])
	if err != nil {
		return uuid.UUID{}, false
	}
	return id, true
}

// IssueTitle renders the tracked title for a violation, embedding its
// fingerprint where ParseFingerprint can recover it.
func IssueTitle(v *policy.Violation) string {
	return fmt.Sprintf("%s (%s)", v.Title, v.Fingerprint())
}

// IssueBody renders the issue body: the rule body text plus the assignees.
func IssueBody(v *policy.Violation) string {
	var b strings.Builder
	b.WriteString(v.Body)
	if logins := v.AssigneeLogins(); len(logins) > 0 {
		b.WriteString("\n\n### Assignees\n")
		for _, login := range logins {
			fmt.Fprintf(&b, "- @%s\n", login)
		}
	}
	return b.String()
}

// Plan diffs the violation set against the existing issues and returns the
// create/reopen/close operations needed, in that order, plus the summary
// counts including the no-op states. Plan performs no tracker calls.
func (e *Engine) Plan(issues []Issue, violations []policy.Violation) ([]Action, Summary) {
	byFingerprint := make(map[uuid.UUID]Issue)
	for _, is := range issues {
		if fp, ok := ParseFingerprint(is.Title); ok {
			byFingerprint[fp] = is
		}
	}

	var actions []Action
	var sum Summary
	current := make(map[uuid.UUID]bool, len(violations))

	for i := range violations {
		v := &violations[i]
		fp := v.Fingerprint()
		// A rule emitting duplicates must not yield duplicate issues;
		// one action per fingerprint.
		if current[fp] {
			continue
		}
		current[fp] = true
		is, exists := byFingerprint[fp]
		switch {
		case !exists:
			actions = append(actions, Action{Kind: ActionCreate, Fingerprint: fp, Title: IssueTitle(v), Violation: v})
			sum.Created++
		case is.State == "closed" && is.HasLabel(e.OverrideLabel):
			sum.Overridden++
		case is.State == "closed":
			actions = append(actions, Action{Kind: ActionReopen, Fingerprint: fp, Title: is.Title, IssueNumber: is.Number, Violation: v})
			sum.Reopened++
		default:
			sum.Unchanged++
		}
	}

	for fp, is := range byFingerprint {
		if !current[fp] && is.State == "open" {
			actions = append(actions, Action{Kind: ActionClose, Fingerprint: fp, Title: is.Title, IssueNumber: is.Number})
			sum.Closed++
		}
	}

	// Creates first, then reopens, then closes; map iteration above makes
	// close order unstable, so pin it by issue number. Stable sort keeps
	// creates (all issue number 0) in violation order.
	sort.SliceStable(actions, func(i, j int) bool {
		if actions[i].Kind != actions[j].Kind {
			return actions[i].Kind < actions[j].Kind
		}
		return actions[i].IssueNumber < actions[j].IssueNumber
	})
	return actions, sum
}

// Reconcile provisions labels, then executes the plan against the tracker.
// Labels are provisioned before any issue call so creates can reference
// them. Transient abuse errors on create are retried with the tracker's
// cooldown; any other error aborts with no rollback.
func (e *Engine) Reconcile(ctx context.Context, violations []policy.Violation) (Summary, error) {
	if err := e.ensureLabels(ctx, violations); err != nil {
		return Summary{}, err
	}

	issues, err := e.client.ListIssues(ctx, e.MarkerLabel)
	if err != nil {
		return Summary{}, fmt.Errorf("listing tracking issues: %w", err)
	}

	actions, sum := e.Plan(issues, violations)
	for _, a := range actions {
		switch a.Kind {
		case ActionCreate:
			if err := e.createWithRetry(ctx, a.Violation); err != nil {
				return sum, err
			}
		case ActionReopen:
			if err := e.client.UpdateState(ctx, a.IssueNumber, "open"); err != nil {
				return sum, fmt.Errorf("reopening issue #%d: %w", a.IssueNumber, err)
			}
			if err := e.client.AddComment(ctx, a.IssueNumber, "The violation still exists; reopening."); err != nil {
				return sum, fmt.Errorf("commenting on issue #%d: %w", a.IssueNumber, err)
			}
		case ActionClose:
			if err := e.client.UpdateState(ctx, a.IssueNumber, "closed"); err != nil {
				return sum, fmt.Errorf("closing issue #%d: %w", a.IssueNumber, err)
			}
			if err := e.client.AddComment(ctx, a.IssueNumber, "The violation was addressed; closing."); err != nil {
				return sum, fmt.Errorf("commenting on issue #%d: %w", a.IssueNumber, err)
			}
		}
	}
	return sum, nil
}

// ensureLabels creates any missing marker, override, and rule-id labels.
func (e *Engine) ensureLabels(ctx context.Context, violations []policy.Violation) error {
	existing, err := e.client.ListLabels(ctx)
	if err != nil {
		return fmt.Errorf("listing labels: %w", err)
	}
	have := make(map[string]bool, len(existing))
	for _, l := range existing {
		have[l.Name] = true
	}

	needed := []Label{
		{Name: e.MarkerLabel, Color: "d93f0b", Description: "Tracked governance violation"},
		{Name: e.OverrideLabel, Color: "5319e7", Description: "Suppressed by a human decision"},
	}
	seen := make(map[string]bool)
	for i := range violations {
		d := violations[i].Descriptor
		if seen[d.ID] {
			continue
		}
		seen[d.ID] = true
		color, desc := SeverityColor(d.Severity)
		needed = append(needed, Label{Name: d.ID, Color: color, Description: desc})
	}

	for _, l := range needed {
		if have[l.Name] {
			continue
		}
		if err := e.client.CreateLabel(ctx, l); err != nil {
			return fmt.Errorf("creating label %q: %w", l.Name, err)
		}
	}
	return nil
}

func (e *Engine) createWithRetry(ctx context.Context, v *policy.Violation) error {
	n := NewIssue{
		Title:     IssueTitle(v),
		Body:      IssueBody(v),
		Labels:    []string{e.MarkerLabel, v.Descriptor.ID},
		Assignees: v.AssigneeLogins(),
	}
	var lastErr error
	for attempt := 0; attempt < e.MaxAttempts; attempt++ {
		_, err := e.client.CreateIssue(ctx, n)
		if err == nil {
			return nil
		}
		var retryable *RetryableError
		if !errors.As(err, &retryable) {
			return fmt.Errorf("creating issue for %s: %w", v.Fingerprint(), err)
		}
		lastErr = err
		cooldown := retryable.RetryAfter
		if cooldown <= 0 {
			cooldown = e.RetryFallback
		}
		e.sleep(cooldown)
	}
	return fmt.Errorf("creating issue for %s: retries exhausted: %w", v.Fingerprint(), lastErr)
}
