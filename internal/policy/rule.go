package policy

import (
	"sort"
	"time"

	"orgaudit/internal/graph"
	"orgaudit/internal/permissions"
)

// Severity ranks how serious a rule's violations are.
type Severity string

const (
	SeverityHidden  Severity = "hidden"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Rank orders severities for threshold comparisons (hidden < warning < error).
func (s Severity) Rank() int {
	switch s {
	case SeverityError:
		return 2
	case SeverityWarning:
		return 1
	default:
		return 0
	}
}

// Descriptor identifies a rule. ID is the stable diagnostic id used for
// fingerprints and issue labels; Title and Severity are display-only and
// may change without perturbing violation identity.
type Descriptor struct {
	ID       string
	Title    string
	Severity Severity
}

// Context carries the audited graph and the policy knobs rules consult.
// Rules must treat everything here as read-only.
type Context struct {
	Org      *graph.Org
	Resolver *permissions.Resolver

	MaxMaintainers int
	MarkerTeams    []string
	StaleAfter     time.Duration
}

// IsMarkerTeam reports whether the team is configured as a marker team
// (a tagging-only team expected to grant no real access).
func (c *Context) IsMarkerTeam(t *graph.Team) bool {
	for _, name := range c.MarkerTeams {
		if t.Name == name || t.Slug == name {
			return true
		}
	}
	return false
}

// Rule is a pure predicate over the org graph. Check must not mutate the
// graph and should return violations in a stable order.
type Rule interface {
	Descriptor() Descriptor
	Check(ctx *Context) []Violation
}

var registry []Rule

// Register adds a rule to the static registry. Built-in rules call this
// from init; the set is fixed by the time main runs.
func Register(r Rule) {
	registry = append(registry, r)
}

// Rules returns the registered rules sorted by descriptor id.
func Rules() []Rule {
	out := make([]Rule, len(registry))
	copy(out, registry)
	sort.Slice(out, func(i, j int) bool {
		return out[i].Descriptor().ID < out[j].Descriptor().ID
	})
	return out
}

// Engine runs a set of rules against one graph snapshot.
type Engine struct {
	rules []Rule
}

// NewEngine selects rules by descriptor id; an empty filter selects every
// registered rule.
func NewEngine(only []string) *Engine {
	all := Rules()
	if len(only) == 0 {
		return &Engine{rules: all}
	}
	wanted := make(map[string]bool, len(only))
	for _, id := range only {
		wanted[id] = true
	}
	var selected []Rule
	for _, r := range all {
		if wanted[r.Descriptor().ID] {
			selected = append(selected, r)
		}
	}
	return &Engine{rules: selected}
}

// Rules returns the engine's selected rules.
func (e *Engine) Rules() []Rule { return e.rules }

// Run evaluates every rule and concatenates the results. Each rule's own
// output is sorted by fingerprint so repeated runs diff cleanly, and every
// violation's assignees are resolved through DefaultAssignees, so explicit
// assignees are filtered to org members and the fallback tiers apply when
// none survive.
func (e *Engine) Run(ctx *Context) []Violation {
	var all []Violation
	for _, r := range e.rules {
		vs := r.Check(ctx)
		sort.Slice(vs, func(i, j int) bool {
			return vs[i].Fingerprint().String() < vs[j].Fingerprint().String()
		})
		for i := range vs {
			vs[i].Assignees = DefaultAssignees(&vs[i], ctx.Org)
		}
		all = append(all, vs...)
	}
	return all
}
