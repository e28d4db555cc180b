package policy

import (
	"crypto/sha256"
	"strings"

	"github.com/google/uuid"

	"orgaudit/internal/graph"
)

// Violation is one finding produced by a rule. Identity across runs is the
// Fingerprint; Title and Body are display text and free to change.
type Violation struct {
	Descriptor Descriptor
	Title      string
	Body       string

	Repo   *graph.Repo
	Team   *graph.Team
	User   *graph.User
	Secret string
	Branch string

	Assignees []*graph.User
}

// Fingerprint derives the violation's stable identity: a 128-bit digest
// over the rule's diagnostic id and the subject keys, rendered as a UUID.
//
// The input is a newline-joined sequence of ruleID, org, repo, user, team;
// secret and branch are appended only when present. New optional fields
// must always be appended, never inserted, so fingerprints of violations
// that predate them stay stable.
func (v *Violation) Fingerprint() uuid.UUID {
	parts := []string{
		v.Descriptor.ID,
		v.orgName(),
		v.repoName(),
		v.userLogin(),
		v.teamName(),
	}
	if v.Secret != "" {
		parts = append(parts, v.Secret)
	}
	if v.Branch != "" {
		parts = append(parts, v.Branch)
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "\n")))
	id, _ := uuid.FromBytes(sum[:16])
	return id
}

func (v *Violation) orgName() string {
	switch {
	case v.Repo != nil:
		return v.Repo.Org.Name
	case v.Team != nil:
		return v.Team.Org.Name
	case v.User != nil:
		return v.User.Org.Name
	default:
		return ""
	}
}

func (v *Violation) repoName() string {
	if v.Repo == nil {
		return ""
	}
	return v.Repo.Name
}

func (v *Violation) userLogin() string {
	if v.User == nil {
		return ""
	}
	return v.User.Login
}

func (v *Violation) teamName() string {
	if v.Team == nil {
		return ""
	}
	return v.Team.Name
}

// AssigneeLogins returns the assignees' logins in order.
func (v *Violation) AssigneeLogins() []string {
	logins := make([]string, len(v.Assignees))
	for i, u := range v.Assignees {
		logins[i] = u.Login
	}
	return logins
}

// DefaultAssignees picks who should be asked to fix the violation. Explicit
// assignees win, filtered to current org members; when none survive the
// filter the tiers apply: repo administrators (no bots, no owner-only
// access), team maintainers, the subject user if a member, then org owners.
// The first non-empty tier is used.
func DefaultAssignees(v *Violation, org *graph.Org) []*graph.User {
	if members := filterMembers(v.Assignees); len(members) > 0 {
		return members
	}
	if v.Repo != nil {
		var admins []*graph.User
		for _, u := range v.Repo.Administrators(false) {
			if !u.IsBot() {
				admins = append(admins, u)
			}
		}
		if len(admins) > 0 {
			return admins
		}
	}
	if v.Team != nil && len(v.Team.Maintainers) > 0 {
		return v.Team.Maintainers
	}
	if v.User != nil && v.User.IsMember {
		return []*graph.User{v.User}
	}
	return org.Owners()
}

func filterMembers(users []*graph.User) []*graph.User {
	var out []*graph.User
	for _, u := range users {
		if u.IsMember {
			out = append(out, u)
		}
	}
	return out
}
