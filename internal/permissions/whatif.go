package permissions

import (
	"fmt"

	"orgaudit/internal/graph"
)

// Change classifies the effect of a hypothetical grant edit.
type Change int

const (
	Unchanged Change = iota
	Upgraded
	Downgraded
)

func (c Change) String() string {
	switch c {
	case Upgraded:
		return "upgraded"
	case Downgraded:
		return "downgraded"
	default:
		return "unchanged"
	}
}

// Result is the outcome of a what-if simulation for one user-repo access.
type Result struct {
	Grant *graph.UserGrant
	New   graph.Permission // None means no access
}

// Direction compares the hypothetical permission against the original.
func (r Result) Direction() Change {
	switch {
	case r.New > r.Grant.Permission:
		return Upgraded
	case r.New < r.Grant.Permission:
		return Downgraded
	default:
		return Unchanged
	}
}

// IsUnchanged reports whether the edit would have no effect on this access.
func (r Result) IsUnchanged() bool { return r.Direction() == Unchanged }

func (r Result) String() string {
	switch r.Direction() {
	case Upgraded:
		return fmt.Sprintf("%s on %s: upgraded from %s to %s",
			r.Grant.User.Login, r.Grant.Repo.Name,
			describePermission(r.Grant.Permission), describePermission(r.New))
	case Downgraded:
		return fmt.Sprintf("%s on %s: downgraded from %s to %s",
			r.Grant.User.Login, r.Grant.Repo.Name,
			describePermission(r.Grant.Permission), describePermission(r.New))
	default:
		return fmt.Sprintf("%s on %s: unchanged at %s",
			r.Grant.User.Login, r.Grant.Repo.Name,
			describePermission(r.Grant.Permission))
	}
}

// Rewrite maps a team grant to its hypothetical permission; nil means the
// grant is removed. Direct collaborator grants are never rewritten.
type Rewrite func(*graph.TeamGrant) *graph.Permission

// WhatIf computes the user's hypothetical effective permission on the
// grant's repo under the rewrite, without mutating the graph. Owners are
// immune: their hypothetical permission is always admin.
func (r *Resolver) WhatIf(g *graph.UserGrant, rewrite Rewrite) Result {
	if g == nil || rewrite == nil {
		panic("permissions: nil grant or rewrite")
	}
	return Result{Grant: g, New: r.whatIfEffective(g.User, g.Repo, rewrite)}
}

func (r *Resolver) whatIfEffective(u *graph.User, repo *graph.Repo, rewrite Rewrite) graph.Permission {
	if u.IsOwner {
		return graph.Admin
	}
	max := graph.None
	seeded := false
	for _, dg := range repo.UserGrants {
		if dg.User != u {
			continue
		}
		seeded = true
		if dg.Permission > max {
			max = dg.Permission
		}
	}
	for _, tg := range repo.TeamGrants {
		if !tg.Team.IsEffectiveMember(u) {
			continue
		}
		p := rewrite(tg)
		if p == nil {
			continue
		}
		seeded = true
		if *p > max {
			max = *p
		}
	}
	if !seeded {
		return r.noAccess(repo)
	}
	return max
}

// WhatIfTeamDowngrade simulates lowering (or removing, when newPerm is nil)
// a single team's grants on the grant's repo. Other teams' grants pass
// through untouched, and the target team's contribution is clamped so the
// simulation can never raise it above what the team grants today.
func (r *Resolver) WhatIfTeamDowngrade(g *graph.UserGrant, team *graph.Team, newPerm *graph.Permission) Result {
	if team == nil {
		panic("permissions: nil team")
	}
	return r.WhatIf(g, func(tg *graph.TeamGrant) *graph.Permission {
		if tg.Team != team {
			p := tg.Permission
			return &p
		}
		if newPerm == nil {
			return nil
		}
		p := *newPerm
		if p > tg.Permission {
			p = tg.Permission
		}
		return &p
	})
}
