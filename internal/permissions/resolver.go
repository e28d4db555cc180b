package permissions

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"orgaudit/internal/graph"
)

// Resolver computes effective permissions over a linked org graph. The
// graph is read-only, so resolved lookups are memoized in an LRU cache.
//
// ImplicitRead is the single policy knob for "public repos grant read even
// without a grant"; it is applied uniformly by Effective and WhatIf.
type Resolver struct {
	org          *graph.Org
	implicitRead bool
	cache        *lru.Cache[accessKey, graph.Permission]
}

type accessKey struct {
	login string
	repo  string
}

const cacheSize = 4096

// NewResolver creates a resolver for the given graph.
func NewResolver(org *graph.Org, implicitRead bool) *Resolver {
	if org == nil {
		panic("permissions: nil org")
	}
	cache, _ := lru.New[accessKey, graph.Permission](cacheSize)
	return &Resolver{org: org, implicitRead: implicitRead, cache: cache}
}

// Effective returns the highest permission the user holds on the repo,
// combining the owner flag, team-inherited grants, and direct grants.
// Absence of access is the None terminal state, never an error.
func (r *Resolver) Effective(u *graph.User, repo *graph.Repo) graph.Permission {
	if u == nil || repo == nil {
		panic("permissions: nil user or repo")
	}
	key := accessKey{login: u.Login, repo: repo.Name}
	if p, ok := r.cache.Get(key); ok {
		return p
	}
	p := r.effective(u, repo)
	r.cache.Add(key, p)
	return p
}

func (r *Resolver) effective(u *graph.User, repo *graph.Repo) graph.Permission {
	if u.IsOwner {
		return graph.Admin
	}
	max := graph.None
	for _, g := range repo.TeamGrants {
		if g.Team.IsEffectiveMember(u) && g.Permission > max {
			max = g.Permission
		}
	}
	for _, g := range repo.UserGrants {
		if g.User == u && g.Permission > max {
			max = g.Permission
		}
	}
	if max == graph.None {
		return r.noAccess(repo)
	}
	return max
}

// noAccess is the fallback when no grant applies.
func (r *Resolver) noAccess(repo *graph.Repo) graph.Permission {
	if r.implicitRead && !repo.Private {
		return graph.Read
	}
	return graph.None
}

// ProvenanceKind says what explains a user's permission level.
type ProvenanceKind int

const (
	ViaCollaborator ProvenanceKind = iota
	ViaTeam
	ViaOwner
)

// Provenance reports why a user holds a permission level on a repo.
type Provenance struct {
	Kind ProvenanceKind
	Team *graph.Team // set when Kind == ViaTeam
}

func (p Provenance) String() string {
	switch p.Kind {
	case ViaOwner:
		return "Owner"
	case ViaTeam:
		return p.Team.FullName()
	default:
		return "Collaborator"
	}
}

// Describe explains why the grant's user has exactly the grant's permission
// level on the grant's repo. Owners are always explained by ownership; a
// team explains the grant if it holds the same level and the user is found
// in its subtree; grants are scanned in stored order and subtrees depth
// first, so results are deterministic. Otherwise the direct grant itself
// is authoritative.
func Describe(g *graph.UserGrant) Provenance {
	if g == nil {
		panic("permissions: nil grant")
	}
	if g.User.IsOwner {
		return Provenance{Kind: ViaOwner}
	}
	for _, tg := range g.Repo.TeamGrants {
		if tg.Permission != g.Permission {
			continue
		}
		for _, d := range tg.Team.DescendantsAndSelf() {
			if containsUser(d.Maintainers, g.User) || containsUser(d.Members, g.User) {
				return Provenance{Kind: ViaTeam, Team: tg.Team}
			}
		}
	}
	return Provenance{Kind: ViaCollaborator}
}

func containsUser(users []*graph.User, u *graph.User) bool {
	for _, x := range users {
		if x == u {
			return true
		}
	}
	return false
}

func describePermission(p graph.Permission) string {
	if p == graph.None {
		return "no access"
	}
	return fmt.Sprintf("%s access", p)
}
