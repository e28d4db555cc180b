package graph

import (
	"strings"
	"time"
)

// Org is the linked organization graph. It is built once by Build and is
// read-only afterwards; every Team, Repo, and User back-references it.
type Org struct {
	Name          string
	Teams         []*Team
	Repos         []*Repo
	Users         []*User
	Collaborators []*UserGrant
}

// Team returns the team with the given id, or nil.
func (o *Org) Team(id string) *Team {
	for _, t := range o.Teams {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// TeamByName returns the team whose name or slug matches, or nil.
func (o *Org) TeamByName(name string) *Team {
	for _, t := range o.Teams {
		if t.Name == name || t.Slug == name {
			return t
		}
	}
	return nil
}

// Repo returns the repo with the given name, or nil.
func (o *Org) Repo(name string) *Repo {
	for _, r := range o.Repos {
		if r.Name == name {
			return r
		}
	}
	return nil
}

// User returns the user with the given login, or nil.
func (o *Org) User(login string) *User {
	for _, u := range o.Users {
		if u.Login == login {
			return u
		}
	}
	return nil
}

// Owners returns the org owners in input order.
func (o *Org) Owners() []*User {
	var owners []*User
	for _, u := range o.Users {
		if u.IsOwner {
			owners = append(owners, u)
		}
	}
	return owners
}

// Team is a linked team. Parent/Children form a forest; Build rejects
// cyclic input, so ancestor walks terminate.
type Team struct {
	ID          string
	Name        string
	Slug        string
	Org         *Org
	Parent      *Team
	Children    []*Team
	Maintainers []*User
	Members     []*User
	Grants      []*TeamGrant

	descendants      []*Team
	effectiveMembers map[*User]struct{}
}

// AncestorsAndSelf returns the chain from this team to its root, self first.
func (t *Team) AncestorsAndSelf() []*Team {
	var chain []*Team
	for cur := t; cur != nil; cur = cur.Parent {
		chain = append(chain, cur)
	}
	return chain
}

// DescendantsAndSelf returns the subtree rooted at this team in depth-first
// order, self first.
func (t *Team) DescendantsAndSelf() []*Team {
	return t.descendants
}

// FullName is the slash-joined ancestor chain, oldest first. Display only;
// identity is the team id.
func (t *Team) FullName() string {
	chain := t.AncestorsAndSelf()
	names := make([]string, len(chain))
	for i, a := range chain {
		names[len(chain)-1-i] = a.Name
	}
	return strings.Join(names, "/")
}

// IsEffectiveMember reports whether u is a direct member or maintainer of
// this team or any descendant.
func (t *Team) IsEffectiveMember(u *User) bool {
	_, ok := t.effectiveMembers[u]
	return ok
}

// EffectiveMembers returns the union of direct members and maintainers
// across DescendantsAndSelf, in depth-first-then-input order.
func (t *Team) EffectiveMembers() []*User {
	var out []*User
	seen := make(map[*User]struct{})
	for _, d := range t.descendants {
		for _, u := range append(d.Maintainers, d.Members...) {
			if _, ok := seen[u]; !ok {
				seen[u] = struct{}{}
				out = append(out, u)
			}
		}
	}
	return out
}

// Repo is a linked repository.
type Repo struct {
	Name       string
	Org        *Org
	Private    bool
	Archived   bool
	IsTemplate bool
	Fork       bool
	LastPush   time.Time
	TeamGrants []*TeamGrant
	UserGrants []*UserGrant
}

// Administrators returns users holding admin on this repo through a direct
// grant or team membership. Org owners are included only when includeOwners
// is set; an owner who also has an explicit admin path is always included.
func (r *Repo) Administrators(includeOwners bool) []*User {
	var out []*User
	seen := make(map[*User]struct{})
	add := func(u *User) {
		if _, ok := seen[u]; !ok {
			seen[u] = struct{}{}
			out = append(out, u)
		}
	}
	for _, g := range r.UserGrants {
		if g.Permission == Admin {
			add(g.User)
		}
	}
	for _, g := range r.TeamGrants {
		if g.Permission != Admin {
			continue
		}
		for _, u := range g.Team.EffectiveMembers() {
			add(u)
		}
	}
	if includeOwners {
		for _, u := range r.Org.Owners() {
			add(u)
		}
	}
	return out
}

// User is a linked user.
type User struct {
	Login    string
	Name     string
	Company  string
	Email    string
	IsOwner  bool
	IsMember bool
	Identity *Identity
	Org      *Org
	Teams    []*Team
	Grants   []*UserGrant
}

// Identity is a linked corporate identity. Presence marks the user trusted.
type Identity struct {
	Name  string
	Email string
}

// IsTrusted reports whether the user has a linked identity.
func (u *User) IsTrusted() bool { return u.Identity != nil }

// IsBot reports whether the login looks like an automation account.
func (u *User) IsBot() bool {
	return strings.HasSuffix(u.Login, "[bot]") || strings.HasSuffix(u.Login, "-bot")
}

// TeamGrant is a team's permission on a repo.
type TeamGrant struct {
	Team       *Team
	Repo       *Repo
	Permission Permission
}

// UserGrant is a user's direct (collaborator) permission on a repo.
type UserGrant struct {
	User       *User
	Repo       *Repo
	Permission Permission
}
