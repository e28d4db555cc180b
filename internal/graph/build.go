package graph

import (
	"fmt"
	"strings"

	"orgaudit/internal/snapshot"
)

// Build links a flat snapshot into an Org graph. Grants whose repo, team,
// or user cannot be resolved are dropped (upstream snapshots may be stale),
// but duplicate keys and team-hierarchy cycles are fatal: a partially
// linked graph is never returned.
func Build(snap *snapshot.Org) (*Org, error) {
	org := &Org{Name: snap.Name}

	// Index maps live only for the duration of the build.
	teamsByID := make(map[string]*Team, len(snap.Teams))
	reposByName := make(map[string]*Repo, len(snap.Repos))
	usersByLogin := make(map[string]*User, len(snap.Users))

	for _, rec := range snap.Users {
		if _, dup := usersByLogin[rec.Login]; dup {
			return nil, fmt.Errorf("duplicate user login %q", rec.Login)
		}
		u := &User{
			Login:    rec.Login,
			Name:     rec.Name,
			Company:  rec.Company,
			Email:    rec.Email,
			IsOwner:  rec.IsOwner,
			IsMember: rec.IsMember,
			Org:      org,
		}
		if rec.Identity != nil {
			u.Identity = &Identity{Name: rec.Identity.Name, Email: rec.Identity.Email}
		}
		usersByLogin[rec.Login] = u
		org.Users = append(org.Users, u)
	}

	for _, rec := range snap.Repos {
		if _, dup := reposByName[rec.Name]; dup {
			return nil, fmt.Errorf("duplicate repo name %q", rec.Name)
		}
		r := &Repo{
			Name:       rec.Name,
			Org:        org,
			Private:    rec.Private,
			Archived:   rec.Archived,
			IsTemplate: rec.IsTemplate,
			Fork:       rec.Fork,
			LastPush:   rec.LastPush,
		}
		reposByName[rec.Name] = r
		org.Repos = append(org.Repos, r)
	}

	for _, rec := range snap.Teams {
		if _, dup := teamsByID[rec.ID]; dup {
			return nil, fmt.Errorf("duplicate team id %q", rec.ID)
		}
		t := &Team{ID: rec.ID, Name: rec.Name, Slug: rec.Slug, Org: org}
		teamsByID[rec.ID] = t
		org.Teams = append(org.Teams, t)
	}

	// Parent links. An unresolvable parent id means root, not an error.
	for _, rec := range snap.Teams {
		if rec.ParentID == "" {
			continue
		}
		parent, ok := teamsByID[rec.ParentID]
		if !ok {
			continue
		}
		t := teamsByID[rec.ID]
		t.Parent = parent
		parent.Children = append(parent.Children, t)
	}
	if err := checkAcyclic(org.Teams); err != nil {
		return nil, err
	}

	// Membership. Logins that resolve to no user are dropped.
	for _, rec := range snap.Teams {
		t := teamsByID[rec.ID]
		for _, login := range rec.Maintainers {
			if u, ok := usersByLogin[login]; ok {
				t.Maintainers = append(t.Maintainers, u)
				u.Teams = append(u.Teams, t)
			}
		}
		for _, login := range rec.Members {
			if u, ok := usersByLogin[login]; ok {
				t.Members = append(t.Members, u)
				u.Teams = append(u.Teams, t)
			}
		}
	}

	// Grants at none grant nothing; they are pruned like dangling
	// references so they cannot seed permission resolution.
	for _, rec := range snap.TeamRepos {
		t, tok := teamsByID[rec.TeamID]
		r, rok := reposByName[rec.RepoName]
		perm, pok := ParsePermission(rec.Permission)
		if !tok || !rok || !pok || perm == None {
			continue
		}
		g := &TeamGrant{Team: t, Repo: r, Permission: perm}
		t.Grants = append(t.Grants, g)
		r.TeamGrants = append(r.TeamGrants, g)
	}

	for _, rec := range snap.Collaborators {
		u, uok := usersByLogin[rec.Login]
		r, rok := reposByName[rec.RepoName]
		perm, pok := ParsePermission(rec.Permission)
		if !uok || !rok || !pok || perm == None {
			continue
		}
		g := &UserGrant{User: u, Repo: r, Permission: perm}
		u.Grants = append(u.Grants, g)
		r.UserGrants = append(r.UserGrants, g)
		org.Collaborators = append(org.Collaborators, g)
	}

	// Derived sets depend on the finished tree, so they come last.
	for _, t := range org.Teams {
		t.descendants = collectSubtree(t, nil)
		t.effectiveMembers = make(map[*User]struct{})
		for _, d := range t.descendants {
			for _, u := range d.Maintainers {
				t.effectiveMembers[u] = struct{}{}
			}
			for _, u := range d.Members {
				t.effectiveMembers[u] = struct{}{}
			}
		}
	}

	return org, nil
}

// checkAcyclic walks each team's ancestor chain with a visited set and
// reports the offending chain if it loops.
func checkAcyclic(teams []*Team) error {
	for _, t := range teams {
		visited := make(map[*Team]bool)
		var chain []string
		for cur := t; cur != nil; cur = cur.Parent {
			chain = append(chain, cur.ID)
			if visited[cur] {
				return fmt.Errorf("team hierarchy contains a cycle: %s", strings.Join(chain, " -> "))
			}
			visited[cur] = true
		}
	}
	return nil
}

func collectSubtree(t *Team, acc []*Team) []*Team {
	acc = append(acc, t)
	for _, c := range t.Children {
		acc = collectSubtree(c, acc)
	}
	return acc
}
