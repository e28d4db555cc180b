package permissions

import (
	"testing"

	"orgaudit/internal/graph"
	"orgaudit/internal/snapshot"
)

func buildOrg(t *testing.T, snap *snapshot.Org) *graph.Org {
	t.Helper()
	org, err := graph.Build(snap)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return org
}

// Two teams: A (parent B) and B (root). B has admin on r; u is a member of
// A only.
func inheritanceSnapshot() *snapshot.Org {
	return &snapshot.Org{
		Name: "contoso",
		Teams: []snapshot.Team{
			{ID: "10", Name: "B", Slug: "b"},
			{ID: "11", Name: "A", Slug: "a", ParentID: "10", Members: []string{"u"}},
		},
		Repos: []snapshot.Repo{{Name: "r", Private: true}},
		Users: []snapshot.User{{Login: "u", IsMember: true}},
		TeamRepos: []snapshot.TeamRepo{
			{TeamID: "10", RepoName: "r", Permission: "admin"},
		},
	}
}

func TestInheritedAdminThroughParentGrant(t *testing.T) {
	org := buildOrg(t, inheritanceSnapshot())
	r := NewResolver(org, false)

	u := org.User("u")
	repo := org.Repo("r")
	if got := r.Effective(u, repo); got != graph.Admin {
		t.Errorf("effective = %v, want admin (inherited via B)", got)
	}

	prov := Describe(&graph.UserGrant{User: u, Repo: repo, Permission: graph.Admin})
	if prov.Kind != ViaTeam {
		t.Fatalf("provenance kind = %v, want team", prov.Kind)
	}
	if prov.Team.Name != "B" {
		t.Errorf("provenance team = %q, want B (grant holder, found via subtree)", prov.Team.Name)
	}
}

func TestDirectGrantBeatsLowerTeamGrant(t *testing.T) {
	snap := &snapshot.Org{
		Name: "contoso",
		Teams: []snapshot.Team{
			{ID: "1", Name: "T", Slug: "t", Members: []string{"u"}},
		},
		Repos: []snapshot.Repo{{Name: "r"}},
		Users: []snapshot.User{{Login: "u", IsMember: true}},
		TeamRepos: []snapshot.TeamRepo{
			{TeamID: "1", RepoName: "r", Permission: "pull"},
		},
		Collaborators: []snapshot.Collaborator{
			{RepoName: "r", Login: "u", Permission: "push"},
		},
	}
	org := buildOrg(t, snap)
	r := NewResolver(org, false)

	u := org.User("u")
	repo := org.Repo("r")
	if got := r.Effective(u, repo); got != graph.Write {
		t.Errorf("effective = %v, want write (max of direct write, team read)", got)
	}

	// No team explains the write level, only the lower read, so the direct
	// grant is authoritative.
	prov := Describe(repo.UserGrants[0])
	if prov.Kind != ViaCollaborator {
		t.Errorf("provenance = %v, want collaborator", prov)
	}
}

func TestOwnerSupremacy(t *testing.T) {
	snap := inheritanceSnapshot()
	snap.Users = append(snap.Users, snapshot.User{Login: "boss", IsOwner: true, IsMember: true})
	org := buildOrg(t, snap)
	r := NewResolver(org, false)

	boss := org.User("boss")
	for _, repo := range org.Repos {
		if got := r.Effective(boss, repo); got != graph.Admin {
			t.Errorf("owner effective on %s = %v, want admin", repo.Name, got)
		}
	}

	prov := Describe(&graph.UserGrant{User: boss, Repo: org.Repos[0], Permission: graph.Admin})
	if prov.Kind != ViaOwner {
		t.Errorf("owner provenance = %v, want owner", prov)
	}
	if prov.String() != "Owner" {
		t.Errorf("provenance string = %q, want Owner", prov.String())
	}
}

func TestEffectiveMonotonicity(t *testing.T) {
	snap := inheritanceSnapshot()
	snap.Collaborators = []snapshot.Collaborator{
		{RepoName: "r", Login: "u", Permission: "triage"},
	}
	org := buildOrg(t, snap)
	r := NewResolver(org, false)

	u := org.User("u")
	repo := org.Repo("r")
	eff := r.Effective(u, repo)

	for _, g := range repo.UserGrants {
		if g.User == u && eff < g.Permission {
			t.Errorf("effective %v < direct grant %v", eff, g.Permission)
		}
	}
	for _, g := range repo.TeamGrants {
		if g.Team.IsEffectiveMember(u) && eff < g.Permission {
			t.Errorf("effective %v < team grant %v", eff, g.Permission)
		}
	}
}

func TestNoAccessAndImplicitRead(t *testing.T) {
	snap := &snapshot.Org{
		Name:  "contoso",
		Repos: []snapshot.Repo{{Name: "pub"}, {Name: "priv", Private: true}},
		Users: []snapshot.User{{Login: "u", IsMember: true}},
	}
	org := buildOrg(t, snap)
	u := org.User("u")

	strict := NewResolver(org, false)
	if got := strict.Effective(u, org.Repo("pub")); got != graph.None {
		t.Errorf("effective = %v, want none without implicit read", got)
	}

	lenient := NewResolver(org, true)
	if got := lenient.Effective(u, org.Repo("pub")); got != graph.Read {
		t.Errorf("effective = %v, want read (implicit, public repo)", got)
	}
	if got := lenient.Effective(u, org.Repo("priv")); got != graph.None {
		t.Errorf("effective = %v, want none (implicit read never applies to private)", got)
	}
}

func TestEffectiveIsCached(t *testing.T) {
	org := buildOrg(t, inheritanceSnapshot())
	r := NewResolver(org, false)

	u := org.User("u")
	repo := org.Repo("r")
	first := r.Effective(u, repo)
	second := r.Effective(u, repo)
	if first != second {
		t.Errorf("cached lookup %v != first lookup %v", second, first)
	}
}

func TestWhatIfRemovalNeverUpgrades(t *testing.T) {
	org := buildOrg(t, inheritanceSnapshot())
	r := NewResolver(org, false)

	u := org.User("u")
	repo := org.Repo("r")
	b := org.TeamByName("B")
	g := &graph.UserGrant{User: u, Repo: repo, Permission: r.Effective(u, repo)}

	res := r.WhatIfTeamDowngrade(g, b, nil)
	if res.Direction() == Upgraded {
		t.Errorf("removal reported as upgrade: %s", res)
	}
	if res.New != graph.None {
		t.Errorf("hypothetical = %v, want none after removing the only grant", res.New)
	}
	if res.Direction() != Downgraded {
		t.Errorf("direction = %v, want downgraded", res.Direction())
	}
}

func TestWhatIfTeamDowngradeClampsUpgrades(t *testing.T) {
	snap := inheritanceSnapshot()
	snap.TeamRepos[0].Permission = "pull"
	org := buildOrg(t, snap)
	r := NewResolver(org, false)

	u := org.User("u")
	repo := org.Repo("r")
	b := org.TeamByName("B")
	g := &graph.UserGrant{User: u, Repo: repo, Permission: r.Effective(u, repo)}

	// Asking to "downgrade" to admin must not simulate an increase past the
	// team's current read grant.
	admin := graph.Admin
	res := r.WhatIfTeamDowngrade(g, b, &admin)
	if res.New != graph.Read {
		t.Errorf("hypothetical = %v, want read (clamped to current grant)", res.New)
	}
	if !res.IsUnchanged() {
		t.Errorf("expected unchanged, got %v", res.Direction())
	}
}

func TestWhatIfKeepsDirectGrants(t *testing.T) {
	snap := inheritanceSnapshot()
	snap.Collaborators = []snapshot.Collaborator{
		{RepoName: "r", Login: "u", Permission: "push"},
	}
	org := buildOrg(t, snap)
	r := NewResolver(org, false)

	u := org.User("u")
	repo := org.Repo("r")
	b := org.TeamByName("B")
	g := &graph.UserGrant{User: u, Repo: repo, Permission: r.Effective(u, repo)}

	// Removing the team's admin leaves the direct write grant in place.
	res := r.WhatIfTeamDowngrade(g, b, nil)
	if res.New != graph.Write {
		t.Errorf("hypothetical = %v, want write (direct grants are never rewritten)", res.New)
	}
}

func TestWhatIfOwnerImmune(t *testing.T) {
	snap := inheritanceSnapshot()
	snap.Users[0].IsOwner = true
	org := buildOrg(t, snap)
	r := NewResolver(org, false)

	u := org.User("u")
	repo := org.Repo("r")
	b := org.TeamByName("B")
	g := &graph.UserGrant{User: u, Repo: repo, Permission: graph.Admin}

	res := r.WhatIfTeamDowngrade(g, b, nil)
	if res.New != graph.Admin {
		t.Errorf("hypothetical = %v, want admin (owners immune to what-if)", res.New)
	}
	if !res.IsUnchanged() {
		t.Errorf("expected unchanged, got %v", res.Direction())
	}
}

func TestResultString(t *testing.T) {
	org := buildOrg(t, inheritanceSnapshot())
	u := org.User("u")
	repo := org.Repo("r")

	res := Result{Grant: &graph.UserGrant{User: u, Repo: repo, Permission: graph.Admin}, New: graph.None}
	want := "u on r: downgraded from admin access to no access"
	if got := res.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
