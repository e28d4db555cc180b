package gh

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/go-github/v71/github"

	"orgaudit/internal/progress"
	"orgaudit/internal/snapshot"
)

const pageSize = 100

// Fetcher pulls a full org snapshot over the GitHub REST API.
type Fetcher struct {
	gh       *github.Client
	reporter progress.Reporter
}

// NewFetcher creates a fetcher. A nil reporter disables progress output.
func NewFetcher(client *github.Client, reporter progress.Reporter) *Fetcher {
	if reporter == nil {
		reporter = progress.Silent{}
	}
	return &Fetcher{gh: client, reporter: reporter}
}

// Fetch builds a snapshot of the organization: members with their role,
// repos, teams with membership and repo grants, and direct collaborators
// per repo. Everything is paginated; the result is a flat record set the
// graph package links.
func (f *Fetcher) Fetch(ctx context.Context, org string) (*snapshot.Org, error) {
	snap := &snapshot.Org{Name: org, FetchedAt: time.Now().UTC()}

	if err := f.fetchMembers(ctx, org, snap); err != nil {
		return nil, err
	}
	if err := f.fetchRepos(ctx, org, snap); err != nil {
		return nil, err
	}

	// Teams and per-repo collaborators dominate the request count, so the
	// progress bar tracks those.
	f.reporter.Start(len(snap.Repos))
	defer f.reporter.Finish()

	if err := f.fetchTeams(ctx, org, snap); err != nil {
		return nil, err
	}
	if err := f.fetchCollaborators(ctx, org, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

func (f *Fetcher) fetchMembers(ctx context.Context, org string, snap *snapshot.Org) error {
	seen := make(map[string]bool)
	for _, role := range []string{"admin", "member"} {
		opts := &github.ListMembersOptions{
			Role:        role,
			ListOptions: github.ListOptions{PerPage: pageSize},
		}
		for {
			members, resp, err := f.gh.Organizations.ListMembers(ctx, org, opts)
			if err != nil {
				return fmt.Errorf("listing %s members of %s: %w", role, org, err)
			}
			for _, m := range members {
				login := m.GetLogin()
				if seen[login] {
					continue
				}
				seen[login] = true
				snap.Users = append(snap.Users, snapshot.User{
					Login:    login,
					IsOwner:  role == "admin",
					IsMember: true,
				})
			}
			if resp.NextPage == 0 {
				break
			}
			opts.Page = resp.NextPage
		}
	}
	return nil
}

func (f *Fetcher) fetchRepos(ctx context.Context, org string, snap *snapshot.Org) error {
	opts := &github.RepositoryListByOrgOptions{
		Type:        "all",
		ListOptions: github.ListOptions{PerPage: pageSize},
	}
	for {
		repos, resp, err := f.gh.Repositories.ListByOrg(ctx, org, opts)
		if err != nil {
			return fmt.Errorf("listing repos of %s: %w", org, err)
		}
		for _, r := range repos {
			snap.Repos = append(snap.Repos, snapshot.Repo{
				Name:       r.GetName(),
				Private:    r.GetPrivate(),
				Archived:   r.GetArchived(),
				IsTemplate: r.GetIsTemplate(),
				Fork:       r.GetFork(),
				LastPush:   r.GetPushedAt().Time,
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return nil
}

func (f *Fetcher) fetchTeams(ctx context.Context, org string, snap *snapshot.Org) error {
	opts := &github.ListOptions{PerPage: pageSize}
	var teams []*github.Team
	for {
		page, resp, err := f.gh.Teams.ListTeams(ctx, org, opts)
		if err != nil {
			return fmt.Errorf("listing teams of %s: %w", org, err)
		}
		teams = append(teams, page...)
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	for _, t := range teams {
		rec := snapshot.Team{
			ID:   strconv.FormatInt(t.GetID(), 10),
			Name: t.GetName(),
			Slug: t.GetSlug(),
		}
		if parent := t.GetParent(); parent != nil {
			rec.ParentID = strconv.FormatInt(parent.GetID(), 10)
		}

		var err error
		rec.Maintainers, err = f.teamLogins(ctx, org, t.GetSlug(), "maintainer")
		if err != nil {
			return err
		}
		rec.Members, err = f.teamLogins(ctx, org, t.GetSlug(), "member")
		if err != nil {
			return err
		}

		if err := f.fetchTeamRepos(ctx, org, &rec, snap); err != nil {
			return err
		}
		snap.Teams = append(snap.Teams, rec)
	}
	return nil
}

func (f *Fetcher) teamLogins(ctx context.Context, org, slug, role string) ([]string, error) {
	opts := &github.TeamListTeamMembersOptions{
		Role:        role,
		ListOptions: github.ListOptions{PerPage: pageSize},
	}
	var logins []string
	for {
		members, resp, err := f.gh.Teams.ListTeamMembersBySlug(ctx, org, slug, opts)
		if err != nil {
			return nil, fmt.Errorf("listing %ss of team %s: %w", role, slug, err)
		}
		for _, m := range members {
			logins = append(logins, m.GetLogin())
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return logins, nil
}

func (f *Fetcher) fetchTeamRepos(ctx context.Context, org string, rec *snapshot.Team, snap *snapshot.Org) error {
	opts := &github.ListOptions{PerPage: pageSize}
	for {
		repos, resp, err := f.gh.Teams.ListTeamReposBySlug(ctx, org, rec.Slug, opts)
		if err != nil {
			return fmt.Errorf("listing repos of team %s: %w", rec.Slug, err)
		}
		for _, r := range repos {
			snap.TeamRepos = append(snap.TeamRepos, snapshot.TeamRepo{
				TeamID:     rec.ID,
				RepoName:   r.GetName(),
				Permission: permissionString(r.GetPermissions()),
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return nil
}

func (f *Fetcher) fetchCollaborators(ctx context.Context, org string, snap *snapshot.Org) error {
	members := make(map[string]bool, len(snap.Users))
	for _, u := range snap.Users {
		members[u.Login] = true
	}

	for i, repo := range snap.Repos {
		f.reporter.Update(i+1, "collaborators: "+repo.Name)
		opts := &github.ListCollaboratorsOptions{
			Affiliation: "direct",
			ListOptions: github.ListOptions{PerPage: pageSize},
		}
		for {
			collabs, resp, err := f.gh.Repositories.ListCollaborators(ctx, org, repo.Name, opts)
			if err != nil {
				return fmt.Errorf("listing collaborators of %s: %w", repo.Name, err)
			}
			for _, c := range collabs {
				login := c.GetLogin()
				snap.Collaborators = append(snap.Collaborators, snapshot.Collaborator{
					RepoName:   repo.Name,
					Login:      login,
					Permission: permissionString(c.GetPermissions()),
				})
				// Outside collaborators do not show up in the member
				// listing, so record them here.
				if !members[login] {
					members[login] = true
					snap.Users = append(snap.Users, snapshot.User{Login: login})
				}
			}
			if resp.NextPage == 0 {
				break
			}
			opts.Page = resp.NextPage
		}
	}
	return nil
}

// permissionString collapses GitHub's permission flag map to the highest
// level it asserts.
func permissionString(perms map[string]bool) string {
	switch {
	case perms["admin"]:
		return "admin"
	case perms["maintain"]:
		return "maintain"
	case perms["push"]:
		return "push"
	case perms["triage"]:
		return "triage"
	case perms["pull"]:
		return "pull"
	default:
		return ""
	}
}
