package policy

import (
	"fmt"

	"orgaudit/internal/graph"
)

func init() {
	Register(adminCollaborator{})
	Register(redundantCollaborator{})
}

// adminCollaborator flags direct admin grants to non-owners. Admin should
// flow through teams so it survives people leaving.
type adminCollaborator struct{}

func (adminCollaborator) Descriptor() Descriptor {
	return Descriptor{
		ID:       "OA03",
		Title:    "User is a direct admin collaborator",
		Severity: SeverityError,
	}
}

func (r adminCollaborator) Check(ctx *Context) []Violation {
	var out []Violation
	for _, g := range ctx.Org.Collaborators {
		if g.Permission != graph.Admin || g.User.IsOwner {
			continue
		}
		out = append(out, Violation{
			Descriptor: r.Descriptor(),
			Title: fmt.Sprintf("'%s' is a direct admin on '%s'",
				g.User.Login, g.Repo.Name),
			Body: fmt.Sprintf(
				"`%s` holds admin on `%s` through a direct collaborator grant. "+
					"Grant admin through a team instead, then remove the direct grant.",
				g.User.Login, g.Repo.Name),
			Repo: g.Repo,
			User: g.User,
		})
	}
	return out
}

// redundantCollaborator flags direct grants that add nothing because the
// user's team memberships already confer the same or a higher level.
type redundantCollaborator struct{}

func (redundantCollaborator) Descriptor() Descriptor {
	return Descriptor{
		ID:       "OA08",
		Title:    "Direct collaborator grant is redundant",
		Severity: SeverityWarning,
	}
}

func (r redundantCollaborator) Check(ctx *Context) []Violation {
	var out []Violation
	for _, g := range ctx.Org.Collaborators {
		if g.User.IsOwner {
			continue
		}
		teamMax := graph.None
		for _, tg := range g.Repo.TeamGrants {
			if tg.Team.IsEffectiveMember(g.User) && tg.Permission > teamMax {
				teamMax = tg.Permission
			}
		}
		if teamMax < g.Permission {
			continue
		}
		out = append(out, Violation{
			Descriptor: r.Descriptor(),
			Title: fmt.Sprintf("'%s' has a redundant %s grant on '%s'",
				g.User.Login, g.Permission, g.Repo.Name),
			Body: fmt.Sprintf(
				"`%s` is a direct collaborator with %s on `%s`, but team "+
					"membership already grants %s. Remove the direct grant.",
				g.User.Login, g.Permission, g.Repo.Name, teamMax),
			Repo:      g.Repo,
			User:      g.User,
			Assignees: []*graph.User{g.User},
		})
	}
	return out
}
