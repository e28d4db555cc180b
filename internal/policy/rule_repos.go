package policy

import (
	"fmt"
	"time"

	"orgaudit/internal/graph"
)

func init() {
	Register(archivedRepoGrants{})
	Register(staleRepo{})
}

// archivedRepoGrants flags write-or-better grants on archived repos.
// Archived repos are read-only anyway; the grants are attack surface
// waiting for an unarchive.
type archivedRepoGrants struct{}

func (archivedRepoGrants) Descriptor() Descriptor {
	return Descriptor{
		ID:       "OA06",
		Title:    "Archived repo still has write grants",
		Severity: SeverityWarning,
	}
}

func (r archivedRepoGrants) Check(ctx *Context) []Violation {
	var out []Violation
	for _, repo := range ctx.Org.Repos {
		if !repo.Archived {
			continue
		}
		writers := 0
		for _, g := range repo.TeamGrants {
			if g.Permission >= graph.Write {
				writers++
			}
		}
		for _, g := range repo.UserGrants {
			if g.Permission >= graph.Write {
				writers++
			}
		}
		if writers == 0 {
			continue
		}
		out = append(out, Violation{
			Descriptor: r.Descriptor(),
			Title:      fmt.Sprintf("Archived repo '%s' still has %d write grant(s)", repo.Name, writers),
			Body: fmt.Sprintf(
				"`%s` is archived but %d grant(s) still confer write or better. "+
					"Remove them so an accidental unarchive does not restore push access.",
				repo.Name, writers),
			Repo: repo,
		})
	}
	return out
}

// staleRepo flags active repos nobody has pushed to for a long time.
// Hidden severity: surfaced in reports, not filed as issues by default.
type staleRepo struct{}

func (staleRepo) Descriptor() Descriptor {
	return Descriptor{
		ID:       "OA07",
		Title:    "Repo looks abandoned",
		Severity: SeverityHidden,
	}
}

func (r staleRepo) Check(ctx *Context) []Violation {
	cutoff := time.Now().Add(-ctx.StaleAfter)
	var out []Violation
	for _, repo := range ctx.Org.Repos {
		if repo.Archived || repo.IsTemplate || repo.LastPush.IsZero() || repo.LastPush.After(cutoff) {
			continue
		}
		out = append(out, Violation{
			Descriptor: r.Descriptor(),
			Title:      fmt.Sprintf("Repo '%s' has not been pushed to since %s", repo.Name, repo.LastPush.Format("2006-01-02")),
			Body: fmt.Sprintf(
				"`%s` last saw a push on %s. Archive it if it is no longer maintained.",
				repo.Name, repo.LastPush.Format("2006-01-02")),
			Repo: repo,
		})
	}
	return out
}
