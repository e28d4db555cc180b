package policy

import (
	"fmt"

	"orgaudit/internal/graph"
)

func init() {
	Register(untrustedWriteAccess{})
}

// untrustedWriteAccess flags users without a linked identity who can push
// to private repos. Write access to private code is reserved for accounts
// tied to a corporate identity.
type untrustedWriteAccess struct{}

func (untrustedWriteAccess) Descriptor() Descriptor {
	return Descriptor{
		ID:       "OA04",
		Title:    "Unlinked user has write access to a private repo",
		Severity: SeverityError,
	}
}

func (r untrustedWriteAccess) Check(ctx *Context) []Violation {
	var out []Violation
	for _, repo := range ctx.Org.Repos {
		if !repo.Private {
			continue
		}
		for _, u := range ctx.Org.Users {
			if u.IsTrusted() || u.IsOwner || u.IsBot() {
				continue
			}
			eff := ctx.Resolver.Effective(u, repo)
			if eff < graph.Write {
				continue
			}
			out = append(out, Violation{
				Descriptor: r.Descriptor(),
				Title: fmt.Sprintf("'%s' has %s access to private repo '%s' without a linked identity",
					u.Login, eff, repo.Name),
				Body: fmt.Sprintf(
					"`%s` can %s `%s` but is not linked to a corporate identity. "+
						"Link the account or reduce the access to read.",
					u.Login, eff, repo.Name),
				Repo: repo,
				User: u,
			})
		}
	}
	return out
}
