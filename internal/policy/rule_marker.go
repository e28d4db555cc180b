package policy

import (
	"fmt"

	"orgaudit/internal/graph"
)

func init() {
	Register(markerTeamAccess{})
}

// markerTeamAccess flags marker teams that confer real access. Marker
// teams exist to tag provenance and must grant read at most.
type markerTeamAccess struct{}

func (markerTeamAccess) Descriptor() Descriptor {
	return Descriptor{
		ID:       "OA05",
		Title:    "Marker team grants real access",
		Severity: SeverityError,
	}
}

func (r markerTeamAccess) Check(ctx *Context) []Violation {
	var out []Violation
	for _, t := range ctx.Org.Teams {
		if !ctx.IsMarkerTeam(t) {
			continue
		}
		for _, g := range t.Grants {
			if g.Permission <= graph.Read {
				continue
			}
			out = append(out, Violation{
				Descriptor: r.Descriptor(),
				Title: fmt.Sprintf("Marker team '%s' grants %s on '%s'",
					t.FullName(), g.Permission, g.Repo.Name),
				Body: fmt.Sprintf(
					"`%s` is a marker team but grants %s on `%s`. "+
						"Downgrade the grant to read or remove it.",
					t.FullName(), g.Permission, g.Repo.Name),
				Repo: g.Repo,
				Team: t,
			})
		}
	}
	return out
}
