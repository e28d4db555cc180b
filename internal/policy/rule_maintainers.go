package policy

import "fmt"

func init() {
	Register(tooManyMaintainers{})
	Register(noMaintainer{})
}

// tooManyMaintainers flags teams whose maintainer set exceeds the
// configured ceiling. A long maintainer list means nobody really owns the
// team's membership.
type tooManyMaintainers struct{}

func (tooManyMaintainers) Descriptor() Descriptor {
	return Descriptor{
		ID:       "OA01",
		Title:    "Team has too many maintainers",
		Severity: SeverityWarning,
	}
}

func (r tooManyMaintainers) Check(ctx *Context) []Violation {
	var out []Violation
	for _, t := range ctx.Org.Teams {
		if len(t.Maintainers) <= ctx.MaxMaintainers {
			continue
		}
		out = append(out, Violation{
			Descriptor: r.Descriptor(),
			Title:      fmt.Sprintf("Team '%s' has too many maintainers", t.FullName()),
			Body: fmt.Sprintf(
				"Team `%s` has %d maintainers but at most %d are allowed. "+
					"Demote the extra maintainers to members.",
				t.FullName(), len(t.Maintainers), ctx.MaxMaintainers),
			Team:      t,
			Assignees: t.Maintainers,
		})
	}
	return out
}

// noMaintainer flags teams nobody maintains.
type noMaintainer struct{}

func (noMaintainer) Descriptor() Descriptor {
	return Descriptor{
		ID:       "OA02",
		Title:    "Team has no maintainer",
		Severity: SeverityWarning,
	}
}

func (r noMaintainer) Check(ctx *Context) []Violation {
	var out []Violation
	for _, t := range ctx.Org.Teams {
		if len(t.Maintainers) > 0 {
			continue
		}
		out = append(out, Violation{
			Descriptor: r.Descriptor(),
			Title:      fmt.Sprintf("Team '%s' has no maintainer", t.FullName()),
			Body: fmt.Sprintf(
				"Team `%s` has no maintainers. Promote at least one member so "+
					"membership changes have an owner.",
				t.FullName()),
			Team: t,
		})
	}
	return out
}
