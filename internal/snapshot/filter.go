package snapshot

import "github.com/bmatcuk/doublestar/v4"

// FilterRepos returns a copy of the snapshot containing only repos whose
// name matches at least one include pattern and no exclude pattern. Grants
// referencing dropped repos are dropped too. The receiver is not mutated.
func (o *Org) FilterRepos(include, exclude []string) *Org {
	keep := make(map[string]bool, len(o.Repos))

	out := *o
	out.Repos = nil
	for _, r := range o.Repos {
		if matchAny(include, r.Name) && !matchAny(exclude, r.Name) {
			out.Repos = append(out.Repos, r)
			keep[r.Name] = true
		}
	}

	out.TeamRepos = nil
	for _, tr := range o.TeamRepos {
		if keep[tr.RepoName] {
			out.TeamRepos = append(out.TeamRepos, tr)
		}
	}

	out.Collaborators = nil
	for _, c := range o.Collaborators {
		if keep[c.RepoName] {
			out.Collaborators = append(out.Collaborators, c)
		}
	}

	return &out
}

// matchAny reports whether name matches any of the glob patterns. An empty
// pattern list matches nothing, so callers pass ["**"] to include all.
func matchAny(patterns []string, name string) bool {
	for _, p := range patterns {
		if ok, err := doublestar.Match(p, name); err == nil && ok {
			return true
		}
	}
	return false
}
