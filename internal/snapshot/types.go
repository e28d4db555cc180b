package snapshot

import "time"

// Org is a flat, denormalized capture of a GitHub organization at a point
// in time. All cross-references are string keys; resolving them into a
// linked object graph is the graph package's job.
type Org struct {
	Name          string         `json:"name"`
	FetchedAt     time.Time      `json:"fetched_at"`
	Teams         []Team         `json:"teams"`
	Repos         []Repo         `json:"repos"`
	Users         []User         `json:"users"`
	TeamRepos     []TeamRepo     `json:"team_repos"`
	Collaborators []Collaborator `json:"collaborators"`
}

// Team is a raw team record. ID is the numeric GitHub team id rendered as
// a string; it survives renames, unlike Name and Slug.
type Team struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Slug        string   `json:"slug"`
	ParentID    string   `json:"parent_id,omitempty"`
	Maintainers []string `json:"maintainers,omitempty"`
	Members     []string `json:"members,omitempty"`
}

// Repo is a raw repository record, keyed by name (unique within the org).
type Repo struct {
	Name       string    `json:"name"`
	Private    bool      `json:"private"`
	Archived   bool      `json:"archived"`
	IsTemplate bool      `json:"is_template"`
	Fork       bool      `json:"fork"`
	LastPush   time.Time `json:"last_push"`
}

// User is a raw user record, keyed by login. A non-nil Identity marks the
// user as linked to a trusted corporate identity.
type User struct {
	Login    string    `json:"login"`
	Name     string    `json:"name,omitempty"`
	Company  string    `json:"company,omitempty"`
	Email    string    `json:"email,omitempty"`
	IsOwner  bool      `json:"is_owner"`
	IsMember bool      `json:"is_member"`
	Identity *Identity `json:"identity,omitempty"`
}

// Identity is a linked corporate identity record for a user.
type Identity struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// TeamRepo grants a team a permission level on a repo.
type TeamRepo struct {
	TeamID     string `json:"team_id"`
	RepoName   string `json:"repo_name"`
	Permission string `json:"permission"`
}

// Collaborator grants a user a permission level on a repo directly,
// outside of any team.
type Collaborator struct {
	RepoName   string `json:"repo_name"`
	Login      string `json:"login"`
	Permission string `json:"permission"`
}
