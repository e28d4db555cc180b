package gh

import (
	"context"
	"fmt"
	"os"

	"github.com/google/go-github/v71/github"
	"golang.org/x/oauth2"
)

// tokenEnvVars are checked in order for a GitHub API token.
var tokenEnvVars = []string{"ORGAUDIT_TOKEN", "GITHUB_TOKEN"}

// Token returns the API token from the environment, or an error naming
// the variables that were checked. Tokens are never read from config.
func Token() (string, error) {
	for _, name := range tokenEnvVars {
		if v := os.Getenv(name); v != "" {
			return v, nil
		}
	}
	return "", fmt.Errorf("no GitHub token found: set one of %v", tokenEnvVars)
}

// NewClient creates an authenticated GitHub client.
func NewClient(ctx context.Context, token string) *github.Client {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return github.NewClient(oauth2.NewClient(ctx, ts))
}
