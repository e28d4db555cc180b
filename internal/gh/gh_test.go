package gh

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-github/v71/github"

	"orgaudit/internal/reconcile"
)

func TestPermissionString(t *testing.T) {
	tests := []struct {
		name  string
		perms map[string]bool
		want  string
	}{
		{"admin wins", map[string]bool{"admin": true, "push": true, "pull": true}, "admin"},
		{"maintain over push", map[string]bool{"maintain": true, "push": true, "pull": true}, "maintain"},
		{"push", map[string]bool{"push": true, "pull": true}, "push"},
		{"triage", map[string]bool{"triage": true, "pull": true}, "triage"},
		{"pull only", map[string]bool{"pull": true}, "pull"},
		{"empty", map[string]bool{}, ""},
		{"nil", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := permissionString(tt.perms); got != tt.want {
				t.Errorf("permissionString(%v) = %q, want %q", tt.perms, got, tt.want)
			}
		})
	}
}

func TestTokenFromEnv(t *testing.T) {
	t.Setenv("ORGAUDIT_TOKEN", "")
	t.Setenv("GITHUB_TOKEN", "")
	if _, err := Token(); err == nil {
		t.Fatal("expected error with no token in the environment")
	}

	t.Setenv("GITHUB_TOKEN", "ghp_fallback")
	got, err := Token()
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if got != "ghp_fallback" {
		t.Errorf("token = %q, want ghp_fallback", got)
	}

	t.Setenv("ORGAUDIT_TOKEN", "ghp_primary")
	got, err = Token()
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if got != "ghp_primary" {
		t.Errorf("token = %q, want the ORGAUDIT_TOKEN value", got)
	}
}

func TestRetryableMapsAbuseErrors(t *testing.T) {
	after := 5 * time.Second
	err := retryable(&github.AbuseRateLimitError{RetryAfter: &after})
	var re *reconcile.RetryableError
	if !errors.As(err, &re) {
		t.Fatalf("expected RetryableError, got %T", err)
	}
	if re.RetryAfter != after {
		t.Errorf("RetryAfter = %s, want %s", re.RetryAfter, after)
	}

	plain := errors.New("boom")
	if got := retryable(plain); got != plain {
		t.Errorf("plain error should pass through, got %v", got)
	}
}
