package history

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"orgaudit/internal/db"
	"orgaudit/internal/policy"
)

// Run is a persisted audit run.
type Run struct {
	ID             string    `json:"id"`
	Org            string    `json:"org"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
	ViolationCount int       `json:"violation_count"`
}

// Violation is a persisted violation row, flattened to string keys so it
// survives independently of any graph.
type Violation struct {
	RunID       string `json:"run_id"`
	Fingerprint string `json:"fingerprint"`
	RuleID      string `json:"rule_id"`
	Severity    string `json:"severity"`
	Title       string `json:"title"`
	Body        string `json:"body"`
	Repo        string `json:"repo,omitempty"`
	Team        string `json:"team,omitempty"`
	UserLogin   string `json:"user_login,omitempty"`
	Assignees   string `json:"assignees,omitempty"` // comma-separated logins
}

// Store persists audit runs and their violations.
type Store struct {
	db *db.DB
}

// NewStore creates a history store.
func NewStore(d *db.DB) *Store {
	return &Store{db: d}
}

// RecordRun persists a run and its violations in one transaction. The run
// id is assigned if empty.
func (s *Store) RecordRun(ctx context.Context, run *Run, violations []policy.Violation) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	run.ViolationCount = len(violations)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, org, started_at, finished_at, violation_count)
		 VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.Org, run.StartedAt, run.FinishedAt, run.ViolationCount,
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	for i := range violations {
		v := &violations[i]
		row := flatten(run.ID, v)
		_, err = tx.ExecContext(ctx,
			`INSERT INTO run_violations (run_id, fingerprint, rule_id, severity, title, body, repo, team, user_login, assignees)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			row.RunID, row.Fingerprint, row.RuleID, row.Severity, row.Title,
			row.Body, row.Repo, row.Team, row.UserLogin, row.Assignees,
		)
		if err != nil {
			return fmt.Errorf("inserting violation %s: %w", row.Fingerprint, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing run: %w", err)
	}
	return nil
}

func flatten(runID string, v *policy.Violation) Violation {
	row := Violation{
		RunID:       runID,
		Fingerprint: v.Fingerprint().String(),
		RuleID:      v.Descriptor.ID,
		Severity:    string(v.Descriptor.Severity),
		Title:       v.Title,
		Body:        v.Body,
		Assignees:   strings.Join(v.AssigneeLogins(), ","),
	}
	if v.Repo != nil {
		row.Repo = v.Repo.Name
	}
	if v.Team != nil {
		row.Team = v.Team.Name
	}
	if v.User != nil {
		row.UserLogin = v.User.Login
	}
	return row
}

// LatestRun returns the most recent run for the org, or sql.ErrNoRows.
func (s *Store) LatestRun(ctx context.Context, org string) (*Run, error) {
	r := &Run{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, org, started_at, finished_at, violation_count
		 FROM runs WHERE org = ? ORDER BY started_at DESC LIMIT 1`, org,
	).Scan(&r.ID, &r.Org, &r.StartedAt, &r.FinishedAt, &r.ViolationCount)
	if err != nil {
		return nil, fmt.Errorf("getting latest run: %w", err)
	}
	return r, nil
}

// ListRuns returns up to limit runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, org, started_at, finished_at, violation_count
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Org, &r.StartedAt, &r.FinishedAt, &r.ViolationCount); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// ListViolations returns all violations recorded for a run, ordered by
// rule then fingerprint.
func (s *Store) ListViolations(ctx context.Context, runID string) ([]Violation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, fingerprint, rule_id, severity, title, body, repo, team, user_login, assignees
		 FROM run_violations WHERE run_id = ? ORDER BY rule_id, fingerprint`, runID)
	if err != nil {
		return nil, fmt.Errorf("listing violations: %w", err)
	}
	defer rows.Close()

	var out []Violation
	for rows.Next() {
		var v Violation
		if err := rows.Scan(&v.RunID, &v.Fingerprint, &v.RuleID, &v.Severity, &v.Title,
			&v.Body, &v.Repo, &v.Team, &v.UserLogin, &v.Assignees); err != nil {
			return nil, fmt.Errorf("scanning violation: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// FindViolation looks up a violation by fingerprint within a run.
func (s *Store) FindViolation(ctx context.Context, runID, fingerprint string) (*Violation, error) {
	var v Violation
	err := s.db.QueryRowContext(ctx,
		`SELECT run_id, fingerprint, rule_id, severity, title, body, repo, team, user_login, assignees
		 FROM run_violations WHERE run_id = ? AND fingerprint = ?`, runID, fingerprint,
	).Scan(&v.RunID, &v.Fingerprint, &v.RuleID, &v.Severity, &v.Title,
		&v.Body, &v.Repo, &v.Team, &v.UserLogin, &v.Assignees)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("finding violation: %w", err)
	}
	return &v, nil
}
