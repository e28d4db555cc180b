package server

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/yuin/goldmark"

	"orgaudit/internal/history"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// The status line is already out; nothing useful left to do.
		return
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// handleListRuns returns recent runs, newest first. ?limit= caps the
// count (default 20).
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive number")
			return
		}
		limit = n
	}

	runs, err := s.store.ListRuns(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []history.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleLatestRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.store.LatestRun(r.Context(), s.cfg.Org)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "no runs recorded")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleListViolations(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "id")
	violations, err := s.store.ListViolations(r.Context(), runID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if violations == nil {
		violations = []history.Violation{}
	}
	writeJSON(w, http.StatusOK, violations)
}

// handleViolationPage renders the violation's markdown body as HTML.
// ?run= selects the run; it defaults to the latest.
func (s *Server) handleViolationPage(w http.ResponseWriter, r *http.Request) {
	fingerprint := chi.URLParam(r, "fingerprint")

	runID := r.URL.Query().Get("run")
	if runID == "" {
		run, err := s.store.LatestRun(r.Context(), s.cfg.Org)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				writeError(w, http.StatusNotFound, "no runs recorded")
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		runID = run.ID
	}

	v, err := s.store.FindViolation(r.Context(), runID, fingerprint)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "violation not found in this run")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var md strings.Builder
	fmt.Fprintf(&md, "# %s\n\n", v.Title)
	fmt.Fprintf(&md, "**Rule:** %s · **Severity:** %s\n\n", v.RuleID, v.Severity)
	md.WriteString(v.Body)
	if v.Assignees != "" {
		md.WriteString("\n\n### Assignees\n\n")
		for _, login := range strings.Split(v.Assignees, ",") {
			fmt.Fprintf(&md, "- @%s\n", login)
		}
	}

	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md.String()), &buf); err != nil {
		writeError(w, http.StatusInternalServerError, "rendering violation: "+err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "<!DOCTYPE html>\n<html>\n<head><title>%s</title></head>\n<body>\n%s</body>\n</html>\n",
		v.Title, buf.String())
}
