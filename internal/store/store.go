// Package store handles SQLite persistence of study progress.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/revise/internal/graph"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Store wraps SQLite access for progress data.
type Store struct {
	db *sql.DB
}

// Completion records that one revision session was done.
type Completion struct {
	SessionID   string
	ContentKey  string
	Date        string
	CompletedAt time.Time
	Orphaned    bool
}

// Mastery records a concept the user considers known.
type Mastery struct {
	Name       string
	MasteredAt time.Time
}

// Run is one plan generation.
type Run struct {
	ID            string
	GeneratedAt   time.Time
	ExamDate      string
	TotalSessions int
	TotalConcepts int
	TotalHours    float64
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS session_progress (
			session_id TEXT PRIMARY KEY,
			content_key TEXT NOT NULL,
			date TEXT NOT NULL,
			completed_at TEXT NOT NULL,
			orphaned INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS concept_mastery (
			key TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			mastered_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS plan_runs (
			id TEXT PRIMARY KEY,
			generated_at TEXT NOT NULL,
			exam_date TEXT NOT NULL,
			total_sessions INTEGER NOT NULL,
			total_concepts INTEGER NOT NULL,
			total_hours REAL NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_session_progress_content_key ON session_progress(content_key);`,
		`CREATE INDEX IF NOT EXISTS idx_plan_runs_generated_at ON plan_runs(generated_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// MarkSessionDone stores or refreshes a completion record.
func (s *Store) MarkSessionDone(ctx context.Context, c Completion) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO session_progress (session_id, content_key, date, completed_at, orphaned)
		 VALUES (?, ?, ?, ?, 0)
		 ON CONFLICT(session_id) DO UPDATE SET
			content_key = excluded.content_key,
			date = excluded.date,
			completed_at = excluded.completed_at,
			orphaned = 0`,
		c.SessionID, c.ContentKey, c.Date, c.CompletedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to mark session %s: %w", c.SessionID, err)
	}
	return nil
}

// UnmarkSession removes a completion record. It reports whether one existed.
func (s *Store) UnmarkSession(ctx context.Context, sessionID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM session_progress WHERE session_id = ?`, sessionID)
	if err != nil {
		return false, fmt.Errorf("failed to unmark session %s: %w", sessionID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListCompletions returns every completion record ordered by date.
func (s *Store) ListCompletions(ctx context.Context) ([]Completion, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, content_key, date, completed_at, orphaned
		 FROM session_progress
		 ORDER BY date ASC, session_id ASC`)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []Completion
	for rows.Next() {
		var c Completion
		var completedAt string
		var orphaned int
		if err := rows.Scan(&c.SessionID, &c.ContentKey, &c.Date, &completedAt, &orphaned); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, completedAt)
		if err != nil {
			return nil, err
		}
		c.CompletedAt = parsed
		c.Orphaned = orphaned != 0
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// CompletedSessions returns the ids of sessions marked done and still attached to the plan.
func (s *Store) CompletedSessions(ctx context.Context) (map[string]bool, error) {
	all, err := s.ListCompletions(ctx)
	if err != nil {
		return nil, err
	}
	done := make(map[string]bool, len(all))
	for _, c := range all {
		if !c.Orphaned {
			done[c.SessionID] = true
		}
	}
	return done, nil
}

// MarkConceptMastered records a concept as known. Names are matched case-insensitively.
func (s *Store) MarkConceptMastered(ctx context.Context, name string, at time.Time) error {
	key := graph.NormalizeName(name)
	if key == "" {
		return errors.New("concept name is empty")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO concept_mastery (key, name, mastered_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET name = excluded.name, mastered_at = excluded.mastered_at`,
		key, strings.TrimSpace(name), at.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to mark concept %q: %w", name, err)
	}
	return nil
}

// UnmarkConcept forgets a mastered concept. It reports whether one existed.
func (s *Store) UnmarkConcept(ctx context.Context, name string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM concept_mastery WHERE key = ?`, graph.NormalizeName(name))
	if err != nil {
		return false, fmt.Errorf("failed to unmark concept %q: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListMastered returns mastered concepts sorted by name.
func (s *Store) ListMastered(ctx context.Context) ([]Mastery, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, mastered_at FROM concept_mastery ORDER BY key ASC`)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []Mastery
	for rows.Next() {
		var m Mastery
		var at string
		if err := rows.Scan(&m.Name, &at); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, at)
		if err != nil {
			return nil, err
		}
		m.MasteredAt = parsed
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// MasteredNames returns the mastered concept names.
func (s *Store) MasteredNames(ctx context.Context) ([]string, error) {
	all, err := s.ListMastered(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(all))
	for i, m := range all {
		names[i] = m.Name
	}
	return names, nil
}

// RecordRun stores a plan generation and returns its id.
func (s *Store) RecordRun(ctx context.Context, run Run) (string, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO plan_runs (id, generated_at, exam_date, total_sessions, total_concepts, total_hours)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.GeneratedAt.Format(time.RFC3339Nano), run.ExamDate, run.TotalSessions, run.TotalConcepts, run.TotalHours)
	if err != nil {
		return "", fmt.Errorf("failed to record plan run: %w", err)
	}
	return run.ID, nil
}

// ListRuns returns the most recent runs first. A limit <= 0 returns all runs.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT id, generated_at, exam_date, total_sessions, total_concepts, total_hours
		FROM plan_runs
		ORDER BY generated_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []Run
	for rows.Next() {
		var r Run
		var at string
		if err := rows.Scan(&r.ID, &at, &r.ExamDate, &r.TotalSessions, &r.TotalConcepts, &r.TotalHours); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, at)
		if err != nil {
			return nil, err
		}
		r.GeneratedAt = parsed
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// PlanSession is the part of a planned session reconciliation needs.
type PlanSession struct {
	ID         string
	ContentKey string
	Date       string
}

// ReconcileResult counts what happened to completion records.
type ReconcileResult struct {
	Kept     int
	Migrated int
	Orphaned []string
}

// Reconcile re-attaches completion records to a freshly generated plan.
// Records whose id is still planned are kept. Others move to an unclaimed
// planned session with the same content key, earliest first. The rest are
// flagged orphaned and kept in the database.
func (s *Store) Reconcile(ctx context.Context, planned []PlanSession) (result ReconcileResult, err error) {
	completions, err := s.ListCompletions(ctx)
	if err != nil {
		return ReconcileResult{}, err
	}

	ids := make(map[string]bool, len(planned))
	byKey := map[string][]PlanSession{}
	for _, p := range planned {
		ids[p.ID] = true
		byKey[p.ContentKey] = append(byKey[p.ContentKey], p)
	}
	for key := range byKey {
		sort.SliceStable(byKey[key], func(i, j int) bool { return byKey[key][i].Date < byKey[key][j].Date })
	}
	claimed := map[string]bool{}
	for _, c := range completions {
		if ids[c.SessionID] {
			claimed[c.SessionID] = true
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ReconcileResult{}, err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	for _, c := range completions {
		if ids[c.SessionID] {
			result.Kept++
			if c.Orphaned {
				if _, err = tx.ExecContext(ctx, `UPDATE session_progress SET orphaned = 0 WHERE session_id = ?`, c.SessionID); err != nil {
					return ReconcileResult{}, err
				}
			}
			continue
		}
		if target, ok := firstUnclaimed(byKey[c.ContentKey], claimed); ok {
			claimed[target.ID] = true
			result.Migrated++
			if _, err = tx.ExecContext(ctx,
				`UPDATE session_progress SET session_id = ?, date = ?, orphaned = 0 WHERE session_id = ?`,
				target.ID, target.Date, c.SessionID); err != nil {
				return ReconcileResult{}, err
			}
			continue
		}
		result.Orphaned = append(result.Orphaned, c.SessionID)
		if !c.Orphaned {
			if _, err = tx.ExecContext(ctx, `UPDATE session_progress SET orphaned = 1 WHERE session_id = ?`, c.SessionID); err != nil {
				return ReconcileResult{}, err
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return ReconcileResult{}, err
	}
	return result, nil
}

func firstUnclaimed(candidates []PlanSession, claimed map[string]bool) (PlanSession, bool) {
	for _, c := range candidates {
		if !claimed[c.ID] {
			return c, true
		}
	}
	return PlanSession{}, false
}
