package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/harunnryd/skillcall/pkg/backend"
	"github.com/harunnryd/skillcall/pkg/call"
)

const schema = `
CREATE TABLE IF NOT EXISTS calls (
	sessionId   TEXT PRIMARY KEY,
	phone       TEXT NOT NULL,
	languageKey TEXT NOT NULL,
	language    TEXT NOT NULL,
	stage       TEXT NOT NULL,
	outcome     TEXT NOT NULL,
	answers     TEXT NOT NULL,
	profile     TEXT,
	workerId    TEXT,
	startedAt   REAL NOT NULL,
	endedAt     REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS calls_outcome ON calls(outcome, endedAt);
`

// Store keeps one row per call session in SQLite. A later record for the
// same session replaces the earlier one, so a reviewed call that is then
// saved ends with outcome saved.
type Store struct {
	db *sql.DB
}

// DefaultPath returns the journal location under the user config dir.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "skillcall", "journal.sqlite")
}

// Open opens or creates the journal at path. ":memory:" is accepted.
func Open(path string) (*Store, error) {
	dsn := ":memory:"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create journal dir: %w", err)
		}
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores rec, replacing any earlier row for the same session.
func (s *Store) Record(ctx context.Context, rec call.CallRecord) error {
	answers, err := json.Marshal(rec.Answers)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}
	var profile sql.NullString
	if rec.Profile != nil {
		b, err := json.Marshal(rec.Profile)
		if err != nil {
			return fmt.Errorf("encode profile: %w", err)
		}
		profile = sql.NullString{String: string(b), Valid: true}
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO calls (sessionId, phone, languageKey, language, stage, outcome, answers, profile, workerId, startedAt, endedAt)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(sessionId) DO UPDATE SET
			stage = excluded.stage,
			outcome = excluded.outcome,
			answers = excluded.answers,
			profile = excluded.profile,
			workerId = excluded.workerId,
			endedAt = excluded.endedAt
	`, rec.SessionID, rec.Phone, rec.LanguageKey, rec.Language, rec.Stage.String(), string(rec.Outcome),
		string(answers), profile, rec.WorkerID, unixSeconds(rec.StartedAt), unixSeconds(rec.EndedAt))
	if err != nil {
		return fmt.Errorf("insert call: %w", err)
	}
	return nil
}

// Recent returns the latest calls, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]call.CallRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.query(ctx, `
		SELECT sessionId, phone, languageKey, language, stage, outcome, answers, profile, workerId, startedAt, endedAt
		FROM calls
		ORDER BY endedAt DESC
		LIMIT ?
	`, limit)
}

// Unsaved returns reviewed calls whose profile never reached the backend,
// oldest first.
func (s *Store) Unsaved(ctx context.Context) ([]call.CallRecord, error) {
	return s.query(ctx, `
		SELECT sessionId, phone, languageKey, language, stage, outcome, answers, profile, workerId, startedAt, endedAt
		FROM calls
		WHERE outcome IN (?, ?) AND profile IS NOT NULL
		ORDER BY endedAt ASC
	`, string(call.OutcomeReviewed), string(call.OutcomeSaveFailed))
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]call.CallRecord, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query calls: %w", err)
	}
	defer rows.Close()

	var out []call.CallRecord
	for rows.Next() {
		var rec call.CallRecord
		var stage, outcome, answers string
		var profile, workerID sql.NullString
		var startedAt, endedAt float64
		if err := rows.Scan(&rec.SessionID, &rec.Phone, &rec.LanguageKey, &rec.Language, &stage, &outcome,
			&answers, &profile, &workerID, &startedAt, &endedAt); err != nil {
			return nil, fmt.Errorf("scan call: %w", err)
		}
		rec.Stage = parseStage(stage)
		rec.Outcome = call.Outcome(outcome)
		if err := json.Unmarshal([]byte(answers), &rec.Answers); err != nil {
			return nil, fmt.Errorf("decode answers: %w", err)
		}
		if profile.Valid {
			var p backend.Profile
			if err := json.Unmarshal([]byte(profile.String), &p); err != nil {
				return nil, fmt.Errorf("decode profile: %w", err)
			}
			rec.Profile = p
		}
		rec.WorkerID = workerID.String
		rec.StartedAt = timeFromUnix(startedAt)
		rec.EndedAt = timeFromUnix(endedAt)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func parseStage(s string) call.Stage {
	for st := call.StageDial; st <= call.StageDone; st++ {
		if st.String() == s {
			return st
		}
	}
	return call.StageDial
}

func unixSeconds(t time.Time) float64 {
	if t.IsZero() {
		return 0
	}
	return float64(t.UnixNano()) / 1e9
}

func timeFromUnix(ts float64) time.Time {
	sec := int64(ts)
	nsec := int64((ts - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}

var _ call.Journal = (*Store)(nil)
