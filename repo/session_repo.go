package repo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/okorolev/sleepjournal/models"
	"github.com/okorolev/sleepjournal/store"
)

// ─────────────────────────────────────────────────────────────────────────────
// SessionRepository interface — for mocking in tests
// ─────────────────────────────────────────────────────────────────────────────

// SessionRepository defines the contract for sleep-session persistence.
//
// The two mutating transitions are guarded writes: InsertOpen only inserts
// when the user has no open session, and Close only closes a still-open row.
// Both report whether the write actually happened so the caller can surface
// the precondition violation instead of racing a separate state check.
type SessionRepository interface {
	InsertOpen(ctx context.Context, userID int64, start time.Time) (id int64, inserted bool, err error)
	Latest(ctx context.Context, userID int64) (*models.SleepSession, error)
	Close(ctx context.Context, sessionID int64, end time.Time, duration int64) (closed bool, err error)
	SetQuality(ctx context.Context, sessionID int64, quality int64) error
	ListByUser(ctx context.Context, userID int64) ([]models.SleepSession, error)
	ListWithNotes(ctx context.Context, userID int64) ([]models.JournalEntry, error)
	CountByUser(ctx context.Context, userID int64) (int64, error)
}

// ─────────────────────────────────────────────────────────────────────────────
// sessionRepo — concrete implementation
// ─────────────────────────────────────────────────────────────────────────────

type sessionRepo struct {
	q store.Querier
}

// NewSessionRepo returns a SessionRepository backed by q.
// q can be a *store.DB or *store.Tx — both satisfy store.Querier.
func NewSessionRepo(q store.Querier) SessionRepository {
	return &sessionRepo{q: q}
}

// ─────────────────────────────────────────────────────────────────────────────
// SQL constants — all SQL is explicit, version-controlled, and reviewable
// ─────────────────────────────────────────────────────────────────────────────

const (
	// Conditional insert: the WHERE NOT EXISTS guard makes "check state and
	// begin" a single atomic statement, so two concurrent begin calls for
	// the same user cannot both open a session.
	sqlInsertOpenSession = `
		INSERT INTO sleep_sessions (user_id, start_time)
		SELECT ?, ?
		WHERE  NOT EXISTS (
		       SELECT 1 FROM sleep_sessions
		       WHERE  user_id = ? AND end_time IS NULL)`

	sqlLatestSession = `
		SELECT id, user_id, start_time, end_time, duration, quality
		FROM   sleep_sessions
		WHERE  user_id = ?
		ORDER  BY id DESC
		LIMIT  1`

	// Guarded on end_time IS NULL so a session closes exactly once.
	sqlCloseSession = `
		UPDATE sleep_sessions
		SET    end_time = ?, duration = ?
		WHERE  id = ? AND end_time IS NULL`

	sqlSetQuality = `
		UPDATE sleep_sessions
		SET    quality = ?
		WHERE  id = ?`

	sqlListSessions = `
		SELECT id, user_id, start_time, end_time, duration, quality
		FROM   sleep_sessions
		WHERE  user_id = ?
		ORDER  BY id`

	sqlListSessionsWithNotes = `
		SELECT s.id, s.user_id, s.start_time, s.end_time, s.duration, s.quality, n.text
		FROM   sleep_sessions s
		LEFT   JOIN notes n ON n.session_id = s.id
		WHERE  s.user_id = ?
		ORDER  BY s.id`

	sqlCountSessions = `
		SELECT COUNT(*) FROM sleep_sessions WHERE user_id = ?`
)

// InsertOpen creates a new open session (end/duration/quality NULL) unless
// the user already has one. inserted is false when the guard suppressed the
// write; id is only meaningful when inserted is true.
func (r *sessionRepo) InsertOpen(ctx context.Context, userID int64, start time.Time) (int64, bool, error) {
	res, err := r.q.Exec(ctx, sqlInsertOpenSession, userID, start, userID)
	if err != nil {
		return 0, false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, false, err
	}
	if n == 0 {
		return 0, false, nil
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

// Latest returns the user's most recent session by id — sessions are only
// ever appended, so max id is also the latest start time.
// Returns store.ErrNotFound when the user has no sessions at all.
func (r *sessionRepo) Latest(ctx context.Context, userID int64) (*models.SleepSession, error) {
	row := r.q.QueryRow(ctx, sqlLatestSession, userID)
	return scanSession(row)
}

// Close writes end time and duration onto a still-open session.
// closed is false when the session was already closed (or the id is gone).
func (r *sessionRepo) Close(ctx context.Context, sessionID int64, end time.Time, duration int64) (bool, error) {
	res, err := r.q.Exec(ctx, sqlCloseSession, end, duration, sessionID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// SetQuality overwrites the quality rating of a session.
func (r *sessionRepo) SetQuality(ctx context.Context, sessionID int64, quality int64) error {
	_, err := r.q.Exec(ctx, sqlSetQuality, quality, sessionID)
	return err
}

// ListByUser returns all of a user's sessions ordered by ascending id.
func (r *sessionRepo) ListByUser(ctx context.Context, userID int64) ([]models.SleepSession, error) {
	rows, err := r.q.Query(ctx, sqlListSessions, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []models.SleepSession
	for rows.Next() {
		s, err := scanSessionColumns(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("repo/session: scan: %w", err)
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

// ListWithNotes returns all of a user's sessions joined with their note
// texts, ordered by ascending id. This is the journal read path.
func (r *sessionRepo) ListWithNotes(ctx context.Context, userID int64) ([]models.JournalEntry, error) {
	rows, err := r.q.Query(ctx, sqlListSessionsWithNotes, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.JournalEntry
	for rows.Next() {
		var (
			s        models.SleepSession
			end      sql.NullTime
			duration sql.NullInt64
			quality  sql.NullInt64
			note     sql.NullString
		)
		err := rows.Scan(&s.ID, &s.UserID, &s.StartTime, &end, &duration, &quality, &note)
		if err != nil {
			return nil, fmt.Errorf("repo/session: scan journal: %w", err)
		}
		applyNullable(&s, end, duration, quality)

		e := models.JournalEntry{Session: s}
		if note.Valid {
			e.NoteText = &note.String
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CountByUser returns the number of sessions recorded for a user.
func (r *sessionRepo) CountByUser(ctx context.Context, userID int64) (int64, error) {
	var n int64
	if err := r.q.QueryRow(ctx, sqlCountSessions, userID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// scan helpers — centralised column mapping
// ─────────────────────────────────────────────────────────────────────────────

// scanSession scans a single session row. Centralising the scan call means
// that adding/removing columns only requires a change in one place.
func scanSession(row *store.Row) (*models.SleepSession, error) {
	s, err := scanSessionColumns(row.Scan)
	if err != nil {
		return nil, fmt.Errorf("repo/session: %w", err)
	}
	return s, nil
}

func scanSessionColumns(scan func(dest ...any) error) (*models.SleepSession, error) {
	var (
		s        models.SleepSession
		end      sql.NullTime
		duration sql.NullInt64
		quality  sql.NullInt64
	)
	if err := scan(&s.ID, &s.UserID, &s.StartTime, &end, &duration, &quality); err != nil {
		return nil, err
	}
	applyNullable(&s, end, duration, quality)
	return &s, nil
}

func applyNullable(s *models.SleepSession, end sql.NullTime, duration, quality sql.NullInt64) {
	if end.Valid {
		t := end.Time
		s.EndTime = &t
	}
	if duration.Valid {
		d := duration.Int64
		s.Duration = &d
	}
	if quality.Valid {
		q := quality.Int64
		s.Quality = &q
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Compile-time interface assertion
// ─────────────────────────────────────────────────────────────────────────────

var _ SessionRepository = (*sessionRepo)(nil)
