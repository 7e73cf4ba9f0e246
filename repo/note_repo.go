package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/okorolev/sleepjournal/models"
	"github.com/okorolev/sleepjournal/store"
)

// ─────────────────────────────────────────────────────────────────────────────
// NoteRepository interface — for mocking in tests
// ─────────────────────────────────────────────────────────────────────────────

// NoteRepository defines the contract for note persistence. Notes are
// one-to-one with sessions: Insert runs in the same transaction as the
// session insert, and SetText overwrites — annotation is never an append.
type NoteRepository interface {
	Insert(ctx context.Context, sessionID int64) error
	SetText(ctx context.Context, sessionID int64, text string) (updated bool, err error)
	GetBySession(ctx context.Context, sessionID int64) (*models.Note, error)
}

// ─────────────────────────────────────────────────────────────────────────────
// noteRepo — concrete implementation
// ─────────────────────────────────────────────────────────────────────────────

type noteRepo struct {
	q store.Querier
}

// NewNoteRepo returns a NoteRepository backed by q.
// q can be a *store.DB or *store.Tx — both satisfy store.Querier.
func NewNoteRepo(q store.Querier) NoteRepository {
	return &noteRepo{q: q}
}

// ─────────────────────────────────────────────────────────────────────────────
// SQL constants — all SQL is explicit, version-controlled, and reviewable
// ─────────────────────────────────────────────────────────────────────────────

const (
	sqlInsertNote = `
		INSERT INTO notes (session_id)
		VALUES (?)`

	sqlSetNoteText = `
		UPDATE notes
		SET    text = ?
		WHERE  session_id = ?`

	sqlGetNoteBySession = `
		SELECT id, session_id, text
		FROM   notes
		WHERE  session_id = ?
		LIMIT  1`
)

// Insert creates the empty note for a freshly opened session (text NULL).
func (r *noteRepo) Insert(ctx context.Context, sessionID int64) error {
	_, err := r.q.Exec(ctx, sqlInsertNote, sessionID)
	return err
}

// SetText overwrites the note text for a session; latest write wins.
// updated is false when no note row exists for the session.
func (r *noteRepo) SetText(ctx context.Context, sessionID int64, text string) (bool, error) {
	res, err := r.q.Exec(ctx, sqlSetNoteText, text, sessionID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetBySession returns the note attached to a session.
// Returns store.ErrNotFound when no note exists.
func (r *noteRepo) GetBySession(ctx context.Context, sessionID int64) (*models.Note, error) {
	var (
		n    models.Note
		text sql.NullString
	)
	err := r.q.QueryRow(ctx, sqlGetNoteBySession, sessionID).Scan(&n.ID, &n.SessionID, &text)
	if err != nil {
		return nil, fmt.Errorf("repo/note: %w", err)
	}
	if text.Valid {
		n.Text = &text.String
	}
	return &n, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Compile-time interface assertion
// ─────────────────────────────────────────────────────────────────────────────

var _ NoteRepository = (*noteRepo)(nil)
