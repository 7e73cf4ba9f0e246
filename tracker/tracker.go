// Package tracker implements the sleep-tracking core: a per-user
// awake/asleep state machine over the relational store, annotation
// operations, and the journal report. The chat gateway calls into this
// package per incoming command and renders replies from its return values;
// the tracker itself has no user-facing text beyond the journal.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/okorolev/sleepjournal/models"
	"github.com/okorolev/sleepjournal/repo"
	"github.com/okorolev/sleepjournal/store"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sentinel errors — state-machine preconditions as caller-visible errors
// ─────────────────────────────────────────────────────────────────────────────

var (
	// ErrSessionOpen is returned by BeginSession when the user already has
	// an open session.
	ErrSessionOpen = errors.New("tracker: session already open")

	// ErrNoOpenSession is returned by EndSession when the user has no open
	// session to close.
	ErrNoOpenSession = errors.New("tracker: no open session")

	// ErrNoSessions is returned by annotation and reporting operations when
	// the user has no sessions at all.
	ErrNoSessions = errors.New("tracker: no sessions recorded")

	// ErrInvalidQuality is returned when a quality rating falls outside [1,10].
	ErrInvalidQuality = errors.New("tracker: quality must be an integer between 1 and 10")

	// ErrEmptyNote is returned when an annotate call carries no text.
	ErrEmptyNote = errors.New("tracker: note text must not be empty")
)

var validate = validator.New()

// ─────────────────────────────────────────────────────────────────────────────
// Tracker
// ─────────────────────────────────────────────────────────────────────────────

// Tracker is the sleep-tracking component. It holds an injected store handle;
// there is no package-level connection, and every operation takes a context.
//
// Per user the state machine is: Awake (no sessions, or latest session
// closed) → Asleep (latest session open) → Awake. A user with zero sessions
// is awake — that is an explicit rule here, not a fallthrough. State
// transitions are guarded writes, so the check and the transition are one
// atomic unit even when the same user sends two commands concurrently.
type Tracker struct {
	db     *store.DB
	logger *slog.Logger
	clock  func() time.Time
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock replaces the wall clock. Tests use this to make durations exact.
func WithClock(clock func() time.Time) Option {
	return func(t *Tracker) { t.clock = clock }
}

// New returns a Tracker over the given store handle.
// logger may be nil, in which case slog.Default() is used.
func New(db *store.DB, logger *slog.Logger, opts ...Option) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	t := &Tracker{
		db:     db,
		logger: logger,
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// now returns the current time in UTC truncated to whole seconds — the
// resolution every stored timestamp and duration is kept at.
func (t *Tracker) now() time.Time {
	return t.clock().UTC().Truncate(time.Second)
}

// ─────────────────────────────────────────────────────────────────────────────
// Register
// ─────────────────────────────────────────────────────────────────────────────

// Register creates the user on first contact. Registering an already-known
// id is a successful no-op — the name stored at first registration is never
// updated, even when a later call carries a different one.
func (t *Tracker) Register(ctx context.Context, userID int64, name string) error {
	err := repo.NewUserRepo(t.db).Insert(ctx, models.User{ID: userID, Name: name})
	if store.IsDuplicateKey(err) {
		t.logger.DebugContext(ctx, "tracker: user already registered", "user_id", userID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("tracker: register user %d: %w", userID, err)
	}
	t.logger.InfoContext(ctx, "tracker: user registered", "user_id", userID)
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// State machine
// ─────────────────────────────────────────────────────────────────────────────

// IsAwake reports the user's current state: true when the latest session (by
// id) is closed or no sessions exist. It is a pure query — the gateway uses
// it to phrase replies, but BeginSession and EndSession no longer rely on
// the caller checking it first.
func (t *Tracker) IsAwake(ctx context.Context, userID int64) (bool, error) {
	latest, err := repo.NewSessionRepo(t.db).Latest(ctx, userID)
	if store.IsNotFound(err) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("tracker: state of user %d: %w", userID, err)
	}
	return !latest.Open(), nil
}

// BeginSession opens a new sleep session for the user. The session row and
// its empty note are created as one all-or-nothing unit, and the insert is
// conditioned on no open session existing — a double-tapped /sleep command
// yields ErrSessionOpen on the second call instead of a second open session.
func (t *Tracker) BeginSession(ctx context.Context, userID int64) error {
	start := t.now()

	err := t.db.ExecTx(ctx, func(tx *store.Tx) error {
		id, inserted, err := repo.NewSessionRepo(tx).InsertOpen(ctx, userID, start)
		if err != nil {
			return err
		}
		if !inserted {
			return ErrSessionOpen
		}
		return repo.NewNoteRepo(tx).Insert(ctx, id)
	})
	if errors.Is(err, ErrSessionOpen) {
		return ErrSessionOpen
	}
	if err != nil {
		return fmt.Errorf("tracker: begin session for user %d: %w", userID, err)
	}

	t.logger.InfoContext(ctx, "tracker: session started", "user_id", userID, "start", start)
	return nil
}

// EndSession closes the user's open session: end time is now truncated to
// whole seconds, duration is end − start in whole seconds. Called while
// awake it returns ErrNoOpenSession — an explicit error, not a silent no-op.
func (t *Tracker) EndSession(ctx context.Context, userID int64) error {
	err := t.db.ExecTx(ctx, func(tx *store.Tx) error {
		sessions := repo.NewSessionRepo(tx)

		latest, err := sessions.Latest(ctx, userID)
		if store.IsNotFound(err) {
			return ErrNoOpenSession
		}
		if err != nil {
			return err
		}
		if !latest.Open() {
			return ErrNoOpenSession
		}

		end := t.now()
		duration := int64(end.Sub(latest.StartTime.Truncate(time.Second)) / time.Second)

		// The IS NULL guard on the update makes this safe even if another
		// close slipped in between the read and the write.
		closed, err := sessions.Close(ctx, latest.ID, end, duration)
		if err != nil {
			return err
		}
		if !closed {
			return ErrNoOpenSession
		}

		t.logger.InfoContext(ctx, "tracker: session closed",
			"user_id", userID, "session_id", latest.ID, "duration_s", duration)
		return nil
	})
	if errors.Is(err, ErrNoOpenSession) {
		return ErrNoOpenSession
	}
	if err != nil {
		return fmt.Errorf("tracker: end session for user %d: %w", userID, err)
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Annotation
// ─────────────────────────────────────────────────────────────────────────────

// SetQuality writes a rating onto the user's latest session, overwriting any
// prior value. The range check lives here in the core, not at the gateway:
// values outside [1,10] are rejected with ErrInvalidQuality before any store
// round-trip. The store permits rating an open session; whether that is
// allowed is gateway policy.
func (t *Tracker) SetQuality(ctx context.Context, userID int64, value int64) error {
	if err := validate.Var(value, "gte=1,lte=10"); err != nil {
		return fmt.Errorf("%w: got %d", ErrInvalidQuality, value)
	}

	sessions := repo.NewSessionRepo(t.db)
	latest, err := sessions.Latest(ctx, userID)
	if store.IsNotFound(err) {
		return ErrNoSessions
	}
	if err != nil {
		return fmt.Errorf("tracker: set quality for user %d: %w", userID, err)
	}

	if err := sessions.SetQuality(ctx, latest.ID, value); err != nil {
		return fmt.Errorf("tracker: set quality for user %d: %w", userID, err)
	}
	return nil
}

// SetNote overwrites the note text of the user's latest session — each call
// replaces the previous text entirely, latest write wins. Empty text is
// rejected with ErrEmptyNote.
func (t *Tracker) SetNote(ctx context.Context, userID int64, text string) error {
	if err := validate.Var(text, "required"); err != nil {
		return ErrEmptyNote
	}

	latest, err := repo.NewSessionRepo(t.db).Latest(ctx, userID)
	if store.IsNotFound(err) {
		return ErrNoSessions
	}
	if err != nil {
		return fmt.Errorf("tracker: set note for user %d: %w", userID, err)
	}

	updated, err := repo.NewNoteRepo(t.db).SetText(ctx, latest.ID, text)
	if err != nil {
		return fmt.Errorf("tracker: set note for user %d: %w", userID, err)
	}
	if !updated {
		// Every session is created with its note; a missing row means the
		// store contents predate this schema or were edited by hand.
		return fmt.Errorf("tracker: note row missing for session %d", latest.ID)
	}
	return nil
}
