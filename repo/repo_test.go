// repo/repo_test.go — repository tests against an in-memory SQLite database.
//
// Run:  go test ./repo/... -v -race
package repo_test

import (
	"context"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/okorolev/sleepjournal/models"
	"github.com/okorolev/sleepjournal/repo"
	"github.com/okorolev/sleepjournal/store"
)

// ─────────────────────────────────────────────────────────────────────────────
// Test fixture
// ─────────────────────────────────────────────────────────────────────────────

func newTestStore(t *testing.T) *store.DB {
	t.Helper()

	database, err := store.Open(store.Config{
		DSN:        ":memory:",
		DriverName: "sqlite3",
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })

	ctx := context.Background()
	for _, stmt := range []string{
		`CREATE TABLE users (
			id   INTEGER PRIMARY KEY,
			name TEXT NOT NULL
		)`,
		`CREATE TABLE sleep_sessions (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id    INTEGER NOT NULL REFERENCES users (id),
			start_time DATETIME NOT NULL,
			end_time   DATETIME,
			duration   INTEGER,
			quality    INTEGER CHECK (quality BETWEEN 1 AND 10)
		)`,
		`CREATE TABLE notes (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id INTEGER NOT NULL REFERENCES sleep_sessions (id),
			text       TEXT
		)`,
	} {
		if _, err := database.Exec(ctx, stmt); err != nil {
			t.Fatalf("schema: %v", err)
		}
	}
	return database
}

func mustRegister(t *testing.T, d *store.DB, id int64, name string) {
	t.Helper()
	if err := repo.NewUserRepo(d).Insert(context.Background(), models.User{ID: id, Name: name}); err != nil {
		t.Fatalf("register user %d: %v", id, err)
	}
}

var testStart = time.Date(2026, 3, 1, 23, 30, 0, 0, time.UTC)

// ─────────────────────────────────────────────────────────────────────────────
// UserRepository
// ─────────────────────────────────────────────────────────────────────────────

func TestUserRepo_InsertAndGet(t *testing.T) {
	d := newTestStore(t)
	r := repo.NewUserRepo(d)
	ctx := context.Background()

	if err := r.Insert(ctx, models.User{ID: 42, Name: "Alice"}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	u, err := r.GetByID(ctx, 42)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if u.ID != 42 || u.Name != "Alice" {
		t.Fatalf("unexpected user: %+v", u)
	}
}

func TestUserRepo_InsertDuplicate(t *testing.T) {
	d := newTestStore(t)
	r := repo.NewUserRepo(d)
	ctx := context.Background()

	if err := r.Insert(ctx, models.User{ID: 42, Name: "Alice"}); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	err := r.Insert(ctx, models.User{ID: 42, Name: "Impostor"})
	if !store.IsDuplicateKey(err) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}

	// The original name must survive the duplicate attempt.
	u, err := r.GetByID(ctx, 42)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if u.Name != "Alice" {
		t.Fatalf("expected original name kept, got %q", u.Name)
	}
}

func TestUserRepo_GetByID_NotFound(t *testing.T) {
	d := newTestStore(t)

	_, err := repo.NewUserRepo(d).GetByID(context.Background(), 99999)
	if !store.IsNotFound(err) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUserRepo_Count(t *testing.T) {
	d := newTestStore(t)
	r := repo.NewUserRepo(d)
	ctx := context.Background()

	mustRegister(t, d, 1, "Alice")
	mustRegister(t, d, 2, "Bob")

	n, err := r.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 users, got %d", n)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// SessionRepository — guarded begin
// ─────────────────────────────────────────────────────────────────────────────

func TestSessionRepo_InsertOpen(t *testing.T) {
	d := newTestStore(t)
	r := repo.NewSessionRepo(d)
	ctx := context.Background()
	mustRegister(t, d, 1, "Alice")

	id, inserted, err := r.InsertOpen(ctx, 1, testStart)
	if err != nil {
		t.Fatalf("insert open: %v", err)
	}
	if !inserted {
		t.Fatal("expected insert to happen")
	}
	if id == 0 {
		t.Fatal("expected a non-zero session id")
	}

	s, err := r.Latest(ctx, 1)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if !s.Open() {
		t.Fatal("fresh session must be open")
	}
	if !s.StartTime.Equal(testStart) {
		t.Fatalf("start time mismatch: %v", s.StartTime)
	}
	if s.Duration != nil || s.Quality != nil {
		t.Fatalf("fresh session must have NULL duration and quality: %+v", s)
	}
}

func TestSessionRepo_InsertOpen_GuardBlocksSecond(t *testing.T) {
	d := newTestStore(t)
	r := repo.NewSessionRepo(d)
	ctx := context.Background()
	mustRegister(t, d, 1, "Alice")

	if _, inserted, err := r.InsertOpen(ctx, 1, testStart); err != nil || !inserted {
		t.Fatalf("first insert: inserted=%v err=%v", inserted, err)
	}

	// Second begin while a session is open: the guard suppresses the write.
	_, inserted, err := r.InsertOpen(ctx, 1, testStart.Add(time.Hour))
	if err != nil {
		t.Fatalf("second insert: %v", err)
	}
	if inserted {
		t.Fatal("guard failed: second open session was inserted")
	}

	n, _ := r.CountByUser(ctx, 1)
	if n != 1 {
		t.Fatalf("expected exactly 1 session, got %d", n)
	}
}

func TestSessionRepo_InsertOpen_OtherUserUnaffected(t *testing.T) {
	d := newTestStore(t)
	r := repo.NewSessionRepo(d)
	ctx := context.Background()
	mustRegister(t, d, 1, "Alice")
	mustRegister(t, d, 2, "Bob")

	if _, inserted, _ := r.InsertOpen(ctx, 1, testStart); !inserted {
		t.Fatal("alice insert suppressed")
	}
	// Alice being asleep must not block Bob.
	if _, inserted, err := r.InsertOpen(ctx, 2, testStart); err != nil || !inserted {
		t.Fatalf("bob insert: inserted=%v err=%v", inserted, err)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// SessionRepository — guarded close
// ─────────────────────────────────────────────────────────────────────────────

func TestSessionRepo_Close(t *testing.T) {
	d := newTestStore(t)
	r := repo.NewSessionRepo(d)
	ctx := context.Background()
	mustRegister(t, d, 1, "Alice")

	id, _, err := r.InsertOpen(ctx, 1, testStart)
	if err != nil {
		t.Fatalf("insert open: %v", err)
	}

	end := testStart.Add(8 * time.Hour)
	closed, err := r.Close(ctx, id, end, 8*3600)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if !closed {
		t.Fatal("expected session to close")
	}

	s, err := r.Latest(ctx, 1)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if s.Open() {
		t.Fatal("session still open after close")
	}
	if s.EndTime == nil || !s.EndTime.Equal(end) {
		t.Fatalf("end time mismatch: %+v", s.EndTime)
	}
	if s.Duration == nil || *s.Duration != 8*3600 {
		t.Fatalf("duration mismatch: %+v", s.Duration)
	}
}

func TestSessionRepo_Close_AlreadyClosed(t *testing.T) {
	d := newTestStore(t)
	r := repo.NewSessionRepo(d)
	ctx := context.Background()
	mustRegister(t, d, 1, "Alice")

	id, _, _ := r.InsertOpen(ctx, 1, testStart)
	end := testStart.Add(time.Hour)
	if closed, _ := r.Close(ctx, id, end, 3600); !closed {
		t.Fatal("first close suppressed")
	}

	// Closing twice must be a no-op reported to the caller.
	closed, err := r.Close(ctx, id, end.Add(time.Hour), 7200)
	if err != nil {
		t.Fatalf("second close: %v", err)
	}
	if closed {
		t.Fatal("guard failed: closed session closed again")
	}

	s, _ := r.Latest(ctx, 1)
	if *s.Duration != 3600 {
		t.Fatalf("first close overwritten: duration=%d", *s.Duration)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// SessionRepository — Latest / quality / listing
// ─────────────────────────────────────────────────────────────────────────────

func TestSessionRepo_Latest_NotFound(t *testing.T) {
	d := newTestStore(t)
	mustRegister(t, d, 1, "Alice")

	_, err := repo.NewSessionRepo(d).Latest(context.Background(), 1)
	if !store.IsNotFound(err) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSessionRepo_Latest_PicksHighestID(t *testing.T) {
	d := newTestStore(t)
	r := repo.NewSessionRepo(d)
	ctx := context.Background()
	mustRegister(t, d, 1, "Alice")

	first, _, _ := r.InsertOpen(ctx, 1, testStart)
	if _, err := r.Close(ctx, first, testStart.Add(time.Hour), 3600); err != nil {
		t.Fatalf("close first: %v", err)
	}
	second, _, _ := r.InsertOpen(ctx, 1, testStart.Add(24*time.Hour))

	s, err := r.Latest(ctx, 1)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if s.ID != second {
		t.Fatalf("expected latest id %d, got %d", second, s.ID)
	}
}

func TestSessionRepo_SetQuality(t *testing.T) {
	d := newTestStore(t)
	r := repo.NewSessionRepo(d)
	ctx := context.Background()
	mustRegister(t, d, 1, "Alice")

	id, _, _ := r.InsertOpen(ctx, 1, testStart)
	if err := r.SetQuality(ctx, id, 7); err != nil {
		t.Fatalf("set quality: %v", err)
	}
	// Overwrite: the second rating replaces the first.
	if err := r.SetQuality(ctx, id, 9); err != nil {
		t.Fatalf("overwrite quality: %v", err)
	}

	s, _ := r.Latest(ctx, 1)
	if s.Quality == nil || *s.Quality != 9 {
		t.Fatalf("expected quality 9, got %+v", s.Quality)
	}
}

func TestSessionRepo_SetQuality_CheckViolation(t *testing.T) {
	d := newTestStore(t)
	r := repo.NewSessionRepo(d)
	ctx := context.Background()
	mustRegister(t, d, 1, "Alice")

	id, _, _ := r.InsertOpen(ctx, 1, testStart)
	err := r.SetQuality(ctx, id, 11)
	if !store.IsCheckViolation(err) {
		t.Fatalf("expected ErrCheckViolation, got %v", err)
	}
}

func TestSessionRepo_ListByUser_Ordering(t *testing.T) {
	d := newTestStore(t)
	r := repo.NewSessionRepo(d)
	ctx := context.Background()
	mustRegister(t, d, 1, "Alice")

	var ids []int64
	for i := 0; i < 3; i++ {
		id, _, _ := r.InsertOpen(ctx, 1, testStart.Add(time.Duration(i)*24*time.Hour))
		if _, err := r.Close(ctx, id, testStart.Add(time.Duration(i)*24*time.Hour+8*time.Hour), 8*3600); err != nil {
			t.Fatalf("close %d: %v", id, err)
		}
		ids = append(ids, id)
	}

	sessions, err := r.ListByUser(ctx, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sessions) != 3 {
		t.Fatalf("expected 3 sessions, got %d", len(sessions))
	}
	for i, s := range sessions {
		if s.ID != ids[i] {
			t.Fatalf("ordering broken at %d: got id %d, want %d", i, s.ID, ids[i])
		}
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// NoteRepository
// ─────────────────────────────────────────────────────────────────────────────

func TestNoteRepo_InsertAndSetText(t *testing.T) {
	d := newTestStore(t)
	sessions := repo.NewSessionRepo(d)
	notes := repo.NewNoteRepo(d)
	ctx := context.Background()
	mustRegister(t, d, 1, "Alice")

	id, _, _ := sessions.InsertOpen(ctx, 1, testStart)
	if err := notes.Insert(ctx, id); err != nil {
		t.Fatalf("insert note: %v", err)
	}

	// Fresh note carries NULL text.
	n, err := notes.GetBySession(ctx, id)
	if err != nil {
		t.Fatalf("get note: %v", err)
	}
	if n.Text != nil {
		t.Fatalf("expected NULL text, got %q", *n.Text)
	}

	updated, err := notes.SetText(ctx, id, "restless night")
	if err != nil {
		t.Fatalf("set text: %v", err)
	}
	if !updated {
		t.Fatal("expected update to happen")
	}

	// Overwrite: latest text wins.
	if _, err := notes.SetText(ctx, id, "actually fine"); err != nil {
		t.Fatalf("overwrite text: %v", err)
	}
	n, _ = notes.GetBySession(ctx, id)
	if n.Text == nil || *n.Text != "actually fine" {
		t.Fatalf("expected overwritten text, got %+v", n.Text)
	}
}

func TestNoteRepo_SetText_NoRow(t *testing.T) {
	d := newTestStore(t)
	notes := repo.NewNoteRepo(d)

	updated, err := notes.SetText(context.Background(), 12345, "orphan")
	if err != nil {
		t.Fatalf("set text: %v", err)
	}
	if updated {
		t.Fatal("expected no update without a note row")
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Journal read path
// ─────────────────────────────────────────────────────────────────────────────

func TestSessionRepo_ListWithNotes(t *testing.T) {
	d := newTestStore(t)
	sessions := repo.NewSessionRepo(d)
	notes := repo.NewNoteRepo(d)
	ctx := context.Background()
	mustRegister(t, d, 1, "Alice")

	// Session 1: closed, rated, with note.
	first, _, _ := sessions.InsertOpen(ctx, 1, testStart)
	if err := notes.Insert(ctx, first); err != nil {
		t.Fatalf("insert note: %v", err)
	}
	if _, err := sessions.Close(ctx, first, testStart.Add(8*time.Hour), 8*3600); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := sessions.SetQuality(ctx, first, 8); err != nil {
		t.Fatalf("quality: %v", err)
	}
	if _, err := notes.SetText(ctx, first, "slept well"); err != nil {
		t.Fatalf("text: %v", err)
	}

	// Session 2: still open, note row present but empty.
	second, _, _ := sessions.InsertOpen(ctx, 1, testStart.Add(24*time.Hour))
	if err := notes.Insert(ctx, second); err != nil {
		t.Fatalf("insert note 2: %v", err)
	}

	entries, err := sessions.ListWithNotes(ctx, 1)
	if err != nil {
		t.Fatalf("list with notes: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	e := entries[0]
	if e.Session.ID != first || e.NoteText == nil || *e.NoteText != "slept well" {
		t.Fatalf("unexpected first entry: %+v", e)
	}
	if e.Session.Quality == nil || *e.Session.Quality != 8 {
		t.Fatalf("first entry quality: %+v", e.Session.Quality)
	}

	e = entries[1]
	if e.Session.ID != second || !e.Session.Open() || e.NoteText != nil {
		t.Fatalf("unexpected second entry: %+v", e)
	}
}
