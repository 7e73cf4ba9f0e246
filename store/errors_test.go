package store_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/okorolev/sleepjournal/store"
)

// ─────────────────────────────────────────────────────────────────────────────
// DefaultErrorMapper — per-driver translation
// ─────────────────────────────────────────────────────────────────────────────

func TestErrorMapper_StdlibSentinels(t *testing.T) {
	m := store.DefaultErrorMapper()

	if got := m.Map(sql.ErrNoRows); !store.IsNotFound(got) {
		t.Fatalf("ErrNoRows: expected ErrNotFound, got %v", got)
	}
	if got := m.Map(context.DeadlineExceeded); !store.IsTimeout(got) {
		t.Fatalf("DeadlineExceeded: expected ErrTimeout, got %v", got)
	}
	if got := m.Map(nil); got != nil {
		t.Fatalf("nil must map to nil, got %v", got)
	}
}

func TestErrorMapper_SQLite(t *testing.T) {
	m := store.DefaultErrorMapper()

	cases := []struct {
		msg   string
		check func(error) bool
		name  string
	}{
		{"UNIQUE constraint failed: users.id", store.IsDuplicateKey, "duplicate"},
		{"FOREIGN KEY constraint failed", store.IsForeignKeyViolation, "foreign key"},
		{"CHECK constraint failed: quality", store.IsCheckViolation, "check"},
		{"database is locked", store.IsTimeout, "locked"},
	}
	for _, c := range cases {
		if got := m.Map(errors.New(c.msg)); !c.check(got) {
			t.Fatalf("%s: wrong mapping for %q: %v", c.name, c.msg, got)
		}
	}
}

func TestErrorMapper_Postgres(t *testing.T) {
	m := store.DefaultErrorMapper()

	// pq.Error carries the SQLSTATE in Code.
	dup := &pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"}
	if got := m.Map(dup); !store.IsDuplicateKey(got) {
		t.Fatalf("23505: expected ErrDuplicateKey, got %v", got)
	}

	fk := &pq.Error{Code: "23503"}
	if got := m.Map(fk); !store.IsForeignKeyViolation(got) {
		t.Fatalf("23503: expected ErrForeignKeyViolation, got %v", got)
	}

	check := &pq.Error{Code: "23514"}
	if got := m.Map(check); !store.IsCheckViolation(got) {
		t.Fatalf("23514: expected ErrCheckViolation, got %v", got)
	}
}

func TestErrorMapper_MySQL(t *testing.T) {
	m := store.DefaultErrorMapper()

	dup := &mysql.MySQLError{Number: 1062, Message: "Duplicate entry '1' for key 'PRIMARY'"}
	if got := m.Map(dup); !store.IsDuplicateKey(got) {
		t.Fatalf("1062: expected ErrDuplicateKey, got %v", got)
	}

	fk := &mysql.MySQLError{Number: 1452}
	if got := m.Map(fk); !store.IsForeignKeyViolation(got) {
		t.Fatalf("1452: expected ErrForeignKeyViolation, got %v", got)
	}
}

func TestErrorMapper_PassthroughUnknown(t *testing.T) {
	m := store.DefaultErrorMapper()

	plain := errors.New("something else entirely")
	if got := m.Map(plain); got != plain {
		t.Fatalf("unknown errors must pass through unchanged, got %v", got)
	}
}

func TestChainMapper_FirstMatchWins(t *testing.T) {
	custom := store.ErrorMapperFunc(func(err error) error {
		if err != nil && err.Error() == "boom" {
			return store.ErrTimeout
		}
		return err
	})

	chain := store.ChainMapper(custom, store.DefaultErrorMapper())

	if got := chain.Map(errors.New("boom")); !store.IsTimeout(got) {
		t.Fatalf("custom mapper not consulted: %v", got)
	}
	if got := chain.Map(sql.ErrNoRows); !store.IsNotFound(got) {
		t.Fatalf("fallback mapper not consulted: %v", got)
	}
}
