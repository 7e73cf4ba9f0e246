package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sentinel errors
// ─────────────────────────────────────────────────────────────────────────────

var (
	// ErrNotFound is returned when a query matches no rows.
	ErrNotFound = errors.New("sleepjournal/store: record not found")

	// ErrDuplicateKey is returned on unique constraint violations.
	// User registration treats it as a successful no-op.
	ErrDuplicateKey = errors.New("sleepjournal/store: duplicate key")

	// ErrForeignKeyViolation is returned when a session or note references a
	// missing parent row.
	ErrForeignKeyViolation = errors.New("sleepjournal/store: foreign key violation")

	// ErrCheckViolation is returned when a CHECK constraint is violated.
	ErrCheckViolation = errors.New("sleepjournal/store: check constraint violation")

	// ErrTimeout is returned when a statement exceeds its deadline.
	ErrTimeout = errors.New("sleepjournal/store: query timeout")

	// ErrConnectionFailed is returned when the driver cannot reach the server.
	ErrConnectionFailed = errors.New("sleepjournal/store: connection failed")
)

// ─────────────────────────────────────────────────────────────────────────────
// Error helpers — use errors.Is() for type-safe checks
// ─────────────────────────────────────────────────────────────────────────────

func IsNotFound(err error) bool            { return errors.Is(err, ErrNotFound) }
func IsDuplicateKey(err error) bool        { return errors.Is(err, ErrDuplicateKey) }
func IsForeignKeyViolation(err error) bool { return errors.Is(err, ErrForeignKeyViolation) }
func IsCheckViolation(err error) bool      { return errors.Is(err, ErrCheckViolation) }
func IsTimeout(err error) bool             { return errors.Is(err, ErrTimeout) }

// ─────────────────────────────────────────────────────────────────────────────
// StoreError — rich error type preserving the original driver error
// ─────────────────────────────────────────────────────────────────────────────

// StoreError wraps a sentinel error with the original driver error so callers
// can either use errors.Is(err, ErrDuplicateKey) for simple checks or inspect
// the raw driver error for additional context.
type StoreError struct {
	// Sentinel is one of the package-level Err* variables.
	Sentinel error
	// Cause is the original driver error.
	Cause error
	// Message is an optional human-readable hint.
	Message string
}

func (e *StoreError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Sentinel, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (cause: %v)", e.Sentinel, e.Cause)
}

func (e *StoreError) Is(target error) bool { return errors.Is(e.Sentinel, target) }
func (e *StoreError) Unwrap() error        { return e.Cause }

// ─────────────────────────────────────────────────────────────────────────────
// ErrorMapper interface — pluggable per driver
// ─────────────────────────────────────────────────────────────────────────────

// ErrorMapper translates raw driver errors into the store's sentinel errors.
type ErrorMapper interface {
	Map(err error) error
}

// ErrorMapperFunc is a convenience adapter from a function to ErrorMapper.
type ErrorMapperFunc func(error) error

func (f ErrorMapperFunc) Map(err error) error { return f(err) }

// ─────────────────────────────────────────────────────────────────────────────
// Default mapper — covers SQLite, PostgreSQL (lib/pq + pgx), MySQL
// ─────────────────────────────────────────────────────────────────────────────

// DefaultErrorMapper returns a mapper that handles the drivers the journal
// runs against: sqlite3 in the common case, postgres/mysql for server
// deployments. Extend by wrapping it with your own mapper.
func DefaultErrorMapper() ErrorMapper {
	return ErrorMapperFunc(defaultMap)
}

func defaultMap(err error) error {
	if err == nil {
		return nil
	}

	// Standard library sentinel
	if errors.Is(err, sql.ErrNoRows) {
		return &StoreError{Sentinel: ErrNotFound, Cause: err}
	}

	// Context errors
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &StoreError{Sentinel: ErrTimeout, Cause: err}
	}

	// Already mapped — do not double-wrap
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}

	// SQLite errors (string-based, driver doesn't export typed errors)
	if mapped := mapSQLiteError(err); mapped != nil {
		return mapped
	}

	// PostgreSQL (lib/pq and pgx both surface SQLSTATE codes)
	if mapped := mapPostgresError(err); mapped != nil {
		return mapped
	}

	// MySQL
	if mapped := mapMySQLError(err); mapped != nil {
		return mapped
	}

	return err
}

// ─────────────────────────────────────────────────────────────────────────────
// SQLite mapping
// ─────────────────────────────────────────────────────────────────────────────

func mapSQLiteError(err error) error {
	s := err.Error()
	switch {
	case strings.Contains(s, "UNIQUE constraint failed"):
		return &StoreError{Sentinel: ErrDuplicateKey, Cause: err}
	case strings.Contains(s, "FOREIGN KEY constraint failed"):
		return &StoreError{Sentinel: ErrForeignKeyViolation, Cause: err}
	case strings.Contains(s, "CHECK constraint failed"):
		return &StoreError{Sentinel: ErrCheckViolation, Cause: err}
	case strings.Contains(s, "database is locked"):
		return &StoreError{Sentinel: ErrTimeout, Cause: err}
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// PostgreSQL mapping
// ─────────────────────────────────────────────────────────────────────────────

// PostgreSQL SQLSTATE codes: https://www.postgresql.org/docs/current/errcodes-appendix.html
func mapPostgresError(err error) error {
	// Both lib/pq and pgx expose the SQLSTATE through an interface method;
	// matching on the interface avoids a hard import of either driver here.
	type sqlStater interface{ SQLState() string }
	type coder interface{ GetCode() string }

	var code string
	var ss sqlStater
	var c coder
	switch {
	case errors.As(err, &ss):
		code = ss.SQLState()
	case errors.As(err, &c):
		code = c.GetCode()
	default:
		// lib/pq formats: "pq: ERROR: message (SQLSTATE XXXXX)"
		code = pgCodeFromString(err.Error())
	}
	return mapByPGCode(code, err)
}

func pgCodeFromString(s string) string {
	const marker = "(SQLSTATE "
	idx := strings.LastIndex(s, marker)
	if idx < 0 {
		return ""
	}
	rest := s[idx+len(marker):]
	end := strings.Index(rest, ")")
	if end < 0 {
		return rest
	}
	return rest[:end]
}

func mapByPGCode(code string, cause error) error {
	switch code {
	case "23505": // unique_violation
		return &StoreError{Sentinel: ErrDuplicateKey, Cause: cause}
	case "23503": // foreign_key_violation
		return &StoreError{Sentinel: ErrForeignKeyViolation, Cause: cause}
	case "23514": // check_violation
		return &StoreError{Sentinel: ErrCheckViolation, Cause: cause}
	case "57014": // query_canceled (statement_timeout)
		return &StoreError{Sentinel: ErrTimeout, Cause: cause}
	case "08000", "08003", "08006", "08001", "08004", "08007", "08P01":
		return &StoreError{Sentinel: ErrConnectionFailed, Cause: cause}
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// MySQL mapping
// ─────────────────────────────────────────────────────────────────────────────

func mapMySQLError(err error) error {
	var me *mysql.MySQLError
	if !errors.As(err, &me) {
		return nil
	}
	switch me.Number {
	case 1062: // ER_DUP_ENTRY
		return &StoreError{Sentinel: ErrDuplicateKey, Cause: err}
	case 1452, 1216, 1217: // ER_NO_REFERENCED_ROW, ER_ROW_IS_REFERENCED
		return &StoreError{Sentinel: ErrForeignKeyViolation, Cause: err}
	case 3024: // ER_QUERY_TIMEOUT
		return &StoreError{Sentinel: ErrTimeout, Cause: err}
	case 1045, 2002, 2003, 2006, 2013:
		return &StoreError{Sentinel: ErrConnectionFailed, Cause: err}
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// ChainMapper — compose multiple mappers (first match wins)
// ─────────────────────────────────────────────────────────────────────────────

// ChainMapper returns an ErrorMapper that tries each mapper in order,
// returning the first remapped error.
func ChainMapper(mappers ...ErrorMapper) ErrorMapper {
	return ErrorMapperFunc(func(err error) error {
		if err == nil {
			return nil
		}
		for _, m := range mappers {
			if mapped := m.Map(err); mapped != err {
				return mapped
			}
		}
		return err
	})
}
