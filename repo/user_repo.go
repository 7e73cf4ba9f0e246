package repo

import (
	"context"
	"fmt"

	"github.com/okorolev/sleepjournal/models"
	"github.com/okorolev/sleepjournal/store"
)

// ─────────────────────────────────────────────────────────────────────────────
// UserRepository interface — for mocking in tests
// ─────────────────────────────────────────────────────────────────────────────

// UserRepository defines the contract for user persistence operations.
type UserRepository interface {
	Insert(ctx context.Context, user models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	Count(ctx context.Context) (int64, error)
}

// ─────────────────────────────────────────────────────────────────────────────
// userRepo — concrete implementation
// ─────────────────────────────────────────────────────────────────────────────

type userRepo struct {
	q store.Querier
}

// NewUserRepo returns a UserRepository backed by q.
// q can be a *store.DB or *store.Tx — both satisfy store.Querier.
func NewUserRepo(q store.Querier) UserRepository {
	return &userRepo{q: q}
}

// ─────────────────────────────────────────────────────────────────────────────
// SQL constants — all SQL is explicit, version-controlled, and reviewable
// ─────────────────────────────────────────────────────────────────────────────

const (
	sqlInsertUser = `
		INSERT INTO users (id, name)
		VALUES (?, ?)`

	sqlGetUserByID = `
		SELECT id, name
		FROM   users
		WHERE  id = ?
		LIMIT  1`

	sqlCountUsers = `
		SELECT COUNT(*) FROM users`
)

// Insert creates a user row with the transport-supplied id.
// Returns store.ErrDuplicateKey when the id is already registered; the
// tracker treats that as a successful no-op, so the first-seen name sticks.
func (r *userRepo) Insert(ctx context.Context, user models.User) error {
	_, err := r.q.Exec(ctx, sqlInsertUser, user.ID, user.Name)
	return err
}

// GetByID returns a single user by primary key.
// Returns store.ErrNotFound when no record matches.
func (r *userRepo) GetByID(ctx context.Context, id int64) (*models.User, error) {
	u := &models.User{}
	err := r.q.QueryRow(ctx, sqlGetUserByID, id).Scan(&u.ID, &u.Name)
	if err != nil {
		return nil, fmt.Errorf("repo/user: %w", err)
	}
	return u, nil
}

// Count returns the total number of registered users.
func (r *userRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.q.QueryRow(ctx, sqlCountUsers).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Compile-time interface assertion
// ─────────────────────────────────────────────────────────────────────────────

var _ UserRepository = (*userRepo)(nil)
