package user

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"
)

var ErrUserNotFound = errors.New("user not found")

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, name, email, passwordHash string) (*User, error) {
	query := `
		INSERT INTO users (name, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id, name, email, password_hash, total_points, scan_count, created_at, updated_at
	`

	var user User
	err := r.db.GetContext(ctx, &user, query, name, email, passwordHash)
	if err != nil {
		return nil, err
	}

	return &user, nil
}

func (r *Repository) FindByEmail(ctx context.Context, email string) (*User, error) {
	query := `
		SELECT id, name, email, password_hash, total_points, scan_count, created_at, updated_at
		FROM users
		WHERE email = $1
	`

	var user User
	err := r.db.GetContext(ctx, &user, query, email)
	if err != nil {
		return nil, err
	}

	return &user, nil
}

func (r *Repository) FindByID(ctx context.Context, id int) (*User, error) {
	query := `
		SELECT id, name, email, password_hash, total_points, scan_count, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	var user User
	err := r.db.GetContext(ctx, &user, query, id)
	if err != nil {
		return nil, err
	}

	return &user, nil
}

func (r *Repository) EmailExists(ctx context.Context, email string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`

	var exists bool
	err := r.db.GetContext(ctx, &exists, query, email)
	if err != nil {
		return false, err
	}

	return exists, nil
}

// RefreshStats overwrites the cached balance with the ledger-derived total
// and recounts the user's scans. Last write wins.
func (r *Repository) RefreshStats(ctx context.Context, userID int, totalPoints int64) (*User, error) {
	query := `
		UPDATE users
		SET total_points = $2,
		    scan_count = (SELECT COUNT(*) FROM scans WHERE user_id = $1),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING id, name, email, password_hash, total_points, scan_count, created_at, updated_at
	`

	var user User
	err := r.db.GetContext(ctx, &user, query, userID, totalPoints)
	if err != nil {
		return nil, err
	}

	return &user, nil
}
