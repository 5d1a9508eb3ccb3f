package reward

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetAll(ctx context.Context) ([]Reward, error) {
	var rewards []Reward
	err := r.db.SelectContext(ctx, &rewards, `
		SELECT id, name, description, required_points, is_available, created_at
		FROM rewards
		ORDER BY required_points ASC
	`)
	if err != nil {
		return nil, err
	}
	return rewards, nil
}

func (r *Repository) GetAvailable(ctx context.Context) ([]Reward, error) {
	var rewards []Reward
	err := r.db.SelectContext(ctx, &rewards, `
		SELECT id, name, description, required_points, is_available, created_at
		FROM rewards
		WHERE is_available = TRUE
		ORDER BY required_points ASC
	`)
	if err != nil {
		return nil, err
	}
	return rewards, nil
}

func (r *Repository) GetByID(ctx context.Context, rewardID int) (*Reward, error) {
	var reward Reward
	err := r.db.GetContext(ctx, &reward, `
		SELECT id, name, description, required_points, is_available, created_at
		FROM rewards
		WHERE id = $1
	`, rewardID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRewardNotFound
		}
		return nil, err
	}
	return &reward, nil
}

func (r *Repository) CreateRedemption(ctx context.Context, userID, rewardID int, rewardName string, pointsSpent int64, status string) (*Redemption, error) {
	red := &Redemption{}
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO redemptions (user_id, reward_id, reward_name, points_spent, status)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, user_id, reward_id, reward_name, points_spent, status, created_at`,
		userID, rewardID, rewardName, pointsSpent, status,
	).StructScan(red)
	if err != nil {
		return nil, err
	}

	return red, nil
}

func (r *Repository) GetUserRedemptions(ctx context.Context, userID, limit int) ([]Redemption, error) {
	if limit <= 0 {
		limit = 50
	}

	var redemptions []Redemption
	err := r.db.SelectContext(ctx, &redemptions, `
		SELECT id, user_id, reward_id, reward_name, points_spent, status, created_at
		FROM redemptions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}

	return redemptions, nil
}

// FindOrphanRedemptions returns completed redemptions with no matching
// deduction in the point log, left behind by a crash between the redemption
// write and the ledger append.
func (r *Repository) FindOrphanRedemptions(ctx context.Context) ([]Redemption, error) {
	var redemptions []Redemption
	err := r.db.SelectContext(ctx, &redemptions, `
		SELECT r.id, r.user_id, r.reward_id, r.reward_name, r.points_spent, r.status, r.created_at
		FROM redemptions r
		LEFT JOIN point_transactions pt
		  ON pt.reference_id = 'redemption-' || r.id
		 AND pt.kind = 'reward_redemption'
		WHERE r.status = 'completed'
		  AND pt.id IS NULL
		ORDER BY r.created_at ASC
	`)
	if err != nil {
		return nil, err
	}

	return redemptions, nil
}
