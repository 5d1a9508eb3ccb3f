package ledger

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/HilmiKilavuz/EcoScan/internal/logger"
)

var (
	ErrNonPositiveAmount = errors.New("amount must be positive")

	// ErrAggregationUnavailable signals that the server-side sum failed and
	// the caller fell back to client-side summation. Internal, never
	// surfaced to users.
	ErrAggregationUnavailable = errors.New("sum aggregation unavailable")
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) append(ctx context.Context, userID int, amount int64, kind, referenceID string) (*Transaction, error) {
	tx := &Transaction{}
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO point_transactions (user_id, amount, kind, reference_id)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, user_id, amount, kind, reference_id, created_at`,
		userID, amount, kind, referenceID,
	).StructScan(tx)
	if err != nil {
		return nil, err
	}

	return tx, nil
}

func (r *Repository) AddPoints(ctx context.Context, userID int, amount int64, referenceID string) (*Transaction, error) {
	if amount <= 0 {
		return nil, ErrNonPositiveAmount
	}
	return r.append(ctx, userID, amount, KindScanReward, referenceID)
}

// DeductPoints appends a redemption entry with the amount negated.
func (r *Repository) DeductPoints(ctx context.Context, userID int, amount int64, referenceID string) (*Transaction, error) {
	if amount <= 0 {
		return nil, ErrNonPositiveAmount
	}
	return r.append(ctx, userID, -amount, KindRewardRedemption, referenceID)
}

// GetUserTotal computes the balance with a server-side SUM. If the
// aggregation query fails it falls back to fetching the user's entries and
// summing client-side; both paths produce the same total for any log.
func (r *Repository) GetUserTotal(ctx context.Context, userID int) (int64, error) {
	var total int64
	err := r.db.GetContext(ctx, &total,
		`SELECT COALESCE(SUM(amount), 0) FROM point_transactions WHERE user_id = $1`,
		userID,
	)
	if err == nil {
		return total, nil
	}

	logger.Errorf("Sum aggregation failed for user %d, falling back to enumeration: %v", userID, err)
	return r.sumFallback(ctx, userID)
}

func (r *Repository) sumFallback(ctx context.Context, userID int) (int64, error) {
	var amounts []int64
	err := r.db.SelectContext(ctx, &amounts,
		`SELECT amount FROM point_transactions WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return 0, ErrAggregationUnavailable
	}

	var total int64
	for _, a := range amounts {
		total += a
	}
	return total, nil
}

func (r *Repository) GetUserTransactions(ctx context.Context, userID, limit int) ([]Transaction, error) {
	if limit <= 0 {
		limit = 20
	}

	var txs []Transaction
	err := r.db.SelectContext(ctx, &txs, `
		SELECT id, user_id, amount, kind, reference_id, created_at
		FROM point_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}

	return txs, nil
}

// ListUserIDs returns every user that has at least one ledger entry. Used by
// the reconciliation pass.
func (r *Repository) ListUserIDs(ctx context.Context) ([]int, error) {
	var ids []int
	err := r.db.SelectContext(ctx, &ids,
		`SELECT DISTINCT user_id FROM point_transactions`,
	)
	if err != nil {
		return nil, err
	}
	return ids, nil
}
