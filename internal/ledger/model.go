package ledger

import "time"

const (
	KindScanReward       = "scan_reward"
	KindRewardRedemption = "reward_redemption"
)

// Transaction is one signed entry in the append-only point log.
// Rows are never updated or deleted; corrections are compensating entries.
type Transaction struct {
	ID          int       `db:"id" json:"id"`
	UserID      int       `db:"user_id" json:"user_id"`
	Amount      int64     `db:"amount" json:"amount"`
	Kind        string    `db:"kind" json:"kind"`
	ReferenceID string    `db:"reference_id" json:"reference_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
