package reward

import "time"

const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Reward rows are written by the catalog management side only; this service
// just reads them.
type Reward struct {
	ID             int       `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	Description    string    `db:"description" json:"description"`
	RequiredPoints int64     `db:"required_points" json:"required_points"`
	IsAvailable    bool      `db:"is_available" json:"is_available"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// Redemption snapshots the reward name at exchange time, so later catalog
// edits do not rewrite history.
type Redemption struct {
	ID          int       `db:"id" json:"id"`
	UserID      int       `db:"user_id" json:"user_id"`
	RewardID    int       `db:"reward_id" json:"reward_id"`
	RewardName  string    `db:"reward_name" json:"reward_name"`
	PointsSpent int64     `db:"points_spent" json:"points_spent"`
	Status      string    `db:"status" json:"status"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
