package user

import "time"

type User struct {
	ID           int       `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	TotalPoints  int64     `db:"total_points" json:"total_points"`
	ScanCount    int       `db:"scan_count" json:"scan_count"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Snapshot is the read view delivered to subscribers. total_points here is a
// cache of the ledger-derived balance, never ground truth.
type Snapshot struct {
	UserID      int       `json:"user_id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	TotalPoints int64     `json:"total_points"`
	ScanCount   int       `json:"scan_count"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func snapshotOf(u *User) Snapshot {
	return Snapshot{
		UserID:      u.ID,
		Name:        u.Name,
		Email:       u.Email,
		TotalPoints: u.TotalPoints,
		ScanCount:   u.ScanCount,
		UpdatedAt:   u.UpdatedAt,
	}
}

type RegisterRequest struct {
	Name     string `json:"name" binding:"required,min=2"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type LoginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`
}
