package scan

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/HilmiKilavuz/EcoScan/internal/db"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(database *sqlx.DB) *Repository {
	return &Repository{db: database}
}

func (r *Repository) Create(ctx context.Context, userID int, wasteType WasteType, bin BinInfo, imageURL, imageHash string, pointsEarned int64) (*Scan, error) {
	s := &Scan{}
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO scans (user_id, waste_type, bin_name, bin_color, image_url, image_hash, points_earned)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, user_id, waste_type, bin_name, bin_color, image_url, blob_id, image_hash, points_earned, created_at`,
		userID, string(wasteType), bin.Name, bin.Color, imageURL, imageHash, pointsEarned,
	).StructScan(s)
	if err != nil {
		return nil, err
	}

	return s, nil
}

func (r *Repository) GetUserScans(ctx context.Context, userID, limit int) ([]Scan, error) {
	if limit <= 0 {
		limit = 50
	}

	var scans []Scan
	err := r.db.SelectContext(ctx, &scans, `
		SELECT id, user_id, waste_type, bin_name, bin_color, image_url, blob_id, image_hash, points_earned, created_at
		FROM scans
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}

	return scans, nil
}

func (r *Repository) HasRecentScan(ctx context.Context, userID int, imageHash string, since time.Time) (bool, error) {
	return db.Exists(ctx, r.db,
		`SELECT EXISTS(SELECT 1 FROM scans WHERE user_id = $1 AND image_hash = $2 AND created_at >= $3)`,
		userID, imageHash, since,
	)
}

func (r *Repository) CountScansSince(ctx context.Context, userID int, since time.Time) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM scans WHERE user_id = $1 AND created_at >= $2`,
		userID, since,
	)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// AttachBlob records the durable proof reference after a successful upload.
// The scan stays valid without it.
func (r *Repository) AttachBlob(ctx context.Context, scanID int, blobID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE scans SET blob_id = $1 WHERE id = $2`,
		blobID, scanID,
	)
	return err
}
