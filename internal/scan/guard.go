package scan

import (
	"context"
	"time"
)

// DuplicateWindowHours is the trailing interval within which an identical
// submission earns zero points.
const DuplicateWindowHours = 24

type duplicateStore interface {
	HasRecentScan(ctx context.Context, userID int, imageHash string, since time.Time) (bool, error)
}

// Guard decides whether a submitted image is a repeat inside the window.
// Duplicates are recorded, not rejected: only the point award is suppressed.
type Guard struct {
	store  duplicateStore
	window time.Duration
}

func NewGuard(store duplicateStore, windowHours int) *Guard {
	return &Guard{
		store:  store,
		window: time.Duration(windowHours) * time.Hour,
	}
}

func (g *Guard) IsDuplicate(ctx context.Context, userID int, imageHash string) (bool, error) {
	return g.store.HasRecentScan(ctx, userID, imageHash, time.Now().Add(-g.window))
}
