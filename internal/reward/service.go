package reward

import (
	"context"
	"errors"
	"fmt"

	"github.com/HilmiKilavuz/EcoScan/internal/ledger"
	"github.com/HilmiKilavuz/EcoScan/internal/logger"
	"github.com/HilmiKilavuz/EcoScan/internal/metrics"
)

var (
	ErrRewardNotFound     = errors.New("reward not found")
	ErrRewardUnavailable  = errors.New("reward is not available")
	ErrInsufficientPoints = errors.New("insufficient points")
)

type Store interface {
	GetByID(ctx context.Context, rewardID int) (*Reward, error)
	CreateRedemption(ctx context.Context, userID, rewardID int, rewardName string, pointsSpent int64, status string) (*Redemption, error)
	GetUserRedemptions(ctx context.Context, userID, limit int) ([]Redemption, error)
}

type pointLedger interface {
	GetUserTotal(ctx context.Context, userID int) (int64, error)
	DeductPoints(ctx context.Context, userID int, amount int64, referenceID string) (*ledger.Transaction, error)
}

type projectionRefresher interface {
	Refresh(ctx context.Context, userID int, totalPoints int64) error
}

// Service coordinates the point-for-reward exchange. The steps are not one
// atomic transaction; the reconciliation pass repairs the gap a crash can
// leave between the redemption write and the ledger append.
type Service struct {
	store      Store
	ledger     pointLedger
	projection projectionRefresher
}

func NewService(store Store, pointLedger pointLedger, projection projectionRefresher) *Service {
	return &Service{
		store:      store,
		ledger:     pointLedger,
		projection: projection,
	}
}

func (s *Service) Redeem(ctx context.Context, userID, rewardID int) (*Redemption, error) {
	reward, err := s.store.GetByID(ctx, rewardID)
	if err != nil {
		if errors.Is(err, ErrRewardNotFound) {
			metrics.RecordRedemption("not_found")
		}
		return nil, err
	}

	if !reward.IsAvailable {
		metrics.RecordRedemption("unavailable")
		return nil, ErrRewardUnavailable
	}

	// Optimistic balance check; two concurrent redemptions can both pass
	// it. The reconciliation pass detects the resulting overdraft.
	balance, err := s.ledger.GetUserTotal(ctx, userID)
	if err != nil {
		return nil, err
	}
	if balance < reward.RequiredPoints {
		metrics.RecordRedemption("insufficient_points")
		return nil, ErrInsufficientPoints
	}

	redemption, err := s.store.CreateRedemption(ctx, userID, reward.ID, reward.Name, reward.RequiredPoints, StatusCompleted)
	if err != nil {
		return nil, err
	}

	referenceID := fmt.Sprintf("redemption-%d", redemption.ID)
	if _, err := s.ledger.DeductPoints(ctx, userID, reward.RequiredPoints, referenceID); err != nil {
		return nil, err
	}

	// The ledger-derived total is the source of truth; the projection only
	// caches it.
	newTotal, err := s.ledger.GetUserTotal(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.projection.Refresh(ctx, userID, newTotal); err != nil {
		logger.Errorf("Projection refresh failed for user %d after redemption %d: %v", userID, redemption.ID, err)
	}

	metrics.RecordRedemption("completed")
	return redemption, nil
}

func (s *Service) GetUserRedemptions(ctx context.Context, userID, limit int) ([]Redemption, error) {
	return s.store.GetUserRedemptions(ctx, userID, limit)
}
