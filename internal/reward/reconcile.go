package reward

import (
	"context"

	"github.com/robfig/cron/v3"

	"github.com/HilmiKilavuz/EcoScan/internal/logger"
	"github.com/HilmiKilavuz/EcoScan/internal/metrics"
)

type ledgerSource interface {
	ListUserIDs(ctx context.Context) ([]int, error)
	GetUserTotal(ctx context.Context, userID int) (int64, error)
}

type orphanSource interface {
	FindOrphanRedemptions(ctx context.Context) ([]Redemption, error)
}

// Reconciler periodically recomputes every cached balance from the
// transaction log and flags redemptions that never got their deduction.
// Each run is idempotent.
type Reconciler struct {
	ledger      ledgerSource
	redemptions orphanSource
	projection  projectionRefresher
	cron        *cron.Cron
	spec        string
}

func NewReconciler(ledger ledgerSource, redemptions orphanSource, projection projectionRefresher, spec string) *Reconciler {
	return &Reconciler{
		ledger:      ledger,
		redemptions: redemptions,
		projection:  projection,
		cron:        cron.New(),
		spec:        spec,
	}
}

func (r *Reconciler) Start() error {
	_, err := r.cron.AddFunc(r.spec, func() {
		if err := r.Run(context.Background()); err != nil {
			logger.Errorf("Reconciliation run failed: %v", err)
		}
	})
	if err != nil {
		return err
	}

	r.cron.Start()
	logger.Infof("Reconciler scheduled: %s", r.spec)
	return nil
}

func (r *Reconciler) Stop() {
	r.cron.Stop()
}

func (r *Reconciler) Run(ctx context.Context) error {
	metrics.ReconcileRunsTotal.Inc()

	userIDs, err := r.ledger.ListUserIDs(ctx)
	if err != nil {
		return err
	}

	for _, userID := range userIDs {
		total, err := r.ledger.GetUserTotal(ctx, userID)
		if err != nil {
			logger.Errorf("Reconcile: failed to compute total for user %d: %v", userID, err)
			continue
		}

		if err := r.projection.Refresh(ctx, userID, total); err != nil {
			logger.Errorf("Reconcile: failed to refresh projection for user %d: %v", userID, err)
		}
	}

	orphans, err := r.redemptions.FindOrphanRedemptions(ctx)
	if err != nil {
		return err
	}

	metrics.OrphanRedemptions.Set(float64(len(orphans)))
	for _, o := range orphans {
		logger.Errorf("Orphan redemption %d (user %d, %d points): no matching deduction", o.ID, o.UserID, o.PointsSpent)
	}

	logger.Infof("Reconciliation done: %d users refreshed, %d orphan redemptions", len(userIDs), len(orphans))
	return nil
}
