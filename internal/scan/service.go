package scan

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/HilmiKilavuz/EcoScan/internal/ledger"
	"github.com/HilmiKilavuz/EcoScan/internal/logger"
	"github.com/HilmiKilavuz/EcoScan/internal/metrics"
)

const (
	dailyScanLimit = 5
	dailyWindow    = 24 * time.Hour

	uploadAttachTimeout = 2 * time.Minute
)

var ErrDailyLimitExceeded = errors.New("daily scan limit reached")

type Store interface {
	Create(ctx context.Context, userID int, wasteType WasteType, bin BinInfo, imageURL, imageHash string, pointsEarned int64) (*Scan, error)
	GetUserScans(ctx context.Context, userID, limit int) ([]Scan, error)
	CountScansSince(ctx context.Context, userID int, since time.Time) (int, error)
	AttachBlob(ctx context.Context, scanID int, blobID string) error
}

type pointLedger interface {
	AddPoints(ctx context.Context, userID int, amount int64, referenceID string) (*ledger.Transaction, error)
	GetUserTotal(ctx context.Context, userID int) (int64, error)
}

type projectionRefresher interface {
	Refresh(ctx context.Context, userID int, totalPoints int64) error
}

type blobUploader interface {
	Upload(ctx context.Context, data []byte) (string, error)
}

type SubmitResult struct {
	Scan        *Scan `json:"scan"`
	IsDuplicate bool  `json:"is_duplicate"`
}

// Service runs the scan pipeline: daily limit, classification, duplicate
// check, persistence, point award, projection refresh and the best-effort
// proof upload.
type Service struct {
	store      Store
	guard      *Guard
	ledger     pointLedger
	projection projectionRefresher
	classifier Classifier
	uploader   blobUploader
}

func NewService(store Store, guard *Guard, pointLedger pointLedger, projection projectionRefresher, classifier Classifier, uploader blobUploader) *Service {
	return &Service{
		store:      store,
		guard:      guard,
		ledger:     pointLedger,
		projection: projection,
		classifier: classifier,
		uploader:   uploader,
	}
}

func (s *Service) Submit(ctx context.Context, userID int, image []byte, imageURL string) (*SubmitResult, error) {
	// Daily limit is a usage nudge, not a hard cap: if the count query
	// itself fails we proceed rather than block the user.
	count, err := s.store.CountScansSince(ctx, userID, time.Now().Add(-dailyWindow))
	if err != nil {
		logger.Errorf("Daily limit check failed for user %d, proceeding: %v", userID, err)
	} else if count >= dailyScanLimit {
		metrics.DailyLimitRejectionsTotal.Inc()
		return nil, ErrDailyLimitExceeded
	}

	result, err := s.classifier.Classify(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClassificationFailed, err)
	}

	bin, ok := BinFor(result.WasteType)
	if !ok {
		return nil, fmt.Errorf("%w: unknown waste type %q", ErrClassificationFailed, result.WasteType)
	}
	tablePoints := PointsFor(result.WasteType)

	imageHash := HashImage(image)

	isDuplicate, err := s.guard.IsDuplicate(ctx, userID, imageHash)
	if err != nil {
		return nil, err
	}

	pointsEarned := tablePoints
	if isDuplicate {
		pointsEarned = 0
	}

	scan, err := s.store.Create(ctx, userID, result.WasteType, bin, imageURL, imageHash, pointsEarned)
	if err != nil {
		return nil, err
	}

	metrics.RecordScan(string(result.WasteType), isDuplicate)

	if !isDuplicate && pointsEarned > 0 {
		referenceID := fmt.Sprintf("scan-%d", scan.ID)
		if _, err := s.ledger.AddPoints(ctx, userID, pointsEarned, referenceID); err != nil {
			return nil, err
		}
		metrics.RecordPointsAwarded(pointsEarned)

		total, err := s.ledger.GetUserTotal(ctx, userID)
		if err != nil {
			return nil, err
		}
		if err := s.projection.Refresh(ctx, userID, total); err != nil {
			logger.Errorf("Projection refresh failed for user %d: %v", userID, err)
		}
	}

	// Proof storage is best-effort and never a precondition for the award.
	if s.uploader != nil {
		go s.uploadProof(scan.ID, image)
	}

	return &SubmitResult{Scan: scan, IsDuplicate: isDuplicate}, nil
}

func (s *Service) uploadProof(scanID int, image []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), uploadAttachTimeout)
	defer cancel()

	blobID, err := s.uploader.Upload(ctx, image)
	if err != nil {
		metrics.RecordBlobUpload("failed")
		logger.Errorf("Proof upload failed for scan %d: %v", scanID, err)
		return
	}

	if err := s.store.AttachBlob(ctx, scanID, blobID); err != nil {
		metrics.RecordBlobUpload("attach_failed")
		logger.Errorf("Failed to attach blob %s to scan %d: %v", blobID, scanID, err)
		return
	}

	metrics.RecordBlobUpload("ok")
	logger.Infof("Attached blob %s to scan %d", blobID, scanID)
}

func (s *Service) GetHistory(ctx context.Context, userID, limit int) ([]Scan, error) {
	return s.store.GetUserScans(ctx, userID, limit)
}

// HashImage content-addresses the submitted image so a resubmission of the
// same bytes hits the duplicate window.
func HashImage(image []byte) string {
	sum := sha256.Sum256(image)
	return hex.EncodeToString(sum[:])
}
