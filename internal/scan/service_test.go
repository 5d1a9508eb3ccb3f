package scan

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/HilmiKilavuz/EcoScan/internal/ledger"
	"github.com/HilmiKilavuz/EcoScan/internal/logger"
)

func TestMain(m *testing.M) {
	logger.Init()

	code := m.Run()
	os.Exit(code)
}

// MockStore is a mock implementation of Store plus the guard's lookup
type MockStore struct {
	mock.Mock
	attached chan string
}

func (m *MockStore) Create(ctx context.Context, userID int, wasteType WasteType, bin BinInfo, imageURL, imageHash string, pointsEarned int64) (*Scan, error) {
	args := m.Called(ctx, userID, wasteType, bin, imageURL, imageHash, pointsEarned)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Scan), args.Error(1)
}

func (m *MockStore) GetUserScans(ctx context.Context, userID, limit int) ([]Scan, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Scan), args.Error(1)
}

func (m *MockStore) CountScansSince(ctx context.Context, userID int, since time.Time) (int, error) {
	args := m.Called(ctx, userID, since)
	return args.Int(0), args.Error(1)
}

func (m *MockStore) AttachBlob(ctx context.Context, scanID int, blobID string) error {
	args := m.Called(ctx, scanID, blobID)
	if m.attached != nil {
		m.attached <- blobID
	}
	return args.Error(0)
}

func (m *MockStore) HasRecentScan(ctx context.Context, userID int, imageHash string, since time.Time) (bool, error) {
	args := m.Called(ctx, userID, imageHash, since)
	return args.Bool(0), args.Error(1)
}

type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) AddPoints(ctx context.Context, userID int, amount int64, referenceID string) (*ledger.Transaction, error) {
	args := m.Called(ctx, userID, amount, referenceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Transaction), args.Error(1)
}

func (m *MockLedger) GetUserTotal(ctx context.Context, userID int) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

type MockProjection struct {
	mock.Mock
}

func (m *MockProjection) Refresh(ctx context.Context, userID int, totalPoints int64) error {
	args := m.Called(ctx, userID, totalPoints)
	return args.Error(0)
}

type MockClassifier struct {
	mock.Mock
}

func (m *MockClassifier) Classify(ctx context.Context, image []byte) (*ClassificationResult, error) {
	args := m.Called(ctx, image)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ClassificationResult), args.Error(1)
}

// fakeUploader runs outside the request goroutine, so it signals completion
// through done instead of mock assertions.
type fakeUploader struct {
	blobID string
	err    error
	done   chan struct{}
}

func (u *fakeUploader) Upload(ctx context.Context, data []byte) (string, error) {
	defer close(u.done)
	return u.blobID, u.err
}

func newPipeline(store *MockStore, l *MockLedger, p *MockProjection, c *MockClassifier, u blobUploader) *Service {
	return NewService(store, NewGuard(store, DuplicateWindowHours), l, p, c, u)
}

func TestSubmit_AwardsPointsForNewScan(t *testing.T) {
	store := new(MockStore)
	ledgerMock := new(MockLedger)
	projection := new(MockProjection)
	classifier := new(MockClassifier)

	image := []byte("fresh-plastic-bottle")
	hash := HashImage(image)
	bin, _ := BinFor(WastePlastic)

	store.On("CountScansSince", mock.Anything, 1, mock.Anything).Return(0, nil)
	classifier.On("Classify", mock.Anything, image).Return(&ClassificationResult{WasteType: WastePlastic, Confidence: 0.92}, nil)
	store.On("HasRecentScan", mock.Anything, 1, hash, mock.Anything).Return(false, nil)
	store.On("Create", mock.Anything, 1, WastePlastic, bin, "photo.jpg", hash, int64(10)).Return(&Scan{
		ID:           7,
		UserID:       1,
		WasteType:    string(WastePlastic),
		ImageHash:    hash,
		PointsEarned: 10,
	}, nil)
	ledgerMock.On("AddPoints", mock.Anything, 1, int64(10), "scan-7").Return(&ledger.Transaction{ID: 1, UserID: 1, Amount: 10}, nil)
	ledgerMock.On("GetUserTotal", mock.Anything, 1).Return(int64(10), nil)
	projection.On("Refresh", mock.Anything, 1, int64(10)).Return(nil)

	svc := newPipeline(store, ledgerMock, projection, classifier, nil)

	result, err := svc.Submit(context.Background(), 1, image, "photo.jpg")
	require.NoError(t, err)
	assert.False(t, result.IsDuplicate)
	assert.Equal(t, int64(10), result.Scan.PointsEarned)

	store.AssertExpectations(t)
	ledgerMock.AssertExpectations(t)
	projection.AssertExpectations(t)
}

func TestSubmit_DuplicateIsPersistedWithZeroPoints(t *testing.T) {
	store := new(MockStore)
	ledgerMock := new(MockLedger)
	projection := new(MockProjection)
	classifier := new(MockClassifier)

	image := []byte("same-bottle-again")
	hash := HashImage(image)
	bin, _ := BinFor(WasteGlass)

	store.On("CountScansSince", mock.Anything, 1, mock.Anything).Return(2, nil)
	classifier.On("Classify", mock.Anything, image).Return(&ClassificationResult{WasteType: WasteGlass, Confidence: 0.88}, nil)
	store.On("HasRecentScan", mock.Anything, 1, hash, mock.Anything).Return(true, nil)
	store.On("Create", mock.Anything, 1, WasteGlass, bin, "photo.jpg", hash, int64(0)).Return(&Scan{
		ID:           8,
		UserID:       1,
		WasteType:    string(WasteGlass),
		ImageHash:    hash,
		PointsEarned: 0,
	}, nil)

	svc := newPipeline(store, ledgerMock, projection, classifier, nil)

	result, err := svc.Submit(context.Background(), 1, image, "photo.jpg")
	require.NoError(t, err)
	assert.True(t, result.IsDuplicate)
	assert.Equal(t, int64(0), result.Scan.PointsEarned)

	ledgerMock.AssertNotCalled(t, "AddPoints", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	projection.AssertNotCalled(t, "Refresh", mock.Anything, mock.Anything, mock.Anything)
	store.AssertExpectations(t)
}

func TestSubmit_DailyLimitBlocksBeforeClassifier(t *testing.T) {
	store := new(MockStore)
	classifier := new(MockClassifier)

	store.On("CountScansSince", mock.Anything, 1, mock.Anything).Return(5, nil)

	svc := newPipeline(store, new(MockLedger), new(MockProjection), classifier, nil)

	_, err := svc.Submit(context.Background(), 1, []byte("sixth-today"), "photo.jpg")
	require.ErrorIs(t, err, ErrDailyLimitExceeded)

	classifier.AssertNotCalled(t, "Classify", mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmit_FifthScanStillAllowed(t *testing.T) {
	store := new(MockStore)
	ledgerMock := new(MockLedger)
	projection := new(MockProjection)
	classifier := new(MockClassifier)

	image := []byte("fifth-scan")
	hash := HashImage(image)
	bin, _ := BinFor(WastePaper)

	store.On("CountScansSince", mock.Anything, 1, mock.Anything).Return(4, nil)
	classifier.On("Classify", mock.Anything, image).Return(&ClassificationResult{WasteType: WastePaper, Confidence: 0.9}, nil)
	store.On("HasRecentScan", mock.Anything, 1, hash, mock.Anything).Return(false, nil)
	store.On("Create", mock.Anything, 1, WastePaper, bin, "photo.jpg", hash, int64(8)).Return(&Scan{ID: 9, UserID: 1, PointsEarned: 8}, nil)
	ledgerMock.On("AddPoints", mock.Anything, 1, int64(8), "scan-9").Return(&ledger.Transaction{}, nil)
	ledgerMock.On("GetUserTotal", mock.Anything, 1).Return(int64(41), nil)
	projection.On("Refresh", mock.Anything, 1, int64(41)).Return(nil)

	svc := newPipeline(store, ledgerMock, projection, classifier, nil)

	_, err := svc.Submit(context.Background(), 1, image, "photo.jpg")
	require.NoError(t, err)
}

// A failing count query must not block the user.
func TestSubmit_CountErrorFailsOpen(t *testing.T) {
	store := new(MockStore)
	ledgerMock := new(MockLedger)
	projection := new(MockProjection)
	classifier := new(MockClassifier)

	image := []byte("metal-can")
	hash := HashImage(image)
	bin, _ := BinFor(WasteMetal)

	store.On("CountScansSince", mock.Anything, 1, mock.Anything).Return(0, errors.New("count query timeout"))
	classifier.On("Classify", mock.Anything, image).Return(&ClassificationResult{WasteType: WasteMetal, Confidence: 0.95}, nil)
	store.On("HasRecentScan", mock.Anything, 1, hash, mock.Anything).Return(false, nil)
	store.On("Create", mock.Anything, 1, WasteMetal, bin, "photo.jpg", hash, int64(20)).Return(&Scan{ID: 10, UserID: 1, PointsEarned: 20}, nil)
	ledgerMock.On("AddPoints", mock.Anything, 1, int64(20), "scan-10").Return(&ledger.Transaction{}, nil)
	ledgerMock.On("GetUserTotal", mock.Anything, 1).Return(int64(20), nil)
	projection.On("Refresh", mock.Anything, 1, int64(20)).Return(nil)

	svc := newPipeline(store, ledgerMock, projection, classifier, nil)

	_, err := svc.Submit(context.Background(), 1, image, "photo.jpg")
	require.NoError(t, err)
}

func TestSubmit_ClassifierFailureAborts(t *testing.T) {
	store := new(MockStore)
	classifier := new(MockClassifier)

	store.On("CountScansSince", mock.Anything, 1, mock.Anything).Return(0, nil)
	classifier.On("Classify", mock.Anything, mock.Anything).Return(nil, errors.New("model unavailable"))

	svc := newPipeline(store, new(MockLedger), new(MockProjection), classifier, nil)

	_, err := svc.Submit(context.Background(), 1, []byte("blurry"), "photo.jpg")
	require.ErrorIs(t, err, ErrClassificationFailed)

	store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmit_BlobReferenceAttachedAfterUpload(t *testing.T) {
	store := &MockStore{attached: make(chan string, 1)}
	ledgerMock := new(MockLedger)
	projection := new(MockProjection)
	classifier := new(MockClassifier)
	uploader := &fakeUploader{blobID: "blob-xyz", done: make(chan struct{})}

	image := []byte("organic-waste")
	hash := HashImage(image)
	bin, _ := BinFor(WasteOrganic)

	store.On("CountScansSince", mock.Anything, 1, mock.Anything).Return(0, nil)
	classifier.On("Classify", mock.Anything, image).Return(&ClassificationResult{WasteType: WasteOrganic, Confidence: 0.87}, nil)
	store.On("HasRecentScan", mock.Anything, 1, hash, mock.Anything).Return(false, nil)
	store.On("Create", mock.Anything, 1, WasteOrganic, bin, "photo.jpg", hash, int64(5)).Return(&Scan{ID: 11, UserID: 1, PointsEarned: 5}, nil)
	ledgerMock.On("AddPoints", mock.Anything, 1, int64(5), "scan-11").Return(&ledger.Transaction{}, nil)
	ledgerMock.On("GetUserTotal", mock.Anything, 1).Return(int64(5), nil)
	projection.On("Refresh", mock.Anything, 1, int64(5)).Return(nil)
	store.On("AttachBlob", mock.Anything, 11, "blob-xyz").Return(nil)

	svc := newPipeline(store, ledgerMock, projection, classifier, uploader)

	_, err := svc.Submit(context.Background(), 1, image, "photo.jpg")
	require.NoError(t, err)

	select {
	case blobID := <-store.attached:
		assert.Equal(t, "blob-xyz", blobID)
	case <-time.After(2 * time.Second):
		t.Fatal("blob reference was never attached")
	}
}

// Upload failure is swallowed: the scan and its points stand.
func TestSubmit_UploadFailureDoesNotAffectScan(t *testing.T) {
	store := new(MockStore)
	ledgerMock := new(MockLedger)
	projection := new(MockProjection)
	classifier := new(MockClassifier)
	uploader := &fakeUploader{err: errors.New("all publishers down"), done: make(chan struct{})}

	image := []byte("plastic-cup")
	hash := HashImage(image)
	bin, _ := BinFor(WastePlastic)

	store.On("CountScansSince", mock.Anything, 1, mock.Anything).Return(0, nil)
	classifier.On("Classify", mock.Anything, image).Return(&ClassificationResult{WasteType: WastePlastic, Confidence: 0.9}, nil)
	store.On("HasRecentScan", mock.Anything, 1, hash, mock.Anything).Return(false, nil)
	store.On("Create", mock.Anything, 1, WastePlastic, bin, "photo.jpg", hash, int64(10)).Return(&Scan{ID: 12, UserID: 1, PointsEarned: 10}, nil)
	ledgerMock.On("AddPoints", mock.Anything, 1, int64(10), "scan-12").Return(&ledger.Transaction{}, nil)
	ledgerMock.On("GetUserTotal", mock.Anything, 1).Return(int64(10), nil)
	projection.On("Refresh", mock.Anything, 1, int64(10)).Return(nil)

	svc := newPipeline(store, ledgerMock, projection, classifier, uploader)

	result, err := svc.Submit(context.Background(), 1, image, "photo.jpg")
	require.NoError(t, err)
	assert.Equal(t, int64(10), result.Scan.PointsEarned)

	<-uploader.done
	store.AssertNotCalled(t, "AttachBlob", mock.Anything, mock.Anything, mock.Anything)
}
