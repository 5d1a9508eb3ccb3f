package blob

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HilmiKilavuz/EcoScan/internal/logger"
)

func TestMain(m *testing.M) {
	logger.Init()

	code := m.Run()
	os.Exit(code)
}

func TestUpload_FirstEndpointSucceeds(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/v1/blobs", r.URL.Path)
		assert.Equal(t, "5", r.URL.Query().Get("epochs"))
		w.Write([]byte(`{"newlyCreated":{"blobObject":{"blobId":"blob-1"}}}`))
	}))
	defer srv.Close()

	u := NewUploader([]string{srv.URL})

	blobID, err := u.Upload(context.Background(), []byte("image-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "blob-1", blobID)
	assert.Equal(t, 1, hits)
}

// Three endpoints fail, the fourth answers with the alreadyCertified shape.
func TestUpload_FailoverToLastEndpoint(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "over capacity", http.StatusServiceUnavailable)
	}))
	defer bad.Close()

	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"alreadyCertified":{"blobId":"xyz"}}`))
	}))
	defer good.Close()

	u := NewUploader([]string{bad.URL, bad.URL, bad.URL, good.URL})

	blobID, err := u.Upload(context.Background(), []byte("image-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "xyz", blobID)
}

func TestUpload_UnknownShapeAdvances(t *testing.T) {
	weird := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"somethingElse":true}`))
	}))
	defer weird.Close()

	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"alreadyCertified":{"blobId":"after-weird"}}`))
	}))
	defer good.Close()

	u := NewUploader([]string{weird.URL, good.URL})

	blobID, err := u.Upload(context.Background(), []byte("image-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "after-weird", blobID)
}

func TestUpload_AllEndpointsFail(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer bad.Close()

	u := NewUploader([]string{bad.URL, bad.URL})

	_, err := u.Upload(context.Background(), []byte("image-bytes"))
	require.ErrorIs(t, err, ErrAllEndpointsFailed)
	assert.Contains(t, err.Error(), "nope")
}

func TestUpload_NoEndpointsConfigured(t *testing.T) {
	u := NewUploader(nil)

	_, err := u.Upload(context.Background(), []byte("image-bytes"))
	require.ErrorIs(t, err, ErrAllEndpointsFailed)
}

func TestBlobURL(t *testing.T) {
	url := BlobURL("https://aggregator.walrus-testnet.walrus.space", "abc123")
	assert.Equal(t, "https://aggregator.walrus-testnet.walrus.space/v1/blobs/abc123", url)

	url = BlobURL("https://aggregator.example.com/", "abc123")
	assert.Equal(t, "https://aggregator.example.com/v1/blobs/abc123", url)
}
