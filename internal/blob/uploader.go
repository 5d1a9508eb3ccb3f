package blob

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/HilmiKilavuz/EcoScan/internal/logger"
)

const attemptTimeout = 30 * time.Second

var ErrAllEndpointsFailed = errors.New("all blob endpoints failed")

// Walrus publishers answer with one of two shapes depending on whether the
// blob already existed on the network.
type uploadResponse struct {
	NewlyCreated *struct {
		BlobObject struct {
			BlobID string `json:"blobId"`
		} `json:"blobObject"`
	} `json:"newlyCreated"`
	AlreadyCertified *struct {
		BlobID string `json:"blobId"`
	} `json:"alreadyCertified"`
}

// Uploader tries an ordered list of publisher endpoints until one accepts
// the blob. Each endpoint gets a single bounded attempt.
type Uploader struct {
	endpoints []string
	client    *http.Client
}

func NewUploader(endpoints []string) *Uploader {
	return &Uploader{
		endpoints: endpoints,
		client:    &http.Client{},
	}
}

func (u *Uploader) Upload(ctx context.Context, data []byte) (string, error) {
	var lastErr error

	for _, endpoint := range u.endpoints {
		blobID, err := u.tryUpload(ctx, endpoint, data)
		if err == nil {
			logger.Infof("Blob stored via %s: %s", endpoint, blobID)
			return blobID, nil
		}

		logger.Errorf("Upload to %s failed: %v", endpoint, err)
		lastErr = err
	}

	if lastErr == nil {
		lastErr = errors.New("no endpoints configured")
	}
	return "", fmt.Errorf("%w: %v", ErrAllEndpointsFailed, lastErr)
}

func (u *Uploader) tryUpload(ctx context.Context, endpoint string, data []byte) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, attemptTimeout)
	defer cancel()

	url := strings.TrimRight(endpoint, "/") + "/v1/blobs?epochs=5"
	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := u.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	switch {
	case result.NewlyCreated != nil && result.NewlyCreated.BlobObject.BlobID != "":
		return result.NewlyCreated.BlobObject.BlobID, nil
	case result.AlreadyCertified != nil && result.AlreadyCertified.BlobID != "":
		return result.AlreadyCertified.BlobID, nil
	default:
		return "", errors.New("unknown response structure")
	}
}

// BlobURL builds the read URL for a stored blob. No network call is made.
func BlobURL(aggregator, blobID string) string {
	return fmt.Sprintf("%s/v1/blobs/%s", strings.TrimRight(aggregator, "/"), blobID)
}
