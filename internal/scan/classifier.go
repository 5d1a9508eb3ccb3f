package scan

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"time"
)

var ErrClassificationFailed = errors.New("waste classification failed")

type ClassificationResult struct {
	WasteType  WasteType `json:"waste_type"`
	Confidence float64   `json:"confidence"`
	Labels     []string  `json:"labels,omitempty"`
}

type Classifier interface {
	Classify(ctx context.Context, image []byte) (*ClassificationResult, error)
}

// HTTPClassifier sends the raw image to an external classification endpoint.
type HTTPClassifier struct {
	url    string
	client *http.Client
}

func NewHTTPClassifier(url string) *HTTPClassifier {
	return &HTTPClassifier{
		url:    url,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClassifier) Classify(ctx context.Context, image []byte) (*ClassificationResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(image))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("classifier returned status %d", resp.StatusCode)
	}

	var result ClassificationResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode classifier response: %w", err)
	}

	if !ValidWasteType(result.WasteType) {
		return nil, fmt.Errorf("classifier returned unknown waste type %q", result.WasteType)
	}

	return &result, nil
}

// MockClassifier picks a random waste type, for local runs without a real
// classification backend.
type MockClassifier struct{}

func NewMockClassifier() *MockClassifier {
	return &MockClassifier{}
}

func (c *MockClassifier) Classify(ctx context.Context, image []byte) (*ClassificationResult, error) {
	types := []WasteType{WastePlastic, WasteGlass, WastePaper, WasteOrganic, WasteMetal}

	return &ClassificationResult{
		WasteType:  types[rand.Intn(len(types))],
		Confidence: 0.85 + rand.Float64()*0.15,
	}, nil
}
