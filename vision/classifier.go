package vision

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Classifier extracts free-form text from a result screenshot. It is treated
// as untrusted best-effort I/O: an error here never corrupts match state, the
// evidence just stays pending.
type Classifier interface {
	Classify(ctx context.Context, imageURL string) (string, error)
}

var ErrClassifierUnavailable = errors.New("evidence classifier unavailable")

type OCRClientConfig struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

// ocrClient calls an external OCR HTTP service that accepts an image URL and
// returns extracted text.
type ocrClient struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

func NewOCRClient(cfg OCRClientConfig) (Classifier, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("invalid OCR configuration: endpoint is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &ocrClient{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		client:   &http.Client{Timeout: timeout},
	}, nil
}

// NewDisabledClassifier is used when no OCR endpoint is configured. Every
// submission stays pending until an arbiter rules.
func NewDisabledClassifier() Classifier {
	return disabledClassifier{}
}

type disabledClassifier struct{}

func (disabledClassifier) Classify(ctx context.Context, imageURL string) (string, error) {
	return "", ErrClassifierUnavailable
}

type ocrResponse struct {
	ParsedResults []struct {
		ParsedText string `json:"ParsedText"`
	} `json:"ParsedResults"`
	IsErroredOnProcessing bool   `json:"IsErroredOnProcessing"`
	ErrorMessage          string `json:"ErrorMessage,omitempty"`
}

func (c *ocrClient) Classify(ctx context.Context, imageURL string) (string, error) {
	form := url.Values{}
	form.Set("url", imageURL)
	form.Set("OCREngine", "2")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to build OCR request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrClassifierUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: unexpected status %d", ErrClassifierUnavailable, resp.StatusCode)
	}

	var parsed ocrResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("%w: failed to decode response: %w", ErrClassifierUnavailable, err)
	}
	if parsed.IsErroredOnProcessing {
		return "", fmt.Errorf("%w: %s", ErrClassifierUnavailable, parsed.ErrorMessage)
	}

	var builder strings.Builder
	for _, result := range parsed.ParsedResults {
		builder.WriteString(result.ParsedText)
		builder.WriteString("\n")
	}
	return builder.String(), nil
}
