// Package detector contains the machine-generated-content detectors. Each
// implements core.ContentDetector and returns a 0 to 1 likelihood that the
// text was produced by a language model.
package detector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/phishfinder/phishfinder/internal/utils"
)

const defaultWinstonBaseURL = "https://api.gowinston.ai/functions/v1"

// WinstonDetector calls the Winston AI content detection API. Winston
// scores human likelihood 0 to 100, so the returned value is inverted.
type WinstonDetector struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewWinstonDetector creates a Winston detector. baseURL overrides the
// public API, which tests use to point at a local server.
func NewWinstonDetector(apiKey, baseURL string, timeout time.Duration, logger *zap.Logger) *WinstonDetector {
	if baseURL == "" {
		baseURL = defaultWinstonBaseURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &WinstonDetector{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type winstonRequest struct {
	Text      string `json:"text"`
	Version   string `json:"version"`
	Sentences bool   `json:"sentences"`
	Language  string `json:"language"`
}

type winstonResponse struct {
	Score float64 `json:"score"`
}

// DetectGeneratedText submits the text for detection.
func (d *WinstonDetector) DetectGeneratedText(ctx context.Context, text string) (float64, error) {
	payload, err := json.Marshal(winstonRequest{
		Text:      utils.SanitizeUTF8(text),
		Version:   "latest",
		Sentences: false,
		Language:  "en",
	})
	if err != nil {
		return 0, fmt.Errorf("failed to encode detection request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		d.baseURL+"/v2/ai-content-detection", bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("failed to build detection request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+d.apiKey)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("detection request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("detection returned status %d: %s", resp.StatusCode, string(body))
	}

	var decoded winstonResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return 0, fmt.Errorf("failed to decode detection response: %w", err)
	}

	likelihood := clampScore(1 - decoded.Score/100)
	d.logger.Debug("Winston detection complete",
		zap.Float64("human_score", decoded.Score),
		zap.Float64("generated_likelihood", likelihood))
	return likelihood, nil
}

func clampScore(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
