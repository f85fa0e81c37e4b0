package detector

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/phishfinder/phishfinder/internal/utils"
)

// GeminiDetector asks a Gemini model to judge whether text is machine
// generated.
type GeminiDetector struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

// NewGeminiDetector creates a detector using the given model, for example
// "gemini-1.5-flash".
func NewGeminiDetector(ctx context.Context, apiKey, model string, logger *zap.Logger) (*GeminiDetector, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiDetector{client: client, model: model, logger: logger}, nil
}

// DetectGeneratedText submits the text for judgment.
func (d *GeminiDetector) DetectGeneratedText(ctx context.Context, text string) (float64, error) {
	model := d.client.GenerativeModel(d.model)
	resp, err := model.GenerateContent(ctx,
		genai.Text(fmt.Sprintf(detectionPrompt, utils.SanitizeUTF8(text))))
	if err != nil {
		return 0, fmt.Errorf("content generation failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return 0, fmt.Errorf("content generation returned no candidates")
	}

	var content string
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			content += string(t)
		}
	}

	verdict, err := parseVerdict(content)
	if err != nil {
		return 0, err
	}
	d.logger.Debug("Gemini detection complete",
		zap.Float64("score", verdict.Score),
		zap.String("explanation", verdict.Explanation))
	return clampScore(verdict.Score), nil
}

// Close releases the underlying client.
func (d *GeminiDetector) Close() error {
	return d.client.Close()
}
