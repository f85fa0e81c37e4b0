package detector

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/phishfinder/phishfinder/internal/utils"
)

// OpenAIDetector asks an OpenAI chat model to judge whether text is
// machine generated.
type OpenAIDetector struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewOpenAIDetector creates a detector using the given model, for example
// "gpt-4o-mini".
func NewOpenAIDetector(apiKey, model string, logger *zap.Logger) *OpenAIDetector {
	return &OpenAIDetector{
		client: openai.NewClient(apiKey),
		model:  model,
		logger: logger,
	}
}

// DetectGeneratedText submits the text for judgment.
func (d *OpenAIDetector) DetectGeneratedText(ctx context.Context, text string) (float64, error) {
	resp, err := d.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: d.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf(detectionPrompt, utils.SanitizeUTF8(text)),
			},
		},
	})
	if err != nil {
		return 0, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return 0, fmt.Errorf("chat completion returned no choices")
	}

	verdict, err := parseVerdict(resp.Choices[0].Message.Content)
	if err != nil {
		return 0, err
	}
	d.logger.Debug("OpenAI detection complete",
		zap.Float64("score", verdict.Score),
		zap.String("explanation", verdict.Explanation))
	return clampScore(verdict.Score), nil
}
