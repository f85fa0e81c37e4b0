package factory

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/phishfinder/phishfinder/internal/adapters/detector"
	"github.com/phishfinder/phishfinder/internal/config"
	"github.com/phishfinder/phishfinder/internal/core"
)

// DetectorFactory creates the configured AI content detector.
type DetectorFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewDetectorFactory creates a new detector factory.
func NewDetectorFactory(cfg *config.Config, logger *zap.Logger) *DetectorFactory {
	return &DetectorFactory{cfg: cfg, logger: logger}
}

// CreateContentDetector creates the detector named by detector.provider.
// A nil detector means the AI-content signal is disabled.
func (f *DetectorFactory) CreateContentDetector() (core.ContentDetector, error) {
	provider := f.cfg.GetString("detector.provider")

	switch provider {
	case "disabled", "":
		f.logger.Info("AI content detection disabled")
		return nil, nil
	case "winston":
		apiKey := f.cfg.GetString("winston.api_key")
		if apiKey == "" {
			return nil, fmt.Errorf("winston.api_key is required when detector.provider is winston")
		}
		timeout, err := f.cfg.GetDuration("winston.timeout")
		if err != nil {
			return nil, fmt.Errorf("invalid winston.timeout: %w", err)
		}
		return detector.NewWinstonDetector(apiKey, f.cfg.GetString("winston.endpoint"), timeout, f.logger), nil
	case "openai":
		apiKey := f.cfg.GetString("openai.api_key")
		if apiKey == "" {
			return nil, fmt.Errorf("openai.api_key is required when detector.provider is openai")
		}
		return detector.NewOpenAIDetector(apiKey, f.cfg.GetString("openai.model_name"), f.logger), nil
	case "gemini":
		apiKey := f.cfg.GetString("gemini.api_key")
		if apiKey == "" {
			return nil, fmt.Errorf("gemini.api_key is required when detector.provider is gemini")
		}
		return detector.NewGeminiDetector(context.Background(), apiKey, f.cfg.GetString("gemini.model_name"), f.logger)
	default:
		return nil, fmt.Errorf("unsupported detector provider: %s", provider)
	}
}
