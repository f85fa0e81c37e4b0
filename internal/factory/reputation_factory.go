package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/phishfinder/phishfinder/internal/adapters/safebrowsing"
	"github.com/phishfinder/phishfinder/internal/config"
	"github.com/phishfinder/phishfinder/internal/core"
)

// ReputationFactory creates the configured URL reputation client.
type ReputationFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewReputationFactory creates a new reputation factory.
func NewReputationFactory(cfg *config.Config, logger *zap.Logger) *ReputationFactory {
	return &ReputationFactory{cfg: cfg, logger: logger}
}

// CreateReputationClient creates the client named by reputation.provider.
// A nil client means the reputation signal is disabled.
func (f *ReputationFactory) CreateReputationClient() (core.ReputationClient, error) {
	provider := f.cfg.GetString("reputation.provider")

	switch provider {
	case "disabled", "":
		f.logger.Info("Reputation checks disabled")
		return nil, nil
	case "safebrowsing":
		apiKey := f.cfg.GetString("safebrowsing.api_key")
		if apiKey == "" {
			return nil, fmt.Errorf("safebrowsing.api_key is required when reputation.provider is safebrowsing")
		}
		timeout, err := f.cfg.GetDuration("safebrowsing.timeout")
		if err != nil {
			return nil, fmt.Errorf("invalid safebrowsing.timeout: %w", err)
		}
		return safebrowsing.NewClient(
			apiKey,
			f.cfg.GetString("safebrowsing.client_id"),
			f.cfg.GetString("safebrowsing.client_version"),
			f.cfg.GetString("safebrowsing.endpoint"),
			timeout,
			f.logger,
		), nil
	default:
		return nil, fmt.Errorf("unsupported reputation provider: %s", provider)
	}
}
