package di

import (
	"fmt"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/phishfinder/phishfinder/internal/allowlist"
	"github.com/phishfinder/phishfinder/internal/analysis"
	"github.com/phishfinder/phishfinder/internal/config"
	"github.com/phishfinder/phishfinder/internal/core"
	"github.com/phishfinder/phishfinder/internal/factory"
	"github.com/phishfinder/phishfinder/internal/logging"
	"github.com/phishfinder/phishfinder/internal/ports"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	providers := []interface{}{
		config.New,
		logging.InitLogger,

		factory.NewHistoryFactory,
		factory.NewReputationFactory,
		factory.NewAuthFactory,
		factory.NewDetectorFactory,
		factory.NewSourceFactory,

		func(f *factory.HistoryFactory) (core.SenderHistoryRepository, error) {
			return f.CreateHistoryRepository()
		},
		func(f *factory.ReputationFactory) (core.ReputationClient, error) {
			return f.CreateReputationClient()
		},
		func(f *factory.AuthFactory) (core.Authenticator, error) {
			return f.CreateAuthenticator()
		},
		func(f *factory.DetectorFactory) (core.ContentDetector, error) {
			return f.CreateContentDetector()
		},

		factory.BuildPolicy,
		func(cfg *config.Config, logger *zap.Logger) *allowlist.Checker {
			return allowlist.NewChecker(cfg.GetStringSlice("policy.allowed_bulk_domains"), logger)
		},

		analysis.NewSanitizer,
		func(cfg *config.Config) *analysis.KeywordScanner {
			return analysis.NewKeywordScanner(cfg.GetStringSlice("policy.keywords"))
		},
		analysis.NewLinkAnalyzer,
		analysis.NewAggregator,
		func(cfg *config.Config) (analysis.ServiceOptions, error) {
			signalTimeout, err := cfg.GetDuration("analysis.signal_timeout")
			if err != nil {
				return analysis.ServiceOptions{}, fmt.Errorf("invalid analysis.signal_timeout: %w", err)
			}
			return analysis.ServiceOptions{
				SignalTimeout:   signalTimeout,
				DetectorMaxBody: cfg.GetInt("detector.max_body_size"),
			}, nil
		},
		analysis.NewService,
		func(cfg *config.Config, service *analysis.Service, logger *zap.Logger) (*analysis.Pool, error) {
			timeout, err := cfg.GetDuration("analysis.timeout")
			if err != nil {
				return nil, fmt.Errorf("invalid analysis.timeout: %w", err)
			}
			return analysis.NewPool(service, logger, cfg.GetInt("analysis.max_concurrency"), timeout), nil
		},

		func(f *factory.SourceFactory, pool *analysis.Pool) (ports.EmailSource, error) {
			return f.CreateEmailSource(pool)
		},
	}

	for _, provider := range providers {
		if err := container.Provide(provider); err != nil {
			return nil, err
		}
	}

	return container, nil
}
