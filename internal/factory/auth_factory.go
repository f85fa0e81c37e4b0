package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/phishfinder/phishfinder/internal/adapters/mailauth"
	"github.com/phishfinder/phishfinder/internal/config"
	"github.com/phishfinder/phishfinder/internal/core"
)

// AuthFactory creates the mail authentication adapter.
type AuthFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewAuthFactory creates a new authentication factory.
func NewAuthFactory(cfg *config.Config, logger *zap.Logger) *AuthFactory {
	return &AuthFactory{cfg: cfg, logger: logger}
}

// CreateAuthenticator creates the SPF/DKIM/DMARC evaluator.
func (f *AuthFactory) CreateAuthenticator() (core.Authenticator, error) {
	cacheTTL, err := f.cfg.GetDuration("auth.cache_ttl")
	if err != nil {
		return nil, fmt.Errorf("invalid auth.cache_ttl: %w", err)
	}

	return mailauth.New(mailauth.Options{
		DNSLookups:     f.cfg.GetBool("auth.dns_lookups"),
		DNSServer:      f.cfg.GetString("auth.dns_server"),
		PolicyCacheTTL: cacheTTL,
	}, f.logger), nil
}
