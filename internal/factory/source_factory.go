package factory

import (
	"go.uber.org/zap"

	"github.com/phishfinder/phishfinder/internal/adapters/source"
	"github.com/phishfinder/phishfinder/internal/analysis"
	"github.com/phishfinder/phishfinder/internal/config"
	"github.com/phishfinder/phishfinder/internal/ports"
)

// SourceFactory creates the email ingest source.
type SourceFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewSourceFactory creates a new source factory.
func NewSourceFactory(cfg *config.Config, logger *zap.Logger) *SourceFactory {
	return &SourceFactory{cfg: cfg, logger: logger}
}

// CreateEmailSource creates the SMTP ingest source bound to the analysis
// pool.
func (f *SourceFactory) CreateEmailSource(pool *analysis.Pool) (ports.EmailSource, error) {
	return source.NewSMTPSource(
		f.cfg.GetString("server.listen_address"),
		f.cfg.GetString("server.domain"),
		f.cfg.GetInt64("server.max_message_bytes"),
		pool,
		f.logger,
	), nil
}
