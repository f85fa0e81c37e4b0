// Package factory builds adapters from configuration.
package factory

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/phishfinder/phishfinder/internal/adapters/history"
	"github.com/phishfinder/phishfinder/internal/config"
	"github.com/phishfinder/phishfinder/internal/core"
)

// HistoryFactory creates the configured sender-history store.
type HistoryFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewHistoryFactory creates a new history factory.
func NewHistoryFactory(cfg *config.Config, logger *zap.Logger) *HistoryFactory {
	return &HistoryFactory{cfg: cfg, logger: logger}
}

// CreateHistoryRepository creates the store named by history.type.
func (f *HistoryFactory) CreateHistoryRepository() (core.SenderHistoryRepository, error) {
	historyType := f.cfg.GetString("history.type")
	f.logger.Info("Initializing sender history store", zap.String("type", historyType))

	switch historyType {
	case "memory":
		return history.NewMemoryStore(f.logger), nil
	case "sqlite":
		dbPath := f.cfg.GetString("history.sqlite_path")
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create history database directory: %w", err)
		}
		return history.NewSQLiteStore(dbPath, f.logger)
	case "mysql":
		return history.NewMySQLStore(f.cfg.GetString("history.mysql_dsn"), f.logger)
	default:
		return nil, fmt.Errorf("unsupported history store type: %s", historyType)
	}
}
