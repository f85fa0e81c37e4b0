package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/phishfinder/phishfinder/internal/analysis"
	"github.com/phishfinder/phishfinder/internal/core"
	"github.com/phishfinder/phishfinder/internal/di"
	"github.com/phishfinder/phishfinder/internal/ports"
)

func main() {
	container, err := di.BuildContainer()
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	logger *zap.Logger,
	emailSource ports.EmailSource,
	pool *analysis.Pool,
	history core.SenderHistoryRepository,
	detector core.ContentDetector,
) error {
	defer logger.Sync()

	errCh := make(chan error, 1)
	go func() {
		errCh <- emailSource.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("Shutting down...", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			logger.Error("Email source stopped unexpectedly", zap.Error(err))
		}
	}

	if err := emailSource.Stop(); err != nil {
		logger.Error("Failed to stop email source", zap.Error(err))
	}
	pool.Wait()

	if closer, ok := history.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close history store", zap.Error(err))
		}
	}
	if closer, ok := detector.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close content detector", zap.Error(err))
		}
	}

	logger.Info("Shutdown complete")
	return nil
}
