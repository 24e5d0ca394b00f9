// internal/app/bootstrap/shutdown.go
package bootstrap

import (
	"context"
	"errors"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Shutdown closes websockets first, so every user's offline status reaches
// MongoDB and the bus, then stops the workers and closes the backends.
func Shutdown(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	var errs []error

	svcMu.Lock()
	s := svc
	svc = nil
	svcMu.Unlock()

	if s != nil {
		if s.sockets != nil {
			logger.Info("closing websocket connections")
			if err := s.sockets.Shutdown(ctx); err != nil {
				logger.Warn("websocket shutdown incomplete", zap.Error(err))
				errs = append(errs, err)
			}
		}
		if s.stopBus != nil {
			s.stopBus()
			select {
			case <-s.busDone:
			case <-ctx.Done():
			}
		}
		if s.cleanup != nil {
			s.cleanup.Stop()
		}
		if s.limiter != nil {
			s.limiter.Stop()
		}
	}

	if deps.Redis != nil {
		if err := deps.Redis.Close(); err != nil {
			logger.Error("Redis close failed", zap.Error(err))
			errs = append(errs, err)
		}
	}
	if deps.MongoClient != nil {
		logger.Info("disconnecting MongoDB client")
		if err := deps.MongoClient.Disconnect(ctx); err != nil {
			logger.Error("MongoDB disconnect failed", zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
