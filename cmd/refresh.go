package main

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// refresh reloads the snapshot every interval until ctx is done. A failed
// reload is logged and the current snapshot keeps serving.
func (s *server) refresh(ctx context.Context, every time.Duration) {
	log := zap.L().With(zap.String("component", "serve.refresh"))
	log.Info("starting snapshot refresh", zap.Duration("interval", every))

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("snapshot refresh stopped")
			return
		case <-ticker.C:
			if _, err := s.reload(ctx); err != nil {
				log.Error("refresh: reload failed", zap.Error(err))
			}
		}
	}
}
