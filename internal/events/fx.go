package events

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

const drainInterval = 30 * time.Second

var Module = fx.Module("events",
	fx.Provide(NewOutboxPublisher),
	fx.Provide(NewDispatcher),
	fx.Invoke(runDrainLoop),
)

// runDrainLoop periodically redelivers events whose synchronous dispatch
// failed, so a handler crash never loses a recomputation.
func runDrainLoop(lc fx.Lifecycle, dispatcher *Dispatcher, log *zap.Logger) {
	logger := log.Named("events.drain")
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				ticker := time.NewTicker(drainInterval)
				defer ticker.Stop()
				for {
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
						if err := dispatcher.DrainPending(ctx, 100); err != nil && ctx.Err() == nil {
							logger.Warn("drain pass failed", zap.Error(err))
						}
					}
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
}
