package bootstrap

import (
	"appointment-agent/internal/usecase"
	"context"
	"errors"

	"go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// runSupervisor launches the browser on start and drives the retry loop in the background.
// The app shuts itself down once the loop returns.
func runSupervisor(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	service *usecase.Service,
	logger *zap.Logger,
	_ *trace.TracerProvider,
) {
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("Launching browser...")

			if err := service.Driver.Launch(ctx); err != nil {
				logger.Error("Failed to launch browser", zap.Error(err))

				return err
			}

			logger.Info("Browser launched successfully")

			go func() {
				defer close(done)

				exitCode := 0

				if err := service.Supervisor.Run(context.Background()); err != nil {
					if errors.Is(err, context.Canceled) {
						logger.Info("Supervisor stopped")
					} else {
						logger.Error("Supervisor failed", zap.Error(err))
						exitCode = 1
					}
				}

				if err := shutdowner.Shutdown(fx.ExitCode(exitCode)); err != nil {
					logger.Warn("Failed to request shutdown", zap.Error(err))
				}
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Shutting down appointment agent...")

			service.Supervisor.Stop()

			select {
			case <-done:
			case <-ctx.Done():
				logger.Warn("Supervisor did not stop in time")
			}

			if err := service.Notifier.Close(ctx); err != nil {
				logger.Error("Failed to flush notifications", zap.Error(err))
			}

			if err := service.Driver.Close(ctx); err != nil {
				logger.Error("Failed to close browser", zap.Error(err))
			}

			return nil
		},
	})
}
