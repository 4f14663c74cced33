package bootstrap

import (
	"appointment-agent/internal/browser"
	"appointment-agent/internal/config"
	"appointment-agent/internal/notify"
	"appointment-agent/internal/ports"
	"appointment-agent/internal/usecase"
	"time"

	"go.uber.org/fx"
)

func NewApp() *fx.App {
	return fx.New(
		fx.Provide(
			config.GetConfig,
			newLogger,
			newTraceProvider,

			fx.Annotate(browser.NewManager, fx.As(new(ports.Driver))),
			fx.Annotate(notify.New, fx.As(new(ports.Notifier))),

			usecase.NewUsecase,
		),

		fx.Invoke(
			runSupervisor,
		),

		fx.StartTimeout(5*time.Minute),
		fx.StopTimeout(time.Minute),
	)
}
