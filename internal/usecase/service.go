package usecase

import (
	"appointment-agent/internal/config"
	"appointment-agent/internal/ports"
	"appointment-agent/internal/usecase/adapters"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Service struct {
	Scenario   adapters.ScenarioService
	Supervisor adapters.SupervisorService
	Driver     adapters.DriverService
	Notifier   adapters.NotifierService
}

type Params struct {
	fx.In

	Logger   *zap.Logger
	Config   *config.Config
	Driver   ports.Driver
	Notifier ports.Notifier
}

func NewUsecase(params Params) *Service {
	factory := newServiceFactory(params)
	scenario := factory.CreateScenarioService()

	return &Service{
		Scenario:   scenario,
		Supervisor: factory.CreateSupervisorService(scenario),
		Driver:     factory.CreateDriverService(),
		Notifier:   factory.CreateNotifierService(),
	}
}
