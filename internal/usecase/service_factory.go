package usecase

import (
	"appointment-agent/internal/automation"
	"appointment-agent/internal/ports"
	"appointment-agent/internal/site"
	"appointment-agent/internal/usecase/adapters"
)

type serviceFactory struct {
	deps    Params
	profile site.Profile
	waiter  *automation.Waiter
}

func newServiceFactory(deps Params) *serviceFactory {
	return &serviceFactory{
		deps:    deps,
		profile: site.USVisa(),
		waiter:  automation.NewWaiter(automation.DefaultPollInterval),
	}
}

func (f *serviceFactory) CreateScenarioService() adapters.ScenarioService {
	locator := automation.NewLocator(f.waiter, f.deps.Logger)
	interactor := automation.NewInteractor(automation.NewViewportGuard(f.waiter), f.deps.Logger)
	scenario := f.deps.Config.ScenarioContext()

	var confirmer ports.Confirmer = NoopConfirmer{}
	if scenario.ConfirmBooking {
		confirmer = NewClickConfirmer(f.deps.Logger, locator, interactor, f.profile.Elements, scenario.DefaultTimeout)
	}

	return NewScenarioService(ScenarioServiceParams{
		Logger:      f.deps.Logger,
		Driver:      f.deps.Driver,
		Locator:     locator,
		Interactor:  interactor,
		Waiter:      f.waiter,
		Confirmer:   confirmer,
		Profile:     f.profile,
		Scenario:    scenario,
		SessionOpts: f.deps.Config.SessionOptions(),
	})
}

func (f *serviceFactory) CreateSupervisorService(runner adapters.ScenarioService) adapters.SupervisorService {
	return NewSupervisorService(SupervisorServiceParams{
		Logger:   f.deps.Logger,
		Runner:   runner,
		Notifier: f.deps.Notifier,
		Policy:   ConstantBackoff{Interval: f.deps.Config.RetryConfig.Delay},
	})
}

func (f *serviceFactory) CreateDriverService() adapters.DriverService {
	return f.deps.Driver
}

func (f *serviceFactory) CreateNotifierService() adapters.NotifierService {
	return f.deps.Notifier
}
