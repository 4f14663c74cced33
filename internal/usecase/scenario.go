package usecase

import (
	"appointment-agent/internal/automation"
	"appointment-agent/internal/entity"
	"appointment-agent/internal/ports"
	"appointment-agent/internal/site"
	"appointment-agent/pkg/apperr"
	"appointment-agent/pkg/logg"
	"appointment-agent/pkg/tracing"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	scenarioServiceName = "ScenarioService"
	scenarioTracer      = "usecase.scenario"
	sessionCloseTimeout = 30 * time.Second
)

// ScenarioService runs one attempt: sign in, pick the facility, walk the calendar to the
// earliest selectable day and, when that day is early enough, select the first time slot.
type ScenarioService struct {
	logger      *zap.Logger
	tracer      trace.Tracer
	driver      ports.Driver
	locator     *automation.Locator
	interactor  *automation.Interactor
	waiter      *automation.Waiter
	confirmer   ports.Confirmer
	profile     site.Profile
	scenario    entity.ScenarioContext
	sessionOpts entity.SessionOptions
	sleep       func(ctx context.Context, d time.Duration) error
}

type ScenarioServiceParams struct {
	Logger      *zap.Logger
	Driver      ports.Driver
	Locator     *automation.Locator
	Interactor  *automation.Interactor
	Waiter      *automation.Waiter
	Confirmer   ports.Confirmer
	Profile     site.Profile
	Scenario    entity.ScenarioContext
	SessionOpts entity.SessionOptions
	Sleep       func(ctx context.Context, d time.Duration) error
}

func NewScenarioService(params ScenarioServiceParams) *ScenarioService {
	sleep := params.Sleep
	if sleep == nil {
		sleep = automation.Sleep
	}

	confirmer := params.Confirmer
	if confirmer == nil {
		confirmer = NoopConfirmer{}
	}

	return &ScenarioService{
		logger:      params.Logger.With(zap.String(logg.Layer, scenarioServiceName)),
		tracer:      otel.Tracer(scenarioTracer),
		driver:      params.Driver,
		locator:     params.Locator,
		interactor:  params.Interactor,
		waiter:      params.Waiter,
		confirmer:   confirmer,
		profile:     params.Profile,
		scenario:    params.Scenario,
		sessionOpts: params.SessionOpts,
		sleep:       sleep,
	}
}

// Run performs one attempt and always yields exactly one outcome. Any failure, including a
// panic, becomes OutcomeTransientError; the session is closed on every path.
func (s *ScenarioService) Run(ctx context.Context) (result entity.AttemptResult) {
	const op = "Run"

	result = entity.AttemptResult{
		ID:        uuid.New(),
		StartedAt: time.Now(),
	}

	logger := s.logger.With(zap.String(logg.Operation, op), zap.String(logg.AttemptID, result.ID.String()))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op,
		attribute.String("attempt_id", result.ID.String()))
	defer func() {
		result.EndedAt = time.Now()
		step.SetAttributes(attribute.String("outcome", string(result.Outcome)))
		step.End(result.Err)
	}()

	defer func() {
		if r := recover(); r != nil {
			result.Outcome = entity.OutcomeTransientError
			result.Err = apperr.Wrap(op, apperr.CodePanic, fmt.Errorf("%v", r), map[string]any{
				apperr.MetaReason: "attempt_panicked",
			})
		}
	}()

	session, err := s.driver.NewSession(ctx, s.sessionOpts)
	if err != nil {
		result.Outcome = entity.OutcomeTransientError
		result.Err = apperr.Wrap(op, apperr.CodeOf(err), err, map[string]any{
			apperr.MetaReason: "session_open_failed",
			apperr.MetaStage:  apperr.StageSession,
		})

		return result
	}
	defer s.closeSession(ctx, session, logger)

	a := &attempt{
		svc:     s,
		session: session,
		logger:  logger,
		urls:    s.profile.Expand(s.scenario),
		result:  &result,
	}

	outcome, err := a.run(ctx)
	if err != nil {
		result.Outcome = entity.OutcomeTransientError
		result.Err = err

		return result
	}

	result.Outcome = outcome

	return result
}

func (s *ScenarioService) closeSession(ctx context.Context, session ports.Session, logger *zap.Logger) {
	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sessionCloseTimeout)
	defer cancel()

	if s.waiter != nil {
		if err := s.waiter.Settle(closeCtx); err != nil {
			logger.Warn("Abandoned page evaluation did not finish before close", zap.Error(err))
		}
	}

	if err := session.Close(closeCtx); err != nil {
		logger.Warn("Failed to close session", zap.Error(err))
	}
}
