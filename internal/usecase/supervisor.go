package usecase

import (
	"appointment-agent/internal/automation"
	"appointment-agent/internal/entity"
	"appointment-agent/internal/ports"
	"appointment-agent/internal/usecase/adapters"
	"appointment-agent/pkg/apperr"
	"appointment-agent/pkg/logg"
	"appointment-agent/pkg/tracing"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	supervisorServiceName = "SupervisorService"
	supervisorTracer      = "usecase.supervisor"
)

// SupervisorService repeats attempts until one claims a slot, notifying exactly once.
type SupervisorService struct {
	logger   *zap.Logger
	tracer   trace.Tracer
	runner   adapters.ScenarioService
	notifier ports.Notifier
	policy   Policy
	sleep    func(ctx context.Context, d time.Duration) error

	mu       sync.Mutex
	state    entity.RetryState
	running  bool
	stopChan chan struct{}
}

type SupervisorServiceParams struct {
	Logger   *zap.Logger
	Runner   adapters.ScenarioService
	Notifier ports.Notifier
	Policy   Policy
	Sleep    func(ctx context.Context, d time.Duration) error
}

func NewSupervisorService(params SupervisorServiceParams) *SupervisorService {
	sleep := params.Sleep
	if sleep == nil {
		sleep = automation.Sleep
	}

	return &SupervisorService{
		logger:   params.Logger.With(zap.String(logg.Layer, supervisorServiceName)),
		tracer:   otel.Tracer(supervisorTracer),
		runner:   params.Runner,
		notifier: params.Notifier,
		policy:   params.Policy,
		sleep:    sleep,
		stopChan: make(chan struct{}),
	}
}

// Run loops until an attempt claims a slot (nil), the context is cancelled, or Stop is called.
// Attempts never overlap.
func (s *SupervisorService) Run(ctx context.Context) (err error) {
	const op = "Run"
	logger := s.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op)
	defer func() {
		step.SetAttributes(attribute.Int("attempts", s.State().AttemptCount))
		step.End(err)
	}()

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()

		return apperr.WrapErrorWithReason(op, apperr.CodeInvalidArgument, "already_running")
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case <-s.stopChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	for {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return s.stopped(op, ctxErr)
		}

		result := s.attempt(ctx)
		state := s.record(result)

		attemptLogger := logger.With(
			zap.Int(logg.Attempt, state.AttemptCount),
			zap.String(logg.AttemptID, result.ID.String()),
			zap.String(logg.Outcome, string(result.Outcome)),
		)

		if result.Outcome == entity.OutcomeClaimed {
			attemptLogger.Info("Slot claimed",
				zap.String("date", result.Date.Format(entity.DateLayout)),
				zap.String("time", result.Time),
				zap.Bool("confirmed", result.Confirmed))

			s.notifier.Notify(ctx, ClaimMessage(result))

			return nil
		}

		if result.Outcome == entity.OutcomeTransientError {
			attemptLogger.Warn("Attempt failed", zap.Error(result.Err))

			if s.policy.Classify(result.Err) == Fatal && ctx.Err() != nil {
				return s.stopped(op, ctx.Err())
			}
		} else {
			attemptLogger.Info("No earlier slot")
		}

		delay := s.policy.Delay(state)
		attemptLogger.Info("Retrying after delay", zap.Duration("delay", delay))

		if err := s.sleep(ctx, delay); err != nil {
			return s.stopped(op, err)
		}
	}
}

// attempt runs one scenario behind a recover boundary so a panic in the runner counts as a
// transient failure instead of ending the loop.
func (s *SupervisorService) attempt(ctx context.Context) (result entity.AttemptResult) {
	defer func() {
		if r := recover(); r != nil {
			result = entity.AttemptResult{
				Outcome: entity.OutcomeTransientError,
				Err: apperr.Wrap("attempt", apperr.CodePanic, fmt.Errorf("%v", r), map[string]any{
					apperr.MetaReason: "runner_panicked",
				}),
				EndedAt: time.Now(),
			}
		}
	}()

	return s.runner.Run(ctx)
}

func (s *SupervisorService) record(result entity.AttemptResult) entity.RetryState {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.AttemptCount++
	s.state.LastOutcome = result.Outcome
	s.state.LastError = result.Err

	return s.state
}

func (s *SupervisorService) stopped(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "context_cancelled",
		})
	}

	return err
}

// Stop ends a running loop at its next wait or step boundary.
func (s *SupervisorService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-s.stopChan:
	default:
		close(s.stopChan)
	}
}

func (s *SupervisorService) State() entity.RetryState {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// ClaimMessage is the notification text for a claimed slot.
func ClaimMessage(result entity.AttemptResult) string {
	status := "selected, not booked"
	if result.Confirmed {
		status = "booked"
	}

	return fmt.Sprintf("Found a new appointment for you: %s %s (%s)",
		result.Date.Format(entity.DateLayout), result.Time, status)
}
