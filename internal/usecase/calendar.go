package usecase

import (
	"appointment-agent/internal/entity"
	"appointment-agent/pkg/apperr"
	"appointment-agent/pkg/logg"
	"appointment-agent/pkg/tracing"
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// pickEarliestDay clicks the first selectable day, paging the calendar forward one month at a
// time while the visible months have none. It stops only on a click, a missing next-month
// control, or cancellation.
func (a *attempt) pickEarliestDay(ctx context.Context) (advances int, err error) {
	const op = "pickEarliestDay"
	logger := a.logger.With(zap.String(logg.Step, op))

	ctx, step := tracing.StartSpan(ctx, a.svc.tracer, logger, op)
	defer func() {
		step.SetAttributes(attribute.Int("advances", advances))
		step.End(err)
	}()

	elements := a.svc.profile.Elements
	dayOpts := entity.WaitOptions{Timeout: a.svc.scenario.CalendarTimeout, VisibleRequired: true}

	for {
		if err := ctx.Err(); err != nil {
			return advances, apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
				apperr.MetaReason: "context_cancelled",
				apperr.MetaStage:  apperr.StageCalendar,
			})
		}

		clicked, err := a.clickEarliestDay(ctx, dayOpts)
		if clicked {
			logger.Info("Earliest day clicked", zap.Int("advances", advances))

			return advances, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return advances, err
		}

		logger.Debug("No clickable day in visible months", zap.Error(err))

		next, err := a.svc.locator.Resolve(ctx, elements.NextMonth, a.session, a.opts())
		if err != nil {
			return advances, apperr.Wrap(op, apperr.CodeOf(err), err, map[string]any{
				apperr.MetaReason:  "next_month_unavailable",
				apperr.MetaStage:   apperr.StageCalendar,
				apperr.MetaStep:    op,
				apperr.MetaElement: elements.NextMonth.Name,
			})
		}

		if err := a.svc.interactor.Click(ctx, next, a.svc.scenario.DefaultTimeout); err != nil {
			return advances, err
		}

		advances++
		logger.Debug("No selectable day, advanced one month", zap.Int("advances", advances))
	}
}

// clickEarliestDay tries the earliest selectable day once. A day that is missing, or that cannot
// be scrolled into view and clicked within the calendar timeout, counts as no day.
func (a *attempt) clickEarliestDay(ctx context.Context, opts entity.WaitOptions) (bool, error) {
	day, err := a.svc.locator.Resolve(ctx, a.svc.profile.Elements.EarliestDay, a.session, opts)
	if err != nil {
		return false, err
	}

	if err := a.svc.interactor.Click(ctx, day, opts.Timeout); err != nil {
		return false, err
	}

	return true, nil
}
