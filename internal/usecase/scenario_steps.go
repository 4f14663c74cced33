package usecase

import (
	"appointment-agent/internal/entity"
	"appointment-agent/internal/ports"
	"appointment-agent/internal/site"
	"appointment-agent/pkg/apperr"
	"appointment-agent/pkg/logg"
	"appointment-agent/pkg/tracing"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const tabKey = "Tab"

// attempt carries the state of a single Run; it never outlives its session.
type attempt struct {
	svc     *ScenarioService
	session ports.Session
	logger  *zap.Logger
	urls    site.URLs
	result  *entity.AttemptResult
}

func (a *attempt) run(ctx context.Context) (entity.AttemptOutcome, error) {
	if err := a.signIn(ctx); err != nil {
		return "", err
	}

	if a.svc.scenario.DaysProbe {
		available, err := a.probeDays(ctx)
		if err != nil {
			return "", err
		}

		if !available {
			return entity.OutcomeNoEarlierSlot, nil
		}
	}

	if err := a.openAppointmentPage(ctx); err != nil {
		return "", err
	}

	if err := a.selectFacility(ctx); err != nil {
		return "", err
	}

	if err := a.openCalendar(ctx); err != nil {
		return "", err
	}

	if _, err := a.pickEarliestDay(ctx); err != nil {
		return "", err
	}

	acceptable, err := a.evaluateDate(ctx)
	if err != nil {
		return "", err
	}

	if !acceptable {
		return entity.OutcomeNoEarlierSlot, nil
	}

	if err := a.selectTime(ctx); err != nil {
		return "", err
	}

	if err := a.confirm(ctx); err != nil {
		return "", err
	}

	if err := a.hold(ctx); err != nil {
		return "", err
	}

	return entity.OutcomeClaimed, nil
}

func (a *attempt) opts() entity.WaitOptions {
	return entity.WaitOptions{Timeout: a.svc.scenario.DefaultTimeout, VisibleRequired: true}
}

func (a *attempt) resolve(ctx context.Context, ref entity.ElementRef) (ports.Element, error) {
	return a.svc.locator.Resolve(ctx, ref, a.session, a.opts())
}

func (a *attempt) resolveAndClick(ctx context.Context, ref entity.ElementRef) error {
	el, err := a.resolve(ctx, ref)
	if err != nil {
		return err
	}

	return a.svc.interactor.Click(ctx, el, a.svc.scenario.DefaultTimeout)
}

func (a *attempt) settle(ctx context.Context) error {
	return a.svc.sleep(ctx, a.svc.scenario.SettleDelay)
}

func (a *attempt) signIn(ctx context.Context) (err error) {
	const op = "signIn"
	logger := a.logger.With(zap.String(logg.Step, op))

	ctx, step := tracing.StartSpan(ctx, a.svc.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	elements := a.svc.profile.Elements
	creds := a.svc.scenario.Credentials
	timeout := a.svc.scenario.DefaultTimeout

	if err := a.session.Navigate(ctx, a.urls.SignIn); err != nil {
		return err
	}

	step.AddEvent("sign-in page loaded")

	email, err := a.resolve(ctx, elements.Email)
	if err != nil {
		return err
	}

	if err := a.svc.interactor.Click(ctx, email, timeout); err != nil {
		return err
	}

	if err := a.svc.interactor.SetValue(ctx, email, creds.Username, timeout); err != nil {
		return err
	}

	if err := a.session.KeyDown(ctx, tabKey); err != nil {
		return apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason: "key_down_failed",
			apperr.MetaStage:  apperr.StageInteraction,
		})
	}

	if err := a.session.KeyUp(ctx, tabKey); err != nil {
		return apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason: "key_up_failed",
			apperr.MetaStage:  apperr.StageInteraction,
		})
	}

	password, err := a.resolve(ctx, elements.Password)
	if err != nil {
		return err
	}

	if err := a.svc.interactor.SetValue(ctx, password, creds.Password, timeout); err != nil {
		return err
	}

	if err := a.resolveAndClick(ctx, elements.Consent); err != nil {
		return err
	}

	submit, err := a.resolve(ctx, elements.Submit)
	if err != nil {
		return err
	}

	if err := a.session.ExpectNavigation(ctx, func() error {
		return a.svc.interactor.Click(ctx, submit, timeout)
	}); err != nil {
		return err
	}

	logger.Info("Signed in")

	return nil
}

// probeDays asks the schedule's day listing whether anything at or before the threshold
// exists, so a hopeless attempt can stop before touching the calendar.
func (a *attempt) probeDays(ctx context.Context) (available bool, err error) {
	const op = "probeDays"
	logger := a.logger.With(zap.String(logg.Step, op), zap.String(logg.URL, a.urls.Days))

	ctx, step := tracing.StartSpan(ctx, a.svc.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	body, err := a.session.FetchBody(ctx, a.urls.Days)
	if err != nil {
		return false, err
	}

	var days []entity.AvailableDay
	if err := json.Unmarshal(body, &days); err != nil {
		return false, apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "days_decode_failed",
		})
	}

	if len(days) == 0 {
		logger.Info("No available dates for facility", zap.String("facility_id", a.svc.scenario.FacilityID))

		return false, nil
	}

	first, err := time.Parse(a.svc.profile.DateLayout, days[0].Date)
	if err != nil {
		return false, apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "days_parse_failed",
		})
	}

	a.result.Date = first

	if first.After(a.svc.scenario.TargetDate) {
		logger.Info("No date earlier than threshold",
			zap.String("first_date", days[0].Date),
			zap.String("threshold", a.svc.scenario.TargetDate.Format(entity.DateLayout)))

		return false, nil
	}

	return true, nil
}

func (a *attempt) openAppointmentPage(ctx context.Context) (err error) {
	const op = "openAppointmentPage"
	logger := a.logger.With(zap.String(logg.Step, op))

	ctx, step := tracing.StartSpan(ctx, a.svc.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	logger.Info("Going to the appointment page")

	if err := a.session.Navigate(ctx, a.urls.Appointment); err != nil {
		return err
	}

	if err := a.settle(ctx); err != nil {
		return err
	}

	if !a.svc.scenario.GroupMode {
		return nil
	}

	step.AddEvent("passing group selection")

	if err := a.resolveAndClick(ctx, a.svc.profile.Elements.GroupContinue); err != nil {
		return err
	}

	return a.settle(ctx)
}

func (a *attempt) selectFacility(ctx context.Context) (err error) {
	const op = "selectFacility"
	facilityID := a.svc.scenario.FacilityID
	logger := a.logger.With(zap.String(logg.Step, op), zap.String("facility_id", facilityID))

	ctx, step := tracing.StartSpan(ctx, a.svc.tracer, logger, op, attribute.String("facility_id", facilityID))
	defer func() {
		step.End(err)
	}()

	facility, err := a.resolve(ctx, a.svc.profile.Elements.Facility)
	if err != nil {
		return err
	}

	if err := a.svc.interactor.Guard().EnsureVisible(ctx, facility, a.svc.scenario.DefaultTimeout); err != nil {
		return err
	}

	if err := facility.SelectOption(ctx, facilityID); err != nil {
		return apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason:  "select_facility_failed",
			apperr.MetaStage:   apperr.StageInteraction,
			apperr.MetaElement: a.svc.profile.Elements.Facility.Name,
		})
	}

	logger.Info("Facility selected")

	return a.settle(ctx)
}

func (a *attempt) openCalendar(ctx context.Context) error {
	if err := a.resolveAndClick(ctx, a.svc.profile.Elements.DateInput); err != nil {
		return err
	}

	return a.settle(ctx)
}

// evaluateDate reads back the date the page now holds. A date after the threshold is
// cleared and reported as not acceptable.
func (a *attempt) evaluateDate(ctx context.Context) (acceptable bool, err error) {
	const op = "evaluateDate"
	logger := a.logger.With(zap.String(logg.Step, op))

	ctx, step := tracing.StartSpan(ctx, a.svc.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	dateInput, err := a.svc.locator.Resolve(ctx, a.svc.profile.Elements.DateInput, a.session,
		entity.WaitOptions{Timeout: a.svc.scenario.DefaultTimeout})
	if err != nil {
		return false, err
	}

	raw, err := dateInput.Value(ctx)
	if err != nil {
		return false, apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason: "read_date_failed",
		})
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, apperr.Wrap(op, apperr.CodeNotFound, errors.New("date field is empty after selection"), map[string]any{
			apperr.MetaReason:  "date_not_selected",
			apperr.MetaElement: a.svc.profile.Elements.DateInput.Name,
		})
	}

	selected, err := time.Parse(a.svc.profile.DateLayout, raw)
	if err != nil {
		return false, apperr.Wrap(op, apperr.CodeInternal, fmt.Errorf("parse %q: %w", raw, err), map[string]any{
			apperr.MetaReason: "date_parse_failed",
		})
	}

	a.result.Date = selected
	step.SetAttributes(attribute.String("selected_date", raw))
	logger.Info("First available date selected", zap.String("date", raw))

	if !IsAcceptable(selected, a.svc.scenario.TargetDate) {
		logger.Info("Selected date is later than threshold, clearing it",
			zap.String("threshold", a.svc.scenario.TargetDate.Format(entity.DateLayout)))

		if err := dateInput.AssignValue(ctx, ""); err != nil {
			logger.Warn("Failed to clear date selection", zap.Error(err))
		}

		return false, nil
	}

	return true, nil
}

// IsAcceptable reports whether date is on or before threshold.
func IsAcceptable(date, threshold time.Time) bool {
	return !date.After(threshold)
}

func (a *attempt) selectTime(ctx context.Context) (err error) {
	const op = "selectTime"
	logger := a.logger.With(zap.String(logg.Step, op))

	ctx, step := tracing.StartSpan(ctx, a.svc.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	timeout := a.svc.scenario.DefaultTimeout

	timeSelect, err := a.resolve(ctx, a.svc.profile.Elements.TimeSelect)
	if err != nil {
		return err
	}

	if err := a.svc.interactor.Guard().EnsureVisible(ctx, timeSelect, timeout); err != nil {
		return err
	}

	var offered []string

	err = a.svc.waiter.WaitUntil(ctx, timeout, func(ctx context.Context) (bool, error) {
		values, err := timeSelect.OptionValues(ctx)
		if err != nil {
			return false, err
		}

		offered = nonEmpty(values)

		return len(offered) > 0, nil
	})
	if err != nil {
		return apperr.Wrap(op, apperr.CodeOf(err), err, map[string]any{
			apperr.MetaReason:  "no_time_slots",
			apperr.MetaStep:    op,
			apperr.MetaElement: a.svc.profile.Elements.TimeSelect.Name,
		})
	}

	chosen := offered[0]

	if err := timeSelect.AssignValue(ctx, chosen); err != nil {
		return apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason: "assign_time_failed",
			apperr.MetaStage:  apperr.StageInteraction,
		})
	}

	a.result.Time = chosen
	logger.Info("Time slot selected", zap.Strings("offered", offered), zap.String("time", chosen))

	return nil
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))

	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}

	return out
}

func (a *attempt) confirm(ctx context.Context) error {
	confirmed, err := a.svc.confirmer.Confirm(ctx, a.session)
	if err != nil {
		return err
	}

	a.result.Confirmed = confirmed

	return nil
}

// hold keeps the session open for the observation window before teardown.
func (a *attempt) hold(ctx context.Context) error {
	if a.svc.scenario.HoldOpen <= 0 {
		return nil
	}

	a.logger.Info("Holding session open", zap.Duration("hold", a.svc.scenario.HoldOpen))

	return a.svc.sleep(ctx, a.svc.scenario.HoldOpen)
}
