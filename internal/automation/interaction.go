package automation

import (
	"context"
	"time"

	"appointment-agent/internal/ports"
	"appointment-agent/pkg/apperr"
	"appointment-agent/pkg/logg"

	"go.uber.org/zap"
)

const interactorName = "Interactor"

// Control types that only pick up framework listeners through simulated keystrokes.
var nativeTextTypes = map[string]struct{}{
	"textarea":   {},
	"select-one": {},
	"text":       {},
	"url":        {},
	"tel":        {},
	"search":     {},
	"password":   {},
	"number":     {},
	"email":      {},
}

func IsNativeTextControl(controlType string) bool {
	_, ok := nativeTextTypes[controlType]

	return ok
}

type Interactor struct {
	guard  *ViewportGuard
	logger *zap.Logger
}

func NewInteractor(guard *ViewportGuard, logger *zap.Logger) *Interactor {
	return &Interactor{
		guard:  guard,
		logger: logger.With(zap.String(logg.Layer, interactorName)),
	}
}

// SetValue types value into native text controls. Custom components get focus, a direct
// property assignment and synthesized input/change events instead.
func (i *Interactor) SetValue(ctx context.Context, el ports.Element, value string, timeout time.Duration) error {
	const op = "SetValue"
	logger := i.logger.With(zap.String(logg.Operation, op))

	if err := i.guard.EnsureVisible(ctx, el, timeout); err != nil {
		return err
	}

	controlType, err := el.ControlType(ctx)
	if err != nil {
		return apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason: "control_type_failed",
			apperr.MetaStage:  apperr.StageInteraction,
		})
	}

	if IsNativeTextControl(controlType) {
		logger.Debug("Typing into native control", zap.String("control_type", controlType))

		if err := el.Type(ctx, value); err != nil {
			return apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
				apperr.MetaReason: "type_failed",
				apperr.MetaStage:  apperr.StageInteraction,
			})
		}

		return nil
	}

	logger.Debug("Assigning value to custom control", zap.String("control_type", controlType))

	if err := el.Focus(ctx); err != nil {
		return apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason: "focus_failed",
			apperr.MetaStage:  apperr.StageInteraction,
		})
	}

	if err := el.AssignValue(ctx, value); err != nil {
		return apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason: "assign_failed",
			apperr.MetaStage:  apperr.StageInteraction,
		})
	}

	return nil
}

// Click brings el into view and clicks it.
func (i *Interactor) Click(ctx context.Context, el ports.Element, timeout time.Duration) error {
	const op = "Click"

	if err := i.guard.EnsureVisible(ctx, el, timeout); err != nil {
		return err
	}

	if err := el.Click(ctx); err != nil {
		return apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason: "click_failed",
			apperr.MetaStage:  apperr.StageInteraction,
		})
	}

	return nil
}

func (i *Interactor) Guard() *ViewportGuard {
	return i.guard
}
