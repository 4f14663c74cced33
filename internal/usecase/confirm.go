package usecase

import (
	"appointment-agent/internal/automation"
	"appointment-agent/internal/entity"
	"appointment-agent/internal/ports"
	"appointment-agent/internal/site"
	"appointment-agent/pkg/logg"
	"context"
	"time"

	"go.uber.org/zap"
)

// NoopConfirmer leaves a found slot selected but unbooked.
type NoopConfirmer struct{}

func (NoopConfirmer) Confirm(context.Context, ports.Session) (bool, error) {
	return false, nil
}

// ClickConfirmer books the selected slot by pressing Reschedule and accepting the dialog.
type ClickConfirmer struct {
	logger     *zap.Logger
	locator    *automation.Locator
	interactor *automation.Interactor
	elements   site.Elements
	timeout    time.Duration
}

func NewClickConfirmer(
	logger *zap.Logger,
	locator *automation.Locator,
	interactor *automation.Interactor,
	elements site.Elements,
	timeout time.Duration,
) *ClickConfirmer {
	return &ClickConfirmer{
		logger:     logger.With(zap.String(logg.Layer, "ClickConfirmer")),
		locator:    locator,
		interactor: interactor,
		elements:   elements,
		timeout:    timeout,
	}
}

func (c *ClickConfirmer) Confirm(ctx context.Context, session ports.Session) (bool, error) {
	opts := entity.WaitOptions{Timeout: c.timeout, VisibleRequired: true}

	for _, ref := range []entity.ElementRef{c.elements.Reschedule, c.elements.Confirm} {
		el, err := c.locator.Resolve(ctx, ref, session, opts)
		if err != nil {
			return false, err
		}

		if err := c.interactor.Click(ctx, el, c.timeout); err != nil {
			return false, err
		}
	}

	c.logger.Info("Booking confirmed")

	return true, nil
}
