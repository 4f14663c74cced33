package automation

import (
	"context"
	"time"

	"appointment-agent/internal/ports"
	"appointment-agent/pkg/apperr"
)

type ViewportGuard struct {
	waiter *Waiter
}

func NewViewportGuard(waiter *Waiter) *ViewportGuard {
	return &ViewportGuard{waiter: waiter}
}

// EnsureVisible waits for el to be attached, then scrolls it to the centre of the viewport
// if it is not already intersecting it.
func (g *ViewportGuard) EnsureVisible(ctx context.Context, el ports.Element, timeout time.Duration) error {
	const op = "EnsureVisible"

	if err := g.waiter.WaitUntil(ctx, timeout, el.IsConnected); err != nil {
		return apperr.Wrap(op, apperr.CodeOf(err), err, map[string]any{
			apperr.MetaReason: "not_connected",
			apperr.MetaStage:  apperr.StageWait,
		})
	}

	inView, err := el.IsIntersectingViewport(ctx)
	if err != nil {
		return apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason: "intersection_check_failed",
			apperr.MetaStage:  apperr.StageInteraction,
		})
	}

	if inView {
		return nil
	}

	if err := el.ScrollIntoCenter(ctx); err != nil {
		return apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason: "scroll_failed",
			apperr.MetaStage:  apperr.StageInteraction,
		})
	}

	if err := g.waiter.WaitUntil(ctx, timeout, el.IsIntersectingViewport); err != nil {
		return apperr.Wrap(op, apperr.CodeOf(err), err, map[string]any{
			apperr.MetaReason: "not_in_viewport",
			apperr.MetaStage:  apperr.StageWait,
		})
	}

	return nil
}
