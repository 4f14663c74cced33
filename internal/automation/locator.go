package automation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"appointment-agent/internal/entity"
	"appointment-agent/internal/ports"
	"appointment-agent/pkg/apperr"
	"appointment-agent/pkg/logg"
	"appointment-agent/pkg/tracing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	locatorName   = "Locator"
	locatorTracer = "automation.locator"
)

// Strategy is one way of finding an element under a root.
type Strategy interface {
	Name() string
	// Resolve returns (nil, nil) when the strategy does not match yet.
	Resolve(ctx context.Context, root ports.Querier) (ports.Element, error)
}

// ChainStrategy descends fragment by fragment, continuing inside the shadow root of every
// intermediate match that has one.
type ChainStrategy struct {
	Fragments []string
}

func (c ChainStrategy) Name() string {
	return strings.Join(c.Fragments, " >> ")
}

func (c ChainStrategy) Resolve(ctx context.Context, root ports.Querier) (ports.Element, error) {
	if len(c.Fragments) == 0 {
		return nil, errors.New("empty selector chain")
	}

	scope := root

	var el ports.Element

	for i, fragment := range c.Fragments {
		found, err := scope.Query(ctx, fragment)
		if err != nil {
			return nil, fmt.Errorf("query %q: %w", fragment, err)
		}

		if found == nil {
			return nil, nil
		}

		el = found

		if i < len(c.Fragments)-1 {
			pierced, err := found.ShadowRootOrSelf(ctx)
			if err != nil {
				return nil, fmt.Errorf("pierce %q: %w", fragment, err)
			}

			scope = pierced
		}
	}

	return el, nil
}

// Strategies turns ref's chains into strategies, preserving priority order.
func Strategies(ref entity.ElementRef) []Strategy {
	strategies := make([]Strategy, 0, len(ref.Chains))

	for _, chain := range ref.Chains {
		strategies = append(strategies, ChainStrategy{Fragments: chain})
	}

	return strategies
}

type Locator struct {
	waiter *Waiter
	logger *zap.Logger
	tracer trace.Tracer
}

func NewLocator(waiter *Waiter, logger *zap.Logger) *Locator {
	return &Locator{
		waiter: waiter,
		logger: logger.With(zap.String(logg.Layer, locatorName)),
		tracer: otel.Tracer(locatorTracer),
	}
}

// Resolve polls ref's strategies in priority order until one yields an element (visible, if
// opts asks for it) or opts.Timeout elapses. The first matching strategy wins its round.
func (l *Locator) Resolve(ctx context.Context, ref entity.ElementRef, root ports.Querier, opts entity.WaitOptions) (el ports.Element, err error) {
	const op = "Resolve"
	strategies := Strategies(ref)
	logger := l.logger.With(
		zap.String(logg.Operation, op),
		zap.String(logg.Element, ref.Name),
		zap.String(logg.Selector, describe(strategies)),
	)

	ctx, step := tracing.StartSpan(ctx, l.tracer, logger, op,
		attribute.String("element", ref.Name),
		attribute.Bool("visible_required", opts.VisibleRequired))
	defer func() {
		step.End(err)
	}()

	if len(strategies) == 0 {
		return nil, apperr.InvalidReqError(op, "chains", fmt.Errorf("element %q has no selector chains", ref.Name))
	}

	var found ports.Element

	err = l.waiter.WaitUntil(ctx, opts.Timeout, func(ctx context.Context) (bool, error) {
		match, err := firstMatch(ctx, strategies, root, opts.VisibleRequired)
		if match == nil {
			return false, err
		}

		found = match

		return true, nil
	})
	if err != nil {
		if !apperr.HasCode(err, apperr.CodeTimeout) {
			return nil, err
		}

		return nil, apperr.Wrap(op, apperr.CodeNotFound, err, map[string]any{
			apperr.MetaReason:   "element_not_found",
			apperr.MetaStage:    apperr.StageLocate,
			apperr.MetaElement:  ref.Name,
			apperr.MetaSelector: describe(strategies),
		})
	}

	step.AddEvent("element resolved")

	return found, nil
}

func firstMatch(ctx context.Context, strategies []Strategy, root ports.Querier, visibleRequired bool) (ports.Element, error) {
	var lastErr error

	for _, strategy := range strategies {
		el, err := strategy.Resolve(ctx, root)
		if err != nil {
			lastErr = err

			continue
		}

		if el == nil {
			continue
		}

		if visibleRequired {
			visible, err := el.IsVisible(ctx)
			if err != nil {
				lastErr = err

				continue
			}

			if !visible {
				continue
			}
		}

		return el, nil
	}

	return nil, lastErr
}

func describe(strategies []Strategy) string {
	names := make([]string, 0, len(strategies))
	for _, s := range strategies {
		names = append(names, s.Name())
	}

	return strings.Join(names, " | ")
}
