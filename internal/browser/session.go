package browser

import (
	"appointment-agent/internal/ports"
	"appointment-agent/pkg/apperr"
	"appointment-agent/pkg/logg"
	"appointment-agent/pkg/tracing"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type session struct {
	id                uuid.UUID
	logger            *zap.Logger
	tracer            trace.Tracer
	browser           playwright.Browser
	context           playwright.BrowserContext
	page              playwright.Page
	navigationTimeout time.Duration
}

var _ ports.Session = (*session)(nil)

func (s *session) Query(ctx context.Context, selector string) (ports.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	handle, err := s.page.QuerySelector(selector)
	if err != nil {
		return nil, err
	}

	return wrapHandle(handle), nil
}

func (s *session) Navigate(ctx context.Context, url string) (err error) {
	const op = "Navigate"
	logger := s.logger.With(zap.String(logg.Operation, op), zap.String(logg.URL, url))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op, attribute.String("url", url))
	defer func() {
		step.End(err)
	}()

	if err := ctx.Err(); err != nil {
		return err
	}

	_, err = s.page.Goto(url, playwright.PageGotoOptions{
		Timeout:   playwright.Float(float64(s.navigationTimeout.Milliseconds())),
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})
	if err != nil {
		return apperr.Wrap(op, apperr.CodeNavigationFailed, err, map[string]any{
			apperr.MetaReason: "goto_failed",
			apperr.MetaStage:  apperr.StageNavigation,
			apperr.MetaURL:    url,
		})
	}

	step.AddEvent("navigation completed")

	return nil
}

func (s *session) ExpectNavigation(ctx context.Context, action func() error) (err error) {
	const op = "ExpectNavigation"
	logger := s.logger.With(zap.String(logg.Operation, op))

	_, step := tracing.StartSpan(ctx, s.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	_, err = s.page.ExpectNavigation(action, playwright.PageExpectNavigationOptions{
		Timeout: playwright.Float(float64(s.navigationTimeout.Milliseconds())),
	})
	if err != nil {
		return apperr.Wrap(op, apperr.CodeNavigationFailed, err, map[string]any{
			apperr.MetaReason: "navigation_not_completed",
			apperr.MetaStage:  apperr.StageNavigation,
		})
	}

	return nil
}

// FetchBody loads url in the page so the request carries the session cookies.
func (s *session) FetchBody(ctx context.Context, url string) (body []byte, err error) {
	const op = "FetchBody"
	logger := s.logger.With(zap.String(logg.Operation, op), zap.String(logg.URL, url))

	_, step := tracing.StartSpan(ctx, s.tracer, logger, op, attribute.String("url", url))
	defer func() {
		step.End(err)
	}()

	resp, err := s.page.Goto(url, playwright.PageGotoOptions{
		Timeout: playwright.Float(float64(s.navigationTimeout.Milliseconds())),
	})
	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodeNavigationFailed, err, map[string]any{
			apperr.MetaReason: "goto_failed",
			apperr.MetaStage:  apperr.StageNavigation,
			apperr.MetaURL:    url,
		})
	}

	if resp == nil {
		return nil, apperr.WrapErrorWithReason(op, apperr.CodeNavigationFailed, "empty_response")
	}

	if !resp.Ok() {
		return nil, apperr.Wrap(op, apperr.CodeNavigationFailed, fmt.Errorf("unexpected status %d", resp.Status()), map[string]any{
			apperr.MetaReason: "bad_status",
			apperr.MetaURL:    url,
		})
	}

	body, err = resp.Body()
	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodeNavigationFailed, err, map[string]any{
			apperr.MetaReason: "read_body_failed",
			apperr.MetaURL:    url,
		})
	}

	return body, nil
}

func (s *session) KeyDown(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.page.Keyboard().Down(key)
}

func (s *session) KeyUp(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.page.Keyboard().Up(key)
}

// Close releases the page, its context and the browser. Every step is attempted even
// when an earlier one fails.
func (s *session) Close(ctx context.Context) (err error) {
	const op = "Close"
	logger := s.logger.With(zap.String(logg.Operation, op))

	_, step := tracing.StartSpan(ctx, s.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	if s.page != nil && !s.page.IsClosed() {
		if err := s.page.Close(); err != nil {
			logger.Warn("Failed to close page", zap.Error(err))
		}
	}

	if s.context != nil {
		if err := s.context.Close(); err != nil {
			logger.Warn("Failed to close context", zap.Error(err))
		}
	}

	if s.browser != nil {
		if err = s.browser.Close(); err != nil {
			return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
				apperr.MetaReason: "browser_close_failed",
				apperr.MetaStage:  apperr.StageSession,
			})
		}
	}

	logger.Debug("Session closed")

	return nil
}
