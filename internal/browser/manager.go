package browser

import (
	"appointment-agent/internal/config"
	"appointment-agent/internal/entity"
	"appointment-agent/internal/ports"
	"appointment-agent/pkg/apperr"
	"appointment-agent/pkg/logg"
	"appointment-agent/pkg/tracing"
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	browserManagerName = "BrowserManager"
	browserTracer      = "browser.manager"
	userAgent          = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"
)

// Manager owns the playwright driver process. Every session it hands out runs in its own
// browser, so no cookies or storage survive from one attempt to the next.
type Manager struct {
	config     *config.Config
	logger     *zap.Logger
	tracer     trace.Tracer
	playwright *playwright.Playwright

	mu    sync.Mutex
	ready bool
}

var _ ports.Driver = (*Manager)(nil)

type Params struct {
	fx.In

	Config *config.Config
	Logger *zap.Logger
}

func NewManager(params Params) *Manager {
	return &Manager{
		config: params.Config,
		logger: params.Logger.With(zap.String(logg.Layer, browserManagerName)),
		tracer: otel.Tracer(browserTracer),
		ready:  false,
	}
}

func (m *Manager) Launch(ctx context.Context) (err error) {
	const op = "Launch"
	logger := m.logger.With(zap.String(logg.Operation, op))

	_, step := tracing.StartSpan(ctx, m.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ready {
		return nil
	}

	logger.Info("Starting playwright driver...")

	if !m.config.BrowserConfig.SkipInstall {
		step.AddEvent("installing playwright")

		if err = playwright.Install(); err != nil {
			return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
				apperr.MetaReason: "playwright_install_failed",
				apperr.MetaStage:  apperr.StageBrowser,
			})
		}
	}

	step.AddEvent("starting playwright")

	pw, err := playwright.Run()
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "playwright_start_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}

	m.playwright = pw
	m.ready = true

	logger.Info("Playwright driver started")

	return nil
}

// NewSession launches a fresh browser with a single page configured from opts.
func (m *Manager) NewSession(ctx context.Context, opts entity.SessionOptions) (s ports.Session, err error) {
	const op = "NewSession"
	logger := m.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op,
		attribute.Int("viewport_width", opts.ViewportWidth),
		attribute.Int("viewport_height", opts.ViewportHeight))
	defer func() {
		step.End(err)
	}()

	m.mu.Lock()
	pw, ready := m.playwright, m.ready
	m.mu.Unlock()

	if !ready {
		return nil, apperr.WrapErrorWithReason(op, apperr.CodeBrowserNotReady, "browser_not_ready")
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bc := m.config.BrowserConfig

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(bc.Headless),
		SlowMo:   playwright.Float(float64(bc.SlowMo)),
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--disable-dev-shm-usage",
		},
	})
	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "browser_launch_failed",
			apperr.MetaStage:  apperr.StageSession,
		})
	}

	browserContext, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  opts.ViewportWidth,
			Height: opts.ViewportHeight,
		},
		UserAgent:         playwright.String(userAgent),
		JavaScriptEnabled: playwright.Bool(true),
	})
	if err != nil {
		_ = browser.Close()

		return nil, apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "context_create_failed",
			apperr.MetaStage:  apperr.StageSession,
		})
	}

	page, err := browserContext.NewPage()
	if err != nil {
		_ = browserContext.Close()
		_ = browser.Close()

		return nil, apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "page_create_failed",
			apperr.MetaStage:  apperr.StageSession,
		})
	}

	page.SetDefaultTimeout(float64(opts.DefaultTimeout.Milliseconds()))
	page.SetDefaultNavigationTimeout(float64(opts.NavigationTimeout.Milliseconds()))

	id := uuid.New()
	step.SetAttributes(attribute.String("session_id", id.String()))
	logger.Debug("Session opened", zap.String("session_id", id.String()))

	return &session{
		id:                id,
		logger:            m.logger.With(zap.String("session_id", id.String())),
		tracer:            m.tracer,
		browser:           browser,
		context:           browserContext,
		page:              page,
		navigationTimeout: opts.NavigationTimeout,
	}, nil
}

func (m *Manager) Close(ctx context.Context) (err error) {
	const op = "Close"
	logger := m.logger.With(zap.String(logg.Operation, op))

	_, step := tracing.StartSpan(ctx, m.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.playwright == nil {
		return nil
	}

	logger.Info("Stopping playwright driver...")

	m.ready = false

	if err := m.playwright.Stop(); err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "playwright_stop_failed",
		})
	}

	m.playwright = nil
	logger.Info("Playwright driver stopped")

	return nil
}

func (m *Manager) IsReady() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.ready
}
