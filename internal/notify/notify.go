package notify

import (
	"appointment-agent/internal/config"
	"appointment-agent/internal/ports"
	"appointment-agent/pkg/apperr"
	"appointment-agent/pkg/logg"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	serviceName  = "Notifier"
	notifyTracer = "notify.pushover"
)

type pushoverMessage struct {
	Token   string `json:"token"`
	User    string `json:"user"`
	Message string `json:"message"`
}

// Service logs every message and, when a user token is configured, pushes it through Pushover.
// Delivery runs in the background and its failures are only logged.
type Service struct {
	logger    *zap.Logger
	client    *resty.Client
	appToken  string
	userToken string
	endpoint  string
	timeout   time.Duration
	wg        sync.WaitGroup
}

var _ ports.Notifier = (*Service)(nil)

type Params struct {
	fx.In

	Config *config.Config
	Logger *zap.Logger
}

func New(params Params) *Service {
	nc := params.Config.NotifyConfig

	client := resty.New().
		SetTimeout(nc.Timeout).
		SetHeader("Content-Type", "application/json")
	InstrumentResty(client, notifyTracer)

	return &Service{
		logger:    params.Logger.With(zap.String(logg.Layer, serviceName)),
		client:    client,
		appToken:  nc.AppToken,
		userToken: nc.UserToken,
		endpoint:  nc.Endpoint,
		timeout:   nc.Timeout,
	}
}

func (s *Service) Notify(ctx context.Context, msg string) {
	const op = "Notify"
	logger := s.logger.With(zap.String(logg.Operation, op))

	logger.Info(msg)

	if s.userToken == "" {
		return
	}

	// Delivery must outlive a supervisor that returns right after claiming.
	sendCtx := context.WithoutCancel(ctx)

	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		if err := s.send(sendCtx, msg); err != nil {
			logger.Error("Failed to deliver notification", zap.Error(err))

			return
		}

		logger.Debug("Notification delivered")
	}()
}

func (s *Service) send(ctx context.Context, msg string) error {
	const op = "send"

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(pushoverMessage{
			Token:   s.appToken,
			User:    s.userToken,
			Message: msg,
		}).
		Post(s.endpoint)
	if err != nil {
		return apperr.Wrap(op, apperr.CodeNotificationFailed, err, map[string]any{
			apperr.MetaStage: apperr.StageNotification,
			apperr.MetaURL:   s.endpoint,
		})
	}

	if resp.IsError() {
		return apperr.Wrap(op, apperr.CodeNotificationFailed,
			fmt.Errorf("unexpected status %d: %s", resp.StatusCode(), resp.String()),
			map[string]any{
				apperr.MetaReason: "bad_status",
				apperr.MetaStage:  apperr.StageNotification,
				apperr.MetaURL:    s.endpoint,
			})
	}

	return nil
}

// Close waits for in-flight deliveries, or for ctx to end.
func (s *Service) Close(ctx context.Context) error {
	done := make(chan struct{})

	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return apperr.Wrap("Close", apperr.CodeTimeout, ctx.Err(), map[string]any{
			apperr.MetaReason: "pending_deliveries",
			apperr.MetaStage:  apperr.StageNotification,
		})
	}
}
