package adapters

import (
	"appointment-agent/internal/entity"
	"context"
)

type ScenarioService interface {
	Run(ctx context.Context) entity.AttemptResult
}

type SupervisorService interface {
	Run(ctx context.Context) error
	Stop()
	State() entity.RetryState
}

type DriverService interface {
	Launch(ctx context.Context) error
	Close(ctx context.Context) error
	IsReady() bool
}

type NotifierService interface {
	Close(ctx context.Context) error
}
