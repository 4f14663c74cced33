package usecase

import (
	"context"
	"errors"
	"time"

	"appointment-agent/internal/entity"
)

type Class int

const (
	Retryable Class = iota
	Fatal
)

func (c Class) String() string {
	if c == Fatal {
		return "fatal"
	}

	return "retryable"
}

// Policy decides how long to wait before the next attempt and which errors end the loop.
type Policy interface {
	Delay(state entity.RetryState) time.Duration
	Classify(err error) Class
}

// ConstantBackoff waits the same interval after every failed attempt. Only cancellation of
// the supervisor's own context is fatal.
type ConstantBackoff struct {
	Interval time.Duration
}

func (b ConstantBackoff) Delay(entity.RetryState) time.Duration {
	return b.Interval
}

func (ConstantBackoff) Classify(err error) Class {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Fatal
	}

	return Retryable
}
