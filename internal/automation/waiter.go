package automation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"appointment-agent/pkg/apperr"
)

// DefaultPollInterval is the pause between two predicate evaluations.
const DefaultPollInterval = 100 * time.Millisecond

// Predicate is a condition evaluated against live page state.
type Predicate func(ctx context.Context) (bool, error)

type pollResult struct {
	ok  bool
	err error
}

// Poll evaluates predicate until it reports true or timeout elapses. The deadline is measured
// from the call, so an evaluation still in flight when it passes is abandoned. Evaluations never
// overlap. A predicate error counts as "not yet"; the last one is attached to the timeout error.
// A panicking predicate is reported as a CodePanic error instead of crashing the process.
func Poll(ctx context.Context, interval, timeout time.Duration, predicate Predicate) error {
	_, err := poll(ctx, interval, timeout, predicate, nil)

	return err
}

// poll waits for prior to finish before its first evaluation, all within the deadline. When it
// gives up with an evaluation still running, it returns a channel closed once that evaluation ends.
func poll(
	ctx context.Context,
	interval, timeout time.Duration,
	predicate Predicate,
	prior <-chan struct{},
) (<-chan struct{}, error) {
	const op = "Poll"

	if timeout <= 0 {
		return prior, apperr.InvalidReqError(op, "timeout", errors.New("timeout must be positive"))
	}

	if interval <= 0 {
		interval = DefaultPollInterval
	}

	if err := ctx.Err(); err != nil {
		return prior, cancelled(op, err)
	}

	evalCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	if prior != nil {
		select {
		case <-prior:
		case <-deadline.C:
			return prior, timedOut(op, timeout, errors.New("previous evaluation still running"))
		case <-ctx.Done():
			return prior, cancelled(op, ctx.Err())
		}
	}

	var lastErr error

	for {
		results := make(chan pollResult, 1)
		finished := make(chan struct{})

		go func() {
			defer close(finished)
			defer func() {
				if r := recover(); r != nil {
					results <- pollResult{err: apperr.Wrap(op, apperr.CodePanic, fmt.Errorf("%v", r), map[string]any{
						apperr.MetaReason: "predicate_panicked",
						apperr.MetaStage:  apperr.StageWait,
					})}
				}
			}()

			ok, err := predicate(evalCtx)
			results <- pollResult{ok: ok, err: err}
		}()

		select {
		case r := <-results:
			if r.err != nil {
				lastErr = r.err
			} else if r.ok {
				return nil, nil
			}
		case <-deadline.C:
			return finished, timedOut(op, timeout, lastErr)
		case <-ctx.Done():
			return finished, cancelled(op, ctx.Err())
		}

		pause := time.NewTimer(interval)

		select {
		case <-pause.C:
		case <-deadline.C:
			pause.Stop()

			return nil, timedOut(op, timeout, lastErr)
		case <-ctx.Done():
			pause.Stop()

			return nil, cancelled(op, ctx.Err())
		}
	}
}

func timedOut(op string, timeout time.Duration, lastErr error) error {
	err := fmt.Errorf("condition not met within %s", timeout)
	if lastErr != nil {
		err = fmt.Errorf("condition not met within %s: %w", timeout, lastErr)
	}

	return apperr.Wrap(op, apperr.CodeTimeout, err, map[string]any{
		apperr.MetaReason:  "timed_out",
		apperr.MetaStage:   apperr.StageWait,
		apperr.MetaTimeout: timeout.String(),
	})
}

func cancelled(op string, err error) error {
	return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
		apperr.MetaReason: "context_cancelled",
	})
}

// Waiter runs waits against one page. Waits are serialized, and an evaluation abandoned at a
// deadline must finish before the next wait evaluates anything, so page calls never overlap.
type Waiter struct {
	interval time.Duration

	mu          sync.Mutex
	outstanding <-chan struct{}
}

func NewWaiter(interval time.Duration) *Waiter {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	return &Waiter{interval: interval}
}

func (w *Waiter) Interval() time.Duration {
	return w.interval
}

func (w *Waiter) WaitUntil(ctx context.Context, timeout time.Duration, predicate Predicate) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	outstanding, err := poll(ctx, w.interval, timeout, predicate, w.outstanding)
	w.outstanding = outstanding

	return err
}

// Settle blocks until an evaluation abandoned by an earlier wait has returned.
func (w *Waiter) Settle(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.outstanding == nil {
		return nil
	}

	select {
	case <-w.outstanding:
		w.outstanding = nil

		return nil
	case <-ctx.Done():
		return cancelled("Settle", ctx.Err())
	}
}

// Sleep pauses for d unless ctx ends first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return cancelled("Sleep", ctx.Err())
	}
}
