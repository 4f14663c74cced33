package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"appointment-agent/internal/entity"
	"appointment-agent/pkg/apperr"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type scriptedRunner struct {
	mu      sync.Mutex
	calls   int
	results []func(ctx context.Context) entity.AttemptResult
}

func (r *scriptedRunner) Run(ctx context.Context) entity.AttemptResult {
	r.mu.Lock()
	step := r.results[min(r.calls, len(r.results)-1)]
	r.calls++
	r.mu.Unlock()

	return step(ctx)
}

func (r *scriptedRunner) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.calls
}

func outcome(o entity.AttemptOutcome, err error) func(context.Context) entity.AttemptResult {
	return func(context.Context) entity.AttemptResult {
		return entity.AttemptResult{Outcome: o, Err: err}
	}
}

func claimed(date, slot string) func(context.Context) entity.AttemptResult {
	return func(context.Context) entity.AttemptResult {
		d, _ := time.Parse(entity.DateLayout, date)

		return entity.AttemptResult{Outcome: entity.OutcomeClaimed, Date: d, Time: slot}
	}
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) Notify(_ context.Context, msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.messages = append(n.messages, msg)
}

func (n *recordingNotifier) Close(context.Context) error {
	return nil
}

func (n *recordingNotifier) Messages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()

	return append([]string(nil), n.messages...)
}

func newTestSupervisor(runner *scriptedRunner, notifier *recordingNotifier, sleeper *sleepRecorder, delay time.Duration) *SupervisorService {
	params := SupervisorServiceParams{
		Logger:   zap.NewNop(),
		Runner:   runner,
		Notifier: notifier,
		Policy:   ConstantBackoff{Interval: delay},
	}
	if sleeper != nil {
		params.Sleep = sleeper.Sleep
	}

	return NewSupervisorService(params)
}

func TestSupervisorRetriesUntilClaimed(t *testing.T) {
	runner := &scriptedRunner{results: []func(context.Context) entity.AttemptResult{
		outcome(entity.OutcomeTransientError, errors.New("selector timeout")),
		outcome(entity.OutcomeNoEarlierSlot, nil),
		outcome(entity.OutcomeTransientError, errors.New("navigation failed")),
		claimed("2025-05-20", "08:00"),
	}}
	notifier := &recordingNotifier{}
	sleeper := &sleepRecorder{}

	sup := newTestSupervisor(runner, notifier, sleeper, 90*time.Second)

	require.NoError(t, sup.Run(context.Background()))
	require.Equal(t, 4, runner.Calls())
	require.Equal(t, []time.Duration{90 * time.Second, 90 * time.Second, 90 * time.Second}, sleeper.Slept())
	require.Equal(t, []string{"Found a new appointment for you: 2025-05-20 08:00 (selected, not booked)"}, notifier.Messages())

	state := sup.State()
	require.Equal(t, 4, state.AttemptCount)
	require.Equal(t, entity.OutcomeClaimed, state.LastOutcome)
	require.NoError(t, state.LastError)
}

func TestSupervisorClaimOnFirstAttempt(t *testing.T) {
	runner := &scriptedRunner{results: []func(context.Context) entity.AttemptResult{claimed("2025-05-01", "10:15")}}
	notifier := &recordingNotifier{}
	sleeper := &sleepRecorder{}

	require.NoError(t, newTestSupervisor(runner, notifier, sleeper, time.Minute).Run(context.Background()))
	require.Equal(t, 1, runner.Calls())
	require.Empty(t, sleeper.Slept())
	require.Len(t, notifier.Messages(), 1)
}

func TestSupervisorCancelledDuringAttempt(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := &scriptedRunner{results: []func(context.Context) entity.AttemptResult{
		outcome(entity.OutcomeNoEarlierSlot, nil),
		func(ctx context.Context) entity.AttemptResult {
			cancel()

			return entity.AttemptResult{Outcome: entity.OutcomeTransientError, Err: ctx.Err()}
		},
		claimed("2025-05-20", "08:00"),
	}}
	notifier := &recordingNotifier{}

	err := newTestSupervisor(runner, notifier, &sleepRecorder{}, time.Second).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 2, runner.Calls())
	require.Empty(t, notifier.Messages())
}

func TestSupervisorCancelledDuringDelay(t *testing.T) {
	runner := &scriptedRunner{results: []func(context.Context) entity.AttemptResult{
		outcome(entity.OutcomeNoEarlierSlot, nil),
	}}

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	err := newTestSupervisor(runner, &recordingNotifier{}, nil, time.Hour).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, apperr.CodeInternal, apperr.CodeOf(err))
	require.Equal(t, 1, runner.Calls())
}

func TestSupervisorStop(t *testing.T) {
	var sup *SupervisorService

	runner := &scriptedRunner{results: []func(context.Context) entity.AttemptResult{
		func(context.Context) entity.AttemptResult {
			sup.Stop()

			return entity.AttemptResult{Outcome: entity.OutcomeNoEarlierSlot}
		},
	}}
	sup = newTestSupervisor(runner, &recordingNotifier{}, nil, time.Hour)

	done := make(chan error, 1)
	go func() {
		done <- sup.Run(context.Background())
	}()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("supervisor did not stop")
	}

	require.Equal(t, 1, runner.Calls())
	require.NotPanics(t, sup.Stop)
}

func TestSupervisorRecoversRunnerPanic(t *testing.T) {
	runner := &scriptedRunner{results: []func(context.Context) entity.AttemptResult{
		func(context.Context) entity.AttemptResult {
			panic("nil element")
		},
		claimed("2025-05-20", "08:00"),
	}}
	sleeper := &sleepRecorder{}

	sup := newTestSupervisor(runner, &recordingNotifier{}, sleeper, time.Second)

	require.NoError(t, sup.Run(context.Background()))
	require.Equal(t, 2, runner.Calls())
	require.Equal(t, []time.Duration{time.Second}, sleeper.Slept())
}

func TestSupervisorWithScenario(t *testing.T) {
	sc := testScenarioContext()
	f := newScenarioFixture(&bookingSite{
		readBacks: []string{"2025-07-10", "2025-05-20"},
		timeSlots: []string{"08:00", "08:15"},
	}, sc, false)

	notifier := &recordingNotifier{}
	sleeper := &sleepRecorder{}

	sup := NewSupervisorService(SupervisorServiceParams{
		Logger:   zap.NewNop(),
		Runner:   f.svc,
		Notifier: notifier,
		Policy:   ConstantBackoff{Interval: 90 * time.Second},
		Sleep:    sleeper.Sleep,
	})

	require.NoError(t, sup.Run(context.Background()))

	pages := f.driver.Pages()
	require.Len(t, pages, 2)
	for _, page := range pages {
		require.Equal(t, 1, page.Closed())
	}

	require.Equal(t, []time.Duration{90 * time.Second}, sleeper.Slept())
	require.Equal(t, []string{"Found a new appointment for you: 2025-05-20 08:00 (selected, not booked)"}, notifier.Messages())
}

func TestConstantBackoff(t *testing.T) {
	policy := ConstantBackoff{Interval: 30 * time.Second}

	require.Equal(t, 30*time.Second, policy.Delay(entity.RetryState{AttemptCount: 7}))
	require.Equal(t, Retryable, policy.Classify(errors.New("element not found")))
	require.Equal(t, Retryable, policy.Classify(nil))
	require.Equal(t, Fatal, policy.Classify(apperr.Wrap("Poll", apperr.CodeInternal, context.Canceled, nil)))
}

func TestClaimMessage(t *testing.T) {
	date := time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC)

	require.Equal(t, "Found a new appointment for you: 2025-05-20 08:00 (booked)",
		ClaimMessage(entity.AttemptResult{Date: date, Time: "08:00", Confirmed: true}))
}
