package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"appointment-agent/internal/config"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newTestService(t *testing.T, endpoint, userToken string) (*Service, *observer.ObservedLogs) {
	t.Helper()

	core, logs := observer.New(zap.DebugLevel)

	svc := New(Params{
		Config: &config.Config{NotifyConfig: &config.NotifyConfig{
			UserToken: userToken,
			AppToken:  "app-token",
			Endpoint:  endpoint,
			Timeout:   2 * time.Second,
		}},
		Logger: zap.New(core),
	})

	return svc, logs
}

func TestNotifyPostsToPushover(t *testing.T) {
	var (
		mu       sync.Mutex
		received []pushoverMessage
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var msg pushoverMessage
		require.NoError(t, json.NewDecoder(r.Body).Decode(&msg))

		mu.Lock()
		received = append(received, msg)
		mu.Unlock()

		_, _ = w.Write([]byte(`{"status":1}`))
	}))
	defer server.Close()

	svc, logs := newTestService(t, server.URL, "user-token")

	svc.Notify(context.Background(), "Found a new appointment for you: 2025-05-20 08:00")
	require.NoError(t, svc.Close(context.Background()))

	mu.Lock()
	defer mu.Unlock()

	require.Equal(t, []pushoverMessage{{
		Token:   "app-token",
		User:    "user-token",
		Message: "Found a new appointment for you: 2025-05-20 08:00",
	}}, received)
	require.Equal(t, 1, logs.FilterMessage("Found a new appointment for you: 2025-05-20 08:00").Len())
	require.Equal(t, 1, logs.FilterMessage("Notification delivered").Len())
}

func TestNotifyWithoutUserTokenOnlyLogs(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		calls++
	}))
	defer server.Close()

	svc, logs := newTestService(t, server.URL, "")

	svc.Notify(context.Background(), "hello")
	require.NoError(t, svc.Close(context.Background()))

	require.Zero(t, calls)
	require.Equal(t, 1, logs.FilterMessage("hello").Len())
}

func TestNotifyDeliveryFailureIsLogged(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"user":"invalid","status":0}`))
	}))
	defer server.Close()

	svc, logs := newTestService(t, server.URL, "user-token")

	svc.Notify(context.Background(), "hello")
	require.NoError(t, svc.Close(context.Background()))

	failures := logs.FilterMessage("Failed to deliver notification").All()
	require.Len(t, failures, 1)
	require.Contains(t, failures[0].ContextMap()["error"], "unexpected status 400")
}

func TestNotifySurvivesCancelledContext(t *testing.T) {
	delivered := make(chan struct{}, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		delivered <- struct{}{}
	}))
	defer server.Close()

	svc, _ := newTestService(t, server.URL, "user-token")

	ctx, cancel := context.WithCancel(context.Background())
	svc.Notify(ctx, "hello")
	cancel()

	require.NoError(t, svc.Close(context.Background()))
	require.Len(t, delivered, 1)
}

func TestCloseHonoursContext(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	svc, _ := newTestService(t, server.URL, "user-token")
	svc.Notify(context.Background(), "hello")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	require.ErrorIs(t, svc.Close(ctx), context.DeadlineExceeded)
}
