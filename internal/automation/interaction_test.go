package automation

import (
	"context"
	"testing"
	"time"

	"appointment-agent/internal/browser/fakebrowser"
	"appointment-agent/pkg/apperr"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestInteractor() *Interactor {
	return NewInteractor(NewViewportGuard(NewWaiter(10*time.Millisecond)), zap.NewNop())
}

func TestSetValueNativeControlTypes(t *testing.T) {
	for controlType := range nativeTextTypes {
		t.Run(controlType, func(t *testing.T) {
			field := fakebrowser.NewNode("input", "#field").WithType(controlType)

			err := newTestInteractor().SetValue(context.Background(), field, "user@example.com", time.Second)
			require.NoError(t, err)
			require.Equal(t, "user@example.com", field.CurrentValue())
			require.Equal(t, []string{"user@example.com"}, field.Typed())
			require.Equal(t, []string{"input", "change"}, field.Events())
			require.Zero(t, field.Focuses())
		})
	}
}

func TestSetValueCustomControl(t *testing.T) {
	field := fakebrowser.NewNode("x-date-field", "x-date-field").WithType("")

	err := newTestInteractor().SetValue(context.Background(), field, "2025-06-01", time.Second)
	require.NoError(t, err)
	require.Equal(t, "2025-06-01", field.CurrentValue())
	require.Empty(t, field.Typed())
	require.Equal(t, 1, field.Focuses())
	require.Equal(t, []string{"input", "change"}, field.Events())
}

func TestSetValueScrollsIntoView(t *testing.T) {
	field := fakebrowser.NewNode("input", "#user_password").WithType("password").OffScreen(true)

	err := newTestInteractor().SetValue(context.Background(), field, "secret", time.Second)
	require.NoError(t, err)
	require.Equal(t, 1, field.Scrolls())
	require.Equal(t, "secret", field.CurrentValue())
}

func TestClickRequiresViewport(t *testing.T) {
	button := fakebrowser.NewNode("input", "#submit").OffScreen(false)

	err := newTestInteractor().Click(context.Background(), button, 60*time.Millisecond)
	require.Equal(t, apperr.CodeTimeout, apperr.CodeOf(err))
	require.Zero(t, button.Clicks())
}

func TestIsNativeTextControl(t *testing.T) {
	require.True(t, IsNativeTextControl("select-one"))
	require.False(t, IsNativeTextControl("checkbox"))
	require.False(t, IsNativeTextControl("select-multiple"))
}
