package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCodeOf(t *testing.T) {
	base := errors.New("boom")
	err := Wrap("Resolve", CodeNotFound, Wrap("WaitUntil", CodeTimeout, base, nil), nil)

	require.Equal(t, CodeNotFound, CodeOf(err))
	require.Equal(t, "", CodeOf(base))
	require.Equal(t, CodeTimeout, CodeOf(fmt.Errorf("outer: %w", Wrap("x", CodeTimeout, base, nil))))
}

func TestHasCode(t *testing.T) {
	base := errors.New("boom")
	err := Wrap("Resolve", CodeNotFound, fmt.Errorf("chain: %w", Wrap("WaitUntil", CodeTimeout, base, nil)), nil)

	require.True(t, HasCode(err, CodeNotFound))
	require.True(t, HasCode(err, CodeTimeout))
	require.False(t, HasCode(err, CodeNavigationFailed))
	require.False(t, HasCode(nil, CodeTimeout))
	require.ErrorIs(t, err, base)
}

func TestWrapErrorWithReason(t *testing.T) {
	err := WrapErrorWithReason("Run", CodeInternal, "no_session")

	var appErr *Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "no_session", appErr.Metadata[MetaReason])
	require.Equal(t, "Run: no_session", err.Error())
}
