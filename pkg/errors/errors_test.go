package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

type detailError struct{ msg string }

func (d *detailError) Error() string { return d.msg }

func TestWith(t *testing.T) {
	base := &detailError{msg: "name 'x' has no role"}

	t.Run("both_nil", func(t *testing.T) {
		require.NoError(t, With(nil, nil))
	})

	t.Run("nil_top", func(t *testing.T) {
		require.Equal(t, error(base), With(base, nil))
	})

	t.Run("nil_base", func(t *testing.T) {
		require.Equal(t, ErrInvalidName, With(nil, ErrInvalidName))
	})

	t.Run("message_from_base_identity_from_top", func(t *testing.T) {
		err := With(base, ErrInvalidName)
		require.EqualError(t, err, "name 'x' has no role")
		require.ErrorIs(t, err, ErrInvalidName)
		require.NotErrorIs(t, err, ErrUsage)

		var detail *detailError
		require.ErrorAs(t, err, &detail)
		require.Equal(t, base, detail)
	})

	t.Run("wrapped_by_caller", func(t *testing.T) {
		err := fmt.Errorf("selecting outputs: %w", With(base, ErrInvalidName))
		require.ErrorIs(t, err, ErrInvalidName)
	})
}

func TestUsagef(t *testing.T) {
	err := Usagef("expected %d inputs, got %d", 2, 3)
	require.EqualError(t, err, "expected 2 inputs, got 3")
	require.ErrorIs(t, err, ErrUsage)
	require.ErrorIs(t, fmt.Errorf("run: %w", err), ErrUsage)

	var usage *UsageError
	require.True(t, errors.As(err, &usage))
	require.Equal(t, "expected 2 inputs, got 3", usage.Reason)
}
