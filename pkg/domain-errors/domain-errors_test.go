package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMessage(t *testing.T) {
	err := New(CodeRateLimited, "too many attempts")
	assert.Equal(t, "too many attempts", err.Error())

	bare := New(CodeInternal, "")
	assert.Equal(t, "internal_error", bare.Error())
}

func TestIsMatchesByCode(t *testing.T) {
	err := New(CodeLockedOut, "locked").WithRetryAfter(300)
	assert.True(t, errors.Is(err, New(CodeLockedOut, "")))
	assert.False(t, errors.Is(err, New(CodeRateLimited, "")))
}

func TestWrapPreservesDomainMetadata(t *testing.T) {
	inner := New(CodeLockedOut, "locked").WithRetryAfter(120).WithField("code").WithResetFlow()
	wrapped := Wrap(fmt.Errorf("verify: %w", inner), CodeInternal, "verify failed")

	require.Equal(t, CodeLockedOut, wrapped.Code, "inner domain code wins over wrap code")
	assert.Equal(t, 120, wrapped.RetryAfter)
	assert.Equal(t, "code", wrapped.Field)
	assert.True(t, wrapped.ResetFlow)
	assert.True(t, errors.Is(wrapped, inner))
}

func TestWrapPlainError(t *testing.T) {
	wrapped := Wrap(errors.New("pq: connection refused"), CodeInternal, "store unavailable")
	assert.Equal(t, CodeInternal, wrapped.Code)
	assert.True(t, HasCode(wrapped, CodeInternal))
	assert.False(t, HasCode(errors.New("plain"), CodeInternal))
}

func TestRetryAfterNeverNegative(t *testing.T) {
	err := New(CodeRateLimited, "").WithRetryAfter(-5)
	assert.Equal(t, 0, err.RetryAfter)
}

func TestAs(t *testing.T) {
	inner := New(CodeNotFound, "no account").WithField("email")
	got, ok := As(fmt.Errorf("lookup: %w", inner))
	require.True(t, ok)
	assert.Equal(t, "email", got.Field)

	_, ok = As(errors.New("plain"))
	assert.False(t, ok)
}
