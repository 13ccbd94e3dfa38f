package apierrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAPIErrorKind(t *testing.T) {
	tests := []struct {
		status int
		want   Kind
	}{
		{http.StatusBadRequest, KindInvalid},
		{http.StatusConflict, KindInvalid},
		{http.StatusUnauthorized, KindUnauthorized},
		{http.StatusForbidden, KindPermission},
		{http.StatusNotFound, KindNotFound},
		{http.StatusTooManyRequests, KindRateLimited},
		{http.StatusBadGateway, KindServer},
		{http.StatusTeapot, KindUnknown},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, NewAPIError(tt.status, "x", "").Kind())
		})
	}
}

func TestUserMessage(t *testing.T) {
	t.Run("server reason is verbatim", func(t *testing.T) {
		err := fmt.Errorf("update status: %w", NewAPIError(http.StatusForbidden, "Only the assignee may change status", ""))
		assert.Equal(t, "Only the assignee may change status", UserMessage(err))
	})

	t.Run("network failure is generic", func(t *testing.T) {
		err := &NetworkError{Operation: "PATCH", URL: "http://x", Err: errors.New("connection refused")}
		assert.Equal(t, MsgNetwork, UserMessage(err))
	})

	t.Run("rate limit uses retry-after", func(t *testing.T) {
		err := NewAPIError(http.StatusTooManyRequests, "slow down", "")
		err.RetryAfter = "12"
		assert.Equal(t, "Rate limit exceeded. Please try again in 12 seconds.", UserMessage(err))
	})

	t.Run("empty reason falls back", func(t *testing.T) {
		assert.Equal(t, MsgUnexpected, UserMessage(NewAPIError(http.StatusInternalServerError, "", "")))
	})

	t.Run("local errors use their own text", func(t *testing.T) {
		assert.Equal(t, "boom", UserMessage(errors.New("boom")))
		assert.Equal(t, "", UserMessage(nil))
	})
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(&NetworkError{Err: errors.New("eof")}))
	assert.True(t, Retryable(NewAPIError(http.StatusServiceUnavailable, "down", "")))
	assert.False(t, Retryable(NewAPIError(http.StatusForbidden, "no", "")))
	assert.False(t, Retryable(NewAPIError(http.StatusBadRequest, "bad transition", "")))
	assert.False(t, Retryable(ErrSessionExpired))
}

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("outer: %w", fmt.Errorf("inner: %w", NewAPIError(http.StatusNotFound, "gone", "")))
	assert.True(t, IsNotFound(err))
	assert.False(t, IsPermission(err))
	assert.Equal(t, "not_found", KindOf(err).String())
	assert.Equal(t, KindUnauthorized, KindOf(ErrSessionExpired))
}
