package google

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"google.golang.org/api/googleapi"

	"github.com/custodia-labs/vecsync/internal/core/domain"
)

func TestWrapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{
			name: "nil stays nil",
			err:  nil,
			want: nil,
		},
		{
			name: "401 maps to expired auth",
			err:  &googleapi.Error{Code: http.StatusUnauthorized, Message: "invalid credentials"},
			want: domain.ErrAuthExpired,
		},
		{
			name: "429 maps to rate limited",
			err:  &googleapi.Error{Code: http.StatusTooManyRequests, Message: "slow down"},
			want: domain.ErrRateLimited,
		},
		{
			name: "403 with rate limit reason maps to rate limited",
			err: &googleapi.Error{
				Code:    http.StatusForbidden,
				Message: "quota exceeded",
				Errors: []googleapi.ErrorItem{
					{Reason: "userRateLimitExceeded", Message: "quota exceeded"},
				},
			},
			want: domain.ErrRateLimited,
		},
		{
			name: "plain 403 maps to validation failure",
			err:  &googleapi.Error{Code: http.StatusForbidden, Message: "access denied"},
			want: domain.ErrConnectorValidation,
		},
		{
			name: "404 maps to not found",
			err:  &googleapi.Error{Code: http.StatusNotFound, Message: "file gone"},
			want: domain.ErrNotFound,
		},
		{
			name: "500 maps to transient",
			err:  &googleapi.Error{Code: http.StatusInternalServerError, Message: "backend error"},
			want: domain.ErrTransient,
		},
		{
			name: "503 maps to transient",
			err:  &googleapi.Error{Code: http.StatusServiceUnavailable, Message: "unavailable"},
			want: domain.ErrTransient,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WrapError(tt.err)
			if tt.want == nil {
				assert.NoError(t, got)
				return
			}
			assert.ErrorIs(t, got, tt.want)
		})
	}

	t.Run("other api codes pass through", func(t *testing.T) {
		original := &googleapi.Error{Code: http.StatusBadRequest, Message: "bad query"}

		assert.Equal(t, error(original), WrapError(original))
	})

	t.Run("non-api errors pass through", func(t *testing.T) {
		original := errors.New("connection refused")

		assert.Equal(t, original, WrapError(original))
	})

	t.Run("unwraps a wrapped api error", func(t *testing.T) {
		wrapped := fmt.Errorf("list folder: %w",
			&googleapi.Error{Code: http.StatusUnauthorized, Message: "expired"})

		assert.ErrorIs(t, WrapError(wrapped), domain.ErrAuthExpired)
	})
}

func TestRetryAfter(t *testing.T) {
	t.Run("parses retry-after seconds", func(t *testing.T) {
		err := &googleapi.Error{
			Code:   http.StatusTooManyRequests,
			Header: http.Header{"Retry-After": []string{"30"}},
		}

		assert.Equal(t, 30*time.Second, RetryAfter(err))
	})

	t.Run("zero without header", func(t *testing.T) {
		err := &googleapi.Error{Code: http.StatusTooManyRequests}

		assert.Zero(t, RetryAfter(err))
	})

	t.Run("zero for unparseable values", func(t *testing.T) {
		err := &googleapi.Error{
			Code:   http.StatusTooManyRequests,
			Header: http.Header{"Retry-After": []string{"Wed, 21 Oct 2026 07:28:00 GMT"}},
		}

		assert.Zero(t, RetryAfter(err))
	})

	t.Run("zero for non-api errors", func(t *testing.T) {
		assert.Zero(t, RetryAfter(errors.New("boom")))
	})
}
