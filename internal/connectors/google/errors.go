// Package google provides shared infrastructure for Google API
// connectors: building authenticated clients from stored credentials
// and mapping API failures onto domain errors.
package google

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"google.golang.org/api/googleapi"

	"github.com/custodia-labs/vecsync/internal/core/domain"
)

// WrapError maps a Google API error onto the pipeline's domain errors
// so retry and failure handling treat every provider the same way:
// 401 means credentials are bad, 403 is permissions or quota, 404 the
// resource is gone, 429 and 5xx are retryable.
func WrapError(err error) error {
	if err == nil {
		return nil
	}
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return err
	}

	switch {
	case gerr.Code == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", domain.ErrAuthExpired, gerr.Message)
	case gerr.Code == http.StatusTooManyRequests || isRateLimitedForbidden(gerr):
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, gerr.Message)
	case gerr.Code == http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrConnectorValidation, gerr.Message)
	case gerr.Code == http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, gerr.Message)
	case gerr.Code >= http.StatusInternalServerError:
		return fmt.Errorf("%w: google api %d: %s", domain.ErrTransient, gerr.Code, gerr.Message)
	default:
		return err
	}
}

// isRateLimitedForbidden reports whether a 403 is actually quota
// exhaustion. Drive signals per-user rate limits with 403 plus a
// rate-limit reason rather than a 429.
func isRateLimitedForbidden(gerr *googleapi.Error) bool {
	if gerr.Code != http.StatusForbidden {
		return false
	}
	for _, item := range gerr.Errors {
		switch item.Reason {
		case "rateLimitExceeded", "userRateLimitExceeded", "dailyLimitExceeded":
			return true
		}
	}
	return false
}

// RetryAfter extracts a provider-imposed backoff from the error's
// Retry-After header. Returns zero when the error carries none.
func RetryAfter(err error) time.Duration {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return 0
	}
	header := gerr.Header.Get("Retry-After")
	if header == "" {
		return 0
	}
	seconds, err2 := strconv.Atoi(header)
	if err2 != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
