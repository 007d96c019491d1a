package http

import (
	"bytes"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/analyzere/analyzere-go/faults"
	"github.com/analyzere/analyzere-go/resource"
	"github.com/analyzere/analyzere-go/server"
)

func decodeRequestResponse(response *server.Response) (resource.Value, error) {
	if len(bytes.TrimSpace(response.Body)) == 0 {
		return "", nil
	}

	value, err := resource.DecodeJSON(response.Body)
	if err != nil {
		typed := faults.NewResponseError(
			faults.ServerError,
			"unable to parse JSON response returned from server",
			response.StatusCode,
			string(response.Body),
			nil,
		)
		typed.Cause = err
		return nil, typed
	}
	return value, nil
}

// classifyStatusError maps a non-2xx response to a typed fault. The message
// comes from the "message" field of a JSON error body when there is one.
func classifyStatusError(response *server.Response, retryAfter time.Duration) error {
	body := string(response.Body)

	var payload any
	if decoded, err := resource.DecodeJSON(response.Body); err == nil {
		payload = decoded
	}

	message := ""
	if values, ok := payload.(map[string]any); ok {
		if text, isString := values["message"].(string); isString {
			message = text
		}
	}
	if message == "" {
		message = fmt.Sprintf("remote request failed with status %d: %s", response.StatusCode, summarizeBody(response.Body))
	}

	var category faults.ErrorCategory
	switch response.StatusCode {
	case http.StatusBadRequest, http.StatusNotFound, http.StatusMethodNotAllowed, http.StatusConflict:
		category = faults.InvalidRequestError
	case http.StatusUnauthorized:
		category = faults.AuthenticationError
		message = "failed to authenticate, check the configured credentials: " + message
	case http.StatusServiceUnavailable:
		category = faults.RetryAfterError
	default:
		category = faults.ServerError
	}

	typed := faults.NewResponseError(category, message, response.StatusCode, body, payload)
	typed.RetryAfter = retryAfter
	return typed
}

// parseRetryAfter reads a Retry-After value in seconds, possibly fractional,
// or as an HTTP date.
func parseRetryAfter(value string, now time.Time) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}

	if seconds, err := strconv.ParseFloat(value, 64); err == nil {
		if seconds < 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
			return 0, false
		}
		return secondsDuration(seconds), true
	}

	if at, err := http.ParseTime(value); err == nil {
		delay := at.Sub(now)
		if delay < 0 {
			delay = 0
		}
		return delay, true
	}
	return 0, false
}

// secondsDuration converts seconds to a duration, saturating at the largest
// representable duration.
func secondsDuration(seconds float64) time.Duration {
	if seconds >= maxDurationSeconds {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(seconds * float64(time.Second))
}

const maxDurationSeconds = float64(math.MaxInt64) / float64(time.Second)

func summarizeBody(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return "<empty>"
	}
	if len(trimmed) > 512 {
		return trimmed[:512] + "..."
	}
	return trimmed
}
