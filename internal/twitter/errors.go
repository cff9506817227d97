package twitter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/twigate/twigate/internal/retry"
)

// APIError is a failure reported by the remote service, carrying the HTTP
// status and, when present, the Twitter error code and message.
type APIError struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("twitter: %s (code %d, status %d)", e.Message, e.Code, e.StatusCode)
	}
	return fmt.Sprintf("twitter: %s (status %d)", e.Message, e.StatusCode)
}

func apiErrorFrom(statusCode int, body []byte) error {
	apiErr := &APIError{StatusCode: statusCode, Message: http.StatusText(statusCode)}
	var payload struct {
		Errors []struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"errors"`
	}
	if json.Unmarshal(body, &payload) == nil && len(payload.Errors) > 0 {
		apiErr.Code = payload.Errors[0].Code
		apiErr.Message = payload.Errors[0].Message
	}
	return apiErr
}

// Error codes that mean the session is no longer valid and a fresh login
// is required.
var authExpiredCodes = map[int]bool{
	32:  true, // could not authenticate you
	64:  true, // account suspended / locked
	215: true, // bad authentication data
	326: true, // account temporarily locked
	353: true, // missing csrf token cookie
}

// Transient remote-side conditions worth another attempt.
var transientCodes = map[int]bool{
	88:  true, // rate limit exceeded
	130: true, // over capacity
	131: true, // internal error
}

// Classify maps a raw remote failure into the retry policy's closed
// classification. All knowledge of the remote error surface lives here.
func Classify(err error) retry.Class {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch {
		case authExpiredCodes[apiErr.Code]:
			return retry.AuthExpired
		case apiErr.StatusCode == http.StatusUnauthorized:
			return retry.AuthExpired
		case transientCodes[apiErr.Code]:
			return retry.Retryable
		case apiErr.StatusCode == http.StatusTooManyRequests:
			return retry.Retryable
		case apiErr.StatusCode >= 500:
			return retry.Retryable
		default:
			// Content rejections (duplicate, too long, bad reply target)
			// and any other 4xx: retrying cannot help.
			return retry.Fatal
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return retry.Retryable
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return retry.Retryable
	}

	return retry.Fatal
}
