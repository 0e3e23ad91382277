package google

import (
	"context"
	"errors"
	"net"
	"syscall"

	"google.golang.org/api/googleapi"
)

// ErrorClass is the closed classification of provider/transport failures,
// decided once at the adapter boundary.
type ErrorClass int

const (
	ClassTerminal ErrorClass = iota
	ClassRetryable
)

// retryableReasons are the provider quota signals worth retrying.
var retryableReasons = map[string]bool{
	"rateLimitExceeded":     true,
	"userRateLimitExceeded": true,
	"backendError":          true,
}

// Classify maps an error from a calendar call into a retry class. Network
// timeouts/resets/refusals and provider quota signals are retryable;
// everything unrecognized is terminal.
func Classify(err error) ErrorClass {
	if err == nil {
		return ClassTerminal
	}

	if errors.Is(err, ErrInvalidResponse) {
		return ClassTerminal
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case 429, 500, 502, 503:
			return ClassRetryable
		}
		for _, item := range gerr.Errors {
			if retryableReasons[item.Reason] {
				return ClassRetryable
			}
		}
		return ClassTerminal
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ClassRetryable
	}

	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return ClassRetryable
	}

	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) {
		return ClassRetryable
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ClassRetryable
	}

	return ClassTerminal
}

// Retryable reports whether the error belongs to the retryable class.
func Retryable(err error) bool {
	return Classify(err) == ClassRetryable
}
