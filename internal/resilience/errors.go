package resilience

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"
)

// transient is implemented by errors that know whether they are temporary,
// such as acquisition errors carrying an upstream HTTP status.
type transient interface {
	Transient() bool
}

// IsTransient reports whether err looks temporary: an error in the chain
// that says so, a network timeout, a connection reset or refusal, an
// exceeded deadline, or a common transport failure message. The result is
// used for log fields and breaker decisions; nothing retries on it.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var te transient
	if errors.As(err, &te) {
		return te.Transient()
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

var transientPatterns = []string{
	"connection reset by peer",
	"broken pipe",
	"temporary failure in name resolution",
	"tls handshake timeout",
	"i/o timeout",
	"server closed idle connection",
	"transport connection broken",
}

// IsTimeout reports whether err is a deadline or network timeout.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// IsTransientHTTPStatus returns true if the HTTP status code indicates a
// temporary server-side condition.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, // Request Timeout
		429, // Too Many Requests
		500, // Internal Server Error
		502, // Bad Gateway
		503, // Service Unavailable
		504: // Gateway Timeout
		return true
	default:
		return false
	}
}
