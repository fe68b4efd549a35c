package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/textproto"
	"strings"
)

// TransportError classifies a failed send as transient or permanent.
type TransportError struct {
	// Stage names the protocol step that failed, e.g. "dial", "auth", "rcpt".
	Stage string
	// StatusCode is the SMTP reply code or the relay's HTTP status, when known.
	StatusCode int
	Message    string
	Transient  bool
	Cause      error
}

func (e *TransportError) Error() string {
	if e == nil {
		return "<nil>"
	}

	parts := make([]string, 0, 4)
	parts = append(parts, "email transport error")

	if stage := strings.TrimSpace(e.Stage); stage != "" {
		parts = append(parts, "stage="+stage)
	}
	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("code=%d", e.StatusCode))
	}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		parts = append(parts, msg)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}

	return strings.Join(parts, ": ")
}

func (e *TransportError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// IsTransient reports whether resending the same message may succeed.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return transportErr.Transient
	}

	var protoErr *textproto.Error
	if errors.As(err, &protoErr) {
		return isTransientSMTPCode(protoErr.Code)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	return false
}

// smtpError wraps a failure at one SMTP stage. Reply codes 4xx are
// transient per RFC 5321, 5xx are permanent; connection-level failures are
// treated as transient unless the context was cancelled.
func smtpError(stage string, err error) *TransportError {
	te := &TransportError{
		Stage:     stage,
		Message:   "smtp " + stage + " failed",
		Transient: !errors.Is(err, context.Canceled),
		Cause:     err,
	}

	var protoErr *textproto.Error
	if errors.As(err, &protoErr) {
		te.StatusCode = protoErr.Code
		te.Transient = isTransientSMTPCode(protoErr.Code)
	}

	return te
}

func isTransientSMTPCode(code int) bool {
	return code >= 400 && code < 500
}
