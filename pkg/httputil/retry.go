package httputil

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"strings"
	"time"

	"github.com/cenk/backoff"
)

// RetryableError wraps an error to indicate it should trigger a retry.
// Wrap transient failures (network timeouts, 5xx responses) with this type
// so that [Retry] knows to attempt the operation again.
type RetryableError struct{ Err error }

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// RetryConfig bounds the retry schedule.
type RetryConfig struct {
	// Count is the number of retries after the first attempt for
	// transient transport failures.
	Count int
	// SSLCount is the separate retry budget for TLS handshake failures.
	SSLCount int
	// BaseDelay is the initial backoff delay; it doubles per attempt.
	BaseDelay time.Duration
}

// DefaultRetryConfig mirrors the documented defaults: one transport
// retry, three TLS retries, 250 ms base delay.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{Count: 1, SSLCount: 3, BaseDelay: 250 * time.Millisecond}
}

// Retry executes fn, re-attempting on [RetryableError] with exponential
// backoff. Transport failures and TLS handshake failures draw from
// separate budgets; other errors are returned immediately. Returns the
// last error once the applicable budget is spent, or ctx.Err() if
// cancelled.
func Retry(ctx context.Context, cfg RetryConfig, fn func() error) error {
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 250 * time.Millisecond
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.BaseDelay
	b.Multiplier = 2
	b.MaxElapsedTime = 0
	b.Reset()

	transportLeft := cfg.Count
	sslLeft := cfg.SSLCount

	var lastErr error
	for {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isRetryable(err) {
			return err
		}

		if isTLSHandshakeError(err) {
			if sslLeft <= 0 {
				return lastErr
			}
			sslLeft--
		} else {
			if transportLeft <= 0 {
				return lastErr
			}
			transportLeft--
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(b.NextBackOff()):
		}
	}
}

func isRetryable(err error) bool {
	return errors.As(err, new(*RetryableError))
}

// isTLSHandshakeError reports whether the failure happened during the TLS
// handshake rather than on an established connection.
func isTLSHandshakeError(err error) bool {
	if errors.As(err, new(*tls.CertificateVerificationError)) ||
		errors.As(err, new(tls.RecordHeaderError)) ||
		errors.As(err, new(x509.UnknownAuthorityError)) ||
		errors.As(err, new(x509.HostnameError)) {
		return true
	}
	// net/http wraps handshake failures without a typed error.
	return strings.Contains(err.Error(), "tls:") ||
		strings.Contains(err.Error(), "TLS handshake")
}
