package supplier

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// ErrorKind classifies a supplier failure so the retry policy and the
// top-level error printer can each react appropriately.
type ErrorKind int

const (
	// ErrConnection is a transport-level failure (refused, reset,
	// DNS, TLS) that the retry policy treats as fail-fast.
	ErrConnection ErrorKind = iota
	ErrTimeout
	ErrNotFound
	ErrRateLimit
	// ErrCorruptArchive is a response that was received but failed
	// archive validation; retried with backoff.
	ErrCorruptArchive
	// ErrServerError is an HTTP 5xx; retried with backoff.
	ErrServerError
	ErrValidation
)

// Error is the structured error type every Supplier returns, carrying
// enough context (which package, which supplier) for both the retry
// loop and the resolver's conflict report.
type Error struct {
	Kind     ErrorKind
	Supplier string
	Package  string
	Message  string
	Cause    error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("supplier %s: %s: %s: %v", e.Supplier, e.Package, e.Message, e.Cause)
	}
	return fmt.Sprintf("supplier %s: %s: %s", e.Supplier, e.Package, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Retryable reports whether the retry policy in retry.go should retry
// this error (corrupt archive, 5xx, or timeout) rather than fail fast.
func (e *Error) Retryable() bool {
	return e.Kind == ErrCorruptArchive || e.Kind == ErrServerError || e.Kind == ErrTimeout
}

// classifyTransportError walks the error chain looking for the most specific
// net/tls/context error, defaulting to a generic connection failure.
func classifyTransportError(err error) ErrorKind {
	if err == nil {
		return ErrConnection
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	if errors.Is(err, context.Canceled) {
		return ErrConnection
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return ErrTimeout
		}
		return ErrConnection
	}
	var certErr *tls.CertificateVerificationError
	if errors.As(err, &certErr) {
		return ErrConnection
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Timeout() {
			return ErrTimeout
		}
		return ErrConnection
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return ErrTimeout
		}
		if strings.Contains(urlErr.Err.Error(), "certificate") ||
			strings.Contains(urlErr.Err.Error(), "tls") ||
			strings.Contains(urlErr.Err.Error(), "x509") {
			return ErrConnection
		}
		return classifyTransportError(urlErr.Err)
	}
	return ErrConnection
}

// wrapTransportError builds a classified *Error from a raw transport
// failure, for suppliers whose fetch/describe calls go over HTTP.
func wrapTransportError(supplierName, pkg, message string, err error) *Error {
	return &Error{
		Kind:     classifyTransportError(err),
		Supplier: supplierName,
		Package:  pkg,
		Message:  message,
		Cause:    err,
	}
}
