package scanner

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"
)

// Session store errors.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExists   = errors.New("session already exists")
	ErrSessionFinished = errors.New("session already finished")
	ErrQueueClosed     = errors.New("queue closed")
)

// FailureKind classifies why a target could not be scored.
type FailureKind string

// Failure classes.
const (
	FailureTimeout     FailureKind = "timeout"
	FailureTLS         FailureKind = "tls_error"
	FailureConnection  FailureKind = "connection_error"
	FailureUpstreamAPI FailureKind = "upstream_api_error"
	FailureDiscovery   FailureKind = "discovery_failure"
	FailureOther       FailureKind = "other"
)

// HTTPStatusError reports a non-success HTTP status.
type HTTPStatusError struct {
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("%d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// UpstreamAPIError reports a registry failure. Page is the zero-based page
// that could not be read.
type UpstreamAPIError struct {
	Page int
	Err  error
}

func (e *UpstreamAPIError) Error() string {
	return fmt.Sprintf("registry page %d: %v", e.Page, e.Err)
}

func (e *UpstreamAPIError) Unwrap() error {
	return e.Err
}

// ClassifyFetchError maps a fetch error onto the failure taxonomy.
func ClassifyFetchError(err error) FailureKind {
	if err == nil {
		return ""
	}
	var upstream *UpstreamAPIError
	if errors.As(err, &upstream) {
		return FailureUpstreamAPI
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return FailureTimeout
	}
	if isTLSError(err) {
		return FailureTLS
	}
	var opErr *net.OpError
	var dnsErr *net.DNSError
	if errors.As(err, &opErr) || errors.As(err, &dnsErr) {
		return FailureConnection
	}
	return FailureOther
}

// isTLSError reports certificate failures and handshake failures. Alerts
// sent by the peer surface as a *net.OpError with Op "remote error", and
// local handshake failures only as "tls: " error text.
func isTLSError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "remote error" {
		return true
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		if strings.HasPrefix(e.Error(), "tls: ") {
			return true
		}
	}
	var (
		verifyErr   *tls.CertificateVerificationError
		recordErr   tls.RecordHeaderError
		alertErr    tls.AlertError
		unknownAuth x509.UnknownAuthorityError
		hostErr     x509.HostnameError
		invalidErr  x509.CertificateInvalidError
	)
	return errors.As(err, &verifyErr) ||
		errors.As(err, &recordErr) ||
		errors.As(err, &alertErr) ||
		errors.As(err, &unknownAuth) ||
		errors.As(err, &hostErr) ||
		errors.As(err, &invalidErr)
}

// FailureIssue renders the single issue recorded for an inaccessible target.
func FailureIssue(kind FailureKind, err error, timeout time.Duration) string {
	switch kind {
	case FailureTimeout:
		return fmt.Sprintf("Website timeout (>%ds)", int(timeout.Seconds()))
	case FailureTLS:
		return "SSL certificate error"
	case FailureConnection:
		return "Could not connect to website"
	case FailureDiscovery:
		return "No website found"
	}
	msg := "unknown error"
	var statusErr *HTTPStatusError
	switch {
	case errors.As(err, &statusErr):
		msg = statusErr.Error()
	case err != nil:
		msg = err.Error()
	}
	return "Error analyzing website: " + truncate(msg, 50)
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
