package model

import (
	"fmt"
	"net/http"
	"strings"
)

// NetStatus is the terminal outcome of loading a single URL.
// OK means the document was loaded; every other value describes why
// the URL is dead or problematic.
type NetStatus int

const (
	// StatusOK indicates the page loaded successfully.
	StatusOK NetStatus = iota

	// StatusAborted indicates the server or browser aborted the navigation.
	// Servers protecting themselves from bursts of requests commonly do this,
	// so renderers may retry navigations that end with this status.
	StatusAborted

	// StatusTimedOut indicates the page did not finish loading in time.
	StatusTimedOut

	// StatusNameNotResolved indicates a DNS failure.
	StatusNameNotResolved

	// StatusConnectionRefused indicates the host refused the TCP connection.
	StatusConnectionRefused

	// StatusConnectionReset indicates the connection was reset mid-request.
	StatusConnectionReset

	// StatusConnectionFailed is a generic connection-level failure.
	StatusConnectionFailed

	// StatusAddressUnreachable indicates no route to the host.
	StatusAddressUnreachable

	// StatusSSLProtocolError indicates a TLS handshake failure.
	StatusSSLProtocolError

	// StatusCertInvalid indicates the server certificate was rejected.
	StatusCertInvalid

	// StatusTooManyRedirects indicates a redirect loop or an overlong chain.
	StatusTooManyRedirects

	// StatusHTTPNotFound indicates an HTTP 404 or 410 response.
	StatusHTTPNotFound

	// StatusHTTPClientError indicates any other HTTP 4xx response.
	StatusHTTPClientError

	// StatusHTTPServerError indicates an HTTP 5xx response.
	StatusHTTPServerError

	// StatusFailed is used for failures that fit no other category.
	StatusFailed
)

// netStatusNames holds the canonical names, indexed by NetStatus.
// The names follow Chromium's net error naming so that reports produced
// by the HTTP and browser renderers read the same way.
var netStatusNames = [...]string{
	StatusOK:                 "OK",
	StatusAborted:            "ABORTED",
	StatusTimedOut:           "CONNECTION_TIMED_OUT",
	StatusNameNotResolved:    "NAME_NOT_RESOLVED",
	StatusConnectionRefused:  "CONNECTION_REFUSED",
	StatusConnectionReset:    "CONNECTION_RESET",
	StatusConnectionFailed:   "CONNECTION_FAILED",
	StatusAddressUnreachable: "ADDRESS_UNREACHABLE",
	StatusSSLProtocolError:   "SSL_PROTOCOL_ERROR",
	StatusCertInvalid:        "CERT_INVALID",
	StatusTooManyRedirects:   "TOO_MANY_REDIRECTS",
	StatusHTTPNotFound:       "HTTP_NOT_FOUND",
	StatusHTTPClientError:    "HTTP_CLIENT_ERROR",
	StatusHTTPServerError:    "HTTP_SERVER_ERROR",
	StatusFailed:             "FAILED",
}

// AllNetStatuses returns every status in declaration order.
func AllNetStatuses() []NetStatus {
	out := make([]NetStatus, len(netStatusNames))
	for i := range netStatusNames {
		out[i] = NetStatus(i)
	}
	return out
}

// String returns the canonical upper-snake name of the status.
func (s NetStatus) String() string {
	if s < 0 || int(s) >= len(netStatusNames) {
		return fmt.Sprintf("NetStatus(%d)", int(s))
	}
	return netStatusNames[s]
}

// OK reports whether the status represents a successfully loaded page.
func (s NetStatus) OK() bool {
	return s == StatusOK
}

// ParseNetStatus converts a canonical name back into a NetStatus.
// Matching is case-insensitive.
func ParseNetStatus(name string) (NetStatus, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	for i, n := range netStatusNames {
		if n == name {
			return NetStatus(i), nil
		}
	}
	return StatusFailed, fmt.Errorf("unknown net status %q", name)
}

// MarshalText implements encoding.TextMarshaler so statuses appear by
// name in JSON and YAML output.
func (s NetStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *NetStatus) UnmarshalText(text []byte) error {
	parsed, err := ParseNetStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// NetStatusFromHTTP maps an HTTP status code to a NetStatus.
// Codes below 400 are OK; redirects are expected to have been followed
// by the client before this is called.
func NetStatusFromHTTP(code int) NetStatus {
	switch {
	case code == http.StatusNotFound || code == http.StatusGone:
		return StatusHTTPNotFound
	case code >= 400 && code < 500:
		return StatusHTTPClientError
	case code >= 500:
		return StatusHTTPServerError
	case code <= 0:
		return StatusFailed
	default:
		return StatusOK
	}
}

// chromeErrors maps Chromium net error names (without the "net::ERR_" prefix).
var chromeErrors = map[string]NetStatus{
	"ABORTED":                  StatusAborted,
	"BLOCKED_BY_CLIENT":        StatusAborted,
	"TIMED_OUT":                StatusTimedOut,
	"CONNECTION_TIMED_OUT":     StatusTimedOut,
	"NAME_NOT_RESOLVED":        StatusNameNotResolved,
	"NAME_RESOLUTION_FAILED":   StatusNameNotResolved,
	"CONNECTION_REFUSED":       StatusConnectionRefused,
	"CONNECTION_RESET":         StatusConnectionReset,
	"CONNECTION_CLOSED":        StatusConnectionReset,
	"EMPTY_RESPONSE":           StatusConnectionReset,
	"CONNECTION_FAILED":        StatusConnectionFailed,
	"INTERNET_DISCONNECTED":    StatusConnectionFailed,
	"ADDRESS_UNREACHABLE":      StatusAddressUnreachable,
	"SSL_PROTOCOL_ERROR":       StatusSSLProtocolError,
	"CERT_AUTHORITY_INVALID":   StatusCertInvalid,
	"CERT_COMMON_NAME_INVALID": StatusCertInvalid,
	"CERT_DATE_INVALID":        StatusCertInvalid,
	"TOO_MANY_REDIRECTS":       StatusTooManyRedirects,

	"SSL_VERSION_OR_CIPHER_MISMATCH": StatusSSLProtocolError,
}

// NetStatusFromChromeError maps a Chromium navigation error such as
// "page load error net::ERR_NAME_NOT_RESOLVED" to a NetStatus.
// Unknown errors map to StatusFailed.
func NetStatusFromChromeError(msg string) NetStatus {
	idx := strings.Index(msg, "net::ERR_")
	if idx < 0 {
		return StatusFailed
	}
	name := msg[idx+len("net::ERR_"):]
	if end := strings.IndexFunc(name, func(r rune) bool {
		return !(r == '_' || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'))
	}); end >= 0 {
		name = name[:end]
	}
	if status, ok := chromeErrors[name]; ok {
		return status
	}
	if strings.HasPrefix(name, "CERT_") {
		return StatusCertInvalid
	}
	if strings.HasPrefix(name, "SSL_") {
		return StatusSSLProtocolError
	}
	return StatusFailed
}
