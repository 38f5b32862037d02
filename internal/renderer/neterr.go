package renderer

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"net"
	"strings"
	"syscall"

	"github.com/nao1215/linkscan/internal/model"
	"github.com/nao1215/linkscan/internal/transport"
)

// StatusFromError maps a Go network error to the closest NetStatus.
// It understands errors from net/http, crypto/tls and the transport package;
// anything unrecognized maps to StatusFailed.
func StatusFromError(err error) model.NetStatus {
	if err == nil {
		return model.StatusOK
	}

	if errors.Is(err, transport.ErrTooManyRedirects) {
		return model.StatusTooManyRedirects
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return model.StatusTimedOut
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return model.StatusTimedOut
		}
		return model.StatusNameNotResolved
	}

	if isCertError(err) {
		return model.StatusCertInvalid
	}
	if isTLSError(err) {
		return model.StatusSSLProtocolError
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return model.StatusTimedOut
	}

	switch {
	case errors.Is(err, syscall.ECONNREFUSED):
		return model.StatusConnectionRefused
	case errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.EPIPE),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF):
		return model.StatusConnectionReset
	case errors.Is(err, syscall.EHOSTUNREACH),
		errors.Is(err, syscall.ENETUNREACH):
		return model.StatusAddressUnreachable
	case errors.Is(err, syscall.ECONNABORTED):
		return model.StatusAborted
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return model.StatusConnectionFailed
	}

	return model.StatusFailed
}

func isCertError(err error) bool {
	var (
		verifyErr    *tls.CertificateVerificationError
		authorityErr x509.UnknownAuthorityError
		hostnameErr  x509.HostnameError
		invalidErr   x509.CertificateInvalidError
	)
	return errors.As(err, &verifyErr) ||
		errors.As(err, &authorityErr) ||
		errors.As(err, &hostnameErr) ||
		errors.As(err, &invalidErr)
}

func isTLSError(err error) bool {
	var (
		recordErr tls.RecordHeaderError
		alertErr  tls.AlertError
	)
	if errors.As(err, &recordErr) || errors.As(err, &alertErr) {
		return true
	}
	return strings.Contains(err.Error(), "tls: ")
}
