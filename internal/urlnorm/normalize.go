package urlnorm

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/nao1215/linkscan/internal/model"
	"golang.org/x/net/idna"
)

var errMissingHost = errors.New("missing host")

// defaultPorts maps a scheme to the port that is implied when none is given.
var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
}

// Normalize resolves raw against base and returns its canonical form.
//
// The canonical form has:
//   - a lower-case scheme and host (IDN hosts converted to ASCII)
//   - no fragment
//   - no default port (:80 for http, :443 for https)
//   - no single trailing slash on the path, except that the root path is "/"
//
// base may be empty when raw is already absolute. Relative hrefs require a base.
// Hrefs with schemes other than http and https fail with ErrUnsupportedScheme;
// anything that cannot be turned into an absolute URL with a host fails with
// ErrMalformedURL.
func Normalize(raw string, base model.URL) (model.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty href", ErrMalformedURL)
	}

	ref, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformedURL, err)
	}

	u := ref
	if base != "" {
		b, err := url.Parse(string(base))
		if err != nil {
			return "", fmt.Errorf("%w: base %q: %w", ErrMalformedURL, base, err)
		}
		u = b.ResolveReference(ref)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme == "" {
		return "", fmt.Errorf("%w: %q is not absolute", ErrMalformedURL, raw)
	}
	if _, ok := defaultPorts[u.Scheme]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
	if u.Opaque != "" {
		return "", fmt.Errorf("%w: %q has no host", ErrMalformedURL, raw)
	}

	host, err := normalizeHost(u.Scheme, u.Host)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformedURL, err)
	}
	u.Host = host

	u.Fragment = ""
	u.RawFragment = ""
	u.ForceQuery = false

	switch {
	case u.Path == "":
		u.Path = "/"
		u.RawPath = ""
	case u.Path != "/" && strings.HasSuffix(u.Path, "/"):
		u.Path = strings.TrimSuffix(u.Path, "/")
		u.RawPath = strings.TrimSuffix(u.RawPath, "/")
		if u.Path == "" {
			u.Path = "/"
			u.RawPath = ""
		}
	}

	return model.URL(u.String()), nil
}

// normalizeHost lower-cases the host, converts internationalized names to
// their ASCII form and drops the scheme's default port.
func normalizeHost(scheme, hostport string) (string, error) {
	if hostport == "" {
		return "", errMissingHost
	}

	host, port := hostport, ""
	if h, p, err := net.SplitHostPort(hostport); err == nil {
		host, port = h, p
	}
	host = strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
	if host == "" {
		return "", errMissingHost
	}

	host = strings.ToLower(host)
	if !isASCII(host) {
		ascii, err := idna.Lookup.ToASCII(host)
		if err != nil {
			return "", fmt.Errorf("invalid host %q: %w", host, err)
		}
		host = ascii
	}

	if port == defaultPorts[scheme] {
		port = ""
	}
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if port != "" {
		return host + ":" + port, nil
	}
	return host, nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// Host returns the host[:port] part of a normalized URL, or "" if u
// cannot be parsed.
func Host(u model.URL) string {
	parsed, err := url.Parse(string(u))
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Host)
}

// Path returns the path of a normalized URL, or "/" if it has none.
func Path(u model.URL) string {
	parsed, err := url.Parse(string(u))
	if err != nil || parsed.Path == "" {
		return "/"
	}
	return parsed.Path
}

// SameSite reports whether a and b are served by the same host.
// Hosts are compared case-insensitively including any explicit port,
// so http://example.com and https://example.com are the same site while
// example.com and www.example.com are not.
func SameSite(a, b model.URL) bool {
	ha, hb := Host(a), Host(b)
	return ha != "" && strings.EqualFold(ha, hb)
}
