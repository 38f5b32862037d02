package urlnorm

import "errors"

var (
	// ErrMalformedURL is returned when an href cannot be parsed, is empty,
	// or resolves to a URL without a host.
	ErrMalformedURL = errors.New("malformed URL")

	// ErrUnsupportedScheme is returned for anything that is not http or https,
	// such as mailto:, javascript:, tel: or data: links.
	ErrUnsupportedScheme = errors.New("unsupported URL scheme")
)
