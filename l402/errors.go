package l402

import "errors"

var (
	// ErrMalformedToken is returned when a macaroon or identifier is
	// truncated, carries an unknown version, or otherwise fails to parse.
	ErrMalformedToken = errors.New("l402: malformed token")

	// ErrBadBase64 is returned when the base64 framing of a macaroon
	// cannot be decoded.
	ErrBadBase64 = errors.New("l402: bad base64 encoding")

	// ErrMissingScheme is returned when an Authorization header value has
	// no recognizable auth-scheme token.
	ErrMissingScheme = errors.New("l402: missing auth scheme")

	// ErrUnknownScheme is returned when the Authorization header's scheme
	// is neither L402 nor the legacy LSAT alias.
	ErrUnknownScheme = errors.New("l402: unknown auth scheme")

	// ErrMalformedParameter is returned when the macaroon/preimage pair
	// in an Authorization header is not in the expected colon-separated
	// form.
	ErrMalformedParameter = errors.New("l402: malformed auth parameter")

	// ErrMissingMacaroon is returned when an Authorization header is
	// missing its macaroon component.
	ErrMissingMacaroon = errors.New("l402: missing macaroon")

	// ErrMissingPreimage is returned when an Authorization header is
	// missing its preimage component.
	ErrMissingPreimage = errors.New("l402: missing preimage")
)
