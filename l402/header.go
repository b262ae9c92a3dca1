package l402

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/lightningnetwork/lnd/lntypes"
	"gopkg.in/macaroon.v2"
)

const (
	// HeaderAcceptAuthenticate is the request header a client sets to
	// opt in to the L402 challenge flow (spec §4.8's "opt-in rule").
	HeaderAcceptAuthenticate = "Accept-Authenticate"

	// HeaderAuthorization carries the macaroon/preimage pair presented by
	// a paying client.
	HeaderAuthorization = "Authorization"

	// HeaderWWWAuthenticate carries the 402 challenge back to the client.
	HeaderWWWAuthenticate = "WWW-Authenticate"

	// schemeL402 is the current RFC 7235 auth-scheme token for this
	// protocol.
	schemeL402 = "L402"

	// schemeLSAT is the deprecated predecessor scheme name, still
	// accepted on input for compatibility with older clients.
	schemeLSAT = "LSAT"
)

// AcceptsL402 reports whether the client has opted in to the L402 challenge
// flow via the Accept-Authenticate header, per spec §4.8.
func AcceptsL402(header http.Header) bool {
	return strings.EqualFold(
		strings.TrimSpace(header.Get(HeaderAcceptAuthenticate)),
		schemeL402,
	)
}

// HasAuthorization reports whether the request carries an Authorization
// header at all, used by the engine's START state to decide between the
// VERIFY and CHALLENGE/FREE branches.
func HasAuthorization(header http.Header) bool {
	return header.Get(HeaderAuthorization) != ""
}

// ParseAuthorization parses the strict `L402 <macaroon_b64>:<preimage_hex>`
// form from the Authorization header described in spec §4.9. The scheme
// name is matched case-insensitively and the legacy LSAT alias is accepted
// as an input synonym for L402; everything after the scheme is strict.
func ParseAuthorization(header http.Header) (*macaroon.Macaroon,
	lntypes.Preimage, error) {

	value := strings.TrimSpace(header.Get(HeaderAuthorization))
	if value == "" {
		return nil, lntypes.Preimage{}, fmt.Errorf(
			"%w: no Authorization header", ErrMissingScheme)
	}

	fields := strings.SplitN(value, " ", 2)
	if len(fields) != 2 {
		return nil, lntypes.Preimage{}, fmt.Errorf(
			"%w: no scheme separator in %q", ErrMissingScheme, value)
	}

	scheme, rest := fields[0], strings.TrimSpace(fields[1])
	if !strings.EqualFold(scheme, schemeL402) &&
		!strings.EqualFold(scheme, schemeLSAT) {

		return nil, lntypes.Preimage{}, fmt.Errorf(
			"%w: %q", ErrUnknownScheme, scheme)
	}

	sep := strings.LastIndex(rest, ":")
	if sep < 0 {
		return nil, lntypes.Preimage{}, fmt.Errorf(
			"%w: missing ':' separator", ErrMalformedParameter)
	}

	macBase64, preimageHex := rest[:sep], rest[sep+1:]
	if macBase64 == "" {
		return nil, lntypes.Preimage{}, ErrMissingMacaroon
	}
	if preimageHex == "" {
		return nil, lntypes.Preimage{}, ErrMissingPreimage
	}

	mac, err := Decode(macBase64)
	if err != nil {
		return nil, lntypes.Preimage{}, err
	}

	preimage, err := lntypes.MakePreimageFromStr(preimageHex)
	if err != nil {
		return nil, lntypes.Preimage{}, fmt.Errorf(
			"%w: bad preimage hex: %v", ErrMalformedParameter, err)
	}

	return mac, preimage, nil
}

// WriteChallenge emits the canonical WWW-Authenticate header for a fresh
// L402 challenge: `L402 macaroon="<b64>", invoice="<bolt11>"`, with
// parameters in the fixed order the spec prescribes.
func WriteChallenge(header http.Header, macBase64, invoice string) {
	value := fmt.Sprintf(
		`%s macaroon="%s", invoice="%s"`,
		schemeL402, escapeQuoted(macBase64), escapeQuoted(invoice),
	)
	header.Set(HeaderWWWAuthenticate, value)
}

// escapeQuoted escapes double quotes and backslashes inside a quoted-string
// HTTP header parameter value.
func escapeQuoted(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return s
}
