package l402

import (
	"encoding/base64"
	"fmt"

	"gopkg.in/macaroon.v2"
)

// Encode serializes a macaroon to the canonical base64 framing used on the
// wire: standard base64 of the macaroon's binary form (version byte,
// length-prefixed location, identifier, caveats, signature), as described
// in spec §4.1.
func Encode(mac *macaroon.Macaroon) (string, error) {
	raw, err := mac.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// Decode parses the base64 framing produced by Encode back into a macaroon.
func Decode(encoded string) (*macaroon.Macaroon, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadBase64, err)
	}

	mac := &macaroon.Macaroon{}
	if err := mac.UnmarshalBinary(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	return mac, nil
}
