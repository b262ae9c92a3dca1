package l402

import (
	"crypto/rand"
	"testing"

	"github.com/lightningnetwork/lnd/lntypes"
	"github.com/stretchr/testify/require"
	"gopkg.in/macaroon.v2"
)

func TestEncodeDecodeRoundtrip(t *testing.T) {
	var hash lntypes.Hash
	_, err := rand.Read(hash[:])
	require.NoError(t, err)

	id, err := NewIdentifier(hash)
	require.NoError(t, err)
	raw, err := id.Encode()
	require.NoError(t, err)

	mac, err := macaroon.New(
		[]byte("0123456789abcdef0123456789abcdef"), raw, "l402gate",
		macaroon.LatestVersion,
	)
	require.NoError(t, err)
	require.NoError(t, mac.AddFirstPartyCaveat(
		[]byte(NewPathCaveat("/protected").Condition()),
	))

	encoded, err := Encode(mac)
	require.NoError(t, err)

	decoded, err := Decode(encoded)
	require.NoError(t, err)
	require.Equal(t, mac.Id(), decoded.Id())
	require.Equal(t, mac.Signature(), decoded.Signature())
}

func TestDecodeBadBase64(t *testing.T) {
	_, err := Decode("not-valid-base64!!!")
	require.ErrorIs(t, err, ErrBadBase64)
}

func TestDecodeMalformedBinary(t *testing.T) {
	_, err := Decode("AAAA")
	require.ErrorIs(t, err, ErrMalformedToken)
}

func TestCaveatParseRoundtrip(t *testing.T) {
	c := NewPathCaveat("/protected")
	parsed, err := ParseCaveat(c.Condition())
	require.NoError(t, err)
	require.Equal(t, c, parsed)

	expiry := NewExpiryCaveat(1700000000)
	parsedExpiry, err := ParseCaveat(expiry.Condition())
	require.NoError(t, err)
	require.Equal(t, expiry, parsedExpiry)
}

func TestCaveatParseMalformed(t *testing.T) {
	_, err := ParseCaveat("not a caveat")
	require.ErrorIs(t, err, ErrMalformedToken)
}
