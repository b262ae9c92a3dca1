package l402

import (
	"crypto/rand"
	"net/http"
	"testing"

	"github.com/lightningnetwork/lnd/lntypes"
	"github.com/stretchr/testify/require"
	"gopkg.in/macaroon.v2"
)

func newTestMacaroon(t *testing.T) *macaroon.Macaroon {
	t.Helper()

	var hash lntypes.Hash
	_, err := rand.Read(hash[:])
	require.NoError(t, err)

	id, err := NewIdentifier(hash)
	require.NoError(t, err)

	raw, err := id.Encode()
	require.NoError(t, err)

	mac, err := macaroon.New(
		[]byte("root-key-root-key-root-key-12345"), raw, "l402gate",
		macaroon.LatestVersion,
	)
	require.NoError(t, err)
	return mac
}

func TestAcceptsL402(t *testing.T) {
	header := http.Header{}
	require.False(t, AcceptsL402(header))

	header.Set(HeaderAcceptAuthenticate, "l402")
	require.True(t, AcceptsL402(header))

	header.Set(HeaderAcceptAuthenticate, "something-else")
	require.False(t, AcceptsL402(header))
}

func TestWriteAndParseChallengeRoundtrip(t *testing.T) {
	mac := newTestMacaroon(t)
	macB64, err := Encode(mac)
	require.NoError(t, err)

	header := http.Header{}
	WriteChallenge(header, macB64, `lnbcrt1"weird`)

	value := header.Get(HeaderWWWAuthenticate)
	require.Contains(t, value, "L402 macaroon=")
	require.Contains(t, value, `invoice="lnbcrt1\"weird"`)
}

func TestParseAuthorization(t *testing.T) {
	mac := newTestMacaroon(t)
	macB64, err := Encode(mac)
	require.NoError(t, err)

	preimageHex := "00112233445566778899aabbccddeeff00112233445566778899aabbccddeeff"

	header := http.Header{}
	header.Set(HeaderAuthorization, "L402 "+macB64+":"+preimageHex)

	parsedMac, preimage, err := ParseAuthorization(header)
	require.NoError(t, err)
	require.Equal(t, mac.Id(), parsedMac.Id())
	require.Equal(t, preimageHex, preimage.String())
}

func TestParseAuthorizationLegacyScheme(t *testing.T) {
	mac := newTestMacaroon(t)
	macB64, err := Encode(mac)
	require.NoError(t, err)

	preimageHex := "00112233445566778899aabbccddeeff00112233445566778899aabbccddeeff"
	header := http.Header{}
	header.Set(HeaderAuthorization, "LSAT "+macB64+":"+preimageHex)

	_, _, err = ParseAuthorization(header)
	require.NoError(t, err)
}

func TestParseAuthorizationErrors(t *testing.T) {
	tests := []struct {
		name   string
		value  string
		target error
	}{
		{"empty", "", ErrMissingScheme},
		{"no-scheme-sep", "garbage", ErrMissingScheme},
		{"unknown-scheme", "Bearer abc:def", ErrUnknownScheme},
		{"no-colon", "L402 abcdef", ErrMalformedParameter},
		{"missing-macaroon", "L402 :deadbeef", ErrMissingMacaroon},
		{"missing-preimage", "L402 abcdef:", ErrMissingPreimage},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			header := http.Header{}
			if tc.value != "" {
				header.Set(HeaderAuthorization, tc.value)
			}
			_, _, err := ParseAuthorization(header)
			require.ErrorIs(t, err, tc.target)
		})
	}
}
