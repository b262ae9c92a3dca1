package nwc

import (
	"encoding/json"
	"testing"

	"github.com/nbd-wtf/go-nostr"
	"github.com/nbd-wtf/go-nostr/nip04"
	"github.com/stretchr/testify/require"

	"github.com/lightninglabs/l402gate/lightning"
)

func TestParseURI(t *testing.T) {
	uri := "nostr+walletconnect://" +
		"b889ff5b1513b641e2a139f661a661364979c5beee91842f8c038a75a5fbf6f" +
		"?relay=wss%3A%2F%2Frelay.example.com&secret=" +
		"71a8c14c1407c113601079c4302dab36460f0ccd0ad506f1f2dc73b5100771f"

	cfg, err := ParseURI(uri)
	require.NoError(t, err)
	require.Equal(t,
		"b889ff5b1513b641e2a139f661a661364979c5beee91842f8c038a75a5fbf6f",
		cfg.WalletPubkey)
	require.Equal(t, "wss://relay.example.com", cfg.RelayURL)
	require.NotEmpty(t, cfg.Secret)
}

func TestParseURIWrongScheme(t *testing.T) {
	_, err := ParseURI("https://example.com")
	require.Error(t, err)
}

func TestParseURIMissingParams(t *testing.T) {
	_, err := ParseURI("nostr+walletconnect://abc123")
	require.Error(t, err)
}

func TestParseResponseSuccess(t *testing.T) {
	secret := "71a8c14c1407c113601079c4302dab36460f0ccd0ad506f1f2dc73b5100771f"
	pubkey := "b889ff5b1513b641e2a139f661a661364979c5beee91842f8c038a75a5fbf6f"
	sharedSecret, err := nip04.ComputeSharedSecret(pubkey, secret)
	require.NoError(t, err)

	result, err := json.Marshal(nip47Result{
		Invoice:     "lnbc1...",
		PaymentHash: "ab00000000000000000000000000000000000000000000000000000000000000",
	})
	require.NoError(t, err)
	body, err := json.Marshal(nip47Response{ResultType: "make_invoice", Result: result})
	require.NoError(t, err)

	encrypted, err := nip04.Encrypt(string(body), sharedSecret)
	require.NoError(t, err)

	bolt11, hash, err := parseResponse(&nostr.Event{Content: encrypted}, sharedSecret)
	require.NoError(t, err)
	require.Equal(t, "lnbc1...", bolt11)
	require.Equal(t, byte(0xab), hash[0])
}

func TestParseResponseError(t *testing.T) {
	secret := "71a8c14c1407c113601079c4302dab36460f0ccd0ad506f1f2dc73b5100771f"
	pubkey := "b889ff5b1513b641e2a139f661a661364979c5beee91842f8c038a75a5fbf6f"
	sharedSecret, err := nip04.ComputeSharedSecret(pubkey, secret)
	require.NoError(t, err)

	body, err := json.Marshal(nip47Response{
		ResultType: "make_invoice",
		Error:      &nip47Error{Code: "INTERNAL", Message: "wallet locked"},
	})
	require.NoError(t, err)
	encrypted, err := nip04.Encrypt(string(body), sharedSecret)
	require.NoError(t, err)

	_, _, err = parseResponse(&nostr.Event{Content: encrypted}, sharedSecret)
	var rejected *lightning.RejectedError
	require.ErrorAs(t, err, &rejected)
	require.Equal(t, "wallet locked", rejected.Reason)
}

func TestParseResponseUndecryptable(t *testing.T) {
	_, _, err := parseResponse(&nostr.Event{Content: "not-encrypted"}, "deadbeef")
	var rejected *lightning.RejectedError
	require.ErrorAs(t, err, &rejected)
}
