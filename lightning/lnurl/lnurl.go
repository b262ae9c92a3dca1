// Package lnurl implements the lightning.Backend interface (spec §4.7)
// against the LNURL-pay flow: resolving a Lightning Address to its
// well-known endpoint, fetching a BOLT-11 invoice from the callback, and
// recovering the payment hash by decoding that invoice directly.
package lnurl

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	lnurlpkg "github.com/fiatjaf/go-lnurl"
	"github.com/lightningnetwork/lnd/zpay32"

	"github.com/lightninglabs/l402gate/lightning"
)

// Config identifies the Lightning Address this backend pays through.
type Config struct {
	// Address is a Lightning Address of the form "user@host".
	Address string

	// Network selects the chain zpay32 decodes invoices against. One of
	// "mainnet", "testnet", "regtest".
	Network string

	// HTTPClient is used for both the well-known lookup and the callback
	// request. A zero value uses a 10s-timeout client.
	HTTPClient *http.Client
}

// Backend is a lightning.Backend backed by a single Lightning Address's
// LNURL-pay endpoint. It holds no mutable state; http.Client is already
// safe for concurrent use.
type Backend struct {
	address string
	network *chaincfg.Params
	client  *http.Client
}

var _ lightning.Backend = (*Backend)(nil)

// NewBackend creates an LNURL-backed Backend for the given Lightning
// Address.
func NewBackend(cfg Config) (*Backend, error) {
	var net *chaincfg.Params
	switch cfg.Network {
	case "", "mainnet":
		net = &chaincfg.MainNetParams
	case "testnet":
		net = &chaincfg.TestNet3Params
	case "regtest":
		net = &chaincfg.RegressionNetParams
	default:
		return nil, fmt.Errorf("lnurl: unsupported network %q", cfg.Network)
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	return &Backend{address: cfg.Address, network: net, client: client}, nil
}

// payResponse1 mirrors the well-known endpoint's JSON response.
type payResponse1 struct {
	Callback    string `json:"callback"`
	MinSendable int64  `json:"minSendable"`
	MaxSendable int64  `json:"maxSendable"`
	Metadata    string `json:"metadata"`
	Tag         string `json:"tag"`
}

type payResponse2 struct {
	PR     string `json:"pr"`
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// resolveEndpoint turns Config.Address into the URL to GET for the initial
// LNURL-pay metadata. Address may be a plain Lightning Address ("user@host",
// per LUD-16) or any text containing a bech32/lightning:/lnurlp: encoded
// LNURL, in which case go-lnurl does the decoding.
func resolveEndpoint(address string) (string, error) {
	if encoded, ok := lnurlpkg.FindLNURLInText(address); ok {
		rawURL, _, err := lnurlpkg.HandleLNURL(encoded)
		if err != nil {
			return "", fmt.Errorf("lnurl: decoding %q: %w", address, err)
		}
		return rawURL, nil
	}

	parts := strings.SplitN(address, "@", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", fmt.Errorf("lnurl: malformed lightning address %q", address)
	}
	return fmt.Sprintf("https://%s/.well-known/lnurlp/%s", parts[1], parts[0]), nil
}

// AddInvoice implements lightning.Backend.
func (b *Backend) AddInvoice(ctx context.Context, amountMsat uint64,
	memo string) (string, [32]byte, error) {

	var zero [32]byte

	endpoint, err := resolveEndpoint(b.address)
	if err != nil {
		return "", zero, &lightning.RejectedError{Reason: err.Error()}
	}

	var meta payResponse1
	if err := b.getJSON(ctx, endpoint, &meta); err != nil {
		return "", zero, err
	}
	if meta.Tag != "payRequest" {
		return "", zero, &lightning.RejectedError{
			Reason: fmt.Sprintf("unexpected lnurl tag %q", meta.Tag),
		}
	}

	amount := int64(amountMsat)
	if amount < meta.MinSendable || amount > meta.MaxSendable {
		return "", zero, &lightning.RejectedError{
			Reason: fmt.Sprintf(
				"amount %d msat outside bounds [%d, %d]",
				amount, meta.MinSendable, meta.MaxSendable),
		}
	}

	callbackURL, err := url.Parse(meta.Callback)
	if err != nil {
		return "", zero, &lightning.RejectedError{
			Reason: fmt.Sprintf("malformed callback url: %v", err),
		}
	}
	q := callbackURL.Query()
	q.Set("amount", fmt.Sprintf("%d", amount))
	callbackURL.RawQuery = q.Encode()

	var pay payResponse2
	if err := b.getJSON(ctx, callbackURL.String(), &pay); err != nil {
		return "", zero, err
	}
	if pay.Status == "ERROR" {
		return "", zero, &lightning.RejectedError{Reason: pay.Reason}
	}
	if pay.PR == "" {
		return "", zero, &lightning.RejectedError{
			Reason: "callback response missing invoice",
		}
	}

	invoice, err := zpay32.Decode(pay.PR, b.network)
	if err != nil {
		return "", zero, &lightning.RejectedError{
			Reason: fmt.Sprintf("decoding invoice: %v", err),
		}
	}
	if invoice.DescriptionHash == nil {
		return "", zero, &lightning.RejectedError{
			Reason: "invoice missing description hash",
		}
	}

	metaHash := sha256.Sum256([]byte(html.UnescapeString(meta.Metadata)))
	if metaHash != *invoice.DescriptionHash {
		return "", zero, &lightning.RejectedError{
			Reason: "invoice description hash does not match lnurl metadata",
		}
	}

	return pay.PR, *invoice.PaymentHash, nil
}

func (b *Backend) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("lnurl: building request: %w", err)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return lightning.ErrBackendTimeout
		}
		return fmt.Errorf("%w: %v", lightning.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &lightning.RejectedError{
			Reason: fmt.Sprintf("unexpected status %s from %s", resp.Status, rawURL),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &lightning.RejectedError{
			Reason: fmt.Sprintf("malformed json response: %v", err),
		}
	}
	return nil
}
