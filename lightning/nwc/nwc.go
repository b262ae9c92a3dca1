// Package nwc implements the lightning.Backend interface (spec §4.6) against
// a NIP-47 ("Nostr Wallet Connect") wallet service, relaying encrypted
// JSON-RPC requests over a Nostr relay.
package nwc

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"github.com/nbd-wtf/go-nostr/nip04"

	"github.com/lightninglabs/l402gate/lightning"
)

const (
	kindRequest  = 23194
	kindResponse = 23195

	// DefaultTimeout is used when Config.Timeout is zero.
	DefaultTimeout = 10 * time.Second
)

// Config carries a parsed nostr+walletconnect:// connection URI.
type Config struct {
	// WalletPubkey is the hex-encoded public key of the wallet service
	// this client sends requests to.
	WalletPubkey string

	// RelayURL is the relay both sides communicate through.
	RelayURL string

	// Secret is the hex-encoded private key this client signs and
	// encrypts requests with.
	Secret string

	// Timeout bounds how long AddInvoice waits for a response. Zero uses
	// DefaultTimeout.
	Timeout time.Duration
}

// ParseURI parses a "nostr+walletconnect://<pubkey>?relay=...&secret=..."
// connection string into a Config.
func ParseURI(uri string) (Config, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return Config{}, fmt.Errorf("nwc: malformed connection uri: %w", err)
	}
	if u.Scheme != "nostr+walletconnect" {
		return Config{}, fmt.Errorf("nwc: unsupported scheme %q", u.Scheme)
	}

	pubkey := u.Host
	if pubkey == "" {
		pubkey = u.Opaque
	}
	if pubkey == "" {
		return Config{}, fmt.Errorf("nwc: missing wallet pubkey")
	}

	q := u.Query()
	relay := q.Get("relay")
	secret := q.Get("secret")
	if relay == "" || secret == "" {
		return Config{}, fmt.Errorf("nwc: missing relay or secret parameter")
	}

	return Config{WalletPubkey: pubkey, RelayURL: relay, Secret: secret}, nil
}

// Backend is a lightning.Backend backed by a NIP-47 wallet service. One
// relay connection is held and reused; publishing is serialized, and each
// call opens its own ephemeral subscription for the response.
type Backend struct {
	cfg Config

	mu    sync.Mutex
	relay *nostr.Relay
}

var _ lightning.Backend = (*Backend)(nil)

// NewBackend creates a NWC-backed Backend. It does not connect to the relay;
// the connection is established on the first call to AddInvoice.
func NewBackend(cfg Config) *Backend {
	return &Backend{cfg: cfg}
}

func (b *Backend) connect(ctx context.Context) (*nostr.Relay, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.relay != nil && b.relay.IsConnected() {
		return b.relay, nil
	}

	relay, err := nostr.RelayConnect(ctx, b.cfg.RelayURL)
	if err != nil {
		return nil, fmt.Errorf("%w: connecting to relay: %v",
			lightning.ErrBackendUnavailable, err)
	}
	b.relay = relay
	return relay, nil
}

type makeInvoiceParams struct {
	AmountMsat  uint64 `json:"amount"`
	Description string `json:"description"`
}

type nip47Request struct {
	Method string `json:"method"`
	Params any    `json:"params"`
}

type nip47Result struct {
	Invoice     string `json:"invoice"`
	PaymentHash string `json:"payment_hash"`
}

type nip47Response struct {
	ResultType string          `json:"result_type"`
	Error      *nip47Error     `json:"error"`
	Result     json.RawMessage `json:"result"`
}

type nip47Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// AddInvoice implements lightning.Backend.
func (b *Backend) AddInvoice(ctx context.Context, amountMsat uint64,
	memo string) (string, [32]byte, error) {

	var zero [32]byte

	timeout := b.cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	relay, err := b.connect(ctx)
	if err != nil {
		return "", zero, err
	}

	sharedSecret, err := nip04.ComputeSharedSecret(b.cfg.WalletPubkey, b.cfg.Secret)
	if err != nil {
		return "", zero, fmt.Errorf("nwc: deriving shared secret: %w", err)
	}

	payload, err := json.Marshal(nip47Request{
		Method: "make_invoice",
		Params: makeInvoiceParams{
			AmountMsat:  amountMsat,
			Description: memo,
		},
	})
	if err != nil {
		return "", zero, fmt.Errorf("nwc: encoding request: %w", err)
	}

	encryptedContent, err := nip04.Encrypt(string(payload), sharedSecret)
	if err != nil {
		return "", zero, fmt.Errorf("nwc: encrypting request: %w", err)
	}

	clientPubkey, err := nostr.GetPublicKey(b.cfg.Secret)
	if err != nil {
		return "", zero, fmt.Errorf("nwc: deriving client pubkey: %w", err)
	}

	event := nostr.Event{
		PubKey:    clientPubkey,
		CreatedAt: nostr.Now(),
		Kind:      kindRequest,
		Tags:      nostr.Tags{{"p", b.cfg.WalletPubkey}},
		Content:   encryptedContent,
	}
	if err := event.Sign(b.cfg.Secret); err != nil {
		return "", zero, fmt.Errorf("nwc: signing request: %w", err)
	}

	sub, err := relay.Subscribe(ctx, nostr.Filters{{
		Kinds:   []int{kindResponse},
		Authors: []string{b.cfg.WalletPubkey},
		Tags:    nostr.TagMap{"e": []string{event.ID}},
	}})
	if err != nil {
		return "", zero, fmt.Errorf("%w: subscribing for response: %v",
			lightning.ErrBackendUnavailable, err)
	}
	defer sub.Unsub()

	b.mu.Lock()
	err = relay.Publish(ctx, event)
	b.mu.Unlock()
	if err != nil {
		return "", zero, fmt.Errorf("%w: publishing request: %v",
			lightning.ErrBackendUnavailable, err)
	}

	select {
	case <-ctx.Done():
		return "", zero, lightning.ErrBackendTimeout

	case resp, ok := <-sub.Events:
		if !ok {
			return "", zero, lightning.ErrBackendTimeout
		}
		return parseResponse(resp, sharedSecret)
	}
}

func parseResponse(resp *nostr.Event, sharedSecret string) (string, [32]byte, error) {
	var zero [32]byte

	decrypted, err := nip04.Decrypt(resp.Content, sharedSecret)
	if err != nil {
		return "", zero, &lightning.RejectedError{
			Reason: fmt.Sprintf("decrypting response: %v", err),
		}
	}

	var parsed nip47Response
	if err := json.Unmarshal([]byte(decrypted), &parsed); err != nil {
		return "", zero, &lightning.RejectedError{
			Reason: fmt.Sprintf("malformed response: %v", err),
		}
	}
	if parsed.Error != nil {
		return "", zero, &lightning.RejectedError{Reason: parsed.Error.Message}
	}

	var result nip47Result
	if err := json.Unmarshal(parsed.Result, &result); err != nil {
		return "", zero, &lightning.RejectedError{
			Reason: fmt.Sprintf("malformed make_invoice result: %v", err),
		}
	}

	hashBytes, err := hex.DecodeString(result.PaymentHash)
	if err != nil || len(hashBytes) != 32 {
		return "", zero, &lightning.RejectedError{
			Reason: "malformed payment_hash in make_invoice result",
		}
	}
	copy(zero[:], hashBytes)

	return result.Invoice, zero, nil
}
