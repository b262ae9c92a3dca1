// Package lnd implements the lightning.Backend interface (spec §4.4) against
// an lnd node, dialing it the way aperture's own LndChallenger and
// LndAuthenticator do: through lndclient.NewBasicClient, which handles the
// TLS cert and macaroon loading and hands back a ready lnrpc.LightningClient.
package lnd

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/lightninglabs/l402gate/lightning"
	"github.com/lightninglabs/lndclient"
	"github.com/lightningnetwork/lnd/lnrpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Config carries everything needed to dial an lnd node.
type Config struct {
	// Host is the node's gRPC address, e.g. "localhost:10009".
	Host string

	// TLSCertPath is the path to the node's tls.cert (PEM).
	TLSCertPath string

	// MacaroonPath is the path to the macaroon used to authorize
	// AddInvoice calls (typically invoice.macaroon or admin.macaroon).
	MacaroonPath string

	// Network is the network the node is running on, as lndclient
	// expects it: "mainnet", "testnet", "regtest" or "simnet".
	Network string
}

// Backend is a lightning.Backend backed by an lnd node. The client is
// established lazily on first use and reused across calls; on a
// transport-level error it is rebuilt on the next call.
type Backend struct {
	cfg Config

	mu     sync.Mutex
	client lnrpc.LightningClient
}

var _ lightning.Backend = (*Backend)(nil)

// NewBackend creates an lnd-backed Backend. It does not dial the node; the
// connection is established on the first call to AddInvoice.
func NewBackend(cfg Config) *Backend {
	return &Backend{cfg: cfg}
}

// connect returns the current lnd client, dialing a new one if none exists
// yet, via lndclient.NewBasicClient.
func (b *Backend) connect() (lnrpc.LightningClient, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.client != nil {
		return b.client, nil
	}

	macDir, macFilename := filepath.Split(b.cfg.MacaroonPath)

	client, err := lndclient.NewBasicClient(
		b.cfg.Host, b.cfg.TLSCertPath, macDir, b.cfg.Network,
		lndclient.MacFilename(macFilename),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: dialing %s: %v",
			lightning.ErrBackendUnavailable, b.cfg.Host, err)
	}

	b.client = client
	return b.client, nil
}

// invalidate drops the current client so the next call rebuilds it.
func (b *Backend) invalidate() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.client = nil
}

// AddInvoice implements lightning.Backend.
func (b *Backend) AddInvoice(ctx context.Context, amountMsat uint64,
	memo string) (string, [32]byte, error) {

	var zero [32]byte

	client, err := b.connect()
	if err != nil {
		return "", zero, err
	}

	resp, err := client.AddInvoice(ctx, &lnrpc.Invoice{
		ValueMsat: int64(amountMsat),
		Memo:      memo,
	})
	if err != nil {
		if isTransportError(err) {
			lightning.Log.Errorf("lnd transport error, rebuilding "+
				"channel: %v", err)
			b.invalidate()
			return "", zero, fmt.Errorf("%w: %v",
				lightning.ErrBackendUnavailable, err)
		}
		if status.Code(err) == codes.DeadlineExceeded {
			return "", zero, lightning.ErrBackendTimeout
		}
		return "", zero, &lightning.RejectedError{Reason: err.Error()}
	}

	if len(resp.RHash) != 32 {
		return "", zero, &lightning.RejectedError{
			Reason: "malformed r_hash in AddInvoice response",
		}
	}
	copy(zero[:], resp.RHash)

	return resp.PaymentRequest, zero, nil
}

// isTransportError reports whether err indicates the gRPC channel itself is
// broken, as opposed to the RPC being rejected by lnd.
func isTransportError(err error) bool {
	switch status.Code(err) {
	case codes.Unavailable, codes.Canceled, codes.Internal:
		return true
	default:
		return false
	}
}
