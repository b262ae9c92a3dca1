// Package cln implements the lightning.Backend interface (spec §4.5) against
// Core Lightning's lightning-rpc Unix domain socket, a newline-framed
// JSON-RPC 2.0 interface. No shared connection state is kept: each call
// opens, uses, and closes its own socket, matching the node's expectation
// of short-lived RPC clients.
package cln

import (
	"bufio"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net"

	"github.com/google/uuid"

	"github.com/lightninglabs/l402gate/lightning"
)

// Config carries the connection details for a CLN node's RPC socket.
type Config struct {
	// SocketPath is the filesystem path to lightning-rpc.
	SocketPath string
}

// Backend is a lightning.Backend backed by a CLN node's JSON-RPC socket.
type Backend struct {
	cfg Config
}

var _ lightning.Backend = (*Backend)(nil)

// NewBackend creates a CLN-backed Backend.
func NewBackend(cfg Config) *Backend {
	return &Backend{cfg: cfg}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	ID     string          `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type invoiceParams struct {
	AmountMsat  uint64 `json:"amount_msat"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

type invoiceResult struct {
	Bolt11      string `json:"bolt11"`
	PaymentHash string `json:"payment_hash"`
}

// AddInvoice implements lightning.Backend.
func (b *Backend) AddInvoice(ctx context.Context, amountMsat uint64,
	memo string) (string, [32]byte, error) {

	var zero [32]byte

	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", b.cfg.SocketPath)
	if err != nil {
		return "", zero, fmt.Errorf("%w: %v",
			lightning.ErrBackendUnavailable, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	req := rpcRequest{
		JSONRPC: "2.0",
		ID:      uuid.NewString(),
		Method:  "invoice",
		Params: invoiceParams{
			AmountMsat:  amountMsat,
			Label:       uuid.NewString(),
			Description: memo,
		},
	}

	encoded, err := json.Marshal(req)
	if err != nil {
		return "", zero, fmt.Errorf("cln: encoding request: %w", err)
	}

	if _, err := conn.Write(append(encoded, '\n')); err != nil {
		return "", zero, fmt.Errorf("%w: writing request: %v",
			lightning.ErrBackendUnavailable, err)
	}

	line, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil {
		if ctx.Err() != nil {
			return "", zero, lightning.ErrBackendTimeout
		}
		return "", zero, fmt.Errorf("%w: reading response: %v",
			lightning.ErrBackendUnavailable, err)
	}

	var resp rpcResponse
	if err := json.Unmarshal(line, &resp); err != nil {
		return "", zero, &lightning.RejectedError{
			Reason: fmt.Sprintf("malformed json-rpc response: %v", err),
		}
	}
	if resp.Error != nil {
		return "", zero, &lightning.RejectedError{Reason: resp.Error.Message}
	}

	var result invoiceResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return "", zero, &lightning.RejectedError{
			Reason: fmt.Sprintf("malformed invoice result: %v", err),
		}
	}

	hashBytes, err := hex.DecodeString(result.PaymentHash)
	if err != nil || len(hashBytes) != 32 {
		return "", zero, &lightning.RejectedError{
			Reason: "malformed payment_hash in invoice result",
		}
	}
	copy(zero[:], hashBytes)

	return result.Bolt11, zero, nil
}
