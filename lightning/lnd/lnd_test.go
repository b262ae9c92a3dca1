package lnd

import (
	"context"
	"testing"

	"github.com/lightningnetwork/lnd/lnrpc"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/lightninglabs/l402gate/lightning"
)

// fakeLightningClient implements only the piece of lnrpc.LightningClient
// this adapter calls; every other method panics if exercised.
type fakeLightningClient struct {
	lnrpc.LightningClient

	resp *lnrpc.AddInvoiceResponse
	err  error

	gotReq *lnrpc.Invoice
}

func (f *fakeLightningClient) AddInvoice(_ context.Context,
	in *lnrpc.Invoice, _ ...grpc.CallOption) (*lnrpc.AddInvoiceResponse, error) {

	f.gotReq = in
	return f.resp, f.err
}

func TestAddInvoiceSuccess(t *testing.T) {
	hash := make([]byte, 32)
	hash[0] = 0xab

	fake := &fakeLightningClient{
		resp: &lnrpc.AddInvoiceResponse{
			RHash:          hash,
			PaymentRequest: "lnbc1...",
		},
	}
	b := &Backend{client: fake}

	bolt11, paymentHash, err := b.AddInvoice(context.Background(), 1000, "test")
	require.NoError(t, err)
	require.Equal(t, "lnbc1...", bolt11)
	require.Equal(t, byte(0xab), paymentHash[0])
	require.Equal(t, int64(1000), fake.gotReq.ValueMsat)
	require.Equal(t, "test", fake.gotReq.Memo)
}

func TestAddInvoiceTransportErrorInvalidatesConnection(t *testing.T) {
	fake := &fakeLightningClient{
		err: status.Error(codes.Unavailable, "connection refused"),
	}
	b := &Backend{client: fake}

	_, _, err := b.AddInvoice(context.Background(), 1000, "test")
	require.ErrorIs(t, err, lightning.ErrBackendUnavailable)

	// The broken connection must be dropped so the next call redials.
	require.Nil(t, b.client)
}

func TestAddInvoiceTimeout(t *testing.T) {
	fake := &fakeLightningClient{
		err: status.Error(codes.DeadlineExceeded, "context deadline exceeded"),
	}
	b := &Backend{client: fake}

	_, _, err := b.AddInvoice(context.Background(), 1000, "test")
	require.ErrorIs(t, err, lightning.ErrBackendTimeout)
}

func TestAddInvoiceRejected(t *testing.T) {
	fake := &fakeLightningClient{
		err: status.Error(codes.InvalidArgument, "amount too large"),
	}
	b := &Backend{client: fake}

	_, _, err := b.AddInvoice(context.Background(), 1000, "test")
	var rejected *lightning.RejectedError
	require.ErrorAs(t, err, &rejected)
}

func TestAddInvoiceMalformedHash(t *testing.T) {
	fake := &fakeLightningClient{
		resp: &lnrpc.AddInvoiceResponse{
			RHash:          []byte{0x01, 0x02},
			PaymentRequest: "lnbc1...",
		},
	}
	b := &Backend{client: fake}

	_, _, err := b.AddInvoice(context.Background(), 1000, "test")
	var rejected *lightning.RejectedError
	require.ErrorAs(t, err, &rejected)
}
