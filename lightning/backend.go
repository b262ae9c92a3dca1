// Package lightning defines the backend abstraction (spec §4.3) that the
// protocol engine mints invoices through. A Backend is the only surface the
// engine consumes; everything node-specific lives behind one of the adapter
// packages (lnd, cln, nwc, lnurl).
package lightning

import (
	"context"
	"errors"
	"fmt"

	"github.com/lightninglabs/l402gate/internal/build"
)

// Log is the shared "LNBK" sub-logger every backend adapter logs through.
var Log = build.NewSubLogger("LNBK", nil)

// ErrBackendUnavailable is returned when a backend could not be reached at
// all: connection refused, DNS failure, socket missing.
var ErrBackendUnavailable = errors.New("lightning: backend unavailable")

// ErrBackendTimeout is returned when a backend was reached but did not
// respond within the caller's deadline.
var ErrBackendTimeout = errors.New("lightning: backend timed out")

// RejectedError is returned when a backend was reached and responded, but
// declined to create the invoice. Reason carries the backend's own
// explanation, where one is available, for logging; it is never part of the
// uniform client-facing error message (spec §7).
type RejectedError struct {
	Reason string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("lightning: backend rejected invoice: %s", e.Reason)
}

// Backend is the single capability the protocol engine needs from a
// Lightning node: minting an invoice for a given amount. Implementations
// normalize units to millisatoshis on input and return the payment hash as
// raw 32 bytes regardless of their wire representation.
type Backend interface {
	// AddInvoice requests a new invoice for amountMsat millisatoshis with
	// the given memo, returning its BOLT-11 encoding and payment hash.
	//
	// It returns ErrBackendUnavailable if the backend could not be
	// reached, a *RejectedError if it was reached but declined the
	// request, or ErrBackendTimeout if ctx's deadline elapsed first.
	AddInvoice(ctx context.Context, amountMsat uint64, memo string) (
		bolt11 string, paymentHash [32]byte, err error)
}
