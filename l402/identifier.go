package l402

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/lightningnetwork/lnd/lntypes"
)

const (
	// IdentifierVersion0 is the only identifier version this module
	// knows how to encode and decode.
	IdentifierVersion0 uint8 = 0

	// TokenIDSize is the number of random bytes embedded in an
	// identifier alongside the payment hash, used to distinguish two
	// bearer tokens that happen to wrap the same payment_hash.
	TokenIDSize = 32

	// identifierSize is the total encoded size of an Identifier: one
	// version byte, 32 bytes of payment hash, 32 bytes of token ID.
	identifierSize = 1 + lntypes.HashSize + TokenIDSize
)

// Identifier is the binary blob stored as a macaroon's Id(). Per spec §3 it
// embeds exactly one payment_hash, prefixed with a version tag, so the
// macaroon is uniquely tied to a single Lightning payment.
type Identifier struct {
	// Version identifies the wire encoding of this identifier.
	Version uint8

	// PaymentHash is the SHA-256 hash of the Lightning payment preimage
	// that must be presented to redeem this token.
	PaymentHash lntypes.Hash

	// TokenID is a random value distinguishing this bearer instance from
	// any other token minted against the same payment_hash.
	TokenID [TokenIDSize]byte
}

// NewIdentifier creates a fresh Identifier for paymentHash with a newly
// generated random TokenID.
func NewIdentifier(paymentHash lntypes.Hash) (*Identifier, error) {
	var tokenID [TokenIDSize]byte
	if _, err := rand.Read(tokenID[:]); err != nil {
		return nil, fmt.Errorf("unable to generate token ID: %w", err)
	}

	return &Identifier{
		Version:     IdentifierVersion0,
		PaymentHash: paymentHash,
		TokenID:     tokenID,
	}, nil
}

// Encode serializes the identifier into its canonical binary form.
func (id *Identifier) Encode() ([]byte, error) {
	if id.Version != IdentifierVersion0 {
		return nil, fmt.Errorf("%w: unknown identifier version %d",
			ErrMalformedToken, id.Version)
	}

	buf := make([]byte, 0, identifierSize)
	buf = append(buf, id.Version)
	buf = append(buf, id.PaymentHash[:]...)
	buf = append(buf, id.TokenID[:]...)
	return buf, nil
}

// DecodeIdentifier parses the canonical binary form of an Identifier,
// failing closed on truncation or an unknown version byte.
func DecodeIdentifier(r io.Reader) (*Identifier, error) {
	raw := make([]byte, identifierSize)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	if raw[0] != IdentifierVersion0 {
		return nil, fmt.Errorf("%w: unknown identifier version %d",
			ErrMalformedToken, raw[0])
	}

	id := &Identifier{Version: raw[0]}
	copy(id.PaymentHash[:], raw[1:1+lntypes.HashSize])
	copy(id.TokenID[:], raw[1+lntypes.HashSize:])

	// Reject trailing garbage past the fixed-size identifier; a well
	// formed identifier is exactly identifierSize bytes.
	var extra [1]byte
	if n, _ := r.Read(extra[:]); n != 0 {
		return nil, fmt.Errorf("%w: trailing data after identifier",
			ErrMalformedToken)
	}

	return id, nil
}

// DecodeIdentifierBytes is a convenience wrapper around DecodeIdentifier for
// callers that already have the raw identifier bytes in hand (e.g. a
// macaroon's Id()).
func DecodeIdentifierBytes(raw []byte) (*Identifier, error) {
	return DecodeIdentifier(bytes.NewReader(raw))
}
