// Package mint implements the L402 capability-token mint and verifier
// (spec §4.2): HMAC-chained macaroon construction, caveat append, signature
// verification and first-party caveat predicate evaluation.
package mint

import (
	"crypto/sha256"
	"crypto/subtle"
	"fmt"

	"github.com/lightninglabs/l402gate/l402"
	"github.com/lightningnetwork/lnd/lntypes"
	"gopkg.in/macaroon.v2"
)

// Config packages the dependencies needed to mint and verify L402 tokens.
type Config struct {
	// RootKey is the process-wide secret used to derive every macaroon's
	// HMAC chain. It is never transmitted; only signatures derived from
	// it leave the server. At least 32 bytes is recommended.
	RootKey []byte

	// Location is the opaque origin string stamped into every minted
	// macaroon.
	Location string
}

// Mint mints and verifies L402 macaroons against a single root key. Per
// spec §5, a Mint holds no mutable state after construction and is safe for
// concurrent use by multiple requests.
type Mint struct {
	cfg Config
}

// New creates a Mint from cfg.
func New(cfg Config) (*Mint, error) {
	if len(cfg.RootKey) == 0 {
		return nil, fmt.Errorf("mint: root key must not be empty")
	}
	return &Mint{cfg: cfg}, nil
}

// Mint constructs a new macaroon bound to paymentHash with the given
// caveats appended, per spec §4.2:
//
//	identifier = version_tag || payment_hash || random_nonce
//	sig_0      = HMAC(root_key, identifier)
//	sig_i      = HMAC(sig_i-1, caveat_i)
func (m *Mint) Mint(paymentHash lntypes.Hash,
	caveats []l402.Caveat) (*macaroon.Macaroon, error) {

	id, err := l402.NewIdentifier(paymentHash)
	if err != nil {
		return nil, fmt.Errorf("mint: unable to create identifier: %w", err)
	}

	idBytes, err := id.Encode()
	if err != nil {
		return nil, fmt.Errorf("mint: unable to encode identifier: %w", err)
	}

	mac, err := macaroon.New(
		m.cfg.RootKey, idBytes, m.cfg.Location, macaroon.LatestVersion,
	)
	if err != nil {
		return nil, fmt.Errorf("mint: unable to construct macaroon: %w", err)
	}

	for _, caveat := range caveats {
		if err := mac.AddFirstPartyCaveat(
			[]byte(caveat.Condition()),
		); err != nil {
			return nil, fmt.Errorf(
				"mint: unable to add caveat %q: %w",
				caveat.Condition(), err)
		}
	}

	return mac, nil
}

// Attenuate appends an additional caveat to an already-minted macaroon,
// re-chaining the HMAC tail. Per spec invariant 4, the resulting macaroon
// still verifies but imposes the new restriction; it can be produced by any
// holder of the macaroon without knowledge of the root key.
func Attenuate(mac *macaroon.Macaroon, caveat l402.Caveat) (*macaroon.Macaroon, error) {
	clone := mac.Clone()
	if err := clone.AddFirstPartyCaveat(
		[]byte(caveat.Condition()),
	); err != nil {
		return nil, fmt.Errorf("mint: unable to attenuate: %w", err)
	}
	return clone, nil
}

// Verify recomputes the HMAC chain for mac under the mint's root key and,
// if the signature checks out, evaluates every caveat against ctx. Per
// spec §5, signature verification always completes before any caveat (and
// therefore before any more expensive check) is evaluated.
func (m *Mint) Verify(mac *macaroon.Macaroon, ctx RequestContext) error {
	rawCaveats, err := mac.VerifySignature(m.cfg.RootKey, nil)
	if err != nil {
		log.Debugf("signature check failed: %v", err)
		return fmt.Errorf("%w: %v", ErrBadSignature, err)
	}

	for _, raw := range rawCaveats {
		caveat, err := l402.ParseCaveat(string(raw))
		if err != nil {
			log.Debugf("unparseable caveat %q: %v", raw, err)
			return &UnknownCaveatError{Which: string(raw)}
		}

		if err := checkCaveat(caveat, ctx); err != nil {
			log.Debugf("caveat check failed: %v", err)
			return err
		}
	}

	return nil
}

// PaymentHash extracts the payment_hash embedded in a macaroon's
// identifier.
func PaymentHash(mac *macaroon.Macaroon) (lntypes.Hash, error) {
	id, err := l402.DecodeIdentifierBytes(mac.Id())
	if err != nil {
		return lntypes.ZeroHash, err
	}
	return id.PaymentHash, nil
}

// CheckPreimage reports whether preimage is the proof of payment for mac:
// SHA256(preimage) == payment_hash_in_identifier, compared in constant
// time per spec invariant 6.
func CheckPreimage(mac *macaroon.Macaroon, preimage lntypes.Preimage) error {
	paymentHash, err := PaymentHash(mac)
	if err != nil {
		return err
	}

	got := sha256.Sum256(preimage[:])
	if subtle.ConstantTimeCompare(got[:], paymentHash[:]) != 1 {
		return ErrPreimageMismatch
	}
	return nil
}
