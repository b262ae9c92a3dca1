package mint

import (
	"errors"
	"fmt"
)

// ErrBadSignature is returned when a macaroon's HMAC chain does not
// recompute to its claimed signature, under the given root key.
var ErrBadSignature = errors.New("mint: bad macaroon signature")

// ErrPreimageMismatch is returned when a preimage's SHA-256 hash does not
// match the payment_hash embedded in a macaroon's identifier.
var ErrPreimageMismatch = errors.New("mint: preimage does not match payment hash")

// CaveatViolatedError is returned when a macaroon's signature is valid but
// one of its caveats is not satisfied by the request context being checked.
type CaveatViolatedError struct {
	Which string
}

func (e *CaveatViolatedError) Error() string {
	return fmt.Sprintf("mint: caveat violated: %s", e.Which)
}

// UnknownCaveatError is returned when a macaroon carries a caveat whose key
// the interpreter does not recognize. The interpreter is closed: unknown
// keys fail closed rather than being ignored.
type UnknownCaveatError struct {
	Which string
}

func (e *UnknownCaveatError) Error() string {
	return fmt.Sprintf("mint: unknown caveat: %s", e.Which)
}
