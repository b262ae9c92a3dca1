package mint

import (
	"strconv"
	"time"

	"github.com/lightninglabs/l402gate/l402"
)

// RequestContext carries the facts about an incoming request that first
// party caveats are evaluated against, per spec §4.2.
type RequestContext struct {
	// Path is the HTTP request path, e.g. "/protected".
	Path string

	// Now is the time the request is being evaluated at.
	Now time.Time
}

// checkCaveat evaluates a single decoded caveat against ctx. The
// interpreter is closed: any key it does not explicitly recognize fails
// closed with UnknownCaveatError rather than being silently accepted.
func checkCaveat(c l402.Caveat, ctx RequestContext) error {
	switch c.Key {
	case l402.RequestPathKey:
		return checkRequestPath(c, ctx)

	case l402.ExpiresAtKey:
		return checkExpiresAt(c, ctx)

	default:
		return &UnknownCaveatError{Which: c.Key}
	}
}

func checkRequestPath(c l402.Caveat, ctx RequestContext) error {
	if c.Op != l402.OpEqual {
		return &UnknownCaveatError{Which: c.Condition()}
	}

	want := l402.NormalizePath(c.Value)
	got := l402.NormalizePath(ctx.Path)
	if want != got {
		return &CaveatViolatedError{Which: c.Condition()}
	}
	return nil
}

func checkExpiresAt(c l402.Caveat, ctx RequestContext) error {
	bound, err := strconv.ParseInt(c.Value, 10, 64)
	if err != nil {
		return &UnknownCaveatError{Which: c.Condition()}
	}

	now := ctx.Now.Unix()
	switch c.Op {
	case l402.OpLess:
		if !(now < bound) {
			return &CaveatViolatedError{Which: c.Condition()}
		}
	case l402.OpGreater:
		if !(now > bound) {
			return &CaveatViolatedError{Which: c.Condition()}
		}
	default:
		return &UnknownCaveatError{Which: c.Condition()}
	}
	return nil
}
