package l402

import (
	"fmt"
	"regexp"
)

// CaveatOp is one of the comparison operators a first-party caveat predicate
// may use.
type CaveatOp string

const (
	// OpEqual is exact string match, e.g. "RequestPath = /protected".
	OpEqual CaveatOp = "="

	// OpLess is a numeric less-than comparison, e.g. "expires_at < 123".
	OpLess CaveatOp = "<"

	// OpGreater is a numeric greater-than comparison.
	OpGreater CaveatOp = ">"
)

// RequestPathKey is the reference first-party caveat key: it restricts a
// token to a single request path.
const RequestPathKey = "RequestPath"

// ExpiresAtKey restricts a token to requests made before a Unix timestamp.
const ExpiresAtKey = "expires_at"

// caveatRegexp splits a caveat condition of the form "key op value" into its
// three parts. Keys are restricted to a conservative identifier alphabet;
// values may contain arbitrary characters (e.g. a request path).
var caveatRegexp = regexp.MustCompile(`^([A-Za-z0-9_.]+)\s*([=<>])\s*(.*)$`)

// Caveat is a single first-party predicate appended to a macaroon, as
// described in spec §3/§4.2: one line of the form "key op value".
type Caveat struct {
	Key   string
	Op    CaveatOp
	Value string
}

// NewPathCaveat builds the reference RequestPath caveat.
func NewPathCaveat(path string) Caveat {
	return Caveat{Key: RequestPathKey, Op: OpEqual, Value: path}
}

// NewExpiryCaveat builds an expires_at caveat that is satisfied as long as
// the request's current time is strictly less than unixTS.
func NewExpiryCaveat(unixTS int64) Caveat {
	return Caveat{
		Key:   ExpiresAtKey,
		Op:    OpLess,
		Value: fmt.Sprintf("%d", unixTS),
	}
}

// Condition renders the caveat into the "key op value" wire form that is
// appended to a macaroon as a first-party caveat ID.
func (c Caveat) Condition() string {
	return fmt.Sprintf("%s%s%s", c.Key, c.Op, c.Value)
}

// ParseCaveat parses the wire form of a first-party caveat condition.
func ParseCaveat(condition string) (Caveat, error) {
	matches := caveatRegexp.FindStringSubmatch(condition)
	if matches == nil {
		return Caveat{}, fmt.Errorf("%w: malformed caveat %q",
			ErrMalformedToken, condition)
	}

	return Caveat{
		Key:   matches[1],
		Op:    CaveatOp(matches[2]),
		Value: matches[3],
	}, nil
}

// NormalizePath strips exactly one leading slash so that "RequestPath = /a"
// and "RequestPath = a" are treated identically, per spec §4.2's
// normalization rule for the reference caveat. It is applied to both the
// caveat's stored value and the incoming request path before comparison.
func NormalizePath(path string) string {
	if len(path) > 0 && path[0] == '/' {
		return path[1:]
	}
	return path
}
