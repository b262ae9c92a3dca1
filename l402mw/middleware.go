// Package l402mw implements the L402 protocol engine (spec §4.8): the
// per-request state machine that classifies a request as free, challenges it
// with a fresh invoice and token, or admits it once a valid preimage is
// presented. It is an http.Handler wrapper in the style of aperture's
// auth.Authenticator + proxy.Proxy.ServeHTTP split, collapsed into a single
// middleware since this module does not reverse-proxy to a separate backend
// process.
package l402mw

import (
	"context"
	"net/http"
	"time"

	"github.com/lightningnetwork/lnd/lntypes"

	"github.com/lightninglabs/l402gate/internal/build"
	"github.com/lightninglabs/l402gate/l402"
	"github.com/lightninglabs/l402gate/lightning"
	"github.com/lightninglabs/l402gate/mint"
)

var log = build.NewSubLogger("L402MW", nil)

// Classification is the per-request outcome of the protocol engine, spec §3.
type Classification int

const (
	// Free means the request was not gated: either the route itself is
	// free, or the client did not opt in via Accept-Authenticate and the
	// Accept-Authenticate gate is enabled.
	Free Classification = iota

	// PaymentRequired means no valid Authorization was presented; a
	// fresh invoice and token pair was minted and returned as a 402.
	PaymentRequired

	// Paid means the Authorization header parsed, the macaroon verified,
	// and the preimage matched the embedded payment hash.
	Paid

	// Error means parsing or backend failure occurred.
	Error
)

func (c Classification) String() string {
	switch c {
	case Free:
		return "FREE"
	case PaymentRequired:
		return "PAYMENT_REQUIRED"
	case Paid:
		return "PAID"
	case Error:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// classificationContextKey is the context key the engine stamps a request's
// Classification under, for downstream handlers to inspect.
type classificationContextKey struct{}

// ClassificationFromContext returns the Classification the engine assigned
// to the request carried by ctx, if any.
func ClassificationFromContext(ctx context.Context) (Classification, bool) {
	c, ok := ctx.Value(classificationContextKey{}).(Classification)
	return c, ok
}

// minSatMsat is the 1-satoshi floor amount_fn results are clamped to.
const minSatMsat = 1000

// AmountFunc computes the price, in millisatoshis, to charge for req.
type AmountFunc func(req *http.Request) int64

// CaveatFunc computes the first-party caveats to attach to a freshly minted
// token for req. Most services will at least attach a RequestPath caveat.
type CaveatFunc func(req *http.Request) []l402.Caveat

// Middleware wraps a protected http.Handler with the L402 challenge/verify
// state machine.
type Middleware struct {
	mint     *mint.Mint
	backend  lightning.Backend
	amountFn AmountFunc
	caveatFn CaveatFunc

	requireAcceptAuthenticate bool
	backendTimeout            time.Duration
}

// Option customizes a Middleware at construction time.
type Option func(*Middleware)

// WithoutAcceptAuthenticateGate disables the default requirement that a
// client send "Accept-Authenticate: L402" before being challenged. With this
// option set, every unauthenticated request to a wrapped handler is
// challenged.
func WithoutAcceptAuthenticateGate() Option {
	return func(m *Middleware) {
		m.requireAcceptAuthenticate = false
	}
}

// WithBackendTimeout overrides the default 10s per-call timeout applied to
// backend.AddInvoice.
func WithBackendTimeout(d time.Duration) Option {
	return func(m *Middleware) {
		m.backendTimeout = d
	}
}

// New constructs a Middleware. amountFn and caveatFn are called once per
// challenged request; amountFn's result is clamped to the 1-sat floor.
func New(mt *mint.Mint, backend lightning.Backend, amountFn AmountFunc,
	caveatFn CaveatFunc, opts ...Option) *Middleware {

	m := &Middleware{
		mint:                      mt,
		backend:                   backend,
		amountFn:                  amountFn,
		caveatFn:                  caveatFn,
		requireAcceptAuthenticate: true,
		backendTimeout:            10 * time.Second,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Wrap returns an http.Handler that runs the L402 state machine in front of
// next.
func (m *Middleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case l402.HasAuthorization(r.Header):
			m.verify(w, r, next)

		case !m.requireAcceptAuthenticate || l402.AcceptsL402(r.Header):
			m.challenge(w, r)

		default:
			next.ServeHTTP(w, m.classify(r, Free))
		}
	})
}

// classify stamps r's context with c and returns the updated request.
func (m *Middleware) classify(r *http.Request, c Classification) *http.Request {
	ctx := context.WithValue(r.Context(), classificationContextKey{}, c)
	return r.WithContext(ctx)
}

// challenge implements the CHALLENGE state: mint an invoice and a token
// bound to its payment hash, and reply with a 402.
func (m *Middleware) challenge(w http.ResponseWriter, r *http.Request) {
	amountMsat := m.amountFn(r)
	if amountMsat < minSatMsat {
		amountMsat = minSatMsat
	}

	ctx, cancel := context.WithTimeout(r.Context(), m.backendTimeout)
	defer cancel()

	bolt11, paymentHashBytes, err := m.backend.AddInvoice(
		ctx, uint64(amountMsat), "l402",
	)
	if err != nil {
		log.Errorf("add_invoice failed: %v", err)
		http.Error(w, "payment backend unavailable", http.StatusInternalServerError)
		return
	}
	paymentHash := lntypes.Hash(paymentHashBytes)

	caveats := m.caveatFn(r)
	mac, err := m.mint.Mint(paymentHash, caveats)
	if err != nil {
		log.Errorf("mint failed: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	macBase64, err := l402.Encode(mac)
	if err != nil {
		log.Errorf("encoding macaroon failed: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	l402.WriteChallenge(w.Header(), macBase64, bolt11)
	m.classify(r, PaymentRequired)
	w.WriteHeader(http.StatusPaymentRequired)
	w.Write([]byte("payment required"))
}

// verify implements the VERIFY state: parse, verify the macaroon, and check
// the preimage against the embedded payment hash, admitting on success.
func (m *Middleware) verify(w http.ResponseWriter, r *http.Request, next http.Handler) {
	mac, preimage, err := l402.ParseAuthorization(r.Header)
	if err != nil {
		log.Debugf("rejecting request: %v", err)
		http.Error(w, "invalid token", http.StatusInternalServerError)
		return
	}

	reqCtx := mint.RequestContext{Path: r.URL.Path, Now: time.Now()}
	if err := m.mint.Verify(mac, reqCtx); err != nil {
		log.Debugf("rejecting request: %v", err)
		http.Error(w, "invalid token", http.StatusInternalServerError)
		return
	}

	if err := mint.CheckPreimage(mac, preimage); err != nil {
		log.Debugf("rejecting request: %v", err)
		http.Error(w, "invalid token", http.StatusInternalServerError)
		return
	}

	next.ServeHTTP(w, m.classify(r, Paid))
}
