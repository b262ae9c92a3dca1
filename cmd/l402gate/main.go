// Command l402gate demonstrates wiring the l402mw protocol engine in front
// of an ordinary HTTP handler (spec §6): it loads Config, constructs the
// Lightning backend adapter LN_CLIENT_TYPE selects, and serves one example
// protected route.
package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/lightninglabs/l402gate/internal/build"
	"github.com/lightninglabs/l402gate/internal/config"
	"github.com/lightninglabs/l402gate/l402"
	"github.com/lightninglabs/l402gate/l402mw"
	"github.com/lightninglabs/l402gate/lightning"
	"github.com/lightninglabs/l402gate/lightning/cln"
	"github.com/lightninglabs/l402gate/lightning/lnd"
	"github.com/lightninglabs/l402gate/lightning/lnurl"
	"github.com/lightninglabs/l402gate/lightning/nwc"
	"github.com/lightninglabs/l402gate/mint"
)

var log = build.NewSubLogger("MAIN", nil)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	build.SetLogLevel(cfg.DebugLevel)

	backend, err := newBackend(cfg)
	if err != nil {
		return fmt.Errorf("constructing lightning backend: %w", err)
	}

	mt, err := mint.New(mint.Config{
		RootKey:  []byte(cfg.RootKey),
		Location: "l402gate",
	})
	if err != nil {
		return fmt.Errorf("constructing mint: %w", err)
	}

	var opts []l402mw.Option
	if cfg.NoAcceptAuthenticateRequired {
		opts = append(opts, l402mw.WithoutAcceptAuthenticateGate())
	}
	opts = append(opts, l402mw.WithBackendTimeout(cfg.BackendTimeout))

	middleware := l402mw.New(mt, backend, exampleAmount, exampleCaveats, opts...)

	mux := http.NewServeMux()
	mux.Handle("/protected", middleware.Wrap(exampleHandler()))

	log.Infof("listening on %s (ln_client_type=%s)", cfg.ListenAddr,
		cfg.LNClientType)
	return http.ListenAndServe(cfg.ListenAddr, mux)
}

// newBackend constructs the lightning.Backend the configured LN_CLIENT_TYPE
// selects.
func newBackend(cfg *config.Config) (lightning.Backend, error) {
	switch cfg.LNClientType {
	case config.LNClientLND:
		return lnd.NewBackend(lnd.Config{
			Host:         cfg.LND.Address,
			TLSCertPath:  cfg.LND.CertPath,
			MacaroonPath: cfg.LND.MacaroonPath,
			Network:      cfg.LND.Network,
		}), nil

	case config.LNClientCLN:
		return cln.NewBackend(cln.Config{
			SocketPath: cfg.CLN.RPCFilePath,
		}), nil

	case config.LNClientNWC:
		nwcCfg, err := nwc.ParseURI(cfg.NWC.URI)
		if err != nil {
			return nil, fmt.Errorf("parsing NWC_URI: %w", err)
		}
		return nwc.NewBackend(nwcCfg), nil

	case config.LNClientLNURL:
		return lnurl.NewBackend(lnurl.Config{
			Address: cfg.LNURL.Address,
			Network: cfg.LNURL.Network,
		})

	default:
		return nil, fmt.Errorf("unknown LN_CLIENT_TYPE %q", cfg.LNClientType)
	}
}

// exampleAmount charges a flat 1 sat for every request to the example
// protected route. A real service would price by path, method or body.
func exampleAmount(*http.Request) int64 {
	return 1000
}

// exampleCaveats attaches a RequestPath caveat scoping the minted token to
// the route it was issued for.
func exampleCaveats(r *http.Request) []l402.Caveat {
	return []l402.Caveat{l402.NewPathCaveat(r.URL.Path)}
}

// exampleHandler is the protected route gated by the middleware: once
// admitted, it reports the classification the engine assigned the request.
func exampleHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		class, _ := l402mw.ClassificationFromContext(r.Context())
		log.Debugf("serving %s request classified as %s", r.URL.Path, class)
		w.Write([]byte("ok"))
	})
}
