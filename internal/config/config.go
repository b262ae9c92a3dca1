// Package config loads the environment-driven configuration for the example
// l402gate binary (spec §6), the same way aperture's root Config is built
// from go-flags struct tags, except every field here is sourced from an
// environment variable rather than a yaml file or CLI flag.
package config

import (
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// LNClientType selects which lightning.Backend adapter to construct.
type LNClientType string

const (
	LNClientLND   LNClientType = "LND"
	LNClientCLN   LNClientType = "CLN"
	LNClientNWC   LNClientType = "NWC"
	LNClientLNURL LNClientType = "LNURL"
)

// LNDConfig carries the LND adapter's connection parameters.
type LNDConfig struct {
	Address      string `long:"address" env:"LND_ADDRESS" description:"host:port of the lnd node's gRPC interface"`
	MacaroonPath string `long:"macaroonpath" env:"MACAROON_FILE_PATH" description:"path to the macaroon used to authorize AddInvoice calls"`
	CertPath     string `long:"certpath" env:"CERT_FILE_PATH" description:"path to the lnd node's tls.cert"`
	Network      string `long:"network" env:"LND_NETWORK" default:"mainnet" description:"network the lnd node is running on" choice:"mainnet" choice:"testnet" choice:"regtest" choice:"simnet"`
}

// CLNConfig carries the CLN adapter's connection parameters.
type CLNConfig struct {
	RPCFilePath string `long:"rpcfilepath" env:"CLN_LIGHTNING_RPC_FILE_PATH" description:"path to core lightning's lightning-rpc unix socket"`
}

// NWCConfig carries the NWC adapter's connection parameters.
type NWCConfig struct {
	URI string `long:"uri" env:"NWC_URI" description:"nostr+walletconnect:// connection URI"`
}

// LNURLConfig carries the LNURL adapter's connection parameters.
type LNURLConfig struct {
	Address string `long:"address" env:"LNURL_ADDRESS" description:"Lightning Address or LNURL-pay string to request invoices from"`
	Network string `long:"network" env:"LNURL_NETWORK" default:"mainnet" description:"bitcoin network the decoded invoices are expected on" choice:"mainnet" choice:"testnet" choice:"regtest"`
}

// Config is the top-level configuration for the example l402gate binary,
// populated from environment variables per spec §6's table. Configuration
// errors are fatal at startup (spec §7); Load returns the first problem it
// finds as an error rather than panicking.
type Config struct {
	// LNClientType selects the backend adapter.
	LNClientType LNClientType `long:"lnclienttype" env:"LN_CLIENT_TYPE" description:"which lightning backend adapter to use" choice:"LND" choice:"CLN" choice:"NWC" choice:"LNURL"`

	// RootKey is the macaroon root key.
	RootKey string `long:"rootkey" env:"ROOT_KEY" description:"macaroon root key, sized for HMAC-SHA256"`

	// NoAcceptAuthenticateRequired disables the Accept-Authenticate gate
	// (spec §6's build-time switch).
	NoAcceptAuthenticateRequired bool `long:"noacceptauthenticaterequired" env:"NO_ACCEPT_AUTHENTICATE_REQUIRED" description:"challenge every unauthenticated request instead of requiring Accept-Authenticate: L402"`

	// BackendTimeout bounds every call to the selected backend's
	// AddInvoice.
	BackendTimeout time.Duration `long:"backendtimeout" env:"BACKEND_TIMEOUT" default:"10s" description:"timeout applied to each AddInvoice call"`

	// ListenAddr is the address the example HTTP server listens on.
	ListenAddr string `long:"listenaddr" env:"LISTEN_ADDR" default:":8080" description:"address the example server listens on"`

	// DebugLevel sets the verbosity of every registered sub-logger.
	DebugLevel string `long:"debuglevel" env:"DEBUG_LEVEL" default:"info" description:"log level applied to every subsystem logger"`

	LND   LNDConfig   `group:"lnd" namespace:"lnd"`
	CLN   CLNConfig   `group:"cln" namespace:"cln"`
	NWC   NWCConfig   `group:"nwc" namespace:"nwc"`
	LNURL LNURLConfig `group:"lnurl" namespace:"lnurl"`
}

// Load parses the configuration from the process environment via go-flags'
// env tag support and validates the result. It does not consult os.Args:
// this module is configured entirely by environment variables per spec §6,
// so command-line flags are left to whatever wraps the example binary.
func Load() (*Config, error) {
	return parse(nil)
}

// parse runs the go-flags parser against args (nil meaning "no CLI flags,
// environment only") and validates the result. Split out from Load so
// tests can exercise the parsing and validation logic without touching the
// real os.Args of the test binary.
func parse(args []string) (*Config, error) {
	cfg := &Config{}

	parser := flags.NewParser(cfg, flags.None)
	if _, err := parser.ParseArgs(args); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks that every field required by the selected LN_CLIENT_TYPE
// is present, in the style of aperture's AuthConfig.validate switch over
// its connection modes.
func (c *Config) validate() error {
	if c.RootKey == "" {
		return fmt.Errorf("config: ROOT_KEY is required")
	}

	switch c.LNClientType {
	case LNClientLND:
		if c.LND.Address == "" {
			return fmt.Errorf("config: LND_ADDRESS is required for LN_CLIENT_TYPE=LND")
		}
		if c.LND.MacaroonPath == "" {
			return fmt.Errorf("config: MACAROON_FILE_PATH is required for LN_CLIENT_TYPE=LND")
		}
		if c.LND.CertPath == "" {
			return fmt.Errorf("config: CERT_FILE_PATH is required for LN_CLIENT_TYPE=LND")
		}

	case LNClientCLN:
		if c.CLN.RPCFilePath == "" {
			return fmt.Errorf("config: CLN_LIGHTNING_RPC_FILE_PATH is required for LN_CLIENT_TYPE=CLN")
		}

	case LNClientNWC:
		if c.NWC.URI == "" {
			return fmt.Errorf("config: NWC_URI is required for LN_CLIENT_TYPE=NWC")
		}

	case LNClientLNURL:
		if c.LNURL.Address == "" {
			return fmt.Errorf("config: LNURL_ADDRESS is required for LN_CLIENT_TYPE=LNURL")
		}

	default:
		return fmt.Errorf("config: LN_CLIENT_TYPE must be one of "+
			"LND, CLN, NWC, LNURL, got %q", c.LNClientType)
	}

	return nil
}
