// Package build wires up the per-subsystem loggers shared by every package
// in this module, the same way lightninglabs/aperture's root log.go does.
package build

import (
	"github.com/btcsuite/btclog/v2"
	"github.com/lightningnetwork/lnd/build"
)

// logWriter is the shared rotating log writer every subsystem logger is
// registered against, so a single call to SetLogLevel affects the whole
// module.
var logWriter = build.NewRotatingLogWriter()

// NewSubLogger creates and registers a logger for the given subsystem tag
// (a short, all-caps mnemonic in the style of aperture's "APER", "MINT",
// "LNDC" tags) and wires it into useLogger if provided, so packages that
// expose their own UseLogger hook (like lndclient) share the same writer.
func NewSubLogger(subsystem string, useLogger func(btclog.Logger)) btclog.Logger {
	logger := build.NewSubLogger(subsystem, logWriter.GenSubLogger)
	logWriter.RegisterSubLogger(subsystem, logger)
	if useLogger != nil {
		useLogger(logger)
	}
	return logger
}

// SetLogLevel sets the log level of every registered subsystem logger. It is
// exposed so the example binary's config can apply a single verbosity
// setting across the whole module.
func SetLogLevel(level string) {
	logWriter.SetLogLevels(level)
}
