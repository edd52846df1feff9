// Package logging builds the zap loggers injected into the engines.
package logging

import (
	"go.uber.org/zap"
)

// New returns the process logger. Debug selects the development config with
// human-readable output and debug level; otherwise the production config.
func New(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.DisableStacktrace = true
	return cfg.Build()
}
