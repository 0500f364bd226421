// Package logger builds the zap loggers used by the binary. Both modes write
// to stderr so report tables printed on stdout stay clean.
package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects the encoder and level of a logger.
type Options struct {
	// Development switches to the console encoder with colored levels.
	Development bool
	// Level is one of debug, info, warn or error. Empty keeps the mode default.
	Level string
	// Name is attached to every entry as the logger name.
	Name string
}

// New builds a logger writing to stderr.
func New(opts Options) (*zap.Logger, error) {
	var cfg zap.Config
	if opts.Development {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	cfg.OutputPaths = []string{"stderr"}

	if opts.Level != "" {
		lvl, err := zap.ParseAtomicLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("parsing log level: %w", err)
		}
		cfg.Level = lvl
	}

	log, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	if opts.Name != "" {
		log = log.Named(opts.Name)
	}
	return log, nil
}

// Must is New that panics on error.
func Must(opts Options) *zap.Logger {
	log, err := New(opts)
	if err != nil {
		panic(err)
	}
	return log
}
