// Package logging builds the zap loggers used across pointcloudviz.
//
// Loggers are constructed once in the command layer and injected into the
// store loader, the reconstructor and the HTTP server. There is no process
// wide default logger.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options carries the parameters required to construct a logger
type Options struct {
	// Level is one of debug, info, warn, error. Unknown values fall back to info.
	Level string

	// Format is "json" or "console"
	Format string

	// OutputPaths defaults to stderr when empty
	OutputPaths []string
}

// ParseLevel converts a textual level to a zapcore.Level
func ParseLevel(s string) zapcore.Level {
	switch strings.ToLower(s) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// New constructs a zap logger according to opts
func New(opts Options) (*zap.Logger, error) {
	if len(opts.OutputPaths) == 0 {
		opts.OutputPaths = []string{"stderr"}
	}

	var encCfg zapcore.EncoderConfig
	encoding := "json"
	if opts.Format == "console" {
		encCfg = zap.NewDevelopmentEncoderConfig()
		encoding = "console"
	} else {
		encCfg = zap.NewProductionEncoderConfig()
	}
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	zapCfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(ParseLevel(opts.Level)),
		Development:      opts.Format == "console",
		Encoding:         encoding,
		EncoderConfig:    encCfg,
		OutputPaths:      opts.OutputPaths,
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}
