package ustore

import (
	"time"

	"github.com/mwantia/ustore/layer"
	"github.com/mwantia/ustore/log"
)

type OperatorOptions struct {
	Layers  []layer.Layer
	Logger  *log.Logger
	Timeout time.Duration
}

type OperatorOption func(*OperatorOptions) error

func newDefaultOperatorOptions() *OperatorOptions {
	return &OperatorOptions{
		Logger: log.NewLogger("ustore", log.Info, "", false),
	}
}

// WithLayers registers middleware layers in construction order.
// The first listed layer ends up outermost.
func WithLayers(layers ...layer.Layer) OperatorOption {
	return func(opts *OperatorOptions) error {
		opts.Layers = append(opts.Layers, layers...)
		return nil
	}
}

// WithLogger replaces the operator's logger.
func WithLogger(logger *log.Logger) OperatorOption {
	return func(opts *OperatorOptions) error {
		opts.Logger = logger
		return nil
	}
}

// WithLogLevel adjusts the default logger's level.
func WithLogLevel(level log.LogLevel) OperatorOption {
	return func(opts *OperatorOptions) error {
		opts.Logger.Level = level
		return nil
	}
}

// WithTimeout sets a default per-operation timeout, applied when the
// caller's context carries no deadline. Streaming reads are exempt.
func WithTimeout(timeout time.Duration) OperatorOption {
	return func(opts *OperatorOptions) error {
		opts.Timeout = timeout
		return nil
	}
}
