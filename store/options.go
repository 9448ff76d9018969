package store

import (
	"github.com/on-the-ground/saga_ive_go/config"
	"go.uber.org/zap"
)

type options struct {
	cfg           config.Config
	logger        *zap.Logger
	onCommitError func(error)
}

type Option func(*options)

// WithConfig applies a loaded configuration.
func WithConfig(cfg config.Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithDebug turns the dispatch/commit debug hook on or off.
func WithDebug(debug bool) Option {
	return func(o *options) { o.cfg.Debug = debug }
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// OnCommitError is called, on the loop, with every aborted batch's error.
func OnCommitError(fn func(error)) Option {
	return func(o *options) { o.onCommitError = fn }
}
