package saga

import (
	"github.com/on-the-ground/saga_ive_go/lens"
	"go.uber.org/zap"
)

type options struct {
	lens   lens.Lens
	origin string
	logger *zap.Logger
}

type Option func(*options)

// WithLens scopes the runtime to a sub-state: Effects.State views through l
// and CallAction applies creators' updates at l.
func WithLens(l lens.Lens) Option {
	return func(o *options) { o.lens = l }
}

// WithOrigin scopes the runtime to one action source: Take and TakeEvery
// only see actions whose Origin is origin, and CallAction stamps it on the
// actions it dispatches.
func WithOrigin(origin string) Option {
	return func(o *options) { o.origin = origin }
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}
