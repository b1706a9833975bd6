package vec

import "go.uber.org/zap"

// options holds configuration settings for a Vector.
type options struct {
	memory Memory
	logger *zap.Logger
}

// Option defines a function type for configuring a Vector.
type Option func(*options)

// WithMemory places the vector's storage in blocks obtained from memory
// (an Arena, MmapMemory, MetricsMemory...) instead of typed Go heap slices.
// The element type must not hold pointers; New panics with a TypeError otherwise.
func WithMemory(memory Memory) Option {
	return func(o *options) {
		o.memory = memory
	}
}

// WithLogger sets the logger used for relocation and contract-violation events.
// Default: zap.NewNop().
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func newOptions(ops []Option) options {
	opts := options{logger: zap.NewNop()}
	for _, op := range ops {
		op(&opts)
	}
	return opts
}
