// Package kvs is the public entry point for the store: configuration
// (Options / functional OptionFuncs) and the small set of types a caller
// embedding this module as a library needs. Grounded on the functional-
// options pattern in _examples/iamNilotpal-ignite/pkg/options, and on the
// crate root (src/lib.rs) of _examples/original_source, which re-exports
// the pieces a caller of the kvs crate needs (EngineType, Result, the
// client and server types).
package kvs

import (
	"kvs/pkg/engine"
)

const (
	// DefaultMaxSegmentSize bounds how large a segment file grows before
	// rotation. spec.md section 9 notes the reference implementation used
	// inconsistent values (1 MiB to 100 MiB) across variants; 2 MiB is
	// chosen here to keep segment counts and recovery replay time small for
	// the interactive/CLI workloads this store targets, while still being
	// large enough that rotation doesn't churn on ordinary traffic.
	DefaultMaxSegmentSize int64 = 2 * 1024 * 1024

	// DefaultCompactionThreshold is the initial dead-record count above
	// which compaction runs, per spec.md section 4.3's open/recovery
	// algorithm.
	DefaultCompactionThreshold = 64

	// DefaultWorkerPoolSize is used when the caller doesn't size the pool
	// explicitly; it mirrors the reference server's RayonThreadPool::new(4).
	DefaultWorkerPoolSize = 4

	// DefaultAddr is the TCP address the server binds by default.
	DefaultAddr = "127.0.0.1:4000"
)

// Options configures a Store and the server that fronts it.
type Options struct {
	DataDir             string
	MaxSegmentSize      int64
	CompactionThreshold int
	WorkerPoolSize      int
	Addr                string
	EngineType          engine.Type
	MetricsAddr         string // empty disables the optional /metrics endpoint
}

// OptionFunc mutates an Options in place.
type OptionFunc func(*Options)

// NewDefaultOptions returns an Options populated with this package's
// defaults.
func NewDefaultOptions() Options {
	return Options{
		DataDir:             ".",
		MaxSegmentSize:      DefaultMaxSegmentSize,
		CompactionThreshold: DefaultCompactionThreshold,
		WorkerPoolSize:      DefaultWorkerPoolSize,
		Addr:                DefaultAddr,
		EngineType:          engine.TypeKvs,
	}
}

// WithDataDir sets the directory the engine persists segments and recovery
// metadata under.
func WithDataDir(dir string) OptionFunc {
	return func(o *Options) {
		if dir != "" {
			o.DataDir = dir
		}
	}
}

// WithMaxSegmentSize overrides the segment rotation threshold.
func WithMaxSegmentSize(size int64) OptionFunc {
	return func(o *Options) {
		if size > 0 {
			o.MaxSegmentSize = size
		}
	}
}

// WithCompactionThreshold overrides the initial compaction threshold.
func WithCompactionThreshold(threshold int) OptionFunc {
	return func(o *Options) {
		if threshold > 0 {
			o.CompactionThreshold = threshold
		}
	}
}

// WithWorkerPoolSize overrides the TCP server's worker pool size.
func WithWorkerPoolSize(n int) OptionFunc {
	return func(o *Options) {
		if n > 0 {
			o.WorkerPoolSize = n
		}
	}
}

// WithAddr overrides the TCP bind address.
func WithAddr(addr string) OptionFunc {
	return func(o *Options) {
		if addr != "" {
			o.Addr = addr
		}
	}
}

// WithEngineType overrides the storage backend.
func WithEngineType(t engine.Type) OptionFunc {
	return func(o *Options) {
		if t != "" {
			o.EngineType = t
		}
	}
}

// WithMetricsAddr enables the optional Prometheus /metrics endpoint on addr.
func WithMetricsAddr(addr string) OptionFunc {
	return func(o *Options) {
		o.MetricsAddr = addr
	}
}

// Apply builds an Options from defaults plus the given overrides.
func Apply(opts ...OptionFunc) Options {
	o := NewDefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
