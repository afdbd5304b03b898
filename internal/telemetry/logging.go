// Package telemetry wires the ambient observability stack (spec.md
// section 3.1 of SPEC_FULL.md): structured logging via zap, optional
// Prometheus metrics, and optional OpenTelemetry tracing. The logger and
// metrics are passed explicitly; the only process-wide state is the global
// OpenTelemetry TracerProvider that Tracer reads from.
package telemetry

import "go.uber.org/zap"

// NewLogger builds the single SugaredLogger created once at process start
// and threaded through every constructor as an explicit dependency,
// grounded on _examples/iamNilotpal-ignite's Config.Logger pattern.
func NewLogger(debug bool) (*zap.SugaredLogger, error) {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}

// NewNop returns a logger that discards everything, for tests that don't
// want log noise.
func NewNop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
