// Command kvs-server runs the TCP front end over the log-structured store
// (spec.md section 4.7/4.9). Grounded on
// _examples/original_source/src/bin/kvs-server.rs, adapted from structopt
// subcommands to the flag-based CLI texture of
// _examples/gtarraga-kv-store/main.go.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"kvs"
	"kvs/internal/guard"
	"kvs/internal/store"
	"kvs/internal/telemetry"
	"kvs/pkg/engine"
	"kvs/pkg/kvserver"
	"kvs/pkg/sledengine"
)

func main() {
	addr := flag.String("addr", kvs.DefaultAddr, "TCP address to listen on")
	engineFlag := flag.String("engine", string(engine.TypeKvs), "storage backend: kvs or sled")
	dataDir := flag.String("data-dir", ".", "directory to persist segments and recovery metadata in")
	workers := flag.Int("workers", kvs.DefaultWorkerPoolSize, "worker pool size")
	metricsAddr := flag.String("metrics-addr", "", "optional address to serve Prometheus metrics on")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	log, err := telemetry.NewLogger(*debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "kvs-server: failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	engineType, err := engine.ParseType(*engineFlag)
	if err != nil {
		log.Errorw("invalid engine type", "error", err)
		os.Exit(1)
	}

	if err := guard.Check(*dataDir, engineType); err != nil {
		log.Errorw("engine type guard rejected startup", "error", err)
		os.Exit(1)
	}

	var metrics *telemetry.Metrics
	if *metricsAddr != "" {
		metrics = telemetry.NewMetrics()
		go func() {
			if err := metrics.ServeMetrics(*metricsAddr); err != nil {
				log.Errorw("metrics server stopped", "error", err)
			}
		}()
	}

	tp, err := telemetry.NewTracerProvider(os.Stderr)
	if err != nil {
		log.Errorw("failed to build tracer provider", "error", err)
		os.Exit(1)
	}
	otel.SetTracerProvider(tp)
	defer tp.Shutdown(context.Background())

	eng, err := openEngine(engineType, *dataDir, log, metrics)
	if err != nil {
		log.Errorw("failed to open engine", "error", err)
		os.Exit(1)
	}
	defer eng.Close()

	srv, err := kvserver.Listen(*addr, eng, *workers, log, metrics)
	if err != nil {
		log.Errorw("failed to start server", "error", err)
		os.Exit(1)
	}

	log.Infow("listening", "addr", srv.Addr().String(), "engine", engineType, "workers", *workers)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := srv.Run(ctx); err != nil {
		log.Errorw("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func openEngine(t engine.Type, dataDir string, log *zap.SugaredLogger, metrics *telemetry.Metrics) (engine.Engine, error) {
	switch t {
	case engine.TypeSled:
		return sledengine.Open(dataDir)
	default:
		return store.Open(store.Config{
			DataDir:             dataDir,
			MaxSegmentSize:      kvs.DefaultMaxSegmentSize,
			CompactionThreshold: kvs.DefaultCompactionThreshold,
			Logger:              log,
			Metrics:             metrics,
		})
	}
}
