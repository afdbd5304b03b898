// Package kvserver implements the TCP front end (spec.md section 4.7: C7):
// accept connections, read one line-delimited Request per line, dispatch
// the engine call, write back one line-delimited Response. Grounded on
// KvServer::run in _examples/original_source/src/server.rs, with connection
// handling dispatched onto the worker pool instead of running inline.
package kvserver

import (
	"bufio"
	"context"
	"fmt"
	"net"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"kvs/internal/kverrors"
	"kvs/internal/pool"
	"kvs/internal/telemetry"
	"kvs/pkg/engine"
	"kvs/pkg/protocol"
)

// Server accepts connections on a TCP listener and services them against a
// storage engine through a fixed-size worker pool.
type Server struct {
	listener net.Listener
	engine   engine.Engine
	pool     *pool.Pool
	log      *zap.SugaredLogger
	tracer   trace.Tracer
}

// Listen binds addr and constructs a Server backed by eng, with a worker
// pool of the given size. A nil logger becomes a no-op logger.
func Listen(addr string, eng engine.Engine, workers int, log *zap.SugaredLogger, metrics *telemetry.Metrics) (*Server, error) {
	if log == nil {
		log = telemetry.NewNop()
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, kverrors.Startup("bind server address", err).WithKey(addr)
	}
	return &Server{
		listener: ln,
		engine:   eng,
		pool:     pool.New(workers, log, metrics),
		log:      log,
		tracer:   telemetry.Tracer("kvs/server"),
	}, nil
}

// Addr returns the address the server is listening on.
func (s *Server) Addr() net.Addr { return s.listener.Addr() }

// Run accepts connections until ctx is canceled, dispatching each to the
// worker pool. It returns once the accept loop has stopped and every
// in-flight connection handler has drained.
func (s *Server) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-ctx.Done()
		return s.listener.Close()
	})

	g.Go(func() error {
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-ctx.Done():
					return nil
				default:
					return kverrors.IO("accept connection", err)
				}
			}
			connID := uuid.New().String()
			s.pool.Submit(func() {
				s.handleConn(ctx, connID, conn)
			})
		}
	})

	err := g.Wait()
	s.pool.Shutdown()
	return err
}

// Close releases the listener without waiting for in-flight connections.
func (s *Server) Close() error {
	return s.listener.Close()
}

func (s *Server) handleConn(ctx context.Context, connID string, conn net.Conn) {
	defer conn.Close()
	log := s.log.With("conn", connID, "remote", conn.RemoteAddr().String())
	log.Debugw("connection accepted")

	reader := bufio.NewReader(conn)
	writer := bufio.NewWriter(conn)

	for {
		line, err := protocol.ReadLine(reader)
		if err != nil {
			log.Debugw("connection closed", "cause", err)
			return
		}

		_, span := s.tracer.Start(ctx, "handle_request")
		resp, ok := s.dispatch(line, log)
		span.End()
		if !ok {
			return
		}

		out, err := protocol.EncodeResponse(resp)
		if err != nil {
			log.Errorw("failed to encode response", "error", err)
			return
		}
		if _, err := writer.Write(out); err != nil {
			log.Debugw("failed to write response", "error", err)
			return
		}
		if err := writer.Flush(); err != nil {
			log.Debugw("failed to flush response", "error", err)
			return
		}
	}
}

// dispatch decodes and executes a single request line. It reports ok=false
// for a malformed request line, which terminates only this connection (the
// caller returns after logging), never the server (spec.md section 4.6).
func (s *Server) dispatch(line []byte, log *zap.SugaredLogger) (protocol.Response, bool) {
	req, err := protocol.DecodeRequest(line)
	if err != nil {
		log.Warnw("malformed request", "error", err)
		return protocol.Response{}, false
	}
	log.Debugw("request", "op", req.Op, "key", req.Key)

	var resp protocol.Response
	switch req.Op {
	case protocol.OpGet:
		value, ok, err := s.engine.Get(req.Key)
		switch {
		case err != nil:
			resp = protocol.ErrResponse(err.Error())
		case !ok:
			resp = protocol.OkResponse(fmt.Sprintf("Key: %s not found", req.Key))
		default:
			resp = protocol.OkResponse(value)
		}
	case protocol.OpSet:
		if err := s.engine.Set(req.Key, req.Value); err != nil {
			resp = protocol.ErrResponse(err.Error())
		} else {
			resp = protocol.OkResponse("")
		}
	case protocol.OpRm:
		if err := s.engine.Remove(req.Key); err != nil {
			resp = protocol.ErrResponse(err.Error())
		} else {
			resp = protocol.OkResponse("")
		}
	}

	if err := s.engine.Flush(); err != nil {
		log.Errorw("flush failed", "error", err)
	}
	log.Debugw("response", "outcome", resp.Outcome)
	return resp, true
}
