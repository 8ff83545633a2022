// Package postduck implements a PostgreSQL v3 wire protocol gateway in front
// of an embedded analytic SQL engine. Clients connect with ordinary
// PostgreSQL drivers; the gateway performs the startup negotiation, drives a
// per-connection session state machine and translates engine results into
// typed field descriptions and text-format data rows.
package postduck

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/fanvanzh/postduck/engine"
	"github.com/fanvanzh/postduck/metrics"
)

// DefaultEngineConcurrency bounds the number of engine statements executing
// at the same time across all sessions.
const DefaultEngineConcurrency = 4

// ListenAndServe opens a new gateway on the given address backed by the given
// engine database, using default configurations.
func ListenAndServe(address string, db engine.Database) error {
	server, err := NewServer(db)
	if err != nil {
		return err
	}

	return server.ListenAndServe(address)
}

// NewServer constructs a new gateway server on top of the given engine
// database handle.
func NewServer(db engine.Database, options ...OptionFn) (*Server, error) {
	if db == nil {
		return nil, errors.New("an engine database handle is required")
	}

	srv := &Server{
		engine:      db,
		logger:      slog.Default(),
		closer:      make(chan struct{}),
		types:       pgtype.NewMap(),
		keys:        newKeyRegistry(),
		Datadir:     ".",
		Concurrency: DefaultEngineConcurrency,
	}

	for _, option := range options {
		err := option(srv)
		if err != nil {
			return nil, fmt.Errorf("unexpected error while attempting to configure a new server: %w", err)
		}
	}

	if srv.Concurrency <= 0 {
		srv.Concurrency = DefaultEngineConcurrency
	}
	srv.workers = make(chan struct{}, srv.Concurrency)

	return srv, nil
}

// Server accepts PostgreSQL client connections and serves each of them with a
// dedicated session bound to a fresh engine connection.
type Server struct {
	closing atomic.Bool
	wg      sync.WaitGroup
	logger  *slog.Logger
	types   *pgtype.Map
	engine  engine.Database
	keys    *keyRegistry
	workers chan struct{}
	closer  chan struct{}

	// Auth holds the authentication strategy announced to connecting
	// clients. When nil the peer is trusted and AuthenticationOk is written
	// immediately.
	Auth AuthStrategy

	// Parameters holds additional server parameters announced to the client
	// during startup.
	Parameters Parameters

	// Datadir is the directory holding the engine's on-disk database files,
	// without a trailing separator.
	Datadir string

	// BufferedMsgSize bounds the size of inbound protocol messages.
	BufferedMsgSize int

	// Concurrency bounds the number of engine statements executing at once.
	Concurrency int

	// Version is the server version string advertised during startup.
	Version string
}

// ListenAndServe opens a TCP listener on the given address and starts
// accepting and serving incoming client connections.
func (srv *Server) ListenAndServe(address string) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return err
	}

	return srv.Serve(listener)
}

// Serve accepts and serves incoming client connections on the given listener.
// The listener is closed once the server is gracefully closed.
func (srv *Server) Serve(listener net.Listener) error {
	defer srv.logger.Info("closing server")

	srv.logger.Info("serving incoming connections", slog.String("addr", listener.Addr().String()))
	srv.wg.Add(1)

	go func() {
		defer srv.wg.Done()
		<-srv.closer

		err := listener.Close()
		if err != nil {
			srv.logger.Error("unexpected error while attempting to close the net listener", "err", err)
		}
	}()

	for {
		conn, err := listener.Accept()
		if errors.Is(err, net.ErrClosed) {
			return nil
		}

		if err != nil {
			srv.logger.Error("accept error", "err", err)
			continue
		}

		go func() {
			ctx := context.Background()
			err := srv.serve(ctx, conn)
			if err != nil {
				srv.logger.Error("an unexpected error got returned while serving a client connection", "err", err)
			}
		}()
	}
}

func (srv *Server) serve(ctx context.Context, conn net.Conn) error {
	defer conn.Close()

	metrics.ConnectionsTotal.Inc()
	metrics.ActiveSessions.Inc()
	defer metrics.ActiveSessions.Dec()

	srv.logger.Debug("serving a new client connection", slog.String("peer", conn.RemoteAddr().String()))

	sess := newSession(srv, conn)
	return sess.serve(ctx)
}

// Close gracefully closes the underlying server and waits for in-flight
// commands to complete.
func (srv *Server) Close() error {
	if srv.closing.Load() {
		return nil
	}

	srv.closing.Store(true)
	close(srv.closer)
	srv.wg.Wait()
	return nil
}
