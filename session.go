package postduck

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fanvanzh/postduck/codes"
	psqlerr "github.com/fanvanzh/postduck/errors"
	"github.com/fanvanzh/postduck/engine"
	"github.com/fanvanzh/postduck/metrics"
	"github.com/fanvanzh/postduck/pkg/buffer"
	"github.com/fanvanzh/postduck/pkg/types"
)

// NewErrUnimplementedMessageType is returned whenever a client sends a
// message type the gateway does not implement, such as the extended query
// protocol.
func NewErrUnimplementedMessageType(t types.ClientMessage) error {
	err := fmt.Errorf("unimplemented client message type: %s", t)
	return psqlerr.WithSeverity(psqlerr.WithCode(err, codes.FeatureNotSupported), psqlerr.LevelError)
}

// NewErrUndefinedDatabase is returned whenever a client connects without a
// database startup parameter.
func NewErrUndefinedDatabase() error {
	err := errors.New("no database startup parameter has been defined")
	return psqlerr.WithSeverity(psqlerr.WithCode(err, codes.InvalidCatalogName), psqlerr.LevelFatal)
}

// NewErrUnsupportedProtocolVersion is returned whenever a client opens a
// connection with an unrecognized protocol version word.
func NewErrUnsupportedProtocolVersion(version types.Version) error {
	err := fmt.Errorf("unsupported protocol version: %d", version)
	return psqlerr.WithSeverity(psqlerr.WithCode(err, codes.ProtocolViolation), psqlerr.LevelFatal)
}

// jobKind discriminates the work items flowing through a session's response
// queue.
type jobKind int

const (
	jobQuery jobKind = iota
	jobSync
	jobError
)

type job struct {
	kind  jobKind
	query string
	err   error
}

// session drives the protocol state machine of a single client connection.
// The read loop keeps consuming requests while previous queries execute;
// responses are emitted by a single responder goroutine consuming an in-order
// job queue, which serializes all outbound bytes per session.
type session struct {
	srv    *Server
	logger *slog.Logger
	conn   net.Conn
	reader *buffer.Reader
	writer *buffer.Writer

	params Parameters
	engine engine.Conn
	pid    int32
	secret int32

	jobs    chan job
	drained chan struct{}
	failed  atomic.Bool
}

func newSession(srv *Server, conn net.Conn) *session {
	return &session{
		srv:     srv,
		logger:  srv.logger,
		conn:    conn,
		reader:  buffer.NewReader(srv.logger, conn, srv.BufferedMsgSize),
		jobs:    make(chan job, 64),
		drained: make(chan struct{}),
	}
}

// serve performs the startup negotiation and runs the command loop until the
// peer terminates, closes the connection, or a socket operation fails.
func (sess *session) serve(ctx context.Context) error {
	srv := sess.srv

	version, err := srv.handshake(sess.conn, sess.reader)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return err
	}

	if version == types.VersionCancel {
		return sess.handleCancelRequest()
	}

	sess.writer = buffer.NewWriter(srv.logger, sess.conn)

	if version != types.Version30 {
		return ErrorCode(sess.writer, NewErrUnsupportedProtocolVersion(version))
	}

	sess.params, err = srv.readStartupParameters(version, sess.reader)
	if err != nil {
		return ErrorCode(sess.writer, psqlerr.WithSeverity(psqlerr.WithCode(err, codes.ProtocolViolation), psqlerr.LevelFatal))
	}

	err = srv.handleAuth(ctx, sess.params, sess.reader, sess.writer)
	if err != nil {
		return err
	}

	err = srv.writeParameters(sess.writer, srv.Parameters)
	if err != nil {
		return err
	}

	sess.pid, sess.secret = srv.keys.allocate()
	defer srv.keys.release(sess.pid)

	err = backendKeyData(sess.writer, sess.pid, sess.secret)
	if err != nil {
		return err
	}

	sess.engine, err = srv.engine.Connect(ctx)
	if err != nil {
		return ErrorCode(sess.writer, psqlerr.WithSeverity(err, psqlerr.LevelFatal))
	}
	defer sess.engine.Close()

	err = sess.attachDatabase(ctx)
	if err != nil {
		return ErrorCode(sess.writer, err)
	}

	err = readyForQuery(sess.writer, types.ServerIdle)
	if err != nil {
		return err
	}

	return sess.consumeCommands(ctx)
}

// handleCancelRequest resolves an out-of-band cancel connection. The key pair
// is checked against the live session registry; no running query is aborted.
func (sess *session) handleCancelRequest() error {
	pid, secret, err := sess.srv.readCancelRequest(sess.reader)
	if err != nil {
		return err
	}

	if sess.srv.keys.validate(pid, secret) {
		sess.logger.Debug("received cancel request for a live session, no cancel path is implemented", slog.Int("pid", int(pid)))
	} else {
		sess.logger.Debug("received cancel request with an unknown backend key", slog.Int("pid", int(pid)))
	}

	return nil
}

// attachDatabase establishes the session's catalog context by attaching the
// on-disk database file named by the database startup parameter.
func (sess *session) attachDatabase(ctx context.Context) error {
	database := sess.params[ParamDatabase]
	if database == "" {
		return NewErrUndefinedDatabase()
	}

	file := fmt.Sprintf("%s/%s.db", sess.srv.Datadir, database)
	attach := fmt.Sprintf("ATTACH '%s';", strings.ReplaceAll(file, "'", "''"))

	result, err := sess.engine.Query(ctx, attach)
	if err != nil {
		return psqlerr.WithSeverity(psqlerr.WithCode(err, codes.InvalidCatalogName), psqlerr.LevelFatal)
	}
	result.Close()

	use := fmt.Sprintf("USE %q;", database)
	result, err = sess.engine.Query(ctx, use)
	if err != nil {
		return psqlerr.WithSeverity(psqlerr.WithCode(err, codes.InvalidCatalogName), psqlerr.LevelFatal)
	}
	result.Close()

	sess.logger.Debug("session database attached", slog.String("database", database))
	return nil
}

// consumeCommands consumes incoming commands until the client issues a
// terminate message or the connection breaks. The reader always consumes the
// full length-prefixed message body before dispatching, so unknown message
// types can never desynchronize the framing.
func (sess *session) consumeCommands(ctx context.Context) error {
	sess.logger.Debug("ready for query... starting to consume commands")

	go sess.respond(ctx)
	defer func() {
		close(sess.jobs)
		<-sess.drained
	}()

	for {
		t, length, err := sess.reader.ReadTypedMsg()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if errors.Is(err, buffer.ErrMessageSizeExceeded) {
			err = sess.recoverMessageSize(err)
			if err != nil {
				return err
			}

			continue
		}

		if err != nil {
			return err
		}

		if sess.srv.closing.Load() {
			return nil
		}

		sess.logger.Debug("<- incoming command", slog.Int("length", length), slog.String("type", t.String()))

		switch t {
		case types.ClientSimpleQuery:
			query, err := sess.reader.GetString()
			if err != nil {
				return err
			}

			sess.jobs <- job{kind: jobQuery, query: query}
		case types.ClientTerminate:
			return nil
		case types.ClientSync:
			// the resynchronization point of the extended protocol; answered
			// even though the protocol itself is not implemented
			sess.jobs <- job{kind: jobSync}
		case types.ClientFlush, types.ClientPassword, types.ClientCopyData, types.ClientCopyDone, types.ClientCopyFail:
			// body has been consumed, nothing to do
		case types.ClientParse, types.ClientBind, types.ClientExecute, types.ClientDescribe, types.ClientClose:
			sess.jobs <- job{kind: jobError, err: NewErrUnimplementedMessageType(t)}
		default:
			sess.logger.Debug("ignoring unknown client message", slog.String("type", t.String()))
		}
	}
}

// recoverMessageSize consumes the remainder of an oversized message and
// reports the rejection to the client, keeping the stream framed.
func (sess *session) recoverMessageSize(exceeded error) error {
	unwrapped, has := buffer.UnwrapMessageSizeExceeded(exceeded)
	if !has {
		return exceeded
	}

	err := sess.reader.Slurp(unwrapped.Size)
	if err != nil {
		return err
	}

	sess.jobs <- job{kind: jobError, err: psqlerr.WithCode(exceeded, codes.ProtocolViolation)}
	return nil
}

// respond consumes the session's job queue and writes responses in arrival
// order. It is the only goroutine writing to the socket once the command loop
// has started. Write failures end the session: the socket is closed to
// unblock the read loop and the remaining jobs are discarded.
func (sess *session) respond(ctx context.Context) {
	defer close(sess.drained)

	for item := range sess.jobs {
		if sess.failed.Load() {
			continue
		}

		// tracked so that Server.Close waits for the command in progress
		sess.srv.wg.Add(1)

		var err error
		switch item.kind {
		case jobSync:
			err = readyForQuery(sess.writer, types.ServerIdle)
		case jobError:
			err = ErrorCode(sess.writer, item.err)
		default:
			err = sess.execute(ctx, item.query)
		}

		sess.srv.wg.Done()

		if err != nil {
			sess.logger.Debug("closing session after write failure", "err", err)
			sess.failed.Store(true)
			sess.conn.Close()
		}
	}
}

// execute runs a single simple query and emits its complete response followed
// by ReadyForQuery. Engine execution is confined to the server-wide worker
// budget; the read loop keeps accepting requests in the meantime.
func (sess *session) execute(ctx context.Context, query string) error {
	if strings.TrimSpace(query) == "" {
		sess.writer.Start(types.ServerEmptyQuery)
		err := sess.writer.End()
		if err != nil {
			return err
		}

		return readyForQuery(sess.writer, types.ServerIdle)
	}

	sess.logger.Debug("incoming simple query", slog.String("query", query))

	if query == compatibilityProbe {
		err := sess.srv.respondCompatibilityProbe(sess.writer)
		if err != nil {
			return err
		}

		return readyForQuery(sess.writer, types.ServerIdle)
	}

	sess.srv.workers <- struct{}{}
	defer func() { <-sess.srv.workers }()

	start := time.Now()
	result, err := sess.engine.Query(ctx, query)
	if err != nil {
		metrics.EngineErrors.Inc()
		return ErrorCode(sess.writer, psqlerr.WithCode(err, codes.SyntaxErrorOrAccessRuleViolation))
	}
	defer result.Close()

	kind := result.Kind()
	err = sess.srv.respond(result, sess.writer)
	metrics.QueriesTotal.WithLabelValues(kind.String()).Inc()
	metrics.QueryDuration.WithLabelValues(kind.String()).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.EngineErrors.Inc()
		return ErrorCode(sess.writer, psqlerr.WithCode(err, codes.SyntaxErrorOrAccessRuleViolation))
	}

	return readyForQuery(sess.writer, types.ServerIdle)
}
