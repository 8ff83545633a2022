package postduck

import (
	"fmt"
	"log/slog"
	"maps"
	"net"

	"github.com/fanvanzh/postduck/pkg/buffer"
	"github.com/fanvanzh/postduck/pkg/types"
)

// handshake reads the first message of the connection and resolves the
// protocol version the client wants to speak. An SSL upgrade request is
// declined with a single 'N' byte, after which the client is expected to
// continue with a plain StartupMessage. The refused request is consumed as a
// complete untyped message so no startup bytes are lost.
func (srv *Server) handshake(conn net.Conn, reader *buffer.Reader) (types.Version, error) {
	version, err := srv.readVersion(reader)
	if err != nil {
		return version, err
	}

	if version == types.VersionSSLRequest || version == types.VersionGSSENC {
		srv.logger.Debug("declining connection encryption upgrade")

		_, err = conn.Write(sslUnsupported)
		if err != nil {
			return version, err
		}

		version, err = srv.readVersion(reader)
		if err != nil {
			return version, err
		}
	}

	return version, nil
}

// readVersion reads the next untyped message and decodes its leading version
// word. The remainder of the message stays inside the reader buffer.
func (srv *Server) readVersion(reader *buffer.Reader) (types.Version, error) {
	_, err := reader.ReadUntypedMsg()
	if err != nil {
		return 0, err
	}

	version, err := reader.GetUint32()
	if err != nil {
		return 0, err
	}

	return types.Version(version), nil
}

// readCancelRequest reads the process ID and secret key of a cancel request.
// The length word and request code have already been consumed by readVersion.
func (srv *Server) readCancelRequest(reader *buffer.Reader) (pid, secret int32, err error) {
	pid, err = reader.GetInt32()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read process ID from cancel request: %w", err)
	}

	secret, err = reader.GetInt32()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read secret key from cancel request: %w", err)
	}

	return pid, secret, nil
}

// readStartupParameters parses the key/value startup parameters following the
// version word. A synthetic "version" parameter holding "<major>.<minor>" is
// added, matching the protocol version word.
func (srv *Server) readStartupParameters(version types.Version, reader *buffer.Reader) (Parameters, error) {
	params := Parameters{
		ParamProtocolVersion: fmt.Sprintf("%d.%d", version.Major(), version.Minor()),
	}

	srv.logger.Debug("reading client parameters")

	for len(reader.Msg) > 0 {
		key, err := reader.GetString()
		if err != nil {
			return nil, err
		}

		// an empty key indicates the end of the startup parameters
		if len(key) == 0 {
			break
		}

		value, err := reader.GetString()
		if err != nil {
			return nil, err
		}

		srv.logger.Debug("client parameter", slog.String("key", key), slog.String("value", value))
		params[ParameterStatus(key)] = value
	}

	return params, nil
}

// writeParameters announces the server parameters the client should assume
// for the session. client_encoding and DateStyle are always included.
// https://www.postgresql.org/docs/current/libpq-status.html
func (srv *Server) writeParameters(writer *buffer.Writer, params Parameters) error {
	if params == nil {
		params = make(Parameters, 4)
	} else {
		params = maps.Clone(params)
	}

	srv.logger.Debug("writing server parameters")

	params[ParamClientEncoding] = "UTF8"
	params[ParamDateStyle] = "ISO"
	if srv.Version != "" {
		params[ParamServerVersion] = srv.Version
	}

	for key, value := range params {
		srv.logger.Debug("server parameter", slog.String("key", string(key)), slog.String("value", value))

		writer.Start(types.ServerParameterStatus)
		writer.AddString(string(key))
		writer.AddNullTerminate()
		writer.AddString(value)
		writer.AddNullTerminate()
		err := writer.End()
		if err != nil {
			return err
		}
	}

	return nil
}

// backendKeyData announces the (process ID, secret key) pair a client keeps
// to authorize an out-of-band cancel request.
func backendKeyData(writer *buffer.Writer, pid, secret int32) error {
	writer.Start(types.ServerBackendKeyData)
	writer.AddInt32(pid)
	writer.AddInt32(secret)
	return writer.End()
}

// readyForQuery indicates that the server is ready to receive a new command.
// This message is written whenever a command cycle has been completed.
func readyForQuery(writer *buffer.Writer, status types.ServerStatus) error {
	writer.Start(types.ServerReady)
	writer.AddByte(byte(status))
	return writer.End()
}
