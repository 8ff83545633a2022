package postduck

import "log/slog"

// OptionFn options pattern used to configure the gateway server.
type OptionFn func(*Server) error

// Logger sets the logger used by the server and its sessions.
func Logger(logger *slog.Logger) OptionFn {
	return func(srv *Server) error {
		srv.logger = logger
		return nil
	}
}

// Datadir sets the directory holding the engine's on-disk database files. A
// trailing separator is stripped.
func Datadir(dir string) OptionFn {
	return func(srv *Server) error {
		for len(dir) > 1 && dir[len(dir)-1] == '/' {
			dir = dir[:len(dir)-1]
		}

		srv.Datadir = dir
		return nil
	}
}

// SessionParameters sets additional server parameters announced to connecting
// clients during startup.
func SessionParameters(params Parameters) OptionFn {
	return func(srv *Server) error {
		srv.Parameters = params
		return nil
	}
}

// MessageBufferSize bounds the size of inbound protocol messages.
func MessageBufferSize(size int) OptionFn {
	return func(srv *Server) error {
		srv.BufferedMsgSize = size
		return nil
	}
}

// EngineConcurrency bounds the number of engine statements executing at the
// same time across all sessions.
func EngineConcurrency(limit int) OptionFn {
	return func(srv *Server) error {
		srv.Concurrency = limit
		return nil
	}
}

// Version sets the server version string advertised during startup.
func Version(version string) OptionFn {
	return func(srv *Server) error {
		srv.Version = version
		return nil
	}
}

// Auth sets the authentication strategy announced to connecting clients.
func Auth(strategy AuthStrategy) OptionFn {
	return func(srv *Server) error {
		srv.Auth = strategy
		return nil
	}
}
