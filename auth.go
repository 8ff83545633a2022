package postduck

import (
	"context"
	"errors"

	"github.com/fanvanzh/postduck/codes"
	pgerror "github.com/fanvanzh/postduck/errors"
	"github.com/fanvanzh/postduck/pkg/buffer"
	"github.com/fanvanzh/postduck/pkg/types"
)

// authType represents the manner in which a client is able to authenticate.
type authType int32

const (
	// authOK indicates that the connection has been authenticated and the
	// client is allowed to proceed.
	authOK authType = 0
	// authClearTextPassword tells the client to identify itself by sending
	// its password in clear text.
	authClearTextPassword authType = 3
)

// AuthStrategy represents an authentication strategy used to authenticate a
// connecting client against its startup parameters.
type AuthStrategy func(ctx context.Context, params Parameters, reader *buffer.Reader, writer *buffer.Writer) error

// handleAuth authenticates the given connection. Without a configured
// strategy the peer is trusted and AuthenticationOk is written immediately.
func (srv *Server) handleAuth(ctx context.Context, params Parameters, reader *buffer.Reader, writer *buffer.Writer) error {
	srv.logger.Debug("authenticating client connection")

	if srv.Auth == nil {
		return writeAuthType(writer, authOK)
	}

	return srv.Auth(ctx, params, reader, writer)
}

// ClearTextPassword announces to the client to authenticate by sending a
// clear text password and validates the provided username and password. When
// the credentials are invalid or an unexpected error occurs an error is
// returned and the connection should be closed.
func ClearTextPassword(validate func(username, password string) (bool, error)) AuthStrategy {
	return func(ctx context.Context, params Parameters, reader *buffer.Reader, writer *buffer.Writer) error {
		err := writeAuthType(writer, authClearTextPassword)
		if err != nil {
			return err
		}

		t, _, err := reader.ReadTypedMsg()
		if err != nil {
			return err
		}

		if t != types.ClientPassword {
			return errors.New("unexpected password message")
		}

		password, err := reader.GetString()
		if err != nil {
			return err
		}

		valid, err := validate(params[ParamUsername], password)
		if err != nil {
			return err
		}

		if !valid {
			err = pgerror.WithSeverity(pgerror.WithCode(errors.New("invalid username/password"), codes.InvalidPassword), pgerror.LevelFatal)
			if werr := ErrorCode(writer, err); werr != nil {
				return werr
			}

			return err
		}

		return writeAuthType(writer, authOK)
	}
}

// writeAuthType informs the client about the authentication status and the
// data expected next.
func writeAuthType(writer *buffer.Writer, status authType) error {
	writer.Start(types.ServerAuth)
	writer.AddInt32(int32(status))
	return writer.End()
}
