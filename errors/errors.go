package errors

import "github.com/fanvanzh/postduck/codes"

// Error contains the PostgreSQL wire protocol error fields produced by the
// gateway. See
// https://www.postgresql.org/docs/current/static/protocol-error-fields.html
// for the full field list, most of which are optional.
type Error struct {
	Code     codes.Code
	Message  string
	Detail   string
	Hint     string
	Severity Severity
}

// Flatten collapses a decorated error into the flat field set used to build
// an ErrorResponse message.
func Flatten(err error) Error {
	if err == nil {
		return Error{
			Code:     codes.Internal,
			Message:  "unknown error, an internal process attempted to throw an error",
			Severity: LevelFatal,
		}
	}

	return Error{
		Code:     GetCode(err),
		Message:  err.Error(),
		Detail:   GetDetail(err),
		Hint:     GetHint(err),
		Severity: DefaultSeverity(GetSeverity(err)),
	}
}
