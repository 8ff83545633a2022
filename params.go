package postduck

// Parameters represents a collection of parameter status keys and their
// values, both the startup parameters sent by the client and the server
// parameters announced back.
type Parameters map[ParameterStatus]string

// ParameterStatus represents a metadata key defined inside a server/client
// parameter set.
// https://www.postgresql.org/docs/current/protocol-flow.html#PROTOCOL-ASYNC
type ParameterStatus string

const (
	ParamServerEncoding  ParameterStatus = "server_encoding"
	ParamClientEncoding  ParameterStatus = "client_encoding"
	ParamApplicationName ParameterStatus = "application_name"
	ParamDatabase        ParameterStatus = "database"
	ParamUsername        ParameterStatus = "user"
	ParamServerVersion   ParameterStatus = "server_version"
	ParamDateStyle       ParameterStatus = "DateStyle"

	// ParamProtocolVersion is a synthetic startup parameter derived from the
	// protocol version word as "<major>.<minor>".
	ParamProtocolVersion ParameterStatus = "version"
)
