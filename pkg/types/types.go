package types

// ClientMessage represents a typed message sent by a PostgreSQL client.
type ClientMessage byte

// ServerMessage represents a typed message sent back to a PostgreSQL client.
type ServerMessage byte

// ServerStatus represents the transaction status byte carried inside a
// ReadyForQuery message.
type ServerStatus byte

// http://www.postgresql.org/docs/current/static/protocol-message-formats.html
const (
	ClientBind        ClientMessage = 'B'
	ClientClose       ClientMessage = 'C'
	ClientCopyData    ClientMessage = 'd'
	ClientCopyDone    ClientMessage = 'c'
	ClientCopyFail    ClientMessage = 'f'
	ClientDescribe    ClientMessage = 'D'
	ClientExecute     ClientMessage = 'E'
	ClientFlush       ClientMessage = 'H'
	ClientParse       ClientMessage = 'P'
	ClientPassword    ClientMessage = 'p'
	ClientSimpleQuery ClientMessage = 'Q'
	ClientSync        ClientMessage = 'S'
	ClientTerminate   ClientMessage = 'X'

	ServerAuth            ServerMessage = 'R'
	ServerBackendKeyData  ServerMessage = 'K'
	ServerCommandComplete ServerMessage = 'C'
	ServerDataRow         ServerMessage = 'D'
	ServerEmptyQuery      ServerMessage = 'I'
	ServerErrorResponse   ServerMessage = 'E'
	ServerNoticeResponse  ServerMessage = 'N'
	ServerParameterStatus ServerMessage = 'S'
	ServerReady           ServerMessage = 'Z'
	ServerRowDescription  ServerMessage = 'T'

	ServerIdle              ServerStatus = 'I'
	ServerTransaction       ServerStatus = 'T'
	ServerTransactionFailed ServerStatus = 'E'
)

func (m ClientMessage) String() string {
	switch m {
	case ClientBind:
		return "Bind"
	case ClientClose:
		return "Close"
	case ClientCopyData:
		return "CopyData"
	case ClientCopyDone:
		return "CopyDone"
	case ClientCopyFail:
		return "CopyFail"
	case ClientDescribe:
		return "Describe"
	case ClientExecute:
		return "Execute"
	case ClientFlush:
		return "Flush"
	case ClientParse:
		return "Parse"
	case ClientPassword:
		return "Password"
	case ClientSimpleQuery:
		return "SimpleQuery"
	case ClientSync:
		return "Sync"
	case ClientTerminate:
		return "Terminate"
	default:
		return "Unknown"
	}
}

func (m ServerMessage) String() string {
	switch m {
	case ServerAuth:
		return "Auth"
	case ServerBackendKeyData:
		return "BackendKeyData"
	case ServerCommandComplete:
		return "CommandComplete"
	case ServerDataRow:
		return "DataRow"
	case ServerEmptyQuery:
		return "EmptyQuery"
	case ServerErrorResponse:
		return "ErrorResponse"
	case ServerNoticeResponse:
		return "NoticeResponse"
	case ServerParameterStatus:
		return "ParameterStatus"
	case ServerReady:
		return "Ready"
	case ServerRowDescription:
		return "RowDescription"
	default:
		return "Unknown"
	}
}
