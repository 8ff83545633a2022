package codes

// Code represents a PostgreSQL SQLSTATE error code.
type Code string

// The subset of SQLSTATE codes produced by the gateway, plus the surrounding
// classes a client library may reasonably inspect.
// http://www.postgresql.org/docs/current/static/errcodes-appendix.html
var (
	// Section: Class 00 - Successful Completion
	SuccessfulCompletion Code = "00000"
	// Section: Class 01 - Warning
	Warning Code = "01000"
	// Section: Class 02 - No Data
	NoData Code = "02000"
	// Section: Class 03 - SQL Statement Not Yet Complete
	SQLStatementNotYetComplete Code = "03000"
	// Section: Class 08 - Connection Exception
	ConnectionException                     Code = "08000"
	ConnectionDoesNotExist                  Code = "08003"
	ConnectionFailure                       Code = "08006"
	SQLclientUnableToEstablishSQLconnection Code = "08001"
	ProtocolViolation                       Code = "08P01"
	// Section: Class 0A - Feature Not Supported
	FeatureNotSupported Code = "0A000"
	// Section: Class 22 - Data Exception
	DataException             Code = "22000"
	NullValueNotAllowed       Code = "22004"
	NumericValueOutOfRange    Code = "22003"
	InvalidTextRepresentation Code = "22P02"
	// Section: Class 26 - Invalid SQL Statement Name
	InvalidSQLStatementName Code = "26000"
	// Section: Class 28 - Invalid Authorization Specification
	InvalidAuthorizationSpecification Code = "28000"
	InvalidPassword                   Code = "28P01"
	// Section: Class 3D - Invalid Catalog Name
	InvalidCatalogName Code = "3D000"
	// Section: Class 42 - Syntax Error or Access Rule Violation
	SyntaxErrorOrAccessRuleViolation Code = "42000"
	Syntax                           Code = "42601"
	UndefinedColumn                  Code = "42703"
	UndefinedFunction                Code = "42883"
	UndefinedTable                   Code = "42P01"
	UndefinedObject                  Code = "42704"
	DuplicateTable                   Code = "42P07"
	// Section: Class 53 - Insufficient Resources
	InsufficientResources Code = "53000"
	OutOfMemory           Code = "53200"
	TooManyConnections    Code = "53300"
	// Section: Class 57 - Operator Intervention
	OperatorIntervention Code = "57000"
	QueryCanceled        Code = "57014"
	AdminShutdown        Code = "57P01"
	CrashShutdown        Code = "57P02"
	CannotConnectNow     Code = "57P03"
	// Section: Class 58 - System Error
	SystemError Code = "58000"
	IoError     Code = "58030"
	// Section: Class XX - Internal Error
	Internal       Code = "XX000"
	DataCorrupted  Code = "XX001"
	IndexCorrupted Code = "XX002"

	// Uncategorized is the catch-all code attached to errors that carry no
	// explicit SQLSTATE.
	Uncategorized Code = "XXUUU"
)
