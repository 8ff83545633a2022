package postduck

// sslIdentifier represents the single byte announcing whether the server is
// willing to upgrade the connection.
type sslIdentifier []byte

var (
	sslSupported   sslIdentifier = []byte{'S'}
	sslUnsupported sslIdentifier = []byte{'N'}
)
