package mock

import (
	"encoding/binary"
	"net"
	"testing"

	"github.com/fanvanzh/postduck/pkg/types"
)

// NewClient constructs a raw wire protocol client on top of the given
// connection.
func NewClient(t *testing.T, conn net.Conn) *Client {
	return &Client{
		conn:   conn,
		Writer: NewWriter(t, conn),
		Reader: NewReader(t, conn),
	}
}

// Client represents a low level PostgreSQL client used to assert the exact
// byte behavior of the gateway.
type Client struct {
	conn net.Conn
	*Writer
	*Reader
}

// SSLRequest writes the SSL upgrade request and asserts that the server
// declines it with a single 'N' byte.
func (client *Client) SSLRequest(t *testing.T) {
	t.Log("requesting an SSL upgrade")

	request := make([]byte, 8)
	binary.BigEndian.PutUint32(request[:4], 8)
	binary.BigEndian.PutUint32(request[4:], uint32(types.VersionSSLRequest))

	_, err := client.conn.Write(request)
	if err != nil {
		t.Fatal(err)
	}

	refusal := make([]byte, 1)
	_, err = client.conn.Read(refusal)
	if err != nil {
		t.Fatal(err)
	}

	if refusal[0] != 'N' {
		t.Fatalf("unexpected SSL response byte %q, expected 'N'", refusal[0])
	}
}

// Handshake writes a StartupMessage carrying the given parameters.
func (client *Client) Handshake(t *testing.T, params map[string]string) {
	t.Log("performing startup handshake")
	defer t.Log("startup handshake completed")

	body := make([]byte, 4)
	binary.BigEndian.PutUint32(body, uint32(types.Version30))

	for key, value := range params {
		body = append(body, key...)
		body = append(body, 0)
		body = append(body, value...)
		body = append(body, 0)
	}
	body = append(body, 0)

	header := make([]byte, 4)
	binary.BigEndian.PutUint32(header, uint32(len(body)+len(header)))

	_, err := client.conn.Write(append(header, body...))
	if err != nil {
		t.Fatal(err)
	}
}

// Authenticate asserts that the server replies AuthenticationOk.
func (client *Client) Authenticate(t *testing.T) {
	t.Log("awaiting authentication ok")

	typed, _, err := client.ReadTypedMsg()
	if err != nil {
		t.Fatal(err)
	}

	if typed != types.ServerAuth {
		t.Fatalf("unexpected message type %s, expected %s", typed, types.ServerAuth)
	}

	status, err := client.GetUint32()
	if err != nil {
		t.Fatal(err)
	}

	if status != 0 {
		t.Fatalf("unexpected auth status: %d, expected auth ok", status)
	}
}

// ReadyForQuery consumes server messages until ReadyForQuery is received,
// skipping parameter status and backend key data messages.
func (client *Client) ReadyForQuery(t *testing.T) {
	var err error
	var typed types.ServerMessage

	t.Log("awaiting ready for query")

	for {
		typed, _, err = client.ReadTypedMsg()
		if err != nil {
			t.Fatal(err)
		}

		if typed != types.ServerParameterStatus && typed != types.ServerBackendKeyData {
			break
		}
	}

	if typed != types.ServerReady {
		t.Fatalf("unexpected message type %s, expected %s", typed, types.ServerReady)
	}

	bb, err := client.GetBytes(1)
	if err != nil {
		t.Fatal(err)
	}

	if types.ServerStatus(bb[0]) != types.ServerIdle {
		t.Fatalf("unexpected ready for query status: %d, expected server idle", bb)
	}
}

// BackendKeyData consumes server messages until BackendKeyData is received
// and returns its process ID and secret key.
func (client *Client) BackendKeyData(t *testing.T) (pid, secret int32) {
	for {
		typed, _, err := client.ReadTypedMsg()
		if err != nil {
			t.Fatal(err)
		}

		if typed == types.ServerBackendKeyData {
			break
		}

		if typed != types.ServerParameterStatus {
			t.Fatalf("unexpected message type %s while awaiting backend key data", typed)
		}
	}

	pid, err := client.GetInt32()
	if err != nil {
		t.Fatal(err)
	}

	secret, err = client.GetInt32()
	if err != nil {
		t.Fatal(err)
	}

	return pid, secret
}

// Query writes a simple query message carrying the given SQL text.
func (client *Client) Query(t *testing.T, query string) {
	client.Start(types.ClientSimpleQuery)
	client.AddString(query)
	client.AddNullTerminate()
	err := client.End()
	if err != nil {
		t.Fatal(err)
	}
}

// RowDescription asserts that the next message is a RowDescription and
// returns the declared column names and type OIDs.
func (client *Client) RowDescription(t *testing.T) (names []string, oids []uint32) {
	typed, _, err := client.ReadTypedMsg()
	if err != nil {
		t.Fatal(err)
	}

	if typed != types.ServerRowDescription {
		t.Fatalf("unexpected message type %s, expected %s", typed, types.ServerRowDescription)
	}

	fields, err := client.GetUint16()
	if err != nil {
		t.Fatal(err)
	}

	for i := uint16(0); i < fields; i++ {
		name, err := client.GetString()
		if err != nil {
			t.Fatal(err)
		}

		if _, err = client.GetUint32(); err != nil { // table oid
			t.Fatal(err)
		}
		if _, err = client.GetUint16(); err != nil { // attribute number
			t.Fatal(err)
		}

		typeOid, err := client.GetUint32()
		if err != nil {
			t.Fatal(err)
		}

		if _, err = client.GetUint16(); err != nil { // type length
			t.Fatal(err)
		}
		if _, err = client.GetUint32(); err != nil { // type modifier
			t.Fatal(err)
		}
		if _, err = client.GetUint16(); err != nil { // format code
			t.Fatal(err)
		}

		names = append(names, name)
		oids = append(oids, typeOid)
	}

	return names, oids
}

// DataRow asserts that the next message is a DataRow and returns its field
// values. A nil field represents a NULL encoded as length -1.
func (client *Client) DataRow(t *testing.T) [][]byte {
	typed, _, err := client.ReadTypedMsg()
	if err != nil {
		t.Fatal(err)
	}

	if typed != types.ServerDataRow {
		t.Fatalf("unexpected message type %s, expected %s", typed, types.ServerDataRow)
	}

	fields, err := client.GetUint16()
	if err != nil {
		t.Fatal(err)
	}

	row := make([][]byte, fields)
	for i := range row {
		length, err := client.GetInt32()
		if err != nil {
			t.Fatal(err)
		}

		if length == -1 {
			continue
		}

		value, err := client.GetBytes(int(length))
		if err != nil {
			t.Fatal(err)
		}

		copied := make([]byte, len(value))
		copy(copied, value)
		row[i] = copied
	}

	return row
}

// CommandComplete asserts that the next message is a CommandComplete and
// returns its tag.
func (client *Client) CommandComplete(t *testing.T) string {
	typed, _, err := client.ReadTypedMsg()
	if err != nil {
		t.Fatal(err)
	}

	if typed != types.ServerCommandComplete {
		t.Fatalf("unexpected message type %s, expected %s", typed, types.ServerCommandComplete)
	}

	tag, err := client.GetString()
	if err != nil {
		t.Fatal(err)
	}

	return tag
}

// Error asserts that the next message is an ErrorResponse and returns its
// fields keyed by the single byte field identifiers.
func (client *Client) Error(t *testing.T) map[byte]string {
	typed, _, err := client.ReadTypedMsg()
	if err != nil {
		t.Fatal(err)
	}

	if typed != types.ServerErrorResponse {
		t.Fatalf("unexpected message type %s, expected %s", typed, types.ServerErrorResponse)
	}

	fields := make(map[byte]string)
	for {
		code, err := client.GetBytes(1)
		if err != nil {
			t.Fatal(err)
		}

		if code[0] == 0 {
			break
		}

		value, err := client.GetString()
		if err != nil {
			t.Fatal(err)
		}

		fields[code[0]] = value
	}

	return fields
}

// Close terminates the session and closes the underlying connection.
func (client *Client) Close(t *testing.T) {
	t.Log("closing the client")

	client.Start(types.ClientTerminate)
	err := client.End()
	if err != nil {
		t.Fatal(err)
	}

	err = client.conn.Close()
	if err != nil {
		t.Fatal(err)
	}
}
