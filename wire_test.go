package postduck

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fanvanzh/postduck/engine"
	"github.com/fanvanzh/postduck/pkg/mock"
	"github.com/fanvanzh/postduck/pkg/types"
)

// TListenAndServe opens a new TCP listener on an unallocated port inside the
// local network and starts serving client connections on it. The listener
// address is returned for clients to interact with the server.
func TListenAndServe(t *testing.T, server *Server) *net.TCPAddr {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	t.Cleanup(func() {
		err := server.Close()
		if err != nil {
			t.Fatal(err)
		}
	})

	go server.Serve(listener) //nolint:errcheck
	return listener.Addr().(*net.TCPAddr)
}

// THandshake dials the server and performs a full startup on behalf of the
// returned mock client.
func THandshake(t *testing.T, address *net.TCPAddr) *mock.Client {
	conn, err := net.Dial("tcp", address.String())
	if err != nil {
		t.Fatal(err)
	}

	client := mock.NewClient(t, conn)
	client.Handshake(t, map[string]string{"user": "u", "database": "test"})
	client.Authenticate(t)
	client.ReadyForQuery(t)
	return client
}

// queryHandler resolves engine results for the queries of a test session.
type queryHandler func(query string) (engine.Result, error)

// fakeDatabase implements the engine contract on top of a per-query handler.
// Catalog statements issued during startup resolve to an empty result.
type fakeDatabase struct {
	handler queryHandler
}

func (db *fakeDatabase) Connect(ctx context.Context) (engine.Conn, error) {
	return &fakeConn{handler: db.handler}, nil
}

func (db *fakeDatabase) Close() error { return nil }

type fakeConn struct {
	handler queryHandler
}

func (conn *fakeConn) Query(ctx context.Context, query string) (engine.Result, error) {
	if strings.HasPrefix(query, "ATTACH ") || strings.HasPrefix(query, "USE ") {
		return &fakeResult{kind: engine.KindOther}, nil
	}

	return conn.handler(query)
}

func (conn *fakeConn) Close() error { return nil }

type fakeResult struct {
	kind    engine.Kind
	columns []engine.Column
	chunks  []*engine.Chunk
	fetched int
}

func (r *fakeResult) Kind() engine.Kind        { return r.kind }
func (r *fakeResult) Columns() []engine.Column { return r.columns }
func (r *fakeResult) Close() error             { return nil }

func (r *fakeResult) Fetch() (*engine.Chunk, error) {
	if r.fetched >= len(r.chunks) {
		return nil, nil
	}

	chunk := r.chunks[r.fetched]
	r.fetched++
	return chunk, nil
}

// selectResult constructs a single-chunk SELECT result.
func selectResult(columns []engine.Column, rows ...[]any) *fakeResult {
	return &fakeResult{
		kind:    engine.KindSelect,
		columns: columns,
		chunks:  []*engine.Chunk{{Rows: rows}},
	}
}

func TServer(t *testing.T, handler queryHandler) *Server {
	server, err := NewServer(&fakeDatabase{handler: handler}, Logger(slogt.New(t)))
	require.NoError(t, err)
	return server
}

func TestSSLRefusalAndSelect(t *testing.T) {
	t.Parallel()

	handler := func(query string) (engine.Result, error) {
		assert.Equal(t, "SELECT 1;", query)
		return selectResult([]engine.Column{{Name: "1", Type: "INTEGER"}}, []any{int64(1)}), nil
	}

	address := TListenAndServe(t, TServer(t, handler))

	conn, err := net.Dial("tcp", address.String())
	require.NoError(t, err)

	client := mock.NewClient(t, conn)
	client.SSLRequest(t)
	client.Handshake(t, map[string]string{"user": "u", "database": "test"})
	client.Authenticate(t)
	client.ReadyForQuery(t)

	client.Query(t, "SELECT 1;")

	names, oids := client.RowDescription(t)
	assert.Equal(t, []string{"1"}, names)
	assert.Equal(t, []uint32{23}, oids)

	row := client.DataRow(t)
	require.Len(t, row, 1)
	assert.Equal(t, "1", string(row[0]))

	assert.Equal(t, "SELECT 1", client.CommandComplete(t))
	client.ReadyForQuery(t)
	client.Close(t)
}

func TestCompatibilityShim(t *testing.T) {
	t.Parallel()

	handler := func(query string) (engine.Result, error) {
		t.Errorf("the compatibility probe should not reach the engine: %s", query)
		return nil, fmt.Errorf("unexpected query")
	}

	address := TListenAndServe(t, TServer(t, handler))
	client := THandshake(t, address)

	client.Query(t, "SELECT reset_val FROM pg_settings WHERE name='polar_compatibility_mode';")

	names, oids := client.RowDescription(t)
	assert.Equal(t, []string{"reset_val"}, names)
	assert.Equal(t, []uint32{1043}, oids)

	row := client.DataRow(t)
	require.Len(t, row, 1)
	assert.Equal(t, "pg", string(row[0]))

	assert.Equal(t, "SELECT", client.CommandComplete(t))
	client.ReadyForQuery(t)
	client.Close(t)
}

func TestInsertTag(t *testing.T) {
	t.Parallel()

	handler := func(query string) (engine.Result, error) {
		return &fakeResult{
			kind:    engine.KindInsert,
			columns: []engine.Column{{Name: "Count", Type: "BIGINT"}},
			chunks:  []*engine.Chunk{{Rows: [][]any{{int64(3)}}}},
		}, nil
	}

	address := TListenAndServe(t, TServer(t, handler))
	client := THandshake(t, address)

	client.Query(t, "INSERT INTO t VALUES (1),(2),(3);")
	assert.Equal(t, "INSERT 0 3", client.CommandComplete(t))
	client.ReadyForQuery(t)
	client.Close(t)
}

func TestNullInSelect(t *testing.T) {
	t.Parallel()

	handler := func(query string) (engine.Result, error) {
		return selectResult([]engine.Column{{Name: "NULL", Type: "INTEGER"}}, []any{nil}), nil
	}

	address := TListenAndServe(t, TServer(t, handler))
	client := THandshake(t, address)

	client.Query(t, "SELECT NULL::INT;")

	_, oids := client.RowDescription(t)
	assert.Equal(t, []uint32{23}, oids)

	row := client.DataRow(t)
	require.Len(t, row, 1)
	assert.Nil(t, row[0], "NULL has to be encoded as field length -1, not as an empty string")

	assert.Equal(t, "SELECT 1", client.CommandComplete(t))
	client.ReadyForQuery(t)
	client.Close(t)
}

func TestEngineErrorKeepsSession(t *testing.T) {
	t.Parallel()

	handler := func(query string) (engine.Result, error) {
		if strings.Contains(query, "does_not_exist") {
			return nil, fmt.Errorf("Catalog Error: Table with name does_not_exist does not exist!")
		}

		return selectResult([]engine.Column{{Name: "1", Type: "INTEGER"}}, []any{int64(1)}), nil
	}

	address := TListenAndServe(t, TServer(t, handler))
	client := THandshake(t, address)

	client.Query(t, "SELECT * FROM does_not_exist;")

	fields := client.Error(t)
	assert.Equal(t, "ERROR", fields['S'])
	assert.Equal(t, "42000", fields['C'])
	assert.Contains(t, fields['M'], "does_not_exist")
	client.ReadyForQuery(t)

	// the session survives an engine error
	client.Query(t, "SELECT 1;")
	client.RowDescription(t)
	client.DataRow(t)
	assert.Equal(t, "SELECT 1", client.CommandComplete(t))
	client.ReadyForQuery(t)
	client.Close(t)
}

func TestEmptyQuery(t *testing.T) {
	t.Parallel()

	handler := func(query string) (engine.Result, error) {
		t.Errorf("an empty query should not reach the engine")
		return nil, fmt.Errorf("unexpected query")
	}

	address := TListenAndServe(t, TServer(t, handler))
	client := THandshake(t, address)

	client.Query(t, "  ")

	typed, _, err := client.ReadTypedMsg()
	require.NoError(t, err)
	assert.Equal(t, types.ServerEmptyQuery, typed)
	client.ReadyForQuery(t)
	client.Close(t)
}

func TestTerminate(t *testing.T) {
	t.Parallel()

	handler := func(query string) (engine.Result, error) {
		return &fakeResult{kind: engine.KindOther}, nil
	}

	address := TListenAndServe(t, TServer(t, handler))

	conn, err := net.Dial("tcp", address.String())
	require.NoError(t, err)

	client := mock.NewClient(t, conn)
	client.Handshake(t, map[string]string{"user": "u", "database": "test"})
	client.Authenticate(t)
	client.ReadyForQuery(t)

	client.Start(types.ClientTerminate)
	require.NoError(t, client.End())

	// the server closes the socket without writing further bytes
	conn.SetReadDeadline(time.Now().Add(5 * time.Second)) //nolint:errcheck
	buf := make([]byte, 1)
	_, err = conn.Read(buf)
	assert.Error(t, err)
}

func TestExtendedProtocolRejected(t *testing.T) {
	t.Parallel()

	handler := func(query string) (engine.Result, error) {
		return selectResult([]engine.Column{{Name: "1", Type: "INTEGER"}}, []any{int64(1)}), nil
	}

	address := TListenAndServe(t, TServer(t, handler))
	client := THandshake(t, address)

	client.Start(types.ClientParse)
	client.AddString("stmt")
	client.AddNullTerminate()
	client.AddString("SELECT $1;")
	client.AddNullTerminate()
	client.AddInt16(0)
	require.NoError(t, client.End())

	fields := client.Error(t)
	assert.Equal(t, "0A000", fields['C'])
	client.ReadyForQuery(t)

	// the message body has been drained, framing is intact
	client.Query(t, "SELECT 1;")
	client.RowDescription(t)
	client.DataRow(t)
	assert.Equal(t, "SELECT 1", client.CommandComplete(t))
	client.ReadyForQuery(t)
	client.Close(t)
}

func TestMissingDatabase(t *testing.T) {
	t.Parallel()

	handler := func(query string) (engine.Result, error) {
		return &fakeResult{kind: engine.KindOther}, nil
	}

	address := TListenAndServe(t, TServer(t, handler))

	conn, err := net.Dial("tcp", address.String())
	require.NoError(t, err)

	client := mock.NewClient(t, conn)
	client.Handshake(t, map[string]string{"user": "u"})
	client.Authenticate(t)

	// skip parameter status and backend key data until the error surfaces
	for {
		typed, _, err := client.ReadTypedMsg()
		require.NoError(t, err)

		if typed == types.ServerErrorResponse {
			break
		}

		require.Contains(t, []types.ServerMessage{types.ServerParameterStatus, types.ServerBackendKeyData}, typed)
	}

	code, err := client.GetBytes(1)
	require.NoError(t, err)
	assert.Equal(t, byte('S'), code[0])
}

func TestResponsesPreserveRequestOrder(t *testing.T) {
	t.Parallel()

	handler := func(query string) (engine.Result, error) {
		if strings.HasPrefix(query, "SELECT 'slow'") {
			time.Sleep(100 * time.Millisecond)
			return selectResult([]engine.Column{{Name: "v", Type: "VARCHAR"}}, []any{"slow"}), nil
		}

		return selectResult([]engine.Column{{Name: "v", Type: "VARCHAR"}}, []any{"fast"}), nil
	}

	address := TListenAndServe(t, TServer(t, handler))
	client := THandshake(t, address)

	// both queries are in flight before either response is read
	client.Query(t, "SELECT 'slow';")
	client.Query(t, "SELECT 'fast';")

	client.RowDescription(t)
	row := client.DataRow(t)
	assert.Equal(t, "slow", string(row[0]))
	assert.Equal(t, "SELECT 1", client.CommandComplete(t))
	client.ReadyForQuery(t)

	client.RowDescription(t)
	row = client.DataRow(t)
	assert.Equal(t, "fast", string(row[0]))
	assert.Equal(t, "SELECT 1", client.CommandComplete(t))
	client.ReadyForQuery(t)
	client.Close(t)
}

func TestLibPQClient(t *testing.T) {
	t.Parallel()

	handler := func(query string) (engine.Result, error) {
		return selectResult([]engine.Column{{Name: "full_name", Type: "VARCHAR"}}, []any{"John Doe"}), nil
	}

	address := TListenAndServe(t, TServer(t, handler))

	connstr := fmt.Sprintf("host=%s port=%d user=u dbname=test sslmode=disable", address.IP, address.Port)
	conn, err := sql.Open("postgres", connstr)
	require.NoError(t, err)

	rows, err := conn.Query("SELECT full_name FROM users;")
	require.NoError(t, err)

	require.True(t, rows.Next())

	var name string
	require.NoError(t, rows.Scan(&name))
	assert.Equal(t, "John Doe", name)

	require.False(t, rows.Next())
	require.NoError(t, rows.Err())
	require.NoError(t, rows.Close())
	require.NoError(t, conn.Close())
}
