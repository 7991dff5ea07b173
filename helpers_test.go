package ldap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/directoryhub/ldap-client-go/testutil"
)

// testConfig is the baseline configuration tests start from: one server, one
// user search field, no administrative bind.
func testConfig() ClientConfig {
	return ClientConfig{
		Host:             "directory.example.com",
		Port:             389,
		BaseDN:           "dc=example,dc=com",
		UserSearchFields: []string{"uid"},
	}
}

// newTestClient builds a client whose dialer hands out the given mock
// connection.
func newTestClient(t *testing.T, cfg ClientConfig, conn *testutil.MockConn, opts ...Option) *LDAP {
	t.Helper()
	opts = append(opts, WithDialFunc(func(ctx context.Context, _ *ClientConfig) (Conn, error) {
		return conn, nil
	}))
	client, err := New(cfg, opts...)
	require.NoError(t, err)
	return client
}

// newConnectedClient is newTestClient plus a completed Connect.
func newConnectedClient(t *testing.T, cfg ClientConfig, conn *testutil.MockConn, opts ...Option) *LDAP {
	t.Helper()
	client := newTestClient(t, cfg, conn, opts...)
	require.NoError(t, client.Connect())
	t.Cleanup(client.Disconnect)
	return client
}
