package ldap

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/directoryhub/ldap-client-go/testutil"
)

func TestConnect(t *testing.T) {
	conn := testutil.NewMockConn()
	cfg := testConfig()
	cfg.OperationTimeout = 10 * time.Second
	client := newTestClient(t, cfg, conn)

	require.NoError(t, client.Connect())
	assert.Equal(t, StateConnected, client.State())

	// The configured operation timeout is applied to the live connection.
	require.Len(t, conn.Timeouts, 1)
	assert.Equal(t, 10*time.Second, conn.Timeouts[0])

	// Connecting again while connected is a no-op.
	require.NoError(t, client.Connect())
	assert.Equal(t, StateConnected, client.State())
}

func TestConnectDialFailure(t *testing.T) {
	client, err := New(testConfig(), WithDialFunc(func(ctx context.Context, _ *ClientConfig) (Conn, error) {
		return nil, errors.New("connection refused")
	}))
	require.NoError(t, err)

	err = client.Connect()
	require.Error(t, err)
	assert.True(t, IsConnectError(err))
	assert.Equal(t, StateFailed, client.State())

	// The attempt is terminal; a later call starts over.
	err = client.Connect()
	require.Error(t, err)
	assert.True(t, IsConnectError(err))
}

func TestConnectTimeoutSingleDelivery(t *testing.T) {
	conn := testutil.NewMockConn()
	release := make(chan struct{})
	var dials atomic.Int32

	cfg := testConfig()
	cfg.ConnectTimeout = 50 * time.Millisecond
	client, err := New(cfg, WithDialFunc(func(ctx context.Context, _ *ClientConfig) (Conn, error) {
		dials.Add(1)
		// The transport never responds within the deadline.
		<-release
		return conn, nil
	}))
	require.NoError(t, err)

	err = client.Connect()
	require.Error(t, err)
	assert.True(t, IsTimeoutError(err))
	assert.Equal(t, StateFailed, client.State())
	assert.Equal(t, int32(1), dials.Load())

	// The late transport success is discarded and its connection closed,
	// never reported as a second outcome.
	close(release)
	assert.Eventually(t, conn.IsClosed, time.Second, 5*time.Millisecond)
	assert.Equal(t, StateFailed, client.State())
}

func TestConnectContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client, err := New(testConfig(), WithDialFunc(func(ctx context.Context, _ *ClientConfig) (Conn, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}))
	require.NoError(t, err)

	err = client.ConnectContext(ctx)
	require.Error(t, err)
	assert.True(t, IsConnectError(err))
	assert.Equal(t, StateFailed, client.State())
}

func TestDisconnect(t *testing.T) {
	conn := testutil.NewMockConn()
	client := newTestClient(t, testConfig(), conn)
	require.NoError(t, client.Connect())

	client.Disconnect()
	assert.Equal(t, StateDisconnected, client.State())
	assert.True(t, conn.IsUnbound())

	// Idempotent in any state.
	client.Disconnect()
	assert.Equal(t, StateDisconnected, client.State())
}

func TestCloseImplementsCloser(t *testing.T) {
	conn := testutil.NewMockConn()
	client := newTestClient(t, testConfig(), conn)
	require.NoError(t, client.Connect())
	require.NoError(t, client.Close())
	assert.Equal(t, StateDisconnected, client.State())
}

func TestIdleTimeoutDisconnects(t *testing.T) {
	conn := testutil.NewMockConn()
	cfg := testConfig()
	cfg.IdleTimeout = 30 * time.Millisecond
	client := newTestClient(t, cfg, conn)
	require.NoError(t, client.Connect())

	assert.Eventually(t, func() bool {
		return client.State() == StateDisconnected
	}, time.Second, 5*time.Millisecond)
	assert.True(t, conn.IsUnbound())
}

func TestIdleTimerRestartedByActivity(t *testing.T) {
	conn := testutil.NewMockConn()
	cfg := testConfig()
	cfg.IdleTimeout = 60 * time.Millisecond
	client := newConnectedClient(t, cfg, conn)

	// Keep touching the connection past the original idle deadline.
	for i := 0; i < 4; i++ {
		time.Sleep(25 * time.Millisecond)
		_, err := client.SearchUsers("alice")
		require.NoError(t, err)
	}
	assert.Equal(t, StateConnected, client.State())
}

func TestSearchRequiresConnection(t *testing.T) {
	client, err := New(testConfig())
	require.NoError(t, err)

	_, err = client.SearchUsers("alice")
	require.Error(t, err)
	assert.True(t, IsSearchSetupError(err))
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestTestConnection(t *testing.T) {
	conn := testutil.NewMockConn()
	cfg := testConfig()
	cfg.Authentication = true
	cfg.AuthenticationUserDN = "cn=admin,dc=example,dc=com"
	cfg.AuthenticationPassword = "secret"
	client := newTestClient(t, cfg, conn)

	require.NoError(t, client.TestConnection(context.Background()))
	// The probe opened its own connection and closed it again.
	assert.Equal(t, StateDisconnected, client.State())
	assert.Equal(t, 1, conn.BindCount())
}

func TestConnectionStateString(t *testing.T) {
	assert.Equal(t, "disconnected", StateDisconnected.String())
	assert.Equal(t, "connecting", StateConnecting.String())
	assert.Equal(t, "connected", StateConnected.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "unknown", ConnectionState(99).String())
}
