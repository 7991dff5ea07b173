package ldap

import (
	"io"
	"log/slog"
	"sync"
)

// LDAP is a directory client bound to one server. It owns at most one live
// connection at a time; Connect establishes it, Disconnect tears it down,
// and every lookup, membership check, and credential verification runs over
// it. Methods are safe for concurrent use.
type LDAP struct {
	config       ClientConfig
	logger       *slog.Logger
	dial         DialFunc
	beforeSearch BeforeSearchHook

	logConn   *slog.Logger
	logBind   *slog.Logger
	logSearch *slog.Logger
	logAuth   *slog.Logger

	mu     sync.Mutex
	state  ConnectionState
	conn   Conn
	gate   *bindGate
	idle   *idleMonitor
	gen    uint64
	connID string
}

// New creates a client for the given configuration. The configuration is
// snapshotted with documented fallbacks applied (scope sub, plaintext
// encryption, default connect timeout) and validated; no connection is
// opened until Connect.
func New(config ClientConfig, opts ...Option) (*LDAP, error) {
	cfg := config.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	l := &LDAP{
		config: cfg,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		dial:   dialDirectory,
		state:  StateDisconnected,
	}
	for _, opt := range opts {
		opt(l)
	}

	l.logConn = l.logger.With(slog.String("section", "connection"))
	l.logBind = l.logger.With(slog.String("section", "bind"))
	l.logSearch = l.logger.With(slog.String("section", "search"))
	l.logAuth = l.logger.With(slog.String("section", "auth"))

	return l, nil
}

// NewFromSettings creates a client from a flat settings map, the form host
// applications usually store connection parameters in. See Settings for the
// recognized keys.
func NewFromSettings(settings Settings, opts ...Option) (*LDAP, error) {
	cfg, err := ParseSettings(settings)
	if err != nil {
		return nil, err
	}
	return New(cfg, opts...)
}

// Config returns a copy of the effective client configuration.
func (l *LDAP) Config() ClientConfig {
	return l.config
}

// State returns the current connection state.
func (l *LDAP) State() ConnectionState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// session snapshots the live connection and its bind gate. Operations that
// need the wire call this once so the connection cannot change under them
// mid-operation.
func (l *LDAP) session() (Conn, *bindGate, uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != StateConnected || l.conn == nil {
		return nil, nil, 0, ErrNotConnected
	}
	return l.conn, l.gate, l.gen, nil
}

// Disconnect unbinds and closes the live connection, if any. Safe to call
// repeatedly and in any state.
func (l *LDAP) Disconnect() {
	l.teardown("client_disconnect")
}

// Close makes the client satisfy io.Closer. It never returns an error.
func (l *LDAP) Close() error {
	l.Disconnect()
	return nil
}

// teardown releases the current connection and resets connection-scoped
// state (bind gate, idle monitor, generation counter).
func (l *LDAP) teardown(reason string) {
	l.mu.Lock()
	conn := l.conn
	idle := l.idle
	connID := l.connID
	wasConnected := l.state == StateConnected
	l.conn = nil
	l.gate = nil
	l.idle = nil
	l.connID = ""
	l.gen++
	l.state = StateDisconnected
	l.mu.Unlock()

	if idle != nil {
		idle.stop()
	}
	if conn != nil {
		if err := conn.Unbind(); err != nil {
			_ = conn.Close()
		}
	}
	if wasConnected {
		l.logConn.Info("connection_closed",
			slog.String("conn_id", connID),
			slog.String("reason", reason))
	}
}
