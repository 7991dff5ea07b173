package ldap

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// ConnectionState describes the lifecycle of the client's single connection.
type ConnectionState int

const (
	// StateDisconnected means no connection exists.
	StateDisconnected ConnectionState = iota
	// StateConnecting means a connection attempt is in flight.
	StateConnecting
	// StateConnected means the connection is established and usable.
	StateConnected
	// StateFailed means the last connection attempt ended in an error or
	// timeout; a new Connect call starts over.
	StateFailed
)

// String returns the lowercase state name.
func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

type dialResult struct {
	conn Conn
	err  error
}

// Connect establishes the connection using the configured connect timeout.
func (l *LDAP) Connect() error {
	return l.ConnectContext(context.Background())
}

// ConnectContext establishes the connection, negotiating TLS or the
// STARTTLS upgrade as configured. It blocks until the transport reports an
// outcome, the configured connect timeout elapses, or ctx is done, whichever
// comes first. Exactly one outcome is reported per attempt; a transport
// result arriving after the deadline is discarded and its connection closed.
//
// On error the state is Failed and a later call starts a fresh attempt.
// Calling Connect on an already connected client is a no-op.
func (l *LDAP) ConnectContext(ctx context.Context) error {
	server := l.config.serverAddress()

	l.mu.Lock()
	switch l.state {
	case StateConnected:
		l.mu.Unlock()
		return nil
	case StateConnecting:
		l.mu.Unlock()
		return connectError("connect", server, errors.New("connection attempt already in progress"))
	}
	l.state = StateConnecting
	l.mu.Unlock()

	attemptID := uuid.NewString()
	start := time.Now()
	l.logConn.Info("connection_attempt_started",
		slog.String("conn_id", attemptID),
		slog.String("server", server),
		slog.String("encryption", string(l.config.Encryption)),
		slog.Duration("timeout", l.config.ConnectTimeout))

	results := make(chan dialResult, 1)
	go func() {
		conn, err := l.dial(ctx, &l.config)
		results <- dialResult{conn: conn, err: err}
	}()

	deadline := time.NewTimer(l.config.ConnectTimeout)
	defer deadline.Stop()

	select {
	case r := <-results:
		if r.err != nil {
			l.failAttempt()
			l.logConn.Error("connection_failed",
				slog.String("conn_id", attemptID),
				slog.String("server", server),
				slog.String("error", r.err.Error()),
				slog.Duration("duration", time.Since(start)))
			return connectError("connect", server, r.err)
		}
		if !l.install(r.conn, attemptID) {
			return connectError("connect", server, errors.New("connection attempt aborted"))
		}
		l.logConn.Info("connection_established",
			slog.String("conn_id", attemptID),
			slog.String("server", server),
			slog.String("encryption", string(l.config.Encryption)),
			slog.Duration("duration", time.Since(start)))
		return nil

	case <-deadline.C:
		l.failAttempt()
		go l.discardLateResult(results, attemptID)
		l.logConn.Error("connection_timeout",
			slog.String("conn_id", attemptID),
			slog.String("server", server),
			slog.Duration("timeout", l.config.ConnectTimeout))
		return timeoutError("connect", server, l.config.ConnectTimeout)

	case <-ctx.Done():
		l.failAttempt()
		go l.discardLateResult(results, attemptID)
		l.logConn.Error("connection_cancelled",
			slog.String("conn_id", attemptID),
			slog.String("server", server),
			slog.String("error", ctx.Err().Error()))
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return timeoutError("connect", server, time.Since(start))
		}
		return connectError("connect", server, ctx.Err())
	}
}

// install publishes a freshly dialed connection as the client's live one,
// arming a new bind gate and idle monitor. Returns false when the attempt
// was aborted (Disconnect during Connecting); the connection is closed.
func (l *LDAP) install(conn Conn, connID string) bool {
	if l.config.OperationTimeout > 0 {
		conn.SetTimeout(l.config.OperationTimeout)
	}

	l.mu.Lock()
	if l.state != StateConnecting {
		l.mu.Unlock()
		_ = conn.Close()
		return false
	}
	l.conn = conn
	l.state = StateConnected
	l.gate = &bindGate{}
	l.connID = connID
	l.gen++
	gen := l.gen
	if l.config.IdleTimeout > 0 {
		l.idle = newIdleMonitor(l.config.IdleTimeout, func() { l.idleExpire(gen) })
	}
	l.mu.Unlock()
	return true
}

// failAttempt marks the in-flight attempt failed unless the client was
// disconnected in the meantime.
func (l *LDAP) failAttempt() {
	l.mu.Lock()
	if l.state == StateConnecting {
		l.state = StateFailed
	}
	l.mu.Unlock()
}

// discardLateResult drains the dial outcome after the attempt already
// reported a timeout or cancellation. Whatever arrives is logged and thrown
// away so a late success can never surface as a second outcome.
func (l *LDAP) discardLateResult(results <-chan dialResult, attemptID string) {
	r := <-results
	if r.conn != nil {
		_ = r.conn.Close()
	}
	attrs := []any{slog.String("conn_id", attemptID)}
	if r.err != nil {
		attrs = append(attrs, slog.String("error", r.err.Error()))
	}
	l.logConn.Debug("late_connection_event_discarded", attrs...)
}

// idleExpire tears the connection down after the idle window elapsed. The
// generation guard makes a stale timer harmless once the connection it
// watched is gone.
func (l *LDAP) idleExpire(gen uint64) {
	l.mu.Lock()
	if l.gen != gen || l.state != StateConnected {
		l.mu.Unlock()
		return
	}
	conn := l.conn
	idle := l.idle
	connID := l.connID
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
	l.logConn.Info("idle_timeout_reached",
		slog.String("conn_id", connID),
		slog.Duration("idle_timeout", l.config.IdleTimeout))
}

// touchIdle restarts the idle countdown for the given connection generation.
func (l *LDAP) touchIdle(gen uint64) {
	l.mu.Lock()
	idle := l.idle
	current := l.gen == gen
	l.mu.Unlock()
	if current && idle != nil {
		idle.touch()
	}
}

// clearIdle suspends the idle countdown for the given connection generation.
func (l *LDAP) clearIdle(gen uint64) {
	l.mu.Lock()
	idle := l.idle
	current := l.gen == gen
	l.mu.Unlock()
	if current && idle != nil {
		idle.clear()
	}
}

// TestConnection verifies the client can reach, secure, and bind to the
// directory. When the client is not already connected it opens a connection
// just for the check and closes it again.
func (l *LDAP) TestConnection(ctx context.Context) error {
	alreadyConnected := l.State() == StateConnected
	if err := l.ConnectContext(ctx); err != nil {
		return err
	}
	if !alreadyConnected {
		defer l.Disconnect()
	}
	conn, gate, gen, err := l.session()
	if err != nil {
		return connectError("test_connection", l.config.serverAddress(), err)
	}
	return l.ensureBound(ctx, conn, gate, gen)
}
