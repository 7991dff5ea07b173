package ldap

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// bindGate serializes the one-time administrative bind for a single
// connection. done flips to true only on a successful bind; a failure leaves
// it false so the caller that triggered it sees the error and the next
// caller retries.
type bindGate struct {
	mu   sync.Mutex
	done bool
}

// ensureBound performs the administrative bind exactly once per connection
// lifetime, lazily, before any search touches the wire. It is a permanent
// no-op when administrative authentication is disabled. Concurrent first
// callers serialize on the gate so at most one bind request reaches the
// server.
func (l *LDAP) ensureBound(ctx context.Context, conn Conn, gate *bindGate, gen uint64) error {
	if !l.config.Authentication {
		return nil
	}

	gate.mu.Lock()
	defer gate.mu.Unlock()
	if gate.done {
		return nil
	}

	server := l.config.serverAddress()
	dn := l.config.AuthenticationUserDN
	if err := ctx.Err(); err != nil {
		return bindError("admin_bind", server, dn, err)
	}

	start := time.Now()
	l.logBind.Debug("admin_bind_started",
		slog.String("bind_dn", maskSensitiveData(dn)))

	l.clearIdle(gen)
	err := conn.Bind(dn, l.config.AuthenticationPassword)
	l.touchIdle(gen)
	if err != nil {
		l.logBind.Error("admin_bind_failed",
			slog.String("bind_dn", maskSensitiveData(dn)),
			slog.Int("result_code", int(ldapResultCode(err))),
			slog.String("error", err.Error()),
			slog.Duration("duration", time.Since(start)))
		return bindError("admin_bind", server, dn, err)
	}

	gate.done = true
	l.logBind.Info("admin_bind_succeeded",
		slog.String("bind_dn", maskSensitiveData(dn)),
		slog.Duration("duration", time.Since(start)))
	return nil
}
