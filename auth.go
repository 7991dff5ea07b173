package ldap

import (
	"context"
	"log/slog"
	"time"
)

// Authenticate verifies credentials by binding as the given DN on the live
// connection. It reports false on any failure — wrong credentials, no
// connection, transport fault — and never returns an error: a failed login
// is a normal outcome at this boundary, not a defect.
//
// When find-user-after-login is configured, a successful bind is verified
// with a base-scope search at the DN itself; zero results turns the outcome
// back into false.
//
// Note that a successful call leaves the connection bound as that user.
func (l *LDAP) Authenticate(dn, password string) bool {
	return l.AuthenticateContext(context.Background(), dn, password)
}

// AuthenticateContext is Authenticate with a caller-supplied context.
func (l *LDAP) AuthenticateContext(ctx context.Context, dn, password string) bool {
	start := time.Now()
	l.logAuth.Info("authentication_started",
		slog.String("dn", maskSensitiveData(dn)))

	if password == "" {
		// An empty password would turn the bind into an unauthenticated
		// bind, which many servers accept. That must never count as a
		// verified credential.
		l.logAuth.Error("authentication_rejected_empty_password",
			slog.String("dn", maskSensitiveData(dn)))
		return false
	}

	conn, _, gen, err := l.session()
	if err != nil {
		l.logAuth.Error("authentication_failed",
			slog.String("dn", maskSensitiveData(dn)),
			slog.String("error", err.Error()))
		return false
	}

	l.clearIdle(gen)
	err = conn.Bind(dn, password)
	l.touchIdle(gen)
	if err != nil {
		attrs := []any{
			slog.String("dn", maskSensitiveData(dn)),
			slog.String("error", err.Error()),
			slog.Duration("duration", time.Since(start)),
		}
		if isInvalidCredentials(err) {
			attrs = append(attrs, slog.Bool("invalid_credentials", true))
		}
		l.logAuth.Info("authentication_failed", attrs...)
		return false
	}

	if !l.config.FindUserAfterLogin {
		l.logAuth.Info("authentication_succeeded",
			slog.String("dn", maskSensitiveData(dn)),
			slog.Duration("duration", time.Since(start)))
		return true
	}

	params := SearchParams{
		BaseDN: dn,
		Options: SearchOptions{
			Filter: "(objectClass=*)",
			Scope:  ScopeBase,
		},
	}
	entries, err := l.runSearch(ctx, "post_bind_verification", params)
	if err != nil {
		l.logAuth.Error("post_bind_verification_failed",
			slog.String("dn", maskSensitiveData(dn)),
			slog.String("error", err.Error()))
		return false
	}
	if len(entries) == 0 {
		l.logAuth.Info("post_bind_verification_empty",
			slog.String("dn", maskSensitiveData(dn)))
		return false
	}
	if len(entries) > 1 {
		l.logAuth.Info("post_bind_verification_multiple_entries",
			slog.String("dn", maskSensitiveData(dn)),
			slog.Int("entry_count", len(entries)))
	}

	l.logAuth.Info("authentication_succeeded",
		slog.String("dn", maskSensitiveData(dn)),
		slog.Duration("duration", time.Since(start)))
	return true
}
