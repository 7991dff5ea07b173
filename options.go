package ldap

import (
	"log/slog"
)

// Option represents a functional option for configuring an LDAP client.
type Option func(*LDAP)

// WithLogger sets a structured logger for all client operations. Log output
// is grouped into four sections (connection, bind, search, auth) via the
// "section" attribute. If not provided, logging is discarded.
//
// Example:
//
//	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
//	client, err := New(config, WithLogger(logger))
func WithLogger(logger *slog.Logger) Option {
	return func(l *LDAP) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithBeforeSearchHook installs a hook invoked before every search, paged or
// not, with the effective base DN and options. The values it returns replace
// the originals, letting a collaborator rewrite where and how the search
// runs.
func WithBeforeSearchHook(hook BeforeSearchHook) Option {
	return func(l *LDAP) {
		l.beforeSearch = hook
	}
}

// WithDialFunc replaces the transport dialer. The function must return a
// connection that is already TLS-upgraded when the configuration demands it.
// Intended for tests and exotic transports.
func WithDialFunc(dial DialFunc) Option {
	return func(l *LDAP) {
		if dial != nil {
			l.dial = dial
		}
	}
}
