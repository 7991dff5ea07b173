package ldap

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"time"

	"github.com/go-ldap/ldap/v3"
)

// Conn is the subset of the protocol library's connection this client uses.
// Narrowing the surface keeps the dial path injectable for tests.
type Conn interface {
	Bind(username, password string) error
	Search(req *ldap.SearchRequest) (*ldap.SearchResult, error)
	SetTimeout(timeout time.Duration)
	Unbind() error
	Close() error
}

var _ Conn = (*ldap.Conn)(nil)

// DialFunc establishes a ready-to-bind connection for the given
// configuration, including any TLS or STARTTLS negotiation. The context
// carries the caller's connect deadline; implementations should stop dialing
// once it is done.
type DialFunc func(ctx context.Context, cfg *ClientConfig) (Conn, error)

// dialDirectory is the production DialFunc.
func dialDirectory(ctx context.Context, cfg *ClientConfig) (Conn, error) {
	dialer := &net.Dialer{Timeout: cfg.ConnectTimeout}
	if deadline, ok := ctx.Deadline(); ok {
		dialer.Deadline = deadline
	}

	url := directoryURL(cfg)
	opts := []ldap.DialOpt{ldap.DialWithDialer(dialer)}

	var tlsCfg *tls.Config
	if cfg.Encryption != EncryptionNone {
		var err error
		if tlsCfg, err = directoryTLSConfig(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.Encryption == EncryptionSSL {
		opts = append(opts, ldap.DialWithTLSConfig(tlsCfg))
	}

	conn, err := ldap.DialURL(url, opts...)
	if err != nil {
		return nil, err
	}
	if cfg.Encryption == EncryptionStartTLS {
		if err := conn.StartTLS(tlsCfg); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("starttls upgrade: %w", err)
		}
	}
	return conn, nil
}

// directoryURL renders the transport target. The port is omitted when unset
// so the protocol library applies its scheme default.
func directoryURL(cfg *ClientConfig) string {
	scheme := "ldap"
	if cfg.Encryption == EncryptionSSL {
		scheme = "ldaps"
	}
	if cfg.Port > 0 {
		return fmt.Sprintf("%s://%s", scheme, net.JoinHostPort(cfg.Host, fmt.Sprintf("%d", cfg.Port)))
	}
	return fmt.Sprintf("%s://%s", scheme, cfg.Host)
}

// directoryTLSConfig builds the TLS client configuration for ldaps and
// STARTTLS. The hostname is always set for SNI and verification, and the
// trust bundle may hold several concatenated PEM certificates.
func directoryTLSConfig(cfg *ClientConfig) (*tls.Config, error) {
	tlsCfg := &tls.Config{
		ServerName:         cfg.Host,
		InsecureSkipVerify: !cfg.RejectUnauthorized, //nolint:gosec // operator-controlled trust toggle
		MinVersion:         tls.VersionTLS12,
	}
	if cfg.CACert != "" {
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM([]byte(cfg.CACert)) {
			return nil, fmt.Errorf("no usable certificates in trust bundle")
		}
		tlsCfg.RootCAs = pool
	}
	return tlsCfg, nil
}
