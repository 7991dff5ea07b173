package ldap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-ldap/ldap/v3"
)

// Sentinel errors identifying the failure category of a directory operation.
// Every error returned by this package wraps exactly one of these, so callers
// can classify failures with errors.Is without inspecting message text.
var (
	// ErrConnect indicates a transport or TLS failure while establishing
	// the connection (dial, TLS handshake, or STARTTLS upgrade).
	ErrConnect = errors.New("ldap: connection failed")

	// ErrTimeout indicates the connect deadline elapsed before the
	// transport reported any outcome.
	ErrTimeout = errors.New("ldap: connect deadline exceeded")

	// ErrBind indicates the server rejected a bind request (administrative
	// or end-user credentials).
	ErrBind = errors.New("ldap: bind rejected")

	// ErrSearchSetup indicates a search could not be started: the client is
	// not connected or the request parameters are unusable.
	ErrSearchSetup = errors.New("ldap: search setup failed")

	// ErrSearchStream indicates a search failed after it was issued, either
	// rejected by the server or cut off mid-stream.
	ErrSearchStream = errors.New("ldap: search stream failed")

	// ErrConfiguration indicates the supplied settings cannot produce a
	// usable client configuration.
	ErrConfiguration = errors.New("ldap: invalid configuration")

	// ErrNotConnected is the underlying cause reported when an operation
	// requires a live connection and there is none.
	ErrNotConnected = errors.New("ldap: not connected")

	// ErrUserNotFound is returned by single-entry lookups that matched
	// nothing.
	ErrUserNotFound = errors.New("ldap: user not found")
)

// DirectoryError carries the failure category plus operation context for a
// directory error. It wraps the underlying cause and matches its category
// sentinel through errors.Is.
type DirectoryError struct {
	// Kind is the category sentinel (ErrConnect, ErrBind, ...).
	Kind error
	// Op is the operation name (e.g. "connect", "search_users").
	Op string
	// Server is the directory server address.
	Server string
	// DN is the distinguished name involved, when applicable.
	DN string
	// Code is the LDAP result code reported by the server, if any.
	Code uint16
	// Err is the underlying error.
	Err error
	// Timestamp records when the error occurred.
	Timestamp time.Time
}

// Error implements the error interface.
func (e *DirectoryError) Error() string {
	switch {
	case e.DN != "" && e.Err != nil:
		return fmt.Sprintf("%v: %s for DN %q on %q: %v", e.Kind, e.Op, e.DN, e.Server, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%v: %s on %q: %v", e.Kind, e.Op, e.Server, e.Err)
	case e.DN != "":
		return fmt.Sprintf("%v: %s for DN %q on %q", e.Kind, e.Op, e.DN, e.Server)
	default:
		return fmt.Sprintf("%v: %s on %q", e.Kind, e.Op, e.Server)
	}
}

// Unwrap returns the underlying cause.
func (e *DirectoryError) Unwrap() error {
	return e.Err
}

// Is reports whether target is this error's category sentinel, so
// errors.Is(err, ErrBind) works on wrapped errors.
func (e *DirectoryError) Is(target error) bool {
	return target == e.Kind
}

// WithDN returns a copy of the error annotated with the given DN.
func (e *DirectoryError) WithDN(dn string) *DirectoryError {
	clone := *e
	clone.DN = dn
	return &clone
}

func newDirectoryError(kind error, op, server string, err error) *DirectoryError {
	return &DirectoryError{
		Kind:      kind,
		Op:        op,
		Server:    server,
		Code:      ldapResultCode(err),
		Err:       err,
		Timestamp: time.Now(),
	}
}

func connectError(op, server string, err error) *DirectoryError {
	return newDirectoryError(ErrConnect, op, server, err)
}

func timeoutError(op, server string, timeout time.Duration) *DirectoryError {
	return newDirectoryError(ErrTimeout, op, server, fmt.Errorf("no transport event within %s", timeout))
}

func bindError(op, server, dn string, err error) *DirectoryError {
	return newDirectoryError(ErrBind, op, server, err).WithDN(dn)
}

func searchSetupError(op, server string, err error) *DirectoryError {
	return newDirectoryError(ErrSearchSetup, op, server, err)
}

func searchStreamError(op, server string, err error) *DirectoryError {
	return newDirectoryError(ErrSearchStream, op, server, err)
}

func configurationError(op string, err error) *DirectoryError {
	return newDirectoryError(ErrConfiguration, op, "", err)
}

// ldapResultCode extracts the server result code from a go-ldap error, or 0.
func ldapResultCode(err error) uint16 {
	var ldapErr *ldap.Error
	if errors.As(err, &ldapErr) {
		return ldapErr.ResultCode
	}
	return 0
}

// IsConnectError reports whether err is a transport or TLS connect failure.
func IsConnectError(err error) bool {
	return errors.Is(err, ErrConnect)
}

// IsTimeoutError reports whether err is a connect deadline expiry.
func IsTimeoutError(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsBindError reports whether err is a rejected bind.
func IsBindError(err error) bool {
	return errors.Is(err, ErrBind)
}

// IsSearchSetupError reports whether err is a search that could not start.
func IsSearchSetupError(err error) bool {
	return errors.Is(err, ErrSearchSetup)
}

// IsSearchStreamError reports whether err is a search that failed after it
// was issued.
func IsSearchStreamError(err error) bool {
	return errors.Is(err, ErrSearchStream)
}

// IsConfigurationError reports whether err stems from unusable settings.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// IsNotFoundError reports whether err is a single-entry lookup that matched
// nothing.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrUserNotFound)
}

// isInvalidCredentials reports whether the server answered a bind with
// LDAP result code 49.
func isInvalidCredentials(err error) bool {
	return ldap.IsErrorWithCode(err, ldap.LDAPResultInvalidCredentials)
}

// IsContextError reports whether err stems from context cancellation or
// deadline expiry rather than the directory server.
func IsContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
