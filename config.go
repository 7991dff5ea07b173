package ldap

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// EncryptionMode selects how the transport to the directory server is
// protected.
type EncryptionMode string

const (
	// EncryptionNone uses a plaintext connection.
	EncryptionNone EncryptionMode = "none"
	// EncryptionSSL negotiates TLS at transport-connect time (ldaps).
	EncryptionSSL EncryptionMode = "ssl"
	// EncryptionStartTLS establishes a plaintext connection and upgrades it
	// in place before the connection is considered usable.
	EncryptionStartTLS EncryptionMode = "tls"
)

// Search scopes accepted by SearchOptions and the user-search-scope setting.
const (
	ScopeBase = "base"
	ScopeOne  = "one"
	ScopeSub  = "sub"
)

// DefaultConnectTimeout bounds connection establishment when no connect
// timeout is configured.
const DefaultConnectTimeout = 30 * time.Second

// defaultBinaryPhotoAttributes are the attributes whose values stay binary
// during entry normalization when the setting is absent.
var defaultBinaryPhotoAttributes = []string{"thumbnailPhoto", "jpegPhoto"}

// ClientConfig is the immutable snapshot of every connection, search, and
// group-filter parameter a client uses. It is read once at construction and
// never mutated afterwards.
type ClientConfig struct {
	// Host is the directory server hostname or IP address.
	Host string `validate:"required"`
	// Port is the directory server port. Zero selects the protocol default
	// (389 plaintext/STARTTLS, 636 ldaps).
	Port int `validate:"min=0,max=65535"`
	// Encryption selects the transport protection mode.
	Encryption EncryptionMode `validate:"omitempty,oneof=none ssl tls"`
	// CACert holds trusted certificates as concatenated PEM text. Empty
	// means the system trust store.
	CACert string
	// RejectUnauthorized enables server certificate verification.
	RejectUnauthorized bool

	// ConnectTimeout bounds connection establishment including the TLS or
	// STARTTLS handshake. Zero means DefaultConnectTimeout.
	ConnectTimeout time.Duration `validate:"min=0"`
	// IdleTimeout tears the connection down after this much inactivity.
	// Zero disables idle monitoring.
	IdleTimeout time.Duration `validate:"min=0"`
	// OperationTimeout bounds each wire request on the live connection.
	// Zero keeps the protocol library default.
	OperationTimeout time.Duration `validate:"min=0"`

	// Authentication enables the one-time administrative bind before
	// searches. When false, searches run over the unauthenticated
	// connection.
	Authentication bool
	// AuthenticationUserDN is the administrative bind DN.
	AuthenticationUserDN string `validate:"required_if=Authentication true"`
	// AuthenticationPassword is the administrative bind password.
	AuthenticationPassword string

	// BaseDN is the root of every user and group search.
	BaseDN string
	// UserSearchFilter is an optional extra filter clause ANDed into every
	// user search (parentheses added when missing).
	UserSearchFilter string
	// UserSearchFields are the attributes matched against the username, OR
	// combined when more than one is configured.
	UserSearchFields []string
	// UserSearchScope is the scope of user searches. Empty means sub.
	UserSearchScope string `validate:"omitempty,oneof=base one sub"`
	// SearchPageSize is the server page size for paged searches. Zero
	// disables server-side paging.
	SearchPageSize int `validate:"min=0"`
	// SearchSizeLimit caps the number of entries the server returns.
	// Zero means no client-imposed limit.
	SearchSizeLimit int `validate:"min=0"`

	// GroupFilterEnabled turns the group-membership predicate on. When
	// false, IsUserInGroup reports true without searching.
	GroupFilterEnabled bool
	// GroupFilterObjectClass matches the group entry's object class.
	GroupFilterObjectClass string
	// GroupFilterIDAttribute names the attribute matched against
	// GroupFilterGroupName.
	GroupFilterIDAttribute string
	// GroupFilterMemberAttribute names the membership attribute.
	GroupFilterMemberAttribute string
	// GroupFilterMemberFormat is the membership value template. It may
	// reference #{username} and #{userdn}.
	GroupFilterMemberFormat string
	// GroupFilterGroupName is the group to test membership against.
	GroupFilterGroupName string

	// UniqueIdentifierFields are the attributes the by-id lookup matches,
	// OR combined, when no explicit attribute is passed.
	UniqueIdentifierFields []string
	// FindUserAfterLogin verifies a successful bind with a base-scope
	// search at the bound DN.
	FindUserAfterLogin bool
	// BinaryPhotoAttributes stay raw during normalization. Nil selects
	// thumbnailPhoto and jpegPhoto.
	BinaryPhotoAttributes []string
}

// validate is shared across the package; a validator.Validate caches struct
// metadata and is safe for concurrent use.
var validate = validator.New()

// withDefaults returns a copy with the documented fallbacks applied: scope
// sub, plaintext encryption, the default connect timeout, and the default
// binary photo set.
func (c ClientConfig) withDefaults() ClientConfig {
	if c.Encryption == "" {
		c.Encryption = EncryptionNone
	}
	if c.UserSearchScope == "" {
		c.UserSearchScope = ScopeSub
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.BinaryPhotoAttributes == nil {
		c.BinaryPhotoAttributes = defaultBinaryPhotoAttributes
	}
	return c
}

// Validate reports whether the configuration can produce a usable client.
func (c *ClientConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			first := fieldErrs[0]
			return configurationError("validate_config",
				fmt.Errorf("field %s failed rule %q", first.Field(), first.Tag()))
		}
		return configurationError("validate_config", err)
	}
	return nil
}

// serverAddress renders host:port for log context and error messages.
func (c *ClientConfig) serverAddress() string {
	if c.Port > 0 {
		return fmt.Sprintf("%s:%d", c.Host, c.Port)
	}
	return c.Host
}

// isBinaryPhotoAttribute reports whether attribute values must stay raw
// during normalization. Attribute names compare case-insensitively.
func (c *ClientConfig) isBinaryPhotoAttribute(name string) bool {
	for _, photo := range c.BinaryPhotoAttributes {
		if strings.EqualFold(photo, name) {
			return true
		}
	}
	return false
}
