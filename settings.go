package ldap

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

// Settings is the flat key-value set a host application hands over at client
// construction. Keys match case-insensitively, values are coerced weakly
// ("389" and 389 both work), timeouts are integer milliseconds, and list
// settings are comma separated.
//
// Recognized keys: host, port, encryption, ca_cert, reject_unauthorized,
// connect_timeout, idle_timeout, operation_timeout, authentication,
// authentication_user_dn, authentication_password, base_dn,
// user_search_filter, user_search_field, user_search_scope,
// search_page_size, search_size_limit, group_filter_enabled,
// group_filter_object_class, group_filter_id_attribute,
// group_filter_member_attribute, group_filter_member_format,
// group_filter_group_name, unique_identifier_field, find_user_after_login,
// binary_photo_attributes.
type Settings map[string]any

// rawSettings mirrors the wire shape of Settings before normalization.
type rawSettings struct {
	Host               string `mapstructure:"host"`
	Port               int    `mapstructure:"port"`
	Encryption         string `mapstructure:"encryption"`
	CACert             string `mapstructure:"ca_cert"`
	RejectUnauthorized *bool  `mapstructure:"reject_unauthorized"`

	ConnectTimeoutMS   int `mapstructure:"connect_timeout"`
	IdleTimeoutMS      int `mapstructure:"idle_timeout"`
	OperationTimeoutMS int `mapstructure:"operation_timeout"`

	Authentication         bool   `mapstructure:"authentication"`
	AuthenticationUserDN   string `mapstructure:"authentication_user_dn"`
	AuthenticationPassword string `mapstructure:"authentication_password"`

	BaseDN           string `mapstructure:"base_dn"`
	UserSearchFilter string `mapstructure:"user_search_filter"`
	UserSearchField  string `mapstructure:"user_search_field"`
	UserSearchScope  string `mapstructure:"user_search_scope"`
	SearchPageSize   int    `mapstructure:"search_page_size"`
	SearchSizeLimit  int    `mapstructure:"search_size_limit"`

	GroupFilterEnabled         bool   `mapstructure:"group_filter_enabled"`
	GroupFilterObjectClass     string `mapstructure:"group_filter_object_class"`
	GroupFilterIDAttribute     string `mapstructure:"group_filter_id_attribute"`
	GroupFilterMemberAttribute string `mapstructure:"group_filter_member_attribute"`
	GroupFilterMemberFormat    string `mapstructure:"group_filter_member_format"`
	GroupFilterGroupName       string `mapstructure:"group_filter_group_name"`

	UniqueIdentifierField string `mapstructure:"unique_identifier_field"`
	FindUserAfterLogin    bool   `mapstructure:"find_user_after_login"`
	BinaryPhotoAttributes string `mapstructure:"binary_photo_attributes"`
}

// ParseSettings decodes a flat settings map into a validated ClientConfig.
func ParseSettings(settings Settings) (ClientConfig, error) {
	var raw rawSettings
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &raw,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return ClientConfig{}, configurationError("parse_settings", err)
	}
	if err := decoder.Decode(map[string]any(settings)); err != nil {
		return ClientConfig{}, configurationError("parse_settings", err)
	}

	encryption, err := parseEncryption(raw.Encryption)
	if err != nil {
		return ClientConfig{}, err
	}

	cfg := ClientConfig{
		Host:               raw.Host,
		Port:               raw.Port,
		Encryption:         encryption,
		CACert:             raw.CACert,
		RejectUnauthorized: true,

		ConnectTimeout:   time.Duration(raw.ConnectTimeoutMS) * time.Millisecond,
		IdleTimeout:      time.Duration(raw.IdleTimeoutMS) * time.Millisecond,
		OperationTimeout: time.Duration(raw.OperationTimeoutMS) * time.Millisecond,

		Authentication:         raw.Authentication,
		AuthenticationUserDN:   raw.AuthenticationUserDN,
		AuthenticationPassword: raw.AuthenticationPassword,

		BaseDN:           raw.BaseDN,
		UserSearchFilter: raw.UserSearchFilter,
		UserSearchFields: splitList(raw.UserSearchField),
		UserSearchScope:  strings.ToLower(strings.TrimSpace(raw.UserSearchScope)),
		SearchPageSize:   raw.SearchPageSize,
		SearchSizeLimit:  raw.SearchSizeLimit,

		GroupFilterEnabled:         raw.GroupFilterEnabled,
		GroupFilterObjectClass:     raw.GroupFilterObjectClass,
		GroupFilterIDAttribute:     raw.GroupFilterIDAttribute,
		GroupFilterMemberAttribute: raw.GroupFilterMemberAttribute,
		GroupFilterMemberFormat:    raw.GroupFilterMemberFormat,
		GroupFilterGroupName:       raw.GroupFilterGroupName,

		UniqueIdentifierFields: splitList(raw.UniqueIdentifierField),
		FindUserAfterLogin:     raw.FindUserAfterLogin,
	}
	if raw.RejectUnauthorized != nil {
		cfg.RejectUnauthorized = *raw.RejectUnauthorized
	}
	if photos := splitList(raw.BinaryPhotoAttributes); photos != nil {
		cfg.BinaryPhotoAttributes = photos
	}

	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return ClientConfig{}, err
	}
	return cfg, nil
}

// parseEncryption normalizes the encryption setting. The legacy spellings
// "plain" and "starttls" map onto none and tls.
func parseEncryption(value string) (EncryptionMode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "none", "plain":
		return EncryptionNone, nil
	case "ssl", "ldaps":
		return EncryptionSSL, nil
	case "tls", "starttls":
		return EncryptionStartTLS, nil
	default:
		return "", configurationError("parse_settings",
			fmt.Errorf("unknown encryption mode %q", value))
	}
}

// splitList turns a comma-separated setting into trimmed values, dropping
// empties. Returns nil for a blank setting.
func splitList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
