package ldap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSettings(t *testing.T) {
	cfg, err := ParseSettings(Settings{
		"host":                          "directory.example.com",
		"port":                          "636", // weakly typed
		"encryption":                    "ssl",
		"ca_cert":                       "-----BEGIN CERTIFICATE-----",
		"reject_unauthorized":           false,
		"connect_timeout":               5000,
		"idle_timeout":                  30000,
		"operation_timeout":             10000,
		"authentication":                true,
		"authentication_user_dn":        "cn=admin,dc=example,dc=com",
		"authentication_password":       "secret",
		"base_dn":                       "dc=example,dc=com",
		"user_search_filter":            "objectClass=person",
		"user_search_field":             "uid, mail",
		"user_search_scope":             "ONE",
		"search_page_size":              250,
		"search_size_limit":             1000,
		"group_filter_enabled":          true,
		"group_filter_object_class":     "groupOfNames",
		"group_filter_id_attribute":     "cn",
		"group_filter_member_attribute": "member",
		"group_filter_member_format":    "#{userdn}",
		"group_filter_group_name":       "writers",
		"unique_identifier_field":       "entryUUID,nsUniqueId",
		"find_user_after_login":         true,
	})
	require.NoError(t, err)

	assert.Equal(t, "directory.example.com", cfg.Host)
	assert.Equal(t, 636, cfg.Port)
	assert.Equal(t, EncryptionSSL, cfg.Encryption)
	assert.False(t, cfg.RejectUnauthorized)
	assert.Equal(t, 5*time.Second, cfg.ConnectTimeout)
	assert.Equal(t, 30*time.Second, cfg.IdleTimeout)
	assert.Equal(t, 10*time.Second, cfg.OperationTimeout)
	assert.True(t, cfg.Authentication)
	assert.Equal(t, "cn=admin,dc=example,dc=com", cfg.AuthenticationUserDN)
	assert.Equal(t, []string{"uid", "mail"}, cfg.UserSearchFields)
	assert.Equal(t, ScopeOne, cfg.UserSearchScope)
	assert.Equal(t, 250, cfg.SearchPageSize)
	assert.Equal(t, []string{"entryUUID", "nsUniqueId"}, cfg.UniqueIdentifierFields)
	assert.True(t, cfg.GroupFilterEnabled)
	assert.True(t, cfg.FindUserAfterLogin)
}

func TestParseSettingsDefaults(t *testing.T) {
	cfg, err := ParseSettings(Settings{"host": "directory.example.com"})
	require.NoError(t, err)

	assert.Equal(t, EncryptionNone, cfg.Encryption)
	assert.Equal(t, ScopeSub, cfg.UserSearchScope)
	assert.Equal(t, DefaultConnectTimeout, cfg.ConnectTimeout)
	assert.True(t, cfg.RejectUnauthorized)
	assert.Zero(t, cfg.IdleTimeout)
	assert.Equal(t, []string{"thumbnailPhoto", "jpegPhoto"}, cfg.BinaryPhotoAttributes)
}

func TestParseSettingsCaseInsensitiveKeys(t *testing.T) {
	cfg, err := ParseSettings(Settings{
		"Host":              "directory.example.com",
		"User_Search_Field": "uid,mail",
	})
	require.NoError(t, err)
	assert.Equal(t, "directory.example.com", cfg.Host)
	assert.Equal(t, []string{"uid", "mail"}, cfg.UserSearchFields)
}

func TestParseSettingsEncryptionSpellings(t *testing.T) {
	tests := []struct {
		value string
		want  EncryptionMode
	}{
		{"", EncryptionNone},
		{"none", EncryptionNone},
		{"plain", EncryptionNone},
		{"ssl", EncryptionSSL},
		{"ldaps", EncryptionSSL},
		{"tls", EncryptionStartTLS},
		{"STARTTLS", EncryptionStartTLS},
	}
	for _, tt := range tests {
		t.Run("value "+tt.value, func(t *testing.T) {
			cfg, err := ParseSettings(Settings{
				"host":       "directory.example.com",
				"encryption": tt.value,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Encryption)
		})
	}
}

func TestParseSettingsRejectsUnknownEncryption(t *testing.T) {
	_, err := ParseSettings(Settings{
		"host":       "directory.example.com",
		"encryption": "rot13",
	})
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))
}

func TestParseSettingsRejectsMissingHost(t *testing.T) {
	_, err := ParseSettings(Settings{"port": 389})
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))
}

func TestValidateRejectsBadScope(t *testing.T) {
	cfg := testConfig()
	cfg.UserSearchScope = "tree"
	_, err := New(cfg)
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))
}

func TestValidateRequiresAdminDN(t *testing.T) {
	cfg := testConfig()
	cfg.Authentication = true
	_, err := New(cfg)
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))
}

func TestServerAddress(t *testing.T) {
	cfg := ClientConfig{Host: "directory.example.com", Port: 636}
	assert.Equal(t, "directory.example.com:636", cfg.serverAddress())

	cfg.Port = 0
	assert.Equal(t, "directory.example.com", cfg.serverAddress())
}
