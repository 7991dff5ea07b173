package ldap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/directoryhub/ldap-client-go/testutil"
)

func TestNormalizeEntry(t *testing.T) {
	photo := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10}
	raw := testutil.RawAttributeEntry("uid=alice,dc=example,dc=com", map[string][][]byte{
		"uid":            {[]byte("alice")},
		"cn":             {[]byte("Alice Admin")},
		"thumbnailPhoto": {photo},
		"ou":             {[]byte("people"), []byte("staff")},
	})

	client, err := New(testConfig())
	require.NoError(t, err)

	entry := client.normalizeEntry(raw)

	assert.Equal(t, "uid=alice,dc=example,dc=com", entry.DN)
	assert.Equal(t, "alice", entry.Attribute("uid"))
	assert.Equal(t, "Alice Admin", entry.Attribute("cn"))

	// Photo attributes never reach the text map; their bytes stay raw.
	assert.NotContains(t, entry.Attributes, "thumbnailPhoto")
	assert.Equal(t, photo, entry.RawValue("thumbnailPhoto"))

	// Multi-valued attributes decode element by element.
	assert.Equal(t, []string{"people", "staff"}, entry.AttributeValues("ou"))

	// The raw map always carries every attribute untouched.
	for _, name := range []string{"uid", "cn", "thumbnailPhoto", "ou"} {
		assert.Contains(t, entry.Raw, name)
	}
	assert.Equal(t, [][]byte{[]byte("people"), []byte("staff")}, entry.Raw["ou"])
}

func TestNormalizeEntryInvalidUTF8(t *testing.T) {
	// Latin-1 "José": the 0xE9 byte is not valid UTF-8 and must come out as
	// the replacement character, not break the decode.
	raw := testutil.RawAttributeEntry("cn=jose,dc=example,dc=com", map[string][][]byte{
		"cn": {{0x4A, 0x6F, 0x73, 0xE9}},
	})

	client, err := New(testConfig())
	require.NoError(t, err)

	entry := client.normalizeEntry(raw)
	assert.Equal(t, "Jos�", entry.Attribute("cn"))
	assert.Equal(t, []byte{0x4A, 0x6F, 0x73, 0xE9}, entry.RawValue("cn"))
}

func TestNormalizeEntryPhotoAttributeCaseInsensitive(t *testing.T) {
	raw := testutil.RawAttributeEntry("uid=a,dc=example,dc=com", map[string][][]byte{
		"JPEGPhoto": {{0x01, 0x02}},
	})

	client, err := New(testConfig())
	require.NoError(t, err)

	entry := client.normalizeEntry(raw)
	assert.NotContains(t, entry.Attributes, "JPEGPhoto")
	assert.Equal(t, []byte{0x01, 0x02}, entry.RawValue("JPEGPhoto"))
}

func TestNormalizeEntryConfiguredPhotoSet(t *testing.T) {
	cfg := testConfig()
	cfg.BinaryPhotoAttributes = []string{"customPhoto"}
	client, err := New(cfg)
	require.NoError(t, err)

	raw := testutil.RawAttributeEntry("uid=a,dc=example,dc=com", map[string][][]byte{
		"customPhoto":    {{0x01}},
		"thumbnailPhoto": {[]byte("text now")},
	})

	entry := client.normalizeEntry(raw)
	assert.NotContains(t, entry.Attributes, "customPhoto")
	// thumbnailPhoto lost its exemption once the set was overridden.
	assert.Equal(t, "text now", entry.Attribute("thumbnailPhoto"))
}

func TestEntryAccessorsMissingAttribute(t *testing.T) {
	entry := Entry{}
	assert.Equal(t, "", entry.Attribute("uid"))
	assert.Nil(t, entry.AttributeValues("uid"))
	assert.Nil(t, entry.RawValue("uid"))
}
