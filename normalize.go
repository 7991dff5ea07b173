package ldap

import (
	"github.com/go-ldap/ldap/v3"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
)

// Entry is a normalized directory entry: every non-photo attribute decoded
// to text, plus the complete untouched raw attribute values for callers that
// need the original bytes.
type Entry struct {
	// DN is the entry's distinguished name.
	DN string
	// Attributes maps attribute names to decoded text values. Binary photo
	// attributes do not appear here; read them through Raw.
	Attributes map[string][]string
	// Raw preserves every attribute's original byte values untouched,
	// including the photo attributes.
	Raw map[string][][]byte
}

// Attribute returns the first decoded value of the named attribute, or "".
// Attribute names match exactly as the server returned them.
func (e *Entry) Attribute(name string) string {
	if values := e.Attributes[name]; len(values) > 0 {
		return values[0]
	}
	return ""
}

// AttributeValues returns all decoded values of the named attribute.
func (e *Entry) AttributeValues(name string) []string {
	return e.Attributes[name]
}

// RawValue returns the first raw value of the named attribute, or nil.
func (e *Entry) RawValue(name string) []byte {
	if values := e.Raw[name]; len(values) > 0 {
		return values[0]
	}
	return nil
}

// normalizeEntry converts a raw protocol entry. Each value of each attribute
// is decoded to UTF-8 text with invalid bytes replaced by U+FFFD, matching
// how event-driven directory clients stringify buffers. Attributes in the
// binary photo set keep their bytes and are skipped in the text map.
// Multi-valued attributes such as ou decode element by element.
func (l *LDAP) normalizeEntry(raw *ldap.Entry) Entry {
	entry := Entry{
		DN:         raw.DN,
		Attributes: make(map[string][]string, len(raw.Attributes)),
		Raw:        make(map[string][][]byte, len(raw.Attributes)),
	}

	decoder := unicode.UTF8.NewDecoder()
	for _, attr := range raw.Attributes {
		entry.Raw[attr.Name] = attr.ByteValues
		if l.config.isBinaryPhotoAttribute(attr.Name) {
			continue
		}
		values := make([]string, len(attr.ByteValues))
		for i, b := range attr.ByteValues {
			values[i] = decodeText(decoder, b)
		}
		entry.Attributes[attr.Name] = values
	}
	return entry
}

// decodeText renders raw attribute bytes as UTF-8 text. The decoder
// substitutes U+FFFD for undecodable input, so err fires only on internal
// transform faults; the raw bytes pass through in that case.
func decodeText(decoder *encoding.Decoder, raw []byte) string {
	decoded, err := decoder.Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(decoded)
}
