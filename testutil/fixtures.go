package testutil

import (
	"fmt"
	"sync"

	"github.com/go-ldap/ldap/v3"
)

// PagedScript serves a fixed sequence of search result pages the way a
// directory server drives the simple paged results control: every response
// before the last carries a continuation cookie, and each follow-up request
// is expected to echo the previous cookie back. Wire it into a MockConn as
// the SearchFunc.
type PagedScript struct {
	mu    sync.Mutex
	pages [][]*ldap.Entry
	calls int

	// RequestCookies records the paging cookie each request carried, nil
	// when the request had no paging control.
	RequestCookies [][]byte
}

// NewPagedScript builds a script serving the given pages in order.
func NewPagedScript(pages ...[]*ldap.Entry) *PagedScript {
	return &PagedScript{pages: pages}
}

// Search plays the next page of the script.
func (s *PagedScript) Search(req *ldap.SearchRequest) (*ldap.SearchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var requestCookie []byte
	if ctrl := ldap.FindControl(req.Controls, ldap.ControlTypePaging); ctrl != nil {
		if paging, ok := ctrl.(*ldap.ControlPaging); ok {
			requestCookie = append([]byte(nil), paging.Cookie...)
		}
	}
	s.RequestCookies = append(s.RequestCookies, requestCookie)

	if s.calls >= len(s.pages) {
		return &ldap.SearchResult{}, nil
	}
	page := s.pages[s.calls]
	s.calls++

	response := ldap.NewControlPaging(0)
	if s.calls < len(s.pages) {
		response.SetCookie([]byte(fmt.Sprintf("cookie-%d", s.calls)))
	}
	return &ldap.SearchResult{
		Entries:  page,
		Controls: []ldap.Control{response},
	}, nil
}

// Calls returns how many requests the script has served.
func (s *PagedScript) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// UserEntries fabricates n person entries under the given base DN, named
// user0001 onwards.
func UserEntries(baseDN string, n int) []*ldap.Entry {
	entries := make([]*ldap.Entry, 0, n)
	for i := 1; i <= n; i++ {
		name := fmt.Sprintf("user%04d", i)
		entries = append(entries, ldap.NewEntry(
			fmt.Sprintf("uid=%s,ou=people,%s", name, baseDN),
			map[string][]string{
				"uid":  {name},
				"cn":   {name},
				"mail": {name + "@example.com"},
			},
		))
	}
	return entries
}

// RawAttributeEntry builds an entry whose attribute values are given as raw
// bytes, for exercising binary and non-UTF-8 data paths.
func RawAttributeEntry(dn string, attrs map[string][][]byte) *ldap.Entry {
	entry := &ldap.Entry{DN: dn}
	for name, values := range attrs {
		attr := &ldap.EntryAttribute{Name: name}
		for _, value := range values {
			attr.Values = append(attr.Values, string(value))
			attr.ByteValues = append(attr.ByteValues, append([]byte(nil), value...))
		}
		entry.Attributes = append(entry.Attributes, attr)
	}
	return entry
}
