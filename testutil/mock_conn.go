// Package testutil provides mock directory connections and entry fixtures
// for tests. The mock records every call so tests can assert on the exact
// wire traffic a client operation produced.
package testutil

import (
	"sync"
	"time"

	"github.com/go-ldap/ldap/v3"
)

// MockConn is a scriptable in-memory stand-in for a directory connection.
// Behavior is injected through the *Func fields; a nil field means the
// default (binds succeed, searches return no entries). All methods are safe
// for concurrent use.
type MockConn struct {
	mu sync.Mutex

	// Configuration
	BindFunc       func(username, password string) error
	SearchFunc     func(req *ldap.SearchRequest) (*ldap.SearchResult, error)
	UnbindFunc     func() error
	CloseFunc      func() error
	SetTimeoutFunc func(timeout time.Duration)

	// State tracking
	BindCalls   []BindCall
	SearchCalls []SearchCall
	Timeouts    []time.Duration
	Unbound     bool
	Closed      bool
}

// BindCall records one bind operation.
type BindCall struct {
	Username string
	Password string
	Error    error
}

// SearchCall records one search operation.
type SearchCall struct {
	Request *ldap.SearchRequest
	Result  *ldap.SearchResult
	Error   error
}

// NewMockConn creates a mock connection with default behavior.
func NewMockConn() *MockConn {
	return &MockConn{}
}

// Bind implements the connection interface.
func (m *MockConn) Bind(username, password string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var err error
	if m.BindFunc != nil {
		err = m.BindFunc(username, password)
	}

	m.BindCalls = append(m.BindCalls, BindCall{
		Username: username,
		Password: password,
		Error:    err,
	})
	return err
}

// Search implements the connection interface.
func (m *MockConn) Search(req *ldap.SearchRequest) (*ldap.SearchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := &ldap.SearchResult{}
	var err error
	if m.SearchFunc != nil {
		result, err = m.SearchFunc(req)
	}

	m.SearchCalls = append(m.SearchCalls, SearchCall{
		Request: req,
		Result:  result,
		Error:   err,
	})
	return result, err
}

// SetTimeout implements the connection interface.
func (m *MockConn) SetTimeout(timeout time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SetTimeoutFunc != nil {
		m.SetTimeoutFunc(timeout)
	}
	m.Timeouts = append(m.Timeouts, timeout)
}

// Unbind implements the connection interface.
func (m *MockConn) Unbind() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Unbound = true
	if m.UnbindFunc != nil {
		return m.UnbindFunc()
	}
	return nil
}

// Close implements the connection interface.
func (m *MockConn) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Closed = true
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// IsClosed reports whether Close was called.
func (m *MockConn) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Closed
}

// IsUnbound reports whether Unbind was called.
func (m *MockConn) IsUnbound() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Unbound
}

// BindCount returns the number of bind calls made.
func (m *MockConn) BindCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.BindCalls)
}

// SearchCount returns the number of search calls made.
func (m *MockConn) SearchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.SearchCalls)
}

// LastSearch returns the most recent recorded search, or nil.
func (m *MockConn) LastSearch() *SearchCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.SearchCalls) == 0 {
		return nil
	}
	call := m.SearchCalls[len(m.SearchCalls)-1]
	return &call
}

// WasUnbound reports whether Unbind was called.
func (m *MockConn) WasUnbound() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Unbound
}

// WasClosed reports whether Close was called.
func (m *MockConn) WasClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Closed
}

// SetBindError makes every subsequent bind fail with err.
func (m *MockConn) SetBindError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.BindFunc = func(username, password string) error {
		return err
	}
}

// SetSearchError makes every subsequent search fail with err.
func (m *MockConn) SetSearchError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SearchFunc = func(req *ldap.SearchRequest) (*ldap.SearchResult, error) {
		return nil, err
	}
}

// SetSearchEntries makes every subsequent search return the given entries.
func (m *MockConn) SetSearchEntries(entries ...*ldap.Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SearchFunc = func(req *ldap.SearchRequest) (*ldap.SearchResult, error) {
		return &ldap.SearchResult{Entries: entries}, nil
	}
}
