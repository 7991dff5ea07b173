package ldap

import (
	"sync"
	"time"
)

// idleMonitor is the inactivity watchdog for one live connection. It fires
// once the idle window elapses without a touch. The paged search executor
// clears it before handing a page to the caller so slow per-entry work
// cannot cost the connection, and touches it again when the caller asks for
// the next page.
type idleMonitor struct {
	timeout time.Duration
	fire    func()

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

// newIdleMonitor starts the countdown immediately.
func newIdleMonitor(timeout time.Duration, fire func()) *idleMonitor {
	m := &idleMonitor{timeout: timeout, fire: fire}
	m.timer = time.AfterFunc(timeout, fire)
	return m
}

// touch restarts the countdown.
func (m *idleMonitor) touch() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return
	}
	m.timer.Reset(m.timeout)
}

// clear suspends the countdown until the next touch.
func (m *idleMonitor) clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return
	}
	m.timer.Stop()
}

// stop ends monitoring permanently.
func (m *idleMonitor) stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
	m.timer.Stop()
}
