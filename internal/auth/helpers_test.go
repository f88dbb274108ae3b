package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type sentMail struct {
	To, Subject, Text, HTML string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentMail
	fail bool
}

func (n *recordingNotifier) Send(_ context.Context, to, subject, text, html string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return errors.New("smtp unavailable")
	}
	n.sent = append(n.sent, sentMail{To: to, Subject: subject, Text: text, HTML: html})
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

func (n *recordingNotifier) last() sentMail {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.sent[len(n.sent)-1]
}

type recordingAuditor struct {
	mu     sync.Mutex
	events []AuditEvent
}

func (a *recordingAuditor) Log(_ context.Context, e AuditEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, e)
	return nil
}

func (a *recordingAuditor) types() []AuditEventType {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]AuditEventType, 0, len(a.events))
	for _, e := range a.events {
		out = append(out, e.EventType)
	}
	return out
}

func fastHasher() *BcryptHasher {
	return &BcryptHasher{Cost: bcrypt.MinCost}
}

// flakyTokenStore fails the first Consume calls the way a rolled back
// transaction does: with an error and no state change.
type flakyTokenStore struct {
	*MemoryStore
	mu       sync.Mutex
	failures int
}

func (s *flakyTokenStore) Consume(ctx context.Context, tok EmailToken, at time.Time) (*User, bool, error) {
	s.mu.Lock()
	if s.failures > 0 {
		s.failures--
		s.mu.Unlock()
		return nil, false, errors.New("connection reset")
	}
	s.mu.Unlock()
	return s.MemoryStore.Consume(ctx, tok, at)
}
