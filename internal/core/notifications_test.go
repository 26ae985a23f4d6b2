package core

import (
	"errors"
	"sync"
	"testing"
	"time"

	"hsecore/pkg/domain"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestNotifierExpiry(t *testing.T) {
	clock := &manualClock{now: fixedNow}
	n := NewNotifier(clock)

	first := n.Push("dr_ahmadi", NotificationSuccess, "saved")
	if first.ExpiresAt.Sub(first.CreatedAt) != NotificationTTL {
		t.Fatalf("expected %s ttl, got %s", NotificationTTL, first.ExpiresAt.Sub(first.CreatedAt))
	}
	clock.advance(3 * time.Second)
	second := n.Push("dr_ahmadi", NotificationInfo, "syncing")

	active := n.Active("dr_ahmadi")
	if len(active) != 2 || active[0].ID != first.ID {
		t.Fatalf("expected both active oldest first, got %+v", active)
	}

	clock.advance(2 * time.Second)
	active = n.Active("dr_ahmadi")
	if len(active) != 1 || active[0].ID != second.ID {
		t.Fatalf("expected first to expire at 5s, got %+v", active)
	}

	if !n.Dismiss("dr_ahmadi", second.ID) {
		t.Fatalf("expected dismiss to report active notification")
	}
	if n.Dismiss("dr_ahmadi", second.ID) {
		t.Fatalf("expected second dismiss to be a no-op")
	}
	if len(n.Active("dr_ahmadi")) != 0 {
		t.Fatalf("expected no active notifications")
	}
}

func TestNotifierSeparatesOwners(t *testing.T) {
	n := NewNotifier(fixedClock(fixedNow))
	doctor := n.Push("dr_ahmadi", NotificationError, `insufficient stock for "m1"`)
	n.Push("admin", NotificationSuccess, "user added")

	safety := n.Active("safety_officer")
	if len(safety) != 0 {
		t.Fatalf("expected no notifications for another user, got %+v", safety)
	}
	if got := n.Active("dr_ahmadi"); len(got) != 1 || got[0].ID != doctor.ID || got[0].Owner != "dr_ahmadi" {
		t.Fatalf("expected the doctor's notification only, got %+v", got)
	}
	if n.Dismiss("admin", doctor.ID) {
		t.Fatalf("expected dismiss by another user to be rejected")
	}
	if !n.Dismiss("dr_ahmadi", doctor.ID) {
		t.Fatalf("expected owner to dismiss")
	}
	if got := n.Active("admin"); len(got) != 1 {
		t.Fatalf("expected admin notification to remain, got %+v", got)
	}
}

func TestNotificationFor(t *testing.T) {
	v := NotificationFor(ValidationError{Entity: domain.EntityMedicine, Field: "name", Message: "name and type are required"})
	if v.Kind != NotificationError || v.Message != "name and type are required" {
		t.Fatalf("unexpected validation notification %+v", v)
	}
	wrapped := NotificationFor(errors.Join(errors.New("ctx"), ErrAccessDenied))
	if wrapped.Kind != NotificationError || wrapped.Message == "" {
		t.Fatalf("unexpected notification %+v", wrapped)
	}
}
