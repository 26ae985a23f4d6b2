package core

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// NotificationKind selects how a notification is presented.
type NotificationKind string

const (
	NotificationSuccess NotificationKind = "success"
	NotificationError   NotificationKind = "error"
	NotificationInfo    NotificationKind = "info"
)

// NotificationTTL is how long a notification stays active after it is pushed.
const NotificationTTL = 5 * time.Second

// Notification is a transient user-facing message addressed to one user.
type Notification struct {
	ID        string           `json:"id"`
	Owner     string           `json:"-"`
	Kind      NotificationKind `json:"kind"`
	Message   string           `json:"message"`
	CreatedAt time.Time        `json:"created_at"`
	ExpiresAt time.Time        `json:"expires_at"`
}

// Notifier keeps notifications per owner until they expire or are
// dismissed. It is safe for concurrent use.
type Notifier struct {
	mu    sync.Mutex
	clock Clock
	items map[string]Notification
}

// NewNotifier returns a notifier that reads expiry times from clock. A nil
// clock uses the wall clock.
func NewNotifier(clock Clock) *Notifier {
	if clock == nil {
		clock = ClockFunc(time.Now)
	}
	return &Notifier{clock: clock, items: make(map[string]Notification)}
}

// Push stores a notification for owner and returns it.
func (n *Notifier) Push(owner string, kind NotificationKind, message string) Notification {
	now := n.clock.Now()
	item := Notification{
		ID:        uuid.NewString(),
		Owner:     owner,
		Kind:      kind,
		Message:   message,
		CreatedAt: now,
		ExpiresAt: now.Add(NotificationTTL),
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.prune(now)
	n.items[item.ID] = item
	return item
}

// Active returns owner's unexpired notifications, oldest first.
func (n *Notifier) Active(owner string) []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.prune(n.clock.Now())
	out := make([]Notification, 0)
	for _, item := range n.items {
		if item.Owner == owner {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Dismiss removes one of owner's notifications early. It reports whether
// the notification was active and belonged to owner.
func (n *Notifier) Dismiss(owner, id string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.prune(n.clock.Now())
	if item, ok := n.items[id]; !ok || item.Owner != owner {
		return false
	}
	delete(n.items, id)
	return true
}

func (n *Notifier) prune(now time.Time) {
	for id, item := range n.items {
		if !now.Before(item.ExpiresAt) {
			delete(n.items, id)
		}
	}
}

// NotificationFor converts a service error into an error notification
// without storing it. Validation errors use their message only.
func NotificationFor(err error) Notification {
	msg := err.Error()
	var verr ValidationError
	if errors.As(err, &verr) {
		msg = verr.Message
	}
	return Notification{Kind: NotificationError, Message: msg}
}
