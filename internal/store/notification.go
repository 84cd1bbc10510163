package store

import (
	"sync"
	"time"

	"unihub/internal/models"

	"github.com/google/uuid"
)

// NotificationStore keeps the in-app notification list in memory, newest
// first. The unread count is derived state and always equals the number of
// entries with Read == false.
type NotificationStore struct {
	mu     sync.RWMutex
	items  []*models.Notification
	unread int
}

// NewNotificationStore returns an empty NotificationStore.
func NewNotificationStore() *NotificationStore {
	return &NotificationStore{}
}

// Add prepends a new notification and returns its generated id. A zero
// Type defaults to info.
func (s *NotificationStore) Add(title, message string, typ models.NotificationType, link string) string {
	if typ == "" {
		typ = models.NotifyInfo
	}
	n := &models.Notification{
		ID:      uuid.NewString(),
		Title:   title,
		Message: message,
		Type:    typ,
		Link:    link,
		Read:    false,
		Date:    time.Now(),
	}

	s.mu.Lock()
	s.items = append([]*models.Notification{n}, s.items...)
	s.unread++
	s.mu.Unlock()

	return n.ID
}

// MarkAsRead flips a single notification to read. Unknown ids and already
// read entries are no-ops.
func (s *NotificationStore) MarkAsRead(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, n := range s.items {
		if n.ID == id {
			if !n.Read {
				n.Read = true
				s.unread--
			}
			return
		}
	}
}

// MarkAllAsRead flips every notification to read and zeroes the unread
// count.
func (s *NotificationStore) MarkAllAsRead() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, n := range s.items {
		n.Read = true
	}
	s.unread = 0
}

// Delete removes a notification by id, adjusting the unread count when the
// removed entry was unread.
func (s *NotificationStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, n := range s.items {
		if n.ID == id {
			if !n.Read {
				s.unread--
			}
			s.items = append(s.items[:i], s.items[i+1:]...)
			return
		}
	}
}

// ClearAll removes every notification.
func (s *NotificationStore) ClearAll() {
	s.mu.Lock()
	s.items = nil
	s.unread = 0
	s.mu.Unlock()
}

// Notifications returns the list, newest first.
func (s *NotificationStore) Notifications() []*models.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Notification, len(s.items))
	copy(out, s.items)
	return out
}

// UnreadCount returns the number of unread notifications.
func (s *NotificationStore) UnreadCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unread
}
