package models

import "time"

// NotificationType selects the icon/severity used when rendering.
type NotificationType string

const (
	NotifyInfo    NotificationType = "info"
	NotifySuccess NotificationType = "success"
	NotifyWarning NotificationType = "warning"
	NotifyError   NotificationType = "error"
)

// Notification is an in-memory, user-facing event. Notifications are not
// persisted anywhere and are lost on restart.
type Notification struct {
	ID      string           `json:"id"`
	Title   string           `json:"title"`
	Message string           `json:"message"`
	Type    NotificationType `json:"type"`
	Link    string           `json:"link,omitempty"`
	Read    bool             `json:"read"`
	Date    time.Time        `json:"date"`
}
