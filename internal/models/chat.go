// Package models contains data structures for the application's domain models.
package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Chat represents a two-party conversation. Identity is the sorted
// participant pair: the unique ParticipantKey makes create-if-absent safe
// under concurrent StartChat calls from either side.
type Chat struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	ParticipantA   uint           `gorm:"not null;index" json:"participant_a"`
	ParticipantB   uint           `gorm:"not null;index" json:"participant_b"`
	ParticipantKey string         `gorm:"uniqueIndex;not null" json:"-"`
	UnreadCount    int            `gorm:"default:0" json:"unread_count"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
	Messages       []Message      `gorm:"foreignKey:ChatID" json:"messages,omitempty"`
}

// SortPair returns the two user ids in ascending order.
func SortPair(a, b uint) (uint, uint) {
	if b < a {
		return b, a
	}
	return a, b
}

// PairKey builds the order-independent lookup key for a participant pair.
func PairKey(a, b uint) string {
	lo, hi := SortPair(a, b)
	return fmt.Sprintf("%d:%d", lo, hi)
}

// Other returns the participant that is not userID. A chat always has
// exactly two participants.
func (c *Chat) Other(userID uint) uint {
	if c.ParticipantA == userID {
		return c.ParticipantB
	}
	return c.ParticipantA
}

// Has reports whether userID is a participant of the chat.
func (c *Chat) Has(userID uint) bool {
	return c.ParticipantA == userID || c.ParticipantB == userID
}

// Message is a single chat message. Timestamps are assigned by the store at
// write time; after creation only the Read flag ever changes.
type Message struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	ChatID     uint           `gorm:"not null;index" json:"chat_id"`
	SenderID   uint           `gorm:"not null;index" json:"sender_id"`
	ReceiverID uint           `gorm:"not null" json:"receiver_id"`
	Text       string         `gorm:"type:text" json:"text"`
	FileURL    string         `json:"file_url,omitempty"`
	FileType   string         `json:"file_type,omitempty"`
	Read       bool           `gorm:"default:false" json:"read"`
	CreatedAt  time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}
