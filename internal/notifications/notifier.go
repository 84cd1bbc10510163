// Package notifications provides the realtime change-notification layer:
// Redis pub/sub change events, query subscriptions that re-deliver full
// result sets, and WebSocket fan-out to connected portal clients.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ChangeKind labels what happened to a chat's message set.
type ChangeKind string

const (
	ChangeMessage ChangeKind = "message"
	ChangeRead    ChangeKind = "read"
	ChangeDelete  ChangeKind = "delete"
)

// ChangeEvent is the payload published on a chat's change channel. The
// event deliberately carries no message body: subscribers re-run their
// query and replace their whole result set.
type ChangeEvent struct {
	ChatID uint       `json:"chat_id"`
	Kind   ChangeKind `json:"kind"`
}

// Notifier publishes change events into Redis channels.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// ChatChannel returns the pub/sub channel for a chat's change events.
func ChatChannel(chatID uint) string {
	return fmt.Sprintf("chat:changes:%d", chatID)
}

// UserChannel returns the pub/sub channel for a user's notification events.
func UserChannel(userID uint) string {
	return fmt.Sprintf("notify:user:%d", userID)
}

// PublishChatChange notifies subscribers that the chat's message set changed.
func (n *Notifier) PublishChatChange(ctx context.Context, chatID uint, kind ChangeKind) error {
	if n.rdb == nil {
		return nil
	}
	payload, err := json.Marshal(ChangeEvent{ChatID: chatID, Kind: kind})
	if err != nil {
		return fmt.Errorf("marshal change event: %w", err)
	}
	return n.rdb.Publish(ctx, ChatChannel(chatID), payload).Err()
}

// PublishUser sends a notification payload to a user's channel.
func (n *Notifier) PublishUser(ctx context.Context, userID uint, payload []byte) error {
	if n.rdb == nil {
		return nil
	}
	return n.rdb.Publish(ctx, UserChannel(userID), payload).Err()
}
