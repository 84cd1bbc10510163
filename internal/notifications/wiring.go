package notifications

import (
	"context"
	"strconv"
	"strings"

	"unihub/internal/observability"

	"github.com/redis/go-redis/v9"
)

// WireHub subscribes to every user notification channel and fans incoming
// payloads out to the user's websocket connections. Blocks until ctx is
// cancelled. A nil Redis client makes this a no-op.
func WireHub(ctx context.Context, rdb *redis.Client, hub *Hub) {
	if rdb == nil {
		return
	}
	logger := observability.Named("hub-wiring")

	pubsub := rdb.PSubscribe(ctx, "notify:user:*")
	defer func() { _ = pubsub.Close() }()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			userID, err := userIDFromChannel(msg.Channel)
			if err != nil {
				logger.Warn("unroutable notification channel", "channel", msg.Channel)
				continue
			}
			hub.SendToUser(userID, []byte(msg.Payload))
		}
	}
}

func userIDFromChannel(channel string) (uint, error) {
	idx := strings.LastIndex(channel, ":")
	id, err := strconv.ParseUint(channel[idx+1:], 10, 32)
	return uint(id), err
}
