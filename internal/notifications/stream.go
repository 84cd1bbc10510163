package notifications

import (
	"context"
	"sync"
	"time"

	"unihub/internal/models"
	"unihub/internal/observability"

	"github.com/redis/go-redis/v9"
)

const (
	resubscribeMin = time.Second
	resubscribeMax = 30 * time.Second
)

// SnapshotSource re-runs the message query for a chat. Satisfied by the
// chat repository.
type SnapshotSource interface {
	GetMessages(ctx context.Context, chatID uint) ([]*models.Message, error)
}

// StreamState describes the health of a subscription.
type StreamState string

const (
	// StreamLoading means the subscription is open but no snapshot has
	// arrived yet.
	StreamLoading StreamState = "loading"
	// StreamSynced means the local list mirrors the server's result set.
	StreamSynced StreamState = "synced"
	// StreamDegraded means the change feed dropped; the last-known
	// snapshot is retained while the stream resubscribes with backoff.
	StreamDegraded StreamState = "degraded"
	// StreamClosed means the subscription was torn down.
	StreamClosed StreamState = "closed"
)

// Streams opens realtime subscriptions to a chat's message query. Each
// change event triggers a re-query and the delivery of the full matching
// result set (full-replace semantics, never incremental patches).
type Streams struct {
	rdb    *redis.Client
	source SnapshotSource
	logger *observability.Logger
}

// NewStreams returns a Streams factory.
func NewStreams(rdb *redis.Client, source SnapshotSource) *Streams {
	return &Streams{
		rdb:    rdb,
		source: source,
		logger: observability.Named("stream"),
	}
}

// Subscription is a live subscription to one chat's message set. At most
// one snapshot is buffered: a newer snapshot replaces an undelivered older
// one, which is safe because every snapshot is the complete result set.
type Subscription struct {
	chatID    uint
	snapshots chan []*models.Message
	cancel    context.CancelFunc
	done      chan struct{}

	mu      sync.Mutex
	state   StreamState
	lastErr error
}

// Subscribe opens a subscription for the chat. The first snapshot is
// delivered as soon as the query completes; subsequent snapshots follow
// every published change event. Without Redis the stream delivers the
// initial snapshot and then stays degraded (no live updates).
func (s *Streams) Subscribe(ctx context.Context, chatID uint) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		chatID:    chatID,
		snapshots: make(chan []*models.Message, 1),
		cancel:    cancel,
		done:      make(chan struct{}),
		state:     StreamLoading,
	}
	go s.run(ctx, sub)
	return sub
}

// Snapshots returns the channel of full-replace result sets. The channel
// is closed when the subscription ends.
func (sub *Subscription) Snapshots() <-chan []*models.Message {
	return sub.snapshots
}

// State reports the subscription's current health.
func (sub *Subscription) State() StreamState {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	return sub.state
}

// Err returns the last subscription error, if any.
func (sub *Subscription) Err() error {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	return sub.lastErr
}

// Close tears the subscription down and waits for its goroutine to exit.
// Safe to call more than once.
func (sub *Subscription) Close() {
	sub.cancel()
	<-sub.done
}

func (sub *Subscription) setState(state StreamState, err error) {
	sub.mu.Lock()
	sub.state = state
	if err != nil {
		sub.lastErr = err
	}
	sub.mu.Unlock()
}

// push delivers a snapshot, replacing any undelivered one.
func (sub *Subscription) push(snap []*models.Message) {
	for {
		select {
		case sub.snapshots <- snap:
			observability.SnapshotDeliveries.Inc()
			return
		default:
			select {
			case <-sub.snapshots:
			default:
			}
		}
	}
}

func (s *Streams) run(ctx context.Context, sub *Subscription) {
	defer func() {
		sub.setState(StreamClosed, nil)
		close(sub.snapshots)
		close(sub.done)
	}()

	if s.rdb == nil {
		if snap, err := s.source.GetMessages(ctx, sub.chatID); err == nil {
			sub.push(snap)
		}
		sub.setState(StreamDegraded, nil)
		<-ctx.Done()
		return
	}

	backoff := resubscribeMin
	for {
		if ctx.Err() != nil {
			return
		}

		pubsub := s.rdb.Subscribe(ctx, ChatChannel(sub.chatID))
		// Attach before the initial query so no change slips between the
		// snapshot and the feed.
		if _, err := pubsub.Receive(ctx); err != nil {
			_ = pubsub.Close()
			if ctx.Err() != nil {
				return
			}
			sub.setState(StreamDegraded, err)
			observability.SubscriptionRetries.Inc()
			if !sleepCtx(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff)
			continue
		}
		backoff = resubscribeMin

		if snap, err := s.source.GetMessages(ctx, sub.chatID); err != nil {
			s.logger.WarnContext(ctx, "snapshot query failed",
				"chat_id", sub.chatID, "error", err)
		} else {
			sub.push(snap)
			sub.setState(StreamSynced, nil)
		}

		ch := pubsub.Channel()
		feedOK := s.consume(ctx, sub, ch)
		_ = pubsub.Close()
		if !feedOK {
			if ctx.Err() != nil {
				return
			}
			sub.setState(StreamDegraded, sub.Err())
			observability.SubscriptionRetries.Inc()
			if !sleepCtx(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff)
		}
	}
}

// consume pumps change events until the feed closes or the context ends.
// Returns false when the feed dropped and a resubscribe is needed.
func (s *Streams) consume(ctx context.Context, sub *Subscription, ch <-chan *redis.Message) bool {
	for {
		select {
		case <-ctx.Done():
			return true
		case _, ok := <-ch:
			if !ok {
				return false
			}
			snap, err := s.source.GetMessages(ctx, sub.chatID)
			if err != nil {
				s.logger.WarnContext(ctx, "snapshot query failed",
					"chat_id", sub.chatID, "error", err)
				continue
			}
			sub.push(snap)
			sub.setState(StreamSynced, nil)
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func nextBackoff(d time.Duration) time.Duration {
	d *= 2
	if d > resubscribeMax {
		return resubscribeMax
	}
	return d
}
