package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"unihub/internal/models"
	"unihub/internal/notifications"
	"unihub/internal/observability"
	"unihub/internal/repository"

	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

// ViewState is the lifecycle of the conversation view.
type ViewState string

const (
	// ViewIdle means no conversation is open.
	ViewIdle ViewState = "idle"
	// ViewLoading means a subscription is open but the first snapshot has
	// not arrived yet.
	ViewLoading ViewState = "loading"
	// ViewSynced means the local message list mirrors the server's
	// current result set.
	ViewSynced ViewState = "synced"
	// ViewDegraded means the change feed dropped; the last-known list is
	// shown while the stream resubscribes.
	ViewDegraded ViewState = "degraded"
)

// ChatStore maintains the conversation list, the active conversation's
// message stream and mediates send/search/start/delete. The realtime
// subscription handle is owned exclusively by this store: at most one is
// open at a time, and switching conversations tears the previous one down
// before the next is opened.
type ChatStore struct {
	chats    repository.ChatRepository
	users    repository.UserRepository
	streams  *notifications.Streams
	notifier *notifications.Notifier
	current  func() (uint, bool)
	logger   *observability.Logger

	// Collapses concurrent StartChat calls for the same participant pair.
	group singleflight.Group

	mu         sync.RWMutex
	activeChat *models.Chat
	messages   []*models.Message
	loading    bool
	sub        *notifications.Subscription
	applier    sync.WaitGroup

	// onSnapshot, when set, receives every applied snapshot. The gateway
	// uses it to push updates to connected websocket clients.
	onSnapshot func(chatID uint, msgs []*models.Message)
}

// NewChatStore returns a ChatStore. current reports the signed-in user.
func NewChatStore(
	chats repository.ChatRepository,
	users repository.UserRepository,
	streams *notifications.Streams,
	notifier *notifications.Notifier,
	current func() (uint, bool),
) *ChatStore {
	return &ChatStore{
		chats:    chats,
		users:    users,
		streams:  streams,
		notifier: notifier,
		current:  current,
		logger:   observability.Named("chat-store"),
	}
}

// OnSnapshot registers a callback invoked with every applied snapshot.
func (s *ChatStore) OnSnapshot(fn func(chatID uint, msgs []*models.Message)) {
	s.mu.Lock()
	s.onSnapshot = fn
	s.mu.Unlock()
}

// SearchUsers runs the directory prefix query ordered by display name.
// Callers filter out themselves and existing contacts.
func (s *ChatStore) SearchUsers(ctx context.Context, term string) ([]*models.User, error) {
	return s.users.SearchByNamePrefix(ctx, term, 20)
}

// Chats returns the signed-in user's conversations, most recent first.
func (s *ChatStore) Chats(ctx context.Context) ([]*models.Chat, error) {
	userID, ok := s.current()
	if !ok {
		return nil, models.NewUnauthorizedError("Not signed in")
	}
	return s.chats.GetUserChats(ctx, userID)
}

// StartChat resolves (or lazily creates) the conversation with the other
// user, makes it active and opens its message stream. StartChat(A→B) and
// StartChat(B→A) resolve to the same chat: identity is the sorted pair,
// enforced by a unique key so racing creators still converge on one chat.
func (s *ChatStore) StartChat(ctx context.Context, otherUserID uint) (uint, error) {
	userID, ok := s.current()
	if !ok {
		return 0, models.NewUnauthorizedError("Not signed in")
	}
	if otherUserID == userID {
		return 0, models.NewValidationError("Cannot start a conversation with yourself")
	}

	other, err := s.users.GetByID(ctx, otherUserID)
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	if other == nil {
		return 0, models.NewNotFoundError("user", otherUserID)
	}

	key := models.PairKey(userID, otherUserID)
	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		return s.chats.GetOrCreate(ctx, userID, otherUserID)
	})
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	chat := v.(*models.Chat)

	s.LoadMessages(ctx, chat)
	return chat.ID, nil
}

// OpenChat makes an existing conversation active by id.
func (s *ChatStore) OpenChat(ctx context.Context, chatID uint) error {
	userID, ok := s.current()
	if !ok {
		return models.NewUnauthorizedError("Not signed in")
	}
	chat, err := s.chats.GetByID(ctx, chatID)
	if err != nil {
		return models.NewInternalError(err)
	}
	if chat == nil {
		return models.NewNotFoundError("chat", chatID)
	}
	if !chat.Has(userID) {
		return models.NewForbiddenError("Not a participant of this conversation")
	}
	s.LoadMessages(ctx, chat)
	return nil
}

// LoadMessages tears down any previous subscription and opens a new one
// for the chat. Every emitted snapshot replaces the entire local message
// list. The loading flag stays set until the first snapshot arrives.
func (s *ChatStore) LoadMessages(ctx context.Context, chat *models.Chat) {
	s.mu.Lock()
	prev := s.sub
	s.sub = nil
	s.mu.Unlock()

	if prev != nil {
		prev.Close()
	}
	s.applier.Wait()

	sub := s.streams.Subscribe(ctx, chat.ID)

	s.mu.Lock()
	s.activeChat = chat
	s.messages = nil
	s.loading = true
	s.sub = sub
	s.mu.Unlock()

	s.applier.Add(1)
	go s.applySnapshots(chat.ID, sub)
}

// applySnapshots replaces the local list with every snapshot until the
// subscription closes.
func (s *ChatStore) applySnapshots(chatID uint, sub *notifications.Subscription) {
	defer s.applier.Done()
	for snap := range sub.Snapshots() {
		s.mu.Lock()
		if s.sub != sub {
			s.mu.Unlock()
			return
		}
		s.messages = snap
		s.loading = false
		fn := s.onSnapshot
		s.mu.Unlock()

		if fn != nil {
			fn(chatID, snap)
		}
	}
}

// SendMessage writes a new message to the active conversation. The
// receiver is the other participant. There is no optimistic local insert:
// the sender sees the message once the subscription delivers it back.
func (s *ChatStore) SendMessage(ctx context.Context, text, fileURL, fileType string) error {
	userID, ok := s.current()
	if !ok {
		return models.NewUnauthorizedError("Not signed in")
	}

	s.mu.RLock()
	chat := s.activeChat
	s.mu.RUnlock()
	if chat == nil {
		return models.NewValidationError("No active conversation")
	}
	if text == "" && fileURL == "" {
		return models.NewValidationError("Message is empty")
	}

	msg := &models.Message{
		ChatID:     chat.ID,
		SenderID:   userID,
		ReceiverID: chat.Other(userID),
		Text:       text,
		FileURL:    fileURL,
		FileType:   fileType,
		Read:       false,
		CreatedAt:  time.Now(),
	}
	if err := s.chats.CreateMessage(ctx, msg); err != nil {
		return models.NewInternalError(err)
	}

	observability.MessageThroughput.WithLabelValues(chatChannelLabel(chat.ID)).Inc()
	if err := s.notifier.PublishChatChange(ctx, chat.ID, notifications.ChangeMessage); err != nil {
		s.logger.WarnContext(ctx, "failed to publish change", "chat_id", chat.ID, "error", err)
	}
	return nil
}

// MarkAsRead flips the read flag on a message of the active conversation
// remotely. Local state is not touched directly; the open subscription
// reflects the change. The update is scoped to the active chat, so a
// message id from another conversation is reported as not found.
func (s *ChatStore) MarkAsRead(ctx context.Context, messageID uint) error {
	s.mu.RLock()
	chat := s.activeChat
	s.mu.RUnlock()
	if chat == nil {
		return models.NewValidationError("No active conversation")
	}

	if err := s.chats.MarkMessageRead(ctx, chat.ID, messageID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("message", messageID)
		}
		return models.NewInternalError(err)
	}
	if err := s.notifier.PublishChatChange(ctx, chat.ID, notifications.ChangeRead); err != nil {
		s.logger.WarnContext(ctx, "failed to publish change", "chat_id", chat.ID, "error", err)
	}
	return nil
}

// DeleteChat removes the conversation and all its messages. Messages go
// first, then the chat record: a failure in between leaves an intact chat
// with no messages, recoverable by retrying the delete. Clears the active
// conversation when it was the one deleted.
func (s *ChatStore) DeleteChat(ctx context.Context, chatID uint) error {
	userID, ok := s.current()
	if !ok {
		return models.NewUnauthorizedError("Not signed in")
	}
	chat, err := s.chats.GetByID(ctx, chatID)
	if err != nil {
		return models.NewInternalError(err)
	}
	if chat == nil {
		return models.NewNotFoundError("chat", chatID)
	}
	if !chat.Has(userID) {
		return models.NewForbiddenError("Not a participant of this conversation")
	}

	if err := s.chats.DeleteMessages(ctx, chatID); err != nil {
		return models.NewInternalError(err)
	}
	if err := s.chats.Delete(ctx, chatID); err != nil {
		return models.NewInternalError(err)
	}

	if err := s.notifier.PublishChatChange(ctx, chatID, notifications.ChangeDelete); err != nil {
		s.logger.WarnContext(ctx, "failed to publish change", "chat_id", chatID, "error", err)
	}

	s.mu.RLock()
	active := s.activeChat
	s.mu.RUnlock()
	if active != nil && active.ID == chatID {
		s.Cleanup()
	}
	return nil
}

// Cleanup tears down the active subscription and clears the message list.
// Idempotent: safe to call with nothing open.
func (s *ChatStore) Cleanup() {
	s.mu.Lock()
	prev := s.sub
	s.sub = nil
	s.activeChat = nil
	s.messages = nil
	s.loading = false
	s.mu.Unlock()

	if prev != nil {
		prev.Close()
	}
	s.applier.Wait()
}

// ActiveChat returns the active conversation, or nil.
func (s *ChatStore) ActiveChat() *models.Chat {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeChat
}

// Messages returns the current message list (the last applied snapshot).
func (s *ChatStore) Messages() []*models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// State reports the conversation view's lifecycle state.
func (s *ChatStore) State() ViewState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch {
	case s.activeChat == nil:
		return ViewIdle
	case s.loading:
		return ViewLoading
	case s.sub != nil && s.sub.State() == notifications.StreamDegraded:
		return ViewDegraded
	default:
		return ViewSynced
	}
}

func chatChannelLabel(chatID uint) string {
	return notifications.ChatChannel(chatID)
}
