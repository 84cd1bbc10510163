package repository

import (
	"context"
	"errors"

	"unihub/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ChatRepository defines the interface for chat and message data operations
type ChatRepository interface {
	// GetOrCreate resolves the chat for the sorted participant pair,
	// creating it when absent. Safe under concurrent callers: the unique
	// participant key plus ON CONFLICT guarantees a single chat per pair.
	GetOrCreate(ctx context.Context, userA, userB uint) (*models.Chat, error)
	GetByID(ctx context.Context, id uint) (*models.Chat, error)
	GetByPair(ctx context.Context, userA, userB uint) (*models.Chat, error)
	GetUserChats(ctx context.Context, userID uint) ([]*models.Chat, error)
	Delete(ctx context.Context, id uint) error

	CreateMessage(ctx context.Context, msg *models.Message) error
	GetMessages(ctx context.Context, chatID uint) ([]*models.Message, error)
	// MarkMessageRead flips the read flag of a message scoped to chatID.
	// The chat id bounds the update: a message outside that chat is
	// reported as gorm.ErrRecordNotFound, never flipped.
	MarkMessageRead(ctx context.Context, chatID, msgID uint) error
	DeleteMessages(ctx context.Context, chatID uint) error
	CountMessages(ctx context.Context, chatID uint) (int64, error)
}

type chatRepository struct {
	db *gorm.DB
}

// NewChatRepository creates a new chat repository
func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

func (r *chatRepository) GetOrCreate(ctx context.Context, userA, userB uint) (*models.Chat, error) {
	lo, hi := models.SortPair(userA, userB)
	chat := &models.Chat{
		ParticipantA:   lo,
		ParticipantB:   hi,
		ParticipantKey: models.PairKey(lo, hi),
	}
	// DoNothing on the unique participant key: a racing creator wins and we
	// fall through to the lookup below.
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(chat).Error; err != nil {
		return nil, err
	}
	if chat.ID != 0 {
		return chat, nil
	}
	return r.GetByPair(ctx, lo, hi)
}

func (r *chatRepository) GetByID(ctx context.Context, id uint) (*models.Chat, error) {
	var chat models.Chat
	err := r.db.WithContext(ctx).First(&chat, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

func (r *chatRepository) GetByPair(ctx context.Context, userA, userB uint) (*models.Chat, error) {
	var chat models.Chat
	err := r.db.WithContext(ctx).
		Where("participant_key = ?", models.PairKey(userA, userB)).
		First(&chat).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

func (r *chatRepository) GetUserChats(ctx context.Context, userID uint) ([]*models.Chat, error) {
	var chats []*models.Chat
	err := r.db.WithContext(ctx).
		Where("participant_a = ? OR participant_b = ?", userID, userID).
		Order("updated_at DESC").
		Find(&chats).Error
	return chats, err
}

// Delete removes the chat record permanently so the participant pair can
// start a fresh conversation later without tripping the unique key.
func (r *chatRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Unscoped().Delete(&models.Chat{}, id).Error
}

// CreateMessage writes the message and bumps the chat's denormalized
// unread counter in the same transaction. The counter always equals the
// number of unread messages in the chat.
func (r *chatRepository) CreateMessage(ctx context.Context, msg *models.Message) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		return tx.Model(&models.Chat{}).
			Where("id = ?", msg.ChatID).
			Update("unread_count", gorm.Expr("unread_count + 1")).Error
	})
}

// GetMessages returns every message of the chat ordered by timestamp
// ascending, the exact result set the realtime subscription re-delivers.
func (r *chatRepository) GetMessages(ctx context.Context, chatID uint) ([]*models.Message, error) {
	var messages []*models.Message
	err := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("created_at ASC, id ASC").
		Find(&messages).Error
	return messages, err
}

func (r *chatRepository) MarkMessageRead(ctx context.Context, chatID, msgID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Message{}).
			Where("id = ? AND chat_id = ? AND read = ?", msgID, chatID, false).
			Update("read", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Either the message is already read (a no-op) or it does not
			// belong to this chat at all.
			var count int64
			if err := tx.Model(&models.Message{}).
				Where("id = ? AND chat_id = ?", msgID, chatID).
				Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return gorm.ErrRecordNotFound
			}
			return nil
		}
		return tx.Model(&models.Chat{}).
			Where("id = ?", chatID).
			Update("unread_count", gorm.Expr(
				"CASE WHEN unread_count > 0 THEN unread_count - 1 ELSE 0 END")).Error
	})
}

func (r *chatRepository) DeleteMessages(ctx context.Context, chatID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().
			Where("chat_id = ?", chatID).
			Delete(&models.Message{}).Error; err != nil {
			return err
		}
		return tx.Model(&models.Chat{}).
			Where("id = ?", chatID).
			Update("unread_count", 0).Error
	})
}

func (r *chatRepository) CountMessages(ctx context.Context, chatID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("chat_id = ?", chatID).
		Count(&count).Error
	return count, err
}
