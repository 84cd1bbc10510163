package server

import (
	"errors"
	"strconv"

	"unihub/internal/models"
	"unihub/internal/notifications"
	"unihub/internal/observability"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// StartChatRequest is the request body for opening a conversation.
type StartChatRequest struct {
	UserID uint `json:"user_id"`
}

// SendMessageRequest is the request body for sending a chat message.
type SendMessageRequest struct {
	Text     string `json:"text"`
	FileURL  string `json:"file_url"`
	FileType string `json:"file_type"`
}

// GetChats handles GET /api/chats
func (s *Server) GetChats(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	chats, err := s.chats.GetUserChats(c.UserContext(), userID)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}
	return c.JSON(chats)
}

// StartChat handles POST /api/chats. Starting a chat with a user you
// already share one with returns the existing conversation: identity is
// the sorted participant pair.
func (s *Server) StartChat(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	var req StartChatRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if req.UserID == userID {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Cannot start a conversation with yourself"))
	}

	other, err := s.users.GetByID(c.UserContext(), req.UserID)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}
	if other == nil {
		return models.RespondWithError(c, fiber.StatusNotFound, models.NewNotFoundError("user", req.UserID))
	}

	chat, err := s.chats.GetOrCreate(c.UserContext(), userID, req.UserID)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}
	return c.Status(fiber.StatusCreated).JSON(chat)
}

// GetMessages handles GET /api/chats/:id/messages
func (s *Server) GetMessages(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	chat, err := s.participantChat(c, userID)
	if err != nil {
		return models.RespondWithError(c, models.HTTPStatus(err), err)
	}

	msgs, err := s.chats.GetMessages(c.UserContext(), chat.ID)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}
	return c.JSON(msgs)
}

// SendMessage handles POST /api/chats/:id/messages
func (s *Server) SendMessage(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	chat, err := s.participantChat(c, userID)
	if err != nil {
		return models.RespondWithError(c, models.HTTPStatus(err), err)
	}

	var req SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if req.Text == "" && req.FileURL == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Message is empty"))
	}

	msg := &models.Message{
		ChatID:     chat.ID,
		SenderID:   userID,
		ReceiverID: chat.Other(userID),
		Text:       req.Text,
		FileURL:    req.FileURL,
		FileType:   req.FileType,
	}
	if err := s.chats.CreateMessage(c.UserContext(), msg); err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}

	observability.MessageThroughput.WithLabelValues(notifications.ChatChannel(chat.ID)).Inc()
	if err := s.notifier.PublishChatChange(c.UserContext(), chat.ID, notifications.ChangeMessage); err != nil {
		s.logger.WarnContext(c.UserContext(), "failed to publish change", "chat_id", chat.ID, "error", err)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

// MarkMessageRead handles POST /api/chats/:id/messages/:messageId/read
func (s *Server) MarkMessageRead(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	chat, err := s.participantChat(c, userID)
	if err != nil {
		return models.RespondWithError(c, models.HTTPStatus(err), err)
	}

	msgID, err := strconv.ParseUint(c.Params("messageId"), 10, 32)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid message id"))
	}

	// The update is scoped to the chat so a participant of one
	// conversation cannot flip read flags in another.
	if err := s.chats.MarkMessageRead(c.UserContext(), chat.ID, uint(msgID)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.RespondWithError(c, fiber.StatusNotFound, models.NewNotFoundError("message", msgID))
		}
		return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}
	if err := s.notifier.PublishChatChange(c.UserContext(), chat.ID, notifications.ChangeRead); err != nil {
		s.logger.WarnContext(c.UserContext(), "failed to publish change", "chat_id", chat.ID, "error", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// DeleteChat handles DELETE /api/chats/:id. Messages are removed before
// the chat record so a retry after partial failure still converges.
func (s *Server) DeleteChat(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	chat, err := s.participantChat(c, userID)
	if err != nil {
		return models.RespondWithError(c, models.HTTPStatus(err), err)
	}

	if err := s.chats.DeleteMessages(c.UserContext(), chat.ID); err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}
	if err := s.chats.Delete(c.UserContext(), chat.ID); err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}

	if err := s.notifier.PublishChatChange(c.UserContext(), chat.ID, notifications.ChangeDelete); err != nil {
		s.logger.WarnContext(c.UserContext(), "failed to publish change", "chat_id", chat.ID, "error", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// participantChat loads the chat from the :id param and verifies the user
// participates in it.
func (s *Server) participantChat(c *fiber.Ctx, userID uint) (*models.Chat, error) {
	chatID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return nil, models.NewValidationError("Invalid chat id")
	}

	chat, err := s.chats.GetByID(c.UserContext(), uint(chatID))
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if chat == nil {
		return nil, models.NewNotFoundError("chat", chatID)
	}
	if !chat.Has(userID) {
		return nil, models.NewForbiddenError("Not a participant of this conversation")
	}
	return chat, nil
}
