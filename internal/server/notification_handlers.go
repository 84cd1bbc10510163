package server

import (
	"encoding/json"

	"unihub/internal/models"

	"github.com/gofiber/fiber/v2"
)

// AddNotificationRequest is the request body for pushing a notification.
type AddNotificationRequest struct {
	Title   string                  `json:"title"`
	Message string                  `json:"message"`
	Type    models.NotificationType `json:"type"`
	Link    string                  `json:"link"`
}

// GetNotifications handles GET /api/notifications
func (s *Server) GetNotifications(c *fiber.Ctx) error {
	ns := s.notificationsFor(c.Locals("userID").(uint))
	return c.JSON(fiber.Map{
		"notifications": ns.Notifications(),
		"unread_count":  ns.UnreadCount(),
	})
}

// AddNotification handles POST /api/notifications. The new entry is also
// pushed to the user's connected devices over the websocket hub.
func (s *Server) AddNotification(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	var req AddNotificationRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if req.Title == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Notification title is required"))
	}

	ns := s.notificationsFor(userID)
	id := ns.Add(req.Title, req.Message, req.Type, req.Link)

	if payload, err := json.Marshal(fiber.Map{
		"type": "notification",
		"id":   id,
	}); err == nil {
		if err := s.notifier.PublishUser(c.UserContext(), userID, payload); err != nil {
			s.logger.WarnContext(c.UserContext(), "failed to publish notification", "user_id", userID, "error", err)
		}
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": id})
}

// MarkNotificationRead handles POST /api/notifications/:id/read
func (s *Server) MarkNotificationRead(c *fiber.Ctx) error {
	s.notificationsFor(c.Locals("userID").(uint)).MarkAsRead(c.Params("id"))
	return c.SendStatus(fiber.StatusNoContent)
}

// MarkAllNotificationsRead handles POST /api/notifications/read-all
func (s *Server) MarkAllNotificationsRead(c *fiber.Ctx) error {
	s.notificationsFor(c.Locals("userID").(uint)).MarkAllAsRead()
	return c.SendStatus(fiber.StatusNoContent)
}

// DeleteNotification handles DELETE /api/notifications/:id
func (s *Server) DeleteNotification(c *fiber.Ctx) error {
	s.notificationsFor(c.Locals("userID").(uint)).Delete(c.Params("id"))
	return c.SendStatus(fiber.StatusNoContent)
}

// ClearNotifications handles DELETE /api/notifications/all
func (s *Server) ClearNotifications(c *fiber.Ctx) error {
	s.notificationsFor(c.Locals("userID").(uint)).ClearAll()
	return c.SendStatus(fiber.StatusNoContent)
}
