package server

import (
	"unihub/internal/models"

	"github.com/gofiber/fiber/v2"
)

// CreateTaskRequest is the request body for adding a task.
type CreateTaskRequest struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Subject     string              `json:"subject"`
	Deadline    string              `json:"deadline"`
	Priority    models.TaskPriority `json:"priority"`
}

// GetTasks handles GET /api/tasks
func (s *Server) GetTasks(c *fiber.Ctx) error {
	return c.JSON(s.tasks.Tasks())
}

// CreateTask handles POST /api/tasks
func (s *Server) CreateTask(c *fiber.Ctx) error {
	var req CreateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	id, err := s.tasks.Add(req.Title, req.Description, req.Subject, req.Deadline, req.Priority)
	if err != nil {
		return models.RespondWithError(c, models.HTTPStatus(err), err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": id})
}

// UpdateTask handles PUT /api/tasks/:id
func (s *Server) UpdateTask(c *fiber.Ctx) error {
	var upd models.TaskUpdate
	if err := c.BodyParser(&upd); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	task, err := s.tasks.Update(c.Params("id"), upd)
	if err != nil {
		return models.RespondWithError(c, models.HTTPStatus(err), err)
	}
	return c.JSON(task)
}

// ToggleTask handles POST /api/tasks/:id/toggle
func (s *Server) ToggleTask(c *fiber.Ctx) error {
	task, err := s.tasks.ToggleComplete(c.Params("id"))
	if err != nil {
		return models.RespondWithError(c, models.HTTPStatus(err), err)
	}
	return c.JSON(task)
}

// DeleteTask handles DELETE /api/tasks/:id
func (s *Server) DeleteTask(c *fiber.Ctx) error {
	if err := s.tasks.Delete(c.Params("id")); err != nil {
		return models.RespondWithError(c, models.HTTPStatus(err), err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
