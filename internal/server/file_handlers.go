package server

import (
	"path/filepath"

	"unihub/internal/models"

	"github.com/gofiber/fiber/v2"
)

// FileUploadResponse is the API response after uploading a file.
type FileUploadResponse struct {
	URL      string `json:"url"`
	FileType string `json:"file_type"`
}

// UploadFile handles POST /api/files
func (s *Server) UploadFile(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("No file uploaded"))
	}

	src, err := file.Open()
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Unable to read uploaded file"))
	}
	defer func() { _ = src.Close() }()

	url, err := s.files.Save(file.Filename, file.Header.Get("Content-Type"), src)
	if err != nil {
		return models.RespondWithError(c, models.HTTPStatus(err), err)
	}

	return c.Status(fiber.StatusCreated).JSON(FileUploadResponse{
		URL:      url,
		FileType: file.Header.Get("Content-Type"),
	})
}

// ServeFile handles GET /files/:key
func (s *Server) ServeFile(c *fiber.Ctx) error {
	key := c.Params("key")

	f, err := s.files.Open(key)
	if err != nil {
		return models.RespondWithError(c, models.HTTPStatus(err), err)
	}
	_ = f.Close()

	return c.SendFile(filepath.Join(s.files.Root(), key))
}
