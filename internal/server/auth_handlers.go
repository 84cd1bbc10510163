package server

import (
	"unihub/internal/auth"
	"unihub/internal/models"

	"github.com/gofiber/fiber/v2"
)

// SignupRequest is the request body for user registration.
type SignupRequest struct {
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	Role        string `json:"role"`
	University  string `json:"university"`
	Faculty     string `json:"faculty"`
	Year        string `json:"year"`
	Phone       string `json:"phone"`
	About       string `json:"about"`
}

// LoginRequest is the request body for user login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse carries the authenticated user and a signed token.
type AuthResponse struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

// Signup handles POST /api/auth/signup
func (s *Server) Signup(c *fiber.Ctx) error {
	var req SignupRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.authSvc.SignUp(c.UserContext(), auth.SignUpInput{
		DisplayName: req.DisplayName,
		Email:       req.Email,
		Password:    req.Password,
		Role:        models.Role(req.Role),
		University:  req.University,
		Faculty:     req.Faculty,
		Year:        req.Year,
		Phone:       req.Phone,
		About:       req.About,
	})
	if err != nil {
		return models.RespondWithError(c, models.HTTPStatus(err), err)
	}

	token, err := s.authSvc.IssueToken(user)
	if err != nil {
		return models.RespondWithError(c, models.HTTPStatus(err), err)
	}
	return c.Status(fiber.StatusCreated).JSON(AuthResponse{User: user, Token: token})
}

// Login handles POST /api/auth/login
func (s *Server) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, token, err := s.authSvc.SignIn(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return models.RespondWithError(c, models.HTTPStatus(err), err)
	}
	return c.JSON(AuthResponse{User: user, Token: token})
}

// RequestPasswordReset handles POST /api/auth/password-reset
func (s *Server) RequestPasswordReset(c *fiber.Ctx) error {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	// Unknown emails get the same response as known ones so the endpoint
	// cannot be used to enumerate accounts.
	if err := s.authSvc.SendPasswordReset(c.UserContext(), req.Email); err != nil {
		if models.CodeOf(err) != models.CodeUserNotFound {
			return models.RespondWithError(c, models.HTTPStatus(err), err)
		}
	}
	return c.JSON(fiber.Map{"message": "If an account exists for this email, a reset link has been sent."})
}

// ConfirmPasswordReset handles POST /api/auth/password-reset/confirm
func (s *Server) ConfirmPasswordReset(c *fiber.Ctx) error {
	var req struct {
		Token       string `json:"token"`
		NewPassword string `json:"new_password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if err := s.authSvc.ResetPassword(c.UserContext(), req.Token, req.NewPassword); err != nil {
		return models.RespondWithError(c, models.HTTPStatus(err), err)
	}
	return c.JSON(fiber.Map{"message": "Password updated"})
}

// GetMyProfile handles GET /api/users/me
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	user, err := s.users.GetByID(c.UserContext(), userID)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}
	if user == nil {
		return models.RespondWithError(c, fiber.StatusNotFound, models.NewNotFoundError("user", userID))
	}
	return c.JSON(user)
}

// UpdateMyProfile handles PUT /api/users/me
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	var upd models.ProfileUpdate
	if err := c.BodyParser(&upd); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.authSvc.UpdateProfile(c.UserContext(), userID, upd)
	if err != nil {
		return models.RespondWithError(c, models.HTTPStatus(err), err)
	}
	return c.JSON(user)
}

// SearchUsers handles GET /api/users/search?q=prefix
func (s *Server) SearchUsers(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	term := c.Query("q")

	results, err := s.users.SearchByNamePrefix(c.UserContext(), term, 20)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}

	// The caller never appears in their own search results.
	filtered := results[:0]
	for _, u := range results {
		if u.ID != userID {
			filtered = append(filtered, u)
		}
	}
	return c.JSON(filtered)
}
