// Package auth implements the account and session boundary: sign-up,
// sign-in, profile updates and password reset over the user directory.
package auth

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"unihub/internal/email"
	"unihub/internal/models"
	"unihub/internal/observability"
	"unihub/internal/repository"
	"unihub/internal/validation"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

const resetTokenTTL = 30 * time.Minute

// Service mediates every auth operation. All failures carry one of the
// coded auth errors from the models package and are recoverable by retry.
type Service struct {
	users        repository.UserRepository
	rdb          *redis.Client
	mail         email.Sender
	jwtSecret    string
	resetURLBase string
	logger       *observability.Logger
}

// SignUpInput is the input for creating an account.
type SignUpInput struct {
	DisplayName string
	Email       string
	Password    string
	Role        models.Role
	University  string
	Faculty     string
	Year        string
	Phone       string
	About       string
}

// NewService returns a new auth Service.
func NewService(users repository.UserRepository, rdb *redis.Client, mail email.Sender, jwtSecret, resetURLBase string) *Service {
	return &Service{
		users:        users,
		rdb:          rdb,
		mail:         mail,
		jwtSecret:    jwtSecret,
		resetURLBase: resetURLBase,
		logger:       observability.Named("auth"),
	}
}

// SignUp validates the input, creates the account and writes the profile
// fields. Empty profile fields are stripped rather than stored. Role must
// come from the assignable allowlist; admin is never client-assignable.
func (s *Service) SignUp(ctx context.Context, in SignUpInput) (*models.User, error) {
	if err := validation.ValidateEmail(in.Email); err != nil {
		return nil, models.NewAuthError(models.CodeInvalidEmail, err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewAuthError(models.CodeWeakPassword, err.Error())
	}
	if err := validation.ValidateDisplayName(in.DisplayName); err != nil {
		return nil, models.NewAuthError(models.CodeUnknown, err.Error())
	}

	role := in.Role
	if role == "" {
		role = models.RoleStudent
	}
	if !assignable(role) {
		return nil, models.NewAuthError(models.CodeOperationNotAllowed,
			fmt.Sprintf("role %q cannot be self-assigned", role))
	}

	normEmail := normalizeEmail(in.Email)
	existing, err := s.users.GetByEmail(ctx, normEmail)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if existing != nil {
		s.countFailure(models.CodeEmailInUse)
		return nil, models.NewAuthError(models.CodeEmailInUse, "An account with this email already exists")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Email:       normEmail,
		Password:    string(hashed),
		DisplayName: strings.TrimSpace(in.DisplayName),
		Role:        role,
		University:  strings.TrimSpace(in.University),
		Faculty:     strings.TrimSpace(in.Faculty),
		Year:        strings.TrimSpace(in.Year),
		Phone:       strings.TrimSpace(in.Phone),
		About:       strings.TrimSpace(in.About),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, models.NewInternalError(err)
	}

	s.logger.InfoContext(ctx, "account created",
		"user_id", user.ID, "role", string(user.Role))
	return user, nil
}

// SignIn verifies the credentials and returns the user with a signed token.
func (s *Service) SignIn(ctx context.Context, emailAddr, password string) (*models.User, string, error) {
	if err := validation.ValidateEmail(emailAddr); err != nil {
		return nil, "", models.NewAuthError(models.CodeInvalidEmail, err.Error())
	}

	user, err := s.users.GetByEmail(ctx, normalizeEmail(emailAddr))
	if err != nil {
		return nil, "", models.NewInternalError(err)
	}
	if user == nil {
		s.countFailure(models.CodeUserNotFound)
		return nil, "", models.NewAuthError(models.CodeUserNotFound, "No account exists for this email")
	}

	if cmpErr := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); cmpErr != nil {
		s.countFailure(models.CodeWrongPassword)
		return nil, "", models.NewAuthError(models.CodeWrongPassword, "Incorrect password")
	}

	token, err := s.IssueToken(user)
	if err != nil {
		return nil, "", models.NewInternalError(err)
	}
	return user, token, nil
}

// UpdateProfile merges the provided fields into the stored user record and
// returns the updated user.
func (s *Service) UpdateProfile(ctx context.Context, userID uint, upd models.ProfileUpdate) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if user == nil {
		return nil, models.NewNotFoundError("user", userID)
	}

	if upd.DisplayName != nil {
		if err := validation.ValidateDisplayName(*upd.DisplayName); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		user.DisplayName = strings.TrimSpace(*upd.DisplayName)
	}
	if upd.PhotoURL != nil {
		user.PhotoURL = *upd.PhotoURL
	}
	if upd.University != nil {
		user.University = *upd.University
	}
	if upd.Faculty != nil {
		user.Faculty = *upd.Faculty
	}
	if upd.Year != nil {
		user.Year = *upd.Year
	}
	if upd.Phone != nil {
		user.Phone = *upd.Phone
	}
	if upd.About != nil {
		user.About = *upd.About
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, models.NewInternalError(err)
	}
	return user, nil
}

// SendPasswordReset issues a one-time reset token and emails the reset link.
// An unknown email is reported as user-not-found so the caller can show the
// mapped message; the portal UI treats it the same as success.
func (s *Service) SendPasswordReset(ctx context.Context, emailAddr string) error {
	if err := validation.ValidateEmail(emailAddr); err != nil {
		return models.NewAuthError(models.CodeInvalidEmail, err.Error())
	}

	user, err := s.users.GetByEmail(ctx, normalizeEmail(emailAddr))
	if err != nil {
		return models.NewInternalError(err)
	}
	if user == nil {
		return models.NewAuthError(models.CodeUserNotFound, "No account exists for this email")
	}

	if s.rdb == nil {
		return models.NewAuthError(models.CodeOperationNotAllowed, "Password reset is not available right now")
	}

	token := uuid.New().String()
	key := resetKey(token)
	if err := s.rdb.Set(ctx, key, user.ID, resetTokenTTL).Err(); err != nil {
		return models.NewInternalError(err)
	}

	link := fmt.Sprintf("%s?token=%s", s.resetURLBase, token)
	if err := s.mail.Send(ctx, user.Email, "Reset your UniHub password",
		fmt.Sprintf("Hi %s,\n\nFollow this link to reset your password:\n%s\n\nThe link expires in 30 minutes.", user.DisplayName, link)); err != nil {
		return models.NewInternalError(err)
	}

	s.logger.InfoContext(ctx, "password reset email sent", "user_id", user.ID)
	return nil
}

// ResetPassword consumes a reset token and stores the new password hash.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := validation.ValidatePassword(newPassword); err != nil {
		return models.NewAuthError(models.CodeWeakPassword, err.Error())
	}
	if s.rdb == nil {
		return models.NewAuthError(models.CodeOperationNotAllowed, "Password reset is not available right now")
	}

	key := resetKey(token)
	idStr, err := s.rdb.GetDel(ctx, key).Result()
	if err == redis.Nil {
		return models.NewAuthError(models.CodeInvalidCredential, "Reset link is invalid or has expired")
	}
	if err != nil {
		return models.NewInternalError(err)
	}

	userID, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		return models.NewInternalError(err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return models.NewInternalError(err)
	}
	if err := s.users.UpdatePassword(ctx, uint(userID), string(hashed)); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// IssueToken signs a JWT for the user.
func (s *Service) IssueToken(user *models.User) (string, error) {
	if s.jwtSecret == "" {
		return "", fmt.Errorf("JWT secret not configured")
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  strconv.FormatUint(uint64(user.ID), 10),
		"role": string(user.Role),
		"iss":  "unihub-api",
		"aud":  "unihub-client",
		"exp":  now.Add(time.Hour * 24 * 7).Unix(),
		"iat":  now.Unix(),
		"nbf":  now.Unix(),
		"jti":  fmt.Sprintf("%d-%s", now.Unix(), uuid.New().String()[:8]),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

func (s *Service) countFailure(code string) {
	observability.AuthFailures.WithLabelValues(code).Inc()
}

func assignable(role models.Role) bool {
	for _, r := range models.AssignableRoles {
		if r == role {
			return true
		}
	}
	return false
}

func normalizeEmail(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

func resetKey(token string) string {
	return "pwreset:" + token
}
