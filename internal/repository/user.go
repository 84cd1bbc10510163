// Package repository provides data access over the document database.
package repository

import (
	"context"
	"errors"

	"unihub/internal/models"

	"gorm.io/gorm"
)

// UserRepository defines the interface for user directory operations
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, id uint, hashed string) error
	SearchByNamePrefix(ctx context.Context, prefix string, limit int) ([]*models.User, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

func (r *userRepository) UpdatePassword(ctx context.Context, id uint, hashed string) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Update("password", hashed).Error
}

// SearchByNamePrefix performs the directory prefix query ordered by display
// name, mirroring the startAt/endAt range query of the remote store.
func (r *userRepository) SearchByNamePrefix(ctx context.Context, prefix string, limit int) ([]*models.User, error) {
	if limit <= 0 {
		limit = 20
	}
	var users []*models.User
	err := r.db.WithContext(ctx).
		Where("display_name LIKE ?", prefix+"%").
		Order("display_name ASC").
		Limit(limit).
		Find(&users).Error
	return users, err
}
