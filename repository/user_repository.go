package repository

import (
	"context"
	"errors"
	"fmt"

	"soundwave/db"
	"soundwave/model"

	"gorm.io/gorm"
)

// ErrDuplicateUser is returned when a username or email is already taken.
var ErrDuplicateUser = errors.New("username or email already exists")

// UserRepository defines the interface for user account persistence.
type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) (int64, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	ConfirmUser(ctx context.Context, username string) error
}

// gormUserRepository implements UserRepository on GORM.
type gormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a new instance of gormUserRepository.
func NewGormUserRepository() UserRepository {
	return &gormUserRepository{db: db.GormDB}
}

// CreateUser inserts a new account. Duplicate username/email surfaces as
// ErrDuplicateUser so handlers can map it to a fixed category.
func (r *gormUserRepository) CreateUser(ctx context.Context, user *model.User) (int64, error) {
	var existing model.User
	err := r.db.WithContext(ctx).
		Where("username = ? OR email = ?", user.Username, user.Email).
		First(&existing).Error
	if err == nil {
		return 0, ErrDuplicateUser
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, fmt.Errorf("failed to check for existing user: %w", err)
	}

	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return 0, fmt.Errorf("failed to create user: %w", err)
	}
	return user.ID, nil
}

// GetUserByUsername retrieves an account by username, or nil if not found.
func (r *gormUserRepository) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query user by username: %w", err)
	}
	return &user, nil
}

// GetUserByEmail retrieves an account by email, or nil if not found.
func (r *gormUserRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query user by email: %w", err)
	}
	return &user, nil
}

// ConfirmUser marks the account as confirmed after code verification.
func (r *gormUserRepository) ConfirmUser(ctx context.Context, username string) error {
	res := r.db.WithContext(ctx).Model(&model.User{}).
		Where("username = ?", username).
		Update("confirmed", true)
	if res.Error != nil {
		return fmt.Errorf("failed to confirm user %s: %w", username, res.Error)
	}
	return nil
}
