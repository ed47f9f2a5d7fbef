package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"ai-todo/internal/model"
)

// UserRepository handles lookup and creation of users.
type UserRepository interface {
	// GetOrCreateByUsername finds the user by username or creates it.
	// email is only stored on creation.
	GetOrCreateByUsername(ctx context.Context, username string, email *string) (*model.User, error)
	// UpsertFromTelegram finds the user linked to telegramID or creates one.
	UpsertFromTelegram(ctx context.Context, telegramID int64) (*model.User, error)
}

// TelegramUsernamePrefix starts the generated username of every user created
// from Telegram. Web logins may not use it.
const TelegramUsernamePrefix = "tg_"

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetOrCreateByUsername(ctx context.Context, username string, email *string) (*model.User, error) {
	var user model.User
	db := r.db.WithContext(ctx)
	err := db.Where("username = ?", username).First(&user).Error
	switch {
	case err == nil:
		return &user, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = model.User{Username: username, Email: email}
		if err := db.Create(&user).Error; err != nil {
			if isDuplicate(err) {
				return nil, fmt.Errorf("create user %q: %w", username, ErrDuplicate)
			}
			return nil, fmt.Errorf("create user: %w", err)
		}
		return &user, nil
	default:
		return nil, fmt.Errorf("find user: %w", err)
	}
}

func (r *userRepository) UpsertFromTelegram(ctx context.Context, telegramID int64) (*model.User, error) {
	var user model.User
	db := r.db.WithContext(ctx)
	err := db.Where("telegram_id = ?", telegramID).First(&user).Error
	switch {
	case err == nil:
		return &user, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		id := telegramID
		user = model.User{
			Username:   fmt.Sprintf("%s%d", TelegramUsernamePrefix, telegramID),
			TelegramID: &id,
		}
		if err := db.Create(&user).Error; err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		return &user, nil
	default:
		return nil, fmt.Errorf("find user: %w", err)
	}
}
