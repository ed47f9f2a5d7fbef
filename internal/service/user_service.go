package service

import (
	"context"
	"errors"
	"strings"

	"ai-todo/internal/model"
	"ai-todo/internal/repository"
)

const maxUsernameLen = 64

// UserService identifies users. There are no passwords: a username is
// enough to log in, and the first login creates the account.
type UserService struct {
	store repository.Store
}

func NewUserService(store repository.Store) *UserService {
	return &UserService{store: store}
}

// Login returns the user with this username, creating it on first use.
// email is only recorded when the user is created.
func (s *UserService) Login(ctx context.Context, username, email string) (*model.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, validationf("username is required")
	}
	if len(username) > maxUsernameLen {
		return nil, validationf("username is longer than %d bytes", maxUsernameLen)
	}
	if strings.HasPrefix(username, repository.TelegramUsernamePrefix) {
		return nil, validationf("usernames starting with %q are reserved for Telegram accounts", repository.TelegramUsernamePrefix)
	}

	var emailPtr *string
	if email = strings.TrimSpace(email); email != "" {
		if !strings.Contains(email, "@") {
			return nil, validationf("email %q is not valid", email)
		}
		emailPtr = &email
	}

	user, err := s.store.Users().GetOrCreateByUsername(ctx, username, emailPtr)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, validationf("email %q is already taken", email)
		}
		return nil, storageErr("login", err)
	}
	return user, nil
}

// TelegramUser returns the user linked to a Telegram account.
func (s *UserService) TelegramUser(ctx context.Context, telegramID int64) (*model.User, error) {
	user, err := s.store.Users().UpsertFromTelegram(ctx, telegramID)
	if err != nil {
		return nil, storageErr("telegram user", err)
	}
	return user, nil
}
