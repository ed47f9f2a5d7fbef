package handlers

import (
	"context"

	"ai-todo/internal/model"
	"ai-todo/internal/service"
)

// The handlers depend on these narrow views of the service layer.

type TaskService interface {
	ListActive(ctx context.Context, userID uint) []model.Task
	ListAll(ctx context.Context, userID uint) []model.Task
	SetProgress(ctx context.Context, userID, taskID uint, progress int) error
	SoftDelete(ctx context.Context, userID, taskID uint) error
}

type CommandService interface {
	ApplyCommand(ctx context.Context, userID uint, command string) (*service.CommandResult, error)
}

type CategoryService interface {
	List(ctx context.Context, userID uint) []model.Category
	Create(ctx context.Context, userID uint, name, color string) (*model.Category, error)
}

type UserService interface {
	Login(ctx context.Context, username, email string) (*model.User, error)
}
