package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ai-todo/internal/model"
)

// TaskRepository handles persistence of tasks. Every lookup is scoped by
// user id; a task owned by someone else behaves as if it did not exist.
type TaskRepository interface {
	Create(ctx context.Context, task *model.Task) error
	// ListActive returns tasks that are neither deleted nor complete,
	// earliest due date first.
	ListActive(ctx context.Context, userID uint) ([]model.Task, error)
	// ListAll returns every task of the user, deleted and complete included.
	ListAll(ctx context.Context, userID uint) ([]model.Task, error)
	// FindByID returns gorm.ErrRecordNotFound when the task is absent.
	FindByID(ctx context.Context, userID, taskID uint) (*model.Task, error)
	// Save writes all task columns. The Category association is not saved.
	Save(ctx context.Context, task *model.Task) error
	// UpdateProgress returns gorm.ErrRecordNotFound when the task is absent.
	UpdateProgress(ctx context.Context, userID, taskID uint, progress int) error
	// SoftDelete flags the task as deleted. A missing task is not an error.
	SoftDelete(ctx context.Context, userID, taskID uint) error
}

type taskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepository{db: db}
}

func (r *taskRepository) Create(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(task).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (r *taskRepository) ListActive(ctx context.Context, userID uint) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Preload("Category").
		Where("user_id = ? AND is_deleted = ? AND progress < ?", userID, false, model.MaxProgress).
		Order("due_date ASC, id ASC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *taskRepository) ListAll(ctx context.Context, userID uint) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Preload("Category").
		Where("user_id = ?", userID).
		Order("id ASC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *taskRepository) FindByID(ctx context.Context, userID, taskID uint) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).Preload("Category").
		Where("user_id = ? AND id = ?", userID, taskID).
		First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *taskRepository) Save(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Save(task).Error; err != nil {
		return fmt.Errorf("save task: %w", err)
	}
	return nil
}

func (r *taskRepository) UpdateProgress(ctx context.Context, userID, taskID uint, progress int) error {
	res := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("user_id = ? AND id = ?", userID, taskID).
		Update("progress", progress)
	if res.Error != nil {
		return fmt.Errorf("update progress: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *taskRepository) SoftDelete(ctx context.Context, userID, taskID uint) error {
	if err := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("user_id = ? AND id = ?", userID, taskID).
		Update("is_deleted", true).Error; err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}
