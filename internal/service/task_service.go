package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"ai-todo/internal/model"
	"ai-todo/internal/repository"
)

// TaskInput represents data required to create a task.
type TaskInput struct {
	Title         string
	EstimatedTime string
	DueDate       string
	Category      string
	CategoryColor string
}

// ChangeListener is told about a user's refreshed active list after every
// successful write.
type ChangeListener interface {
	TasksChanged(userID uint, tasks []model.Task)
}

// TaskService wraps task-related business logic.
type TaskService struct {
	store    repository.Store
	log      *logrus.Logger
	now      func() time.Time
	listener ChangeListener
}

func NewTaskService(store repository.Store, log *logrus.Logger) *TaskService {
	return &TaskService{store: store, log: log, now: time.Now}
}

// SetListener registers l to receive active-list updates. Pass nil to stop.
func (s *TaskService) SetListener(l ChangeListener) {
	s.listener = l
}

// ListActive returns the user's open tasks, earliest due date first. A
// storage failure is logged and yields an empty list.
func (s *TaskService) ListActive(ctx context.Context, userID uint) []model.Task {
	tasks, err := s.store.Tasks().ListActive(ctx, userID)
	if err != nil {
		s.log.WithError(err).WithField("user_id", userID).Error("list active tasks")
		return []model.Task{}
	}
	return tasks
}

// ListAll returns every task of the user, including deleted and complete
// ones. A storage failure is logged and yields an empty list.
func (s *TaskService) ListAll(ctx context.Context, userID uint) []model.Task {
	tasks, err := s.store.Tasks().ListAll(ctx, userID)
	if err != nil {
		s.log.WithError(err).WithField("user_id", userID).Error("list all tasks")
		return []model.Task{}
	}
	return tasks
}

// GetTask returns one of the user's tasks, deleted ones included.
func (s *TaskService) GetTask(ctx context.Context, userID, taskID uint) (*model.Task, error) {
	task, err := s.store.Tasks().FindByID(ctx, userID, taskID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("task %d: %w", taskID, ErrNotFound)
	case err != nil:
		return nil, storageErr("get task", err)
	}
	return task, nil
}

func (s *TaskService) CreateTask(ctx context.Context, userID uint, input TaskInput) (*model.Task, error) {
	var task *model.Task
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		task, err = s.createTask(ctx, tx, userID, input)
		return err
	})
	if err != nil {
		if !classified(err) {
			err = storageErr("create task", err)
		}
		return nil, err
	}
	s.notify(ctx, userID)
	return task, nil
}

// SetProgress stores progress clamped to [0, 100].
func (s *TaskService) SetProgress(ctx context.Context, userID, taskID uint, progress int) error {
	err := s.store.Tasks().UpdateProgress(ctx, userID, taskID, model.ClampProgress(progress))
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("task %d: %w", taskID, ErrNotFound)
	case err != nil:
		return storageErr("set progress", err)
	}
	s.notify(ctx, userID)
	return nil
}

// SoftDelete flags the task as deleted. Unknown or foreign ids are ignored.
func (s *TaskService) SoftDelete(ctx context.Context, userID, taskID uint) error {
	if err := s.store.Tasks().SoftDelete(ctx, userID, taskID); err != nil {
		return storageErr("delete task", err)
	}
	s.notify(ctx, userID)
	return nil
}

func (s *TaskService) createTask(ctx context.Context, tx repository.Store, userID uint, input TaskInput) (*model.Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, validationf("title is required")
	}

	estimate := strings.TrimSpace(input.EstimatedTime)
	if estimate == "" {
		estimate = model.DefaultEstimatedTime
	}

	task := model.Task{
		UserID:        userID,
		Title:         title,
		EstimatedTime: estimate,
		DueDate:       model.NormalizeDueDate(strings.TrimSpace(input.DueDate), s.now()),
	}

	if name := strings.TrimSpace(input.Category); name != "" {
		category, err := tx.Categories().GetOrCreate(ctx, userID, name, input.CategoryColor)
		if err != nil {
			return nil, storageErr("resolve category", err)
		}
		task.CategoryID = &category.ID
		task.Category = category
	}

	if err := tx.Tasks().Create(ctx, &task); err != nil {
		return nil, storageErr("create task", err)
	}
	return &task, nil
}

func (s *TaskService) notify(ctx context.Context, userID uint) {
	if s.listener == nil {
		return
	}
	s.listener.TasksChanged(userID, s.ListActive(ctx, userID))
}
