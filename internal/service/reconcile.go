package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"ai-todo/internal/model"
	"ai-todo/internal/repository"
)

const (
	kindCreate = "create"
	kindUpdate = "update"
	kindDelete = "delete"
	kindSkip   = "skip"
)

// Reconcile applies patches in order inside one transaction. Either every
// patch is committed or none is; the first error aborts the batch.
func (s *TaskService) Reconcile(ctx context.Context, userID uint, patches []Patch) error {
	applied := make(map[string]int, 4)
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		for i, p := range patches {
			kind, err := s.applyPatch(ctx, tx, userID, p)
			if err != nil {
				return fmt.Errorf("patch %d: %w", i, err)
			}
			applied[kind]++
		}
		return nil
	})
	if err != nil {
		reconcileBatches.WithLabelValues("rolled_back").Inc()
		if !classified(err) {
			err = storageErr("reconcile", err)
		}
		return err
	}

	reconcileBatches.WithLabelValues("committed").Inc()
	for kind, n := range applied {
		reconcilePatches.WithLabelValues(kind).Add(float64(n))
	}
	s.notify(ctx, userID)
	return nil
}

func (s *TaskService) applyPatch(ctx context.Context, tx repository.Store, userID uint, p Patch) (string, error) {
	switch p := p.(type) {
	case DeletePatch:
		if p.ID == 0 {
			return kindSkip, nil
		}
		if err := tx.Tasks().SoftDelete(ctx, userID, p.ID); err != nil {
			return "", storageErr("delete task", err)
		}
		return kindDelete, nil

	case UpdatePatch:
		task, err := tx.Tasks().FindByID(ctx, userID, p.ID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Unknown ids become creations rather than being dropped.
			if _, err := s.createTask(ctx, tx, userID, p.Fields.input()); err != nil {
				return "", err
			}
			return kindCreate, nil
		}
		if err != nil {
			return "", storageErr("find task", err)
		}
		if err := s.applyFields(ctx, tx, task, p.Fields); err != nil {
			return "", err
		}
		if err := tx.Tasks().Save(ctx, task); err != nil {
			return "", storageErr("update task", err)
		}
		return kindUpdate, nil

	case CreatePatch:
		if _, err := s.createTask(ctx, tx, userID, p.Fields.input()); err != nil {
			return "", err
		}
		return kindCreate, nil

	default:
		return "", validationf("unknown patch type %T", p)
	}
}

// applyFields overwrites only the fields present in f.
func (s *TaskService) applyFields(ctx context.Context, tx repository.Store, task *model.Task, f Fields) error {
	if f.Title != nil {
		task.Title = *f.Title
	}
	if f.EstimatedTime != nil {
		task.EstimatedTime = *f.EstimatedTime
	}
	if f.DueDate != nil {
		task.DueDate = model.NormalizeDueDate(*f.DueDate, s.now())
	}
	if f.Progress != nil {
		task.Progress = model.ClampProgress(*f.Progress)
	}
	if f.Category != nil {
		category, err := tx.Categories().GetOrCreate(ctx, task.UserID, f.Category.Name, f.Category.Color)
		if err != nil {
			return storageErr("resolve category", err)
		}
		task.CategoryID = &category.ID
		task.Category = category
	}
	return nil
}

// input converts patch fields to creation input. Progress is not carried;
// new tasks always start at 0.
func (f Fields) input() TaskInput {
	var in TaskInput
	if f.Title != nil {
		in.Title = *f.Title
	}
	if f.EstimatedTime != nil {
		in.EstimatedTime = *f.EstimatedTime
	}
	if f.DueDate != nil {
		in.DueDate = *f.DueDate
	}
	if f.Category != nil {
		in.Category = f.Category.Name
		in.CategoryColor = f.Category.Color
	}
	return in
}
