package service

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	"ai-todo/internal/model"
	"ai-todo/internal/repository"
)

var colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// CategoryService provides helpers around categories.
type CategoryService struct {
	store repository.Store
	log   *logrus.Logger
}

func NewCategoryService(store repository.Store, log *logrus.Logger) *CategoryService {
	return &CategoryService{store: store, log: log}
}

// List returns the user's categories by name. A storage failure is logged
// and yields an empty list.
func (s *CategoryService) List(ctx context.Context, userID uint) []model.Category {
	categories, err := s.store.Categories().ListByUser(ctx, userID)
	if err != nil {
		s.log.WithError(err).WithField("user_id", userID).Error("list categories")
		return []model.Category{}
	}
	return categories
}

// Create adds a category. A blank color means the default one.
func (s *CategoryService) Create(ctx context.Context, userID uint, name, color string) (*model.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationf("category name is required")
	}
	color = strings.TrimSpace(color)
	if color != "" && !colorPattern.MatchString(color) {
		return nil, validationf("color must look like #RRGGBB, got %q", color)
	}

	category := model.Category{UserID: userID, Name: name, Color: color}
	if err := s.store.Categories().Create(ctx, &category); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, validationf("category %q already exists", name)
		}
		return nil, storageErr("create category", err)
	}
	return &category, nil
}
