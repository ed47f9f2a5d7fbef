package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"ai-todo/internal/model"
)

// ErrDuplicate is returned when a unique constraint rejects a row.
var ErrDuplicate = errors.New("duplicate record")

// CategoryRepository manages task categories.
type CategoryRepository interface {
	// GetOrCreate returns the user's category with exactly this name,
	// creating it with color when absent. Lookup is case-sensitive; if
	// several rows match, the oldest one wins.
	GetOrCreate(ctx context.Context, userID uint, name, color string) (*model.Category, error)
	Create(ctx context.Context, category *model.Category) error
	ListByUser(ctx context.Context, userID uint) ([]model.Category, error)
}

type categoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) GetOrCreate(ctx context.Context, userID uint, name, color string) (*model.Category, error) {
	var category model.Category
	db := r.db.WithContext(ctx)
	err := db.Where("user_id = ? AND name = ?", userID, name).Order("id ASC").First(&category).Error
	switch {
	case err == nil:
		return &category, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		if color == "" {
			color = model.DefaultCategoryColor
		}
		category = model.Category{UserID: userID, Name: name, Color: color}
		if err := db.Create(&category).Error; err != nil {
			return nil, fmt.Errorf("create category: %w", err)
		}
		return &category, nil
	default:
		return nil, fmt.Errorf("find category: %w", err)
	}
}

func (r *categoryRepository) Create(ctx context.Context, category *model.Category) error {
	if category.Color == "" {
		category.Color = model.DefaultCategoryColor
	}
	if err := r.db.WithContext(ctx).Create(category).Error; err != nil {
		if isDuplicate(err) {
			return fmt.Errorf("create category %q: %w", category.Name, ErrDuplicate)
		}
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

func (r *categoryRepository) ListByUser(ctx context.Context, userID uint) ([]model.Category, error) {
	var categories []model.Category
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

// isDuplicate recognises unique violations from both drivers. The postgres
// dialector only translates pgx errors, so lib/pq errors are checked by code.
func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
