package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store groups the repositories that share one database handle. Inside
// Transaction, every repository returned by tx runs on the same transaction.
type Store interface {
	Users() UserRepository
	Categories() CategoryRepository
	Tasks() TaskRepository
	// Transaction commits when fn returns nil and rolls back otherwise.
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

type gormStore struct {
	db         *gorm.DB
	users      UserRepository
	categories CategoryRepository
	tasks      TaskRepository
}

func NewStore(db *gorm.DB) Store {
	return &gormStore{
		db:         db,
		users:      NewUserRepository(db),
		categories: NewCategoryRepository(db),
		tasks:      NewTaskRepository(db),
	}
}

func (s *gormStore) Users() UserRepository { return s.users }
func (s *gormStore) Categories() CategoryRepository { return s.categories }
func (s *gormStore) Tasks() TaskRepository { return s.tasks }

func (s *gormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}
