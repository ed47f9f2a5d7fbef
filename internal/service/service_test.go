package service

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"ai-todo/internal/logger"
	"ai-todo/internal/model"
	"ai-todo/internal/repository"
)

var fixedNow = time.Date(2026, 3, 10, 15, 4, 5, 0, time.UTC)

const today = "2026-03-10"

func newTestStore(t *testing.T) repository.Store {
	t.Helper()
	db, err := repository.NewDB("sqlite", filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return repository.NewStore(db)
}

func newTestTaskService(t *testing.T, store repository.Store) *TaskService {
	t.Helper()
	svc := NewTaskService(store, logger.Discard())
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func newUser(t *testing.T, store repository.Store, name string) uint {
	t.Helper()
	user, err := store.Users().GetOrCreateByUsername(context.Background(), name, nil)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user.ID
}

// records decodes a JSON array the same way the translator does.
func records(t *testing.T, raw string) []map[string]any {
	t.Helper()
	var out []map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		t.Fatalf("decode records: %v", err)
	}
	return out
}

func mustPatches(t *testing.T, raw string) []Patch {
	t.Helper()
	patches, err := ParsePatches(records(t, raw))
	if err != nil {
		t.Fatalf("ParsePatches: %v", err)
	}
	return patches
}

func countCategories(t *testing.T, store repository.Store, userID uint) int {
	t.Helper()
	categories, err := store.Categories().ListByUser(context.Background(), userID)
	if err != nil {
		t.Fatalf("list categories: %v", err)
	}
	return len(categories)
}

// failingStore wraps a real store and makes task creation fail after
// allowCreates successful calls, inside or outside transactions.
type failingStore struct {
	repository.Store
	allowCreates int
	creates      *int
	listErr      error
}

var errInjected = errors.New("injected failure")

func newFailingStore(inner repository.Store, allowCreates int) failingStore {
	return failingStore{Store: inner, allowCreates: allowCreates, creates: new(int)}
}

func (s failingStore) Tasks() repository.TaskRepository {
	return failingTasks{TaskRepository: s.Store.Tasks(), store: s}
}

func (s failingStore) Categories() repository.CategoryRepository {
	return failingCategories{CategoryRepository: s.Store.Categories(), listErr: s.listErr}
}

func (s failingStore) Transaction(ctx context.Context, fn func(tx repository.Store) error) error {
	return s.Store.Transaction(ctx, func(tx repository.Store) error {
		wrapped := s
		wrapped.Store = tx
		return fn(wrapped)
	})
}

type failingTasks struct {
	repository.TaskRepository
	store failingStore
}

func (r failingTasks) Create(ctx context.Context, task *model.Task) error {
	if *r.store.creates >= r.store.allowCreates {
		return errInjected
	}
	*r.store.creates++
	return r.TaskRepository.Create(ctx, task)
}

func (r failingTasks) ListActive(ctx context.Context, userID uint) ([]model.Task, error) {
	if r.store.listErr != nil {
		return nil, r.store.listErr
	}
	return r.TaskRepository.ListActive(ctx, userID)
}

func (r failingTasks) ListAll(ctx context.Context, userID uint) ([]model.Task, error) {
	if r.store.listErr != nil {
		return nil, r.store.listErr
	}
	return r.TaskRepository.ListAll(ctx, userID)
}

type failingCategories struct {
	repository.CategoryRepository
	listErr error
}

func (r failingCategories) ListByUser(ctx context.Context, userID uint) ([]model.Category, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.CategoryRepository.ListByUser(ctx, userID)
}

type recordingListener struct {
	calls []int
}

func (l *recordingListener) TasksChanged(userID uint, tasks []model.Task) {
	l.calls = append(l.calls, len(tasks))
}
