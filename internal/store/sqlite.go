package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/nhle/vibratodo/internal/category"
	"github.com/nhle/vibratodo/internal/model"
)

// BlobKey is the fixed key the serialized task list is stored under.
const BlobKey = "vibraTodoTasks"

// blobTask is the on-disk shape of a task inside the blob. CategoryID is
// read for lists written before tasks carried a category field.
type blobTask struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
	Priority    string `json:"priority"`
	Category    string `json:"category,omitempty"`
	CategoryID  string `json:"categoryId,omitempty"`
	DueDate     string `json:"dueDate"`
	Position    int    `json:"position"`
	CreatedAt   string `json:"createdAt"`
}

// LocalStore implements TaskStore without a network. The whole task list
// lives in memory and is rewritten as a single blob in a local SQLite
// database after every mutation.
type LocalStore struct {
	db         *sqlx.DB
	log        *logrus.Entry
	now        func() time.Time
	categories *category.Registry

	mu    sync.Mutex
	tasks []model.Task
}

// NewLocalStore opens (or creates) a SQLite database at dbPath, runs any
// pending schema migrations and loads the task blob. When no blob exists a
// welcome task is seeded.
func NewLocalStore(dbPath string, log *logrus.Entry) (*LocalStore, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	// One connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	s := &LocalStore{
		db:         db,
		log:        log.WithField("store", "local"),
		now:        time.Now,
		categories: category.NewRegistry(),
	}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	if err := s.loadBlob(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *LocalStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *LocalStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// loadBlob reads the task list once at startup, seeding it when absent.
func (s *LocalStore) loadBlob(ctx context.Context) error {
	var raw string
	err := s.db.GetContext(ctx, &raw, "SELECT value FROM kv WHERE key = ?", BlobKey)
	if errors.Is(err, sql.ErrNoRows) {
		seed := []model.Task{welcomeTask(s.now())}
		if err := s.writeBlob(ctx, seed); err != nil {
			return fmt.Errorf("seeding task list: %w", err)
		}
		s.tasks = seed
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading task list: %w", err)
	}

	tasks, err := decodeBlob([]byte(raw), s.now(), s.categories)
	if err != nil {
		return fmt.Errorf("decoding task list: %w", err)
	}
	s.tasks = tasks
	return nil
}

// writeBlob replaces the stored blob with tasks.
func (s *LocalStore) writeBlob(ctx context.Context, tasks []model.Task) error {
	data, err := encodeBlob(tasks)
	if err != nil {
		return fmt.Errorf("encoding task list: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		BlobKey, string(data), s.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("writing task list: %w", err)
	}
	return nil
}

// commit persists next and, on success, makes it the current list.
// Callers must hold s.mu.
func (s *LocalStore) commit(ctx context.Context, op string, next []model.Task) error {
	if err := s.writeBlob(ctx, next); err != nil {
		s.log.WithFields(logrus.Fields{"op": op, "error": err}).Error("persisting task list failed")
		return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
	}
	s.tasks = next
	return nil
}

// List returns the tasks in category (all when empty) by descending position.
func (s *LocalStore) List(ctx context.Context, category string) ([]model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if category != "" && t.Category != category {
			continue
		}
		out = append(out, t)
	}
	SortByPosition(out)
	return out, nil
}

// Create appends a new task with a generated ID.
func (s *LocalStore) Create(ctx context.Context, draft model.Draft, position int) (model.Task, error) {
	if err := draft.Validate(); err != nil {
		return model.Task{}, err
	}

	draft.Category = s.categories.Normalize(draft.Category)
	task := draft.Apply(model.Task{
		ID:        uuid.New().String(),
		Position:  position,
		CreatedAt: s.now().UTC(),
	})

	s.mu.Lock()
	defer s.mu.Unlock()

	next := append(append([]model.Task(nil), s.tasks...), task)
	if err := s.commit(ctx, "create", next); err != nil {
		return model.Task{}, err
	}
	return task, nil
}

// Update applies patch to the task with id.
func (s *LocalStore) Update(ctx context.Context, id string, patch model.Patch) error {
	if err := patch.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("updating task %s: %w", id, ErrNotFound)
	}
	if patch.Category != nil {
		c := s.categories.Normalize(*patch.Category)
		patch.Category = &c
	}
	next := append([]model.Task(nil), s.tasks...)
	next[i] = patch.Apply(next[i])
	return s.commit(ctx, "update", next)
}

// Delete removes the task with id.
func (s *LocalStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("deleting task %s: %w", id, ErrNotFound)
	}
	next := make([]model.Task, 0, len(s.tasks)-1)
	next = append(next, s.tasks[:i]...)
	next = append(next, s.tasks[i+1:]...)
	return s.commit(ctx, "delete", next)
}

func (s *LocalStore) indexOf(id string) int {
	for i, t := range s.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// welcomeTask is the single task a fresh local list starts with.
func welcomeTask(now time.Time) model.Task {
	return model.Task{
		ID:          uuid.New().String(),
		Title:       "Welcome to VibraToDo!",
		Description: "This is your first task. Try completing it by pressing x.",
		Priority:    model.PriorityMedium,
		Category:    model.DefaultCategory,
		Position:    1,
		CreatedAt:   now.UTC(),
	}
}

func encodeBlob(tasks []model.Task) ([]byte, error) {
	out := make([]blobTask, len(tasks))
	for i, t := range tasks {
		out[i] = blobTask{
			ID:          t.ID,
			Title:       t.Title,
			Description: t.Description,
			Completed:   t.Completed,
			Priority:    string(t.Priority),
			Category:    t.Category,
			DueDate:     model.FormatDate(t.DueDate),
			Position:    t.Position,
			CreatedAt:   t.CreatedAt.UTC().Format(time.RFC3339Nano),
		}
	}
	return sonic.Marshal(out)
}

// decodeBlob maps unregistered or legacy categories to the default one.
func decodeBlob(data []byte, now time.Time, categories *category.Registry) ([]model.Task, error) {
	var raw []blobTask
	if err := sonic.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	tasks := make([]model.Task, 0, len(raw))
	for _, b := range raw {
		priority, _ := model.ParsePriority(b.Priority)
		id := b.Category
		if id == "" {
			id = b.CategoryID
		}
		created, err := time.Parse(time.RFC3339Nano, b.CreatedAt)
		if err != nil {
			created = now.UTC()
		}
		due, err := model.ParseDate(b.DueDate)
		if err != nil {
			due = nil
		}
		tasks = append(tasks, model.Task{
			ID:          b.ID,
			Title:       b.Title,
			Description: b.Description,
			Completed:   b.Completed,
			Priority:    priority,
			Category:    categories.Normalize(id),
			DueDate:     due,
			Position:    b.Position,
			CreatedAt:   created,
		})
	}
	return tasks, nil
}
