package remote_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/vibratodo/internal/category"
	"github.com/nhle/vibratodo/internal/model"
	"github.com/nhle/vibratodo/internal/recordapi"
	"github.com/nhle/vibratodo/internal/recordsvc"
	"github.com/nhle/vibratodo/internal/store"
	"github.com/nhle/vibratodo/internal/store/remote"
	"github.com/nhle/vibratodo/tests/testutil"
)

const collection = "task5"

func newRemoteStore(t *testing.T) (*remote.Store, *recordsvc.MemoryTable) {
	t.Helper()
	table := recordsvc.NewMemoryTable()
	srv := httptest.NewServer(recordsvc.New(table, nil, testutil.QuietLogger()).NewEcho())
	t.Cleanup(srv.Close)

	client := recordapi.NewClient(recordapi.Config{BaseURL: srv.URL, ProjectID: "p1"}, testutil.QuietLogger())
	return remote.New(client, collection, category.NewRegistry(), testutil.QuietLogger()), table
}

func TestRemoteStoreCreateListUpdateDelete(t *testing.T) {
	ctx := context.Background()
	s, _ := newRemoteStore(t)

	tasks, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, tasks)

	due, _ := model.ParseDate("2026-10-20")
	created, err := s.Create(ctx, model.Draft{
		Title:    "Write report",
		Priority: model.PriorityHigh,
		Category: category.Work,
		DueDate:  due,
	}, 1)
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())
	assert.Equal(t, category.Work, created.Category)

	second, err := s.Create(ctx, model.Draft{Title: "Buy bread", Category: category.Shopping}, 2)
	require.NoError(t, err)

	all, err := s.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID)
	assert.Equal(t, "2026-10-20", model.FormatDate(all[1].DueDate))

	work, err := s.List(ctx, category.Work)
	require.NoError(t, err)
	require.Len(t, work, 1)
	assert.Equal(t, created.ID, work[0].ID)
	assert.Equal(t, model.PriorityHigh, work[0].Priority)

	require.NoError(t, s.Update(ctx, created.ID, model.PositionPatch(5)))
	all, err = s.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, created.ID, all[0].ID)
	assert.Equal(t, "Write report", all[0].Title)
	assert.Equal(t, 5, all[0].Position)

	require.NoError(t, s.Delete(ctx, created.ID))
	all, err = s.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, second.ID, all[0].ID)
}

func TestRemoteStoreMissingRecord(t *testing.T) {
	ctx := context.Background()
	s, _ := newRemoteStore(t)

	err := s.Update(ctx, "gone", model.CompletedPatch(true))
	assert.True(t, errors.Is(err, store.ErrNotFound), "got %v", err)

	err = s.Delete(ctx, "gone")
	assert.True(t, errors.Is(err, store.ErrNotFound), "got %v", err)
}

func TestRemoteStoreFieldDefaults(t *testing.T) {
	ctx := context.Background()
	s, table := newRemoteStore(t)

	require.NoError(t, table.Put(ctx, collection, recordapi.Record{
		"Id":       float64(42),
		"category": "Groceries",
	}))

	tasks, err := s.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	got := tasks[0]
	assert.Equal(t, "42", got.ID)
	assert.Equal(t, "", got.Title)
	assert.Equal(t, model.PriorityMedium, got.Priority)
	assert.Equal(t, category.Personal, got.Category)
	assert.Equal(t, 0, got.Position)
	assert.False(t, got.Completed)
	assert.Nil(t, got.DueDate)
	assert.False(t, got.CreatedAt.IsZero())

	// Numeric ids travel back as numbers and still match.
	require.NoError(t, s.Update(ctx, "42", model.CompletedPatch(true)))
	rec, ok, err := table.Get(ctx, collection, "42")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, true, rec["completed"])
}

func TestRemoteStoreCreateValidatesLocally(t *testing.T) {
	s, table := newRemoteStore(t)

	_, err := s.Create(context.Background(), model.Draft{Title: ""}, 1)
	assert.True(t, errors.Is(err, store.ErrValidation))

	rows, err := table.All(context.Background(), collection)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestRemoteStoreUnavailable(t *testing.T) {
	srv := httptest.NewServer(nil)
	url := srv.URL
	srv.Close()

	client := recordapi.NewClient(recordapi.Config{BaseURL: url}, testutil.QuietLogger())
	s := remote.New(client, collection, category.NewRegistry(), testutil.QuietLogger())

	_, err := s.List(context.Background(), "")
	assert.True(t, errors.Is(err, store.ErrUnavailable), "got %v", err)
}
