package dao

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/haierkeys/page-notes-service/internal/domain"
	"github.com/haierkeys/page-notes-service/internal/model"
	"github.com/haierkeys/page-notes-service/pkg/util"
	"github.com/haierkeys/page-notes-service/pkg/writequeue"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestRepo(t *testing.T) domain.NoteRepository {
	t.Helper()
	db, err := NewDBEngineWithConfig(DatabaseConfig{
		Type: "sqlite",
		Path: filepath.Join(t.TempDir(), "db", "notes.sqlite3"),
	}, nil)
	require.NoError(t, err)
	require.NoError(t, model.AutoMigrateAll(db))

	wq := writequeue.New(nil, nil)
	t.Cleanup(func() {
		_ = wq.Shutdown(context.Background())
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	return NewNoteRepository(New(db, WithWriteQueueManager(wq)))
}

func newNote(url, content string) *domain.Note {
	return &domain.Note{
		PageURL:     url,
		PageURLHash: util.EncodeHash32(url),
		PageTitle:   "Home",
		Content:     content,
	}
}

func TestNoteRepositoryCreateAndGet(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, newNote("https://example.com/home", "buy milk"), 1)
	require.NoError(t, err)
	assert.Greater(t, created.ID, int64(0))
	assert.Equal(t, int64(1), created.UID)
	assert.Equal(t, int64(1), created.Version)
	assert.Equal(t, created.CreatedAt.UnixMilli(), created.UpdatedAt.UnixMilli())

	got, err := repo.GetByID(ctx, created.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, "buy milk", got.Content)
	assert.Equal(t, created.UpdatedTimestamp, got.UpdatedTimestamp)
	assert.Equal(t, got.CreatedAt.UnixMilli(), got.UpdatedAt.UnixMilli())

	_, err = repo.GetByID(ctx, created.ID, 2)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestNoteRepositoryUpdateContent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, newNote("https://example.com/home", "buy milk"), 1)
	require.NoError(t, err)

	updated, err := repo.UpdateContent(ctx, &domain.Note{ID: created.ID, Content: "buy milk and eggs"}, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, "buy milk and eggs", updated.Content)
	assert.Equal(t, int64(2), updated.Version)
	assert.Greater(t, updated.UpdatedTimestamp, created.UpdatedTimestamp)
	assert.Equal(t, created.CreatedAt.UnixMilli(), updated.CreatedAt.UnixMilli())
	assert.Equal(t, created.PageURL, updated.PageURL)

	t.Run("stale version", func(t *testing.T) {
		_, err := repo.UpdateContent(ctx, &domain.Note{ID: created.ID, Content: "x"}, 1, 1)
		var conflict *domain.VersionConflictError
		require.True(t, errors.As(err, &conflict))
		assert.Equal(t, int64(2), conflict.Current.Version)

		got, err := repo.GetByID(ctx, created.ID, 1)
		require.NoError(t, err)
		assert.Equal(t, "buy milk and eggs", got.Content)
	})

	t.Run("other owner", func(t *testing.T) {
		_, err := repo.UpdateContent(ctx, &domain.Note{ID: created.ID, Content: "hijack"}, 0, 2)
		assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
	})
}

func TestNoteRepositoryListByPage(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	first, err := repo.Create(ctx, newNote("https://example.com/home", "one"), 1)
	require.NoError(t, err)
	second, err := repo.Create(ctx, newNote("https://example.com/home", "two"), 1)
	require.NoError(t, err)
	_, err = repo.Create(ctx, newNote("https://example.com/homepage", "other page"), 1)
	require.NoError(t, err)
	_, err = repo.Create(ctx, newNote("https://example.com/home", "other user"), 2)
	require.NoError(t, err)

	url := "https://example.com/home"
	list, err := repo.ListByPage(ctx, url, util.EncodeHash32(url), 50, 1)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)

	// 更新后排到最前
	time.Sleep(5 * time.Millisecond)
	_, err = repo.UpdateContent(ctx, &domain.Note{ID: first.ID, Content: "one again"}, 0, 1)
	require.NoError(t, err)
	list, err = repo.ListByPage(ctx, url, util.EncodeHash32(url), 50, 1)
	require.NoError(t, err)
	assert.Equal(t, first.ID, list[0].ID)

	list, err = repo.ListByPage(ctx, url, util.EncodeHash32(url), 1, 1)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestNoteRepositoryDeleteListCountStats(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	a, err := repo.Create(ctx, newNote("https://example.com/a", "a"), 1)
	require.NoError(t, err)
	_, err = repo.Create(ctx, newNote("https://example.com/b", "b"), 1)
	require.NoError(t, err)
	_, err = repo.Create(ctx, newNote("https://example.com/a", "c"), 2)
	require.NoError(t, err)

	n, err := repo.Count(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	page, err := repo.List(ctx, 0, 1, 1)
	require.NoError(t, err)
	assert.Len(t, page, 1)
	page, err = repo.List(ctx, 1, 1, 1)
	require.NoError(t, err)
	assert.Len(t, page, 1)

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalNotes)
	assert.Equal(t, int64(2), stats.TotalUsers)

	affected, err := repo.Delete(ctx, a.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(0), affected)

	affected, err = repo.Delete(ctx, a.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	_, err = repo.GetByID(ctx, a.ID, 1)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}
