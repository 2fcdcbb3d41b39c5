package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/haierkeys/page-notes-service/internal/domain"
	"github.com/haierkeys/page-notes-service/internal/dto"
	"github.com/haierkeys/page-notes-service/pkg/app"
	"github.com/haierkeys/page-notes-service/pkg/code"
	"github.com/haierkeys/page-notes-service/pkg/util"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// memoryNoteRepo 内存版笔记仓储
type memoryNoteRepo struct {
	domain.NoteRepository

	mu      sync.Mutex
	nextID  int64
	clock   int64
	notes   map[int64]*domain.Note
	writes  int
	failErr error
}

func newMemoryNoteRepo() *memoryNoteRepo {
	return &memoryNoteRepo{notes: make(map[int64]*domain.Note), clock: 1_700_000_000_000}
}

func (m *memoryNoteRepo) tick() int64 {
	m.clock++
	return m.clock
}

func clone(n *domain.Note) *domain.Note {
	c := *n
	return &c
}

func (m *memoryNoteRepo) GetByID(ctx context.Context, id, uid int64) (*domain.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notes[id]
	if !ok || n.UID != uid {
		return nil, gorm.ErrRecordNotFound
	}
	return clone(n), nil
}

func (m *memoryNoteRepo) Create(ctx context.Context, note *domain.Note, uid int64) (*domain.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return nil, m.failErr
	}
	m.writes++
	m.nextID++
	ts := m.tick()
	n := clone(note)
	n.ID = m.nextID
	n.UID = uid
	n.Version = 1
	n.UpdatedTimestamp = ts
	n.CreatedAt = time.UnixMilli(ts)
	n.UpdatedAt = n.CreatedAt
	m.notes[n.ID] = n
	return clone(n), nil
}

func (m *memoryNoteRepo) UpdateContent(ctx context.Context, note *domain.Note, expectedVersion int64, uid int64) (*domain.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notes[note.ID]
	if !ok || n.UID != uid {
		return nil, gorm.ErrRecordNotFound
	}
	if expectedVersion > 0 && expectedVersion != n.Version {
		return nil, &domain.VersionConflictError{Current: clone(n)}
	}
	m.writes++
	ts := m.tick()
	n.Content = note.Content
	n.Version++
	n.UpdatedTimestamp = ts
	n.UpdatedAt = time.UnixMilli(ts)
	return clone(n), nil
}

func (m *memoryNoteRepo) Delete(ctx context.Context, id, uid int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notes[id]
	if !ok || n.UID != uid {
		return 0, nil
	}
	m.writes++
	delete(m.notes, id)
	return 1, nil
}

func (m *memoryNoteRepo) sorted(filter func(*domain.Note) bool) []*domain.Note {
	var out []*domain.Note
	for _, n := range m.notes {
		if filter(n) {
			out = append(out, clone(n))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedTimestamp != out[j].UpdatedTimestamp {
			return out[i].UpdatedTimestamp > out[j].UpdatedTimestamp
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (m *memoryNoteRepo) ListByPage(ctx context.Context, pageURL, pageURLHash string, limit int, uid int64) ([]*domain.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.sorted(func(n *domain.Note) bool {
		return n.UID == uid && n.PageURLHash == pageURLHash && n.PageURL == pageURL
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memoryNoteRepo) List(ctx context.Context, offset, limit int, uid int64) ([]*domain.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.sorted(func(n *domain.Note) bool { return n.UID == uid })
	start := offset
	if start >= len(out) {
		return nil, nil
	}
	end := start + limit
	if end > len(out) {
		end = len(out)
	}
	return out[start:end], nil
}

func (m *memoryNoteRepo) Count(ctx context.Context, uid int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, note := range m.notes {
		if note.UID == uid {
			n++
		}
	}
	return n, nil
}

func (m *memoryNoteRepo) Stats(ctx context.Context) (*domain.NoteStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := map[int64]struct{}{}
	for _, n := range m.notes {
		users[n.UID] = struct{}{}
	}
	return &domain.NoteStats{TotalNotes: int64(len(m.notes)), TotalUsers: int64(len(users))}, nil
}

type recordingNotifier struct {
	events []domain.NoteEvent
}

func (r *recordingNotifier) NotifyNote(uid int64, event domain.NoteEvent) {
	r.events = append(r.events, event)
}

func newTestService() (NoteService, *memoryNoteRepo, *recordingNotifier) {
	repo := newMemoryNoteRepo()
	notifier := &recordingNotifier{}
	svc := NewNoteService(repo, notifier, nil, &ServiceConfig{App: AppServiceConfig{NotesEnabled: true}})
	return svc, repo, notifier
}

func assertCode(t *testing.T, err error, want *code.Code) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, errors.Is(err, want), "got %v, want code %d", err, want.Code())
}

func TestNoteServiceScenario(t *testing.T) {
	svc, _, notifier := newTestService()
	ctx := context.Background()
	const userA, userB = int64(1), int64(2)

	added, err := svc.Add(ctx, userA, &dto.NoteAddRequest{PageURL: "/home", PageTitle: "<b>Home</b>", Content: "buy milk"})
	require.NoError(t, err)
	assert.Equal(t, "Home", added.PageTitle)
	assert.Equal(t, added.CreatedAt.UnixMilli(), added.UpdatedAt.UnixMilli())

	list, err := svc.ListForPage(ctx, userA, &dto.NoteListForPageRequest{PageURL: "/home"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "buy milk", list[0].Content)

	list, err = svc.ListForPage(ctx, userB, &dto.NoteListForPageRequest{PageURL: "/home"})
	require.NoError(t, err)
	assert.Empty(t, list)

	updated, err := svc.Update(ctx, userA, &dto.NoteUpdateRequest{ID: added.ID, Content: "buy milk and eggs"})
	require.NoError(t, err)
	assert.Equal(t, "buy milk and eggs", updated.Content)
	assert.Greater(t, updated.UpdatedAt.UnixMilli(), added.UpdatedAt.UnixMilli())
	assert.Equal(t, added.CreatedAt.UnixMilli(), updated.CreatedAt.UnixMilli())
	assert.Equal(t, added.PageURL, updated.PageURL)
	assert.Equal(t, added.ID, updated.ID)

	list, err = svc.ListForPage(ctx, userA, &dto.NoteListForPageRequest{PageURL: "/home"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "buy milk and eggs", list[0].Content)

	id, err := svc.Delete(ctx, userA, &dto.NoteDeleteRequest{ID: added.ID})
	require.NoError(t, err)
	assert.Equal(t, added.ID, id)

	list, err = svc.ListForPage(ctx, userA, &dto.NoteListForPageRequest{PageURL: "/home"})
	require.NoError(t, err)
	assert.Empty(t, list)

	require.Len(t, notifier.events, 3)
	assert.Equal(t, domain.NoteActionCreate, notifier.events[0].Action)
	assert.Equal(t, domain.NoteActionModify, notifier.events[1].Action)
	assert.Equal(t, domain.NoteActionDelete, notifier.events[2].Action)
}

func TestNoteServiceRejectsInvalidInput(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	tests := []struct {
		name string
		req  *dto.NoteAddRequest
		want *code.Code
	}{
		{"empty content", &dto.NoteAddRequest{PageURL: "/home", Content: "  \n\t "}, code.ErrorNoteContentEmpty},
		{"too long", &dto.NoteAddRequest{PageURL: "/home", Content: strings.Repeat("x", util.MaxContentLength+1)}, code.ErrorNoteContentTooLong},
		{"empty url", &dto.NoteAddRequest{PageURL: "   ", Content: "hello"}, code.ErrorPageURLEmpty},
		{"bare word url", &dto.NoteAddRequest{PageURL: "home", Content: "hello"}, code.ErrorInvalidParams},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Add(ctx, 1, tt.req)
			assertCode(t, err, tt.want)
		})
	}
	assert.Equal(t, 0, repo.writes)

	added, err := svc.Add(ctx, 1, &dto.NoteAddRequest{PageURL: "/home", Content: "keep"})
	require.NoError(t, err)
	_, err = svc.Update(ctx, 1, &dto.NoteUpdateRequest{ID: added.ID, Content: " "})
	assertCode(t, err, code.ErrorNoteContentEmpty)

	got, err := repo.GetByID(ctx, added.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, "keep", got.Content)
	assert.Equal(t, 1, repo.writes)
}

func TestNoteServiceOwnership(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	added, err := svc.Add(ctx, 1, &dto.NoteAddRequest{PageURL: "https://example.com/a", Content: "mine"})
	require.NoError(t, err)
	writes := repo.writes

	_, err = svc.Update(ctx, 2, &dto.NoteUpdateRequest{ID: added.ID, Content: "theirs"})
	assertCode(t, err, code.ErrorNoteNotFound)

	_, err = svc.Delete(ctx, 2, &dto.NoteDeleteRequest{ID: added.ID})
	assertCode(t, err, code.ErrorNoteNotFound)

	_, err = svc.Update(ctx, 1, &dto.NoteUpdateRequest{ID: 999, Content: "x"})
	assertCode(t, err, code.ErrorNoteNotFound)

	assert.Equal(t, writes, repo.writes)
}

func TestNoteServiceUnauthorizedAndDisabled(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Add(ctx, 0, &dto.NoteAddRequest{PageURL: "/home", Content: "x"})
	assertCode(t, err, code.ErrorInvalidUserAuthToken)
	_, err = svc.ListForPage(ctx, -1, &dto.NoteListForPageRequest{PageURL: "/home"})
	assertCode(t, err, code.ErrorInvalidUserAuthToken)

	svc.SetEnabled(false)
	assert.False(t, svc.Enabled())
	_, err = svc.Add(ctx, 1, &dto.NoteAddRequest{PageURL: "/home", Content: "x"})
	assertCode(t, err, code.ErrorNotesDisabled)
	assert.Equal(t, 0, repo.writes)
}

func TestNoteServiceVersionConflict(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	added, err := svc.Add(ctx, 1, &dto.NoteAddRequest{PageURL: "/home", Content: "v1"})
	require.NoError(t, err)

	_, err = svc.Update(ctx, 1, &dto.NoteUpdateRequest{ID: added.ID, Content: "v2", Version: 1})
	require.NoError(t, err)

	_, err = svc.Update(ctx, 1, &dto.NoteUpdateRequest{ID: added.ID, Content: "stale", Version: 1})
	assertCode(t, err, code.ErrorNoteVersionConflict)

	var c *code.Code
	require.True(t, errors.As(err, &c))
	current, ok := c.Data().(*dto.NoteDTO)
	require.True(t, ok)
	assert.Equal(t, "v2", current.Content)
	assert.Equal(t, int64(2), current.Version)

	// 不带版本号时后写覆盖
	last, err := svc.Update(ctx, 1, &dto.NoteUpdateRequest{ID: added.ID, Content: "v3"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), last.Version)
}

func TestNoteServiceStoreFailure(t *testing.T) {
	svc, repo, _ := newTestService()
	repo.failErr = errors.New("disk full")

	_, err := svc.Add(context.Background(), 1, &dto.NoteAddRequest{PageURL: "/home", Content: "x"})
	assertCode(t, err, code.ErrorDBQuery)
}

func TestNoteServiceListForPageIsolation(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	for _, req := range []*dto.NoteAddRequest{
		{PageURL: "https://Example.com/home#top", Content: "same page"},
		{PageURL: "https://example.com/homepage", Content: "prefix collision"},
		{PageURL: "https://example.com/home/sub", Content: "sub page"},
	} {
		_, err := svc.Add(ctx, 1, req)
		require.NoError(t, err)
	}
	_, err := svc.Add(ctx, 2, &dto.NoteAddRequest{PageURL: "https://example.com/home", Content: "other owner"})
	require.NoError(t, err)

	list, err := svc.ListForPage(ctx, 1, &dto.NoteListForPageRequest{PageURL: "https://example.com:443/home"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "same page", list[0].Content)
}

// gatedNoteRepo 页面查询在 release 关闭前阻塞，并遵守传入的 ctx
type gatedNoteRepo struct {
	*memoryNoteRepo
	started chan struct{}
	once    sync.Once
	release chan struct{}
}

func (g *gatedNoteRepo) ListByPage(ctx context.Context, pageURL, pageURLHash string, limit int, uid int64) ([]*domain.Note, error) {
	g.once.Do(func() { close(g.started) })
	select {
	case <-g.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return g.memoryNoteRepo.ListByPage(ctx, pageURL, pageURLHash, limit, uid)
}

func TestNoteServiceSharedQuerySurvivesCallerCancel(t *testing.T) {
	repo := &gatedNoteRepo{
		memoryNoteRepo: newMemoryNoteRepo(),
		started:        make(chan struct{}),
		release:        make(chan struct{}),
	}
	svc := NewNoteService(repo, nil, nil, nil)
	close(repo.release)
	_, err := svc.Add(context.Background(), 1, &dto.NoteAddRequest{PageURL: "/home", Content: "kept"})
	require.NoError(t, err)
	repo.release = make(chan struct{})

	req := &dto.NoteListForPageRequest{PageURL: "/home"}
	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := svc.ListForPage(ctxA, 1, req)
		errA <- err
	}()
	<-repo.started

	type result struct {
		list []*dto.NoteDTO
		err  error
	}
	resB := make(chan result, 1)
	go func() {
		list, err := svc.ListForPage(context.Background(), 1, req)
		resB <- result{list, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelA()
	select {
	case err := <-errA:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled caller did not return")
	}

	close(repo.release)
	select {
	case r := <-resB:
		require.NoError(t, r.err)
		require.Len(t, r.list, 1)
		assert.Equal(t, "kept", r.list[0].Content)
	case <-time.After(time.Second):
		t.Fatal("second caller did not return")
	}
}

func TestNoteServiceListAllAndStats(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Add(ctx, 1, &dto.NoteAddRequest{PageURL: "/p", Content: "n"})
		require.NoError(t, err)
	}
	_, err := svc.Add(ctx, 2, &dto.NoteAddRequest{PageURL: "/p", Content: "n"})
	require.NoError(t, err)

	list, total, err := svc.ListAll(ctx, 1, &app.Pager{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, list, 2)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.TotalNotes)
	assert.Equal(t, int64(2), stats.TotalUsers)
}

// 任意合法内容新增后都能在页面列表中读到，且创建时间等于更新时间
func TestPropertyAddThenListIncludesNote(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("add then listForPage includes the note", prop.ForAll(
		func(uid int64, path, content string) bool {
			svc, _, _ := newTestService()
			ctx := context.Background()
			url := "/" + path

			added, err := svc.Add(ctx, uid, &dto.NoteAddRequest{PageURL: url, Content: content})
			if err != nil {
				return false
			}
			if added.CreatedAt.UnixMilli() != added.UpdatedAt.UnixMilli() {
				return false
			}
			list, err := svc.ListForPage(ctx, uid, &dto.NoteListForPageRequest{PageURL: url})
			if err != nil {
				return false
			}
			for _, n := range list {
				if n.ID == added.ID && n.Content == strings.TrimSpace(content) {
					return true
				}
			}
			return false
		},
		gen.Int64Range(1, 1<<40),
		gen.AlphaString(),
		gen.AlphaString().SuchThat(func(s string) bool { return len(s) > 0 && len(s) <= util.MaxContentLength }),
	))

	properties.TestingRun(t)
}
