package tui

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/haierkeys/page-notes-service/internal/domain"
	"github.com/haierkeys/page-notes-service/internal/dto"
	"github.com/haierkeys/page-notes-service/internal/panel"

	tea "github.com/charmbracelet/bubbletea"
	xansi "github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryAPI 内存版笔记服务
type memoryAPI struct {
	mu     sync.Mutex
	nextID int64
	notes  []*dto.NoteDTO
}

func (a *memoryAPI) ListForPage(ctx context.Context, pageURL string) ([]*dto.NoteDTO, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]*dto.NoteDTO, 0, len(a.notes))
	for _, n := range a.notes {
		if n.PageURL == pageURL {
			c := *n
			out = append(out, &c)
		}
	}
	return out, nil
}

func (a *memoryAPI) Add(ctx context.Context, pageURL, pageTitle, content string) (*dto.NoteDTO, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nextID++
	n := &dto.NoteDTO{ID: a.nextID, PageURL: pageURL, PageTitle: pageTitle, Content: content, Version: 1,
		UpdatedTimestamp: time.Now().UnixMilli()}
	a.notes = append([]*dto.NoteDTO{n}, a.notes...)
	c := *n
	return &c, nil
}

func (a *memoryAPI) Update(ctx context.Context, id int64, content string, version int64) (*dto.NoteDTO, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, n := range a.notes {
		if n.ID == id {
			n.Content = content
			n.Version++
			c := *n
			return &c, nil
		}
	}
	return nil, assert.AnError
}

func (a *memoryAPI) Delete(ctx context.Context, id int64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i, n := range a.notes {
		if n.ID == id {
			a.notes = append(a.notes[:i], a.notes[i+1:]...)
			return nil
		}
	}
	return assert.AnError
}

const testPage = "https://example.com/docs"

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// drive 同步执行面板命令直到没有后续命令
func drive(m *Model, pc panel.Cmd) {
	for pc != nil {
		pc, _ = m.reduce(panelMsg{msg: pc()})
	}
}

func press(m *Model, key tea.KeyMsg) {
	pc, _ := m.reduce(key)
	drive(m, pc)
}

func newTestModel(t *testing.T, api *memoryAPI) *Model {
	t.Helper()
	cfg := DefaultConfig()
	cfg.PageURL = testPage
	cfg.PageTitle = "Docs"
	m := NewModel(api, cfg)
	drive(m, m.start())
	require.Equal(t, panel.PanelOpen, m.Controller().Panel())
	return m
}

func TestAddEditDeleteThroughKeys(t *testing.T) {
	api := &memoryAPI{}
	m := newTestModel(t, api)
	assert.Contains(t, m.View(), "No notes for this page yet")

	press(m, runes("n"))
	require.Equal(t, panel.ModalEditingNew, m.Controller().Modal())
	press(m, runes("q"))
	assert.Equal(t, panel.ModalEditingNew, m.Controller().Modal(), "typing q in the editor does not quit")
	press(m, runes("uick note"))
	press(m, tea.KeyMsg{Type: tea.KeyCtrlS})

	assert.Equal(t, panel.ModalHidden, m.Controller().Modal())
	require.Equal(t, 1, m.Controller().Count())
	assert.Equal(t, "quick note", m.Controller().Notes()[0].Content)
	assert.Contains(t, m.View(), "quick note")
	assert.Contains(t, m.View(), "Note saved")

	press(m, runes("e"))
	require.Equal(t, panel.ModalEditingExisting, m.Controller().Modal())
	press(m, runes("!"))
	press(m, tea.KeyMsg{Type: tea.KeyCtrlS})
	assert.Equal(t, "quick note!", m.Controller().Notes()[0].Content)

	press(m, runes("d"))
	assert.Contains(t, m.View(), "(y/n)")
	press(m, runes("n"))
	assert.Equal(t, 1, m.Controller().Count(), "declined delete keeps the note")
	assert.Equal(t, panel.ModalHidden, m.Controller().Modal())

	press(m, runes("d"))
	press(m, runes("y"))
	assert.Equal(t, 0, m.Controller().Count())
}

func TestEscapeCancelsEditAndClosesPanel(t *testing.T) {
	m := newTestModel(t, &memoryAPI{})

	press(m, runes("n"))
	press(m, runes("draft"))
	press(m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, panel.ModalHidden, m.Controller().Modal())
	assert.Empty(t, m.editor.Value())

	press(m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, panel.PanelClosed, m.Controller().Panel())
	assert.Contains(t, m.View(), "Panel closed")

	press(m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, panel.PanelOpen, m.Controller().Panel())
}

func TestViewStripsControlSequences(t *testing.T) {
	api := &memoryAPI{}
	_, _ = api.Add(context.Background(), testPage, "", "\x1b[31mred\x1b[0m alert")
	m := newTestModel(t, api)

	view := m.View()
	assert.NotContains(t, view, "\x1b[31m")
	assert.Contains(t, xansi.Strip(view), "red alert")
}

func TestRemoteEventReloads(t *testing.T) {
	api := &memoryAPI{}
	m := newTestModel(t, api)

	n, _ := api.Add(context.Background(), testPage, "", "from another tab")
	pc, _ := m.reduce(remoteMsg(domain.NoteEvent{Action: domain.NoteActionCreate, NoteID: n.ID, PageURL: testPage, Version: 1}))
	require.NotNil(t, pc)
	drive(m, pc)
	assert.Equal(t, 1, m.Controller().Count())
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadConfig(filepath.Join(dir, "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	path := filepath.Join(dir, "panel.toml")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join([]string{
		`server = "https://notes.example.com"`,
		`token = "abc"`,
		`page-url = "https://example.com/a"`,
		`notice-ttl = "5s"`,
	}, "\n")), 0o600))

	cfg, err = LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "https://notes.example.com", cfg.Server)
	assert.Equal(t, "abc", cfg.Token)
	assert.Equal(t, "https://example.com/a", cfg.PageURL)
	assert.Equal(t, 5*time.Second, cfg.NoticeDuration())
	assert.True(t, cfg.Events, "unset keys keep defaults")

	require.NoError(t, os.WriteFile(path, []byte("server = ["), 0o600))
	_, err = LoadConfig(path)
	assert.Error(t, err)

	saved := filepath.Join(dir, "nested", "panel.toml")
	require.NoError(t, SaveConfig(saved, DefaultConfig()))
	cfg, err = LoadConfig(saved)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}
