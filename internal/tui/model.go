// Package tui is the terminal front-end of the notes panel
// Package tui 笔记面板的终端界面
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/haierkeys/page-notes-service/internal/domain"
	"github.com/haierkeys/page-notes-service/internal/panel"
	"github.com/haierkeys/page-notes-service/pkg/diff"
	"github.com/haierkeys/page-notes-service/pkg/util"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"
)

const (
	tickInterval   = 500 * time.Millisecond
	defaultWidth   = 80
	minNoteWidth   = 20
	reconnectDelay = 5 * time.Second
	timeLayout     = "2006-01-02 15:04"
)

type panelMsg struct{ msg panel.Msg }

type tickMsg time.Time

type remoteMsg domain.NoteEvent

// Subscriber 变更推送来源，由 pkg/client.Client 实现
type Subscriber interface {
	Subscribe(ctx context.Context, onEvent func(domain.NoteEvent)) error
}

// Model bubbletea 模型
type Model struct {
	ctrl   *panel.Controller
	page   panel.Page
	editor textarea.Model
	cursor int
	width  int
	height int
}

// NewModel 创建模型，面板默认打开
func NewModel(api panel.API, cfg Config) *Model {
	editor := textarea.New()
	editor.Placeholder = "Write a note..."
	editor.CharLimit = util.MaxContentLength
	editor.ShowLineNumbers = false
	editor.SetHeight(6)
	editor.SetWidth(defaultWidth - 4)

	m := &Model{
		ctrl:   panel.New(api, panel.Options{NoticeTTL: cfg.NoticeDuration()}),
		page:   panel.Page{URL: cfg.PageURL, Title: cfg.PageTitle},
		editor: editor,
		width:  defaultWidth,
	}
	return m
}

// Controller 返回内部控制器
func (m *Model) Controller() *panel.Controller { return m.ctrl }

// Init 打开面板并启动定时器
func (m *Model) Init() tea.Cmd {
	return tea.Batch(wrap(m.start()), tickCmd())
}

// start 设置当前页面并打开面板，返回首次加载
func (m *Model) start() panel.Cmd {
	load := m.ctrl.SetPage(m.page)
	if m.ctrl.Panel() != panel.PanelOpen {
		if cmd := m.ctrl.Toggle(); cmd != nil {
			return cmd
		}
	}
	return load
}

func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// wrap 把面板 Cmd 转为 tea.Cmd
func wrap(cmd panel.Cmd) tea.Cmd {
	if cmd == nil {
		return nil
	}
	return func() tea.Msg {
		return panelMsg{msg: cmd()}
	}
}

// Update 处理消息
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	pc, uc := m.reduce(msg)
	return m, tea.Batch(wrap(pc), uc)
}

// reduce 返回面板命令与界面命令，面板命令由调用方异步执行
func (m *Model) reduce(msg tea.Msg) (panel.Cmd, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.editor.SetWidth(max(msg.Width-4, minNoteWidth))
		return nil, nil
	case tickMsg:
		m.ctrl.Tick(time.Time(msg))
		return nil, tickCmd()
	case remoteMsg:
		return m.ctrl.RemoteChanged(domain.NoteEvent(msg)), nil
	case panelMsg:
		cmd := m.ctrl.Update(msg.msg)
		m.syncEditor()
		m.clampCursor()
		return cmd, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return nil, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (panel.Cmd, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return nil, tea.Quit
	}

	if m.ctrl.Modal() != panel.ModalHidden {
		switch key {
		case "esc":
			m.ctrl.CancelEdit()
			m.syncEditor()
			return nil, nil
		case "ctrl+s":
			return m.ctrl.Save(m.editor.Value()), nil
		case "ctrl+r":
			if merged, ok := m.ctrl.UseMerge(); ok {
				m.editor.SetValue(merged)
			}
			return nil, nil
		}
		var cmd tea.Cmd
		m.editor, cmd = m.editor.Update(msg)
		return nil, cmd
	}

	if _, ok := m.ctrl.PendingRemove(); ok {
		switch key {
		case "y":
			return m.ctrl.ConfirmRemove(), nil
		case "n", "esc":
			m.ctrl.CancelRemove()
		}
		return nil, nil
	}

	switch key {
	case "q":
		return nil, tea.Quit
	case "tab":
		return m.ctrl.Toggle(), nil
	case "esc":
		m.ctrl.Close()
		return nil, nil
	}
	if m.ctrl.Panel() != panel.PanelOpen {
		return nil, nil
	}

	switch key {
	case "r":
		return m.ctrl.Load(), nil
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < m.ctrl.Count()-1 {
			m.cursor++
		}
	case "n":
		m.ctrl.StartAdd()
		return nil, m.openEditor()
	case "e":
		if id, ok := m.selected(); ok {
			m.ctrl.Edit(id)
			if m.ctrl.Modal() == panel.ModalEditingExisting {
				return nil, m.openEditor()
			}
		}
	case "d":
		if id, ok := m.selected(); ok {
			m.ctrl.RequestRemove(id)
		}
	}
	return nil, nil
}

func (m *Model) openEditor() tea.Cmd {
	m.editor.SetValue(m.ctrl.Draft())
	return m.editor.Focus()
}

// syncEditor 编辑框关闭后清空输入
func (m *Model) syncEditor() {
	if m.ctrl.Modal() == panel.ModalHidden {
		m.editor.Blur()
		m.editor.Reset()
	}
}

func (m *Model) selected() (int64, bool) {
	notes := m.ctrl.Notes()
	if m.cursor < 0 || m.cursor >= len(notes) {
		return 0, false
	}
	return notes[m.cursor].ID, true
}

func (m *Model) clampCursor() {
	if n := m.ctrl.Count(); m.cursor >= n {
		m.cursor = max(n-1, 0)
	}
}

// View 渲染界面
func (m *Model) View() string {
	var b strings.Builder

	page := m.ctrl.Page()
	title := page.Title
	if title == "" {
		title = page.URL
	}
	b.WriteString(headerStyle.Render(runewidth.Truncate(plain(title), max(m.width-12, minNoteWidth), "…")))
	b.WriteString(" ")
	b.WriteString(countStyle.Render(fmt.Sprintf("%d", m.ctrl.Count())))
	b.WriteString("\n\n")

	if m.ctrl.Panel() == panel.PanelOpen {
		b.WriteString(m.renderNotes())
	} else {
		b.WriteString(helpStyle.Render("Panel closed. Press tab to open."))
		b.WriteString("\n")
	}

	if id, ok := m.ctrl.PendingRemove(); ok {
		b.WriteString("\n")
		b.WriteString(confirmStyle.Render(fmt.Sprintf("Delete note #%d? (y/n)", id)))
		b.WriteString("\n")
	}

	if m.ctrl.Modal() != panel.ModalHidden {
		b.WriteString("\n")
		b.WriteString(m.renderModal())
		b.WriteString("\n")
	}

	for _, n := range m.ctrl.Notices() {
		b.WriteString("\n")
		b.WriteString(noticeStyle(n.Kind).Render(plain(n.Text)))
	}

	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render(m.help()))
	return b.String()
}

func (m *Model) renderNotes() string {
	if m.ctrl.Loading() && m.ctrl.Count() == 0 {
		return helpStyle.Render("Loading...") + "\n"
	}
	notes := m.ctrl.Notes()
	if len(notes) == 0 {
		return helpStyle.Render("No notes for this page yet. Press n to add one.") + "\n"
	}

	width := max(m.width-4, minNoteWidth)
	var b strings.Builder
	for i, n := range notes {
		line := strings.SplitN(plain(n.Content), "\n", 2)[0]
		line = runewidth.Truncate(line, width-len(timeLayout)-3, "…")
		meta := metaStyle.Render(time.UnixMilli(n.UpdatedTimestamp).Format(timeLayout))
		if i == m.cursor {
			b.WriteString(selectedStyle.Render("> " + line))
		} else {
			b.WriteString(noteStyle.Render("  " + line))
		}
		b.WriteString(" ")
		b.WriteString(meta)
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) renderModal() string {
	var b strings.Builder
	if m.ctrl.Modal() == panel.ModalEditingNew {
		b.WriteString(headerStyle.Render("New note"))
	} else {
		b.WriteString(headerStyle.Render(fmt.Sprintf("Edit note #%d", m.ctrl.EditingID())))
	}
	b.WriteString("\n")
	b.WriteString(m.editor.View())
	b.WriteString("\n")

	if c := m.ctrl.Conflict(); c != nil {
		b.WriteString("\n")
		b.WriteString(metaStyle.Render(fmt.Sprintf("Changed elsewhere (version %d):", c.Server.Version)))
		b.WriteString("\n")
		b.WriteString(renderDiff(c.Segments))
		b.WriteString("\n")
		if c.MergeOK {
			b.WriteString(helpStyle.Render("ctrl+r use merged text"))
		} else {
			b.WriteString(helpStyle.Render("ctrl+r use best-effort merge (some edits did not apply)"))
		}
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render("[" + m.ctrl.SaveLabel() + "] ctrl+s  cancel esc"))
	return modalStyle.Width(max(m.width-2, minNoteWidth)).Render(b.String())
}

func renderDiff(segments []diff.Segment) string {
	var b strings.Builder
	for _, s := range segments {
		text := plain(s.Text)
		switch s.Op {
		case diff.OpInsert:
			b.WriteString(insertStyle.Render(text))
		case diff.OpDelete:
			b.WriteString(deleteStyle.Render(text))
		default:
			b.WriteString(text)
		}
	}
	return b.String()
}

func noticeStyle(kind panel.NoticeKind) lipgloss.Style {
	switch kind {
	case panel.NoticeSuccess:
		return successStyle
	case panel.NoticeValidation:
		return validationStyle
	}
	return errorStyle
}

func (m *Model) help() string {
	switch {
	case m.ctrl.Modal() != panel.ModalHidden:
		return "ctrl+s save • esc cancel"
	case m.ctrl.Panel() != panel.PanelOpen:
		return "tab open • q quit"
	}
	return "n new • e edit • d delete • r reload • ↑/↓ select • tab close • q quit"
}

// plain 去除终端控制序列，笔记内容按纯文本显示
func plain(s string) string {
	return xansi.Strip(s)
}

// Run starts the panel; events, when not nil, feeds remote changes into the panel until ctx ends
// Run 启动终端面板
func Run(ctx context.Context, api panel.API, events Subscriber, cfg Config) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewModel(api, cfg), tea.WithAltScreen(), tea.WithContext(ctx))

	if events != nil {
		go func() {
			for {
				_ = events.Subscribe(ctx, func(e domain.NoteEvent) {
					p.Send(remoteMsg(e))
				})
				select {
				case <-ctx.Done():
					return
				case <-time.After(reconnectDelay):
				}
			}
		}()
	}

	_, err := p.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
