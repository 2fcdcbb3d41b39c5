// Package panel holds the client-side state of the notes panel for the page currently open.
// Every method runs on the caller's goroutine; network work is returned as a Cmd and its
// result is fed back through Update.
// Package panel 页面笔记面板的客户端状态机
package panel

import (
	"context"
	"fmt"
	"time"

	"github.com/haierkeys/page-notes-service/internal/domain"
	"github.com/haierkeys/page-notes-service/internal/dto"
	"github.com/haierkeys/page-notes-service/pkg/diff"
	"github.com/haierkeys/page-notes-service/pkg/util"

	"github.com/pkg/errors"
)

const (
	// DefaultNoticeTTL 通知自动消失时间
	DefaultNoticeTTL = 3 * time.Second
	// DefaultRequestTimeout 单次请求超时
	DefaultRequestTimeout = 15 * time.Second
)

// API is the notes service surface the panel talks to
// API 面板依赖的笔记服务接口，由 pkg/client.Client 实现
type API interface {
	ListForPage(ctx context.Context, pageURL string) ([]*dto.NoteDTO, error)
	Add(ctx context.Context, pageURL, pageTitle, content string) (*dto.NoteDTO, error)
	Update(ctx context.Context, id int64, content string, version int64) (*dto.NoteDTO, error)
	Delete(ctx context.Context, id int64) error
}

// Msg 异步操作的结果
type Msg interface{}

// Cmd 由调用方异步执行，返回值交给 Controller.Update
type Cmd func() Msg

type loadedMsg struct {
	seq   uint64
	notes []*dto.NoteDTO
	err   error
}

type savedMsg struct {
	edit   uint64
	noteID int64
	typed  string
	note   *dto.NoteDTO
	err    error
}

type removedMsg struct {
	noteID int64
	err    error
}

// PanelState 面板状态
type PanelState int8

const (
	PanelClosed PanelState = iota
	PanelOpen
)

// ModalState 编辑框状态
type ModalState int8

const (
	ModalHidden ModalState = iota
	ModalEditingNew
	ModalEditingExisting
)

// Page 当前页面
type Page struct {
	URL   string
	Title string
}

// NoticeKind 通知类型
type NoticeKind int8

const (
	NoticeSuccess NoticeKind = iota
	NoticeError
	NoticeValidation
)

// Notice 自动消失的通知
type Notice struct {
	Kind      NoticeKind
	Text      string
	ExpiresAt time.Time
}

// Conflict describes a save rejected because the note changed on the server
// Conflict 保存时的版本冲突
type Conflict struct {
	NoteID   int64
	Typed    string
	Server   *dto.NoteDTO
	Segments []diff.Segment // Server 到 Typed 的差异
	Merged   string
	MergeOK  bool
}

// conflictCarrier 由 client.APIError 实现
type conflictCarrier interface {
	ConflictNote() *dto.NoteDTO
}

// Options 控制器选项
type Options struct {
	NoticeTTL      time.Duration
	RequestTimeout time.Duration
	Now            func() time.Time
}

// Controller 面板控制器
type Controller struct {
	api  API
	opts Options

	panel  PanelState
	modal  ModalState
	editID int64
	draft  string
	// editSeq 每次打开或关闭编辑框递增，保存结果只作用于发起它的那次编辑
	editSeq uint64

	page    Page
	pageKey string
	notes   []*dto.NoteDTO

	loading       bool
	reloadPending bool
	loadSeq       uint64
	saving        bool
	pendingRemove int64

	notices  []Notice
	conflict *Conflict
}

// New 创建控制器
func New(api API, opts Options) *Controller {
	if opts.NoticeTTL <= 0 {
		opts.NoticeTTL = DefaultNoticeTTL
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Controller{api: api, opts: opts}
}

func (c *Controller) Panel() PanelState { return c.panel }
func (c *Controller) Modal() ModalState { return c.modal }
func (c *Controller) EditingID() int64  { return c.editID }
func (c *Controller) Draft() string     { return c.draft }
func (c *Controller) Page() Page        { return c.page }
func (c *Controller) Count() int        { return len(c.notes) }
func (c *Controller) Loading() bool     { return c.loading }
func (c *Controller) Saving() bool      { return c.saving }

// Conflict 返回最近一次保存冲突，没有时为 nil
func (c *Controller) Conflict() *Conflict { return c.conflict }

// Notes 返回缓存笔记的副本
func (c *Controller) Notes() []*dto.NoteDTO {
	out := make([]*dto.NoteDTO, len(c.notes))
	copy(out, c.notes)
	return out
}

// Notices 返回未过期的通知
func (c *Controller) Notices() []Notice {
	out := make([]Notice, len(c.notices))
	copy(out, c.notices)
	return out
}

// PendingRemove 返回等待确认删除的笔记
func (c *Controller) PendingRemove() (int64, bool) {
	return c.pendingRemove, c.pendingRemove != 0
}

// SaveLabel 保存按钮文字
func (c *Controller) SaveLabel() string {
	if c.saving {
		return "Saving..."
	}
	return "Save"
}

// Toggle 打开或关闭面板，打开时加载笔记
func (c *Controller) Toggle() Cmd {
	if c.panel == PanelOpen {
		c.Close()
		return nil
	}
	c.panel = PanelOpen
	return c.Load()
}

// Close 关闭面板
func (c *Controller) Close() {
	c.panel = PanelClosed
}

// SetPage switches to another page; the cache is cleared and loads issued for the previous page are ignored
// SetPage 切换当前页面
func (c *Controller) SetPage(p Page) Cmd {
	key, err := util.NormalizePageURL(p.URL)
	if err != nil {
		key = ""
	}
	c.page = p
	c.pageKey = key
	c.notes = nil
	c.pendingRemove = 0
	c.loadSeq++
	c.loading = false
	c.reloadPending = false
	if key == "" {
		c.notify(NoticeValidation, "Page URL is empty or invalid")
		return nil
	}
	return c.Load()
}

// Load fetches the notes of the current page; it is a no-op while a load is in flight
// Load 加载当前页面笔记，已有加载进行中时不做任何事
func (c *Controller) Load() Cmd {
	if c.loading || c.pageKey == "" {
		return nil
	}
	c.loading = true
	seq := c.loadSeq
	pageURL := c.page.URL
	api, timeout := c.api, c.opts.RequestTimeout

	return func() Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		notes, err := api.ListForPage(ctx, pageURL)
		return loadedMsg{seq: seq, notes: notes, err: err}
	}
}

// reload 刷新缓存；加载进行中时在其完成后再加载一次
func (c *Controller) reload() Cmd {
	if c.loading {
		c.reloadPending = true
		return nil
	}
	return c.Load()
}

// StartAdd 打开新增笔记编辑框
func (c *Controller) StartAdd() {
	c.editSeq++
	c.modal = ModalEditingNew
	c.editID = 0
	c.draft = ""
	c.conflict = nil
}

// Edit opens the modal pre-populated from the cache; unknown ids are reported, never fetched
// Edit 从缓存打开编辑框
func (c *Controller) Edit(id int64) {
	note := c.find(id)
	if note == nil {
		c.notify(NoticeError, "Note not found, reload the panel")
		return
	}
	c.editSeq++
	c.modal = ModalEditingExisting
	c.editID = id
	c.draft = note.Content
	c.conflict = nil
}

// CancelEdit 关闭编辑框
func (c *Controller) CancelEdit() {
	c.editSeq++
	c.modal = ModalHidden
	c.editID = 0
	c.draft = ""
	c.conflict = nil
}

// Save validates locally, then adds or updates the note being edited
// Save 保存编辑框内容
func (c *Controller) Save(content string) Cmd {
	if c.saving || c.modal == ModalHidden {
		return nil
	}
	c.draft = content

	body, err := util.CheckContent(content)
	switch {
	case errors.Is(err, util.ErrContentEmpty):
		c.notify(NoticeValidation, "Note content cannot be empty")
		return nil
	case errors.Is(err, util.ErrContentTooLong):
		c.notify(NoticeValidation, fmt.Sprintf("Note content cannot exceed %d characters", util.MaxContentLength))
		return nil
	}

	api, timeout, edit := c.api, c.opts.RequestTimeout, c.editSeq

	if c.modal == ModalEditingNew {
		if c.pageKey == "" {
			c.notify(NoticeValidation, "Page URL is empty or invalid")
			return nil
		}
		c.saving = true
		page := c.page
		return func() Msg {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			note, err := api.Add(ctx, page.URL, page.Title, body)
			return savedMsg{edit: edit, typed: content, note: note, err: err}
		}
	}

	cached := c.find(c.editID)
	if cached == nil {
		c.notify(NoticeError, "Note not found, reload the panel")
		return nil
	}
	c.saving = true
	id, version := cached.ID, cached.Version
	return func() Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		note, err := api.Update(ctx, id, body, version)
		return savedMsg{edit: edit, noteID: id, typed: content, note: note, err: err}
	}
}

// UseMerge replaces the draft with the merge suggestion of the last conflict
// UseMerge 采用冲突的合并结果作为草稿
func (c *Controller) UseMerge() (string, bool) {
	if c.conflict == nil {
		return "", false
	}
	c.draft = c.conflict.Merged
	c.conflict = nil
	return c.draft, true
}

// RequestRemove 请求删除，需要再确认
func (c *Controller) RequestRemove(id int64) {
	if c.find(id) == nil {
		c.notify(NoticeError, "Note not found, reload the panel")
		return
	}
	c.pendingRemove = id
}

// CancelRemove 取消删除
func (c *Controller) CancelRemove() {
	c.pendingRemove = 0
}

// ConfirmRemove 确认删除
func (c *Controller) ConfirmRemove() Cmd {
	id := c.pendingRemove
	if id == 0 {
		return nil
	}
	c.pendingRemove = 0
	api, timeout := c.api, c.opts.RequestTimeout
	return func() Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return removedMsg{noteID: id, err: api.Delete(ctx, id)}
	}
}

// RemoteChanged reloads when a change event concerns the current page
// RemoteChanged 其它标签页或设备的变更事件
func (c *Controller) RemoteChanged(event domain.NoteEvent) Cmd {
	if c.pageKey == "" {
		return nil
	}
	key, err := util.NormalizePageURL(event.PageURL)
	if err != nil || key != c.pageKey {
		return nil
	}
	if event.Action != domain.NoteActionDelete {
		if note := c.find(event.NoteID); note != nil && note.Version >= event.Version {
			return nil
		}
	}
	return c.reload()
}

// Tick 清理过期通知
func (c *Controller) Tick(now time.Time) {
	kept := c.notices[:0]
	for _, n := range c.notices {
		if now.Before(n.ExpiresAt) {
			kept = append(kept, n)
		}
	}
	c.notices = kept
}

// Update applies the result of a Cmd and may return a follow-up Cmd.
// A save result only closes the modal or records a Conflict when the edit that issued it is still open;
// a version conflict always replaces the cached note with the server copy, so a later save is based on
// the current version.
// Update 处理异步结果
func (c *Controller) Update(msg Msg) Cmd {
	switch m := msg.(type) {
	case loadedMsg:
		return c.onLoaded(m)
	case savedMsg:
		return c.onSaved(m)
	case removedMsg:
		c.onRemoved(m)
	}
	return nil
}

func (c *Controller) onLoaded(m loadedMsg) Cmd {
	if m.seq != c.loadSeq {
		return nil
	}
	c.loading = false
	if m.err != nil {
		c.notify(NoticeError, "Failed to load notes: "+m.err.Error())
	} else {
		c.notes = m.notes
	}
	if c.reloadPending {
		c.reloadPending = false
		return c.Load()
	}
	return nil
}

func (c *Controller) onSaved(m savedMsg) Cmd {
	c.saving = false
	current := m.edit == c.editSeq && c.modal != ModalHidden
	if m.err != nil {
		c.notify(NoticeError, "Failed to save note: "+m.err.Error())
		var carrier conflictCarrier
		if errors.As(m.err, &carrier) {
			if server := carrier.ConflictNote(); server != nil {
				c.onConflict(m, server, current)
			}
		}
		return nil
	}

	if current {
		c.CancelEdit()
	}
	c.notify(NoticeSuccess, "Note saved")
	return c.reload()
}

// onConflict 用服务端版本替换缓存笔记，只有仍在进行的编辑才记录冲突
func (c *Controller) onConflict(m savedMsg, server *dto.NoteDTO, current bool) {
	base := server.Content
	for i, n := range c.notes {
		if n.ID == m.noteID {
			base = n.Content
			c.notes[i] = server
			break
		}
	}
	if !current {
		return
	}
	merged, ok := diff.Merge(base, server.Content, util.NormalizeContent(m.typed))
	c.conflict = &Conflict{
		NoteID:   m.noteID,
		Typed:    m.typed,
		Server:   server,
		Segments: diff.Compare(server.Content, util.NormalizeContent(m.typed)),
		Merged:   merged,
		MergeOK:  ok,
	}
}

func (c *Controller) onRemoved(m removedMsg) {
	if m.err != nil {
		c.notify(NoticeError, "Failed to delete note: "+m.err.Error())
		return
	}
	kept := make([]*dto.NoteDTO, 0, len(c.notes))
	for _, n := range c.notes {
		if n.ID != m.noteID {
			kept = append(kept, n)
		}
	}
	c.notes = kept
	if c.modal == ModalEditingExisting && c.editID == m.noteID {
		c.CancelEdit()
	}
	c.notify(NoticeSuccess, "Note deleted")
}

func (c *Controller) find(id int64) *dto.NoteDTO {
	for _, n := range c.notes {
		if n.ID == id {
			return n
		}
	}
	return nil
}

func (c *Controller) notify(kind NoticeKind, text string) {
	c.notices = append(c.notices, Notice{Kind: kind, Text: text, ExpiresAt: c.opts.Now().Add(c.opts.NoticeTTL)})
}
