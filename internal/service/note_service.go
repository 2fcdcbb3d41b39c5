package service

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/haierkeys/page-notes-service/internal/domain"
	"github.com/haierkeys/page-notes-service/internal/dto"
	"github.com/haierkeys/page-notes-service/pkg/app"
	"github.com/haierkeys/page-notes-service/pkg/code"
	"github.com/haierkeys/page-notes-service/pkg/logger"
	"github.com/haierkeys/page-notes-service/pkg/timex"
	"github.com/haierkeys/page-notes-service/pkg/util"

	"github.com/jinzhu/copier"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

// NoteService 页面笔记业务服务接口
// 所有方法的 uid 由认证中间件提供，uid <= 0 时直接拒绝
type NoteService interface {
	// Add 新增笔记
	Add(ctx context.Context, uid int64, params *dto.NoteAddRequest) (*dto.NoteDTO, error)

	// Update 修改笔记内容
	Update(ctx context.Context, uid int64, params *dto.NoteUpdateRequest) (*dto.NoteDTO, error)

	// Delete 删除笔记，返回被删除的笔记 ID
	Delete(ctx context.Context, uid int64, params *dto.NoteDeleteRequest) (int64, error)

	// ListForPage 获取当前页面的笔记
	ListForPage(ctx context.Context, uid int64, params *dto.NoteListForPageRequest) ([]*dto.NoteDTO, error)

	// ListAll 分页获取用户全部笔记
	ListAll(ctx context.Context, uid int64, pager *app.Pager) ([]*dto.NoteDTO, int, error)

	// Stats 全局统计
	Stats(ctx context.Context) (*dto.NoteStatsDTO, error)

	// Enabled 笔记功能是否开启
	Enabled() bool

	// SetEnabled 切换笔记功能开关
	SetEnabled(enabled bool)
}

// noteService 实现 NoteService 接口
type noteService struct {
	noteRepo domain.NoteRepository
	notifier domain.NoteNotifier
	logger   *zap.Logger
	sf       *singleflight.Group
	config   *ServiceConfig
	enabled  atomic.Bool
}

// NewNoteService 创建 NoteService 实例，notifier 可以为 nil
func NewNoteService(noteRepo domain.NoteRepository, notifier domain.NoteNotifier, lg *zap.Logger, config *ServiceConfig) NoteService {
	if lg == nil {
		lg = zap.NewNop()
	}
	if config == nil {
		config = &ServiceConfig{App: AppServiceConfig{NotesEnabled: true}}
	}
	s := &noteService{
		noteRepo: noteRepo,
		notifier: notifier,
		logger:   lg,
		sf:       &singleflight.Group{},
		config:   config,
	}
	s.enabled.Store(config.App.NotesEnabled)
	return s
}

var timeConverters = []copier.TypeConverter{
	{
		SrcType: time.Time{},
		DstType: timex.Time{},
		Fn: func(src interface{}) (interface{}, error) {
			return timex.Time(src.(time.Time)), nil
		},
	},
}

// domainToDTO 将领域模型转换为 DTO，所有者不会被复制
func (s *noteService) domainToDTO(note *domain.Note) *dto.NoteDTO {
	if note == nil {
		return nil
	}
	out := &dto.NoteDTO{}
	if err := copier.CopyWithOption(out, note, copier.Option{Converters: timeConverters}); err != nil {
		s.logger.Warn("note copy failed", zap.Int64(logger.FieldNoteID, note.ID), zap.Error(err))
	}
	return out
}

func (s *noteService) domainToDTOList(notes []*domain.Note) []*dto.NoteDTO {
	out := make([]*dto.NoteDTO, 0, len(notes))
	for _, n := range notes {
		out = append(out, s.domainToDTO(n))
	}
	return out
}

func (s *noteService) Enabled() bool {
	return s.enabled.Load()
}

func (s *noteService) SetEnabled(enabled bool) {
	s.enabled.Store(enabled)
}

func (s *noteService) listLimit() int {
	if s.config.App.ListLimit > 0 {
		return s.config.App.ListLimit
	}
	return DefaultListLimit
}

// guard 校验功能开关与用户身份
func (s *noteService) guard(uid int64) error {
	if uid <= 0 {
		return code.ErrorInvalidUserAuthToken
	}
	if !s.Enabled() {
		return code.ErrorNotesDisabled
	}
	return nil
}

func pageURLError(err error) error {
	if errors.Is(err, util.ErrEmptyPageURL) {
		return code.ErrorPageURLEmpty
	}
	return code.ErrorInvalidParams.WithDetails(err.Error())
}

func contentError(err error) error {
	if errors.Is(err, util.ErrContentTooLong) {
		return code.ErrorNoteContentTooLong.WithDetails("max " + strconv.Itoa(util.MaxContentLength) + " characters")
	}
	return code.ErrorNoteContentEmpty
}

// storeError maps repository errors onto codes; absence and foreign ownership are both NotFound
func (s *noteService) storeError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return code.ErrorNoteNotFound
	}
	var conflict *domain.VersionConflictError
	if errors.As(err, &conflict) {
		return code.ErrorNoteVersionConflict.WithData(s.domainToDTO(conflict.Current))
	}
	return code.ErrorDBQuery.WithDetails(err.Error())
}

func (s *noteService) publish(uid int64, action domain.NoteAction, note *domain.Note) {
	if s.notifier == nil || note == nil {
		return
	}
	s.notifier.NotifyNote(uid, domain.NoteEvent{
		Action:           action,
		NoteID:           note.ID,
		PageURL:          note.PageURL,
		Version:          note.Version,
		UpdatedTimestamp: note.UpdatedTimestamp,
	})
}

// Add 新增笔记
func (s *noteService) Add(ctx context.Context, uid int64, params *dto.NoteAddRequest) (*dto.NoteDTO, error) {
	if err := s.guard(uid); err != nil {
		return nil, err
	}

	pageURL, err := util.NormalizePageURL(params.PageURL)
	if err != nil {
		return nil, pageURLError(err)
	}
	content, err := util.CheckContent(params.Content)
	if err != nil {
		return nil, contentError(err)
	}

	note, err := s.noteRepo.Create(ctx, &domain.Note{
		UID:         uid,
		PageURL:     pageURL,
		PageURLHash: util.EncodeHash32(pageURL),
		PageTitle:   util.SanitizeTitle(params.PageTitle),
		Content:     content,
	}, uid)
	if err != nil {
		s.logger.Error("note create failed", zap.Int64(logger.FieldUID, uid), zap.String(logger.FieldPageURL, pageURL), zap.Error(err))
		return nil, s.storeError(err)
	}

	s.publish(uid, domain.NoteActionCreate, note)
	return s.domainToDTO(note), nil
}

// Update 修改笔记内容
func (s *noteService) Update(ctx context.Context, uid int64, params *dto.NoteUpdateRequest) (*dto.NoteDTO, error) {
	if err := s.guard(uid); err != nil {
		return nil, err
	}
	content, err := util.CheckContent(params.Content)
	if err != nil {
		return nil, contentError(err)
	}
	if params.ID <= 0 {
		return nil, code.ErrorNoteNotFound
	}

	// 服务端重新获取并校验归属
	if _, err := s.noteRepo.GetByID(ctx, params.ID, uid); err != nil {
		return nil, s.storeError(err)
	}

	note, err := s.noteRepo.UpdateContent(ctx, &domain.Note{ID: params.ID, Content: content}, params.Version, uid)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Warn("note update failed", zap.Int64(logger.FieldUID, uid), zap.Int64(logger.FieldNoteID, params.ID), zap.Error(err))
		}
		return nil, s.storeError(err)
	}

	s.publish(uid, domain.NoteActionModify, note)
	return s.domainToDTO(note), nil
}

// Delete 删除笔记
func (s *noteService) Delete(ctx context.Context, uid int64, params *dto.NoteDeleteRequest) (int64, error) {
	if err := s.guard(uid); err != nil {
		return 0, err
	}
	if params.ID <= 0 {
		return 0, code.ErrorNoteNotFound
	}

	note, err := s.noteRepo.GetByID(ctx, params.ID, uid)
	if err != nil {
		return 0, s.storeError(err)
	}

	affected, err := s.noteRepo.Delete(ctx, note.ID, uid)
	if err != nil {
		s.logger.Error("note delete failed", zap.Int64(logger.FieldUID, uid), zap.Int64(logger.FieldNoteID, note.ID), zap.Error(err))
		return 0, s.storeError(err)
	}
	if affected == 0 {
		return 0, code.ErrorNoteNotFound
	}

	s.publish(uid, domain.NoteActionDelete, note)
	return note.ID, nil
}

// shared 合并相同 key 的并发查询
// 查询运行在脱离取消的 ctx 上，任一调用方取消只影响它自己的等待
func (s *noteService) shared(ctx context.Context, key string, fn func(context.Context) (interface{}, error)) (interface{}, error) {
	qctx := context.WithoutCancel(ctx)
	ch := s.sf.DoChan(key, func() (interface{}, error) {
		return fn(qctx)
	})
	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ListForPage 获取当前页面的笔记，相同请求合并执行
func (s *noteService) ListForPage(ctx context.Context, uid int64, params *dto.NoteListForPageRequest) ([]*dto.NoteDTO, error) {
	if err := s.guard(uid); err != nil {
		return nil, err
	}
	pageURL, err := util.NormalizePageURL(params.PageURL)
	if err != nil {
		return nil, pageURLError(err)
	}

	key := strconv.FormatInt(uid, 10) + "#" + pageURL
	v, err := s.shared(ctx, key, func(qctx context.Context) (interface{}, error) {
		return s.noteRepo.ListByPage(qctx, pageURL, util.EncodeHash32(pageURL), s.listLimit(), uid)
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, s.storeError(err)
	}
	return s.domainToDTOList(v.([]*domain.Note)), nil
}

// ListAll 分页获取用户全部笔记
func (s *noteService) ListAll(ctx context.Context, uid int64, pager *app.Pager) ([]*dto.NoteDTO, int, error) {
	if err := s.guard(uid); err != nil {
		return nil, 0, err
	}

	count, err := s.noteRepo.Count(ctx, uid)
	if err != nil {
		return nil, 0, s.storeError(err)
	}
	notes, err := s.noteRepo.List(ctx, pager.Offset(), pager.PageSize, uid)
	if err != nil {
		return nil, 0, s.storeError(err)
	}
	return s.domainToDTOList(notes), int(count), nil
}

// Stats 全局统计
func (s *noteService) Stats(ctx context.Context) (*dto.NoteStatsDTO, error) {
	v, err := s.shared(ctx, "stats", func(qctx context.Context) (interface{}, error) {
		return s.noteRepo.Stats(qctx)
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, s.storeError(err)
	}
	stats := v.(*domain.NoteStats)
	return &dto.NoteStatsDTO{TotalNotes: stats.TotalNotes, TotalUsers: stats.TotalUsers}, nil
}
