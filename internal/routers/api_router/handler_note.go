package api_router

import (
	"github.com/haierkeys/page-notes-service/internal/app"
	"github.com/haierkeys/page-notes-service/internal/dto"
	pkgapp "github.com/haierkeys/page-notes-service/pkg/app"
	"github.com/haierkeys/page-notes-service/pkg/code"
	apperrors "github.com/haierkeys/page-notes-service/pkg/errors"
	"github.com/haierkeys/page-notes-service/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NoteHandler 页面笔记 API 路由处理器
// 使用 App Container 注入依赖，支持统一错误处理
type NoteHandler struct {
	*Handler
}

// NewNoteHandler 创建 NoteHandler 实例
func NewNoteHandler(a *app.App) *NoteHandler {
	return &NoteHandler{
		Handler: NewHandler(a),
	}
}

// ListForPage 获取当前页面的笔记
// @Summary 获取页面笔记
// @Description 返回当前用户在指定页面保存的笔记，按更新时间倒序
// @Tags 笔记
// @Security UserAuthToken
// @Produce json
// @Param pageUrl query string true "页面地址"
// @Success 200 {object} pkgapp.Res{data=[]dto.NoteDTO} "成功"
// @Router /api/notes [get]
func (h *NoteHandler) ListForPage(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	params := &dto.NoteListForPageRequest{}

	valid, errs := pkgapp.BindAndValid(c, params)
	if !valid {
		h.App.Logger().Warn("NoteHandler.ListForPage.BindAndValid err", zap.Error(errs))
		response.ToResponse(code.ErrorInvalidParams.WithDetails(errs.ErrorsToString()).WithData(errs.MapsToString()))
		return
	}

	uid := pkgapp.GetUID(c)
	ctx := c.Request.Context()

	notes, err := h.App.NoteService.ListForPage(ctx, uid, params)
	if err != nil {
		h.logError(ctx, "NoteHandler.ListForPage", err, zap.Int64(logger.FieldUID, uid))
		apperrors.ErrorResponse(c, err)
		return
	}

	response.ToResponse(code.Success.WithData(notes))
}

// ListAll 分页获取全部笔记
// @Summary 获取全部笔记
// @Description 返回当前用户跨页面的全部笔记，支持分页
// @Tags 笔记
// @Security UserAuthToken
// @Produce json
// @Param page query int false "页码"
// @Param pageSize query int false "每页数量"
// @Success 200 {object} pkgapp.Res{data=pkgapp.ListRes{list=[]dto.NoteDTO}} "成功"
// @Router /api/notes/all [get]
func (h *NoteHandler) ListAll(c *gin.Context) {
	response := pkgapp.NewResponse(c)

	uid := pkgapp.GetUID(c)
	ctx := c.Request.Context()

	pager := pkgapp.ParsePager(c, h.App.Config().GetPaginationConfig())

	notes, count, err := h.App.NoteService.ListAll(ctx, uid, pager)
	if err != nil {
		h.logError(ctx, "NoteHandler.ListAll", err, zap.Int64(logger.FieldUID, uid))
		apperrors.ErrorResponse(c, err)
		return
	}

	pager.TotalRows = count
	response.ToResponseList(code.Success, notes, *pager)
}

// Add 新增笔记
// @Summary 新增笔记
// @Description 为指定页面保存一条笔记，需要请求校验令牌
// @Tags 笔记
// @Security UserAuthToken
// @Accept json
// @Produce json
// @Param X-Request-Nonce header string true "请求校验令牌"
// @Param params body dto.NoteAddRequest true "笔记参数"
// @Success 200 {object} pkgapp.Res{data=dto.NoteDTO} "成功"
// @Router /api/note [post]
func (h *NoteHandler) Add(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	params := &dto.NoteAddRequest{}

	valid, errs := pkgapp.BindAndValid(c, params)
	if !valid {
		h.App.Logger().Warn("NoteHandler.Add.BindAndValid err", zap.Error(errs))
		response.ToResponse(code.ErrorInvalidParams.WithDetails(errs.ErrorsToString()).WithData(errs.MapsToString()))
		return
	}

	uid := pkgapp.GetUID(c)
	ctx := c.Request.Context()

	note, err := h.App.NoteService.Add(ctx, uid, params)
	if err != nil {
		h.logError(ctx, "NoteHandler.Add", err, zap.Int64(logger.FieldUID, uid))
		apperrors.ErrorResponse(c, err)
		return
	}

	response.ToResponse(code.SuccessCreate.WithData(note))
}

// Update 修改笔记
// @Summary 修改笔记内容
// @Description 替换笔记内容；传入 version 时校验版本，不一致返回冲突和最新笔记
// @Tags 笔记
// @Security UserAuthToken
// @Accept json
// @Produce json
// @Param X-Request-Nonce header string true "请求校验令牌"
// @Param params body dto.NoteUpdateRequest true "笔记参数"
// @Success 200 {object} pkgapp.Res{data=dto.NoteDTO} "成功"
// @Router /api/note [put]
func (h *NoteHandler) Update(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	params := &dto.NoteUpdateRequest{}

	valid, errs := pkgapp.BindAndValid(c, params)
	if !valid {
		h.App.Logger().Warn("NoteHandler.Update.BindAndValid err", zap.Error(errs))
		response.ToResponse(code.ErrorInvalidParams.WithDetails(errs.ErrorsToString()).WithData(errs.MapsToString()))
		return
	}

	uid := pkgapp.GetUID(c)
	ctx := c.Request.Context()

	note, err := h.App.NoteService.Update(ctx, uid, params)
	if err != nil {
		h.logError(ctx, "NoteHandler.Update", err,
			zap.Int64(logger.FieldUID, uid),
			zap.Int64(logger.FieldNoteID, params.ID))
		apperrors.ErrorResponse(c, err)
		return
	}

	response.ToResponse(code.SuccessUpdate.WithData(note))
}

// Delete 删除笔记
// @Summary 删除笔记
// @Tags 笔记
// @Security UserAuthToken
// @Produce json
// @Param X-Request-Nonce header string true "请求校验令牌"
// @Param id query int true "笔记 ID"
// @Success 200 {object} pkgapp.Res{data=int64} "成功"
// @Router /api/note [delete]
func (h *NoteHandler) Delete(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	params := &dto.NoteDeleteRequest{}

	valid, errs := pkgapp.BindAndValid(c, params)
	if !valid {
		h.App.Logger().Warn("NoteHandler.Delete.BindAndValid err", zap.Error(errs))
		response.ToResponse(code.ErrorInvalidParams.WithDetails(errs.ErrorsToString()).WithData(errs.MapsToString()))
		return
	}

	uid := pkgapp.GetUID(c)
	ctx := c.Request.Context()

	id, err := h.App.NoteService.Delete(ctx, uid, params)
	if err != nil {
		h.logError(ctx, "NoteHandler.Delete", err,
			zap.Int64(logger.FieldUID, uid),
			zap.Int64(logger.FieldNoteID, params.ID))
		apperrors.ErrorResponse(c, err)
		return
	}

	response.ToResponse(code.SuccessDelete.WithData(id))
}
