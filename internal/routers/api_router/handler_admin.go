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

// AdminHandler 管理接口处理器，仅配置的管理员可访问
type AdminHandler struct {
	*Handler
}

// NewAdminHandler 创建 AdminHandler 实例
func NewAdminHandler(a *app.App) *AdminHandler {
	return &AdminHandler{Handler: NewHandler(a)}
}

// Stats 全局统计
// @Summary 笔记统计
// @Tags 管理
// @Security UserAuthToken
// @Produce json
// @Success 200 {object} pkgapp.Res{data=dto.NoteStatsDTO} "成功"
// @Router /api/admin/stats [get]
func (h *AdminHandler) Stats(c *gin.Context) {
	ctx := c.Request.Context()

	stats, err := h.App.NoteService.Stats(ctx)
	if err != nil {
		h.logError(ctx, "AdminHandler.Stats", err)
		apperrors.ErrorResponse(c, err)
		return
	}

	pkgapp.NewResponse(c).ToResponse(code.Success.WithData(stats))
}

// SetNotesEnabled 运行时切换笔记功能，不写回配置文件
// @Summary 切换笔记功能
// @Tags 管理
// @Security UserAuthToken
// @Accept json
// @Produce json
// @Param params body dto.NotesSwitchRequest true "开关"
// @Success 200 {object} pkgapp.Res{data=bool} "成功"
// @Router /api/admin/notes-enabled [put]
func (h *AdminHandler) SetNotesEnabled(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	params := &dto.NotesSwitchRequest{}

	valid, errs := pkgapp.BindAndValid(c, params)
	if !valid {
		response.ToResponse(code.ErrorInvalidParams.WithDetails(errs.ErrorsToString()).WithData(errs.MapsToString()))
		return
	}

	h.App.NoteService.SetEnabled(*params.Enabled)
	h.App.Logger().Info("notes feature switched",
		zap.Bool("enabled", *params.Enabled),
		zap.Int64(logger.FieldUID, pkgapp.GetUID(c)))

	response.ToResponse(code.Success.WithData(*params.Enabled))
}
