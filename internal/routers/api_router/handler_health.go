package api_router

import (
	"time"

	"github.com/haierkeys/page-notes-service/internal/app"
	"github.com/haierkeys/page-notes-service/internal/dto"
	pkgapp "github.com/haierkeys/page-notes-service/pkg/app"
	"github.com/haierkeys/page-notes-service/pkg/code"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v4/mem"
	"go.uber.org/zap"
)

// HealthHandler 健康检查处理器
type HealthHandler struct {
	*Handler
}

// NewHealthHandler 创建健康检查处理器实例
func NewHealthHandler(a *app.App) *HealthHandler {
	return &HealthHandler{Handler: NewHandler(a)}
}

// Check 健康检查接口
// @Summary 健康检查
// @Description 检查服务健康状态，包括数据库连接和主机内存
// @Tags 系统
// @Produce json
// @Success 200 {object} pkgapp.Res{data=dto.HealthDTO}
// @Router /api/health [get]
func (h *HealthHandler) Check(c *gin.Context) {
	ctx := c.Request.Context()

	health := dto.HealthDTO{
		Status:        "healthy",
		Database:      "connected",
		NotesEnabled:  h.App.NoteService.Enabled(),
		UptimeSeconds: int64(time.Since(h.App.StartTime).Seconds()),
		Connections:   h.App.EventHub.Total(),
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		health.MemTotal = vm.Total
		health.MemUsed = vm.Used
		health.MemUsedPct = vm.UsedPercent
	} else {
		h.App.Logger().Debug("HealthHandler.Check mem err", zap.Error(err))
	}

	// 检查数据库连接
	sqlDB, err := h.App.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		h.logError(ctx, "HealthHandler.Check", err)
		health.Status = "unhealthy"
		health.Database = "error"
		pkgapp.NewResponse(c).ToResponse(code.Failed.WithData(health))
		return
	}

	pkgapp.NewResponse(c).ToResponse(code.Success.WithData(health))
}
