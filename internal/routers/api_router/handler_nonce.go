package api_router

import (
	"github.com/haierkeys/page-notes-service/internal/app"
	"github.com/haierkeys/page-notes-service/internal/dto"
	pkgapp "github.com/haierkeys/page-notes-service/pkg/app"
	"github.com/haierkeys/page-notes-service/pkg/code"
	"github.com/haierkeys/page-notes-service/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NonceHandler 请求校验令牌处理器
type NonceHandler struct {
	*Handler
}

// NewNonceHandler 创建 NonceHandler 实例
func NewNonceHandler(a *app.App) *NonceHandler {
	return &NonceHandler{Handler: NewHandler(a)}
}

// Issue 签发请求校验令牌
// @Summary 获取请求校验令牌
// @Description 新增、修改、删除笔记时需在 X-Request-Nonce 头中携带
// @Tags 笔记
// @Security UserAuthToken
// @Produce json
// @Success 200 {object} pkgapp.Res{data=dto.NonceDTO} "成功"
// @Router /api/nonce [get]
func (h *NonceHandler) Issue(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	uid := pkgapp.GetUID(c)

	nonce, expiresAt, err := h.App.TokenManager.GenerateNonce(uid)
	if err != nil {
		h.logError(c.Request.Context(), "NonceHandler.Issue", err, zap.Int64(logger.FieldUID, uid))
		response.ToResponse(code.ErrorTokenGenerate)
		return
	}

	response.ToResponse(code.Success.WithData(dto.NonceDTO{
		Nonce:     nonce,
		ExpiresAt: expiresAt.UnixMilli(),
	}))
}
