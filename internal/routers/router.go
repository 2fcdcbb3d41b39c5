package routers

import (
	"time"

	"github.com/haierkeys/page-notes-service/internal/app"
	"github.com/haierkeys/page-notes-service/internal/middleware"
	"github.com/haierkeys/page-notes-service/internal/routers/api_router"
	pkgapp "github.com/haierkeys/page-notes-service/pkg/app"
	"github.com/haierkeys/page-notes-service/pkg/limiter"

	"github.com/gin-gonic/gin"
	ut "github.com/go-playground/universal-translator"
	"github.com/prometheus/client_golang/prometheus"
)

// MetricsNamespace prometheus 指标命名空间
const MetricsNamespace = "page_notes"

var methodLimiters = limiter.NewMethodLimiter().AddBuckets(
	limiter.BucketRule{
		Key:          "GET /api/nonce",
		FillInterval: time.Second,
		Capacity:     20,
		Quantum:      20,
	},
	limiter.BucketRule{
		Key:          "GET /api/notes/events",
		FillInterval: time.Second,
		Capacity:     10,
		Quantum:      10,
	},
)

// NewRouter 创建公开路由
func NewRouter(appContainer *app.App, uni *ut.UniversalTranslator) *gin.Engine {

	// 获取配置
	cfg := appContainer.Config()
	lg := appContainer.Logger()

	r := gin.New()

	api := r.Group("/api")
	{
		api.Use(middleware.ServerHeader(app.Name, appContainer.Version().Version))
		api.Use(middleware.TraceMiddlewareWithConfig(cfg.Tracer.Enabled, cfg.Tracer.Header)) // Trace ID 中间件
		api.Use(middleware.RateLimiter(methodLimiters))
		api.Use(middleware.ContextTimeout(cfg.GetContextTimeout()))
		api.Use(middleware.Cors())
		api.Use(middleware.LangWithTranslator(uni))
		api.Use(middleware.Metrics(middleware.NewHTTPMetrics(MetricsNamespace, prometheus.DefaultRegisterer)))
		api.Use(middleware.AccessLogWithLogger(lg))
		api.Use(middleware.RecoveryWithLogger(lg))

		// 创建 Handlers（注入 App Container）
		healthHandler := api_router.NewHealthHandler(appContainer)
		versionHandler := api_router.NewVersionHandler(appContainer)
		nonceHandler := api_router.NewNonceHandler(appContainer)
		noteHandler := api_router.NewNoteHandler(appContainer)
		adminHandler := api_router.NewAdminHandler(appContainer)

		// 无需认证
		api.GET("/health", healthHandler.Check)
		api.GET("/version", versionHandler.ServerVersion)

		auth := middleware.UserAuthTokenWithConfig(cfg.Security.AuthTokenKey)
		enabled := middleware.NotesEnabled(appContainer.NoteService.Enabled)

		api.GET("/nonce", auth, nonceHandler.Issue)

		// 写请求：认证 -> 请求校验令牌 -> 每用户限流
		write := []gin.HandlerFunc{auth, enabled, middleware.RequestNonce(appContainer.TokenManager)}
		if cfg.App.WriteRateLimit > 0 {
			userLimiter := limiter.NewUserLimiter(limiter.BucketRule{
				FillInterval: time.Second,
				Capacity:     int64(cfg.App.WriteRateLimit),
				Quantum:      int64(cfg.App.WriteRateLimit),
			}, pkgapp.GetUID)
			write = append(write, middleware.RateLimiter(userLimiter))
		}

		api.GET("/notes", auth, enabled, noteHandler.ListForPage)
		api.GET("/notes/all", auth, enabled, noteHandler.ListAll)
		api.GET("/notes/events", auth, enabled, appContainer.EventHub.Handler())

		writes := api.Group("", write...)
		writes.POST("/note", noteHandler.Add)
		writes.PUT("/note", noteHandler.Update)
		writes.DELETE("/note", noteHandler.Delete)

		admin := api.Group("/admin", auth, middleware.AdminOnly(cfg.User.AdminUID))
		admin.GET("/stats", adminHandler.Stats)
		admin.PUT("/notes-enabled", adminHandler.SetNotesEnabled)
	}

	r.Use(middleware.Cors())
	r.NoRoute(middleware.NotFound())

	return r
}
