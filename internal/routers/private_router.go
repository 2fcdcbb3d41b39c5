package routers

import (
	"expvar"
	"net/http"
	"net/http/pprof"

	"github.com/haierkeys/page-notes-service/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// PprofPrefix pprof 路由前缀，仅 debug 模式注册
const PprofPrefix = "/debug/pprof"

// NewPrivateRouter serves operational endpoints on the private listener:
// prometheus metrics, expvar, and pprof when runMode is debug.
// NewPrivateRouter 创建内网路由
func NewPrivateRouter(runMode string, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RecoveryWithLogger(logger))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/debug/vars", gin.WrapH(expvar.Handler()))

	if runMode == gin.DebugMode {
		registerPprof(r.Group(PprofPrefix))
	}
	return r
}

func registerPprof(g *gin.RouterGroup) {
	handlers := map[string]http.HandlerFunc{
		"/":        pprof.Index,
		"/cmdline": pprof.Cmdline,
		"/profile": pprof.Profile,
		"/symbol":  pprof.Symbol,
		"/trace":   pprof.Trace,
	}
	for _, name := range []string{"allocs", "block", "goroutine", "heap", "mutex", "threadcreate"} {
		handlers["/"+name] = pprof.Handler(name).ServeHTTP
	}
	for path, h := range handlers {
		g.GET(path, gin.WrapF(h))
	}
	g.POST("/symbol", gin.WrapF(pprof.Symbol))
}
