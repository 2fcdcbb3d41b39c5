package cmd

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	internalApp "github.com/haierkeys/page-notes-service/internal/app"
	"github.com/haierkeys/page-notes-service/internal/dao"
	"github.com/haierkeys/page-notes-service/internal/routers"
	"github.com/haierkeys/page-notes-service/internal/task"
	"github.com/haierkeys/page-notes-service/internal/upgrade"
	"github.com/haierkeys/page-notes-service/pkg/fileurl"
	"github.com/haierkeys/page-notes-service/pkg/logger"
	"github.com/haierkeys/page-notes-service/pkg/safe_close"
	"github.com/haierkeys/page-notes-service/pkg/tracer"
	"github.com/haierkeys/page-notes-service/pkg/validator"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	validatorV10 "github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// defaultSecretKeys 视为未修改的默认密钥
var defaultSecretKeys = []string{
	"page-notes-Auth-Token",
	"",
}

// httpShutdownTimeout HTTP 服务优雅关闭超时
const httpShutdownTimeout = 5 * time.Second

type Server struct {
	logger            *zap.Logger
	config            *internalApp.AppConfig
	db                *gorm.DB
	ut                *ut.UniversalTranslator
	httpServer        *http.Server
	privateHttpServer *http.Server
	sc                *safe_close.SafeClose
	app               *internalApp.App
	tracerCloser      io.Closer
}

// checkSecurityConfig 使用默认密钥时输出警告
func checkSecurityConfig(cfg *internalApp.AppConfig, lg *zap.Logger) {
	for _, key := range defaultSecretKeys {
		if cfg.Security.AuthTokenKey != key {
			continue
		}
		fmt.Println()
		fmt.Println(strings.Repeat("=", 60))
		fmt.Println("SECURITY WARNING: Using default secret key!")
		fmt.Println()
		fmt.Println("Set 'security.auth-token-key' in config.yaml to the key shared with the host platform.")
		fmt.Println("Generate a secure key with:")
		fmt.Println("  openssl rand -base64 32")
		fmt.Println(strings.Repeat("=", 60))
		fmt.Println()
		lg.Warn("Using default secret key - please change security.auth-token-key in config.yaml")
		return
	}
}

func NewServer(runEnv *runFlags) (*Server, error) {
	appConfig, configRealpath, err := internalApp.LoadConfig(runEnv.config)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if runEnv.runMode != "" {
		appConfig.Server.RunMode = runEnv.runMode
	}
	if runEnv.port != "" {
		port := runEnv.port
		if !strings.Contains(port, ":") {
			port = ":" + port
		}
		appConfig.Server.HttpPort = port
	}
	if appConfig.Server.RunMode != "" {
		gin.SetMode(appConfig.Server.RunMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		config: appConfig,
		sc:     safe_close.NewSafeClose(),
	}

	lg, err := logger.NewLogger(appConfig.GetLoggerConfig())
	if err != nil {
		return nil, fmt.Errorf("initLogger: %w", err)
	}
	s.logger = lg

	checkSecurityConfig(appConfig, s.logger)

	if err := fileurl.EnsureDirs(0o754, filepath.Dir(appConfig.Log.File), filepath.Dir(appConfig.Database.Path)); err != nil {
		return nil, fmt.Errorf("initStorage: %w", err)
	}

	if err := initTracer(s); err != nil {
		return nil, fmt.Errorf("initTracer: %w", err)
	}

	db, err := dao.NewDBEngineWithConfig(appConfig.GetDatabaseConfig(), s.logger)
	if err != nil {
		return nil, fmt.Errorf("initDatabase: %w", err)
	}
	s.db = db

	if err := upgrade.Execute(db, s.logger, internalApp.Version, appConfig.Database.AutoMigrate); err != nil {
		return nil, fmt.Errorf("upgrade.Execute: %w", err)
	}

	app, err := internalApp.NewApp(appConfig, s.logger, db)
	if err != nil {
		return nil, fmt.Errorf("failed to create app container: %w", err)
	}
	s.app = app

	uni, err := initValidator()
	if err != nil {
		return nil, fmt.Errorf("initValidator: %w", err)
	}
	s.ut = uni
	validator.RegisterCustom()

	initScheduler(s)

	s.logger.Warn(internalApp.Banner())
	s.logger.Warn("config loaded", zap.String("path", configRealpath))

	if addr := appConfig.Server.HttpPort; addr != "" {
		s.logger.Warn("api_router", zap.String("config.server.HttpPort", addr))
		s.httpServer = &http.Server{
			Addr:           addr,
			Handler:        routers.NewRouter(s.app, s.ut),
			ReadTimeout:    time.Duration(appConfig.Server.ReadTimeout) * time.Second,
			WriteTimeout:   time.Duration(appConfig.Server.WriteTimeout) * time.Second,
			MaxHeaderBytes: 1 << 20,
		}
		s.serve("api service", s.httpServer)
	}

	if addr := appConfig.Server.PrivateHttpListen; addr != "" {
		s.logger.Info("private_router", zap.String("config.server.PrivateHttpListen", addr))
		s.privateHttpServer = &http.Server{
			Addr:           addr,
			Handler:        routers.NewPrivateRouter(appConfig.Server.RunMode, s.logger),
			ReadTimeout:    time.Duration(appConfig.Server.ReadTimeout) * time.Second,
			WriteTimeout:   time.Duration(appConfig.Server.WriteTimeout) * time.Second,
			MaxHeaderBytes: 1 << 20,
		}
		s.serve("private api service", s.privateHttpServer)
	}

	// 应用容器最后关闭：推送连接、写队列、数据库
	s.sc.Attach(func(done func(), closeSignal <-chan struct{}) {
		defer done()
		<-closeSignal

		ctx, cancel := context.WithTimeout(context.Background(), internalApp.DefaultShutdownTimeout)
		defer cancel()
		if err := s.app.Shutdown(ctx); err != nil {
			s.logger.Error("failed to shutdown app container", zap.Error(err))
		} else {
			s.logger.Info("App container shutdown gracefully")
		}
		if s.tracerCloser != nil {
			_ = s.tracerCloser.Close()
		}
	})

	return s, nil
}

// serve 在 safe_close 下运行 HTTP 服务，出错时关闭整个服务
func (s *Server) serve(name string, srv *http.Server) {
	s.sc.Attach(func(done func(), closeSignal <-chan struct{}) {
		defer done()
		errChan := make(chan error, 1)
		go func() {
			errChan <- srv.ListenAndServe()
		}()
		select {
		case err := <-errChan:
			s.logger.Error(name+" err", zap.Error(err))
			s.sc.SendCloseSignal(err)
		case <-closeSignal:
			ctx, cancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				s.logger.Error(name+" shutdown error", zap.Error(err))
			}
		}
	})
}

func initTracer(s *Server) error {
	cfg := s.config.Tracer
	if !cfg.Enabled || cfg.JaegerAgent == "" {
		return nil
	}
	_, closer, err := tracer.NewJaegerTracer(cfg.ServiceName, cfg.JaegerAgent)
	if err != nil {
		return err
	}
	s.tracerCloser = closer
	s.logger.Info("jaeger tracer enabled", zap.String("agent", cfg.JaegerAgent))
	return nil
}

func initScheduler(s *Server) {
	manager := task.NewManager(s.logger, s.sc, s.app)
	if err := manager.RegisterTasks(); err != nil {
		s.logger.Error("failed to register tasks", zap.Error(err))
		return
	}
	manager.Start()
}

// initValidator 设置 gin 的校验器，字段名取 json tag，并注册中英文翻译
func initValidator() (*ut.UniversalTranslator, error) {
	binding.Validator = validator.NewCustomValidator()

	uni := ut.New(en.New(), en.New(), zh.New())

	validate, ok := binding.Validator.Engine().(*validatorV10.Validate)
	if !ok {
		return uni, nil
	}
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	zhTran, _ := uni.GetTranslator("zh")
	enTran, _ := uni.GetTranslator("en")
	if err := zh_translations.RegisterDefaultTranslations(validate, zhTran); err != nil {
		return nil, err
	}
	if err := en_translations.RegisterDefaultTranslations(validate, enTran); err != nil {
		return nil, err
	}
	return uni, nil
}

// GetApp 获取应用容器
func (s *Server) GetApp() *internalApp.App {
	return s.app
}
