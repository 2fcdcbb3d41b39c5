package cmd

import (
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/haierkeys/page-notes-service/pkg/fileurl"
	"github.com/haierkeys/page-notes-service/pkg/util"

	"github.com/pkg/errors"
	"github.com/radovskyb/watcher"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// defaultConfigCandidates 未指定配置文件时依次查找
var defaultConfigCandidates = []string{
	"config/config-dev.yaml",
	"config.yaml",
	"config/config.yaml",
}

const defaultConfigPath = "config/config.yaml"

type runFlags struct {
	dir     string // 工作目录
	port    string // 监听端口，覆盖配置
	runMode string // 运行模式，覆盖配置
	config  string // 配置文件路径
}

// serverHolder 配置热加载时替换当前服务
type serverHolder struct {
	mu sync.Mutex
	s  *Server
}

func (h *serverHolder) get() *Server {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.s
}

func (h *serverHolder) set(s *Server) {
	h.mu.Lock()
	h.s = s
	h.mu.Unlock()
}

func init() {
	runEnv := new(runFlags)

	var runCommand = &cobra.Command{
		Use:   "run [-c config_file] [-d working_dir] [-p port]",
		Short: "Run service",
		Run: func(cmd *cobra.Command, args []string) {
			if len(runEnv.dir) > 0 {
				if err := os.Chdir(runEnv.dir); err != nil {
					bootstrapLogger.Error("failed to change the current working directory", zap.Error(err))
					return
				}
				bootstrapLogger.Info("working directory changed", zap.String("dir", runEnv.dir))
			}

			if len(runEnv.config) == 0 {
				path, err := findOrCreateConfig()
				if err != nil {
					bootstrapLogger.Error("config file auto create error", zap.Error(err))
					return
				}
				runEnv.config = path
			}

			s, err := NewServer(runEnv)
			if err != nil {
				bootstrapLogger.Error("api service start err", zap.Error(err))
				return
			}
			holder := &serverHolder{s: s}

			go watchConfig(runEnv, holder)

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit

			current := holder.get()
			current.logger.Info("Received shutdown signal, initiating graceful shutdown...")
			current.sc.SendCloseSignal(nil)
			if err := current.sc.WaitClosed(); err != nil {
				current.logger.Error("Shutdown completed with error", zap.Error(err))
			} else {
				current.logger.Info("Service has been shut down gracefully.")
			}
		},
	}

	rootCmd.AddCommand(runCommand)
	fs := runCommand.Flags()
	fs.StringVarP(&runEnv.dir, "dir", "d", "", "run dir")
	fs.StringVarP(&runEnv.port, "port", "p", "", "run port")
	fs.StringVarP(&runEnv.runMode, "mode", "m", "", "run mode")
	fs.StringVarP(&runEnv.config, "config", "c", "", "config file")
}

// findOrCreateConfig returns the first existing default config, writing the embedded one when none exists
// findOrCreateConfig 查找默认配置文件，不存在时写入内嵌配置并生成随机密钥
func findOrCreateConfig() (string, error) {
	for _, p := range defaultConfigCandidates {
		if fileurl.IsExist(p) {
			return p, nil
		}
	}

	bootstrapLogger.Warn("config file not found, creating default config")
	content := strings.Replace(configDefault, "page-notes-Auth-Token", util.GetRandomString(32), 1)

	if err := fileurl.CreatePath(defaultConfigPath, os.ModePerm); err != nil {
		return "", err
	}
	if err := os.WriteFile(defaultConfigPath, []byte(content), 0o644); err != nil {
		return "", errors.Wrap(err, "write default config")
	}
	bootstrapLogger.Info("config file auto create successfully", zap.String("path", defaultConfigPath))
	return defaultConfigPath, nil
}

// watchConfig rebuilds the server whenever the config file is written
// watchConfig 配置文件变更时重建服务
func watchConfig(runEnv *runFlags, holder *serverHolder) {
	w := watcher.New()
	// 每个周期最多一个事件，只关心写入
	w.SetMaxEvents(1)
	w.FilterOps(watcher.Write)

	go func() {
		for {
			select {
			case event := <-w.Event:
				old := holder.get()
				old.logger.Info("config watcher change", zap.String("event", event.Op.String()), zap.String("file", event.Path))
				old.sc.SendCloseSignal(nil)
				if err := old.sc.WaitClosed(); err != nil {
					old.logger.Warn("previous server closed with error", zap.Error(err))
				}

				s, err := NewServer(runEnv)
				if err != nil {
					bootstrapLogger.Error("service restart err", zap.Error(err))
					continue
				}
				holder.set(s)
			case err := <-w.Error:
				bootstrapLogger.Error("config watcher error", zap.Error(err))
			case <-w.Closed:
				bootstrapLogger.Info("config watcher closed")
				return
			}
		}
	}()

	if err := w.Add(runEnv.config); err != nil {
		bootstrapLogger.Error("config watcher file error", zap.Error(err))
		return
	}
	if err := w.Start(5 * time.Second); err != nil {
		bootstrapLogger.Error("config watcher start error", zap.Error(err))
	}
}
