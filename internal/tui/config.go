package tui

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/haierkeys/page-notes-service/pkg/util"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

// DefaultConfigFile 默认配置文件，相对用户主目录
const DefaultConfigFile = "~/.config/page-notes/panel.toml"

// Config panel client settings
// Config 面板客户端配置
type Config struct {
	Server    string `toml:"server"`
	Token     string `toml:"token"`
	Lang      string `toml:"lang"`
	PageURL   string `toml:"page-url"`
	PageTitle string `toml:"page-title"`
	NoticeTTL string `toml:"notice-ttl"`
	// Events 是否订阅变更推送
	Events bool `toml:"events"`
}

// DefaultConfig 默认配置
func DefaultConfig() Config {
	return Config{
		Server:    "http://127.0.0.1:9000",
		Lang:      "en",
		NoticeTTL: "3s",
		Events:    true,
	}
}

// NoticeDuration 通知显示时长
func (c Config) NoticeDuration() time.Duration {
	return util.ParseDurationOr(c.NoticeTTL, 3*time.Second)
}

// LoadConfig reads path over the defaults; a missing or empty file yields the defaults
// LoadConfig 读取 TOML 配置，文件不存在时返回默认值
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	path, err := ResolvePath(path)
	if err != nil {
		return cfg, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, errors.Wrap(err, "read panel config")
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return cfg, nil
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parse panel config %s", path)
	}
	return cfg, nil
}

// SaveConfig 写入配置文件
func SaveConfig(path string, cfg Config) error {
	path, err := ResolvePath(path)
	if err != nil {
		return err
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "encode panel config")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "create config dir")
	}
	return os.WriteFile(path, data, 0o600)
}

// ResolvePath 展开 ~/ 前缀
func ResolvePath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = DefaultConfigFile
	}
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", errors.Wrap(err, "resolve home dir")
		}
		path = filepath.Join(home, path[2:])
	}
	return path, nil
}
