package app

import "fmt"

// Name 服务名称
const Name = "Page Notes Service"

// Set at build time via -ldflags "-X github.com/haierkeys/page-notes-service/internal/app.Version=..."
var (
	Version   = "0.3.0"
	GitTag    = "2000.01.01.release"
	BuildTime = "2000-01-01T00:00:00+0800"
)

// Banner 单行版本描述，用于启动日志与 version 命令
func Banner() string {
	return fmt.Sprintf("%s v%s (git %s, built %s)", Name, Version, GitTag, BuildTime)
}
