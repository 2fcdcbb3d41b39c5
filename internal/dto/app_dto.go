// Package dto Defines data transfer objects (request parameters and response structs)
// Package dto 定义数据传输对象（请求参数和响应结构体）
package dto

// VersionDTO version information for API response
// VersionDTO 版本信息 API 响应对象
type VersionDTO struct {
	Name      string `json:"name"`      // Service name // 服务名称
	Version   string `json:"version"`   // Current version // 当前版本
	GitTag    string `json:"gitTag"`    // Git tag // Git 标签
	BuildTime string `json:"buildTime"` // Build time // 构建时间
	GoVersion string `json:"goVersion"`
}

// HealthDTO health check response
// HealthDTO 健康检查响应
type HealthDTO struct {
	Status        string  `json:"status"`
	Database      string  `json:"database"`
	NotesEnabled  bool    `json:"notesEnabled"`
	UptimeSeconds int64   `json:"uptimeSeconds"`
	MemTotal      uint64  `json:"memTotal,omitempty"`
	MemUsed       uint64  `json:"memUsed,omitempty"`
	MemUsedPct    float64 `json:"memUsedPercent,omitempty"`
	Connections   int     `json:"connections"`
}

// NonceDTO request nonce response
// NonceDTO 请求校验令牌
type NonceDTO struct {
	Nonce     string `json:"nonce"`
	ExpiresAt int64  `json:"expiresAt"` // unix milliseconds
}

// NotesSwitchRequest toggles the notes feature at runtime
// NotesSwitchRequest 运行时切换笔记功能
type NotesSwitchRequest struct {
	Enabled *bool `json:"enabled" form:"enabled" binding:"required"`
}
