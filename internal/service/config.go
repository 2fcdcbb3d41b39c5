// Package service implements the business logic layer
// Package service 实现业务逻辑层
package service

// ServiceConfig service layer configuration
// ServiceConfig 服务层配置
type ServiceConfig struct {
	User UserServiceConfig // User related config // 用户相关配置
	App  AppServiceConfig  // App related config // 应用相关配置
}

// UserServiceConfig user service configuration
// UserServiceConfig 用户服务配置
type UserServiceConfig struct {
	AdminUID int64 // Admin uid, 0 disables admin routes // 管理员 UID，0 表示禁用管理接口
}

// AppServiceConfig app service configuration
// AppServiceConfig 应用服务配置
type AppServiceConfig struct {
	NotesEnabled bool // Feature switch // 笔记功能开关
	ListLimit    int  // Max notes returned per page scope, default 50 // 单页面最多返回笔记数
}

// DefaultListLimit 单页面默认返回上限
const DefaultListLimit = 50
