// Package app holds the HTTP-facing helpers shared by handlers and middleware.
// Package app 处理器与中间件共用的 HTTP 辅助：统一响应、令牌、分页、变更推送
package app

import (
	"strings"

	"github.com/haierkeys/page-notes-service/pkg/code"

	"github.com/gin-gonic/gin"
)

// VersionInfo 版本信息
type VersionInfo struct {
	Version   string `json:"version"`
	GitTag    string `json:"gitTag"`
	BuildTime string `json:"buildTime"`
}

// Pager 翻页信息
type Pager struct {
	Page      int `json:"page"`
	PageSize  int `json:"pageSize"`
	TotalRows int `json:"totalRows"`
}

// ListRes 分页列表
type ListRes struct {
	List  interface{} `json:"list"`
	Pager Pager       `json:"pager"`
}

// Res is the envelope every API answer is wrapped in.
// Details is the comma joined detail list of the code, present only when the code carries details.
// Res 统一响应结构
type Res struct {
	Code    int         `json:"code"`
	Status  bool        `json:"status"`
	Message interface{} `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

// Response 绑定到单个请求的响应写入器
type Response struct {
	Ctx *gin.Context
}

func NewResponse(ctx *gin.Context) *Response {
	return &Response{Ctx: ctx}
}

// GetRequestIP 客户端地址，IPv6 回环统一为 127.0.0.1
func GetRequestIP(c *gin.Context) string {
	ip := c.ClientIP()
	if ip == "::1" {
		return "127.0.0.1"
	}
	return ip
}

// envelope 按 code 填充公共字段
func envelope(codeObj *code.Code) Res {
	res := Res{
		Code:    codeObj.Code(),
		Status:  codeObj.Status(),
		Message: codeObj.Lang.GetMessage(),
	}
	if codeObj.HaveDetails() {
		res.Details = strings.Join(codeObj.Details(), ",")
	}
	return res
}

// ToResponse 输出 code 对应的响应，Data 取自 code
func (r *Response) ToResponse(codeObj *code.Code) {
	res := envelope(codeObj)
	res.Data = codeObj.Data()
	r.write(codeObj.StatusCode(), res)
}

// ToResponseList 输出分页列表，Data 为 ListRes
func (r *Response) ToResponseList(codeObj *code.Code, list interface{}, pager Pager) {
	res := envelope(codeObj)
	res.Data = ListRes{List: list, Pager: pager}
	r.write(codeObj.StatusCode(), res)
}

func (r *Response) write(status int, res Res) {
	r.Ctx.JSON(status, res)
}
