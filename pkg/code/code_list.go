package code

// 成功
var (
	Success = NewSuss(1, lang{en: "Success", zh_cn: "成功"})

	SuccessCreate = NewSuss(2, lang{en: "Note saved", zh_cn: "笔记已保存"})
	SuccessUpdate = NewSuss(3, lang{en: "Note updated", zh_cn: "笔记已更新"})
	SuccessDelete = NewSuss(4, lang{en: "Note deleted", zh_cn: "笔记已删除"})
)

// 通用错误
var (
	Failed               = NewError(400, lang{en: "Failed", zh_cn: "失败"})
	ErrorServerInternal  = NewError(500, lang{en: "Internal server error", zh_cn: "服务器内部错误"})
	ErrorInvalidParams   = NewError(501, lang{en: "Invalid parameters", zh_cn: "参数错误"})
	ErrorNotFoundAPI     = NewError(502, lang{en: "API not found", zh_cn: "接口不存在"})
	ErrorTooManyRequests = NewError(503, lang{en: "Too many requests", zh_cn: "请求过多"})
	ErrorDBQuery         = NewError(504, lang{en: "Storage operation failed", zh_cn: "数据存储操作失败"})
)

// 鉴权
var (
	ErrorNotUserAuthToken     = NewError(505, lang{en: "Authentication token is required", zh_cn: "缺少认证 Token"})
	ErrorInvalidUserAuthToken = NewError(506, lang{en: "Authentication token is invalid", zh_cn: "认证 Token 无效"})
	ErrorInvalidRequestNonce  = NewError(507, lang{en: "Request validation token is missing or invalid", zh_cn: "请求校验令牌缺失或无效"})
	ErrorUserIsNotAdmin       = NewError(508, lang{en: "Administrator permission required", zh_cn: "需要管理员权限"})
	ErrorTokenGenerate        = NewError(509, lang{en: "Failed to issue token", zh_cn: "令牌签发失败"})
)

// 笔记
var (
	ErrorNoteNotFound        = NewError(601, lang{en: "Note not found", zh_cn: "笔记不存在"})
	ErrorNoteContentEmpty    = NewError(602, lang{en: "Note content cannot be empty", zh_cn: "笔记内容不能为空"})
	ErrorNoteContentTooLong  = NewError(603, lang{en: "Note content is too long", zh_cn: "笔记内容过长"})
	ErrorPageURLEmpty        = NewError(604, lang{en: "Page URL is required", zh_cn: "页面地址不能为空"})
	ErrorNoteVersionConflict = NewError(605, lang{en: "Note was changed elsewhere, reload before saving", zh_cn: "笔记已在其他位置修改，请刷新后再保存"})
	ErrorNotesDisabled       = NewError(606, lang{en: "Page notes are disabled", zh_cn: "页面笔记功能已关闭"})
)
