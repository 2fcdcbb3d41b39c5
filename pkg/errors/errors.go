// Package errors turns service errors into the response envelope
package errors

import (
	"errors"

	"github.com/haierkeys/page-notes-service/pkg/app"
	"github.com/haierkeys/page-notes-service/pkg/code"

	"github.com/gin-gonic/gin"
)

// AppError 携带错误码的错误，Cause 为底层原因，不会出现在响应中
type AppError struct {
	Code  *code.Code
	Cause error
}

// Wrap 用错误码包装底层错误
func Wrap(c *code.Code, cause error) *AppError {
	return &AppError{Code: c, Cause: cause}
}

func (e *AppError) Error() string {
	if e.Cause == nil {
		return e.Code.Error()
	}
	return e.Code.Error() + ": " + e.Cause.Error()
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Resolve finds the first *code.Code in err's chain.
// Errors that carry no code become ErrorServerInternal so internals never reach the client.
// Resolve 取出错误链中的错误码
func Resolve(err error) *code.Code {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Code != nil {
		return appErr.Code
	}
	var codeErr *code.Code
	if errors.As(err, &codeErr) {
		return codeErr
	}
	return code.ErrorServerInternal
}

// ErrorResponse 以统一响应结构输出错误，HTTP 状态由错误码决定
func ErrorResponse(c *gin.Context, err error) {
	app.NewResponse(c).ToResponse(Resolve(err))
}

// IsCode 判断错误链中的错误码是否为 target
func IsCode(err error, target *code.Code) bool {
	if err == nil {
		return false
	}
	return Resolve(err).Code() == target.Code()
}
