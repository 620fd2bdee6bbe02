package respond

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Envelope 接口统一返回格式
// @Description code 为 0 表示成功，elapsedMs 为服务端处理耗时
type Envelope struct {
	Code      int         `json:"code" example:"0"`
	Message   string      `json:"message" example:"success"`
	ElapsedMs int64       `json:"elapsedMs" example:"3"`
	Data      interface{} `json:"data"`
}

// Response swagger 注解里使用的名字
type Response = Envelope

// Success 构造成功响应，started 为请求开始处理的时间
func Success(data interface{}, started time.Time) Envelope {
	return Envelope{
		Code:      CodeSuccess,
		Message:   MessageSuccess,
		ElapsedMs: elapsed(started),
		Data:      data,
	}
}

// Failure 构造失败响应，code 为 0 时使用 CodeError
func Failure(err error, started time.Time, code int) Envelope {
	if code == 0 {
		code = CodeError
	}
	return Envelope{
		Code:      code,
		Message:   err.Error(),
		ElapsedMs: elapsed(started),
	}
}

// OK 以 200 写出成功响应
func OK(c *gin.Context, started time.Time, data interface{}) {
	c.JSONP(http.StatusOK, Success(data, started))
}

// Fail 以指定 HTTP 状态写出失败响应
func Fail(c *gin.Context, status int, started time.Time, err error) {
	c.JSONP(status, Failure(err, started, CodeError))
}

// Unauthorized 中断请求并返回 401，不计耗时
func Unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, Envelope{Code: CodeAuth, Message: msg})
}

func elapsed(started time.Time) int64 {
	if started.IsZero() {
		return 0
	}
	return time.Since(started).Milliseconds()
}
