package registration_service

import (
	"context"
	"errors"
	"net"
	"strings"

	"push-token-service/service/expo_service"
	"push-token-service/service/registry_service"
)

// ErrorKind 注册失败的分类
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindTransient
	KindPermission
	KindConfiguration
	KindConflict
	KindUnknown
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindTransient:
		return "transient"
	case KindPermission:
		return "permission"
	case KindConfiguration:
		return "configuration"
	case KindConflict:
		return "conflict"
	default:
		return "unknown"
	}
}

// Classify 按结构化信息分类错误：先看 TokenError 错误码，再看哨兵错误和网络错误，
// 最后才退回到错误文本匹配。文本匹配依赖上游措辞，是已知的薄弱环节
func Classify(err error) ErrorKind {
	if err == nil {
		return KindNone
	}

	if te, ok := expo_service.AsTokenError(err); ok {
		if kind := classifyCode(te.Code); kind != KindUnknown {
			return kind
		}
	}

	switch {
	case errors.Is(err, expo_service.ErrPermissionDenied):
		return KindPermission
	case errors.Is(err, expo_service.ErrMissingProjectID):
		return KindConfiguration
	case errors.Is(err, registry_service.ErrConflict):
		return KindConflict
	case errors.Is(err, registry_service.ErrUnavailable),
		errors.Is(err, context.DeadlineExceeded):
		return KindTransient
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindTransient
	}

	return classifyMessage(err.Error())
}

// ClassifyStore 只按存储层规则分类：唯一冲突、连接不可用，其余一律 unknown。
// 存储错误不走文本匹配，数据库的权限错误不能被当成用户拒绝通知
func ClassifyStore(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, registry_service.ErrConflict):
		return KindConflict
	case errors.Is(err, registry_service.ErrUnavailable),
		errors.Is(err, context.DeadlineExceeded):
		return KindTransient
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindTransient
	}
	return KindUnknown
}

func classifyCode(code string) ErrorKind {
	switch code {
	case expo_service.CodeNetworkError,
		expo_service.CodeTooManyRequests,
		expo_service.CodeInternalServerError,
		expo_service.CodeDeviceTokenUnavailable:
		return KindTransient
	case expo_service.CodePermissionDenied:
		return KindPermission
	case expo_service.CodeProjectNotFound,
		expo_service.CodeValidationError,
		expo_service.CodeUnauthorized:
		return KindConfiguration
	}
	return KindUnknown
}

var (
	transientWords  = []string{"network", "timeout", "timed out", "connection", "unavailable", "temporarily"}
	permissionWords = []string{"permission", "not granted", "denied"}
	configWords     = []string{"projectid", "project id", "experienceid"}
)

// classifyMessage 最后手段
func classifyMessage(msg string) ErrorKind {
	msg = strings.ToLower(msg)
	switch {
	case containsAny(msg, permissionWords):
		return KindPermission
	case containsAny(msg, configWords):
		return KindConfiguration
	case containsAny(msg, transientWords):
		return KindTransient
	}
	return KindUnknown
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
