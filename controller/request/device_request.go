package request

import "push-token-service/models"

// NativeTokenReq 宿主上报的原生推送令牌
type NativeTokenReq struct {
	Type     string `json:"type" binding:"required"` // ios / android
	Data     string `json:"data" binding:"required"` // APNs / FCM 令牌
	DeviceID string `json:"deviceId"`
}

// ReportNativeReq 宿主上报权限、原生令牌和设备信息，字段都可选
type ReportNativeReq struct {
	Permission string             `json:"permission"` // granted / denied / undetermined
	Token      *NativeTokenReq    `json:"token"`
	Device     *models.DeviceInfo `json:"device"`
}

// RecordNotificationReq 写入本地通知缓存
type RecordNotificationReq struct {
	ID       string `json:"id" binding:"required"`
	Title    string `json:"title"`
	Body     string `json:"body"`
	Category string `json:"category"`
	SentAt   int64  `json:"sentAt"` // 发送时间，毫秒时间戳，可选
}

// AnnounceReq 用户错误提示
type AnnounceReq struct {
	Message string `json:"message" binding:"required"`
}
