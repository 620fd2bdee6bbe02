package models

// PermissionState 通知权限状态
type PermissionState string

const (
	PermissionUnknown         PermissionState = "unknown"
	PermissionGranted         PermissionState = "granted"
	PermissionDenied          PermissionState = "denied"           // 临时拒绝，可再次查询
	PermissionDeniedPersisted PermissionState = "denied_persisted" // 用户明确拒绝后持久化，不再弹窗
)

// IsGranted 是否已授权
func (s PermissionState) IsGranted() bool {
	return s == PermissionGranted
}

// ParsePermissionState 解析平台返回的权限字符串
func ParsePermissionState(s string) PermissionState {
	switch PermissionState(s) {
	case PermissionGranted, PermissionDenied, PermissionDeniedPersisted:
		return PermissionState(s)
	}
	// expo-notifications 的 "undetermined" 视为未知
	return PermissionUnknown
}

// 平台常量
const (
	PlatformIOS     = "ios"
	PlatformAndroid = "android"
	PlatformWeb     = "web"
)
