package tool

import (
	"time"
)

// ParseDuration 解析时间间隔字符串，失败时使用默认值
func ParseDuration(durationStr string, defaultDuration time.Duration) time.Duration {
	if durationStr == "" {
		return defaultDuration
	}
	duration, err := time.ParseDuration(durationStr)
	if err != nil || duration < 0 {
		return defaultDuration
	}
	return duration
}

// StringWithDefault 获取字符串配置值，提供默认值
func StringWithDefault(value, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}

// IntWithDefault 获取整数配置值，提供默认值
func IntWithDefault(value, defaultValue int) int {
	if value == 0 {
		return defaultValue
	}
	return value
}
