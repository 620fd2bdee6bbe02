package expo_service

import "strings"

// ValidateToken validates if a token looks like a valid Expo push token
func ValidateToken(token string) bool {
	if len(token) <= 20 || !strings.HasSuffix(token, "]") {
		return false
	}
	// Expo push tokens start with "ExponentPushToken[" or "ExpoPushToken["
	return strings.HasPrefix(token, "ExponentPushToken[") || strings.HasPrefix(token, "ExpoPushToken[")
}
