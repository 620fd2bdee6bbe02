package models

import "strings"

const (
	identitySeparator = "|"
	unknownPart       = "unknown"
)

// DeriveDeviceIdentity 由平台、型号、系统版本组合出稳定的设备身份。
// 相同的物理配置总是得到相同的字符串；两台型号和系统完全一致的设备会得到同一个身份。
func DeriveDeviceIdentity(platform, model, osVersion string) string {
	return strings.Join([]string{
		normalizeIdentityPart(platform),
		normalizeIdentityPart(model),
		normalizeIdentityPart(osVersion),
	}, identitySeparator)
}

// IsReportedIdentity 平台、型号、系统版本全部缺失的身份不能区分设备
func IsReportedIdentity(identity string) bool {
	return identity != "" && identity != DeriveDeviceIdentity("", "", "")
}

// normalizeIdentityPart 折叠空白
func normalizeIdentityPart(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return unknownPart
	}
	return s
}
