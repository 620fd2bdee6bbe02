package conf

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// 项目ID的环境变量来源，按优先级排列
var projectIDEnvKeys = []string{"EXPO_PROJECT_ID", "EAS_PROJECT_ID"}

// 项目ID的配置文件来源，按优先级排列
var projectIDConfigKeys = []string{"expo.project_id", "expo.extra.eas.project_id"}

// ResolveProjectID 按固定优先级解析 Expo 项目ID，第一个非空值生效，全部为空返回 ""
func ResolveProjectID(v *viper.Viper) string {
	for _, key := range projectIDEnvKeys {
		if val := strings.TrimSpace(os.Getenv(key)); val != "" {
			return val
		}
	}
	if v == nil {
		return ""
	}
	for _, key := range projectIDConfigKeys {
		if val := strings.TrimSpace(v.GetString(key)); val != "" {
			return val
		}
	}
	return ""
}

// CurrentProjectID 返回当前生效的项目ID，配置热更新后也能拿到新值
func CurrentProjectID() string {
	return ExpoProjectID
}
