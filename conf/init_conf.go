package conf

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"push-token-service/tool/logx"
)

var (
	Net  string = ""
	Port string = ""

	LogLevel string = ""

	// 为空时 HTTP 接口不校验签名
	APIAuthPublicKey string = ""

	// Expo Configuration
	ExpoProjectID   string = "" // 按优先级链解析，见 ResolveProjectID
	ExpoAppID       string = ""
	ExpoAccessToken string = ""
	ExpoTokenURL    string = ""
	ExpoTimeout     string = ""
	ExpoDevelopment bool   = false

	// Registry Configuration
	RegistryDriver  string = ""
	RegistryDSN     string = ""
	RdsMaxOpenConns int    = 0
	RdsMaxIgleConns int    = 0

	PebbleDBPath string = ""

	// Registration Pipeline Configuration
	RegistrationStartupDelay string = ""
	RegistrationMaxRetries   int    = 0
	RegistrationBaseDelay    string = ""

	// Notification Cache Configuration
	CacheMaxEntries    int    = 0
	CacheTTL           string = ""
	CacheSweepInterval string = ""

	// Error Announcer Configuration
	AnnounceCooldown    string = ""
	AnnounceHistorySize int    = 0

	ForegroundMinInterval string = ""

	// Socket Client Configuration
	SocketEnabled          bool   = false
	SocketServerURL        string = ""
	SocketExtraPushAuthKey string = ""
	SocketPath             string = ""
	SocketTimeout          int    = 0
)

func InitConfig(configPath string) {
	if configPath == "" {
		configPath = GetYaml()
	}
	// .env 中的变量优先于 yaml
	_ = godotenv.Load()

	fmt.Printf("configPath:%s\n", configPath)
	viper.SetConfigFile(configPath)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err != nil {
		panic(fmt.Errorf("Fatal error config file: %s \n", err))
	}

	Load(viper.GetViper())
}

// Load 从 viper 实例读取全部配置
func Load(v *viper.Viper) {
	Net = v.GetString("net")
	Port = v.GetString("port")

	LogLevel = v.GetString("log.level")
	APIAuthPublicKey = v.GetString("api.auth_public_key")

	ExpoProjectID = ResolveProjectID(v)
	ExpoAppID = v.GetString("expo.app_id")
	ExpoAccessToken = v.GetString("expo.access_token")
	ExpoTokenURL = v.GetString("expo.token_url")
	ExpoTimeout = v.GetString("expo.timeout")
	ExpoDevelopment = v.GetBool("expo.development")

	RegistryDriver = v.GetString("registry.driver")
	RegistryDSN = v.GetString("registry.dsn")
	RdsMaxOpenConns = v.GetInt("registry.max_open_conns")
	RdsMaxIgleConns = v.GetInt("registry.max_idle_conns")

	PebbleDBPath = v.GetString("pebble.db_path")

	RegistrationStartupDelay = v.GetString("registration.startup_delay")
	RegistrationMaxRetries = v.GetInt("registration.max_retries")
	RegistrationBaseDelay = v.GetString("registration.base_delay")

	CacheMaxEntries = v.GetInt("cache.max_entries")
	CacheTTL = v.GetString("cache.ttl")
	CacheSweepInterval = v.GetString("cache.sweep_interval")

	AnnounceCooldown = v.GetString("announce.cooldown")
	AnnounceHistorySize = v.GetInt("announce.history_size")

	ForegroundMinInterval = v.GetString("foreground.min_interval")

	SocketEnabled = v.GetBool("socket_client.enabled")
	SocketServerURL = v.GetString("socket_client.server_url")
	SocketExtraPushAuthKey = v.GetString("socket_client.extra_push_auth_key")
	SocketPath = v.GetString("socket_client.path")
	SocketTimeout = v.GetInt("socket_client.timeout")
}

// WatchConfig 监听配置文件变化，只热更新日志级别和项目ID，其余配置需要重启
func WatchConfig() {
	log := logx.With("conf")
	viper.OnConfigChange(func(e fsnotify.Event) {
		if e.Op&(fsnotify.Write|fsnotify.Create) == 0 {
			return
		}
		LogLevel = viper.GetString("log.level")
		logx.SetLevel(LogLevel)
		ExpoProjectID = ResolveProjectID(viper.GetViper())
		log.Info().Str("file", e.Name).Str("level", LogLevel).Msg("🔄 配置已重新加载")
	})
	viper.WatchConfig()
}
