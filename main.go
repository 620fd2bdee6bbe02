package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"push-token-service/conf"
	"push-token-service/controller"
	"push-token-service/models"
	"push-token-service/service/announce_service"
	"push-token-service/service/cache_service"
	"push-token-service/service/expo_service"
	"push-token-service/service/pebble_service"
	"push-token-service/service/permission_service"
	pushcenter "push-token-service/service/push_center"
	"push-token-service/service/registration_service"
	"push-token-service/service/registry_service"
	"push-token-service/service/socket_client_service"
	"push-token-service/tool"
	"push-token-service/tool/logx"
)

// app 进程内的所有长生命周期组件
type app struct {
	pebble   *pebble_service.PebbleService
	registry registry_service.Registry
	center   *pushcenter.PushCenter
}

func initApp(ctx context.Context) (*app, error) {
	log := logx.With("main")
	log.Info().Msg("🚀 开始初始化推送令牌服务...")

	// 1. Pebble：权限拒绝标记，以及 pebble 驱动下的注册存储
	ps := pebble_service.NewPebbleService(&pebble_service.Config{
		DBPath: tool.StringWithDefault(conf.PebbleDBPath, "./data/push_token_pebble"),
	})
	if err := ps.Initialize(); err != nil {
		return nil, fmt.Errorf("初始化 Pebble 服务失败: %w", err)
	}

	// 2. 注册存储
	registry, err := registry_service.Open(ctx, &registry_service.Config{
		Driver:       conf.RegistryDriver,
		DSN:          conf.RegistryDSN,
		MaxOpenConns: conf.RdsMaxOpenConns,
		MaxIdleConns: conf.RdsMaxIgleConns,
	}, ps)
	if err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("打开注册存储失败: %w", err)
	}
	log.Info().Str("driver", tool.StringWithDefault(conf.RegistryDriver, "pebble")).Msg("✅ 注册存储已就绪")

	// 3. 用户提示
	announcer := announce_service.NewAnnouncer(&announce_service.Config{
		Cooldown:    tool.ParseDuration(conf.AnnounceCooldown, announce_service.DefaultCooldown),
		HistorySize: tool.IntWithDefault(conf.AnnounceHistorySize, announce_service.DefaultHistorySize),
	})
	surfaceLog := logx.With("announce")
	announcer.SetSurface(func(message string) {
		surfaceLog.Warn().Str("message", message).Msg("📣 用户提示")
	})

	// 4. 宿主桥接和 Expo 令牌签发
	bridge := expo_service.NewHostBridge(models.DeviceInfo{})
	expoConfig := &expo_service.Config{
		AccessToken: conf.ExpoAccessToken,
		TokenURL:    conf.ExpoTokenURL,
		Timeout:     tool.ParseDuration(conf.ExpoTimeout, expo_service.DefaultTimeout),
		AppID:       conf.ExpoAppID,
		Development: conf.ExpoDevelopment,
	}
	expoConfig.ApplyDefaults()
	if err := expoConfig.Validate(); err != nil {
		_ = registry.Close()
		_ = ps.Close()
		return nil, fmt.Errorf("Expo 配置无效: %w", err)
	}
	provider := expo_service.NewProvider(bridge, expo_service.NewClient(expoConfig), expoConfig)

	// 5. 权限守卫
	gate := permission_service.NewGate(provider, pebble_service.NewFlagStore(ps), announcer)

	// 6. 注册流程
	pipeline, err := registration_service.NewPipeline(registration_service.Deps{
		Gate:      gate,
		Tokens:    provider,
		Registry:  registry,
		Announcer: announcer,
		Device:    bridge,
		ProjectID: conf.CurrentProjectID,
	}, &registration_service.Config{
		StartupDelay: tool.ParseDuration(conf.RegistrationStartupDelay, registration_service.DefaultStartupDelay),
		MaxRetries:   tool.IntWithDefault(conf.RegistrationMaxRetries, registration_service.DefaultMaxRetries),
		BaseDelay:    tool.ParseDuration(conf.RegistrationBaseDelay, registration_service.DefaultBaseDelay),
	})
	if err != nil {
		_ = registry.Close()
		_ = ps.Close()
		return nil, err
	}

	// 7. 本地通知缓存
	cache, err := cache_service.NewCache(&cache_service.Config{
		MaxEntries:    tool.IntWithDefault(conf.CacheMaxEntries, cache_service.DefaultMaxEntries),
		TTL:           tool.ParseDuration(conf.CacheTTL, cache_service.DefaultTTL),
		SweepInterval: tool.ParseDuration(conf.CacheSweepInterval, cache_service.DefaultSweepInterval),
	})
	if err != nil {
		_ = registry.Close()
		_ = ps.Close()
		return nil, err
	}

	deps := pushcenter.Deps{
		Registrar: pipeline,
		Gate:      gate,
		Cache:     cache,
		Announcer: announcer,
		Native:    bridge,
	}

	// 8. 可选的 Socket.IO 推送监听，收到的通知写入缓存
	if conf.SocketEnabled {
		deps.Socket = socket_client_service.NewManager(&socket_client_service.Config{
			ServerURL:        conf.SocketServerURL,
			ExtraPushAuthKey: conf.SocketExtraPushAuthKey,
			Path:             tool.StringWithDefault(conf.SocketPath, "/socket.io/"),
			Timeout:          tool.IntWithDefault(conf.SocketTimeout, 10),
		}, cache)
		log.Info().Str("url", conf.SocketServerURL).Msg("🔗 已启用 Socket 推送监听")
	} else {
		log.Info().Msg("📴 Socket 推送监听未启用")
	}

	center, err := pushcenter.NewPushCenter(deps, &pushcenter.Config{
		ForegroundMinInterval: tool.ParseDuration(conf.ForegroundMinInterval, 0),
		StartupRegistration:   true,
	})
	if err != nil {
		_ = registry.Close()
		_ = ps.Close()
		return nil, err
	}

	return &app{pebble: ps, registry: registry, center: center}, nil
}

func (a *app) close() {
	log := logx.With("main")
	a.center.Stop()
	if err := a.registry.Close(); err != nil {
		log.Warn().Err(err).Msg("⚠️ 关闭注册存储时出现错误")
	}
	if err := a.pebble.Close(); err != nil {
		log.Warn().Err(err).Msg("⚠️ 关闭 Pebble 服务时出现错误")
	} else {
		log.Info().Msg("✅ Pebble 数据库服务已关闭")
	}
}

// Package main
// @title 推送令牌服务 API
// @version 1.0
// @description 推送令牌生命周期管理和本地通知缓存
// @BasePath /
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-Signature
func main() {
	var env string
	flag.StringVar(&env, "env", "mainnet", "env config: testnet, mainnet, local")
	flag.Parse()

	conf.SystemEnvironmentEnum = conf.ParseEnvironment(env)
	conf.InitConfig("")
	logx.Init(conf.LogLevel, os.Stdout)
	conf.WatchConfig()

	log := logx.With("main")
	log.Info().Str("env", env).Msg("run push-token-service")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := initApp(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("❌ 初始化失败")
	}
	if err := a.center.Run(ctx); err != nil {
		a.close()
		log.Fatal().Err(err).Msg("❌ 启动推送中心失败")
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf("0.0.0.0:%s", tool.StringWithDefault(conf.Port, "8090")),
		Handler:           controller.NewRouter(a.center, conf.APIAuthPublicKey),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("🌐 HTTP 服务已启动")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("❌ HTTP 服务异常退出")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("🛑 正在关闭...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("⚠️ HTTP 服务关闭超时")
	}
	a.close()
}
