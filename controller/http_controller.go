package controller

import (
	"context"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"push-token-service/controller/auth"
	_ "push-token-service/docs" // 导入生成的 swagger 文档
	"push-token-service/models"
	"push-token-service/service/announce_service"
	"push-token-service/service/expo_service"
	pushcenter "push-token-service/service/push_center"
	"push-token-service/tool/logx"
)

// Center HTTP 层依赖的推送中心能力
type Center interface {
	RegisterDevice(ctx context.Context) bool
	OnForeground(ctx context.Context) bool
	CurrentPermission(ctx context.Context) models.PermissionState
	CacheSnapshot() []models.CachedNotification
	RecordNotification(n models.CachedNotification) bool
	Announce(message string) bool
	RecentAnnouncements() []announce_service.Announcement
	ReportNative(permission models.PermissionState, token *expo_service.DevicePushToken, device *models.DeviceInfo) error
	Status(ctx context.Context) pushcenter.Status
}

// NewRouter 注册全部路由，authPublicKey 为空时写接口不校验签名
func NewRouter(center Center, authPublicKey string) *gin.Engine {
	h := &Handler{center: center}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(Cors())
	router.Use(Logger())

	// Swagger 文档路由
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	signed := auth.AuthSignMiddleware(authPublicKey)

	v1 := router.Group("/v1")
	{
		deviceGroup := v1.Group("/device")
		{
			deviceGroup.POST("/register", signed, h.RegisterDevice)
			deviceGroup.GET("/permission", h.GetPermission)
			deviceGroup.PUT("/native", signed, h.ReportNative)
			deviceGroup.GET("/status", h.GetStatus)
		}

		v1.POST("/lifecycle/foreground", signed, h.Foreground)

		notifyGroup := v1.Group("/notifications")
		{
			notifyGroup.GET("", h.ListNotifications)
			notifyGroup.POST("", signed, h.RecordNotification)
		}

		errGroup := v1.Group("/errors")
		{
			errGroup.POST("/announce", signed, h.Announce)
			errGroup.GET("/recent", h.RecentAnnouncements)
		}
	}

	return router
}

func Cors() gin.HandlerFunc {
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"POST", "GET", "OPTIONS", "PUT", "DELETE"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", auth.HeaderSignature, auth.HeaderPublicKey}
	return cors.New(corsConfig)
}

// Logger 请求日志
func Logger() gin.HandlerFunc {
	log := logx.With("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}
