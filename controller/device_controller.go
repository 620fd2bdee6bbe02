package controller

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"push-token-service/controller/request"
	"push-token-service/controller/respond"
	"push-token-service/models"
	"push-token-service/service/expo_service"
)

var errBadParams = errors.New("参数错误")

// Handler HTTP 接口
type Handler struct {
	center Center
}

// RegisterDevice godoc
// @Summary 注册设备推送令牌
// @Description 用户主动触发一次注册：检查权限、申请 Expo 令牌、写入存储并停用同设备的旧令牌
// @Tags Device API
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} respond.Response "成功响应，data.registered 表示是否写入成功"
// @Failure 401 {object} respond.Response "认证失败"
// @Router /v1/device/register [post]
func (h *Handler) RegisterDevice(c *gin.Context) {
	started := time.Now()

	ok := h.center.RegisterDevice(c.Request.Context())
	respond.OK(c, started, gin.H{"registered": ok})
}

// GetPermission godoc
// @Summary 查询通知权限
// @Tags Device API
// @Produce json
// @Success 200 {object} respond.Response "成功响应，data.permission 为当前权限"
// @Router /v1/device/permission [get]
func (h *Handler) GetPermission(c *gin.Context) {
	started := time.Now()

	state := h.center.CurrentPermission(c.Request.Context())
	respond.OK(c, started, gin.H{"permission": state})
}

// ReportNative godoc
// @Summary 宿主上报原生状态
// @Description 宿主应用上报通知权限、原生推送令牌和设备信息，未提供的字段保持不变
// @Tags Device API
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body request.ReportNativeReq true "请求参数"
// @Success 200 {object} respond.Response "成功响应"
// @Failure 400 {object} respond.Response "参数错误"
// @Router /v1/device/native [put]
func (h *Handler) ReportNative(c *gin.Context) {
	var (
		started      = time.Now()
		requestModel *request.ReportNativeReq
	)

	if err := c.ShouldBindJSON(&requestModel); err != nil || requestModel == nil {
		respond.Fail(c, http.StatusBadRequest, started, errBadParams)
		return
	}

	var permission models.PermissionState
	if requestModel.Permission != "" {
		permission = models.ParsePermissionState(requestModel.Permission)
	}
	var token *expo_service.DevicePushToken
	if requestModel.Token != nil {
		token = &expo_service.DevicePushToken{
			Type:     requestModel.Token.Type,
			Data:     requestModel.Token.Data,
			DeviceID: requestModel.Token.DeviceID,
		}
	}

	if err := h.center.ReportNative(permission, token, requestModel.Device); err != nil {
		respond.Fail(c, http.StatusOK, started, err)
		return
	}
	respond.OK(c, started, gin.H{"success": true})
}

// GetStatus godoc
// @Summary 查询运行状态
// @Description 返回权限、最近一次注册结果、缓存条数和 Socket 连接状态
// @Tags Device API
// @Produce json
// @Success 200 {object} respond.Response{data=pushcenter.Status} "成功响应"
// @Router /v1/device/status [get]
func (h *Handler) GetStatus(c *gin.Context) {
	started := time.Now()
	respond.OK(c, started, h.center.Status(c.Request.Context()))
}

// Foreground godoc
// @Summary 应用回到前台
// @Description 在后台重新注册，用户已拒绝权限或项目配置错误时跳过，频繁调用会被节流
// @Tags Lifecycle API
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} respond.Response "成功响应，data.scheduled 表示是否已安排注册"
// @Router /v1/lifecycle/foreground [post]
func (h *Handler) Foreground(c *gin.Context) {
	started := time.Now()

	scheduled := h.center.OnForeground(c.Request.Context())
	respond.OK(c, started, gin.H{"scheduled": scheduled})
}

// ListNotifications godoc
// @Summary 获取本地通知缓存
// @Description 返回未过期的通知，最新在前
// @Tags Notification API
// @Produce json
// @Success 200 {object} respond.Response{data=[]models.CachedNotification} "成功响应"
// @Router /v1/notifications [get]
func (h *Handler) ListNotifications(c *gin.Context) {
	started := time.Now()
	respond.OK(c, started, h.center.CacheSnapshot())
}

// RecordNotification godoc
// @Summary 写入本地通知缓存
// @Description id 已存在时不写入
// @Tags Notification API
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body request.RecordNotificationReq true "请求参数"
// @Success 200 {object} respond.Response "成功响应，data.recorded 表示是否写入"
// @Failure 400 {object} respond.Response "参数错误"
// @Router /v1/notifications [post]
func (h *Handler) RecordNotification(c *gin.Context) {
	var (
		started      = time.Now()
		requestModel *request.RecordNotificationReq
	)

	if c.ShouldBindJSON(&requestModel) != nil || requestModel == nil {
		respond.Fail(c, http.StatusBadRequest, started, errBadParams)
		return
	}

	n := models.CachedNotification{
		ID:       requestModel.ID,
		Title:    requestModel.Title,
		Body:     requestModel.Body,
		Category: requestModel.Category,
	}
	if requestModel.SentAt > 0 {
		n.SentAt = time.UnixMilli(requestModel.SentAt)
	}

	recorded := h.center.RecordNotification(n)
	respond.OK(c, started, gin.H{"recorded": recorded})
}

// Announce godoc
// @Summary 向用户提示错误
// @Description 冷却期内相同的消息只展示一次
// @Tags Error API
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body request.AnnounceReq true "请求参数"
// @Success 200 {object} respond.Response "成功响应，data.shown 表示是否展示"
// @Failure 400 {object} respond.Response "参数错误"
// @Router /v1/errors/announce [post]
func (h *Handler) Announce(c *gin.Context) {
	var (
		started      = time.Now()
		requestModel *request.AnnounceReq
	)

	if c.ShouldBindJSON(&requestModel) != nil || requestModel == nil {
		respond.Fail(c, http.StatusBadRequest, started, errBadParams)
		return
	}

	shown := h.center.Announce(requestModel.Message)
	respond.OK(c, started, gin.H{"shown": shown})
}

// RecentAnnouncements godoc
// @Summary 最近展示过的提示
// @Tags Error API
// @Produce json
// @Success 200 {object} respond.Response{data=[]announce_service.Announcement} "成功响应"
// @Router /v1/errors/recent [get]
func (h *Handler) RecentAnnouncements(c *gin.Context) {
	started := time.Now()
	respond.OK(c, started, h.center.RecentAnnouncements())
}
