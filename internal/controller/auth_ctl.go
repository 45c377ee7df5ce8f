package controller

import (
	"net/http"
	"strconv"

	"ebay_books_v1_202608/internal/service"

	"github.com/gin-gonic/gin"
)

type AuthController struct {
	authService *service.AuthService
}

func NewAuthController(s *service.AuthService) *AuthController {
	return &AuthController{authService: s}
}

// Login
// @Summary 获取 eBay 授权链接
// @Description 为用户生成 OAuth 授权跳转链接
// @Tags Auth (授权模块)
// @Accept json
// @Produce json
// @Param sys_user_id query int true "系统用户 ID"
// @Success 200 {object} map[string]interface{} "授权链接"
// @Failure 400 {string} string "错误信息"
// @Router /api/v1/ebay/login [get]
func (ctrl *AuthController) Login(c *gin.Context) {
	sysUserID, ok := parseUserID(c)
	if !ok {
		return
	}

	url, err := ctrl.authService.GenerateLoginURL(c.Request.Context(), sysUserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  "生成失败",
			"detail": err.Error(),
		})
		return
	}

	// 返回 JSON 给前端，由前端自行跳转
	c.JSON(http.StatusOK, gin.H{
		"message":  "获取成功",
		"auth_url": url,
	})
}

// Callback
// @Summary eBay 授权回调
// @Description 接收 eBay 返回的 code 和 state，换取 Token 并入库
// @Tags Auth (授权模块)
// @Accept json
// @Produce json
// @Param code query string true "授权码"
// @Param state query string true "安全校验码"
// @Success 200 {object} map[string]interface{} "授权成功信息"
// @Failure 400 {object} map[string]string "拒绝授权/参数错误"
// @Router /api/v1/ebay/callback [get]
func (ctrl *AuthController) Callback(c *gin.Context) {
	code := c.Query("code")
	state := c.Query("state")
	errParam := c.Query("error")

	if errParam != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "用户拒绝了授权", "ebay_msg": errParam})
		return
	}

	if code == "" || state == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少必要参数 code 或 state"})
		return
	}

	cred, err := ctrl.authService.HandleCallback(c.Request.Context(), code, state)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":  "授权失败",
			"detail": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":       "eBay 账号绑定成功",
		"ebay_username": cred.EbayUsername,
		"expire_at":     cred.AccessTokenExpiresAt,
	})
}

// Status
// @Summary 查询连接状态
// @Description 返回凭证的派生状态，永不返回 Token 本身
// @Tags Auth (授权模块)
// @Produce json
// @Param sys_user_id query int true "系统用户 ID"
// @Success 200 {object} dto.CredentialStatusResponse
// @Router /api/v1/ebay/status [get]
func (ctrl *AuthController) Status(c *gin.Context) {
	sysUserID, ok := parseUserID(c)
	if !ok {
		return
	}

	status, err := ctrl.authService.GetStatus(c.Request.Context(), sysUserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询失败", "detail": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"code": 200, "data": status})
}

// Disconnect
// @Summary 断开 eBay 连接
// @Description 清除 Token 并停用集成，历史订单数据保留
// @Tags Auth (授权模块)
// @Produce json
// @Param sys_user_id query int true "系统用户 ID"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/ebay/disconnect [post]
func (ctrl *AuthController) Disconnect(c *gin.Context) {
	sysUserID, ok := parseUserID(c)
	if !ok {
		return
	}

	if err := ctrl.authService.Disconnect(c.Request.Context(), sysUserID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "断开失败", "detail": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"code": 200, "message": "已断开 eBay 连接"})
}

// ==================== 工具函数 ====================

func parseUserID(c *gin.Context) (int64, bool) {
	idStr := c.Query("sys_user_id")
	if idStr == "" {
		idStr = c.Param("sys_user_id")
	}
	if idStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少 sys_user_id 参数"})
		return 0, false
	}

	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sys_user_id 必须是正整数"})
		return 0, false
	}
	return id, true
}
