package controller

import (
	"ebay_books_v1_202608/internal/task"

	"github.com/gin-gonic/gin"
)

// SyncController 同步控制器
type SyncController struct {
	taskManager *task.TaskManager
}

// NewSyncController 创建同步控制器
func NewSyncController(taskManager *task.TaskManager) *SyncController {
	return &SyncController{taskManager: taskManager}
}

// ==================== Handler 实现 ====================

// SyncOrders 同步单个用户订单
// @Summary 手动同步单个用户的 eBay 订单
// @Tags Sync
// @Param sys_user_id query int true "系统用户 ID"
// @Param force query bool false "是否强制同步 (回看 90 天)"
// @Success 200 {object} map[string]interface{}
// @Failure 429 {object} map[string]interface{} "限流中"
// @Router /api/v1/sync/orders [post]
func (c *SyncController) SyncOrders(ctx *gin.Context) {
	sysUserID, ok := parseUserID(ctx)
	if !ok {
		return
	}

	forceSync := ctx.Query("force") == "true"

	resp, err := c.taskManager.TriggerOrderSync(ctx.Request.Context(), sysUserID, forceSync)
	if err != nil {
		ctx.JSON(500, gin.H{"code": 500, "message": err.Error()})
		return
	}

	ctx.JSON(200, gin.H{
		"code":    200,
		"message": "订单同步完成",
		"data":    resp,
	})
}

// SyncAllOrders 同步所有用户订单
// @Summary 手动同步所有用户订单
// @Tags Sync
// @Success 200 {object} map[string]interface{}
// @Failure 429 {object} map[string]interface{} "限流中"
// @Router /api/v1/sync/orders/all [post]
func (c *SyncController) SyncAllOrders(ctx *gin.Context) {
	c.taskManager.TriggerAllOrdersSync()

	ctx.JSON(200, gin.H{
		"code":    200,
		"message": "所有用户订单同步任务已启动",
	})
}

// RefreshTokens 触发一轮 Token 检查
// @Summary 手动触发 Token 刷新检查
// @Tags Sync
// @Success 200 {object} map[string]interface{}
// @Failure 429 {object} map[string]interface{} "限流中"
// @Router /api/v1/sync/tokens [post]
func (c *SyncController) RefreshTokens(ctx *gin.Context) {
	c.taskManager.TriggerTokenRefresh()

	ctx.JSON(200, gin.H{
		"code":    200,
		"message": "Token 检查任务已启动",
	})
}

// TaskStatus 查询后台任务启用状态
// @Summary 查询后台任务状态
// @Tags Sync
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/sync/status [get]
func (c *SyncController) TaskStatus(ctx *gin.Context) {
	ctx.JSON(200, gin.H{
		"code": 200,
		"data": c.taskManager.Status(),
	})
}
