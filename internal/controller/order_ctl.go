package controller

import (
	"net/http"
	"strconv"

	"ebay_books_v1_202608/internal/api/dto"
	"ebay_books_v1_202608/internal/service"

	"github.com/gin-gonic/gin"
)

// OrderController 订单控制器
type OrderController struct {
	orderService *service.OrderService
}

// NewOrderController 创建订单控制器
func NewOrderController(s *service.OrderService) *OrderController {
	return &OrderController{orderService: s}
}

// List
// @Summary 订单列表
// @Tags Order (订单模块)
// @Produce json
// @Param sys_user_id query int true "系统用户 ID"
// @Param payment_status query string false "支付状态"
// @Param fulfillment_status query string false "发货状态"
// @Param keyword query string false "关键词 (订单号/买家/标题/SKU)"
// @Param page query int false "页码"
// @Param page_size query int false "每页条数"
// @Success 200 {object} dto.ListOrdersResponse
// @Router /api/v1/orders [get]
func (ctrl *OrderController) List(c *gin.Context) {
	var req dto.ListOrdersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数错误", "detail": err.Error()})
		return
	}
	if req.SysUserID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少 sys_user_id 参数"})
		return
	}

	resp, err := ctrl.orderService.ListOrders(c.Request.Context(), &req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询失败", "detail": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"code": 200, "data": resp})
}

// Detail
// @Summary 订单详情
// @Tags Order (订单模块)
// @Produce json
// @Param id path int true "订单 ID"
// @Param sys_user_id query int true "系统用户 ID"
// @Success 200 {object} dto.OrderDetailResponse
// @Failure 404 {object} map[string]string "订单不存在"
// @Router /api/v1/orders/{id} [get]
func (ctrl *OrderController) Detail(c *gin.Context) {
	sysUserID, ok := parseUserID(c)
	if !ok {
		return
	}
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}

	resp, err := ctrl.orderService.GetOrderDetail(c.Request.Context(), sysUserID, orderID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"code": 200, "data": resp})
}

// UpdateLocal
// @Summary 编辑订单本地字段
// @Description 只允许修改实际运费/备注/库存关联，远端字段由同步维护
// @Tags Order (订单模块)
// @Accept json
// @Produce json
// @Param id path int true "订单 ID"
// @Param sys_user_id query int true "系统用户 ID"
// @Param body body dto.UpdateOrderLocalRequest true "编辑内容"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/orders/{id} [put]
func (ctrl *OrderController) UpdateLocal(c *gin.Context) {
	sysUserID, ok := parseUserID(c)
	if !ok {
		return
	}
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}

	var req dto.UpdateOrderLocalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数错误", "detail": err.Error()})
		return
	}

	if err := ctrl.orderService.UpdateLocalFields(c.Request.Context(), sysUserID, orderID, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "更新失败", "detail": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"code": 200, "message": "更新成功"})
}

// Delete
// @Summary 删除订单
// @Description 软删除，后续同步不会让同一订单复活
// @Tags Order (订单模块)
// @Produce json
// @Param id path int true "订单 ID"
// @Param sys_user_id query int true "系统用户 ID"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/orders/{id} [delete]
func (ctrl *OrderController) Delete(c *gin.Context) {
	sysUserID, ok := parseUserID(c)
	if !ok {
		return
	}
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}

	if err := ctrl.orderService.DeleteOrder(c.Request.Context(), sysUserID, orderID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "删除失败", "detail": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"code": 200, "message": "删除成功"})
}

// ==================== 工具函数 ====================

func parseOrderID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的订单 ID"})
		return 0, false
	}
	return id, true
}
