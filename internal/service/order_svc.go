package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ebay_books_v1_202608/internal/api/dto"
	"ebay_books_v1_202608/internal/model"
	"ebay_books_v1_202608/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ==================== OrderService 订单查询与本地编辑 ====================

// OrderService 面向 UI 的订单读写
// 只允许编辑本地字段；远端字段的唯一写入方是 SyncService
type OrderService struct {
	orderRepo repository.OrderRepository
	invRepo   repository.InventoryRepository
}

// NewOrderService 创建订单服务
func NewOrderService(orderRepo repository.OrderRepository, invRepo repository.InventoryRepository) *OrderService {
	return &OrderService{
		orderRepo: orderRepo,
		invRepo:   invRepo,
	}
}

// ==================== 订单列表 ====================

// ListOrders 获取订单列表
func (s *OrderService) ListOrders(ctx context.Context, req *dto.ListOrdersRequest) (*dto.ListOrdersResponse, error) {
	filter := repository.OrderFilter{
		SysUserID:         req.SysUserID,
		PaymentStatus:     req.PaymentStatus,
		FulfillmentStatus: req.FulfillmentStatus,
		Keyword:           req.Keyword,
		Page:              req.Page,
		PageSize:          req.PageSize,
	}

	// 解析日期
	if req.StartDate != "" {
		if t, err := time.Parse("2006-01-02", req.StartDate); err == nil {
			filter.StartDate = &t
		}
	}
	if req.EndDate != "" {
		if t, err := time.Parse("2006-01-02", req.EndDate); err == nil {
			endOfDay := t.Add(24*time.Hour - time.Second)
			filter.EndDate = &endOfDay
		}
	}

	orders, total, err := s.orderRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("查询订单列表失败: %w", err)
	}

	list := make([]dto.OrderListItem, len(orders))
	for i := range orders {
		list[i] = buildOrderListItem(&orders[i])
	}

	return &dto.ListOrdersResponse{
		Total: total,
		List:  list,
	}, nil
}

// ==================== 订单详情 ====================

// GetOrderDetail 获取订单详情
// 已关联库存时顺带算利润
func (s *OrderService) GetOrderDetail(ctx context.Context, sysUserID, orderID int64) (*dto.OrderDetailResponse, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil || order.SysUserID != sysUserID {
		return nil, fmt.Errorf("订单不存在")
	}

	resp := &dto.OrderDetailResponse{
		OrderListItem:   buildOrderListItem(order),
		EbayItemID:      order.EbayItemID,
		CancelState:     order.CancelState,
		ShippingPaid:    centsToFloat(order.ShippingPaidAmount),
		ShippingActual:  centsToFloat(order.ShippingActualAmount),
		FinalValueFee:   centsToFloat(order.FinalValueFee),
		ProcessingFee:   centsToFloat(order.ProcessingFee),
		OtherFees:       centsToFloat(order.OtherFees),
		Notes:           order.Notes,
		InventoryItemID: order.InventoryItemID,
	}

	if order.IsLinked() {
		item, err := s.invRepo.GetByID(ctx, *order.InventoryItemID)
		if err == nil {
			profit := order.Profit(item.CostAmount).InexactFloat64()
			resp.Profit = &profit
		}
	}

	return resp, nil
}

// ==================== 本地字段编辑 ====================

// UpdateLocalFields 编辑本地字段（实际运费/备注/库存关联）
// 远端字段不在此入口，同步也不会反向覆盖这里写入的值
func (s *OrderService) UpdateLocalFields(ctx context.Context, sysUserID, orderID int64, req *dto.UpdateOrderLocalRequest) error {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil || order.SysUserID != sysUserID {
		return fmt.Errorf("订单不存在")
	}

	fields := map[string]interface{}{}
	if req.ShippingActual != nil {
		fields["shipping_actual_amount"] = decimal.NewFromFloat(*req.ShippingActual).Shift(2).IntPart()
	}
	if req.Notes != nil {
		fields["notes"] = *req.Notes
	}
	if req.InventoryItemID != nil {
		if *req.InventoryItemID == 0 {
			fields["inventory_item_id"] = gorm.Expr("NULL")
		} else {
			// 校验库存归属
			item, err := s.invRepo.GetByID(ctx, *req.InventoryItemID)
			if err != nil || item.SysUserID != sysUserID {
				return fmt.Errorf("库存记录不存在")
			}
			fields["inventory_item_id"] = *req.InventoryItemID
		}
	}

	if len(fields) == 0 {
		return errors.New("没有可更新的字段")
	}

	return s.orderRepo.UpdateLocalFields(ctx, orderID, fields)
}

// ==================== 删除 ====================

// DeleteOrder 软删除订单
// 物理行保留，后续同步再遇到同一 eBay 订单号时跳过，不会复活
func (s *OrderService) DeleteOrder(ctx context.Context, sysUserID, orderID int64) error {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil || order.SysUserID != sysUserID {
		return fmt.Errorf("订单不存在")
	}
	return s.orderRepo.SoftDelete(ctx, sysUserID, orderID)
}

// ==================== 辅助 ====================

func centsToFloat(amount int64) float64 {
	return decimal.New(amount, -2).InexactFloat64()
}

func buildOrderListItem(o *model.EbayOrder) dto.OrderListItem {
	return dto.OrderListItem{
		ID:                o.ID,
		EbayOrderID:       o.EbayOrderID,
		OrderDate:         o.OrderDate,
		BuyerUsername:     o.BuyerUsername,
		ItemTitle:         o.ItemTitle,
		SKU:               o.SKU,
		Quantity:          o.Quantity,
		PaymentStatus:     o.PaymentStatus,
		FulfillmentStatus: o.FulfillmentStatus,
		Gross:             centsToFloat(o.GrossAmount),
		TotalFees:         o.TotalFees().InexactFloat64(),
		NetPayout:         o.NetPayout().InexactFloat64(),
		Currency:          o.Currency,
		Linked:            o.IsLinked(),
		LastSyncedAt:      o.LastSyncedAt,
	}
}
