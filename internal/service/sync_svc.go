package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ebay_books_v1_202608/internal/api/dto"
	"ebay_books_v1_202608/internal/model"
	"ebay_books_v1_202608/internal/repository"
	"ebay_books_v1_202608/pkg/ebay"

	"gorm.io/gorm"
)

// ==================== SyncService 订单对账 ====================

// SyncService 负责单个用户的订单对账：
// 拉取远端订单 → 逐单决定 新建/更新/跳过 → 合并字段 → 尝试自动关联库存
//
// 失败边界：
//   - 整体拉取失败直接向上抛，该用户本轮不落任何数据
//   - 单个订单映射/入库失败只计入结果的 Errors，批次继续
type SyncService struct {
	credRepo  repository.CredentialRepository
	orderRepo repository.OrderRepository
	invRepo   repository.InventoryRepository
	client    MarketplaceClient
	cipher    *TokenCipher
}

// NewSyncService 创建订单对账服务
func NewSyncService(
	credRepo repository.CredentialRepository,
	orderRepo repository.OrderRepository,
	invRepo repository.InventoryRepository,
	client MarketplaceClient,
	cipher *TokenCipher,
) *SyncService {
	return &SyncService{
		credRepo:  credRepo,
		orderRepo: orderRepo,
		invRepo:   invRepo,
		client:    client,
		cipher:    cipher,
	}
}

// reconcileOutcome 单个订单的处理结果
type reconcileOutcome struct {
	created bool
	updated bool
	skipped bool
	linked  bool
}

// ==================== 入口 ====================

// SyncOrders 同步单个用户的订单
func (s *SyncService) SyncOrders(ctx context.Context, req *dto.SyncOrdersRequest) (*dto.SyncOrdersResponse, error) {
	// 1. 凭证检查：未连接直接失败，不发任何网络请求
	cred, err := s.credRepo.GetBySysUserID(ctx, req.SysUserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotConnected
		}
		return nil, err
	}
	if !cred.IsConnected {
		return nil, ErrNotConnected
	}

	accessToken, err := s.cipher.Decrypt(cred.AccessTokenEnc)
	if err != nil {
		return nil, fmt.Errorf("access token 解密失败: %w", err)
	}

	// 2. 确定拉取窗口
	start, end := resolveWindow(req, time.Now())

	// 3. 整体拉取，失败即返回 —— 该用户本轮零提交
	remoteOrders, err := s.client.FetchOrders(ctx, accessToken, start, end)
	if err != nil {
		return nil, fmt.Errorf("拉取 eBay 订单失败: %w", err)
	}

	// 4. 逐单对账，单单隔离
	resp := &dto.SyncOrdersResponse{TotalFetched: len(remoteOrders)}
	now := time.Now()
	for i := range remoteOrders {
		ro := &remoteOrders[i]
		outcome, err := s.reconcileOne(ctx, cred.SysUserID, ro, now)
		if err != nil {
			resp.Errors = append(resp.Errors, fmt.Sprintf("订单 %s 同步失败: %v", ro.OrderID, err))
			continue
		}
		switch {
		case outcome.created:
			resp.Created++
		case outcome.updated:
			resp.Updated++
		case outcome.skipped:
			resp.Skipped++
		}
		if outcome.linked {
			resp.Linked++
		}
	}

	// 5. 本轮整体成功：打同步时间戳并清错
	if err := s.credRepo.RecordSyncSuccess(ctx, cred.SysUserID, now); err != nil {
		return resp, fmt.Errorf("回写同步状态失败: %w", err)
	}

	return resp, nil
}

// ==================== 单订单对账 ====================

// reconcileOne 处理一条远端订单
func (s *SyncService) reconcileOne(ctx context.Context, sysUserID int64, ro *ebay.RemoteOrder, now time.Time) (reconcileOutcome, error) {
	var out reconcileOutcome

	// a. 用户删过的订单不复活
	deleted, err := s.orderRepo.WasDeleted(ctx, sysUserID, ro.OrderID)
	if err != nil {
		return out, err
	}
	if deleted {
		out.skipped = true
		return out, nil
	}

	// b/c. 查现存行决定 新建 还是 更新
	existing, err := s.orderRepo.GetByEbayOrderID(ctx, sysUserID, ro.OrderID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return out, err
	}

	var orderID int64
	if existing == nil || errors.Is(err, gorm.ErrRecordNotFound) {
		order := buildOrder(sysUserID, ro, now)
		if err := s.orderRepo.Create(ctx, order); err != nil {
			return out, err
		}
		orderID = order.ID
		out.created = true
	} else {
		fields := remoteUpdateFields(ro, now)
		if err := s.orderRepo.UpdateRemoteFields(ctx, existing.ID, fields); err != nil {
			return out, err
		}
		orderID = existing.ID
		out.updated = true
		// 用户已手工关联的不再碰
		if existing.IsLinked() {
			return out, nil
		}
	}

	// d. 自动关联：有 SKU 且未关联时，在未售出库存中唯一匹配才写
	if ro.SKU != "" {
		linked, err := s.autoLink(ctx, sysUserID, orderID, ro.SKU)
		if err != nil {
			return out, err
		}
		out.linked = linked
	}

	return out, nil
}

// autoLink 按 SKU 自动关联库存，唯一命中才关联
func (s *SyncService) autoLink(ctx context.Context, sysUserID, orderID int64, sku string) (bool, error) {
	items, err := s.invRepo.FindUnsoldBySKU(ctx, sysUserID, sku)
	if err != nil {
		return false, err
	}
	if len(items) != 1 {
		return false, nil
	}
	return s.orderRepo.SetInventoryLink(ctx, orderID, items[0].ID)
}

// ==================== 映射 ====================

// buildOrder 首次见到的远端订单 → 新订单行
// 本地字段一律落默认值：实际运费 0、无备注、无库存关联
func buildOrder(sysUserID int64, ro *ebay.RemoteOrder, now time.Time) *model.EbayOrder {
	order := &model.EbayOrder{
		SysUserID:          sysUserID,
		EbayOrderID:        ro.OrderID,
		OrderDate:          ro.OrderDate,
		BuyerUsername:      ro.BuyerUsername,
		ItemTitle:          ro.ItemTitle,
		EbayItemID:         ro.EbayItemID,
		SKU:                ro.SKU,
		Quantity:           ro.Quantity,
		PaymentStatus:      ro.PaymentStatus,
		FulfillmentStatus:  ro.FulfillmentStatus,
		CancelState:        ro.CancelState,
		GrossAmount:        ro.Gross.Amount,
		ShippingPaidAmount: ro.ShippingPaid.Amount,
		Currency:           ro.Gross.Currency,
		LastSyncedAt:       &now,
	}
	if ro.FinalValueFee != nil {
		order.FinalValueFee = ro.FinalValueFee.Amount
	}
	if ro.ProcessingFee != nil {
		order.ProcessingFee = ro.ProcessingFee.Amount
	}
	if ro.OtherFees != nil {
		order.OtherFees = ro.OtherFees.Amount
	}
	return order
}

// remoteUpdateFields 更新路径只覆盖远端字段
// 费用为 nil 表示远端本次没给，按 "不变" 处理而不是清零
func remoteUpdateFields(ro *ebay.RemoteOrder, now time.Time) map[string]interface{} {
	fields := map[string]interface{}{
		"order_date":           ro.OrderDate,
		"buyer_username":       ro.BuyerUsername,
		"item_title":           ro.ItemTitle,
		"ebay_item_id":         ro.EbayItemID,
		"sku":                  ro.SKU,
		"quantity":             ro.Quantity,
		"payment_status":       ro.PaymentStatus,
		"fulfillment_status":   ro.FulfillmentStatus,
		"cancel_state":         ro.CancelState,
		"gross_amount":         ro.Gross.Amount,
		"shipping_paid_amount": ro.ShippingPaid.Amount,
		"currency":             ro.Gross.Currency,
		"last_synced_at":       now,
	}
	if ro.FinalValueFee != nil {
		fields["final_value_fee"] = ro.FinalValueFee.Amount
	}
	if ro.ProcessingFee != nil {
		fields["processing_fee"] = ro.ProcessingFee.Amount
	}
	if ro.OtherFees != nil {
		fields["other_fees"] = ro.OtherFees.Amount
	}
	return fields
}

// resolveWindow 确定拉取窗口
// 窗口策略属于调用方：默认最近 7 天，强制同步回看 90 天
func resolveWindow(req *dto.SyncOrdersRequest, now time.Time) (time.Time, time.Time) {
	end := now
	if t, err := parseFlexibleTime(req.MaxCreated); err == nil {
		end = t
	}

	if t, err := parseFlexibleTime(req.MinCreated); err == nil {
		return t, end
	}
	if req.ForceSync {
		return now.AddDate(0, 0, -90), end
	}
	return now.AddDate(0, 0, -7), end
}

func parseFlexibleTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("无法解析时间: %s", s)
}
