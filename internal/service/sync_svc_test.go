package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"ebay_books_v1_202608/internal/api/dto"
	"ebay_books_v1_202608/internal/model"
	"ebay_books_v1_202608/internal/repository"
	"ebay_books_v1_202608/pkg/ebay"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ==================== 假客户端 ====================

// fakeClient 可编程的市场平台客户端
type fakeClient struct {
	orders     []ebay.RemoteOrder
	fetchErr   error
	fetchCalls int

	refreshResp *ebay.TokenResp
	refreshErr  error
}

func (f *fakeClient) BuildAuthorizationURL(state string) string { return "https://fake/auth?" + state }

func (f *fakeClient) ExchangeCode(ctx context.Context, code string) (*ebay.TokenResp, error) {
	return &ebay.TokenResp{AccessToken: "acc", RefreshToken: "ref", ExpiresIn: 7200, RefreshTokenExpiresIn: 47304000}, nil
}

func (f *fakeClient) RefreshToken(ctx context.Context, refreshToken string) (*ebay.TokenResp, error) {
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	if f.refreshResp != nil {
		return f.refreshResp, nil
	}
	return &ebay.TokenResp{AccessToken: "refreshed", ExpiresIn: 7200}, nil
}

func (f *fakeClient) FetchOrders(ctx context.Context, accessToken string, start, end time.Time) ([]ebay.RemoteOrder, error) {
	f.fetchCalls++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.orders, nil
}

func (f *fakeClient) GetUserIdentity(ctx context.Context, accessToken string) (*ebay.UserResp, error) {
	return &ebay.UserResp{UserID: "u-1", Username: "seller_x"}, nil
}

func (f *fakeClient) ValidateToken(ctx context.Context, accessToken string) bool { return true }

var _ MarketplaceClient = (*fakeClient)(nil)

// ==================== 测试装配 ====================

type syncTestEnv struct {
	db       *gorm.DB
	credRepo repository.CredentialRepository
	orders   repository.OrderRepository
	inv      repository.InventoryRepository
	client   *fakeClient
	cipher   *TokenCipher
	svc      *SyncService
}

func setupSyncTest(t *testing.T) *syncTestEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("连接测试数据库失败: %v", err)
	}
	if err := db.AutoMigrate(&model.EbayCredential{}, &model.EbayOrder{}, &model.InventoryItem{}); err != nil {
		t.Fatalf("建表失败: %v", err)
	}

	cipher, _ := NewTokenCipher("sync-test-key")
	client := &fakeClient{}

	env := &syncTestEnv{
		db:       db,
		credRepo: repository.NewCredentialRepository(db),
		orders:   repository.NewOrderRepository(db),
		inv:      repository.NewInventoryRepository(db),
		client:   client,
		cipher:   cipher,
	}
	env.svc = NewSyncService(env.credRepo, env.orders, env.inv, client, cipher)
	return env
}

// seedCredential 预置一条已连接凭证
func (e *syncTestEnv) seedCredential(t *testing.T, sysUserID int64) {
	t.Helper()
	accEnc, _ := e.cipher.Encrypt("valid-access-token")
	refEnc, _ := e.cipher.Encrypt("valid-refresh-token")
	cred := &model.EbayCredential{
		SysUserID:             sysUserID,
		AccessTokenEnc:        accEnc,
		RefreshTokenEnc:       refEnc,
		AccessTokenExpiresAt:  time.Now().Add(time.Hour),
		RefreshTokenExpiresAt: time.Now().Add(30 * 24 * time.Hour),
		IsConnected:           true,
	}
	if err := e.credRepo.Create(context.Background(), cred); err != nil {
		t.Fatalf("预置凭证失败: %v", err)
	}
}

func money(amount int64) ebay.RemoteMoney {
	return ebay.RemoteMoney{Amount: amount, Currency: "USD"}
}

func remoteOrder(orderID, sku string, gross int64) ebay.RemoteOrder {
	date := time.Date(2026, 7, 20, 10, 0, 0, 0, time.UTC)
	return ebay.RemoteOrder{
		OrderID:           orderID,
		OrderDate:         &date,
		BuyerUsername:     "buyer1",
		ItemTitle:         "Rare Book",
		SKU:               sku,
		Quantity:          1,
		PaymentStatus:     model.EbayPaymentPaid,
		FulfillmentStatus: model.EbayFulfillmentNotStarted,
		Gross:             money(gross),
		ShippingPaid:      money(0),
	}
}

// ==================== 入口与失败边界 ====================

func TestSyncOrders_NotConnected(t *testing.T) {
	env := setupSyncTest(t)
	// 不预置凭证

	_, err := env.svc.SyncOrders(context.Background(), &dto.SyncOrdersRequest{SysUserID: 1})
	if !errors.Is(err, ErrNotConnected) {
		t.Fatalf("未连接应返回 ErrNotConnected, got %v", err)
	}
	if env.client.fetchCalls != 0 {
		t.Error("未连接时不应发起任何网络请求")
	}
}

func TestSyncOrders_FetchFailureNoPartialCommit(t *testing.T) {
	env := setupSyncTest(t)
	env.seedCredential(t, 1)
	env.client.fetchErr = errors.New("network down")

	_, err := env.svc.SyncOrders(context.Background(), &dto.SyncOrdersRequest{SysUserID: 1})
	if err == nil {
		t.Fatal("拉取失败应向上抛")
	}

	var count int64
	env.db.Model(&model.EbayOrder{}).Count(&count)
	if count != 0 {
		t.Errorf("拉取失败不应落任何订单, got %d", count)
	}
}

// ==================== 幂等对账 ====================

func TestSyncOrders_CreateThenUpdate(t *testing.T) {
	env := setupSyncTest(t)
	env.seedCredential(t, 1)
	env.client.orders = []ebay.RemoteOrder{remoteOrder("ORD-1", "", 5000)}

	// 第一轮：新建
	resp, err := env.svc.SyncOrders(context.Background(), &dto.SyncOrdersRequest{SysUserID: 1})
	if err != nil {
		t.Fatalf("首轮同步失败: %v", err)
	}
	if resp.Created != 1 || resp.Updated != 0 {
		t.Errorf("首轮: created=%d updated=%d, want 1/0", resp.Created, resp.Updated)
	}

	// 第二轮：同一订单状态变化 → 更新，不产生重复行
	env.client.orders[0].FulfillmentStatus = model.EbayFulfillmentFulfilled
	resp, err = env.svc.SyncOrders(context.Background(), &dto.SyncOrdersRequest{SysUserID: 1})
	if err != nil {
		t.Fatalf("次轮同步失败: %v", err)
	}
	if resp.Created != 0 || resp.Updated != 1 {
		t.Errorf("次轮: created=%d updated=%d, want 0/1", resp.Created, resp.Updated)
	}

	var count int64
	env.db.Model(&model.EbayOrder{}).Count(&count)
	if count != 1 {
		t.Errorf("订单行数 = %d, want 1", count)
	}

	order, _ := env.orders.GetByEbayOrderID(context.Background(), 1, "ORD-1")
	if order.FulfillmentStatus != model.EbayFulfillmentFulfilled {
		t.Errorf("远端状态未被覆盖: %s", order.FulfillmentStatus)
	}
	if order.LastSyncedAt == nil {
		t.Error("last_synced_at 未打点")
	}
}

func TestSyncOrders_NoResurrection(t *testing.T) {
	env := setupSyncTest(t)
	env.seedCredential(t, 1)
	env.client.orders = []ebay.RemoteOrder{remoteOrder("ORD-DEL", "", 5000)}

	if _, err := env.svc.SyncOrders(context.Background(), &dto.SyncOrdersRequest{SysUserID: 1}); err != nil {
		t.Fatalf("首轮同步失败: %v", err)
	}

	order, _ := env.orders.GetByEbayOrderID(context.Background(), 1, "ORD-DEL")
	if err := env.orders.SoftDelete(context.Background(), 1, order.ID); err != nil {
		t.Fatalf("软删除失败: %v", err)
	}

	// 再次同步同一订单 → 跳过，不复活
	resp, err := env.svc.SyncOrders(context.Background(), &dto.SyncOrdersRequest{SysUserID: 1})
	if err != nil {
		t.Fatalf("次轮同步失败: %v", err)
	}
	if resp.Skipped != 1 || resp.Created != 0 {
		t.Errorf("skipped=%d created=%d, want 1/0", resp.Skipped, resp.Created)
	}

	if _, err := env.orders.GetByEbayOrderID(context.Background(), 1, "ORD-DEL"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Error("已删订单不应复活")
	}
}

// ==================== 字段所有权 ====================

func TestSyncOrders_LocalFieldsPreserved(t *testing.T) {
	env := setupSyncTest(t)
	env.seedCredential(t, 1)
	env.client.orders = []ebay.RemoteOrder{remoteOrder("ORD-2", "", 5000)}

	if _, err := env.svc.SyncOrders(context.Background(), &dto.SyncOrdersRequest{SysUserID: 1}); err != nil {
		t.Fatalf("首轮同步失败: %v", err)
	}

	// 用户编辑本地字段
	order, _ := env.orders.GetByEbayOrderID(context.Background(), 1, "ORD-2")
	err := env.orders.UpdateLocalFields(context.Background(), order.ID, map[string]interface{}{
		"notes":                  "买家要求加急",
		"shipping_actual_amount": int64(420),
	})
	if err != nil {
		t.Fatalf("本地编辑失败: %v", err)
	}

	// 远端更新 → 本地字段不被覆盖
	env.client.orders[0].PaymentStatus = model.EbayPaymentPaid
	env.client.orders[0].Gross = money(5500)
	if _, err := env.svc.SyncOrders(context.Background(), &dto.SyncOrdersRequest{SysUserID: 1}); err != nil {
		t.Fatalf("次轮同步失败: %v", err)
	}

	order, _ = env.orders.GetByEbayOrderID(context.Background(), 1, "ORD-2")
	if order.Notes != "买家要求加急" {
		t.Errorf("备注被同步覆盖: %q", order.Notes)
	}
	if order.ShippingActualAmount != 420 {
		t.Errorf("实际运费被同步覆盖: %d", order.ShippingActualAmount)
	}
	if order.GrossAmount != 5500 {
		t.Errorf("远端金额未更新: %d", order.GrossAmount)
	}
}

func TestSyncOrders_NilFeeMeansUnchanged(t *testing.T) {
	env := setupSyncTest(t)
	env.seedCredential(t, 1)

	withFee := remoteOrder("ORD-3", "", 5000)
	fee := money(500)
	withFee.FinalValueFee = &fee
	env.client.orders = []ebay.RemoteOrder{withFee}

	if _, err := env.svc.SyncOrders(context.Background(), &dto.SyncOrdersRequest{SysUserID: 1}); err != nil {
		t.Fatalf("首轮同步失败: %v", err)
	}

	// 次轮远端没给费用 (nil) → 保持原值，不清零
	env.client.orders[0].FinalValueFee = nil
	if _, err := env.svc.SyncOrders(context.Background(), &dto.SyncOrdersRequest{SysUserID: 1}); err != nil {
		t.Fatalf("次轮同步失败: %v", err)
	}

	order, _ := env.orders.GetByEbayOrderID(context.Background(), 1, "ORD-3")
	if order.FinalValueFee != 500 {
		t.Errorf("nil 费用应保持不变, got %d", order.FinalValueFee)
	}

	// 远端明确给 0 → 覆盖为 0
	zero := money(0)
	env.client.orders[0].FinalValueFee = &zero
	if _, err := env.svc.SyncOrders(context.Background(), &dto.SyncOrdersRequest{SysUserID: 1}); err != nil {
		t.Fatalf("第三轮同步失败: %v", err)
	}
	order, _ = env.orders.GetByEbayOrderID(context.Background(), 1, "ORD-3")
	if order.FinalValueFee != 0 {
		t.Errorf("显式 0 费用应覆盖, got %d", order.FinalValueFee)
	}
}

// ==================== 自动关联 ====================

func TestSyncOrders_AutoLinkUniqueSKU(t *testing.T) {
	env := setupSyncTest(t)
	env.seedCredential(t, 1)

	item := &model.InventoryItem{SysUserID: 1, SKU: "SKU1", Title: "Rare Book", CostAmount: 2000}
	env.inv.Create(context.Background(), item)

	withFee := remoteOrder("ORD-4", "SKU1", 5000)
	fee := money(500)
	withFee.FinalValueFee = &fee
	env.client.orders = []ebay.RemoteOrder{withFee}

	resp, err := env.svc.SyncOrders(context.Background(), &dto.SyncOrdersRequest{SysUserID: 1})
	if err != nil {
		t.Fatalf("同步失败: %v", err)
	}
	if resp.Created != 1 || resp.Linked != 1 {
		t.Errorf("created=%d linked=%d, want 1/1", resp.Created, resp.Linked)
	}

	order, _ := env.orders.GetByEbayOrderID(context.Background(), 1, "ORD-4")
	if order.InventoryItemID == nil || *order.InventoryItemID != item.ID {
		t.Errorf("库存关联错误: %v", order.InventoryItemID)
	}
}

func TestSyncOrders_AutoLinkAmbiguousSKU(t *testing.T) {
	env := setupSyncTest(t)
	env.seedCredential(t, 1)

	// 同 SKU 两条未售出库存 → 不关联
	env.inv.Create(context.Background(), &model.InventoryItem{SysUserID: 1, SKU: "DUP", CostAmount: 100})
	env.inv.Create(context.Background(), &model.InventoryItem{SysUserID: 1, SKU: "DUP", CostAmount: 200})

	env.client.orders = []ebay.RemoteOrder{remoteOrder("ORD-5", "DUP", 5000)}

	resp, err := env.svc.SyncOrders(context.Background(), &dto.SyncOrdersRequest{SysUserID: 1})
	if err != nil {
		t.Fatalf("同步失败: %v", err)
	}
	if resp.Linked != 0 {
		t.Errorf("歧义 SKU 不应关联, linked=%d", resp.Linked)
	}

	order, _ := env.orders.GetByEbayOrderID(context.Background(), 1, "ORD-5")
	if order.InventoryItemID != nil {
		t.Error("歧义 SKU 订单的库存关联应为空")
	}
}

func TestSyncOrders_AutoLinkNeverOverridesManual(t *testing.T) {
	env := setupSyncTest(t)
	env.seedCredential(t, 1)

	auto := &model.InventoryItem{SysUserID: 1, SKU: "SKU-M", CostAmount: 100}
	manual := &model.InventoryItem{SysUserID: 1, SKU: "OTHER", CostAmount: 900}
	env.inv.Create(context.Background(), auto)
	env.inv.Create(context.Background(), manual)

	env.client.orders = []ebay.RemoteOrder{remoteOrder("ORD-6", "SKU-M", 5000)}
	if _, err := env.svc.SyncOrders(context.Background(), &dto.SyncOrdersRequest{SysUserID: 1}); err != nil {
		t.Fatalf("首轮同步失败: %v", err)
	}

	// 用户手工改为另一条库存
	order, _ := env.orders.GetByEbayOrderID(context.Background(), 1, "ORD-6")
	env.orders.UpdateLocalFields(context.Background(), order.ID, map[string]interface{}{
		"inventory_item_id": manual.ID,
	})

	// 再次同步 → 手工关联不被自动关联覆盖
	if _, err := env.svc.SyncOrders(context.Background(), &dto.SyncOrdersRequest{SysUserID: 1}); err != nil {
		t.Fatalf("次轮同步失败: %v", err)
	}

	order, _ = env.orders.GetByEbayOrderID(context.Background(), 1, "ORD-6")
	if order.InventoryItemID == nil || *order.InventoryItemID != manual.ID {
		t.Errorf("手工关联被覆盖: %v", order.InventoryItemID)
	}
}

// ==================== 单订单隔离 ====================

// failingOrderRepo 指定订单号入库失败
type failingOrderRepo struct {
	repository.OrderRepository
	failOrderID string
}

func (r *failingOrderRepo) Create(ctx context.Context, order *model.EbayOrder) error {
	if order.EbayOrderID == r.failOrderID {
		return errors.New("模拟入库失败")
	}
	return r.OrderRepository.Create(ctx, order)
}

func TestSyncOrders_PerOrderIsolation(t *testing.T) {
	env := setupSyncTest(t)
	env.seedCredential(t, 1)

	svc := NewSyncService(
		env.credRepo,
		&failingOrderRepo{OrderRepository: env.orders, failOrderID: "ORD-BAD"},
		env.inv,
		env.client,
		env.cipher,
	)

	env.client.orders = []ebay.RemoteOrder{
		remoteOrder("ORD-OK1", "", 1000),
		remoteOrder("ORD-BAD", "", 2000),
		remoteOrder("ORD-OK2", "", 3000),
	}

	resp, err := svc.SyncOrders(context.Background(), &dto.SyncOrdersRequest{SysUserID: 1})
	if err != nil {
		t.Fatalf("单订单失败不应让整批失败: %v", err)
	}
	if resp.Created != 2 {
		t.Errorf("created = %d, want 2", resp.Created)
	}
	if len(resp.Errors) != 1 {
		t.Errorf("errors 条数 = %d, want 1", len(resp.Errors))
	}

	// 整体成功的批次照常打点
	cred, _ := env.credRepo.GetBySysUserID(context.Background(), 1)
	if cred.LastSyncedAt == nil {
		t.Error("批次完成后 last_synced_at 应打点")
	}
}
