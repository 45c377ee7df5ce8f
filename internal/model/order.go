package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ==================== 订单状态常量 ====================

// eBay 支付状态
const (
	EbayPaymentPaid    = "PAID"
	EbayPaymentPending = "PENDING"
	EbayPaymentFailed  = "FAILED"
)

// eBay 履约状态
const (
	EbayFulfillmentNotStarted = "NOT_STARTED"
	EbayFulfillmentInProgress = "IN_PROGRESS"
	EbayFulfillmentFulfilled  = "FULFILLED"
)

// ==================== EbayOrder 订单主表 ====================

// EbayOrder 已对账入库的 eBay 订单
//
// 字段所有权约定：
//   - 远端字段 (状态/费用/买家/品名) 只允许同步逻辑覆盖，用户不可改
//   - 本地字段 (实际运费/备注/库存关联) 只允许用户操作写入，同步不得触碰
//     唯一例外是自动关联：库存关联为空时同步可按 SKU 唯一匹配补上
type EbayOrder struct {
	ID int64 `gorm:"primaryKey;autoIncrement"`

	// (sys_user_id, ebay_order_id) 联合唯一，是去重键
	SysUserID   int64  `gorm:"uniqueIndex:idx_user_ebay_order;not null"`
	EbayOrderID string `gorm:"size:64;uniqueIndex:idx_user_ebay_order;not null"`

	// 远端属性
	OrderDate         *time.Time
	BuyerUsername     string `gorm:"size:100"`
	ItemTitle         string `gorm:"size:500"`
	EbayItemID        string `gorm:"size:64"`
	SKU               string `gorm:"size:100;index"`
	Quantity          int    `gorm:"default:1"`
	PaymentStatus     string `gorm:"size:32"`
	FulfillmentStatus string `gorm:"size:32"`
	CancelState       string `gorm:"size:32"`

	// 金额（分为单位存储）
	GrossAmount        int64
	ShippingPaidAmount int64 // 买家支付的运费
	FinalValueFee      int64
	ProcessingFee      int64
	OtherFees          int64
	Currency           string `gorm:"size:10;default:USD"`

	// 本地字段
	ShippingActualAmount int64  // 卖家实际运费，手工录入
	Notes                string `gorm:"type:text"`
	InventoryItemID      *int64 `gorm:"index"`

	// 每次远端刷新触达本行时更新
	LastSyncedAt *time.Time

	// 审计字段；软删除保留物理行，防止重新同步复活已删订单
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (*EbayOrder) TableName() string {
	return "ebay_orders"
}

// ==================== 派生金额 (不落库) ====================

// cents 分 → 小数金额
func cents(amount int64) decimal.Decimal {
	return decimal.New(amount, -2)
}

// TotalFees 三项费用合计
func (o *EbayOrder) TotalFees() decimal.Decimal {
	return cents(o.FinalValueFee + o.ProcessingFee + o.OtherFees)
}

// NetPayout 净回款 = 货款 + 买家运费 - 费用合计
func (o *EbayOrder) NetPayout() decimal.Decimal {
	return cents(o.GrossAmount + o.ShippingPaidAmount).Sub(o.TotalFees())
}

// Profit 利润 = 净回款 - 关联库存成本 - 实际运费
// 仅在已关联库存时有意义，itemCostAmount 传关联库存的成本（分）
func (o *EbayOrder) Profit(itemCostAmount int64) decimal.Decimal {
	return o.NetPayout().Sub(cents(itemCostAmount)).Sub(cents(o.ShippingActualAmount))
}

// IsLinked 是否已关联库存
func (o *EbayOrder) IsLinked() bool {
	return o.InventoryItemID != nil && *o.InventoryItemID > 0
}
