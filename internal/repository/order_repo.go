package repository

import (
	"context"
	"time"

	"ebay_books_v1_202608/internal/model"

	"gorm.io/gorm"
)

// ==================== 过滤条件 ====================

// OrderFilter 订单过滤条件
type OrderFilter struct {
	SysUserID         int64
	PaymentStatus     string
	FulfillmentStatus string
	StartDate         *time.Time
	EndDate           *time.Time
	Keyword           string
	LinkedOnly        *bool
	Page              int
	PageSize          int
}

// ==================== OrderRepository 订单仓库 ====================

// OrderRepository 订单仓库接口
type OrderRepository interface {
	Create(ctx context.Context, order *model.EbayOrder) error
	GetByID(ctx context.Context, id int64) (*model.EbayOrder, error)
	GetByEbayOrderID(ctx context.Context, sysUserID int64, ebayOrderID string) (*model.EbayOrder, error)
	Exists(ctx context.Context, sysUserID int64, ebayOrderID string) (bool, error)
	List(ctx context.Context, filter OrderFilter) ([]model.EbayOrder, int64, error)

	// 字段所有权分界：同步只走 UpdateRemoteFields，用户编辑只走 UpdateLocalFields
	UpdateRemoteFields(ctx context.Context, id int64, fields map[string]interface{}) error
	UpdateLocalFields(ctx context.Context, id int64, fields map[string]interface{}) error

	// SetInventoryLink 自动关联专用：仅在当前无关联时写入，不覆盖用户手工设置
	SetInventoryLink(ctx context.Context, id int64, inventoryItemID int64) (bool, error)

	// 软删除相关
	SoftDelete(ctx context.Context, sysUserID int64, id int64) error
	WasDeleted(ctx context.Context, sysUserID int64, ebayOrderID string) (bool, error)
}

// ==================== 实现 ====================

type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓库
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(ctx context.Context, order *model.EbayOrder) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *orderRepository) GetByID(ctx context.Context, id int64) (*model.EbayOrder, error) {
	var order model.EbayOrder
	err := r.db.WithContext(ctx).First(&order, id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) GetByEbayOrderID(ctx context.Context, sysUserID int64, ebayOrderID string) (*model.EbayOrder, error) {
	var order model.EbayOrder
	err := r.db.WithContext(ctx).
		Where("sys_user_id = ? AND ebay_order_id = ?", sysUserID, ebayOrderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) Exists(ctx context.Context, sysUserID int64, ebayOrderID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.EbayOrder{}).
		Where("sys_user_id = ? AND ebay_order_id = ?", sysUserID, ebayOrderID).
		Count(&count).Error
	return count > 0, err
}

func (r *orderRepository) List(ctx context.Context, filter OrderFilter) ([]model.EbayOrder, int64, error) {
	var orders []model.EbayOrder
	var total int64

	db := r.db.WithContext(ctx).Model(&model.EbayOrder{})

	if filter.SysUserID > 0 {
		db = db.Where("sys_user_id = ?", filter.SysUserID)
	}
	if filter.PaymentStatus != "" {
		db = db.Where("payment_status = ?", filter.PaymentStatus)
	}
	if filter.FulfillmentStatus != "" {
		db = db.Where("fulfillment_status = ?", filter.FulfillmentStatus)
	}
	if filter.StartDate != nil {
		db = db.Where("order_date >= ?", filter.StartDate)
	}
	if filter.EndDate != nil {
		db = db.Where("order_date <= ?", filter.EndDate)
	}
	if filter.LinkedOnly != nil {
		if *filter.LinkedOnly {
			db = db.Where("inventory_item_id IS NOT NULL")
		} else {
			db = db.Where("inventory_item_id IS NULL")
		}
	}
	if filter.Keyword != "" {
		keyword := "%" + filter.Keyword + "%"
		db = db.Where("buyer_username LIKE ? OR item_title LIKE ? OR ebay_order_id LIKE ? OR sku LIKE ?",
			keyword, keyword, keyword, keyword)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	offset := (filter.Page - 1) * filter.PageSize

	err := db.
		Order("order_date DESC").
		Limit(filter.PageSize).
		Offset(offset).
		Find(&orders).Error

	return orders, total, err
}

func (r *orderRepository) UpdateRemoteFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	// 远端字段白名单之外的 key 直接丢弃，防止同步路径误写本地字段
	filtered := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		if remoteOwnedColumns[k] {
			filtered[k] = v
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&model.EbayOrder{}).
		Where("id = ?", id).
		Updates(filtered).Error
}

func (r *orderRepository) UpdateLocalFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	filtered := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		if localOwnedColumns[k] {
			filtered[k] = v
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&model.EbayOrder{}).
		Where("id = ?", id).
		Updates(filtered).Error
}

func (r *orderRepository) SetInventoryLink(ctx context.Context, id int64, inventoryItemID int64) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.EbayOrder{}).
		Where("id = ? AND inventory_item_id IS NULL", id).
		Update("inventory_item_id", inventoryItemID)
	return result.RowsAffected > 0, result.Error
}

func (r *orderRepository) SoftDelete(ctx context.Context, sysUserID int64, id int64) error {
	return r.db.WithContext(ctx).
		Where("sys_user_id = ?", sysUserID).
		Delete(&model.EbayOrder{}, id).Error
}

// WasDeleted 是否曾被用户删除 (软删行仍在，deleted_at 非空)
// 同步据此跳过，不复活用户明确删掉的订单
func (r *orderRepository) WasDeleted(ctx context.Context, sysUserID int64, ebayOrderID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Unscoped().Model(&model.EbayOrder{}).
		Where("sys_user_id = ? AND ebay_order_id = ?", sysUserID, ebayOrderID).
		Where("deleted_at IS NOT NULL").
		Count(&count).Error
	return count > 0, err
}

// ==================== 字段所有权白名单 ====================

// 远端字段：只允许同步逻辑覆盖
var remoteOwnedColumns = map[string]bool{
	"order_date":           true,
	"buyer_username":       true,
	"item_title":           true,
	"ebay_item_id":         true,
	"sku":                  true,
	"quantity":             true,
	"payment_status":       true,
	"fulfillment_status":   true,
	"cancel_state":         true,
	"gross_amount":         true,
	"shipping_paid_amount": true,
	"final_value_fee":      true,
	"processing_fee":       true,
	"other_fees":           true,
	"currency":             true,
	"last_synced_at":       true,
}

// 本地字段：只允许用户操作写入
var localOwnedColumns = map[string]bool{
	"shipping_actual_amount": true,
	"notes":                  true,
	"inventory_item_id":      true,
}
