package repository

import (
	"context"

	"ebay_books_v1_202608/internal/model"

	"gorm.io/gorm"
)

// ==================== InventoryRepository 库存仓库 ====================

// InventoryRepository 库存仓库接口
type InventoryRepository interface {
	Create(ctx context.Context, item *model.InventoryItem) error
	GetByID(ctx context.Context, id int64) (*model.InventoryItem, error)
	FindUnsoldBySKU(ctx context.Context, sysUserID int64, sku string) ([]model.InventoryItem, error)
	MarkSold(ctx context.Context, id int64) error
}

type inventoryRepository struct {
	db *gorm.DB
}

// NewInventoryRepository 创建库存仓库
func NewInventoryRepository(db *gorm.DB) InventoryRepository {
	return &inventoryRepository{db: db}
}

func (r *inventoryRepository) Create(ctx context.Context, item *model.InventoryItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *inventoryRepository) GetByID(ctx context.Context, id int64) (*model.InventoryItem, error) {
	var item model.InventoryItem
	err := r.db.WithContext(ctx).First(&item, id).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// FindUnsoldBySKU 自动关联查询：同用户、同 SKU、未售出
// 返回全部命中，是否唯一由调用方判断
func (r *inventoryRepository) FindUnsoldBySKU(ctx context.Context, sysUserID int64, sku string) ([]model.InventoryItem, error) {
	var items []model.InventoryItem
	err := r.db.WithContext(ctx).
		Where("sys_user_id = ? AND sku = ? AND is_sold = ?", sysUserID, sku, false).
		Find(&items).Error
	return items, err
}

func (r *inventoryRepository) MarkSold(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Model(&model.InventoryItem{}).
		Where("id = ?", id).
		Update("is_sold", true).Error
}
