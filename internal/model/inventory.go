package model

// ==================== InventoryItem 库存 ====================

// InventoryItem 本地库存记录
// 订单同步时按 SKU 在未售出库存中唯一匹配则自动关联
type InventoryItem struct {
	BaseModel

	SysUserID int64  `gorm:"index;not null"`
	SKU       string `gorm:"size:100;index"`
	Title     string `gorm:"size:255"`

	// 进货成本（分）
	CostAmount int64
	Currency   string `gorm:"size:10;default:USD"`

	IsSold bool `gorm:"index;default:false"`

	Notes string `gorm:"type:text"`
}

func (InventoryItem) TableName() string {
	return "inventory_items"
}
