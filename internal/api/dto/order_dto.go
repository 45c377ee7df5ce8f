package dto

import "time"

// ==================== 订单相关 DTO ====================

// ListOrdersRequest 订单列表查询
type ListOrdersRequest struct {
	SysUserID         int64  `form:"sys_user_id"`
	PaymentStatus     string `form:"payment_status"`
	FulfillmentStatus string `form:"fulfillment_status"`
	Keyword           string `form:"keyword"`
	StartDate         string `form:"start_date"`
	EndDate           string `form:"end_date"`
	Page              int    `form:"page"`
	PageSize          int    `form:"page_size"`
}

// OrderListItem 订单列表项
type OrderListItem struct {
	ID                int64      `json:"id"`
	EbayOrderID       string     `json:"ebay_order_id"`
	OrderDate         *time.Time `json:"order_date"`
	BuyerUsername     string     `json:"buyer_username"`
	ItemTitle         string     `json:"item_title"`
	SKU               string     `json:"sku"`
	Quantity          int        `json:"quantity"`
	PaymentStatus     string     `json:"payment_status"`
	FulfillmentStatus string     `json:"fulfillment_status"`
	Gross             float64    `json:"gross"`
	TotalFees         float64    `json:"total_fees"`
	NetPayout         float64    `json:"net_payout"`
	Currency          string     `json:"currency"`
	Linked            bool       `json:"linked"`
	LastSyncedAt      *time.Time `json:"last_synced_at,omitempty"`
}

// ListOrdersResponse 订单列表响应
type ListOrdersResponse struct {
	Total int64           `json:"total"`
	List  []OrderListItem `json:"list"`
}

// OrderDetailResponse 订单详情
type OrderDetailResponse struct {
	OrderListItem
	EbayItemID      string   `json:"ebay_item_id"`
	CancelState     string   `json:"cancel_state,omitempty"`
	ShippingPaid    float64  `json:"shipping_paid"`
	ShippingActual  float64  `json:"shipping_actual"`
	FinalValueFee   float64  `json:"final_value_fee"`
	ProcessingFee   float64  `json:"processing_fee"`
	OtherFees       float64  `json:"other_fees"`
	Notes           string   `json:"notes,omitempty"`
	InventoryItemID *int64   `json:"inventory_item_id,omitempty"`
	Profit          *float64 `json:"profit,omitempty"` // 仅已关联库存时给出
}

// UpdateOrderLocalRequest 本地字段编辑请求
// 指针区分 "未提交该字段" 与 "提交了零值"
type UpdateOrderLocalRequest struct {
	ShippingActual  *float64 `json:"shipping_actual"`
	Notes           *string  `json:"notes"`
	InventoryItemID *int64   `json:"inventory_item_id"` // 传 0 解除关联
}
