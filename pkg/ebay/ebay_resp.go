package ebay

// ==========================================
// DTO: 用于接收 eBay API 返回的原始 JSON 数据
// ==========================================

// TokenResp OAuth Token 响应
// 换码 (authorization_code) 与刷新 (refresh_token) 共用同一结构
type TokenResp struct {
	AccessToken           string `json:"access_token"`
	RefreshToken          string `json:"refresh_token"`
	ExpiresIn             int    `json:"expires_in"`
	RefreshTokenExpiresIn int    `json:"refresh_token_expires_in"`
	TokenType             string `json:"token_type"`
	Scope                 string `json:"scope"`
	Error                 string `json:"error,omitempty"`
	ErrorDescription      string `json:"error_description,omitempty"`
}

// AmountDTO 金额嵌套结构 (value 是字符串小数)
type AmountDTO struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

// BuyerDTO 买家信息
type BuyerDTO struct {
	Username string `json:"username"`
}

// LineItemDTO 订单行项目
type LineItemDTO struct {
	LineItemID   string     `json:"lineItemId"`
	LegacyItemID string     `json:"legacyItemId"`
	Title        string     `json:"title"`
	SKU          string     `json:"sku"`
	Quantity     int        `json:"quantity"`
	LineItemCost *AmountDTO `json:"lineItemCost"`
	DeliveryCost *AmountDTO `json:"deliveryCost"`
}

// PricingSummaryDTO 订单金额汇总
type PricingSummaryDTO struct {
	PriceSubtotal *AmountDTO `json:"priceSubtotal"`
	DeliveryCost  *AmountDTO `json:"deliveryCost"`
	Total         *AmountDTO `json:"total"`
}

// PaymentSummaryDTO 支付汇总 (费用字段可能缺失)
type PaymentSummaryDTO struct {
	ProcessingFee  *AmountDTO `json:"processingFee"`
	AdditionalFees *AmountDTO `json:"additionalFees"`
}

// OrderDTO 单个订单结构 (对应 Fulfillment API 的 order 字段)
type OrderDTO struct {
	OrderID                string             `json:"orderId"`
	CreationDate           string             `json:"creationDate"` // ISO8601
	OrderPaymentStatus     string             `json:"orderPaymentStatus"`
	OrderFulfillmentStatus string             `json:"orderFulfillmentStatus"`
	CancelState            string             `json:"cancelState,omitempty"`
	Buyer                  *BuyerDTO          `json:"buyer"`
	PricingSummary         *PricingSummaryDTO `json:"pricingSummary"`
	PaymentSummary         *PaymentSummaryDTO `json:"paymentSummary"`
	TotalMarketplaceFee    *AmountDTO         `json:"totalMarketplaceFee"`
	LineItems              []LineItemDTO      `json:"lineItems"`
}

// OrdersResp 订单列表响应
// next 为空表示已到最后一页
type OrdersResp struct {
	Href   string     `json:"href"`
	Next   string     `json:"next"`
	Limit  int        `json:"limit"`
	Offset int        `json:"offset"`
	Total  int        `json:"total"`
	Orders []OrderDTO `json:"orders"`
}

// UserResp 身份接口响应
type UserResp struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}
