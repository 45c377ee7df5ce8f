package ebay

import (
	"time"

	"github.com/shopspring/decimal"
)

// ==========================================
// 归一化 DTO: 原始 JSON → 本地业务使用的订单快照
// ==========================================

// 缺省值约定：金额缺失记 0 / USD，买家缺失记 "Unknown"
const (
	DefaultCurrency  = "USD"
	UnknownBuyerName = "Unknown"
)

// RemoteMoney 归一化金额 (分为单位)
type RemoteMoney struct {
	Amount   int64
	Currency string
}

// RemoteOrder 归一化后的远端订单
// 费用字段用指针区分 "远端未提供 (nil, 不覆盖本地)" 与 "远端给了 0"
type RemoteOrder struct {
	OrderID           string
	OrderDate         *time.Time
	BuyerUsername     string
	ItemTitle         string
	EbayItemID        string
	SKU               string
	Quantity          int
	PaymentStatus     string
	FulfillmentStatus string
	CancelState       string

	Gross        RemoteMoney
	ShippingPaid RemoteMoney

	FinalValueFee *RemoteMoney
	ProcessingFee *RemoteMoney
	OtherFees     *RemoteMoney
}

// NormalizeOrder 将原始订单 JSON 映射为归一化订单
// 映射是全函数：字段缺失/无法解析时回落到缺省值，不报错
func NormalizeOrder(o *OrderDTO) RemoteOrder {
	ro := RemoteOrder{
		OrderID:           o.OrderID,
		BuyerUsername:     UnknownBuyerName,
		Quantity:          1,
		PaymentStatus:     o.OrderPaymentStatus,
		FulfillmentStatus: o.OrderFulfillmentStatus,
		CancelState:       o.CancelState,
	}

	if o.Buyer != nil && o.Buyer.Username != "" {
		ro.BuyerUsername = o.Buyer.Username
	}

	if t, err := time.Parse(time.RFC3339, o.CreationDate); err == nil {
		utc := t.UTC()
		ro.OrderDate = &utc
	}

	// 行项目：记账粒度取第一行 (单品订单为主)，数量累加
	if len(o.LineItems) > 0 {
		first := o.LineItems[0]
		ro.ItemTitle = first.Title
		ro.EbayItemID = first.LegacyItemID
		ro.SKU = first.SKU
		qty := 0
		for _, li := range o.LineItems {
			qty += li.Quantity
		}
		if qty > 0 {
			ro.Quantity = qty
		}
	}

	// 金额汇总
	if o.PricingSummary != nil {
		ro.Gross = parseMoney(o.PricingSummary.Total)
		ro.ShippingPaid = parseMoney(o.PricingSummary.DeliveryCost)
	} else {
		ro.Gross = RemoteMoney{Currency: DefaultCurrency}
		ro.ShippingPaid = RemoteMoney{Currency: DefaultCurrency}
	}

	// 费用：未提供时保持 nil，表示 "不更新"
	if o.TotalMarketplaceFee != nil {
		m := parseMoney(o.TotalMarketplaceFee)
		ro.FinalValueFee = &m
	}
	if o.PaymentSummary != nil {
		if o.PaymentSummary.ProcessingFee != nil {
			m := parseMoney(o.PaymentSummary.ProcessingFee)
			ro.ProcessingFee = &m
		}
		if o.PaymentSummary.AdditionalFees != nil {
			m := parseMoney(o.PaymentSummary.AdditionalFees)
			ro.OtherFees = &m
		}
	}

	return ro
}

// parseMoney 字符串小数 → 分
func parseMoney(a *AmountDTO) RemoteMoney {
	m := RemoteMoney{Currency: DefaultCurrency}
	if a == nil {
		return m
	}
	if a.Currency != "" {
		m.Currency = a.Currency
	}
	d, err := decimal.NewFromString(a.Value)
	if err != nil {
		return m
	}
	m.Amount = d.Shift(2).IntPart()
	return m
}
