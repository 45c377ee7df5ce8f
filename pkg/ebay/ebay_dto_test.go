package ebay

import (
	"testing"
)

// ==================== NormalizeOrder 测试 ====================

func TestNormalizeOrder_Full(t *testing.T) {
	o := &OrderDTO{
		OrderID:                "11-22222-33333",
		CreationDate:           "2026-07-15T08:30:00.000Z",
		OrderPaymentStatus:     "PAID",
		OrderFulfillmentStatus: "FULFILLED",
		Buyer:                  &BuyerDTO{Username: "book_lover"},
		PricingSummary: &PricingSummaryDTO{
			Total:        &AmountDTO{Value: "50.00", Currency: "USD"},
			DeliveryCost: &AmountDTO{Value: "4.99", Currency: "USD"},
		},
		PaymentSummary: &PaymentSummaryDTO{
			ProcessingFee: &AmountDTO{Value: "1.50", Currency: "USD"},
		},
		TotalMarketplaceFee: &AmountDTO{Value: "5.00", Currency: "USD"},
		LineItems: []LineItemDTO{
			{Title: "First Edition Novel", LegacyItemID: "123456", SKU: "SKU1", Quantity: 1},
			{Title: "Second Book", LegacyItemID: "789", SKU: "SKU2", Quantity: 2},
		},
	}

	ro := NormalizeOrder(o)

	if ro.OrderID != "11-22222-33333" {
		t.Errorf("OrderID = %q", ro.OrderID)
	}
	if ro.BuyerUsername != "book_lover" {
		t.Errorf("BuyerUsername = %q", ro.BuyerUsername)
	}
	if ro.OrderDate == nil || ro.OrderDate.Hour() != 8 {
		t.Errorf("OrderDate 解析错误: %v", ro.OrderDate)
	}
	// 品名/SKU 取第一行，数量跨行累加
	if ro.ItemTitle != "First Edition Novel" || ro.SKU != "SKU1" {
		t.Errorf("行项目取值错误: title=%q sku=%q", ro.ItemTitle, ro.SKU)
	}
	if ro.Quantity != 3 {
		t.Errorf("Quantity = %d, want 3", ro.Quantity)
	}

	if ro.Gross.Amount != 5000 {
		t.Errorf("Gross = %d, want 5000", ro.Gross.Amount)
	}
	if ro.ShippingPaid.Amount != 499 {
		t.Errorf("ShippingPaid = %d, want 499", ro.ShippingPaid.Amount)
	}
	if ro.FinalValueFee == nil || ro.FinalValueFee.Amount != 500 {
		t.Errorf("FinalValueFee = %+v, want 500", ro.FinalValueFee)
	}
	if ro.ProcessingFee == nil || ro.ProcessingFee.Amount != 150 {
		t.Errorf("ProcessingFee = %+v, want 150", ro.ProcessingFee)
	}
	// additionalFees 未提供，保持 nil
	if ro.OtherFees != nil {
		t.Errorf("OtherFees 应为 nil, got %+v", ro.OtherFees)
	}
}

func TestNormalizeOrder_Defaults(t *testing.T) {
	// 极简订单：缺买家、缺金额、缺行项目，全部回落到缺省值
	ro := NormalizeOrder(&OrderDTO{OrderID: "bare"})

	if ro.BuyerUsername != UnknownBuyerName {
		t.Errorf("买家缺省值 = %q, want %q", ro.BuyerUsername, UnknownBuyerName)
	}
	if ro.Gross.Amount != 0 || ro.Gross.Currency != DefaultCurrency {
		t.Errorf("金额缺省值错误: %+v", ro.Gross)
	}
	if ro.Quantity != 1 {
		t.Errorf("数量缺省值 = %d, want 1", ro.Quantity)
	}
	if ro.OrderDate != nil {
		t.Errorf("无法解析的时间应为 nil, got %v", ro.OrderDate)
	}
	if ro.FinalValueFee != nil || ro.ProcessingFee != nil || ro.OtherFees != nil {
		t.Error("未提供的费用字段应保持 nil")
	}
}

func TestNormalizeOrder_MoneyParsing(t *testing.T) {
	tests := []struct {
		value    string
		currency string
		amount   int64
		wantCur  string
	}{
		{"12.34", "USD", 1234, "USD"},
		{"0.01", "GBP", 1, "GBP"},
		{"100", "EUR", 10000, "EUR"},
		{"not-a-number", "USD", 0, "USD"},
		{"7.5", "", 750, DefaultCurrency},
	}

	for _, tt := range tests {
		m := parseMoney(&AmountDTO{Value: tt.value, Currency: tt.currency})
		if m.Amount != tt.amount || m.Currency != tt.wantCur {
			t.Errorf("parseMoney(%q, %q) = %+v, want {%d %s}",
				tt.value, tt.currency, m, tt.amount, tt.wantCur)
		}
	}

	if m := parseMoney(nil); m.Amount != 0 || m.Currency != DefaultCurrency {
		t.Errorf("parseMoney(nil) = %+v", m)
	}
}
