package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"ebay_books_v1_202608/pkg/ebay"
)

// ==================== 测试辅助 ====================

func newTestClient(server *httptest.Server) *EbayClient {
	return NewEbayClient(&EbayClientConfig{
		ClientID:     "test-client-id",
		ClientSecret: "test-client-secret",
		RedirectURI:  "https://example.com/callback",
		Scopes:       []string{"https://api.ebay.com/oauth/api_scope", "https://api.ebay.com/oauth/api_scope/sell.fulfillment.readonly"},
		AuthURL:      server.URL + "/oauth2/authorize",
		TokenURL:     server.URL + "/identity/v1/oauth2/token",
		APIBaseURL:   server.URL,
	})
}

// ==================== 授权 URL ====================

func TestEbayClient_BuildAuthorizationURL(t *testing.T) {
	client := NewEbayClient(&EbayClientConfig{
		ClientID:    "my-app",
		RedirectURI: "https://example.com/cb",
		Scopes:      []string{"scope_a", "scope_b"},
		AuthURL:     "https://auth.ebay.com/oauth2/authorize",
	})

	raw := client.BuildAuthorizationURL("state-123")

	parsed, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("生成的 URL 无法解析: %v", err)
	}

	q := parsed.Query()
	if q.Get("client_id") != "my-app" {
		t.Errorf("client_id = %q", q.Get("client_id"))
	}
	if q.Get("response_type") != "code" {
		t.Errorf("response_type = %q", q.Get("response_type"))
	}
	if q.Get("state") != "state-123" {
		t.Errorf("state = %q", q.Get("state"))
	}
	// 多个 scope 以空格拼接
	if q.Get("scope") != "scope_a scope_b" {
		t.Errorf("scope = %q", q.Get("scope"))
	}
}

// ==================== Token 请求 ====================

func TestEbayClient_ExchangeCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/identity/v1/oauth2/token" {
			t.Errorf("请求路径错误: %s", r.URL.Path)
		}
		// Basic 认证头必须携带
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Basic ") {
			t.Errorf("缺少 Basic 认证头: %q", auth)
		}

		r.ParseForm()
		if r.Form.Get("grant_type") != "authorization_code" {
			t.Errorf("grant_type = %q", r.Form.Get("grant_type"))
		}
		if r.Form.Get("code") != "the-code" {
			t.Errorf("code = %q", r.Form.Get("code"))
		}

		json.NewEncoder(w).Encode(ebay.TokenResp{
			AccessToken:           "new-access",
			RefreshToken:          "new-refresh",
			ExpiresIn:             7200,
			RefreshTokenExpiresIn: 47304000,
			TokenType:             "User Access Token",
		})
	}))
	defer server.Close()

	client := newTestClient(server)
	tok, err := client.ExchangeCode(context.Background(), "the-code")
	if err != nil {
		t.Fatalf("换码失败: %v", err)
	}
	if tok.AccessToken != "new-access" || tok.RefreshToken != "new-refresh" {
		t.Errorf("token 解析错误: %+v", tok)
	}
}

func TestEbayClient_RefreshTokenTTLDefault(t *testing.T) {
	// 刷新响应通常不带 refresh_token_expires_in，应按 18 个月兜底
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if r.Form.Get("grant_type") != "refresh_token" {
			t.Errorf("grant_type = %q", r.Form.Get("grant_type"))
		}
		json.NewEncoder(w).Encode(ebay.TokenResp{
			AccessToken: "refreshed-access",
			ExpiresIn:   7200,
		})
	}))
	defer server.Close()

	client := newTestClient(server)
	tok, err := client.RefreshToken(context.Background(), "old-refresh")
	if err != nil {
		t.Fatalf("刷新失败: %v", err)
	}

	want := int(defaultRefreshTokenTTL.Seconds())
	if tok.RefreshTokenExpiresIn != want {
		t.Errorf("refresh_token_expires_in 兜底值 = %d, want %d", tok.RefreshTokenExpiresIn, want)
	}
	// 刷新响应未带新 refresh_token，保持空，由 AuthService 决定保留旧值
	if tok.RefreshToken != "" {
		t.Errorf("refresh_token 应为空, got %q", tok.RefreshToken)
	}
}

func TestEbayClient_TokenError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_grant","error_description":"code expired"}`))
	}))
	defer server.Close()

	client := newTestClient(server)
	_, err := client.ExchangeCode(context.Background(), "expired-code")
	if err == nil {
		t.Fatal("换码应失败")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("错误类型应为 *APIError, got %T", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest {
		t.Errorf("StatusCode = %d, want 400", apiErr.StatusCode)
	}
	if !strings.Contains(apiErr.Body, "invalid_grant") {
		t.Errorf("Body 应包含上游错误: %q", apiErr.Body)
	}
}

// ==================== 订单分页 ====================

func ordersPage(total, offset, size int, hasNext bool) ebay.OrdersResp {
	resp := ebay.OrdersResp{
		Limit:  size,
		Offset: offset,
		Total:  total,
	}
	for i := 0; i < size; i++ {
		resp.Orders = append(resp.Orders, ebay.OrderDTO{
			OrderID:      fmt.Sprintf("10-%05d", offset+i),
			CreationDate: "2026-07-01T10:00:00.000Z",
			Buyer:        &ebay.BuyerDTO{Username: "buyer1"},
			PricingSummary: &ebay.PricingSummaryDTO{
				Total: &ebay.AmountDTO{Value: "12.34", Currency: "USD"},
			},
			LineItems: []ebay.LineItemDTO{{Title: "书", SKU: "BK-1", Quantity: 1}},
		})
	}
	if hasNext {
		resp.Next = fmt.Sprintf("/sell/fulfillment/v1/order?offset=%d", offset+size)
	}
	return resp
}

func TestEbayClient_FetchOrdersPagination(t *testing.T) {
	const total = 120

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Bearer 头错误: %q", got)
		}
		if got := r.URL.Query().Get("limit"); got != "50" {
			t.Errorf("limit = %q, want 50", got)
		}
		filter := r.URL.Query().Get("filter")
		if !strings.HasPrefix(filter, "creationdate:[") {
			t.Errorf("filter 格式错误: %q", filter)
		}

		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		size := ordersPageSize
		if offset+size > total {
			size = total - offset
		}
		json.NewEncoder(w).Encode(ordersPage(total, offset, size, offset+size < total))
	}))
	defer server.Close()

	client := newTestClient(server)
	start := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 7, 8, 0, 0, 0, 0, time.UTC)

	orders, err := client.FetchOrders(context.Background(), "tok", start, end)
	if err != nil {
		t.Fatalf("拉取失败: %v", err)
	}
	if len(orders) != total {
		t.Errorf("拉取数量 = %d, want %d", len(orders), total)
	}
	// 归一化生效
	if orders[0].Gross.Amount != 1234 || orders[0].Gross.Currency != "USD" {
		t.Errorf("金额归一化错误: %+v", orders[0].Gross)
	}
}

func TestEbayClient_FetchOrdersCap(t *testing.T) {
	// 远端声称有 5000 条且永远给 next，应在 1000 条处截断且不报错
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		json.NewEncoder(w).Encode(ordersPage(5000, offset, ordersPageSize, true))
	}))
	defer server.Close()

	client := newTestClient(server)
	orders, err := client.FetchOrders(context.Background(), "tok", time.Now().Add(-time.Hour), time.Now())
	if err != nil {
		t.Fatalf("达到上限不应报错: %v", err)
	}
	if len(orders) != ordersFetchCap {
		t.Errorf("截断数量 = %d, want %d", len(orders), ordersFetchCap)
	}
}

func TestEbayClient_FetchOrdersUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"errors":[{"errorId":1001}]}`))
	}))
	defer server.Close()

	client := newTestClient(server)
	_, err := client.FetchOrders(context.Background(), "bad-tok", time.Now().Add(-time.Hour), time.Now())

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("应返回 401 的 *APIError, got %v", err)
	}
}

// ==================== 身份与 Token 探测 ====================

func TestEbayClient_ValidateToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer good" {
			json.NewEncoder(w).Encode(ebay.UserResp{UserID: "u-1", Username: "seller_x"})
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := newTestClient(server)

	if !client.ValidateToken(context.Background(), "good") {
		t.Error("有效 token 应通过探测")
	}
	if client.ValidateToken(context.Background(), "bad") {
		t.Error("无效 token 不应通过探测")
	}
}
