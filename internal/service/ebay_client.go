package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ebay_books_v1_202608/pkg/ebay"

	"github.com/go-resty/resty/v2"
)

// ==================== 常量 ====================

const (
	// 分页固定页大小
	ordersPageSize = 50

	// 单次拉取的硬上限，约 20 页；到顶后停止返回已收集部分，不报错
	ordersFetchCap = 1000

	// eBay 未返回 refresh_token_expires_in 时的缺省值：18 个月
	defaultRefreshTokenTTL = 18 * 30 * 24 * time.Hour
)

// ==================== 错误类型 ====================

// APIError eBay 上游请求错误，携带状态码和响应体
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("eBay API 错误 [%d]: %s", e.StatusCode, e.Body)
}

// ==================== 依赖接口 ====================

// MarketplaceClient 市场平台客户端
// 抽成接口便于同步/任务层在测试中替换
type MarketplaceClient interface {
	BuildAuthorizationURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*ebay.TokenResp, error)
	RefreshToken(ctx context.Context, refreshToken string) (*ebay.TokenResp, error)
	FetchOrders(ctx context.Context, accessToken string, start, end time.Time) ([]ebay.RemoteOrder, error)
	GetUserIdentity(ctx context.Context, accessToken string) (*ebay.UserResp, error)
	ValidateToken(ctx context.Context, accessToken string) bool
}

// ==================== EbayClient ====================

// EbayClientConfig eBay 客户端配置
type EbayClientConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Scopes       []string
	AuthURL      string
	TokenURL     string
	APIBaseURL   string
}

// EbayClient eBay 开放平台客户端
type EbayClient struct {
	cfg  *EbayClientConfig
	http *resty.Client
}

var _ MarketplaceClient = (*EbayClient)(nil)

// NewEbayClient 创建 eBay 客户端
func NewEbayClient(cfg *EbayClientConfig) *EbayClient {
	client := resty.New().
		SetTimeout(20 * time.Second).
		SetRetryCount(2).
		SetHeader("User-Agent", "Ebay-Books/1.0")

	return &EbayClient{
		cfg:  cfg,
		http: client,
	}
}

// ==================== 授权 ====================

// BuildAuthorizationURL 生成授权跳转链接，纯字符串拼接不走网络
// state 由调用方生成并缓存，回调时校验防伪
func (c *EbayClient) BuildAuthorizationURL(state string) string {
	params := url.Values{}
	params.Set("client_id", c.cfg.ClientID)
	params.Set("response_type", "code")
	params.Set("redirect_uri", c.cfg.RedirectURI)
	params.Set("scope", strings.Join(c.cfg.Scopes, " "))
	params.Set("state", state)
	return c.cfg.AuthURL + "?" + params.Encode()
}

// ExchangeCode 授权码换 Token
func (c *EbayClient) ExchangeCode(ctx context.Context, code string) (*ebay.TokenResp, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", c.cfg.RedirectURI)
	return c.requestToken(ctx, form)
}

// RefreshToken 刷新 Access Token
func (c *EbayClient) RefreshToken(ctx context.Context, refreshToken string) (*ebay.TokenResp, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	form.Set("scope", strings.Join(c.cfg.Scopes, " "))
	return c.requestToken(ctx, form)
}

// requestToken 换码与刷新的公共路径
// 注意：响应体可用于排障日志，但 Token 值绝不能出现在日志里
func (c *EbayClient) requestToken(ctx context.Context, form url.Values) (*ebay.TokenResp, error) {
	basic := base64.StdEncoding.EncodeToString([]byte(c.cfg.ClientID + ":" + c.cfg.ClientSecret))

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Authorization", "Basic "+basic).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetBody(form.Encode()).
		Post(c.cfg.TokenURL)
	if err != nil {
		return nil, fmt.Errorf("token 请求失败: %w", err)
	}

	if resp.IsError() {
		log.Printf("[EbayClient] token 请求被拒绝: status=%d body=%s", resp.StatusCode(), resp.String())
		return nil, &APIError{StatusCode: resp.StatusCode(), Body: resp.String()}
	}

	var tokenResp ebay.TokenResp
	if err := json.Unmarshal(resp.Body(), &tokenResp); err != nil {
		return nil, fmt.Errorf("解析 token 响应失败: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return nil, fmt.Errorf("token 响应缺少 access_token: %s", tokenResp.Error)
	}

	// eBay 换码响应里 refresh_token_expires_in 偶有缺失，按 18 个月兜底
	if tokenResp.RefreshTokenExpiresIn <= 0 {
		tokenResp.RefreshTokenExpiresIn = int(defaultRefreshTokenTTL.Seconds())
	}

	return &tokenResp, nil
}

// ==================== 订单拉取 ====================

// FetchOrders 按创建时间窗口分页拉取订单
// 循环不变式：服务端给出 next 就继续翻页；达到硬上限时停止并告警返回已收集部分
func (c *EbayClient) FetchOrders(ctx context.Context, accessToken string, start, end time.Time) ([]ebay.RemoteOrder, error) {
	filter := fmt.Sprintf("creationdate:[%s..%s]",
		start.UTC().Format("2006-01-02T15:04:05.000Z"),
		end.UTC().Format("2006-01-02T15:04:05.000Z"))

	collected := make([]ebay.RemoteOrder, 0, ordersPageSize)
	offset := 0

	for {
		resp, err := c.http.R().
			SetContext(ctx).
			SetHeader("Authorization", "Bearer "+accessToken).
			SetQueryParams(map[string]string{
				"filter": filter,
				"limit":  strconv.Itoa(ordersPageSize),
				"offset": strconv.Itoa(offset),
			}).
			Get(c.cfg.APIBaseURL + "/sell/fulfillment/v1/order")
		if err != nil {
			return nil, fmt.Errorf("订单拉取请求失败: %w", err)
		}

		if resp.IsError() {
			log.Printf("[EbayClient] 订单拉取被拒绝: status=%d body=%s", resp.StatusCode(), resp.String())
			return nil, &APIError{StatusCode: resp.StatusCode(), Body: resp.String()}
		}

		var page ebay.OrdersResp
		if err := json.Unmarshal(resp.Body(), &page); err != nil {
			return nil, fmt.Errorf("解析订单响应失败: %w", err)
		}

		for i := range page.Orders {
			collected = append(collected, ebay.NormalizeOrder(&page.Orders[i]))
		}

		if len(collected) >= ordersFetchCap {
			log.Printf("[EbayClient] 订单拉取达到上限 %d 条，返回已收集部分 (total=%d)", ordersFetchCap, page.Total)
			return collected, nil
		}

		if page.Next == "" {
			return collected, nil
		}
		offset += ordersPageSize
	}
}

// ==================== 身份 ====================

// GetUserIdentity 获取远端账号身份
func (c *EbayClient) GetUserIdentity(ctx context.Context, accessToken string) (*ebay.UserResp, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+accessToken).
		Get(c.cfg.APIBaseURL + "/commerce/identity/v1/user/")
	if err != nil {
		return nil, fmt.Errorf("身份请求失败: %w", err)
	}

	if resp.IsError() {
		return nil, &APIError{StatusCode: resp.StatusCode(), Body: resp.String()}
	}

	var user ebay.UserResp
	if err := json.Unmarshal(resp.Body(), &user); err != nil {
		return nil, fmt.Errorf("解析身份响应失败: %w", err)
	}

	return &user, nil
}

// ValidateToken 探测 Token 是否可用
// 任何上游失败都视为无效，不向上传播
func (c *EbayClient) ValidateToken(ctx context.Context, accessToken string) bool {
	_, err := c.GetUserIdentity(ctx, accessToken)
	return err == nil
}
