package dto

import "time"

// ==================== 授权相关 DTO ====================

// LoginURLResponse 授权链接响应
type LoginURLResponse struct {
	AuthURL string `json:"auth_url"`
}

// CredentialStatusResponse 连接状态响应
// 注意：这里是凭证对 UI 的唯一出口，绝不携带 Token 字段
type CredentialStatusResponse struct {
	State         string     `json:"state"`
	IsConnected   bool       `json:"is_connected"`
	EbayUsername  string     `json:"ebay_username,omitempty"`
	LastSyncedAt  *time.Time `json:"last_synced_at,omitempty"`
	LastSyncError string     `json:"last_sync_error,omitempty"`
}
