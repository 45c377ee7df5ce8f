package model

import (
	"time"
)

// ==================== 凭证状态 ====================

// CredState 凭证连接状态
// 状态不落库，由两个过期时间戳 + is_connected 按当前时钟派生，
// 保证每次读取都反映真实时钟
type CredState string

const (
	CredStateDisconnected  CredState = "disconnected"   // 未连接
	CredStateConnected     CredState = "connected"      // 正常
	CredStateAccessExpired CredState = "access_expired" // Access Token 过期，Refresh Token 仍有效
	CredStateNeedsReauth   CredState = "needs_reauth"   // Refresh Token 也过期，必须重新授权
)

// ==================== EbayCredential 授权凭证 ====================

// EbayCredential eBay 授权凭证，每个本地用户一行
// Token 字段存密文，任何读接口都不得向外暴露
type EbayCredential struct {
	BaseModel

	SysUserID int64 `gorm:"uniqueIndex;not null"`

	// 远端身份 (首次换 Token 成功后才有值)
	EbayUserID   string `gorm:"size:64;index"`
	EbayUsername string `gorm:"size:100"`

	// Token 密文
	AccessTokenEnc  string `gorm:"type:text"`
	RefreshTokenEnc string `gorm:"type:text"`

	// 绝对过期时间 (UTC)
	AccessTokenExpiresAt  time.Time
	RefreshTokenExpiresAt time.Time

	// 已授予的 scope 记录
	Scopes string `gorm:"type:text"`

	// false 表示该用户的集成整体停用，存了 Token 也不生效
	IsConnected bool `gorm:"index;default:false"`

	// 同步状态：成功清空错误并打时间戳，失败覆盖错误
	LastSyncedAt  *time.Time
	LastSyncError string `gorm:"type:text"`
}

func (EbayCredential) TableName() string {
	return "ebay_credentials"
}

// ClassifyCredential 按当前时钟计算凭证状态
// 过期比较集中在这一个纯函数里，调用方不要散落 now >= expiry 判断
func ClassifyCredential(now time.Time, c *EbayCredential) CredState {
	if c == nil || !c.IsConnected || c.AccessTokenEnc == "" || c.RefreshTokenEnc == "" {
		return CredStateDisconnected
	}
	if !now.Before(c.RefreshTokenExpiresAt) {
		return CredStateNeedsReauth
	}
	if !now.Before(c.AccessTokenExpiresAt) {
		return CredStateAccessExpired
	}
	return CredStateConnected
}
