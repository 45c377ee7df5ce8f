package repository

import (
	"context"
	"time"

	"ebay_books_v1_202608/internal/model"

	"gorm.io/gorm"
)

// ==================== CredentialRepository 凭证仓库 ====================

// 刷新提前量：Access Token 到期前 10 分钟就算 "待刷新"，
// 留出窗口保证后台刷新先于订单同步拿到新 Token
const refreshAheadMargin = 10 * time.Minute

// CredentialRepository 凭证仓库接口
type CredentialRepository interface {
	Create(ctx context.Context, cred *model.EbayCredential) error
	GetBySysUserID(ctx context.Context, sysUserID int64) (*model.EbayCredential, error)
	Save(ctx context.Context, cred *model.EbayCredential) error

	// 任务查询
	FindConnected(ctx context.Context) ([]model.EbayCredential, error)
	FindNeedingRefresh(ctx context.Context, now time.Time) ([]model.EbayCredential, error)
	FindRefreshExpired(ctx context.Context, now time.Time) ([]model.EbayCredential, error)

	// 同步状态回写
	RecordSyncSuccess(ctx context.Context, sysUserID int64, at time.Time) error
	RecordSyncError(ctx context.Context, sysUserID int64, errMsg string) error

	// 生命周期
	ForceDisconnect(ctx context.Context, sysUserID int64, reason string) error
	Disconnect(ctx context.Context, sysUserID int64) error
}

// ==================== 实现 ====================

type credentialRepository struct {
	db *gorm.DB
}

// NewCredentialRepository 创建凭证仓库
func NewCredentialRepository(db *gorm.DB) CredentialRepository {
	return &credentialRepository{db: db}
}

func (r *credentialRepository) Create(ctx context.Context, cred *model.EbayCredential) error {
	return r.db.WithContext(ctx).Create(cred).Error
}

func (r *credentialRepository) GetBySysUserID(ctx context.Context, sysUserID int64) (*model.EbayCredential, error) {
	var cred model.EbayCredential
	err := r.db.WithContext(ctx).Where("sys_user_id = ?", sysUserID).First(&cred).Error
	if err != nil {
		return nil, err
	}
	return &cred, nil
}

func (r *credentialRepository) Save(ctx context.Context, cred *model.EbayCredential) error {
	return r.db.WithContext(ctx).Save(cred).Error
}

func (r *credentialRepository) FindConnected(ctx context.Context) ([]model.EbayCredential, error) {
	var creds []model.EbayCredential
	err := r.db.WithContext(ctx).
		Where("is_connected = ?", true).
		Find(&creds).Error
	return creds, err
}

// FindNeedingRefresh 查找 Access Token 即将/已经过期、Refresh Token 仍有效的凭证
func (r *credentialRepository) FindNeedingRefresh(ctx context.Context, now time.Time) ([]model.EbayCredential, error) {
	var creds []model.EbayCredential
	err := r.db.WithContext(ctx).
		Where("is_connected = ?", true).
		Where("access_token_expires_at <= ?", now.Add(refreshAheadMargin)).
		Where("refresh_token_expires_at > ?", now).
		Find(&creds).Error
	return creds, err
}

// FindRefreshExpired 查找 Refresh Token 也已过期的凭证 (必须重新授权)
func (r *credentialRepository) FindRefreshExpired(ctx context.Context, now time.Time) ([]model.EbayCredential, error) {
	var creds []model.EbayCredential
	err := r.db.WithContext(ctx).
		Where("is_connected = ?", true).
		Where("refresh_token_expires_at <= ?", now).
		Find(&creds).Error
	return creds, err
}

// RecordSyncSuccess 记录同步成功：打时间戳并清空错误
// WHERE 带 is_connected 条件做乐观保护，手动断开和后台回写竞争时不会把
// 已断开的凭证标成同步成功
func (r *credentialRepository) RecordSyncSuccess(ctx context.Context, sysUserID int64, at time.Time) error {
	return r.db.WithContext(ctx).Model(&model.EbayCredential{}).
		Where("sys_user_id = ? AND is_connected = ?", sysUserID, true).
		Updates(map[string]interface{}{
			"last_synced_at":  at,
			"last_sync_error": "",
		}).Error
}

// RecordSyncError 记录同步失败
// 只写错误，不动 is_connected：瞬时同步失败不等于断开
func (r *credentialRepository) RecordSyncError(ctx context.Context, sysUserID int64, errMsg string) error {
	return r.db.WithContext(ctx).Model(&model.EbayCredential{}).
		Where("sys_user_id = ?", sysUserID).
		Update("last_sync_error", errMsg).Error
}

// ForceDisconnect 强制断开 (Refresh Token 过期时由任务调用)
// 保留过期 Token 密文仅作排查用途，状态以 is_connected 为准
func (r *credentialRepository) ForceDisconnect(ctx context.Context, sysUserID int64, reason string) error {
	return r.db.WithContext(ctx).Model(&model.EbayCredential{}).
		Where("sys_user_id = ?", sysUserID).
		Updates(map[string]interface{}{
			"is_connected":    false,
			"last_sync_error": reason,
		}).Error
}

// Disconnect 用户主动断开：清空 Token 与错误
func (r *credentialRepository) Disconnect(ctx context.Context, sysUserID int64) error {
	return r.db.WithContext(ctx).Model(&model.EbayCredential{}).
		Where("sys_user_id = ?", sysUserID).
		Updates(map[string]interface{}{
			"is_connected":      false,
			"access_token_enc":  "",
			"refresh_token_enc": "",
			"last_sync_error":   "",
		}).Error
}
