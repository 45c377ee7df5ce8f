package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"ebay_books_v1_202608/internal/api/dto"
	"ebay_books_v1_202608/internal/model"
	"ebay_books_v1_202608/internal/repository"
	"ebay_books_v1_202608/pkg/ebay"
	"ebay_books_v1_202608/pkg/utils"

	"gorm.io/gorm"
)

// ==================== AuthService 授权服务 ====================

// ErrNotConnected 用户未连接 eBay
var ErrNotConnected = errors.New("eBay 未连接")

// AuthService 管理 eBay 授权凭证的完整生命周期：
// 生成授权链接 → 回调换 Token → 周期刷新 → 断开/强制重连
type AuthService struct {
	credRepo repository.CredentialRepository
	client   MarketplaceClient
	cipher   *TokenCipher
}

// NewAuthService 工厂方法
func NewAuthService(credRepo repository.CredentialRepository, client MarketplaceClient, cipher *TokenCipher) *AuthService {
	return &AuthService{
		credRepo: credRepo,
		client:   client,
		cipher:   cipher,
	}
}

// ==================== 授权流程 ====================

// GenerateLoginURL 生成授权链接
// state 随机生成并缓存 state → 用户 的绑定，回调时校验
func (s *AuthService) GenerateLoginURL(ctx context.Context, sysUserID int64) (string, error) {
	if sysUserID <= 0 {
		return "", errors.New("无效的用户 ID")
	}

	state, err := utils.GenerateRandomString(16)
	if err != nil {
		return "", fmt.Errorf("生成 state 失败: %w", err)
	}
	utils.SetCache(state, strconv.FormatInt(sysUserID, 10))

	return s.client.BuildAuthorizationURL(state), nil
}

// HandleCallback 处理 eBay 回调 -> 换 Token 并落库
func (s *AuthService) HandleCallback(ctx context.Context, code, state string) (*model.EbayCredential, error) {
	// 1. 校验 State 取缓存
	cachedVal, exists := utils.GetCache(state)
	if !exists {
		return nil, fmt.Errorf("授权超时或 state 无效，请重新发起")
	}
	utils.DeleteCache(state)

	sysUserID, err := strconv.ParseInt(cachedVal, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("缓存中的用户 ID 无效: %v", err)
	}

	// 2. 换 Token
	tok, err := s.client.ExchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("换取 token 失败: %w", err)
	}

	// 3. 查或建凭证 (每个用户只有一行)
	cred, err := s.credRepo.GetBySysUserID(ctx, sysUserID)
	isNew := false
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		cred = &model.EbayCredential{SysUserID: sysUserID}
		isNew = true
	}

	// 4. 加密入库
	if err := s.applyTokenBundle(cred, tok, time.Now()); err != nil {
		return nil, err
	}
	cred.IsConnected = true
	cred.LastSyncError = ""

	// 5. 拉取远端身份，失败不阻断连接（下次同步还有机会补）
	if identity, err := s.client.GetUserIdentity(ctx, tok.AccessToken); err != nil {
		log.Printf("[Auth] 用户 %d 获取 eBay 身份失败: %v", sysUserID, err)
	} else {
		cred.EbayUserID = identity.UserID
		cred.EbayUsername = identity.Username
	}

	if isNew {
		err = s.credRepo.Create(ctx, cred)
	} else {
		err = s.credRepo.Save(ctx, cred)
	}
	if err != nil {
		return nil, fmt.Errorf("凭证入库失败: %w", err)
	}

	return cred, nil
}

// ==================== Token 刷新 ====================

// RefreshCredential 刷新单个凭证的 Access Token
// 刷新失败只记录 last_sync_error，不翻 is_connected；
// 只有 Refresh Token 过期才由任务强制断开
func (s *AuthService) RefreshCredential(ctx context.Context, cred *model.EbayCredential) error {
	refreshToken, err := s.cipher.Decrypt(cred.RefreshTokenEnc)
	if err != nil {
		return fmt.Errorf("refresh token 解密失败: %w", err)
	}

	tok, err := s.client.RefreshToken(ctx, refreshToken)
	if err != nil {
		recordErr := s.credRepo.RecordSyncError(ctx, cred.SysUserID, fmt.Sprintf("token 刷新失败: %v", err))
		if recordErr != nil {
			log.Printf("[Auth] 用户 %d 记录刷新错误失败: %v", cred.SysUserID, recordErr)
		}
		return fmt.Errorf("token 刷新失败: %w", err)
	}

	if err := s.applyTokenBundle(cred, tok, time.Now()); err != nil {
		return err
	}
	cred.LastSyncError = ""

	return s.credRepo.Save(ctx, cred)
}

// applyTokenBundle 把一次 Token 响应写入凭证
// eBay 刷新时通常不下发新 refresh_token，此时保留旧值与旧过期时间
func (s *AuthService) applyTokenBundle(cred *model.EbayCredential, tok *ebay.TokenResp, now time.Time) error {
	accessEnc, err := s.cipher.Encrypt(tok.AccessToken)
	if err != nil {
		return fmt.Errorf("access token 加密失败: %w", err)
	}
	cred.AccessTokenEnc = accessEnc
	cred.AccessTokenExpiresAt = now.Add(time.Duration(tok.ExpiresIn) * time.Second).UTC()

	if tok.RefreshToken != "" {
		refreshEnc, err := s.cipher.Encrypt(tok.RefreshToken)
		if err != nil {
			return fmt.Errorf("refresh token 加密失败: %w", err)
		}
		cred.RefreshTokenEnc = refreshEnc
		cred.RefreshTokenExpiresAt = now.Add(time.Duration(tok.RefreshTokenExpiresIn) * time.Second).UTC()
	}

	if tok.Scope != "" {
		cred.Scopes = tok.Scope
	}

	return nil
}

// ==================== 断开与状态 ====================

// Disconnect 用户主动断开：清空 Token，集成停用
func (s *AuthService) Disconnect(ctx context.Context, sysUserID int64) error {
	return s.credRepo.Disconnect(ctx, sysUserID)
}

// GetStatus 查询连接状态
// 只外露连接态/用户名/时间戳，Token 密文永不出库
func (s *AuthService) GetStatus(ctx context.Context, sysUserID int64) (*dto.CredentialStatusResponse, error) {
	cred, err := s.credRepo.GetBySysUserID(ctx, sysUserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &dto.CredentialStatusResponse{State: string(model.CredStateDisconnected)}, nil
		}
		return nil, err
	}

	return &dto.CredentialStatusResponse{
		State:         string(model.ClassifyCredential(time.Now(), cred)),
		IsConnected:   cred.IsConnected,
		EbayUsername:  cred.EbayUsername,
		LastSyncedAt:  cred.LastSyncedAt,
		LastSyncError: cred.LastSyncError,
	}, nil
}
