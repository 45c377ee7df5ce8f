package task

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"ebay_books_v1_202608/internal/model"
	"ebay_books_v1_202608/internal/repository"
	"ebay_books_v1_202608/internal/service"
)

// ==================== TokenTask Token 保活任务 ====================

// ReauthReason 强制断开时写入凭证的原因，UI 直接展示
const ReauthReason = "eBay 授权已过期，请重新连接"

// TokenTask Token 保活任务，每轮两步：
//  1. Access Token 即将过期且 Refresh Token 有效 → 刷新
//  2. Refresh Token 本身过期 → 不再尝试刷新，直接强制断开
type TokenTask struct {
	credRepo    repository.CredentialRepository
	authService *service.AuthService
	cron        *cron.Cron
	cronSpec    string

	// 控制并发刷新的数量
	concurrencyLimit int
	sleepTime        time.Duration
}

// NewTokenTask 创建 Token 保活任务
func NewTokenTask(credRepo repository.CredentialRepository, authService *service.AuthService, cronSpec string) *TokenTask {
	return &TokenTask{
		credRepo:         credRepo,
		authService:      authService,
		cron:             cron.New(cron.WithSeconds()),
		cronSpec:         cronSpec,
		concurrencyLimit: 10,
		sleepTime:        50 * time.Millisecond,
	}
}

// Start 启动定时任务
func (t *TokenTask) Start() {
	// 首次执行
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		log.Println("[TokenTask] 服务启动，正在执行首次 Token 检查...")
		t.refreshJob(ctx)
	}()

	_, err := t.cron.AddFunc(t.cronSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		t.refreshJob(ctx)
	})
	if err != nil {
		log.Printf("[TokenTask] 定时任务启动失败: %v", err)
		return
	}

	t.cron.Start()
	log.Printf("[TokenTask] 已启动 (%s)", t.cronSpec)
}

// Stop 停止任务
func (t *TokenTask) Stop() {
	ctx := t.cron.Stop()
	<-ctx.Done()
	log.Println("[TokenTask] 已停止")
}

// RefreshNow 立即执行一轮 Token 检查
func (t *TokenTask) RefreshNow() {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		t.refreshJob(ctx)
	}()
}

// refreshJob 一轮完整的保活逻辑
func (t *TokenTask) refreshJob(ctx context.Context) {
	now := time.Now()
	t.refreshExpiring(ctx, now)
	t.disconnectDead(ctx, now)
}

// refreshExpiring 刷新即将过期的 Access Token
func (t *TokenTask) refreshExpiring(ctx context.Context, now time.Time) {
	creds, err := t.credRepo.FindNeedingRefresh(ctx, now)
	if err != nil {
		log.Printf("[TokenTask] 待刷新凭证查询失败: %v", err)
		return
	}
	if len(creds) == 0 {
		return
	}

	sem := make(chan struct{}, t.concurrencyLimit)
	var wg sync.WaitGroup

	log.Printf("[TokenTask] 开始刷新 %d 个凭证，并发上限: %d", len(creds), t.concurrencyLimit)

	for i := range creds {
		select {
		case <-ctx.Done():
			log.Println("[TokenTask] 任务超时停止")
			wg.Wait()
			return
		default:
		}

		sem <- struct{}{}
		wg.Add(1)
		time.Sleep(t.sleepTime)

		cred := creds[i]
		go func(c model.EbayCredential) {
			defer wg.Done()
			defer func() { <-sem }()

			// 刷新失败只记日志和 last_sync_error，不断开；
			// 断开与否由 Refresh Token 过期判断决定
			if err := t.authService.RefreshCredential(ctx, &c); err != nil {
				log.Printf("[TokenTask] 用户 %d 刷新失败: %v", c.SysUserID, err)
			}
		}(cred)
	}

	wg.Wait()
	log.Println("[TokenTask] 本轮 Token 刷新完成")
}

// disconnectDead 强制断开 Refresh Token 已过期的凭证
// 这种凭证刷新必然失败，不发请求，直接落 needs_reauth
func (t *TokenTask) disconnectDead(ctx context.Context, now time.Time) {
	creds, err := t.credRepo.FindRefreshExpired(ctx, now)
	if err != nil {
		log.Printf("[TokenTask] 过期凭证查询失败: %v", err)
		return
	}

	for i := range creds {
		c := &creds[i]
		if err := t.credRepo.ForceDisconnect(ctx, c.SysUserID, ReauthReason); err != nil {
			log.Printf("[TokenTask] 用户 %d 强制断开失败: %v", c.SysUserID, err)
			continue
		}
		log.Printf("[TokenTask] 用户 %d Refresh Token 已过期，已强制断开", c.SysUserID)
	}
}
