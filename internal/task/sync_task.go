package task

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"ebay_books_v1_202608/internal/api/dto"
	"ebay_books_v1_202608/internal/repository"
	"ebay_books_v1_202608/internal/service"
)

// ==================== OrderSyncTask 订单同步任务 ====================

// OrderSyncTask 订单同步定时任务
// 逐用户隔离：单个用户失败记录到其凭证上，不影响其他用户
type OrderSyncTask struct {
	credRepo    repository.CredentialRepository
	syncService *service.SyncService
	cron        *cron.Cron
	cronSpec    string

	// 并发控制
	concurrencyLimit int
	sleepTime        time.Duration
}

// NewOrderSyncTask 创建订单同步任务
func NewOrderSyncTask(
	credRepo repository.CredentialRepository,
	syncService *service.SyncService,
	cronSpec string,
) *OrderSyncTask {
	return &OrderSyncTask{
		credRepo:         credRepo,
		syncService:      syncService,
		cron:             cron.New(cron.WithSeconds()),
		cronSpec:         cronSpec,
		concurrencyLimit: 10,
		sleepTime:        200 * time.Millisecond,
	}
}

// SetConcurrency 设置并发参数
func (t *OrderSyncTask) SetConcurrency(limit int, sleep time.Duration) {
	if limit > 0 {
		t.concurrencyLimit = limit
	}
	t.sleepTime = sleep
}

// Start 启动定时任务
func (t *OrderSyncTask) Start() {
	// 首次执行
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		log.Println("[OrderSyncTask] 执行首次订单同步...")
		t.syncAllUsers(ctx)
	}()

	_, err := t.cron.AddFunc(t.cronSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		t.syncAllUsers(ctx)
	})
	if err != nil {
		log.Printf("[OrderSyncTask] 定时任务启动失败: %v", err)
		return
	}

	t.cron.Start()
	log.Printf("[OrderSyncTask] 已启动 (%s)", t.cronSpec)
}

// Stop 停止任务
func (t *OrderSyncTask) Stop() {
	ctx := t.cron.Stop()
	<-ctx.Done()
	log.Println("[OrderSyncTask] 已停止")
}

// syncAllUsers 同步所有已连接用户的订单
func (t *OrderSyncTask) syncAllUsers(ctx context.Context) {
	runID := uuid.NewString()[:8]
	log.Printf("[OrderSyncTask][%s] 开始同步订单...", runID)

	creds, err := t.credRepo.FindConnected(ctx)
	if err != nil {
		log.Printf("[OrderSyncTask][%s] 获取已连接用户失败: %v", runID, err)
		return
	}

	if len(creds) == 0 {
		log.Printf("[OrderSyncTask][%s] 无已连接用户需要同步", runID)
		return
	}

	sem := make(chan struct{}, t.concurrencyLimit)
	var wg sync.WaitGroup

	var (
		totalCreated int
		totalUpdated int
		totalLinked  int
		totalErrors  int
		mu           sync.Mutex
	)

	log.Printf("[OrderSyncTask][%s] 开始处理 %d 个用户", runID, len(creds))

	for i := range creds {
		cred := creds[i]
		select {
		case <-ctx.Done():
			log.Printf("[OrderSyncTask][%s] 任务超时停止", runID)
			wg.Wait()
			return
		default:
		}

		sem <- struct{}{}
		wg.Add(1)
		time.Sleep(t.sleepTime)

		go func(sysUserID int64, username string) {
			defer wg.Done()
			defer func() { <-sem }()

			resp, err := t.syncService.SyncOrders(ctx, &dto.SyncOrdersRequest{
				SysUserID: sysUserID,
				ForceSync: false,
			})

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				// 用户级隔离：记录到凭证后继续下一个用户
				log.Printf("[OrderSyncTask][%s] 用户 %s(%d) 同步失败: %v", runID, username, sysUserID, err)
				if recordErr := t.credRepo.RecordSyncError(ctx, sysUserID, err.Error()); recordErr != nil {
					log.Printf("[OrderSyncTask][%s] 用户 %d 记录同步错误失败: %v", runID, sysUserID, recordErr)
				}
				totalErrors++
				return
			}

			totalCreated += resp.Created
			totalUpdated += resp.Updated
			totalLinked += resp.Linked

			if resp.Created > 0 || resp.Updated > 0 {
				log.Printf("[OrderSyncTask][%s] 用户 %s: 新增 %d, 更新 %d, 关联 %d",
					runID, username, resp.Created, resp.Updated, resp.Linked)
			}

			for _, e := range resp.Errors {
				log.Printf("[OrderSyncTask][%s] 用户 %s 警告: %s", runID, username, e)
			}
		}(cred.SysUserID, cred.EbayUsername)
	}

	wg.Wait()
	log.Printf("[OrderSyncTask][%s] 同步完成: 用户 %d, 新增 %d, 更新 %d, 关联 %d, 错误 %d",
		runID, len(creds), totalCreated, totalUpdated, totalLinked, totalErrors)
}

// ==================== 手动触发 ====================

// SyncUserNow 立即同步单个用户订单
func (t *OrderSyncTask) SyncUserNow(ctx context.Context, sysUserID int64, forceSync bool) (*dto.SyncOrdersResponse, error) {
	return t.syncService.SyncOrders(ctx, &dto.SyncOrdersRequest{
		SysUserID: sysUserID,
		ForceSync: forceSync,
	})
}

// SyncAllNow 立即同步所有用户订单
func (t *OrderSyncTask) SyncAllNow() {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		t.syncAllUsers(ctx)
	}()
}
