package task

import (
	"context"
	"log"
	"time"

	"ebay_books_v1_202608/internal/api/dto"
	"ebay_books_v1_202608/internal/repository"
	"ebay_books_v1_202608/internal/service"
	"ebay_books_v1_202608/pkg/config"
)

// ==================== TaskManager 后台任务管理器 ====================

// TaskManager 统一管理后台任务
// 管理范围：订单同步、Token 保活
type TaskManager struct {
	orderTask *OrderSyncTask
	tokenTask *TokenTask
}

// TaskManagerDeps 任务管理器依赖
type TaskManagerDeps struct {
	CredRepo    repository.CredentialRepository
	SyncService *service.SyncService
	AuthService *service.AuthService
}

// NewTaskManager 创建任务管理器，按配置决定各任务是否装配
func NewTaskManager(deps *TaskManagerDeps, cfg *config.TaskConfig) *TaskManager {
	tm := &TaskManager{}

	if cfg.OrderSyncEnabled && deps.SyncService != nil {
		tm.orderTask = NewOrderSyncTask(deps.CredRepo, deps.SyncService, cfg.OrderSyncCron)
		tm.orderTask.SetConcurrency(cfg.OrderConcurrency, 200*time.Millisecond)
	}

	if cfg.TokenRefreshEnabled && deps.AuthService != nil {
		tm.tokenTask = NewTokenTask(deps.CredRepo, deps.AuthService, cfg.TokenRefreshCron)
	}

	return tm
}

// ==================== 生命周期管理 ====================

// Start 启动所有任务
func (tm *TaskManager) Start() {
	log.Println("[TaskManager] 正在启动后台任务...")

	if tm.tokenTask != nil {
		tm.tokenTask.Start()
	}
	if tm.orderTask != nil {
		tm.orderTask.Start()
	}

	log.Println("[TaskManager] 后台任务已全部启动")
}

// Stop 停止所有任务
func (tm *TaskManager) Stop() {
	log.Println("[TaskManager] 正在停止后台任务...")

	if tm.orderTask != nil {
		tm.orderTask.Stop()
	}
	if tm.tokenTask != nil {
		tm.tokenTask.Stop()
	}

	log.Println("[TaskManager] 后台任务已全部停止")
}

// ==================== 手动触发接口 ====================

// TriggerOrderSync 触发单用户订单同步
func (tm *TaskManager) TriggerOrderSync(ctx context.Context, sysUserID int64, forceSync bool) (*dto.SyncOrdersResponse, error) {
	if tm.orderTask == nil {
		return nil, ErrTaskDisabled
	}
	return tm.orderTask.SyncUserNow(ctx, sysUserID, forceSync)
}

// TriggerAllOrdersSync 触发所有用户订单同步
func (tm *TaskManager) TriggerAllOrdersSync() {
	if tm.orderTask != nil {
		tm.orderTask.SyncAllNow()
	}
}

// TriggerTokenRefresh 触发一轮 Token 检查
func (tm *TaskManager) TriggerTokenRefresh() {
	if tm.tokenTask != nil {
		tm.tokenTask.RefreshNow()
	}
}

// ==================== 状态查询 ====================

// Status 获取任务启用状态
func (tm *TaskManager) Status() map[string]bool {
	return map[string]bool{
		"order_sync":    tm.orderTask != nil,
		"token_refresh": tm.tokenTask != nil,
	}
}

// ==================== 错误定义 ====================

type TaskError string

func (e TaskError) Error() string { return string(e) }

const (
	ErrTaskDisabled TaskError = "task is disabled"
)
