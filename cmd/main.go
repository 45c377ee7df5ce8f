package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ebay_books_v1_202608/internal/controller"
	"ebay_books_v1_202608/internal/model"
	"ebay_books_v1_202608/internal/repository"
	"ebay_books_v1_202608/internal/router"
	"ebay_books_v1_202608/internal/service"
	"ebay_books_v1_202608/internal/task"
	"ebay_books_v1_202608/pkg/config"
	"ebay_books_v1_202608/pkg/database"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("配置加载失败: %v", err)
	}

	// 2. 初始化数据库
	db := initDatabase(cfg)

	// 3. 初始化依赖
	deps := initDependencies(db, cfg)

	// 4. 启动定时任务
	deps.TaskManager.Start()
	defer deps.TaskManager.Stop()

	// 5. 初始化路由并启动服务
	r := router.SetupRouter(deps.Controllers)
	startServer(r, cfg.Server.Port)
}

// ==================== 依赖容器 ====================

// Dependencies 依赖容器
type Dependencies struct {
	DB          *gorm.DB
	Repos       *Repositories
	Services    *Services
	TaskManager *task.TaskManager
	Controllers *router.Controllers
}

// Repositories 仓库集合
type Repositories struct {
	Credential repository.CredentialRepository
	Order      repository.OrderRepository
	Inventory  repository.InventoryRepository
}

// Services 服务集合
type Services struct {
	Auth  *service.AuthService
	Sync  *service.SyncService
	Order *service.OrderService
}

// ==================== 初始化函数 ====================

// initDatabase 初始化数据库
func initDatabase(cfg *config.Config) *gorm.DB {
	return database.InitDB(
		cfg.Database.DSN,
		&model.SysUser{},
		&model.EbayCredential{},
		&model.EbayOrder{},
		&model.InventoryItem{},
	)
}

// initDependencies 初始化所有依赖
func initDependencies(db *gorm.DB, cfg *config.Config) *Dependencies {
	// -------- Repo 层 --------
	repos := &Repositories{
		Credential: repository.NewCredentialRepository(db),
		Order:      repository.NewOrderRepository(db),
		Inventory:  repository.NewInventoryRepository(db),
	}

	// -------- 基础设施 --------
	cipher, err := service.NewTokenCipher(cfg.Crypto.TokenKey)
	if err != nil {
		log.Fatalf("Token 加密器初始化失败: %v", err)
	}

	ebayClient := service.NewEbayClient(&service.EbayClientConfig{
		ClientID:     cfg.Ebay.ClientID,
		ClientSecret: cfg.Ebay.ClientSecret,
		RedirectURI:  cfg.Ebay.RedirectURI,
		Scopes:       cfg.Ebay.Scopes,
		AuthURL:      cfg.Ebay.AuthURL,
		TokenURL:     cfg.Ebay.TokenURL,
		APIBaseURL:   cfg.Ebay.APIBaseURL,
	})

	// -------- 业务服务 --------
	services := &Services{
		Auth:  service.NewAuthService(repos.Credential, ebayClient, cipher),
		Sync:  service.NewSyncService(repos.Credential, repos.Order, repos.Inventory, ebayClient, cipher),
		Order: service.NewOrderService(repos.Order, repos.Inventory),
	}

	// -------- 后台任务 --------
	taskManager := task.NewTaskManager(&task.TaskManagerDeps{
		CredRepo:    repos.Credential,
		SyncService: services.Sync,
		AuthService: services.Auth,
	}, &cfg.Task)

	// -------- Controller 层 --------
	controllers := &router.Controllers{
		Auth:  controller.NewAuthController(services.Auth),
		Order: controller.NewOrderController(services.Order),
		Sync:  controller.NewSyncController(taskManager),
	}

	return &Dependencies{
		DB:          db,
		Repos:       repos,
		Services:    services,
		TaskManager: taskManager,
		Controllers: controllers,
	}
}

// ==================== 服务启动 ====================

// startServer 启动服务
func startServer(r *gin.Engine, port string) {
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	// 异步启动服务
	go func() {
		log.Printf("服务启动在 :%s", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("服务启动失败: %v", err)
		}
	}()

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("正在关闭服务...")

	// 优雅关闭，最多等待 30 秒
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("服务强制关闭: %v", err)
	}

	log.Println("服务已退出")
}
