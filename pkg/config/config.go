package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// ==================== 应用配置 ====================

// Config 应用全局配置
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Ebay     EbayConfig     `mapstructure:"ebay"`
	Crypto   CryptoConfig   `mapstructure:"crypto"`
	Task     TaskConfig     `mapstructure:"task"`
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Port string `mapstructure:"port"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

// EbayConfig eBay 开放平台配置
type EbayConfig struct {
	ClientID     string   `mapstructure:"client_id"`
	ClientSecret string   `mapstructure:"client_secret"`
	RedirectURI  string   `mapstructure:"redirect_uri"`
	Scopes       []string `mapstructure:"scopes"`
	AuthURL      string   `mapstructure:"auth_url"`
	TokenURL     string   `mapstructure:"token_url"`
	APIBaseURL   string   `mapstructure:"api_base_url"`
}

// CryptoConfig Token 加密配置
// token_key 由外部密钥管理下发，禁止写入代码仓库
type CryptoConfig struct {
	TokenKey string `mapstructure:"token_key"`
}

// TaskConfig 后台任务配置
type TaskConfig struct {
	OrderSyncEnabled    bool   `mapstructure:"order_sync_enabled"`
	OrderSyncCron       string `mapstructure:"order_sync_cron"`
	OrderConcurrency    int    `mapstructure:"order_concurrency"`
	TokenRefreshEnabled bool   `mapstructure:"token_refresh_enabled"`
	TokenRefreshCron    string `mapstructure:"token_refresh_cron"`
}

// Load 加载配置
// 优先级：环境变量 (EBOOKS_ 前缀) > config.yaml > 默认值
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if path != "" {
		v.AddConfigPath(path)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("EBOOKS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// 配置文件可选，全部走环境变量也允许
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("database.dsn", "host=localhost user=ebooks password=ebooks dbname=ebay_books port=5432 sslmode=disable")

	v.SetDefault("ebay.auth_url", "https://auth.ebay.com/oauth2/authorize")
	v.SetDefault("ebay.token_url", "https://api.ebay.com/identity/v1/oauth2/token")
	v.SetDefault("ebay.api_base_url", "https://api.ebay.com")
	v.SetDefault("ebay.scopes", []string{
		"https://api.ebay.com/oauth/api_scope",
		"https://api.ebay.com/oauth/api_scope/sell.fulfillment.readonly",
		"https://api.ebay.com/oauth/api_scope/commerce.identity.readonly",
	})

	v.SetDefault("task.order_sync_enabled", true)
	v.SetDefault("task.order_sync_cron", "0 */30 * * * *")
	v.SetDefault("task.order_concurrency", 10)
	v.SetDefault("task.token_refresh_enabled", true)
	v.SetDefault("task.token_refresh_cron", "0 0/40 * * * *")
}
