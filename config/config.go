package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	JWT         JWTConfig         `mapstructure:"jwt"`
	CORS        CORSConfig        `mapstructure:"cors"`
	Admin       AdminConfig       `mapstructure:"admin"`
	Payment     PaymentConfig     `mapstructure:"payment"`
	Catalog     CatalogConfig     `mapstructure:"catalog"`
	Entitlement EntitlementConfig `mapstructure:"entitlement"`
	Reminder    ReminderConfig    `mapstructure:"reminder"`
	Messaging   MessagingConfig   `mapstructure:"messaging"`
	Email       EmailConfig       `mapstructure:"email"`
	Queue       QueueConfig       `mapstructure:"queue"`
	OSS         OSSConfig         `mapstructure:"oss"`
	Sentry      SentryConfig      `mapstructure:"sentry"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

// AdminConfig 配置白名单管理员（除 JWT role=admin 之外）
type AdminConfig struct {
	UserIDs []int64 `mapstructure:"user_ids"`
}

type PaymentConfig struct {
	ReferenceMinLen int    `mapstructure:"reference_min_len"` // 交易码最短长度
	ReferenceMaxLen int    `mapstructure:"reference_max_len"` // 交易码最长长度
	LocalCurrency   string `mapstructure:"local_currency"`
	ForeignCurrency string `mapstructure:"foreign_currency"`
}

type CatalogConfig struct {
	CacheSize       int `mapstructure:"cache_size"`
	CacheTTLSeconds int `mapstructure:"cache_ttl_seconds"`
}

type EntitlementConfig struct {
	// 无订阅时的上传上限，必须是有限值
	DefaultUploadLimit int `mapstructure:"default_upload_limit"`
}

type ReminderConfig struct {
	RunHour        int    `mapstructure:"run_hour"` // 每日执行的小时（本地时区）
	Timezone       string `mapstructure:"timezone"`
	Channel        string `mapstructure:"channel"` // whatsapp, sms, email, log
	LockTTLSeconds int    `mapstructure:"lock_ttl_seconds"`
	BrandName      string `mapstructure:"brand_name"`
	RenewURL       string `mapstructure:"renew_url"`
}

type MessagingConfig struct {
	GatewayURL     string `mapstructure:"gateway_url"`
	APIToken       string `mapstructure:"api_token"`
	SenderID       string `mapstructure:"sender_id"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	// 网关限速，每秒请求数
	RatePerSecond float64 `mapstructure:"rate_per_second"`
	Burst         int     `mapstructure:"burst"`
}

type EmailConfig struct {
	SMTPHost string `mapstructure:"smtp_host"`
	SMTPPort int    `mapstructure:"smtp_port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type QueueConfig struct {
	NotificationQueue string `mapstructure:"notification_queue"`
	MaxWorkers        int    `mapstructure:"max_workers"`
}

type OSSConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	AccessKeySecret string `mapstructure:"access_key_secret"`
	BucketName      string `mapstructure:"bucket_name"`
	ReportPrefix    string `mapstructure:"report_prefix"`
	ReportURLHours  int    `mapstructure:"report_url_hours"`
}

type SentryConfig struct {
	DSN         string `mapstructure:"dsn"`
	Environment string `mapstructure:"environment"`
}

func Load(configPath string) (*Config, error) {
	// .env 可选，用于放置密钥
	_ = godotenv.Load()

	// 优先尝试读取 config.local.yaml（包含真实密钥，不提交到git）
	dir := filepath.Dir(configPath)
	localConfigPath := filepath.Join(dir, "config.local.yaml")

	if _, err := os.Stat(localConfigPath); err == nil {
		configPath = localConfigPath
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	// 环境变量覆盖
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults 填充未配置的默认值
func (c *Config) ApplyDefaults() {
	if c.Payment.ReferenceMinLen <= 0 {
		c.Payment.ReferenceMinLen = 8
	}
	if c.Payment.ReferenceMaxLen < c.Payment.ReferenceMinLen {
		c.Payment.ReferenceMaxLen = 12
		if c.Payment.ReferenceMaxLen < c.Payment.ReferenceMinLen {
			c.Payment.ReferenceMaxLen = c.Payment.ReferenceMinLen
		}
	}
	if c.Payment.LocalCurrency == "" {
		c.Payment.LocalCurrency = "KES"
	}
	if c.Payment.ForeignCurrency == "" {
		c.Payment.ForeignCurrency = "USD"
	}
	if c.Catalog.CacheSize <= 0 {
		c.Catalog.CacheSize = 64
	}
	if c.Catalog.CacheTTLSeconds <= 0 {
		c.Catalog.CacheTTLSeconds = 60
	}
	if c.Entitlement.DefaultUploadLimit < 0 {
		c.Entitlement.DefaultUploadLimit = 0
	}
	if c.Reminder.RunHour < 0 || c.Reminder.RunHour > 23 {
		c.Reminder.RunHour = 9
	}
	if c.Reminder.Timezone == "" {
		c.Reminder.Timezone = "Africa/Nairobi"
	}
	if c.Reminder.Channel == "" {
		c.Reminder.Channel = "log"
	}
	if c.Reminder.LockTTLSeconds <= 0 {
		c.Reminder.LockTTLSeconds = 600
	}
	if c.Reminder.BrandName == "" {
		c.Reminder.BrandName = "Listings"
	}
	if c.Messaging.TimeoutSeconds <= 0 {
		c.Messaging.TimeoutSeconds = 10
	}
	if c.Messaging.RatePerSecond <= 0 {
		c.Messaging.RatePerSecond = 5
	}
	if c.Messaging.Burst <= 0 {
		c.Messaging.Burst = 1
	}
	if c.Queue.NotificationQueue == "" {
		c.Queue.NotificationQueue = "subscription_notices"
	}
	if c.Queue.MaxWorkers <= 0 {
		c.Queue.MaxWorkers = 2
	}
	if c.JWT.ExpireHours <= 0 {
		c.JWT.ExpireHours = 24
	}
	if c.OSS.ReportPrefix == "" {
		c.OSS.ReportPrefix = "reminder-sweeps"
	}
	if c.OSS.ReportURLHours <= 0 {
		c.OSS.ReportURLHours = 7 * 24
	}
}

// IsAdminID 判断用户是否在管理员白名单中
func (c *Config) IsAdminID(userID int64) bool {
	for _, id := range c.Admin.UserIDs {
		if id == userID {
			return true
		}
	}
	return false
}
