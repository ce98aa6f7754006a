package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pixjoin/internal/logger"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Queue    QueueConfig    `mapstructure:"queue"`
	Payment  PaymentConfig  `mapstructure:"payment"`
	Discord  DiscordConfig  `mapstructure:"discord"`
	Admin    AdminConfig    `mapstructure:"admin"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port" validate:"required"`
	Mode string `mapstructure:"mode" validate:"oneof=debug release"`
}

// LogConfig 日志配置
type LogConfig struct {
	Dir        string `mapstructure:"dir"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// ToLoggerOptions 转换为 logger 配置
func (c LogConfig) ToLoggerOptions() logger.Options {
	return logger.Options{
		Dir:        c.Dir,
		Filename:   c.Filename,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
	}
}

// DatabasePoolConfig 数据库连接池配置
type DatabasePoolConfig struct {
	MaxOpenConns           int `mapstructure:"max_open_conns"`
	MaxIdleConns           int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSeconds int `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTimeSeconds int `mapstructure:"conn_max_idle_time_seconds"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver string             `mapstructure:"driver" validate:"oneof=sqlite postgres postgresql"`
	DSN    string             `mapstructure:"dsn" validate:"required"`
	Pool   DatabasePoolConfig `mapstructure:"pool"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// QueueConfig 异步队列配置
type QueueConfig struct {
	Enabled     bool           `mapstructure:"enabled"`
	Host        string         `mapstructure:"host"`
	Port        int            `mapstructure:"port"`
	Password    string         `mapstructure:"password"`
	DB          int            `mapstructure:"db"`
	Concurrency int            `mapstructure:"concurrency"`
	Queues      map[string]int `mapstructure:"queues"`
}

// PaymentConfig 支付配置
type PaymentConfig struct {
	Provider          string            `mapstructure:"provider" validate:"oneof=mock mercadopago"`
	WebhookSecret     string            `mapstructure:"webhook_secret"`
	WebhookAuthPolicy string            `mapstructure:"webhook_auth_policy" validate:"oneof=soft strict"`
	AmountCents       int64             `mapstructure:"amount_cents" validate:"gt=0"`
	DescriptionPrefix string            `mapstructure:"description_prefix"`
	ReferencePrefix   string            `mapstructure:"reference_prefix" validate:"required,alphanum,max=12"`
	MercadoPago       MercadoPagoConfig `mapstructure:"mercadopago"`
}

// MercadoPagoConfig Mercado Pago 凭据配置
type MercadoPagoConfig struct {
	AccessToken     string `mapstructure:"access_token"`
	APIBaseURL      string `mapstructure:"api_base_url" validate:"omitempty,url"`
	NotificationURL string `mapstructure:"notification_url" validate:"omitempty,url"`
	PayerEmail      string `mapstructure:"payer_email" validate:"omitempty,email"`
	TimeoutSeconds  int    `mapstructure:"timeout_seconds"`
}

// DiscordConfig Discord 机器人配置
type DiscordConfig struct {
	Token               string `mapstructure:"token"`
	AppID               string `mapstructure:"app_id"`
	GuildID             string `mapstructure:"guild_id"`
	RoleID              string `mapstructure:"role_id"`
	CommandName         string `mapstructure:"command_name" validate:"required"`
	JoinCooldownSeconds int    `mapstructure:"join_cooldown_seconds"`
}

// AdminConfig 管理接口配置
type AdminConfig struct {
	JWTSecret        string `mapstructure:"jwt_secret"`
	TokenExpireHours int    `mapstructure:"token_expire_hours"`
	Username         string `mapstructure:"username"`
	PasswordHash     string `mapstructure:"password_hash"`
	RateLimitWindow  int    `mapstructure:"rate_limit_window_seconds"`
	RateLimitMax     int    `mapstructure:"rate_limit_max_requests"`
}

// legacyEnvAliases 兼容早期 .env 变量名
var legacyEnvAliases = map[string][]string{
	"discord.token":                    {"DISCORD_TOKEN"},
	"discord.app_id":                   {"DISCORD_APP_ID"},
	"discord.guild_id":                 {"GUILD_ID"},
	"discord.role_id":                  {"ROLE_ID"},
	"server.port":                      {"PORT"},
	"payment.webhook_secret":           {"WEBHOOK_SECRET"},
	"payment.provider":                 {"PSP_PROVIDER"},
	"payment.mercadopago.access_token": {"PSP_ACCESS_TOKEN"},
}

// Load 加载配置：.env -> config.yml -> 环境变量
func Load() *Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warnw("dotenv_load_failed", "error", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("../")
	v.AddConfigPath("./etc")

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for key, aliases := range legacyEnvAliases {
		args := append([]string{key, strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, aliases...)
		_ = v.BindEnv(args...)
	}

	if err := v.ReadInConfig(); err != nil {
		logger.Warnw("config_file_read_failed",
			"error", err,
			"fallback", "env_or_defaults",
		)
	} else {
		logger.Infow("config_file_loaded", "file", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		logger.Errorw("config_unmarshal_failed", "error", err)
		panic(fmt.Errorf("配置解析失败: %w", err))
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		logger.Errorw("config_validate_failed", "error", err)
		panic(fmt.Errorf("配置校验失败: %w", err))
	}
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "10000")
	v.SetDefault("server.mode", "release")
	v.SetDefault("log.dir", "")
	v.SetDefault("log.filename", "pixjoin.log")
	v.SetDefault("log.max_size_mb", 50)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 14)
	v.SetDefault("log.compress", true)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./db/pixjoin.db")
	v.SetDefault("database.pool.max_open_conns", 1)
	v.SetDefault("database.pool.max_idle_conns", 1)
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "pixjoin")
	v.SetDefault("queue.enabled", false)
	v.SetDefault("queue.host", "127.0.0.1")
	v.SetDefault("queue.port", 6379)
	v.SetDefault("queue.db", 1)
	v.SetDefault("queue.concurrency", 5)
	v.SetDefault("queue.queues", map[string]int{
		"default":  5,
		"critical": 10,
	})
	v.SetDefault("payment.provider", "mock")
	v.SetDefault("payment.webhook_secret", "")
	v.SetDefault("payment.webhook_auth_policy", "soft")
	v.SetDefault("payment.amount_cents", 500)
	v.SetDefault("payment.description_prefix", "Ingresso evento")
	v.SetDefault("payment.reference_prefix", "EVT5")
	v.SetDefault("payment.mercadopago.api_base_url", "https://api.mercadopago.com")
	v.SetDefault("payment.mercadopago.timeout_seconds", 15)
	v.SetDefault("discord.command_name", "join")
	v.SetDefault("discord.join_cooldown_seconds", 30)
	v.SetDefault("admin.jwt_secret", "")
	v.SetDefault("admin.token_expire_hours", 12)
	v.SetDefault("admin.username", "admin")
	v.SetDefault("admin.password_hash", "")
	v.SetDefault("admin.rate_limit_window_seconds", 60)
	v.SetDefault("admin.rate_limit_max_requests", 120)
}

func (c *Config) normalize() {
	c.Server.Mode = strings.ToLower(strings.TrimSpace(c.Server.Mode))
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	c.Payment.Provider = strings.ToLower(strings.TrimSpace(c.Payment.Provider))
	c.Payment.WebhookAuthPolicy = strings.ToLower(strings.TrimSpace(c.Payment.WebhookAuthPolicy))
	c.Payment.WebhookSecret = strings.TrimSpace(c.Payment.WebhookSecret)
	c.Payment.ReferencePrefix = strings.ToUpper(strings.TrimSpace(c.Payment.ReferencePrefix))
	c.Payment.MercadoPago.AccessToken = strings.TrimSpace(c.Payment.MercadoPago.AccessToken)
	c.Payment.MercadoPago.APIBaseURL = strings.TrimRight(strings.TrimSpace(c.Payment.MercadoPago.APIBaseURL), "/")
	c.Discord.Token = strings.TrimSpace(c.Discord.Token)
	c.Discord.CommandName = strings.ToLower(strings.TrimSpace(c.Discord.CommandName))
}

// Validate 校验配置取值
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	if c.Payment.Provider == "mercadopago" && c.Payment.MercadoPago.AccessToken == "" {
		return errors.New("payment.mercadopago.access_token is required when provider is mercadopago")
	}
	// mock 走 HMAC 签名校验，strict 且无密钥时所有回调都会被拒绝
	if c.Payment.WebhookAuthPolicy == "strict" && c.Payment.Provider == "mock" && c.Payment.WebhookSecret == "" {
		return errors.New("payment.webhook_secret is required when webhook_auth_policy is strict for provider mock")
	}
	return nil
}
