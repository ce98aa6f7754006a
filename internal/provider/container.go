package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/pixjoin/internal/cache"
	"github.com/pixjoin/internal/config"
	"github.com/pixjoin/internal/constants"
	"github.com/pixjoin/internal/discord"
	"github.com/pixjoin/internal/logger"
	"github.com/pixjoin/internal/models"
	"github.com/pixjoin/internal/payment"
	"github.com/pixjoin/internal/payment/mercadopago"
	"github.com/pixjoin/internal/payment/mock"
	"github.com/pixjoin/internal/queue"
	"github.com/pixjoin/internal/repository"
	"github.com/pixjoin/internal/service"

	"github.com/bwmarrin/discordgo"
)

// Container 依赖注入容器
type Container struct {
	Config         *config.Config
	QueueClient    *queue.Client
	DiscordSession *discordgo.Session

	// Repositories
	PaymentRepo      repository.PaymentRepository
	WebhookEventRepo repository.WebhookEventRepository

	// Payment
	PaymentProvider payment.Provider

	// Grant
	DirectGranter service.AccessGranter
	Granter       service.AccessGranter

	// Services
	PaymentService *service.PaymentService
	AuthService    *service.AuthService
}

// NewContainer 创建依赖注入容器
func NewContainer(cfg *config.Config) (*Container, error) {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	} else if cache.Enabled() {
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := cache.Ping(pingCtx); err != nil {
			// 购买冷却在 redis 不可达时放行，仅告警
			logger.Warnw("provider_redis_ping_failed", "error", err)
		}
		cancel()
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	paymentProvider, err := newPaymentProvider(cfg)
	if err != nil {
		return nil, err
	}

	c := &Container{
		Config:          cfg,
		QueueClient:     queueClient,
		PaymentProvider: paymentProvider,
	}

	if cfg.Discord.Token != "" {
		session, err := discord.NewSession(&cfg.Discord)
		if err != nil {
			logger.Errorw("provider_init_discord_session_failed", "error", err)
		} else {
			c.DiscordSession = session
		}
	} else {
		logger.Warnw("provider_discord_token_missing")
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Grant
	c.initGranters()

	// 3. 初始化 Services
	c.initServices()

	return c, nil
}

func (c *Container) initRepositories() {
	db := models.DB
	c.PaymentRepo = repository.NewPaymentRepository(db)
	c.WebhookEventRepo = repository.NewWebhookEventRepository(db)
}

func (c *Container) initGranters() {
	if c.DiscordSession != nil {
		c.DirectGranter = discord.NewGranter(c.DiscordSession, c.Config.Discord.GuildID, c.Config.Discord.RoleID)
	}
	c.Granter = service.NewQueueAccessGranter(c.QueueClient, c.DirectGranter)
}

func (c *Container) initServices() {
	cooldown := cache.NewJoinCooldown(time.Duration(c.Config.Discord.JoinCooldownSeconds) * time.Second)
	c.PaymentService = service.NewPaymentService(
		c.PaymentRepo,
		c.WebhookEventRepo,
		c.PaymentProvider,
		c.Granter,
		cooldown,
		service.PaymentServiceOptions{
			WebhookSecret:       c.Config.Payment.WebhookSecret,
			WebhookAuthPolicy:   c.Config.Payment.WebhookAuthPolicy,
			ExpectedAmountCents: c.Config.Payment.AmountCents,
			ReferencePrefix:     c.Config.Payment.ReferencePrefix,
			DescriptionPrefix:   c.Config.Payment.DescriptionPrefix,
		},
	)
	c.AuthService = service.NewAuthService(c.Config.Admin)
}

// newPaymentProvider 启动时按配置选定唯一渠道
func newPaymentProvider(cfg *config.Config) (payment.Provider, error) {
	switch cfg.Payment.Provider {
	case "", constants.PaymentProviderMock:
		return mock.New(), nil
	case constants.PaymentProviderMercadoPago:
		mp := cfg.Payment.MercadoPago
		return mercadopago.New(mercadopago.Config{
			AccessToken:     mp.AccessToken,
			APIBaseURL:      mp.APIBaseURL,
			NotificationURL: mp.NotificationURL,
			PayerEmail:      mp.PayerEmail,
			Timeout:         time.Duration(mp.TimeoutSeconds) * time.Second,
		})
	default:
		return nil, fmt.Errorf("unsupported payment provider: %s", cfg.Payment.Provider)
	}
}

// Close 释放外部连接
func (c *Container) Close() {
	if c == nil {
		return
	}
	if err := c.QueueClient.Close(); err != nil {
		logger.Warnw("provider_close_queue_client_failed", "error", err)
	}
	if err := cache.Close(); err != nil {
		logger.Warnw("provider_close_redis_failed", "error", err)
	}
}
