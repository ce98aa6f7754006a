package app

import (
	"errors"
	"fmt"

	"github.com/pixjoin/internal/config"
	"github.com/pixjoin/internal/discord"
	"github.com/pixjoin/internal/logger"
	"github.com/pixjoin/internal/provider"
	"github.com/pixjoin/internal/router"
	"github.com/pixjoin/internal/worker"
)

// BuildRunner 构建服务运行器
func BuildRunner(cfg *config.Config, mode string) (*Runner, *provider.Container, error) {
	if cfg == nil {
		return nil, nil, errors.New("config is nil")
	}
	if !ValidMode(mode) {
		return nil, nil, fmt.Errorf("unknown mode: %s", mode)
	}

	container, err := provider.NewContainer(cfg)
	if err != nil {
		return nil, nil, err
	}
	services, err := buildServices(cfg, mode, container)
	if err != nil {
		container.Close()
		return nil, nil, err
	}
	return NewRunner(services...), container, nil
}

func buildServices(cfg *config.Config, mode string, container *provider.Container) ([]Service, error) {
	var services []Service

	// 初始化 HTTP 服务
	if mode == ModeAll || mode == ModeAPI {
		engine := router.SetupRouter(cfg, container)
		addr := cfg.Server.Host + ":" + cfg.Server.Port
		services = append(services, NewHTTPService(addr, engine))
	}

	// 初始化 Worker 服务；all 模式下未启用队列时权益直接同步发放
	if mode == ModeWorker || (mode == ModeAll && cfg.Queue.Enabled) {
		consumer := worker.NewConsumer(container)
		workerService, err := worker.NewService(&cfg.Queue, consumer)
		if err != nil {
			return nil, err
		}
		services = append(services, workerService)
	}

	// 初始化 Discord 网关
	if mode == ModeAll || mode == ModeBot {
		if container.DiscordSession == nil {
			return nil, errors.New("discord.token is required to run the bot")
		}
		join := discord.NewJoinHandler(container.DiscordSession, container.PaymentService, cfg.Discord.CommandName)
		botService, err := discord.NewBotService(container.DiscordSession, join)
		if err != nil {
			return nil, err
		}
		services = append(services, botService)
	}

	if len(services) == 0 {
		return nil, errors.New("no services initialized (check mode and config)")
	}
	return services, nil
}

// Run 应用启动入口
func Run(opts Options) error {
	opts = normalizeOptions(opts)
	if opts.Config == nil {
		return errors.New("config is nil")
	}

	runner, container, err := BuildRunner(opts.Config, opts.Mode)
	if err != nil {
		return err
	}
	defer container.Close()

	addr := opts.Config.Server.Host + ":" + opts.Config.Server.Port
	opts.Logger.Infow("app_start",
		"addr", addr,
		"mode", opts.Mode,
		"services", runner.Names(),
		"payment_provider", container.PaymentService.ProviderName(),
		"amount_cents", opts.Config.Payment.AmountCents,
		"queue_enabled", container.QueueClient.Enabled(),
	)
	if opts.Config.Payment.WebhookSecret == "" {
		logger.Warnw("app_webhook_secret_missing", "policy", opts.Config.Payment.WebhookAuthPolicy)
	}
	return RunWithOptions(runner, opts)
}
