package discord

import (
	"context"
	"errors"
	"strings"

	"github.com/pixjoin/internal/config"
	"github.com/pixjoin/internal/logger"

	"github.com/bwmarrin/discordgo"
)

// NewSession 创建 Discord 会话；REST 调用无需建立网关连接
func NewSession(cfg *config.DiscordConfig) (*discordgo.Session, error) {
	if cfg == nil || strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("discord token is required")
	}
	session, err := discordgo.New("Bot " + strings.TrimSpace(cfg.Token))
	if err != nil {
		return nil, err
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsGuildMessages
	return session, nil
}

// BotService 维持网关连接并分发 /join
type BotService struct {
	name    string
	session *discordgo.Session
	join    *JoinHandler
	removes []func()
}

// NewBotService 创建机器人服务
func NewBotService(session *discordgo.Session, join *JoinHandler) (*BotService, error) {
	if session == nil {
		return nil, errors.New("discord session is nil")
	}
	if join == nil {
		return nil, errors.New("join handler is nil")
	}
	return &BotService{name: "discord", session: session, join: join}, nil
}

// Name 服务名称
func (s *BotService) Name() string {
	if s == nil || s.name == "" {
		return "discord"
	}
	return s.name
}

// Start 打开网关连接，阻塞至 ctx 结束
func (s *BotService) Start(ctx context.Context) error {
	if s == nil || s.session == nil {
		return errors.New("discord bot not initialized")
	}
	s.removes = append(s.removes,
		s.session.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
			logger.Infow("discord_bot_ready", "user", r.User.String(), "guilds", len(r.Guilds))
		}),
		s.session.AddHandler(s.join.OnInteractionCreate),
	)
	if err := s.session.Open(); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

// Stop 关闭网关连接
func (s *BotService) Stop(ctx context.Context) error {
	if s == nil || s.session == nil {
		return nil
	}
	_ = ctx
	for _, remove := range s.removes {
		remove()
	}
	s.removes = nil
	return s.session.Close()
}
