package main

import (
	"flag"
	"log"

	"github.com/pixjoin/internal/config"
	"github.com/pixjoin/internal/discord"
	"github.com/pixjoin/internal/logger"
)

// register 向配置的服务器发布 /join 命令，无需建立网关连接
func main() {
	var guildID string
	flag.StringVar(&guildID, "guild", "", "目标服务器 ID，缺省读取 discord.guild_id")
	flag.Parse()

	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())

	if cfg.Discord.AppID == "" {
		log.Fatalf("discord.app_id 未配置")
	}
	if guildID == "" {
		guildID = cfg.Discord.GuildID
	}

	session, err := discord.NewSession(&cfg.Discord)
	if err != nil {
		log.Fatalf("创建 Discord 会话失败: %v", err)
	}

	cmd := discord.JoinCommand(cfg.Discord.CommandName, cfg.Payment.AmountCents)
	created, err := discord.RegisterCommands(session, cfg.Discord.AppID, guildID, cmd)
	if err != nil {
		log.Fatalf("注册命令失败: %v", err)
	}
	for _, c := range created {
		logger.Infow("discord_command_registered", "name", c.Name, "id", c.ID, "guild_id", guildID)
	}
}
