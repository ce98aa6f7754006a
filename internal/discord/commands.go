package discord

import (
	"errors"
	"strings"

	"github.com/bwmarrin/discordgo"
)

const nicknameOption = "nickname"

// JoinCommand /join 斜杠命令定义
func JoinCommand(name string, amountCents int64) *discordgo.ApplicationCommand {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "join"
	}
	return &discordgo.ApplicationCommand{
		Name:        name,
		Description: "Participar do evento (gera PIX de R$" + FormatBRL(amountCents) + ")",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        nicknameOption,
				Description: "Seu nickname/ID para a liberação",
				Required:    true,
				MaxLength:   64,
			},
		},
	}
}

type commandRegistrar interface {
	ApplicationCommandBulkOverwrite(appID string, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
}

// RegisterCommands 覆盖写入服务器级命令
func RegisterCommands(api commandRegistrar, appID, guildID string, commands ...*discordgo.ApplicationCommand) ([]*discordgo.ApplicationCommand, error) {
	appID = strings.TrimSpace(appID)
	guildID = strings.TrimSpace(guildID)
	if appID == "" || guildID == "" {
		return nil, errors.New("discord app_id and guild_id are required")
	}
	return api.ApplicationCommandBulkOverwrite(appID, guildID, commands)
}
