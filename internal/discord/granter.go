package discord

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pixjoin/internal/logger"
	"github.com/pixjoin/internal/service"

	"github.com/bwmarrin/discordgo"
)

// ErrMissingManageRoles 机器人缺少 Manage Roles 权限
var ErrMissingManageRoles = errors.New("bot lacks manage roles permission")

type grantAPI interface {
	User(userID string, options ...discordgo.RequestOption) (*discordgo.User, error)
	Guild(guildID string, options ...discordgo.RequestOption) (*discordgo.Guild, error)
	GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error)
	GuildRoles(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Role, error)
	GuildMemberRoleAdd(guildID, userID, roleID string, options ...discordgo.RequestOption) error
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Granter 结算后为用户添加服务器角色并私信通知
type Granter struct {
	api     grantAPI
	guildID string
	roleID  string
}

// NewGranter 创建 Discord 权益发放器
func NewGranter(api grantAPI, guildID, roleID string) *Granter {
	return &Granter{
		api:     api,
		guildID: strings.TrimSpace(guildID),
		roleID:  strings.TrimSpace(roleID),
	}
}

// Grant 校验权限后添加角色，私信失败只记录日志
func (g *Granter) Grant(ctx context.Context, grant service.AccessGrant) error {
	if g == nil || g.api == nil || g.guildID == "" || g.roleID == "" {
		return service.ErrGranterUnavailable
	}
	log := logger.SW("reference_code", grant.ReferenceCode, "requester_id", grant.RequesterID, "guild_id", g.guildID)
	reqOpts := []discordgo.RequestOption{discordgo.WithContext(ctx)}

	guild, err := g.api.Guild(g.guildID, reqOpts...)
	if err != nil {
		return fmt.Errorf("%w: fetch guild: %w", service.ErrGrantFailed, err)
	}
	canManage, err := g.botCanManageRoles(guild, reqOpts)
	if err != nil {
		return fmt.Errorf("%w: resolve bot permissions: %w", service.ErrGrantFailed, err)
	}
	if !canManage {
		log.Errorw("discord_grant_missing_manage_roles")
		return fmt.Errorf("%w: %w", service.ErrGrantFailed, ErrMissingManageRoles)
	}
	if err := g.api.GuildMemberRoleAdd(g.guildID, grant.RequesterID, g.roleID, reqOpts...); err != nil {
		return fmt.Errorf("%w: add role: %w", service.ErrGrantFailed, err)
	}
	log.Infow("discord_grant_role_added", "role_id", g.roleID)

	channel, err := g.api.UserChannelCreate(grant.RequesterID, reqOpts...)
	if err == nil {
		_, err = g.api.ChannelMessageSend(channel.ID, grantedMessage(guild.Name), reqOpts...)
	}
	if err != nil {
		log.Warnw("discord_grant_dm_failed", "error", err)
	}
	return nil
}

func (g *Granter) botCanManageRoles(guild *discordgo.Guild, reqOpts []discordgo.RequestOption) (bool, error) {
	me, err := g.api.User("@me", reqOpts...)
	if err != nil {
		return false, err
	}
	if guild.OwnerID != "" && guild.OwnerID == me.ID {
		return true, nil
	}
	member, err := g.api.GuildMember(g.guildID, me.ID, reqOpts...)
	if err != nil {
		return false, err
	}
	roles, err := g.api.GuildRoles(g.guildID, reqOpts...)
	if err != nil {
		return false, err
	}
	perms := memberPermissions(g.guildID, member, roles)
	return perms&discordgo.PermissionAdministrator != 0 || perms&discordgo.PermissionManageRoles != 0, nil
}

// memberPermissions @everyone 角色与成员角色权限按位或
func memberPermissions(guildID string, member *discordgo.Member, roles []*discordgo.Role) int64 {
	assigned := make(map[string]struct{}, len(member.Roles)+1)
	assigned[guildID] = struct{}{}
	for _, id := range member.Roles {
		assigned[id] = struct{}{}
	}
	var perms int64
	for _, role := range roles {
		if role == nil {
			continue
		}
		if _, ok := assigned[role.ID]; ok {
			perms |= role.Permissions
		}
	}
	return perms
}
