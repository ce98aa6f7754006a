package discord

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/pixjoin/internal/logger"
	"github.com/pixjoin/internal/models"
	"github.com/pixjoin/internal/service"

	"github.com/bwmarrin/discordgo"
)

const defaultJoinTimeout = 45 * time.Second

// Purchaser 发起购买
type Purchaser interface {
	InitiatePurchase(ctx context.Context, input service.InitiatePurchaseInput) (*models.PaymentRecord, error)
	ExpectedAmountCents() int64
}

type interactionAPI interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	FollowupMessageCreate(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// JoinHandler 处理 /join：先临时回复确认，再在后台下单并投递 PIX
type JoinHandler struct {
	api         interactionAPI
	purchaser   Purchaser
	commandName string
	timeout     time.Duration
	async       bool
}

// NewJoinHandler 创建 /join 处理器
func NewJoinHandler(api interactionAPI, purchaser Purchaser, commandName string) *JoinHandler {
	commandName = strings.TrimSpace(commandName)
	if commandName == "" {
		commandName = "join"
	}
	return &JoinHandler{
		api:         api,
		purchaser:   purchaser,
		commandName: commandName,
		timeout:     defaultJoinTimeout,
		async:       true,
	}
}

// OnInteractionCreate discordgo 事件回调
func (h *JoinHandler) OnInteractionCreate(_ *discordgo.Session, event *discordgo.InteractionCreate) {
	if event == nil || event.Interaction == nil {
		return
	}
	h.Handle(event.Interaction)
}

// Handle 处理单次交互
func (h *JoinHandler) Handle(interaction *discordgo.Interaction) {
	if interaction.Type != discordgo.InteractionApplicationCommand {
		return
	}
	data := interaction.ApplicationCommandData()
	if data.Name != h.commandName {
		return
	}
	requester := interactionUser(interaction)
	if requester == nil {
		logger.Warnw("discord_join_missing_user", "interaction_id", interaction.ID)
		return
	}
	nickname := optionString(data.Options, nicknameOption)
	log := logger.SW("requester_id", requester.ID, "interaction_id", interaction.ID)

	// Discord 要求 3 秒内应答
	err := h.api.InteractionRespond(interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: ackMessage(h.purchaser.ExpectedAmountCents()),
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		log.Warnw("discord_join_ack_failed", "error", err)
		return
	}

	if h.async {
		go h.processJoin(interaction, requester.ID, nickname)
		return
	}
	h.processJoin(interaction, requester.ID, nickname)
}

func (h *JoinHandler) processJoin(interaction *discordgo.Interaction, requesterID, nickname string) {
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()
	log := logger.SW("requester_id", requesterID, "interaction_id", interaction.ID)

	record, err := h.purchaser.InitiatePurchase(ctx, service.InitiatePurchaseInput{
		RequesterID: requesterID,
		DisplayName: nickname,
	})
	if err != nil {
		log.Warnw("discord_join_purchase_failed", "error", err)
		h.followUp(interaction, purchaseErrorMessage(err), nil)
		return
	}
	log = log.With("reference_code", record.ReferenceCode)

	png, err := RenderQR(record.PayableString)
	if err != nil {
		log.Warnw("discord_join_qr_render_failed", "error", err)
		png = nil
	}

	if err := h.sendDM(requesterID, record, png); err != nil {
		log.Warnw("discord_join_dm_failed", "error", err)
		h.followUp(interaction, fallbackMessage(record.ReferenceCode, record.PayableString, record.AmountMinorUnits), nil)
		if len(png) > 0 {
			h.followUp(interaction, qrCaption, []*discordgo.File{qrFile(record.ReferenceCode, png)})
		}
		return
	}
	h.followUp(interaction, dmSentMessage, nil)
	log.Infow("discord_join_delivered")
}

func (h *JoinHandler) sendDM(requesterID string, record *models.PaymentRecord, png []byte) error {
	channel, err := h.api.UserChannelCreate(requesterID)
	if err != nil {
		return err
	}
	header := dmHeaderMessage(record.DisplayName, record.ReferenceCode, record.AmountMinorUnits)
	if _, err := h.api.ChannelMessageSendComplex(channel.ID, &discordgo.MessageSend{Content: header}); err != nil {
		return err
	}
	if len(png) > 0 {
		if _, err := h.api.ChannelMessageSendComplex(channel.ID, &discordgo.MessageSend{
			Files: []*discordgo.File{qrFile(record.ReferenceCode, png)},
		}); err != nil {
			return err
		}
	}
	_, err = h.api.ChannelMessageSendComplex(channel.ID, &discordgo.MessageSend{Content: copyPasteMessage(record.PayableString)})
	return err
}

func (h *JoinHandler) followUp(interaction *discordgo.Interaction, content string, files []*discordgo.File) {
	_, err := h.api.FollowupMessageCreate(interaction, true, &discordgo.WebhookParams{
		Content: content,
		Files:   files,
		Flags:   discordgo.MessageFlagsEphemeral,
	})
	if err != nil {
		logger.Warnw("discord_join_followup_failed", "interaction_id", interaction.ID, "error", err)
	}
}

func purchaseErrorMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrJoinCooldown):
		return cooldownMessage
	case errors.Is(err, service.ErrInvalidPurchaseInput):
		return nicknameMessage
	default:
		return chargeErrorMessage
	}
}

func interactionUser(interaction *discordgo.Interaction) *discordgo.User {
	if interaction.Member != nil && interaction.Member.User != nil {
		return interaction.Member.User
	}
	return interaction.User
}

func optionString(options []*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	for _, opt := range options {
		if opt != nil && opt.Name == name && opt.Type == discordgo.ApplicationCommandOptionString {
			return strings.TrimSpace(opt.StringValue())
		}
	}
	return ""
}
