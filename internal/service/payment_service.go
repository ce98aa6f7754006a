package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pixjoin/internal/constants"
	"github.com/pixjoin/internal/logger"
	"github.com/pixjoin/internal/models"
	"github.com/pixjoin/internal/payment"
	"github.com/pixjoin/internal/payment/webhookauth"
	"github.com/pixjoin/internal/repository"

	"go.uber.org/zap"
)

const (
	defaultReferencePrefix = "EVT5"
	referenceRandomLength  = 6
	maxDisplayNameRunes    = 64
)

// AccessGrant 支付结算后需要下发的权益
type AccessGrant struct {
	ReferenceCode string
	RequesterID   string
	DisplayName   string
}

// AccessGranter 下游权益发放（Discord 角色 + 私信）
type AccessGranter interface {
	Grant(ctx context.Context, grant AccessGrant) error
}

// JoinLimiter 发起购买的频率限制
type JoinLimiter interface {
	Allow(ctx context.Context, requesterID string) (bool, error)
}

// PaymentServiceOptions 支付服务运行参数
type PaymentServiceOptions struct {
	WebhookSecret       string
	WebhookAuthPolicy   string
	ExpectedAmountCents int64
	ReferencePrefix     string
	DescriptionPrefix   string
}

// PaymentService 购买发起与回调对账服务
type PaymentService struct {
	paymentRepo repository.PaymentRepository
	eventRepo   repository.WebhookEventRepository
	provider    payment.Provider
	auth        webhookauth.Authenticator
	granter     AccessGranter
	limiter     JoinLimiter
	opts        PaymentServiceOptions
	now         func() time.Time
}

// NewPaymentService 创建支付服务
func NewPaymentService(paymentRepo repository.PaymentRepository, eventRepo repository.WebhookEventRepository, provider payment.Provider, granter AccessGranter, limiter JoinLimiter, opts PaymentServiceOptions) *PaymentService {
	if strings.TrimSpace(opts.ReferencePrefix) == "" {
		opts.ReferencePrefix = defaultReferencePrefix
	}
	if opts.WebhookAuthPolicy == "" {
		opts.WebhookAuthPolicy = constants.WebhookAuthPolicySoft
	}
	var auth webhookauth.Authenticator = webhookauth.HMACAuthenticator{}
	if provider != nil {
		auth = webhookauth.ForProvider(provider.Name())
	}
	return &PaymentService{
		paymentRepo: paymentRepo,
		eventRepo:   eventRepo,
		provider:    provider,
		auth:        auth,
		granter:     granter,
		limiter:     limiter,
		opts:        opts,
		now:         time.Now,
	}
}

// ProviderName 当前渠道标识
func (s *PaymentService) ProviderName() string {
	if s.provider == nil {
		return ""
	}
	return s.provider.Name()
}

// ExpectedAmountCents 当前售价（分）
func (s *PaymentService) ExpectedAmountCents() int64 {
	return s.opts.ExpectedAmountCents
}

// InitiatePurchaseInput 发起购买参数
type InitiatePurchaseInput struct {
	RequesterID string
	DisplayName string
	AmountCents int64
}

// InitiatePurchase 生成单号、向渠道下单，成功后落库 pending 记录
func (s *PaymentService) InitiatePurchase(ctx context.Context, input InitiatePurchaseInput) (*models.PaymentRecord, error) {
	requesterID := strings.TrimSpace(input.RequesterID)
	displayName := normalizeDisplayName(input.DisplayName)
	amount := input.AmountCents
	if amount <= 0 {
		amount = s.opts.ExpectedAmountCents
	}
	if requesterID == "" || displayName == "" || amount <= 0 {
		return nil, ErrInvalidPurchaseInput
	}
	log := paymentLogger("requester_id", requesterID, "amount_cents", amount)

	if s.limiter != nil {
		allowed, err := s.limiter.Allow(ctx, requesterID)
		if err != nil {
			log.Warnw("payment_join_limiter_failed", "error", err)
		} else if !allowed {
			log.Infow("payment_join_cooldown_hit")
			return nil, ErrJoinCooldown
		}
	}

	ref := s.newReferenceCode(requesterID)
	log = log.With("reference_code", ref, "provider", s.provider.Name())

	charge, err := s.provider.CreateCharge(ctx, payment.ChargeInput{
		ReferenceCode: ref,
		AmountCents:   amount,
		Description:   s.describe(displayName),
	})
	if err != nil {
		log.Warnw("payment_charge_create_failed", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrChargeCreationFailed, err)
	}

	record := &models.PaymentRecord{
		ReferenceCode:    ref,
		RequesterID:      requesterID,
		DisplayName:      displayName,
		AmountMinorUnits: amount,
		Status:           constants.PaymentStatusPending,
		Provider:         s.provider.Name(),
		PayableString:    charge.PayableString,
	}
	if txid := strings.TrimSpace(charge.ProviderTxID); txid != "" {
		record.ChargeRef = &txid
	}
	if err := s.paymentRepo.Create(record); err != nil {
		log.Errorw("payment_record_create_failed", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrPaymentCreateFailed, err)
	}
	log.Infow("payment_purchase_initiated", "charge_ref", charge.ProviderTxID)
	return record, nil
}

func (s *PaymentService) describe(displayName string) string {
	prefix := strings.TrimSpace(s.opts.DescriptionPrefix)
	if prefix == "" {
		return displayName
	}
	return prefix + " - " + displayName
}

// newReferenceCode 单号格式：前缀-毫秒时间戳(36进制)-用户ID后4位-随机串
func (s *PaymentService) newReferenceCode(requesterID string) string {
	millis := strconv.FormatInt(s.now().UnixMilli(), 36)
	tail := requesterID
	if len(tail) > 4 {
		tail = tail[len(tail)-4:]
	}
	return fmt.Sprintf("%s-%s-%s-%s", s.opts.ReferencePrefix, millis, tail, randBase36(referenceRandomLength))
}

func randBase36(length int) string {
	var b strings.Builder
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(36))
		if err != nil {
			b.WriteString("0")
			continue
		}
		b.WriteString(strconv.FormatInt(n.Int64(), 36))
	}
	return b.String()
}

func normalizeDisplayName(raw string) string {
	name := strings.Join(strings.Fields(raw), " ")
	if utf8.RuneCountInString(name) > maxDisplayNameRunes {
		runes := []rune(name)
		name = string(runes[:maxDisplayNameRunes])
	}
	return name
}

// Regrant 对已支付记录重新下发权益
func (s *PaymentService) Regrant(ctx context.Context, referenceCode string) (*models.PaymentRecord, error) {
	record, err := s.paymentRepo.GetByReference(referenceCode)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPaymentLookupFailed, err)
	}
	if record == nil {
		return nil, ErrRecordNotFound
	}
	if !record.IsPaid() {
		return record, ErrPaymentNotPaid
	}
	if err := s.grant(ctx, record); err != nil {
		return record, err
	}
	return record, nil
}

func (s *PaymentService) grant(ctx context.Context, record *models.PaymentRecord) error {
	log := paymentLogger("reference_code", record.ReferenceCode, "requester_id", record.RequesterID)
	if s.granter == nil {
		log.Warnw("payment_grant_skipped_no_granter")
		return ErrGranterUnavailable
	}
	err := s.granter.Grant(ctx, AccessGrant{
		ReferenceCode: record.ReferenceCode,
		RequesterID:   record.RequesterID,
		DisplayName:   record.DisplayName,
	})
	if err != nil {
		log.Errorw("payment_grant_failed", "error", err)
		if errors.Is(err, ErrGrantFailed) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrGrantFailed, err)
	}
	log.Infow("payment_grant_dispatched")
	return nil
}

func paymentLogger(kv ...interface{}) *zap.SugaredLogger {
	if len(kv) == 0 {
		return logger.S()
	}
	return logger.SW(kv...)
}
