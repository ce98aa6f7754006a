package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pixjoin/internal/constants"
	"github.com/pixjoin/internal/models"
	"github.com/pixjoin/internal/payment"
)

const (
	webhookRawBodyLimit = 4096
	grantTimeout        = 30 * time.Second
)

// ReconcileOutcome 回调对账结果
type ReconcileOutcome struct {
	Result        string // settled / ignored
	Reason        string
	ReferenceCode string
	Authenticated bool
	Record        *models.PaymentRecord
}

// Settled 是否由本次回调完成结算
func (o *ReconcileOutcome) Settled() bool {
	return o != nil && o.Result == constants.WebhookResultSettled
}

// Err 将忽略原因映射为哨兵错误，结算时返回 nil
func (o *ReconcileOutcome) Err() error {
	if o == nil || o.Result != constants.WebhookResultIgnored {
		return nil
	}
	switch o.Reason {
	case constants.IgnoreReasonRecordNotFound:
		return ErrRecordNotFound
	case constants.IgnoreReasonAlreadySettled:
		return ErrAlreadySettled
	case constants.IgnoreReasonNotConfirmed:
		return ErrNotConfirmed
	case constants.IgnoreReasonAmountMismatch:
		return ErrAmountMismatch
	case constants.IgnoreReasonMissingReference:
		return ErrMissingReference
	default:
		return nil
	}
}

func settledOutcome(record *models.PaymentRecord, authenticated bool) *ReconcileOutcome {
	return &ReconcileOutcome{
		Result:        constants.WebhookResultSettled,
		ReferenceCode: record.ReferenceCode,
		Authenticated: authenticated,
		Record:        record,
	}
}

func ignoredOutcome(reason, ref string, authenticated bool) *ReconcileOutcome {
	return &ReconcileOutcome{
		Result:        constants.WebhookResultIgnored,
		Reason:        reason,
		ReferenceCode: ref,
		Authenticated: authenticated,
	}
}

// HandleNotification 鉴权 -> 解析 -> 查单 -> 状态/金额校验 -> 条件结算 -> 发放权益
func (s *PaymentService) HandleNotification(ctx context.Context, req *payment.WebhookRequest) (*ReconcileOutcome, error) {
	if req == nil {
		req = &payment.WebhookRequest{}
	}
	log := paymentLogger("provider", s.ProviderName(), "body_size", len(req.Body))

	authenticated := s.auth.Authenticate(req, s.opts.WebhookSecret)
	if !authenticated {
		if s.opts.WebhookAuthPolicy == constants.WebhookAuthPolicyStrict && s.auth.Enforceable() {
			log.Warnw("payment_webhook_unauthenticated_rejected")
			s.recordWebhookEvent(req, nil, false, constants.WebhookResultUnauthenticated, "")
			return nil, ErrUnauthenticated
		}
		log.Warnw("payment_webhook_signature_invalid", "policy", s.opts.WebhookAuthPolicy)
	}

	notification, err := s.provider.ResolveNotification(ctx, req)
	if err != nil {
		log.Warnw("payment_webhook_unresolvable", "error", err)
		s.recordWebhookEvent(req, nil, authenticated, constants.WebhookResultUnresolvable, "")
		if errors.Is(err, ErrNotificationUnresolvable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrNotificationUnresolvable, err)
	}
	ref := strings.TrimSpace(notification.ReferenceCode)
	log = log.With(
		"reference_code", ref,
		"provider_txid", notification.ProviderTxID,
		"outcome", notification.Outcome,
		"amount_cents", notification.AmountCents,
	)
	log.Infow("payment_webhook_resolved", "authenticated", authenticated)

	outcome, err := s.reconcile(ctx, notification, ref, authenticated)
	if err != nil {
		log.Errorw("payment_webhook_reconcile_failed", "error", err)
		s.recordWebhookEvent(req, notification, authenticated, constants.WebhookResultFailed, "")
		return nil, err
	}
	s.recordWebhookEvent(req, notification, authenticated, outcome.Result, outcome.Reason)
	if outcome.Settled() {
		log.Infow("payment_webhook_settled")
	} else {
		log.Infow("payment_webhook_ignored", "reason", outcome.Reason)
	}
	return outcome, nil
}

func (s *PaymentService) reconcile(ctx context.Context, n *payment.Notification, ref string, authenticated bool) (*ReconcileOutcome, error) {
	if ref == "" {
		return ignoredOutcome(constants.IgnoreReasonMissingReference, ref, authenticated), nil
	}
	record, err := s.paymentRepo.GetByReference(ref)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPaymentLookupFailed, err)
	}
	if record == nil {
		return ignoredOutcome(constants.IgnoreReasonRecordNotFound, ref, authenticated), nil
	}
	if record.IsPaid() {
		return ignoredOutcome(constants.IgnoreReasonAlreadySettled, ref, authenticated), nil
	}
	if n.Outcome != constants.NotificationOutcomeConfirmed {
		return ignoredOutcome(constants.IgnoreReasonNotConfirmed, ref, authenticated), nil
	}
	if n.AmountCents != record.AmountMinorUnits {
		paymentLogger(
			"reference_code", ref,
			"expected_amount_cents", record.AmountMinorUnits,
			"callback_amount_cents", n.AmountCents,
		).Warnw("payment_webhook_amount_mismatch")
		return ignoredOutcome(constants.IgnoreReasonAmountMismatch, ref, authenticated), nil
	}

	// provider_txid 必须随 paid 一起落库，回调未带时沿用下单时的收款标识
	txid := strings.TrimSpace(n.ProviderTxID)
	if txid == "" && record.ChargeRef != nil {
		txid = strings.TrimSpace(*record.ChargeRef)
	}
	if txid == "" {
		txid = ref
	}
	won, err := s.paymentRepo.MarkPaid(ref, txid, s.now())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPaymentUpdateFailed, err)
	}
	if !won {
		// 并发回调中的落败方
		return ignoredOutcome(constants.IgnoreReasonAlreadySettled, ref, authenticated), nil
	}

	settled, err := s.paymentRepo.GetByReference(ref)
	if err != nil || settled == nil {
		paymentLogger("reference_code", ref).Warnw("payment_settled_reload_failed", "error", err)
		settled = record
		settled.Status = constants.PaymentStatusPaid
	}
	// 权益发放失败不回滚支付状态，也不影响回调应答；
	// 发放不随回调连接取消，PSP 断开后仍需完成
	grantCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), grantTimeout)
	defer cancel()
	_ = s.grant(grantCtx, settled)
	return settledOutcome(settled, authenticated), nil
}

func (s *PaymentService) recordWebhookEvent(req *payment.WebhookRequest, n *payment.Notification, authenticated bool, result, reason string) {
	if s.eventRepo == nil {
		return
	}
	event := &models.WebhookEvent{
		Provider:      s.ProviderName(),
		Authenticated: authenticated,
		Result:        result,
		Reason:        reason,
		Headers:       headersForLog(req),
		RawBody:       truncateUTF8(string(req.Body), webhookRawBodyLimit),
	}
	if n != nil {
		event.ReferenceCode = strings.TrimSpace(n.ReferenceCode)
		event.ProviderTxID = strings.TrimSpace(n.ProviderTxID)
	}
	if err := s.eventRepo.Create(event); err != nil {
		paymentLogger("reference_code", event.ReferenceCode, "result", result).Warnw("payment_webhook_event_save_failed", "error", err)
	}
}

func headersForLog(req *payment.WebhookRequest) models.JSON {
	out := models.JSON{}
	if req == nil {
		return out
	}
	for key, values := range req.Headers {
		if strings.EqualFold(key, "Authorization") || strings.EqualFold(key, "Cookie") {
			continue
		}
		out[key] = strings.Join(values, ",")
	}
	return out
}

func truncateUTF8(value string, limit int) string {
	value = strings.ToValidUTF8(value, "\uFFFD")
	if len(value) <= limit {
		return value
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(value[cut]) {
		cut--
	}
	return value[:cut]
}
