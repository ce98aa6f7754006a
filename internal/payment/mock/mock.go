// Package mock 提供本地联调使用的内存 PIX 渠道。
package mock

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/pixjoin/internal/constants"
	"github.com/pixjoin/internal/payment"

	"github.com/shopspring/decimal"
)

const (
	txidPrefix      = "MOCK-"
	merchantName    = "EVENTO DISCORD"
	merchantCity    = "SAO PAULO"
	confirmedStatus = "CONFIRMED"
)

// ChargeState 内存中保存的收款
type ChargeState struct {
	TxID          string
	AmountCents   int64
	Status        string
	PayableString string
}

// Provider 内存收款渠道
type Provider struct {
	mu      sync.Mutex
	charges map[string]ChargeState
}

// New 创建 mock 渠道
func New() *Provider {
	return &Provider{charges: make(map[string]ChargeState)}
}

// Name 渠道标识
func (p *Provider) Name() string {
	return constants.PaymentProviderMock
}

// CreateCharge 生成伪造的 txid 与 PIX 复制粘贴码，不访问网络
func (p *Provider) CreateCharge(ctx context.Context, input payment.ChargeInput) (*payment.Charge, error) {
	ref := strings.TrimSpace(input.ReferenceCode)
	if ref == "" || input.AmountCents <= 0 {
		return nil, fmt.Errorf("%w: reference and positive amount required", payment.ErrProviderRejected)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", payment.ErrProviderUnavailable, err)
	}
	txid, err := newTxID()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", payment.ErrProviderUnavailable, err)
	}
	payable := BuildPayableString(ref, input.AmountCents)

	p.mu.Lock()
	p.charges[ref] = ChargeState{
		TxID:          txid,
		AmountCents:   input.AmountCents,
		Status:        "PENDING",
		PayableString: payable,
	}
	p.mu.Unlock()

	return &payment.Charge{ProviderTxID: txid, PayableString: payable}, nil
}

// Lookup 查询内存收款，便于测试断言
func (p *Provider) Lookup(referenceCode string) (ChargeState, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	state, ok := p.charges[referenceCode]
	return state, ok
}

// webhookBody mock 回调结构 {ref, txid, amount_cents, status}
type webhookBody struct {
	Ref         string          `json:"ref"`
	TxID        string          `json:"txid"`
	AmountCents json.RawMessage `json:"amount_cents"`
	Status      string          `json:"status"`
}

// ResolveNotification 直接从回调体读取支付事实
func (p *Provider) ResolveNotification(_ context.Context, req *payment.WebhookRequest) (*payment.Notification, error) {
	if req == nil || len(bytes.TrimSpace(req.Body)) == 0 {
		return nil, fmt.Errorf("%w: empty body", payment.ErrNotificationUnresolvable)
	}
	var body webhookBody
	if err := json.Unmarshal(req.Body, &body); err != nil {
		return nil, fmt.Errorf("%w: %v", payment.ErrNotificationUnresolvable, err)
	}
	amount, err := parseAmount(body.AmountCents)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", payment.ErrNotificationUnresolvable, err)
	}
	outcome := constants.NotificationOutcomeOther
	if strings.EqualFold(strings.TrimSpace(body.Status), confirmedStatus) {
		outcome = constants.NotificationOutcomeConfirmed
	}
	ref := strings.TrimSpace(body.Ref)
	if outcome == constants.NotificationOutcomeConfirmed && ref != "" {
		p.mu.Lock()
		if state, ok := p.charges[ref]; ok {
			state.Status = confirmedStatus
			p.charges[ref] = state
		}
		p.mu.Unlock()
	}
	return &payment.Notification{
		ReferenceCode: ref,
		Outcome:       outcome,
		AmountCents:   amount,
		ProviderTxID:  strings.TrimSpace(body.TxID),
	}, nil
}

// BuildPayableString 生成 mock 的 PIX 复制粘贴码
func BuildPayableString(referenceCode string, amountCents int64) string {
	amount := decimal.New(amountCents, -2).StringFixed(2)
	return fmt.Sprintf("00020126MOCKREF:%s54%02d%s5802BR59%02d%s60%02d%s",
		referenceCode,
		len(amount), amount,
		len(merchantName), merchantName,
		len(merchantCity), merchantCity,
	)
}

func newTxID() (string, error) {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return txidPrefix + strings.ToUpper(hex.EncodeToString(buf)), nil
}

// parseAmount 兼容数字与字符串形式的金额
func parseAmount(raw json.RawMessage) (int64, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return 0, nil
	}
	trimmed = strings.Trim(trimmed, `"`)
	if trimmed == "" {
		return 0, nil
	}
	value, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount_cents %q", trimmed)
	}
	return value, nil
}
