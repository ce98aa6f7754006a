// Package mercadopago 实现 Mercado Pago PIX 收款渠道。
package mercadopago

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pixjoin/internal/constants"
	"github.com/pixjoin/internal/payment"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrConfigInvalid = errors.New("mercadopago config invalid")
)

const (
	defaultAPIBaseURL = "https://api.mercadopago.com"
	defaultTimeout    = 15 * time.Second
	defaultPayerEmail = "comprador@example.com"

	paymentMethodPix = "pix"
	statusApproved   = "approved"
	topicPayment     = "payment"
)

// Config Mercado Pago 凭据配置
type Config struct {
	AccessToken     string
	APIBaseURL      string
	NotificationURL string
	PayerEmail      string
	Timeout         time.Duration
}

// Provider Mercado Pago 渠道
type Provider struct {
	cfg    Config
	client *http.Client
}

// New 创建 Mercado Pago 渠道
func New(cfg Config) (*Provider, error) {
	cfg.normalize()
	if cfg.AccessToken == "" {
		return nil, fmt.Errorf("%w: access_token is required", ErrConfigInvalid)
	}
	if _, err := url.ParseRequestURI(cfg.APIBaseURL); err != nil {
		return nil, fmt.Errorf("%w: api_base_url is invalid", ErrConfigInvalid)
	}
	return &Provider{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Name 渠道标识
func (p *Provider) Name() string {
	return constants.PaymentProviderMercadoPago
}

type createPaymentRequest struct {
	TransactionAmount json.Number `json:"transaction_amount"`
	Description       string      `json:"description,omitempty"`
	PaymentMethodID   string      `json:"payment_method_id"`
	ExternalReference string      `json:"external_reference"`
	NotificationURL   string      `json:"notification_url,omitempty"`
	Payer             payer       `json:"payer"`
}

type payer struct {
	Email string `json:"email"`
}

type paymentResponse struct {
	ID                 json.Number `json:"id"`
	Status             string      `json:"status"`
	ExternalReference  string      `json:"external_reference"`
	TransactionAmount  json.Number `json:"transaction_amount"`
	PointOfInteraction struct {
		TransactionData struct {
			QRCode       string `json:"qr_code"`
			QRCodeBase64 string `json:"qr_code_base64"`
			TicketURL    string `json:"ticket_url"`
		} `json:"transaction_data"`
	} `json:"point_of_interaction"`
}

// CreateCharge 调用 POST /v1/payments 创建 PIX 收款
func (p *Provider) CreateCharge(ctx context.Context, input payment.ChargeInput) (*payment.Charge, error) {
	ref := strings.TrimSpace(input.ReferenceCode)
	if ref == "" || input.AmountCents <= 0 {
		return nil, fmt.Errorf("%w: reference and positive amount required", payment.ErrProviderRejected)
	}
	reqBody := createPaymentRequest{
		TransactionAmount: json.Number(CentsToAmount(input.AmountCents).StringFixed(2)),
		Description:       strings.TrimSpace(input.Description),
		PaymentMethodID:   paymentMethodPix,
		ExternalReference: ref,
		NotificationURL:   p.cfg.NotificationURL,
		Payer:             payer{Email: p.cfg.PayerEmail},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("%w: encode request failed", payment.ErrProviderRejected)
	}
	headers := map[string]string{
		// 同一单号重复提交时由渠道侧去重
		"X-Idempotency-Key": uuid.NewSHA1(uuid.NameSpaceURL, []byte("pixjoin:"+ref)).String(),
	}
	body, status, err := p.doJSONRequest(ctx, http.MethodPost, "/v1/payments", payload, headers)
	if err != nil {
		return nil, err
	}
	if err := classifyStatus(status, body); err != nil {
		return nil, err
	}
	resp, err := decodePayment(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", payment.ErrProviderRejected, err)
	}
	qr := strings.TrimSpace(resp.PointOfInteraction.TransactionData.QRCode)
	if resp.ID.String() == "" || qr == "" {
		return nil, fmt.Errorf("%w: response missing id or qr_code", payment.ErrProviderRejected)
	}
	return &payment.Charge{ProviderTxID: resp.ID.String(), PayableString: qr}, nil
}

// ResolveNotification 解析轻量回调并回查 GET /v1/payments/{id}
func (p *Provider) ResolveNotification(ctx context.Context, req *payment.WebhookRequest) (*payment.Notification, error) {
	topic, paymentID, err := parsePointer(req)
	if err != nil {
		return nil, err
	}
	if topic != topicPayment {
		// merchant_order 等非支付事件，由上层按缺少单号忽略
		return &payment.Notification{Outcome: constants.NotificationOutcomeOther}, nil
	}
	if paymentID == "" {
		return nil, fmt.Errorf("%w: payment id missing", payment.ErrNotificationUnresolvable)
	}

	body, status, err := p.doJSONRequest(ctx, http.MethodGet, "/v1/payments/"+url.PathEscape(paymentID), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", payment.ErrNotificationUnresolvable, err)
	}
	if err := classifyStatus(status, body); err != nil {
		return nil, fmt.Errorf("%w: %w", payment.ErrNotificationUnresolvable, err)
	}
	resp, err := decodePayment(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", payment.ErrNotificationUnresolvable, err)
	}
	amount, err := AmountToCents(resp.TransactionAmount.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", payment.ErrNotificationUnresolvable, err)
	}
	txid := resp.ID.String()
	if txid == "" {
		txid = paymentID
	}
	return &payment.Notification{
		ReferenceCode: strings.TrimSpace(resp.ExternalReference),
		Outcome:       MapStatus(resp.Status),
		AmountCents:   amount,
		ProviderTxID:  txid,
	}, nil
}

// MapStatus 渠道状态归一化
func MapStatus(status string) string {
	if strings.EqualFold(strings.TrimSpace(status), statusApproved) {
		return constants.NotificationOutcomeConfirmed
	}
	return constants.NotificationOutcomeOther
}

// CentsToAmount 分转为渠道金额
func CentsToAmount(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// AmountToCents 渠道金额转为分
func AmountToCents(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid transaction_amount %q", raw)
	}
	return amount.Shift(2).Round(0).IntPart(), nil
}

type notificationBody struct {
	Type   string `json:"type"`
	Topic  string `json:"topic"`
	Action string `json:"action"`
	Data   struct {
		ID json.RawMessage `json:"id"`
	} `json:"data"`
	Resource string `json:"resource"`
}

// parsePointer 兼容 JSON 体、?type=payment&data.id= 与旧版 ?topic=payment&id=
func parsePointer(req *payment.WebhookRequest) (string, string, error) {
	if req == nil {
		return "", "", fmt.Errorf("%w: empty request", payment.ErrNotificationUnresolvable)
	}
	var topic, id string
	if trimmed := bytes.TrimSpace(req.Body); len(trimmed) > 0 {
		var body notificationBody
		if err := json.Unmarshal(trimmed, &body); err != nil {
			return "", "", fmt.Errorf("%w: %v", payment.ErrNotificationUnresolvable, err)
		}
		topic = firstNonEmpty(body.Type, body.Topic)
		id = rawID(body.Data.ID)
		if id == "" && body.Resource != "" {
			id = lastPathSegment(body.Resource)
		}
	}
	if topic == "" {
		topic = firstNonEmpty(req.QueryValue("type"), req.QueryValue("topic"))
	}
	if id == "" {
		id = firstNonEmpty(req.QueryValue("data.id"), req.QueryValue("id"))
	}
	topic = strings.ToLower(strings.TrimSpace(topic))
	if topic == "" {
		return "", "", fmt.Errorf("%w: notification type missing", payment.ErrNotificationUnresolvable)
	}
	return topic, id, nil
}

func classifyStatus(status int, body []byte) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status >= 500 || status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: http %d: %s", payment.ErrProviderUnavailable, status, truncate(body))
	default:
		return fmt.Errorf("%w: http %d: %s", payment.ErrProviderRejected, status, truncate(body))
	}
}

func (p *Provider) doJSONRequest(ctx context.Context, method, path string, payload []byte, headers map[string]string) ([]byte, int, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, p.cfg.APIBaseURL+path, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: build request failed", payment.ErrProviderRejected)
	}
	req.Header.Set("Authorization", "Bearer "+p.cfg.AccessToken)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", payment.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%w: read response failed", payment.ErrProviderUnavailable)
	}
	return body, resp.StatusCode, nil
}

func decodePayment(body []byte) (*paymentResponse, error) {
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	var resp paymentResponse
	if err := decoder.Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode payment response failed: %w", err)
	}
	return &resp, nil
}

func (c *Config) normalize() {
	c.AccessToken = strings.TrimSpace(c.AccessToken)
	c.APIBaseURL = strings.TrimRight(strings.TrimSpace(c.APIBaseURL), "/")
	if c.APIBaseURL == "" {
		c.APIBaseURL = defaultAPIBaseURL
	}
	c.NotificationURL = strings.TrimSpace(c.NotificationURL)
	c.PayerEmail = strings.TrimSpace(c.PayerEmail)
	if c.PayerEmail == "" {
		c.PayerEmail = defaultPayerEmail
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
}

func rawID(raw json.RawMessage) string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return ""
	}
	return strings.TrimSpace(strings.Trim(trimmed, `"`))
}

func lastPathSegment(resource string) string {
	resource = strings.TrimRight(strings.TrimSpace(resource), "/")
	if idx := strings.LastIndex(resource, "/"); idx >= 0 {
		return resource[idx+1:]
	}
	return resource
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func truncate(body []byte) string {
	const limit = 256
	text := strings.TrimSpace(string(body))
	if len(text) > limit {
		return text[:limit] + "..."
	}
	return text
}
