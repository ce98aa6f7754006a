// Package webhookauth 校验入站支付回调的真实性。
package webhookauth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/pixjoin/internal/constants"
	"github.com/pixjoin/internal/payment"
)

// Authenticator 回调鉴权策略
type Authenticator interface {
	Authenticate(req *payment.WebhookRequest, secret string) bool
	// Enforceable 为 false 的策略不参与 strict 拒绝
	Enforceable() bool
}

// HMACAuthenticator 对原始请求体做 HMAC-SHA256，与 X-Signature 头比对
type HMACAuthenticator struct {
	Header string
}

// Authenticate 缺少签名头、密钥为空或不匹配时返回 false
func (a HMACAuthenticator) Authenticate(req *payment.WebhookRequest, secret string) bool {
	if req == nil || strings.TrimSpace(secret) == "" {
		return false
	}
	header := a.Header
	if header == "" {
		header = constants.WebhookSignatureHeader
	}
	signature := strings.ToLower(req.Header(header))
	if signature == "" {
		return false
	}
	expected := Sign(req.Body, secret)
	return hmac.Equal([]byte(signature), []byte(expected))
}

// Enforceable HMAC 结果可用于 strict 拒绝
func (a HMACAuthenticator) Enforceable() bool {
	return true
}

// APIVerifiedAuthenticator 真实性由渠道回查保证，恒为 true
type APIVerifiedAuthenticator struct{}

// Authenticate 恒为 true
func (APIVerifiedAuthenticator) Authenticate(*payment.WebhookRequest, string) bool {
	return true
}

// Enforceable 回查型策略无需拒绝
func (APIVerifiedAuthenticator) Enforceable() bool {
	return false
}

// ForProvider 按渠道选择鉴权策略
func ForProvider(providerName string) Authenticator {
	switch strings.ToLower(strings.TrimSpace(providerName)) {
	case constants.PaymentProviderMercadoPago:
		return APIVerifiedAuthenticator{}
	default:
		return HMACAuthenticator{Header: constants.WebhookSignatureHeader}
	}
}

// Sign 计算十六进制 HMAC-SHA256 签名
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
