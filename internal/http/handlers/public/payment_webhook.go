package public

import (
	"errors"
	"io"
	"net/http"
	"unicode/utf8"

	"github.com/pixjoin/internal/constants"
	"github.com/pixjoin/internal/http/handlers/shared"
	"github.com/pixjoin/internal/http/response"
	"github.com/pixjoin/internal/payment"
	"github.com/pixjoin/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	webhookMaxBodyBytes = 1 << 20
	webhookLogBodyLimit = 512
)

// WebhookAck 回调应答体
type WebhookAck struct {
	Accepted bool   `json:"accepted"`
	Result   string `json:"result"`
	Reason   string `json:"reason,omitempty"`
}

// PaymentWebhook PSP 回调入口。
// 已处理或无法处理的通知一律 200；严格模式鉴权失败 401；上游查询不可用 503。
func (h *Handler) PaymentWebhook(c *gin.Context) {
	log := shared.RequestLog(c)
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, webhookMaxBodyBytes))
	if err != nil {
		log.Warnw("payment_webhook_read_body_failed", "error", err)
		c.JSON(http.StatusOK, WebhookAck{Accepted: true, Result: constants.WebhookResultUnresolvable})
		return
	}
	log.Infow("payment_webhook_received",
		"client_ip", c.ClientIP(),
		"content_type", c.ContentType(),
		"body_size", len(body),
		"raw_body", truncateForLog(body, webhookLogBodyLimit),
	)

	if h.PaymentService == nil {
		log.Errorw("payment_webhook_service_missing")
		c.JSON(http.StatusOK, WebhookAck{Accepted: true, Result: constants.WebhookResultFailed})
		return
	}

	outcome, err := h.PaymentService.HandleNotification(c.Request.Context(), &payment.WebhookRequest{
		Body:    body,
		Headers: c.Request.Header.Clone(),
		Query:   c.Request.URL.Query(),
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnauthenticated):
			response.Unauthorized(c, "invalid signature")
		case errors.Is(err, payment.ErrProviderUnavailable):
			// 上游查询暂时失败，返回 503 让 PSP 重投，避免丢失已确认的支付
			log.Warnw("payment_webhook_upstream_unavailable", "error", err)
			c.JSON(http.StatusServiceUnavailable, WebhookAck{Accepted: false, Result: constants.WebhookResultUnresolvable})
		case errors.Is(err, service.ErrNotificationUnresolvable):
			c.JSON(http.StatusOK, WebhookAck{Accepted: true, Result: constants.WebhookResultUnresolvable})
		default:
			log.Errorw("payment_webhook_handle_failed", "error", err)
			c.JSON(http.StatusOK, WebhookAck{Accepted: true, Result: constants.WebhookResultFailed})
		}
		return
	}
	c.JSON(http.StatusOK, WebhookAck{
		Accepted: true,
		Result:   outcome.Result,
		Reason:   outcome.Reason,
	})
}

func truncateForLog(body []byte, limit int) string {
	if len(body) <= limit {
		return string(body)
	}
	cut := body[:limit]
	for len(cut) > 0 && !utf8.Valid(cut) {
		cut = cut[:len(cut)-1]
	}
	return string(cut) + "...(truncated)"
}
