package admin

import (
	"strings"

	"github.com/pixjoin/internal/http/response"
	"github.com/pixjoin/internal/repository"

	"github.com/gin-gonic/gin"
)

// GetWebhookEvents 获取回调流水
func (h *Handler) GetWebhookEvents(c *gin.Context) {
	page, pageSize := pageParams(c)
	events, total, err := h.PaymentService.ListWebhookEvents(repository.WebhookEventListFilter{
		Page:          page,
		PageSize:      pageSize,
		Provider:      strings.TrimSpace(c.Query("provider")),
		ReferenceCode: strings.TrimSpace(c.Query("reference_code")),
		Result:        strings.TrimSpace(c.Query("result")),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "webhook event fetch failed", err)
		return
	}
	response.SuccessWithPage(c, events, response.NewPagination(page, pageSize, total))
}
