package admin

import (
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	handlershared "github.com/pixjoin/internal/http/handlers/shared"
	"github.com/pixjoin/internal/http/response"
	"github.com/pixjoin/internal/models"
	"github.com/pixjoin/internal/repository"
	"github.com/pixjoin/internal/service"

	"github.com/gin-gonic/gin"
)

const adminPaymentExportBatchSize = 100

// GetAdminPayments 获取支付记录列表
func (h *Handler) GetAdminPayments(c *gin.Context) {
	page, pageSize := pageParams(c)
	filter, err := buildAdminPaymentFilter(c, page, pageSize)
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid query", err)
		return
	}

	payments, total, err := h.PaymentService.ListPayments(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "payment fetch failed", err)
		return
	}
	response.SuccessWithPage(c, payments, response.NewPagination(page, pageSize, total))
}

// ExportAdminPayments 导出支付记录 CSV
func (h *Handler) ExportAdminPayments(c *gin.Context) {
	filter, err := buildAdminPaymentFilter(c, 1, adminPaymentExportBatchSize)
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid query", err)
		return
	}

	payments, _, err := h.PaymentService.ListPayments(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "payment fetch failed", err)
		return
	}

	filename := fmt.Sprintf("payments_%s.csv", time.Now().Format("20060102_150405"))
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))

	writer := csv.NewWriter(c.Writer)
	if err := writer.Write([]string{
		"reference_code",
		"requester_id",
		"display_name",
		"amount_cents",
		"status",
		"provider",
		"provider_txid",
		"created_at",
		"paid_at",
	}); err != nil {
		requestLog(c).Errorw("admin_payment_export_header_write_failed", "error", err)
		return
	}

	page := 1
	for {
		if len(payments) > 0 {
			if err := writeAdminPaymentCSVRows(writer, payments); err != nil {
				requestLog(c).Errorw("admin_payment_export_rows_write_failed", "page", page, "error", err)
				return
			}
			writer.Flush()
			if err := writer.Error(); err != nil {
				requestLog(c).Errorw("admin_payment_export_flush_failed", "page", page, "error", err)
				return
			}
		}
		if len(payments) < adminPaymentExportBatchSize {
			break
		}
		page++
		filter.Page = page
		payments, _, err = h.PaymentService.ListPayments(filter)
		if err != nil {
			requestLog(c).Errorw("admin_payment_export_batch_fetch_failed", "page", page, "error", err)
			return
		}
	}
}

// GetAdminPayment 获取支付记录详情
func (h *Handler) GetAdminPayment(c *gin.Context) {
	ref := strings.TrimSpace(c.Param("reference"))
	if ref == "" {
		respondError(c, response.CodeBadRequest, "reference required", nil)
		return
	}

	record, err := h.PaymentService.GetPayment(ref)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRecordNotFound):
			respondError(c, response.CodeNotFound, "payment not found", nil)
		default:
			respondError(c, response.CodeInternal, "payment fetch failed", err)
		}
		return
	}
	response.Success(c, record)
}

// RegrantAdminPayment 对已支付记录重新发放权益
func (h *Handler) RegrantAdminPayment(c *gin.Context) {
	ref := strings.TrimSpace(c.Param("reference"))
	if ref == "" {
		respondError(c, response.CodeBadRequest, "reference required", nil)
		return
	}
	operator, ok := handlershared.GetAdminUsername(c)
	if !ok {
		return
	}

	record, err := h.PaymentService.Regrant(c.Request.Context(), ref)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRecordNotFound):
			respondError(c, response.CodeNotFound, "payment not found", nil)
		case errors.Is(err, service.ErrPaymentNotPaid):
			respondError(c, response.CodeConflict, "payment not paid", nil)
		case errors.Is(err, service.ErrGranterUnavailable):
			respondError(c, response.CodeUnavailable, "granter unavailable", err)
		case errors.Is(err, service.ErrGrantFailed):
			respondError(c, response.CodeUnavailable, "grant failed", err)
		default:
			respondError(c, response.CodeInternal, "regrant failed", err)
		}
		return
	}

	requestLog(c).Infow("admin_payment_regranted",
		"reference_code", record.ReferenceCode,
		"requester_id", record.RequesterID,
		"operator", operator,
	)
	response.Success(c, record)
}

func formatTimeNullable(raw *time.Time) string {
	if raw == nil {
		return ""
	}
	return raw.Format(time.RFC3339)
}

func parseTimeNullable(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func buildAdminPaymentFilter(c *gin.Context, page, pageSize int) (repository.PaymentListFilter, error) {
	createdFrom, err := parseTimeNullable(strings.TrimSpace(c.Query("created_from")))
	if err != nil {
		return repository.PaymentListFilter{}, err
	}
	createdTo, err := parseTimeNullable(strings.TrimSpace(c.Query("created_to")))
	if err != nil {
		return repository.PaymentListFilter{}, err
	}

	return repository.PaymentListFilter{
		Page:          page,
		PageSize:      pageSize,
		Status:        strings.TrimSpace(c.Query("status")),
		Provider:      strings.TrimSpace(c.Query("provider")),
		RequesterID:   strings.TrimSpace(c.Query("requester_id")),
		ReferenceCode: strings.TrimSpace(c.Query("reference_code")),
		CreatedFrom:   createdFrom,
		CreatedTo:     createdTo,
	}, nil
}

func writeAdminPaymentCSVRows(writer *csv.Writer, payments []models.PaymentRecord) error {
	for _, p := range payments {
		txid := ""
		if p.ProviderTxID != nil {
			txid = *p.ProviderTxID
		}
		if err := writer.Write([]string{
			p.ReferenceCode,
			p.RequesterID,
			p.DisplayName,
			strconv.FormatInt(p.AmountMinorUnits, 10),
			p.Status,
			p.Provider,
			txid,
			p.CreatedAt.Format(time.RFC3339),
			formatTimeNullable(p.PaidAt),
		}); err != nil {
			return err
		}
	}
	return nil
}
