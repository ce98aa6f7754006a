package service

import (
	"fmt"
	"strings"

	"github.com/pixjoin/internal/models"
	"github.com/pixjoin/internal/repository"
)

// GetPayment 按单号查询支付记录
func (s *PaymentService) GetPayment(referenceCode string) (*models.PaymentRecord, error) {
	record, err := s.paymentRepo.GetByReference(strings.TrimSpace(referenceCode))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPaymentLookupFailed, err)
	}
	if record == nil {
		return nil, ErrRecordNotFound
	}
	return record, nil
}

// ListPayments 管理端支付列表
func (s *PaymentService) ListPayments(filter repository.PaymentListFilter) ([]models.PaymentRecord, int64, error) {
	filter.Page, filter.PageSize = normalizePagination(filter.Page, filter.PageSize)
	return s.paymentRepo.ListAdmin(filter)
}

// ListWebhookEvents 管理端回调流水
func (s *PaymentService) ListWebhookEvents(filter repository.WebhookEventListFilter) ([]models.WebhookEvent, int64, error) {
	if s.eventRepo == nil {
		return []models.WebhookEvent{}, 0, nil
	}
	filter.Page, filter.PageSize = normalizePagination(filter.Page, filter.PageSize)
	return s.eventRepo.List(filter)
}

func normalizePagination(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}
