package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/pixjoin/internal/constants"
	"github.com/pixjoin/internal/models"

	"gorm.io/gorm"
)

// PaymentRepository 支付记录数据访问接口
type PaymentRepository interface {
	Create(record *models.PaymentRecord) error
	GetByReference(referenceCode string) (*models.PaymentRecord, error)
	MarkPaid(referenceCode, providerTxID string, paidAt time.Time) (bool, error)
	ListAdmin(filter PaymentListFilter) ([]models.PaymentRecord, int64, error)
	WithTx(tx *gorm.DB) *GormPaymentRepository
}

// GormPaymentRepository GORM 实现
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository 创建支付仓库
func NewPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// WithTx 绑定事务
func (r *GormPaymentRepository) WithTx(tx *gorm.DB) *GormPaymentRepository {
	if tx == nil {
		return r
	}
	return &GormPaymentRepository{db: tx}
}

// Create 创建支付记录，单号冲突时返回 ErrDuplicateReference
func (r *GormPaymentRepository) Create(record *models.PaymentRecord) error {
	if record == nil {
		return errors.New("payment record is nil")
	}
	if err := r.db.Create(record).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateReference
		}
		return err
	}
	return nil
}

// GetByReference 根据业务单号获取支付记录，不存在时返回 nil, nil
func (r *GormPaymentRepository) GetByReference(referenceCode string) (*models.PaymentRecord, error) {
	referenceCode = strings.TrimSpace(referenceCode)
	if referenceCode == "" {
		return nil, nil
	}
	var record models.PaymentRecord
	if err := r.db.Where("reference_code = ?", referenceCode).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// MarkPaid 条件更新 pending -> paid，仅当本次调用完成状态迁移时返回 true
func (r *GormPaymentRepository) MarkPaid(referenceCode, providerTxID string, paidAt time.Time) (bool, error) {
	referenceCode = strings.TrimSpace(referenceCode)
	if referenceCode == "" {
		return false, nil
	}
	updates := map[string]interface{}{
		"status":     constants.PaymentStatusPaid,
		"paid_at":    paidAt,
		"updated_at": paidAt,
	}
	if txid := strings.TrimSpace(providerTxID); txid != "" {
		updates["provider_txid"] = txid
	}
	result := r.db.Model(&models.PaymentRecord{}).
		Where("reference_code = ? AND status = ?", referenceCode, constants.PaymentStatusPending).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ListAdmin 管理端支付列表
func (r *GormPaymentRepository) ListAdmin(filter PaymentListFilter) ([]models.PaymentRecord, int64, error) {
	query := r.db.Model(&models.PaymentRecord{})

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Provider != "" {
		query = query.Where("provider = ?", filter.Provider)
	}
	if filter.RequesterID != "" {
		query = query.Where("requester_id = ?", filter.RequesterID)
	}
	if filter.ReferenceCode != "" {
		query = query.Where("reference_code LIKE ?", "%"+filter.ReferenceCode+"%")
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var records []models.PaymentRecord
	if err := query.Order("id desc").Find(&records).Error; err != nil {
		return nil, 0, err
	}
	return records, total, nil
}
