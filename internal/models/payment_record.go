package models

import (
	"time"

	"github.com/pixjoin/internal/constants"
)

// PaymentRecord 一次入场购买对应的支付记录
type PaymentRecord struct {
	ID               uint       `gorm:"primarykey" json:"id"`                                                        // 主键
	ReferenceCode    string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"reference_code"`                 // 对外业务单号
	RequesterID      string     `gorm:"type:varchar(32);index;not null" json:"requester_id"`                         // Discord 用户ID
	DisplayName      string     `gorm:"type:varchar(100);not null" json:"display_name"`                              // 用户填写的昵称
	AmountMinorUnits int64      `gorm:"not null" json:"amount_minor_units"`                                          // 金额（分）
	Status           string     `gorm:"type:varchar(16);index;not null" json:"status"`                               // 支付状态
	Provider         string     `gorm:"type:varchar(32);not null" json:"provider"`                                   // 支付提供方
	ProviderTxID     *string    `gorm:"column:provider_txid;type:varchar(128);index" json:"provider_txid,omitempty"` // 第三方流水号
	PayableString    string     `gorm:"type:text;not null" json:"payable_string"`                                    // PIX 复制粘贴码
	ChargeRef        *string    `gorm:"type:varchar(128)" json:"charge_ref,omitempty"`                               // 下单时第三方返回的收款标识
	CreatedAt        time.Time  `gorm:"index" json:"created_at"`                                                     // 创建时间
	PaidAt           *time.Time `gorm:"index" json:"paid_at,omitempty"`                                              // 支付时间
	UpdatedAt        time.Time  `json:"updated_at"`                                                                  // 更新时间
}

// TableName 指定表名
func (PaymentRecord) TableName() string {
	return "payment_records"
}

// IsPaid 是否已结算
func (r *PaymentRecord) IsPaid() bool {
	return r != nil && r.Status == constants.PaymentStatusPaid
}
