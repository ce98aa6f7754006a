package repository

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// ErrDuplicateReference 业务单号已存在
var ErrDuplicateReference = errors.New("duplicate reference code")

// isUniqueViolation 兼容 sqlite 与 postgres 的唯一约束错误
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "sqlstate 23505")
}
