package service

import (
	"errors"

	"github.com/pixjoin/internal/payment"
)

var (
	ErrInvalidPurchaseInput = errors.New("invalid purchase input")
	ErrChargeCreationFailed = errors.New("charge creation failed")
	ErrPaymentCreateFailed  = errors.New("payment record create failed")
	ErrJoinCooldown         = errors.New("join cooldown active")
	// ErrNotificationUnresolvable 与渠道层共用同一哨兵，便于 errors.Is 跨层判断
	ErrNotificationUnresolvable = payment.ErrNotificationUnresolvable
	ErrUnauthenticated          = errors.New("webhook unauthenticated")
	ErrPaymentLookupFailed      = errors.New("payment lookup failed")
	ErrPaymentUpdateFailed      = errors.New("payment update failed")
	ErrRecordNotFound           = errors.New("payment record not found")
	ErrAlreadySettled           = errors.New("payment already settled")
	ErrNotConfirmed             = errors.New("payment not confirmed")
	ErrAmountMismatch           = errors.New("payment amount mismatch")
	ErrMissingReference         = errors.New("notification missing reference")
	ErrPaymentNotPaid           = errors.New("payment not paid")
	ErrGrantFailed              = errors.New("access grant failed")
	ErrGranterUnavailable       = errors.New("access granter unavailable")
	ErrAdminAuthDisabled        = errors.New("admin auth disabled")
	ErrInvalidCredentials       = errors.New("invalid credentials")
	ErrInvalidToken             = errors.New("invalid token")
)
