package constants

// 支付记录状态常量
const (
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
	PaymentStatusFailed  = "failed"
)

// 支付提供方常量
const (
	PaymentProviderMock        = "mock"
	PaymentProviderMercadoPago = "mercadopago"
)

// 回调结果归一化状态
const (
	NotificationOutcomeConfirmed = "confirmed"
	NotificationOutcomeOther     = "other"
)

// Webhook 鉴权策略
const (
	WebhookAuthPolicySoft   = "soft"
	WebhookAuthPolicyStrict = "strict"
)

// 对账忽略原因
const (
	IgnoreReasonRecordNotFound   = "record_not_found"
	IgnoreReasonAlreadySettled   = "already_settled"
	IgnoreReasonNotConfirmed     = "not_confirmed"
	IgnoreReasonAmountMismatch   = "amount_mismatch"
	IgnoreReasonMissingReference = "missing_reference"
)

// Webhook 事件处理结果
const (
	WebhookResultSettled         = "settled"
	WebhookResultIgnored         = "ignored"
	WebhookResultUnresolvable    = "unresolvable"
	WebhookResultUnauthenticated = "unauthenticated"
	WebhookResultFailed          = "failed"
)

// 队列相关常量
const (
	QueueDefault    = "default"
	QueueCritical   = "critical"
	TaskAccessGrant = "access:grant"
)

// WebhookSignatureHeader 对称签名回调使用的请求头
const WebhookSignatureHeader = "X-Signature"
