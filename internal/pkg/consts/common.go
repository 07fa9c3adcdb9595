package consts

const (
	// MemberStatusActive 等会员状态与远程平台保持一致
	MemberStatusActive    = "active"
	MemberStatusTrialing  = "trialing"
	MemberStatusCancelled = "cancelled"
	MemberStatusExpired   = "expired"
	MemberStatusPastDue   = "past_due"
)

const (
	TierFree       = "free"
	TierPro        = "pro"
	TierEnterprise = "enterprise"
)

const (
	RiskLevelLow    = "low"
	RiskLevelMedium = "medium"
	RiskLevelHigh   = "high"
)

const (
	DefaultCurrency = "usd"
)

// 同步触发来源
const (
	SyncReasonManual  = "manual"
	SyncReasonWebhook = "webhook"
	SyncReasonCron    = "cron"
)
