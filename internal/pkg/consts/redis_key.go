package consts

const (
	RevenueStatsKey    = "tenant:revenue:stats:"
	EngagementStatsKey = "tenant:engagement:stats:"
	DailyInsightKey    = "tenant:insight:daily:"
	RiskListKey        = "tenant:risk:list:"
	TenantIdentityKey  = "tenant:identity:"
)

const (
	TenantSyncLock = "tenant:sync:lock:"
)
