package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// RevenueHistoryQuery 收入趋势查询参数
type RevenueHistoryQuery struct {
	Days int `form:"days" binding:"omitempty,min=1,max=90"`
}

// RevenueHistoryItem 收入趋势的一日快照
type RevenueHistoryItem struct {
	MetricDate     time.Time       `json:"metricDate"`
	MRR            decimal.Decimal `json:"mrr"`
	TotalRevenue   decimal.Decimal `json:"totalRevenue"`
	TotalMembers   int             `json:"totalMembers"`
	ActiveMembers  int             `json:"activeMembers"`
	NewMembers     int             `json:"newMembers"`
	ChurnedMembers int             `json:"churnedMembers"`
	ChurnRate      decimal.Decimal `json:"churnRate"`
}

// DailyInsightResponse 每日经营简报
type DailyInsightResponse struct {
	Insight string `json:"insight"`
}
