package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// EngagementMetric 每个会员每天至多一行（member_id + metric_date 复合唯一键）
type EngagementMetric struct {
	ID              uint64          `gorm:"primaryKey"`
	TenantID        uint64          `gorm:"not null;index:idx_engagement_tenant_date,priority:1"`
	MemberID        uint64          `gorm:"not null;uniqueIndex:idx_member_date,priority:1"`
	MetricDate      time.Time       `gorm:"type:date;not null;uniqueIndex:idx_member_date,priority:2;index:idx_engagement_tenant_date,priority:2"`
	MessageCount    int             `gorm:"not null;default:0"`
	ActivityScore   int             `gorm:"not null;default:0"`
	EngagementScore decimal.Decimal `gorm:"type:decimal(5,2);default:0"`
	LastActiveAt    *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (EngagementMetric) TableName() string {
	return "engagement_metrics"
}
