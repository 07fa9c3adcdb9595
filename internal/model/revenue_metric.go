package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// RevenueMetric 每个租户每天至多一行（tenant_id + metric_date 复合唯一键）
type RevenueMetric struct {
	ID             uint64          `gorm:"primaryKey"`
	TenantID       uint64          `gorm:"not null;uniqueIndex:idx_tenant_date,priority:1"`
	MetricDate     time.Time       `gorm:"type:date;not null;uniqueIndex:idx_tenant_date,priority:2"`
	MRR            decimal.Decimal `gorm:"column:mrr;type:decimal(12,2);default:0"`
	TotalRevenue   decimal.Decimal `gorm:"type:decimal(12,2);default:0"`
	TotalMembers   int             `gorm:"not null;default:0"`
	ActiveMembers  int             `gorm:"not null;default:0"`
	NewMembers     int             `gorm:"not null;default:0"`
	ChurnedMembers int             `gorm:"not null;default:0"`
	ChurnRate      decimal.Decimal `gorm:"type:decimal(5,2);default:0"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (RevenueMetric) TableName() string {
	return "revenue_metrics"
}
