package repository

import (
	"Pulseboard/internal/model"
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RevenueMetricRepo interface {
	// Upsert 以 tenant_id + metric_date 为唯一键写入，同日重算覆盖旧值
	Upsert(ctx context.Context, metric *model.RevenueMetric) error
	// ListRecentByTenant 返回最近 limit 天的快照，按日期升序
	ListRecentByTenant(ctx context.Context, tenantID uint64, limit int) ([]*model.RevenueMetric, error)
}

type revenueMetricRepoImpl struct {
	db *gorm.DB
}

func NewRevenueMetricRepo(db *gorm.DB) RevenueMetricRepo {
	return &revenueMetricRepoImpl{db: db}
}

func (s *revenueMetricRepoImpl) Upsert(ctx context.Context, metric *model.RevenueMetric) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "tenant_id"}, {Name: "metric_date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"mrr", "total_revenue", "total_members", "active_members",
			"new_members", "churned_members", "churn_rate", "updated_at",
		}),
	}).Create(metric).Error
}

func (s *revenueMetricRepoImpl) ListRecentByTenant(ctx context.Context, tenantID uint64, limit int) ([]*model.RevenueMetric, error) {
	metrics := make([]*model.RevenueMetric, 0)
	result := s.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("metric_date DESC").
		Limit(limit).
		Find(&metrics)
	if result.Error != nil {
		return nil, result.Error
	}

	// 取最近 N 天后反转为升序，方便前端画折线
	for i, j := 0, len(metrics)-1; i < j; i, j = i+1, j-1 {
		metrics[i], metrics[j] = metrics[j], metrics[i]
	}
	return metrics, nil
}
