package repository

import (
	"Pulseboard/internal/model"
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LeaderboardRow 今日互动榜单的一行投影
type LeaderboardRow struct {
	MemberID        uint64     `json:"memberId"`
	WhopUserID      string     `json:"whopUserId"`
	Username        *string    `json:"username"`
	MessageCount    int        `json:"messageCount"`
	EngagementScore float64    `json:"engagementScore"`
	LastActiveAt    *time.Time `json:"lastActiveAt"`
}

// DailyStats 单租户某日的互动汇总
type DailyStats struct {
	AverageScore float64
	ActiveUsers  int64
}

type EngagementMetricRepo interface {
	// SaveOrUpdateMetric 以 member_id + metric_date 为唯一键写入；
	// 今日无消息时保留历史 last_active_at
	SaveOrUpdateMetric(ctx context.Context, metric *model.EngagementMetric) error
	GetLatestByMember(ctx context.Context, memberID uint64) (*model.EngagementMetric, error)
	GetDailyStats(ctx context.Context, tenantID uint64, date time.Time) (*DailyStats, error)
	ListTopByDate(ctx context.Context, tenantID uint64, date time.Time, limit int) ([]*LeaderboardRow, error)
}

type engagementMetricRepoImpl struct {
	db *gorm.DB
}

func NewEngagementMetricRepo(db *gorm.DB) EngagementMetricRepo {
	return &engagementMetricRepoImpl{db: db}
}

func (s *engagementMetricRepoImpl) SaveOrUpdateMetric(ctx context.Context, metric *model.EngagementMetric) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "member_id"}, {Name: "metric_date"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"message_count":    gorm.Expr("VALUES(message_count)"),
			"activity_score":   gorm.Expr("VALUES(activity_score)"),
			"engagement_score": gorm.Expr("VALUES(engagement_score)"),
			"last_active_at":   gorm.Expr("COALESCE(VALUES(last_active_at), last_active_at)"),
			"updated_at":       gorm.Expr("VALUES(updated_at)"),
		}),
	}).Create(metric).Error
}

func (s *engagementMetricRepoImpl) GetLatestByMember(ctx context.Context, memberID uint64) (*model.EngagementMetric, error) {
	var metric model.EngagementMetric
	err := s.db.WithContext(ctx).
		Where("member_id = ?", memberID).
		Order("metric_date DESC").
		First(&metric).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &metric, nil
}

func (s *engagementMetricRepoImpl) GetDailyStats(ctx context.Context, tenantID uint64, date time.Time) (*DailyStats, error) {
	var stats DailyStats
	err := s.db.WithContext(ctx).
		Model(&model.EngagementMetric{}).
		Select("COALESCE(AVG(engagement_score), 0) AS average_score, COUNT(CASE WHEN message_count > 0 THEN 1 END) AS active_users").
		Where("tenant_id = ? AND metric_date = ?", tenantID, date.Format(time.DateOnly)).
		Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func (s *engagementMetricRepoImpl) ListTopByDate(ctx context.Context, tenantID uint64, date time.Time, limit int) ([]*LeaderboardRow, error) {
	rows := make([]*LeaderboardRow, 0)
	err := s.db.WithContext(ctx).
		Table("engagement_metrics em").
		Select("em.member_id, m.whop_user_id, u.username, em.message_count, em.engagement_score, em.last_active_at").
		Joins("JOIN members m ON m.id = em.member_id").
		Joins("LEFT JOIN users u ON u.id = m.user_id").
		Where("em.tenant_id = ? AND em.metric_date = ?", tenantID, date.Format(time.DateOnly)).
		Order("em.engagement_score DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
