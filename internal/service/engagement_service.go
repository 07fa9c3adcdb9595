package service

import (
	"Pulseboard/internal/pkg/consts"
	"Pulseboard/internal/pkg/redis"
	"context"
	log "log/slog"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"Pulseboard/internal/repository"
)

const leaderboardSize = 10

// EngagementStats 今日互动看板：平均分、活跃人数与前十榜单
type EngagementStats struct {
	Date         string                       `json:"date"`
	AverageScore float64                      `json:"averageScore"`
	ActiveUsers  int64                        `json:"activeUsers"`
	Leaderboard  []*repository.LeaderboardRow `json:"leaderboard"`
}

type EngagementService interface {
	GetDailyStats(ctx context.Context, tenantID uint64) (*EngagementStats, error)
}

type engagementServiceImpl struct {
	engagementRepo repository.EngagementMetricRepo
}

func NewEngagementService(engagementRepo repository.EngagementMetricRepo) EngagementService {
	return &engagementServiceImpl{engagementRepo: engagementRepo}
}

func (s *engagementServiceImpl) GetDailyStats(ctx context.Context, tenantID uint64) (*EngagementStats, error) {
	cacheKey := consts.EngagementStatsKey + strconv.FormatUint(tenantID, 10)
	if cached, err := redis.GetValue(ctx, cacheKey); err == nil && cached != "" {
		var stats EngagementStats
		if err = json.Unmarshal([]byte(cached), &stats); err == nil {
			return &stats, nil
		}
	}

	today := midnight(time.Now())
	daily, err := s.engagementRepo.GetDailyStats(ctx, tenantID, today)
	if err != nil {
		return nil, err
	}
	leaderboard, err := s.engagementRepo.ListTopByDate(ctx, tenantID, today, leaderboardSize)
	if err != nil {
		return nil, err
	}

	stats := &EngagementStats{
		Date:         today.Format(time.DateOnly),
		AverageScore: daily.AverageScore,
		ActiveUsers:  daily.ActiveUsers,
		Leaderboard:  leaderboard,
	}

	if payload, err := json.Marshal(stats); err == nil {
		if err = redis.SetWithExpiration(ctx, cacheKey, string(payload), dashboardCacheTTL); err != nil {
			log.WarnContext(ctx, "engagement stats cache write failed", "tenant_id", tenantID, "err", err)
		}
	}
	return stats, nil
}
