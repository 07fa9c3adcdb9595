package service

import (
	"Pulseboard/internal/model"
	"Pulseboard/internal/pkg/consts"
	"Pulseboard/internal/pkg/redis"
	"context"
	log "log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"Pulseboard/internal/repository"
)

const (
	dashboardCacheTTL = time.Minute
	churnWindowDays   = 30
	historyMaxDays    = 90
)

// RevenueStats 收入看板的汇总数字，MRR 按币种分桶、不做汇率换算
type RevenueStats struct {
	MRRByCurrency  map[string]decimal.Decimal `json:"mrrByCurrency"`
	TotalMembers   int64                      `json:"totalMembers"`
	ActiveMembers  int64                      `json:"activeMembers"`
	NewMembers     int64                      `json:"newMembers"`
	ChurnedMembers int64                      `json:"churnedMembers"`
	ChurnRate      decimal.Decimal            `json:"churnRate"`
}

type RevenueService interface {
	// CalculateMRR 只统计 active / trialing 会员，按币种累加续费价
	CalculateMRR(members []*model.Member) map[string]decimal.Decimal
	// SnapshotRevenue 重算当日收入快照，同日重复调用覆盖旧值
	SnapshotRevenue(ctx context.Context, tenantID uint64) error
	GetRevenueStats(ctx context.Context, tenantID uint64) (*RevenueStats, error)
	GetRevenueHistory(ctx context.Context, tenantID uint64, days int) ([]*model.RevenueMetric, error)
}

type revenueServiceImpl struct {
	memberRepo  repository.MemberRepo
	revenueRepo repository.RevenueMetricRepo
}

func NewRevenueService(memberRepo repository.MemberRepo, revenueRepo repository.RevenueMetricRepo) RevenueService {
	return &revenueServiceImpl{
		memberRepo:  memberRepo,
		revenueRepo: revenueRepo,
	}
}

func (s *revenueServiceImpl) CalculateMRR(members []*model.Member) map[string]decimal.Decimal {
	mrr := make(map[string]decimal.Decimal)
	for _, member := range members {
		if member.Status != consts.MemberStatusActive && member.Status != consts.MemberStatusTrialing {
			continue
		}
		currency := strings.ToLower(member.Currency)
		if currency == "" {
			currency = consts.DefaultCurrency
		}
		mrr[currency] = mrr[currency].Add(member.RenewalPrice)
	}
	return mrr
}

func (s *revenueServiceImpl) SnapshotRevenue(ctx context.Context, tenantID uint64) error {
	members, err := s.memberRepo.ListByTenant(ctx, tenantID)
	if err != nil {
		return err
	}

	mrr := s.CalculateMRR(members)
	var activeMembers int
	for _, member := range members {
		if member.Status == consts.MemberStatusActive || member.Status == consts.MemberStatusTrialing {
			activeMembers++
		}
	}

	now := time.Now()
	since := now.AddDate(0, 0, -churnWindowDays)
	newMembers, err := s.memberRepo.CountJoinedSince(ctx, tenantID, since)
	if err != nil {
		return err
	}
	churnedMembers, err := s.memberRepo.CountCancelledSince(ctx, tenantID, since)
	if err != nil {
		return err
	}

	// 快照行的 mrr 列只存默认币种，完整的分币种口径走实时接口
	total := decimal.Zero
	for _, amount := range mrr {
		total = total.Add(amount)
	}

	metric := &model.RevenueMetric{
		TenantID:       tenantID,
		MetricDate:     midnight(now),
		MRR:            mrr[consts.DefaultCurrency],
		TotalRevenue:   total,
		TotalMembers:   len(members),
		ActiveMembers:  activeMembers,
		NewMembers:     int(newMembers),
		ChurnedMembers: int(churnedMembers),
		ChurnRate:      churnRate(churnedMembers, activeMembers),
	}
	return s.revenueRepo.Upsert(ctx, metric)
}

func (s *revenueServiceImpl) GetRevenueStats(ctx context.Context, tenantID uint64) (*RevenueStats, error) {
	cacheKey := consts.RevenueStatsKey + strconv.FormatUint(tenantID, 10)
	if cached, err := redis.GetValue(ctx, cacheKey); err == nil && cached != "" {
		var stats RevenueStats
		if err = json.Unmarshal([]byte(cached), &stats); err == nil {
			return &stats, nil
		}
	}

	members, err := s.memberRepo.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	var activeMembers int64
	for _, member := range members {
		if member.Status == consts.MemberStatusActive || member.Status == consts.MemberStatusTrialing {
			activeMembers++
		}
	}

	since := time.Now().AddDate(0, 0, -churnWindowDays)
	newMembers, err := s.memberRepo.CountJoinedSince(ctx, tenantID, since)
	if err != nil {
		return nil, err
	}
	churnedMembers, err := s.memberRepo.CountCancelledSince(ctx, tenantID, since)
	if err != nil {
		return nil, err
	}

	stats := &RevenueStats{
		MRRByCurrency:  s.CalculateMRR(members),
		TotalMembers:   int64(len(members)),
		ActiveMembers:  activeMembers,
		NewMembers:     newMembers,
		ChurnedMembers: churnedMembers,
		ChurnRate:      churnRate(churnedMembers, int(activeMembers)),
	}

	if payload, err := json.Marshal(stats); err == nil {
		if err = redis.SetWithExpiration(ctx, cacheKey, string(payload), dashboardCacheTTL); err != nil {
			log.WarnContext(ctx, "revenue stats cache write failed", "tenant_id", tenantID, "err", err)
		}
	}
	return stats, nil
}

func (s *revenueServiceImpl) GetRevenueHistory(ctx context.Context, tenantID uint64, days int) ([]*model.RevenueMetric, error) {
	if days <= 0 || days > historyMaxDays {
		days = churnWindowDays
	}
	return s.revenueRepo.ListRecentByTenant(ctx, tenantID, days)
}

// churnRate 近 30 天流失率：churned / (active + churned)，百分数保留两位
func churnRate(churned int64, active int) decimal.Decimal {
	base := churned + int64(active)
	if base == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(churned).
		Div(decimal.NewFromInt(base)).
		Mul(decimal.NewFromInt(100)).
		Round(2)
}
