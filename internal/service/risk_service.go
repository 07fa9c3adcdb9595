package service

import (
	"Pulseboard/internal/model"
	"Pulseboard/internal/pkg/consts"
	"Pulseboard/internal/pkg/redis"
	"context"
	log "log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"Pulseboard/internal/repository"
)

const (
	riskHighInactiveDays   = 14
	riskMediumInactiveDays = 3
	riskSilentGraceDays    = 7
)

// RiskMember 流失风险名单中的一条会员，低风险会员不进名单
type RiskMember struct {
	MemberID     uint64          `json:"memberId"`
	WhopUserID   string          `json:"whopUserId"`
	Email        *string         `json:"email"`
	Status       string          `json:"status"`
	RiskLevel    string          `json:"riskLevel"`
	DaysInactive int             `json:"daysInactive"`
	LastActiveAt *time.Time      `json:"lastActiveAt"`
	RenewalPrice decimal.Decimal `json:"renewalPrice"`
	Currency     string          `json:"currency"`
}

type RiskService interface {
	// ListAtRisk 返回 active 会员里的中高风险名单，
	// 高风险在前，同级按续费价从高到低
	ListAtRisk(ctx context.Context, tenantID uint64) ([]*RiskMember, error)
}

type riskServiceImpl struct {
	memberRepo     repository.MemberRepo
	engagementRepo repository.EngagementMetricRepo
}

func NewRiskService(memberRepo repository.MemberRepo, engagementRepo repository.EngagementMetricRepo) RiskService {
	return &riskServiceImpl{
		memberRepo:     memberRepo,
		engagementRepo: engagementRepo,
	}
}

func (s *riskServiceImpl) ListAtRisk(ctx context.Context, tenantID uint64) ([]*RiskMember, error) {
	cacheKey := consts.RiskListKey + strconv.FormatUint(tenantID, 10)
	if cached, err := redis.GetValue(ctx, cacheKey); err == nil && cached != "" {
		atRisk := make([]*RiskMember, 0)
		if err = json.Unmarshal([]byte(cached), &atRisk); err == nil {
			return atRisk, nil
		}
	}

	atRisk, err := s.buildRiskList(ctx, tenantID, time.Now())
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(atRisk); err == nil {
		if err = redis.SetWithExpiration(ctx, cacheKey, string(payload), dashboardCacheTTL); err != nil {
			log.WarnContext(ctx, "risk list cache write failed", "tenant_id", tenantID, "err", err)
		}
	}
	return atRisk, nil
}

// buildRiskList 按租户扫描 active 会员逐个分级，低风险不进名单
func (s *riskServiceImpl) buildRiskList(ctx context.Context, tenantID uint64, now time.Time) ([]*RiskMember, error) {
	members, err := s.memberRepo.ListByTenant(ctx, tenantID, consts.MemberStatusActive)
	if err != nil {
		return nil, err
	}

	atRisk := make([]*RiskMember, 0)
	for _, member := range members {
		metric, err := s.engagementRepo.GetLatestByMember(ctx, member.ID)
		if err != nil {
			log.WarnContext(ctx, "latest engagement lookup failed", "member_id", member.ID, "err", err)
			continue
		}

		level, daysInactive, lastActiveAt := classifyRisk(member, metric, now)
		if level == consts.RiskLevelLow {
			continue
		}
		atRisk = append(atRisk, &RiskMember{
			MemberID:     member.ID,
			WhopUserID:   member.WhopUserID,
			Email:        member.Email,
			Status:       member.Status,
			RiskLevel:    level,
			DaysInactive: daysInactive,
			LastActiveAt: lastActiveAt,
			RenewalPrice: member.RenewalPrice,
			Currency:     member.Currency,
		})
	}

	sort.Slice(atRisk, func(i, j int) bool {
		ri, rj := riskRank(atRisk[i].RiskLevel), riskRank(atRisk[j].RiskLevel)
		if ri != rj {
			return ri > rj
		}
		return atRisk[i].RenewalPrice.GreaterThan(atRisk[j].RenewalPrice)
	})
	return atRisk, nil
}

// classifyRisk 按最近活跃时间分级：超 14 天高风险、超 3 天中风险；
// 最新快照零发言且超 7 天未活跃的会员直接判高风险。
// 没有任何活跃记录时退回加入时间作为最近活跃时间
func classifyRisk(member *model.Member, metric *model.EngagementMetric, now time.Time) (string, int, *time.Time) {
	var lastActiveAt *time.Time
	if metric != nil && metric.LastActiveAt != nil {
		lastActiveAt = metric.LastActiveAt
	}

	reference := time.Time{}
	if lastActiveAt != nil {
		reference = *lastActiveAt
	} else if member.JoinedAt != nil {
		reference = *member.JoinedAt
	}
	daysInactive := int(now.Sub(reference).Hours() / 24)

	level := consts.RiskLevelLow
	switch {
	case daysInactive > riskHighInactiveDays:
		level = consts.RiskLevelHigh
	case daysInactive > riskMediumInactiveDays:
		level = consts.RiskLevelMedium
	}

	if metric != nil && metric.MessageCount == 0 && daysInactive > riskSilentGraceDays {
		level = consts.RiskLevelHigh
	}
	return level, daysInactive, lastActiveAt
}

func riskRank(level string) int {
	switch level {
	case consts.RiskLevelHigh:
		return 2
	case consts.RiskLevelMedium:
		return 1
	default:
		return 0
	}
}
