package service

import (
	"Pulseboard/internal/api/config"
	"Pulseboard/internal/model"
	"Pulseboard/internal/pkg/consts"
	"Pulseboard/internal/pkg/redis"
	"Pulseboard/internal/pkg/whop"
	"context"
	"fmt"
	log "log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"Pulseboard/internal/repository"
)

const (
	syncLockTTL  = 10 * time.Minute
	pageThrottle = 100 * time.Millisecond
	// maxSyncPages 翻页上限，防御游标异常导致的死循环
	maxSyncPages  = 200
	defaultChans  = 5
	defaultMsgCap = 100
)

// SyncSummary 单个阶段的执行统计。
// Errors 收集被跳过的局部失败，单条失败不中断整个阶段
type SyncSummary struct {
	Pages    int      `json:"pages"`
	Fetched  int      `json:"fetched"`
	Upserted int      `json:"upserted"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

// SyncResult 一次完整同步（会员阶段 + 活跃度阶段）的结果
type SyncResult struct {
	Members    *SyncSummary `json:"members"`
	Engagement *SyncSummary `json:"engagement"`
	Reason     string       `json:"reason"`
	SyncedAt   time.Time    `json:"synced_at"`
}

type SyncService interface {
	// SyncTenant 对单租户执行全量同步，同租户并发调用互斥
	SyncTenant(ctx context.Context, identity *TenantIdentity, reason string) (*SyncResult, error)
}

type syncServiceImpl struct {
	userRepo       repository.UserRepo
	memberRepo     repository.MemberRepo
	engagementRepo repository.EngagementMetricRepo
	revenueService RevenueService
	whopClient     whop.Client
	syncCfg        config.SyncConfig
}

func NewSyncService(
	userRepo repository.UserRepo,
	memberRepo repository.MemberRepo,
	engagementRepo repository.EngagementMetricRepo,
	revenueService RevenueService,
	whopClient whop.Client,
	syncCfg config.SyncConfig,
) SyncService {
	return &syncServiceImpl{
		userRepo:       userRepo,
		memberRepo:     memberRepo,
		engagementRepo: engagementRepo,
		revenueService: revenueService,
		whopClient:     whopClient,
		syncCfg:        syncCfg,
	}
}

func (s *syncServiceImpl) SyncTenant(ctx context.Context, identity *TenantIdentity, reason string) (*SyncResult, error) {
	lockKey := consts.TenantSyncLock + strconv.FormatUint(identity.TenantID, 10)
	lockVal := uuid.NewString()
	locked, err := redis.TryLock(ctx, lockKey, lockVal, syncLockTTL, 1)
	if err != nil {
		return nil, err
	}
	if !locked {
		return nil, ErrSyncInProgress
	}
	defer redis.UnLock(ctx, lockKey, lockVal)

	start := time.Now()
	log.InfoContext(ctx, "tenant sync started",
		"tenant_id", identity.TenantID, "company_id", identity.WhopCompanyID, "reason", reason)

	members, err := s.syncMembers(ctx, identity)
	if err != nil {
		return nil, err
	}

	engagement := s.syncEngagement(ctx, identity)

	if err = s.revenueService.SnapshotRevenue(ctx, identity.TenantID); err != nil {
		// 快照失败不回滚已落库的会员数据，下次同步会补上
		log.ErrorContext(ctx, "revenue snapshot failed", "tenant_id", identity.TenantID, "err", err)
		engagement.Errors = append(engagement.Errors, fmt.Sprintf("revenue snapshot: %v", err))
	}

	now := time.Now()
	if err = s.userRepo.TouchLastSync(ctx, identity.TenantID, now); err != nil {
		log.WarnContext(ctx, "touch last_sync_at failed", "tenant_id", identity.TenantID, "err", err)
	}
	s.invalidateDashboardCache(ctx, identity.TenantID)

	log.InfoContext(ctx, "tenant sync finished",
		"tenant_id", identity.TenantID,
		"member_upserted", members.Upserted,
		"engagement_upserted", engagement.Upserted,
		"cost", time.Since(start).String())

	return &SyncResult{
		Members:    members,
		Engagement: engagement,
		Reason:     reason,
		SyncedAt:   now,
	}, nil
}

// syncMembers 分页拉取会员列表并按 membership id 合并落库。
// 任何一页的列表接口失败都视为上游不可用、整个阶段失败；
// 已写入的页保留在库里，整阶段幂等可直接重试
func (s *syncServiceImpl) syncMembers(ctx context.Context, identity *TenantIdentity) (*SyncSummary, error) {
	summary := &SyncSummary{}
	planPrices := s.loadPlanPrices(ctx, identity.WhopCompanyID)

	cursor := ""
	for page := 0; page < maxSyncPages; page++ {
		result, err := s.whopClient.ListMemberships(ctx, identity.WhopCompanyID, cursor)
		if err != nil {
			log.ErrorContext(ctx, "membership listing unavailable",
				"company_id", identity.WhopCompanyID, "page", page, "err", err)
			return nil, ErrRemoteUnavailable
		}
		summary.Pages++

		for i := range result.Memberships {
			s.upsertMembership(ctx, identity, &result.Memberships[i], planPrices, summary)
		}

		cursor = result.NextCursor
		if cursor == "" {
			break
		}
		time.Sleep(pageThrottle)
	}
	return summary, nil
}

func (s *syncServiceImpl) upsertMembership(ctx context.Context, identity *TenantIdentity, m *whop.Membership, planPrices map[string]whop.Plan, summary *SyncSummary) {
	summary.Fetched++
	if m.UserID == "" || m.JoinedAt == nil {
		log.WarnContext(ctx, "membership record unusable, skipped",
			"membership_id", m.ID, "has_user", m.UserID != "", "has_joined_at", m.JoinedAt != nil)
		summary.Skipped++
		return
	}

	endUser, err := s.ensureEndUser(ctx, identity.WhopCompanyID, m.UserID, m.Username)
	if err != nil {
		summary.Errors = append(summary.Errors, fmt.Sprintf("membership %s: %v", m.ID, err))
		return
	}

	member := &model.Member{
		TenantID:         identity.TenantID,
		UserID:           &endUser.ID,
		WhopMemberID:     m.MemberID,
		WhopMembershipID: m.ID,
		WhopUserID:       m.UserID,
		Status:           strings.ToLower(m.Status),
		JoinedAt:         m.JoinedAt,
		CancelledAt:      m.CancelledAt,
		ProductID:        m.ProductID,
		PlanID:           m.PlanID,
		Currency:         consts.DefaultCurrency,
		Metadata:         m.Metadata,
	}
	if plan, ok := planPrices[m.PlanID]; ok {
		member.RenewalPrice = plan.RenewalPrice
		if plan.Currency != "" {
			member.Currency = strings.ToLower(plan.Currency)
		}
	} else {
		member.RenewalPrice = decimal.Zero
	}

	if err = s.memberRepo.Upsert(ctx, member); err != nil {
		summary.Errors = append(summary.Errors, fmt.Sprintf("membership %s: %v", m.ID, err))
		return
	}
	summary.Upserted++
}

// loadPlanPrices 预取计划定价表。拉取失败时降级为空表，会员照常落库、价格记 0
func (s *syncServiceImpl) loadPlanPrices(ctx context.Context, companyID string) map[string]whop.Plan {
	prices := make(map[string]whop.Plan)
	plans, err := s.whopClient.ListPlans(ctx, companyID)
	if err != nil {
		log.WarnContext(ctx, "plan listing failed, prices degrade to zero", "company_id", companyID, "err", err)
		return prices
	}
	for _, plan := range plans {
		prices[plan.ID] = plan
	}
	return prices
}

// ensureEndUser 终端用户在 users 表里只留一条轻量引用行，按 whop_user_id 幂等
func (s *syncServiceImpl) ensureEndUser(ctx context.Context, companyID, whopUserID, username string) (*model.User, error) {
	existing, err := s.userRepo.FindByWhopUserID(ctx, whopUserID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	endUser := &model.User{
		WhopUserID:    whopUserID,
		WhopCompanyID: companyID,
		IsTenant:      false,
	}
	if username != "" {
		endUser.Username = &username
	}
	if err = s.userRepo.Create(ctx, endUser); err != nil {
		if !isDuplicateKey(err) {
			return nil, err
		}
		return s.userRepo.FindByWhopUserID(ctx, whopUserID)
	}
	return endUser, nil
}

type memberActivity struct {
	messages   int
	lastActive time.Time
}

// syncEngagement 扫描聊天频道统计当日发言并为每个会员落一条当日活跃度快照。
// 频道列表拉不到按社区未开聊天处理，退化为仅按加入时长打分
func (s *syncServiceImpl) syncEngagement(ctx context.Context, identity *TenantIdentity) *SyncSummary {
	summary := &SyncSummary{}
	now := time.Now()
	today := midnight(now)

	channels, err := s.whopClient.ListChannels(ctx, identity.WhopCompanyID)
	if err != nil {
		log.WarnContext(ctx, "channel listing failed, fall back to join recency",
			"company_id", identity.WhopCompanyID, "err", err)
		channels = nil
	}

	maxChans := s.syncCfg.MaxChannels
	if maxChans <= 0 {
		maxChans = defaultChans
	}
	if len(channels) > maxChans {
		channels = channels[:maxChans]
	}
	msgCap := s.syncCfg.MessagesPerChan
	if msgCap <= 0 {
		msgCap = defaultMsgCap
	}

	activity := make(map[string]*memberActivity)
	for _, channel := range channels {
		messages, err := s.whopClient.ListMessages(ctx, channel.ID, msgCap)
		if err != nil {
			if whop.IsRateLimited(err) {
				log.WarnContext(ctx, "channel scan rate limited", "channel_id", channel.ID)
			}
			summary.Errors = append(summary.Errors, fmt.Sprintf("channel %s: %v", channel.ID, err))
			continue
		}
		for _, msg := range messages {
			if msg.UserID == "" || msg.CreatedAt.Before(today) {
				continue
			}
			act, ok := activity[msg.UserID]
			if !ok {
				act = &memberActivity{}
				activity[msg.UserID] = act
			}
			act.messages++
			if msg.CreatedAt.After(act.lastActive) {
				act.lastActive = msg.CreatedAt
			}
		}
	}

	members, err := s.memberRepo.ListByTenant(ctx, identity.TenantID)
	if err != nil {
		summary.Errors = append(summary.Errors, fmt.Sprintf("list members: %v", err))
		return summary
	}

	for _, member := range members {
		summary.Fetched++
		joinedAt := member.CreatedAt
		if member.JoinedAt != nil {
			joinedAt = *member.JoinedAt
		}

		messageCount := 0
		var lastActiveAt *time.Time
		if act, ok := activity[member.WhopUserID]; ok {
			messageCount = act.messages
			if !act.lastActive.IsZero() {
				stamp := act.lastActive
				lastActiveAt = &stamp
			}
		}

		var score int
		if len(channels) == 0 {
			score = JoinRecencyScore(joinedAt, now)
		} else {
			score = EngagementScore(messageCount, joinedAt, now)
		}

		metric := &model.EngagementMetric{
			TenantID:        identity.TenantID,
			MemberID:        member.ID,
			MetricDate:      today,
			MessageCount:    messageCount,
			ActivityScore:   activityPoints(messageCount),
			EngagementScore: decimal.NewFromInt(int64(score)),
			LastActiveAt:    lastActiveAt,
		}
		if err = s.engagementRepo.SaveOrUpdateMetric(ctx, metric); err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("member %d: %v", member.ID, err))
			continue
		}
		summary.Upserted++
	}
	return summary
}

func (s *syncServiceImpl) invalidateDashboardCache(ctx context.Context, tenantID uint64) {
	id := strconv.FormatUint(tenantID, 10)
	for _, key := range []string{
		consts.RevenueStatsKey + id,
		consts.EngagementStatsKey + id,
		consts.RiskListKey + id,
	} {
		if err := redis.DeleteKey(ctx, key); err != nil {
			log.WarnContext(ctx, "cache invalidation failed", "key", key, "err", err)
		}
	}
}
