package service

import (
	"Pulseboard/internal/pkg/consts"
	"Pulseboard/internal/pkg/llm"
	"Pulseboard/internal/pkg/mongo"
	"Pulseboard/internal/pkg/redis"
	"context"
	"fmt"
	log "log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/llms"
)

const coachHistorySize = 20

// CoachReply 助手的一次回答，ConversationID 用于多轮续聊
type CoachReply struct {
	ConversationID string `json:"conversationId"`
	Answer         string `json:"answer"`
}

type CoachService interface {
	// Ask 基于租户当前的经营数据回答运营者提问，同一 conversationID 内保留上下文
	Ask(ctx context.Context, identity *TenantIdentity, conversationID, question string) (*CoachReply, error)
	// DailyInsight 生成当日经营简报，当天内复用缓存
	DailyInsight(ctx context.Context, tenantID uint64) (string, error)
}

type coachServiceImpl struct {
	revenueService    RevenueService
	engagementService EngagementService
	riskService       RiskService
	coachRepo         mongo.CoachMessageRepo
}

func NewCoachService(
	revenueService RevenueService,
	engagementService EngagementService,
	riskService RiskService,
	coachRepo mongo.CoachMessageRepo,
) CoachService {
	return &coachServiceImpl{
		revenueService:    revenueService,
		engagementService: engagementService,
		riskService:       riskService,
		coachRepo:         coachRepo,
	}
}

func (s *coachServiceImpl) Ask(ctx context.Context, identity *TenantIdentity, conversationID, question string) (*CoachReply, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrParamInvalid
	}
	if conversationID == "" {
		conversationID = uuid.NewString()
	}

	snapshot := s.buildSnapshot(ctx, identity.TenantID)
	history, err := s.coachRepo.GetHistory(ctx, identity.TenantID, conversationID, coachHistorySize)
	if err != nil {
		log.WarnContext(ctx, "coach history lookup failed", "conversation_id", conversationID, "err", err)
	}

	systemPrompt := llm.CoachPrompt() + "\n\nCOMMUNITY SNAPSHOT\n" + snapshot
	answer, err := llm.FetchChat(ctx, systemPrompt, toModelMessages(history), question, nil)
	if err != nil {
		log.ErrorContext(ctx, "coach generation failed", "tenant_id", identity.TenantID, "err", err)
		return nil, ErrConversation
	}

	// 历史落库失败只影响后续轮次的上下文，不影响本次回答
	now := time.Now()
	for _, msg := range []*mongo.CoachMessage{
		{ConversationID: conversationID, TenantID: identity.TenantID, Role: "user", Content: question, CreatedAt: now},
		{ConversationID: conversationID, TenantID: identity.TenantID, Role: "assistant", Content: answer, CreatedAt: now.Add(time.Millisecond)},
	} {
		if err = s.coachRepo.SaveMessage(ctx, msg); err != nil {
			log.WarnContext(ctx, "coach message persist failed", "conversation_id", conversationID, "err", err)
		}
	}

	return &CoachReply{
		ConversationID: conversationID,
		Answer:         answer,
	}, nil
}

func (s *coachServiceImpl) DailyInsight(ctx context.Context, tenantID uint64) (string, error) {
	cacheKey := consts.DailyInsightKey + strconv.FormatUint(tenantID, 10)
	if cached, err := redis.GetValue(ctx, cacheKey); err == nil && cached != "" {
		return cached, nil
	}

	snapshot := s.buildSnapshot(ctx, tenantID)
	insight, err := llm.FetchCompletion(ctx, llm.InsightPrompt(), "COMMUNITY SNAPSHOT\n"+snapshot, 0.7)
	if err != nil {
		log.ErrorContext(ctx, "daily insight generation failed", "tenant_id", tenantID, "err", err)
		return "", ErrConversation
	}

	if err = redis.SetWithExpiration(ctx, cacheKey, insight, untilMidnight(time.Now())); err != nil {
		log.WarnContext(ctx, "daily insight cache write failed", "tenant_id", tenantID, "err", err)
	}
	return insight, nil
}

// buildSnapshot 把经营数据拼成给模型看的文本块。
// 任一数据源失败都降级为该段缺失，不阻断问答
func (s *coachServiceImpl) buildSnapshot(ctx context.Context, tenantID uint64) string {
	var b strings.Builder

	if revenue, err := s.revenueService.GetRevenueStats(ctx, tenantID); err == nil {
		b.WriteString("Revenue:\n")
		for currency, amount := range revenue.MRRByCurrency {
			fmt.Fprintf(&b, "- MRR (%s): %s\n", currency, amount.StringFixed(2))
		}
		fmt.Fprintf(&b, "- members total=%d active=%d new(30d)=%d churned(30d)=%d churn_rate=%s%%\n",
			revenue.TotalMembers, revenue.ActiveMembers, revenue.NewMembers,
			revenue.ChurnedMembers, revenue.ChurnRate.StringFixed(2))
	} else {
		log.WarnContext(ctx, "snapshot revenue section unavailable", "tenant_id", tenantID, "err", err)
	}

	if engagement, err := s.engagementService.GetDailyStats(ctx, tenantID); err == nil {
		fmt.Fprintf(&b, "Engagement (%s): average_score=%.1f active_users=%d\n",
			engagement.Date, engagement.AverageScore, engagement.ActiveUsers)
		for i, row := range engagement.Leaderboard {
			name := row.WhopUserID
			if row.Username != nil && *row.Username != "" {
				name = *row.Username
			}
			fmt.Fprintf(&b, "- top%d %s: messages=%d score=%.0f\n", i+1, name, row.MessageCount, row.EngagementScore)
		}
	} else {
		log.WarnContext(ctx, "snapshot engagement section unavailable", "tenant_id", tenantID, "err", err)
	}

	if atRisk, err := s.riskService.ListAtRisk(ctx, tenantID); err == nil {
		fmt.Fprintf(&b, "Churn risk (%d members):\n", len(atRisk))
		for _, member := range atRisk {
			fmt.Fprintf(&b, "- %s level=%s inactive_days=%d renewal=%s %s\n",
				member.WhopUserID, member.RiskLevel, member.DaysInactive,
				member.RenewalPrice.StringFixed(2), member.Currency)
		}
	} else {
		log.WarnContext(ctx, "snapshot risk section unavailable", "tenant_id", tenantID, "err", err)
	}

	if b.Len() == 0 {
		return "(no analytics available yet, suggest running a sync first)"
	}
	return b.String()
}

func toModelMessages(history []*mongo.CoachMessage) []llms.MessageContent {
	messages := make([]llms.MessageContent, 0, len(history))
	for _, msg := range history {
		role := llms.ChatMessageTypeHuman
		if msg.Role == "assistant" {
			role = llms.ChatMessageTypeAI
		}
		messages = append(messages, llms.MessageContent{
			Role: role,
			Parts: []llms.ContentPart{
				llms.TextPart(msg.Content),
			},
		})
	}
	return messages
}

// untilMidnight 距离次日零点的时长，作为当日缓存的 TTL
func untilMidnight(now time.Time) time.Duration {
	next := midnight(now).AddDate(0, 0, 1)
	return next.Sub(now)
}
