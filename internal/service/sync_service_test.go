package service

import (
	"Pulseboard/internal/api/config"
	"Pulseboard/internal/model"
	"Pulseboard/internal/pkg/whop"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newSyncFixture(client *fakeWhopClient) (*syncServiceImpl, *fakeUserRepo, *fakeMemberRepo, *fakeEngagementRepo) {
	userRepo := newFakeUserRepo()
	memberRepo := newFakeMemberRepo()
	engagementRepo := newFakeEngagementRepo()
	revenueSvc := NewRevenueService(memberRepo, newFakeRevenueRepo())

	svc := NewSyncService(userRepo, memberRepo, engagementRepo, revenueSvc, client,
		config.SyncConfig{MaxChannels: 5, MessagesPerChan: 100}).(*syncServiceImpl)
	return svc, userRepo, memberRepo, engagementRepo
}

func testIdentity() *TenantIdentity {
	return &TenantIdentity{TenantID: 1, WhopUserID: "user_owner", WhopCompanyID: "biz_1"}
}

func TestSyncMembersPagingAndUpsert(t *testing.T) {
	t.Parallel()

	joined := time.Now().AddDate(0, 0, -5)
	client := &fakeWhopClient{
		pages: []*whop.MembershipPage{
			{
				Memberships: []whop.Membership{
					{ID: "ms_1", MemberID: "mem_1", UserID: "user_a", Username: "alice", Status: "active", PlanID: "plan_pro", JoinedAt: &joined},
					{ID: "ms_2", MemberID: "mem_2", UserID: "", Status: "active", JoinedAt: &joined},
				},
				NextCursor: "page2",
			},
			{
				Memberships: []whop.Membership{
					{ID: "ms_3", MemberID: "mem_3", UserID: "user_b", Status: "Trialing", PlanID: "plan_basic", JoinedAt: &joined},
					{ID: "ms_4", MemberID: "mem_4", UserID: "user_c", Status: "active", JoinedAt: nil},
				},
			},
		},
		plans: []whop.Plan{
			{ID: "plan_pro", RenewalPrice: decimal.RequireFromString("49.99"), Currency: "USD"},
			{ID: "plan_basic", RenewalPrice: decimal.RequireFromString("9.99"), Currency: "eur"},
		},
	}

	svc, userRepo, memberRepo, _ := newSyncFixture(client)
	ctx := context.Background()

	summary, err := svc.syncMembers(ctx, testIdentity())
	require.NoError(t, err)
	require.Equal(t, 2, summary.Pages)
	require.Equal(t, 4, summary.Fetched)
	require.Equal(t, 2, summary.Upserted)
	require.Equal(t, 2, summary.Skipped)
	require.Empty(t, summary.Errors)

	saved, err := memberRepo.FindByMembershipID(ctx, "ms_1")
	require.NoError(t, err)
	require.NotNil(t, saved)
	require.Equal(t, uint64(1), saved.TenantID)
	require.Equal(t, "active", saved.Status)
	require.True(t, saved.RenewalPrice.Equal(decimal.RequireFromString("49.99")))
	require.Equal(t, "usd", saved.Currency)

	// 状态在落库时统一转小写
	saved, err = memberRepo.FindByMembershipID(ctx, "ms_3")
	require.NoError(t, err)
	require.Equal(t, "trialing", saved.Status)
	require.Equal(t, "eur", saved.Currency)

	// 终端用户引用行按 whop_user_id 建立
	endUser, err := userRepo.FindByWhopUserID(ctx, "user_a")
	require.NoError(t, err)
	require.NotNil(t, endUser)
	require.False(t, endUser.IsTenant)
	require.Equal(t, "alice", *endUser.Username)

	// 重跑一遍必须收敛：会员数不变，字段被覆盖更新
	client.pageCalls = 0
	client.pages[0].Memberships[0].Status = "cancelled"
	summary, err = svc.syncMembers(ctx, testIdentity())
	require.NoError(t, err)
	require.Equal(t, 2, summary.Upserted)

	members, err := memberRepo.ListByTenant(ctx, 1)
	require.NoError(t, err)
	require.Len(t, members, 2)

	saved, err = memberRepo.FindByMembershipID(ctx, "ms_1")
	require.NoError(t, err)
	require.Equal(t, "cancelled", saved.Status)
}

func TestSyncMembersFirstPageUnavailable(t *testing.T) {
	t.Parallel()

	client := &fakeWhopClient{
		pageErr:   &whop.APIError{Status: 502, Body: "bad gateway"},
		pageErrAt: 0,
	}
	svc, _, _, _ := newSyncFixture(client)

	_, err := svc.syncMembers(context.Background(), testIdentity())
	require.ErrorIs(t, err, ErrRemoteUnavailable)
}

func TestSyncMembersLaterPageUnavailable(t *testing.T) {
	t.Parallel()

	joined := time.Now().AddDate(0, 0, -5)
	client := &fakeWhopClient{
		pages: []*whop.MembershipPage{
			{
				Memberships: []whop.Membership{
					{ID: "ms_1", UserID: "user_a", Status: "active", JoinedAt: &joined},
				},
				NextCursor: "page2",
			},
		},
		pageErr:   errors.New("connection refused"),
		pageErrAt: 1,
	}
	svc, _, memberRepo, _ := newSyncFixture(client)
	ctx := context.Background()

	// 翻页中途失败整个阶段报不可用，已写入的页保留，重试即可补齐
	_, err := svc.syncMembers(ctx, testIdentity())
	require.ErrorIs(t, err, ErrRemoteUnavailable)

	members, listErr := memberRepo.ListByTenant(ctx, 1)
	require.NoError(t, listErr)
	require.Len(t, members, 1)
}

func TestSyncMembersPartialFailure(t *testing.T) {
	t.Parallel()

	joined := time.Now().AddDate(0, 0, -5)
	memberships := make([]whop.Membership, 0, 10)
	for i := 0; i < 10; i++ {
		memberships = append(memberships, whop.Membership{
			ID:       "ms_" + string(rune('a'+i)),
			UserID:   "user_" + string(rune('a'+i)),
			Status:   "active",
			JoinedAt: &joined,
		})
	}
	client := &fakeWhopClient{pages: []*whop.MembershipPage{{Memberships: memberships}}}

	svc, _, memberRepo, _ := newSyncFixture(client)
	memberRepo.upsertErrFor = "ms_c"

	summary, err := svc.syncMembers(context.Background(), testIdentity())
	require.NoError(t, err)
	require.Equal(t, 9, summary.Upserted)
	require.Len(t, summary.Errors, 1)

	members, listErr := memberRepo.ListByTenant(context.Background(), 1)
	require.NoError(t, listErr)
	require.Len(t, members, 9)
}

func TestSyncMembersPlanLookupDegrades(t *testing.T) {
	t.Parallel()

	joined := time.Now().AddDate(0, 0, -5)
	client := &fakeWhopClient{
		pages: []*whop.MembershipPage{{Memberships: []whop.Membership{
			{ID: "ms_1", UserID: "user_a", Status: "active", PlanID: "plan_pro", JoinedAt: &joined},
		}}},
		plansErr: errors.New("plans endpoint down"),
	}

	svc, _, memberRepo, _ := newSyncFixture(client)

	summary, err := svc.syncMembers(context.Background(), testIdentity())
	require.NoError(t, err)
	require.Equal(t, 1, summary.Upserted)

	saved, err := memberRepo.FindByMembershipID(context.Background(), "ms_1")
	require.NoError(t, err)
	require.True(t, saved.RenewalPrice.IsZero())
}

func TestSyncEngagementScoresEveryMember(t *testing.T) {
	t.Parallel()

	now := time.Now()
	joinedOld := now.AddDate(0, 0, -60)
	joinedNew := now.AddDate(0, 0, -2)

	client := &fakeWhopClient{
		channels: []whop.Channel{{ID: "ch_1", Name: "general"}},
		messages: map[string][]whop.Message{
			"ch_1": {
				{ID: "msg_1", UserID: "user_a", CreatedAt: now.Add(-time.Hour)},
				{ID: "msg_2", UserID: "user_a", CreatedAt: now.Add(-2 * time.Hour)},
				// 昨天的消息不计入今天
				{ID: "msg_3", UserID: "user_b", CreatedAt: now.AddDate(0, 0, -1)},
			},
		},
	}

	svc, _, memberRepo, engagementRepo := newSyncFixture(client)
	ctx := context.Background()

	require.NoError(t, memberRepo.Upsert(ctx, &model.Member{TenantID: 1, WhopMembershipID: "ms_1", WhopUserID: "user_a", Status: "active", JoinedAt: &joinedOld}))
	require.NoError(t, memberRepo.Upsert(ctx, &model.Member{TenantID: 1, WhopMembershipID: "ms_2", WhopUserID: "user_b", Status: "active", JoinedAt: &joinedNew}))

	summary := svc.syncEngagement(ctx, testIdentity())
	require.Equal(t, 2, summary.Upserted)
	require.Empty(t, summary.Errors)

	active, err := engagementRepo.GetLatestByMember(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, active)
	require.Equal(t, 2, active.MessageCount)
	require.Equal(t, "60", active.EngagementScore.String())
	require.NotNil(t, active.LastActiveAt)

	// 当日零消息的会员也要落快照，且恒为 0 分
	silent, err := engagementRepo.GetLatestByMember(ctx, 2)
	require.NoError(t, err)
	require.NotNil(t, silent)
	require.Equal(t, 0, silent.MessageCount)
	require.True(t, silent.EngagementScore.IsZero())
	require.Nil(t, silent.LastActiveAt)
}

func TestSyncEngagementChannelListFailureFallsBack(t *testing.T) {
	t.Parallel()

	now := time.Now()
	joined := now.AddDate(0, 0, -2)
	client := &fakeWhopClient{channelsErr: errors.New("channels unavailable")}

	svc, _, memberRepo, engagementRepo := newSyncFixture(client)
	ctx := context.Background()

	require.NoError(t, memberRepo.Upsert(ctx, &model.Member{TenantID: 1, WhopMembershipID: "ms_1", WhopUserID: "user_a", Status: "active", JoinedAt: &joined}))

	summary := svc.syncEngagement(ctx, testIdentity())
	require.Equal(t, 1, summary.Upserted)

	metric, err := engagementRepo.GetLatestByMember(ctx, 1)
	require.NoError(t, err)
	// 聊天功能不可用时退化为只按加入时长估分
	require.Equal(t, "50", metric.EngagementScore.String())
	require.Equal(t, 0, metric.MessageCount)
}

func TestSyncEngagementRateLimitedChannelSkipped(t *testing.T) {
	t.Parallel()

	now := time.Now()
	joined := now.AddDate(0, 0, -60)
	client := &fakeWhopClient{
		channels: []whop.Channel{{ID: "ch_1"}, {ID: "ch_2"}},
		messages: map[string][]whop.Message{
			"ch_2": {{ID: "msg_1", UserID: "user_a", CreatedAt: now.Add(-time.Minute)}},
		},
		messageErrFor: "ch_1",
	}

	svc, _, memberRepo, engagementRepo := newSyncFixture(client)
	ctx := context.Background()

	require.NoError(t, memberRepo.Upsert(ctx, &model.Member{TenantID: 1, WhopMembershipID: "ms_1", WhopUserID: "user_a", Status: "active", JoinedAt: &joined}))

	summary := svc.syncEngagement(ctx, testIdentity())
	require.Equal(t, 1, summary.Upserted)
	require.Len(t, summary.Errors, 1)

	metric, err := engagementRepo.GetLatestByMember(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 1, metric.MessageCount)
}
