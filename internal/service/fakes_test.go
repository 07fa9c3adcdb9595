package service

import (
	"Pulseboard/internal/model"
	"Pulseboard/internal/pkg/whop"
	"context"
	"fmt"
	"sort"
	"time"

	"Pulseboard/internal/repository"
)

// 包内测试共用的内存假件，行为与真实仓储的合并键语义一致

type fakeUserRepo struct {
	byWhopID  map[string]*model.User
	nextID    uint64
	createErr error
	// dupWinner 模拟并发场景：Create 撞唯一键时对端已写入的那行
	dupWinner *model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byWhopID: make(map[string]*model.User)}
}

func (s *fakeUserRepo) FindTenantByCompanyID(_ context.Context, companyID string) (*model.User, error) {
	for _, user := range s.byWhopID {
		if user.IsTenant && user.WhopCompanyID == companyID {
			return user, nil
		}
	}
	return nil, nil
}

func (s *fakeUserRepo) FindByWhopUserID(_ context.Context, whopUserID string) (*model.User, error) {
	return s.byWhopID[whopUserID], nil
}

func (s *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	if s.createErr != nil {
		err := s.createErr
		s.createErr = nil
		if s.dupWinner != nil {
			s.nextID++
			s.dupWinner.ID = s.nextID
			s.byWhopID[s.dupWinner.WhopUserID] = s.dupWinner
		}
		return err
	}
	if _, exists := s.byWhopID[user.WhopUserID]; exists {
		return fmt.Errorf("duplicate whop_user_id %s", user.WhopUserID)
	}
	s.nextID++
	user.ID = s.nextID
	s.byWhopID[user.WhopUserID] = user
	return nil
}

func (s *fakeUserRepo) TouchLastSync(_ context.Context, id uint64, at time.Time) error {
	for _, user := range s.byWhopID {
		if user.ID == id {
			user.LastSyncAt = &at
		}
	}
	return nil
}

func (s *fakeUserRepo) ListTenants(_ context.Context) ([]*model.User, error) {
	tenants := make([]*model.User, 0)
	for _, user := range s.byWhopID {
		if user.IsTenant {
			tenants = append(tenants, user)
		}
	}
	return tenants, nil
}

type fakeMemberRepo struct {
	byMembershipID map[string]*model.Member
	nextID         uint64
	upsertErrFor   string
}

func newFakeMemberRepo() *fakeMemberRepo {
	return &fakeMemberRepo{byMembershipID: make(map[string]*model.Member)}
}

func (s *fakeMemberRepo) Upsert(_ context.Context, member *model.Member) error {
	if s.upsertErrFor != "" && member.WhopMembershipID == s.upsertErrFor {
		return fmt.Errorf("upsert failed for %s", member.WhopMembershipID)
	}
	if existing, ok := s.byMembershipID[member.WhopMembershipID]; ok {
		member.ID = existing.ID
		member.TenantID = existing.TenantID
	} else {
		s.nextID++
		member.ID = s.nextID
	}
	s.byMembershipID[member.WhopMembershipID] = member
	return nil
}

func (s *fakeMemberRepo) FindByMembershipID(_ context.Context, membershipID string) (*model.Member, error) {
	return s.byMembershipID[membershipID], nil
}

func (s *fakeMemberRepo) ListByTenant(_ context.Context, tenantID uint64, statuses ...string) ([]*model.Member, error) {
	members := make([]*model.Member, 0)
	for _, member := range s.byMembershipID {
		if member.TenantID != tenantID {
			continue
		}
		if len(statuses) > 0 && !containsStatus(statuses, member.Status) {
			continue
		}
		members = append(members, member)
	}
	return members, nil
}

func (s *fakeMemberRepo) CountByTenant(ctx context.Context, tenantID uint64, statuses ...string) (int64, error) {
	members, _ := s.ListByTenant(ctx, tenantID, statuses...)
	return int64(len(members)), nil
}

func (s *fakeMemberRepo) CountJoinedSince(_ context.Context, tenantID uint64, since time.Time) (int64, error) {
	var count int64
	for _, member := range s.byMembershipID {
		if member.TenantID == tenantID && member.JoinedAt != nil && !member.JoinedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (s *fakeMemberRepo) CountCancelledSince(_ context.Context, tenantID uint64, since time.Time) (int64, error) {
	var count int64
	for _, member := range s.byMembershipID {
		if member.TenantID == tenantID && member.CancelledAt != nil && !member.CancelledAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func containsStatus(statuses []string, status string) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

type fakeEngagementRepo struct {
	byMemberDate map[string]*model.EngagementMetric
	nextID       uint64
}

func newFakeEngagementRepo() *fakeEngagementRepo {
	return &fakeEngagementRepo{byMemberDate: make(map[string]*model.EngagementMetric)}
}

func engagementKey(memberID uint64, date time.Time) string {
	return fmt.Sprintf("%d:%s", memberID, date.Format(time.DateOnly))
}

func (s *fakeEngagementRepo) SaveOrUpdateMetric(_ context.Context, metric *model.EngagementMetric) error {
	key := engagementKey(metric.MemberID, metric.MetricDate)
	if existing, ok := s.byMemberDate[key]; ok {
		metric.ID = existing.ID
		if metric.LastActiveAt == nil {
			metric.LastActiveAt = existing.LastActiveAt
		}
	} else {
		s.nextID++
		metric.ID = s.nextID
	}
	s.byMemberDate[key] = metric
	return nil
}

func (s *fakeEngagementRepo) GetLatestByMember(_ context.Context, memberID uint64) (*model.EngagementMetric, error) {
	var latest *model.EngagementMetric
	for _, metric := range s.byMemberDate {
		if metric.MemberID != memberID {
			continue
		}
		if latest == nil || metric.MetricDate.After(latest.MetricDate) {
			latest = metric
		}
	}
	return latest, nil
}

func (s *fakeEngagementRepo) GetDailyStats(_ context.Context, tenantID uint64, date time.Time) (*repository.DailyStats, error) {
	var total float64
	var active int64
	var count int
	for _, metric := range s.byMemberDate {
		if metric.TenantID != tenantID || !metric.MetricDate.Equal(date) {
			continue
		}
		score, _ := metric.EngagementScore.Float64()
		total += score
		count++
		if metric.MessageCount > 0 {
			active++
		}
	}
	stats := &repository.DailyStats{ActiveUsers: active}
	if count > 0 {
		stats.AverageScore = total / float64(count)
	}
	return stats, nil
}

func (s *fakeEngagementRepo) ListTopByDate(_ context.Context, tenantID uint64, date time.Time, limit int) ([]*repository.LeaderboardRow, error) {
	rows := make([]*repository.LeaderboardRow, 0)
	for _, metric := range s.byMemberDate {
		if metric.TenantID != tenantID || !metric.MetricDate.Equal(date) {
			continue
		}
		score, _ := metric.EngagementScore.Float64()
		rows = append(rows, &repository.LeaderboardRow{
			MemberID:        metric.MemberID,
			MessageCount:    metric.MessageCount,
			EngagementScore: score,
			LastActiveAt:    metric.LastActiveAt,
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].EngagementScore > rows[j].EngagementScore })
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

type fakeRevenueRepo struct {
	byTenantDate map[string]*model.RevenueMetric
	nextID       uint64
}

func newFakeRevenueRepo() *fakeRevenueRepo {
	return &fakeRevenueRepo{byTenantDate: make(map[string]*model.RevenueMetric)}
}

func (s *fakeRevenueRepo) Upsert(_ context.Context, metric *model.RevenueMetric) error {
	key := fmt.Sprintf("%d:%s", metric.TenantID, metric.MetricDate.Format(time.DateOnly))
	if existing, ok := s.byTenantDate[key]; ok {
		metric.ID = existing.ID
	} else {
		s.nextID++
		metric.ID = s.nextID
	}
	s.byTenantDate[key] = metric
	return nil
}

func (s *fakeRevenueRepo) ListRecentByTenant(_ context.Context, tenantID uint64, limit int) ([]*model.RevenueMetric, error) {
	metrics := make([]*model.RevenueMetric, 0)
	for _, metric := range s.byTenantDate {
		if metric.TenantID == tenantID {
			metrics = append(metrics, metric)
		}
	}
	sort.Slice(metrics, func(i, j int) bool { return metrics[i].MetricDate.Before(metrics[j].MetricDate) })
	if len(metrics) > limit {
		metrics = metrics[len(metrics)-limit:]
	}
	return metrics, nil
}

type fakeWhopClient struct {
	userID        string
	verifyErr     error
	currentUser   *whop.User
	currentErr    error
	pages         []*whop.MembershipPage
	pageErrAt     int
	pageErr       error
	pageCalls     int
	plans         []whop.Plan
	plansErr      error
	channels      []whop.Channel
	channelsErr   error
	messages      map[string][]whop.Message
	messageErrFor string
}

func (s *fakeWhopClient) VerifyUserToken(string) (string, error) {
	if s.verifyErr != nil {
		return "", s.verifyErr
	}
	return s.userID, nil
}

func (s *fakeWhopClient) GetCurrentUser(context.Context, string) (*whop.User, error) {
	if s.currentErr != nil {
		return nil, s.currentErr
	}
	return s.currentUser, nil
}

func (s *fakeWhopClient) ListMemberships(_ context.Context, _, cursor string) (*whop.MembershipPage, error) {
	index := s.pageCalls
	s.pageCalls++
	if s.pageErr != nil && index == s.pageErrAt {
		return nil, s.pageErr
	}
	if index >= len(s.pages) {
		return &whop.MembershipPage{}, nil
	}
	return s.pages[index], nil
}

func (s *fakeWhopClient) ListPlans(context.Context, string) ([]whop.Plan, error) {
	if s.plansErr != nil {
		return nil, s.plansErr
	}
	return s.plans, nil
}

func (s *fakeWhopClient) ListChannels(context.Context, string) ([]whop.Channel, error) {
	if s.channelsErr != nil {
		return nil, s.channelsErr
	}
	return s.channels, nil
}

func (s *fakeWhopClient) ListMessages(_ context.Context, channelID string, _ int) ([]whop.Message, error) {
	if s.messageErrFor == channelID {
		return nil, &whop.APIError{Status: 429, Body: "rate limited"}
	}
	return s.messages[channelID], nil
}
