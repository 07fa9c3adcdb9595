package repository

import (
	"Pulseboard/internal/model"
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MemberRepo interface {
	// Upsert 以 whop_membership_id 为合并键写入，冲突时只更新可变字段
	Upsert(ctx context.Context, member *model.Member) error
	FindByMembershipID(ctx context.Context, membershipID string) (*model.Member, error)
	ListByTenant(ctx context.Context, tenantID uint64, statuses ...string) ([]*model.Member, error)
	CountByTenant(ctx context.Context, tenantID uint64, statuses ...string) (int64, error)
	CountJoinedSince(ctx context.Context, tenantID uint64, since time.Time) (int64, error)
	CountCancelledSince(ctx context.Context, tenantID uint64, since time.Time) (int64, error)
}

type memberRepoImpl struct {
	db *gorm.DB
}

func NewMemberRepo(db *gorm.DB) MemberRepo {
	return &memberRepoImpl{db: db}
}

func (s *memberRepoImpl) Upsert(ctx context.Context, member *model.Member) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "whop_membership_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"status", "joined_at", "cancelled_at", "product_id", "plan_id",
			"renewal_price", "currency", "user_id", "metadata", "updated_at",
		}),
	}).Create(member).Error
}

func (s *memberRepoImpl) FindByMembershipID(ctx context.Context, membershipID string) (*model.Member, error) {
	var member model.Member
	err := s.db.WithContext(ctx).
		Where("whop_membership_id = ?", membershipID).
		First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &member, nil
}

func (s *memberRepoImpl) ListByTenant(ctx context.Context, tenantID uint64, statuses ...string) ([]*model.Member, error) {
	members := make([]*model.Member, 0)
	query := s.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}
	if result := query.Find(&members); result.Error != nil {
		return nil, result.Error
	}
	return members, nil
}

func (s *memberRepoImpl) CountByTenant(ctx context.Context, tenantID uint64, statuses ...string) (int64, error) {
	var count int64
	query := s.db.WithContext(ctx).Model(&model.Member{}).Where("tenant_id = ?", tenantID)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (s *memberRepoImpl) CountJoinedSince(ctx context.Context, tenantID uint64, since time.Time) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.Member{}).
		Where("tenant_id = ? AND joined_at >= ?", tenantID, since).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (s *memberRepoImpl) CountCancelledSince(ctx context.Context, tenantID uint64, since time.Time) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.Member{}).
		Where("tenant_id = ? AND cancelled_at >= ?", tenantID, since).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
