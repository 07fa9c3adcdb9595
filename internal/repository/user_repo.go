package repository

import (
	"Pulseboard/internal/model"
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

type UserRepo interface {
	FindTenantByCompanyID(ctx context.Context, companyID string) (*model.User, error)
	FindByWhopUserID(ctx context.Context, whopUserID string) (*model.User, error)
	Create(ctx context.Context, user *model.User) error
	TouchLastSync(ctx context.Context, id uint64, at time.Time) error
	ListTenants(ctx context.Context) ([]*model.User, error)
}

type userRepoImpl struct {
	db *gorm.DB
}

func NewUserRepo(db *gorm.DB) UserRepo {
	return &userRepoImpl{db: db}
}

func (s *userRepoImpl) FindTenantByCompanyID(ctx context.Context, companyID string) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).
		Where("whop_company_id = ? AND is_tenant = ?", companyID, true).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (s *userRepoImpl) FindByWhopUserID(ctx context.Context, whopUserID string) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).
		Where("whop_user_id = ?", whopUserID).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (s *userRepoImpl) Create(ctx context.Context, user *model.User) error {
	return s.db.WithContext(ctx).Create(user).Error
}

func (s *userRepoImpl) TouchLastSync(ctx context.Context, id uint64, at time.Time) error {
	return s.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", id).
		Update("last_sync_at", at).Error
}

func (s *userRepoImpl) ListTenants(ctx context.Context) ([]*model.User, error) {
	tenants := make([]*model.User, 0)
	result := s.db.WithContext(ctx).
		Where("is_tenant = ?", true).
		Find(&tenants)
	if result.Error != nil {
		return nil, result.Error
	}
	return tenants, nil
}
