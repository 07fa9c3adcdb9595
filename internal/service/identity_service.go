package service

import (
	"Pulseboard/internal/api/config"
	"Pulseboard/internal/model"
	"Pulseboard/internal/pkg/consts"
	"Pulseboard/internal/pkg/whop"
	"context"
	"errors"
	log "log/slog"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"

	"Pulseboard/internal/repository"
)

// TenantIdentity 一次鉴权解析出的租户身份。
// Token 原样带回，下游以用户身份调用平台接口时复用
type TenantIdentity struct {
	TenantID      uint64  `json:"tenantId"`
	WhopUserID    string  `json:"whopUserId"`
	WhopCompanyID string  `json:"whopCompanyId"`
	Username      *string `json:"username"`
	Email         *string `json:"email"`
	// 原始令牌不落缓存
	Token string `json:"-"`
}

type IdentityService interface {
	// Resolve 校验凭证并解析为租户身份，首次出现的公司自动建租户
	Resolve(ctx context.Context, token string) (*TenantIdentity, error)
	// ResolveByCompanyID webhook / 定时任务按公司 ID 直接定位已有租户
	ResolveByCompanyID(ctx context.Context, companyID string) (*TenantIdentity, error)
}

type identityServiceImpl struct {
	userRepo   repository.UserRepo
	whopClient whop.Client
	whopCfg    config.WhopConfig
}

func NewIdentityService(userRepo repository.UserRepo, whopClient whop.Client, whopCfg config.WhopConfig) IdentityService {
	return &identityServiceImpl{
		userRepo:   userRepo,
		whopClient: whopClient,
		whopCfg:    whopCfg,
	}
}

func (s *identityServiceImpl) Resolve(ctx context.Context, token string) (*TenantIdentity, error) {
	if token == "" {
		if s.whopCfg.DevMode {
			return s.resolveDevTenant(ctx)
		}
		return nil, ErrInvalidCredential
	}

	userID, err := s.whopClient.VerifyUserToken(token)
	if err != nil {
		if errors.Is(err, whop.ErrNoVerifierKey) {
			return nil, ErrConfigMissing
		}
		log.WarnContext(ctx, "token verification failed", "err", err)
		return nil, ErrInvalidCredential
	}

	// 令牌不携带 company id，需要 who-am-I 一次
	me, err := s.whopClient.GetCurrentUser(ctx, token)
	if err != nil {
		var apiErr *whop.APIError
		if errors.As(err, &apiErr) && (apiErr.Status == 401 || apiErr.Status == 403) {
			return nil, ErrInvalidCredential
		}
		log.ErrorContext(ctx, "who-am-I lookup failed", "whop_user_id", userID, "err", err)
		return nil, ErrRemoteUnavailable
	}

	companyID := me.Company()
	if companyID == "" {
		log.WarnContext(ctx, "current user carries no company id", "whop_user_id", userID)
		return nil, ErrInvalidCredential
	}

	tenant, err := s.findOrCreateTenant(ctx, userID, companyID, me.Username, me.Email)
	if err != nil {
		return nil, err
	}

	return &TenantIdentity{
		TenantID:      tenant.ID,
		WhopUserID:    tenant.WhopUserID,
		WhopCompanyID: tenant.WhopCompanyID,
		Username:      tenant.Username,
		Email:         tenant.Email,
		Token:         token,
	}, nil
}

func (s *identityServiceImpl) ResolveByCompanyID(ctx context.Context, companyID string) (*TenantIdentity, error) {
	tenant, err := s.userRepo.FindTenantByCompanyID(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if tenant == nil {
		return nil, ErrTenantNotFound
	}

	return &TenantIdentity{
		TenantID:      tenant.ID,
		WhopUserID:    tenant.WhopUserID,
		WhopCompanyID: tenant.WhopCompanyID,
		Username:      tenant.Username,
		Email:         tenant.Email,
	}, nil
}

// findOrCreateTenant 首次见到的公司惰性建租户。
// 并发首登可能同时插入：唯一键冲突视为别人已建好，回读使用
func (s *identityServiceImpl) findOrCreateTenant(ctx context.Context, whopUserID, companyID string, username, email string) (*model.User, error) {
	tenant, err := s.userRepo.FindTenantByCompanyID(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if tenant != nil {
		return tenant, nil
	}

	newTenant := &model.User{
		WhopUserID:       whopUserID,
		WhopCompanyID:    companyID,
		IsTenant:         true,
		SubscriptionTier: consts.TierFree,
	}
	if username != "" {
		newTenant.Username = &username
	}
	if email != "" {
		newTenant.Email = &email
	}

	if err = s.userRepo.Create(ctx, newTenant); err != nil {
		if !isDuplicateKey(err) {
			return nil, err
		}
		tenant, err = s.userRepo.FindTenantByCompanyID(ctx, companyID)
		if err != nil {
			return nil, err
		}
		if tenant == nil {
			// 冲突来自同 whop_user_id 的非租户行等异常情况
			return nil, UnExpectedError
		}
		return tenant, nil
	}

	log.InfoContext(ctx, "provisioned new tenant", "company_id", companyID, "whop_user_id", whopUserID)
	return newTenant, nil
}

func (s *identityServiceImpl) resolveDevTenant(ctx context.Context) (*TenantIdentity, error) {
	companyID := s.whopCfg.DevCompanyID
	if companyID == "" {
		return nil, ErrConfigMissing
	}

	tenant, err := s.findOrCreateTenant(ctx, "dev_user", companyID, "Dev Admin", "dev@example.com")
	if err != nil {
		return nil, err
	}

	// Token 留空，下游回落到服务级 API Key
	return &TenantIdentity{
		TenantID:      tenant.ID,
		WhopUserID:    tenant.WhopUserID,
		WhopCompanyID: tenant.WhopCompanyID,
		Username:      tenant.Username,
		Email:         tenant.Email,
	}, nil
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}
