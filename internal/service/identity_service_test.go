package service

import (
	"Pulseboard/internal/api/config"
	"Pulseboard/internal/model"
	"Pulseboard/internal/pkg/whop"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestResolveRejectsMissingToken(t *testing.T) {
	t.Parallel()

	svc := NewIdentityService(newFakeUserRepo(), &fakeWhopClient{}, config.WhopConfig{})

	_, err := svc.Resolve(context.Background(), "")
	require.ErrorIs(t, err, ErrInvalidCredential)
}

func TestResolveDevModeNeedsCompanyID(t *testing.T) {
	t.Parallel()

	svc := NewIdentityService(newFakeUserRepo(), &fakeWhopClient{}, config.WhopConfig{DevMode: true})

	_, err := svc.Resolve(context.Background(), "")
	require.ErrorIs(t, err, ErrConfigMissing)
}

func TestResolveDevModeProvisionsTenant(t *testing.T) {
	t.Parallel()

	userRepo := newFakeUserRepo()
	svc := NewIdentityService(userRepo, &fakeWhopClient{},
		config.WhopConfig{DevMode: true, DevCompanyID: "biz_dev"})

	identity, err := svc.Resolve(context.Background(), "")
	require.NoError(t, err)
	require.Equal(t, "biz_dev", identity.WhopCompanyID)
	require.NotZero(t, identity.TenantID)

	// 再次解析要命中同一个租户
	again, err := svc.Resolve(context.Background(), "")
	require.NoError(t, err)
	require.Equal(t, identity.TenantID, again.TenantID)
}

func TestResolveInvalidToken(t *testing.T) {
	t.Parallel()

	svc := NewIdentityService(newFakeUserRepo(),
		&fakeWhopClient{verifyErr: whop.ErrTokenInvalid}, config.WhopConfig{})

	_, err := svc.Resolve(context.Background(), "bad-token")
	require.ErrorIs(t, err, ErrInvalidCredential)
}

func TestResolveMissingVerifierKey(t *testing.T) {
	t.Parallel()

	svc := NewIdentityService(newFakeUserRepo(),
		&fakeWhopClient{verifyErr: whop.ErrNoVerifierKey}, config.WhopConfig{})

	_, err := svc.Resolve(context.Background(), "some-token")
	require.ErrorIs(t, err, ErrConfigMissing)
}

func TestResolveProvisionsTenantOnFirstSight(t *testing.T) {
	t.Parallel()

	userRepo := newFakeUserRepo()
	client := &fakeWhopClient{
		userID:      "user_owner",
		currentUser: &whop.User{ID: "user_owner", CompanyID: "biz_1", Username: "owner", Email: "owner@example.com"},
	}
	svc := NewIdentityService(userRepo, client, config.WhopConfig{})

	identity, err := svc.Resolve(context.Background(), "token")
	require.NoError(t, err)
	require.Equal(t, "biz_1", identity.WhopCompanyID)
	require.Equal(t, "user_owner", identity.WhopUserID)

	tenant, err := userRepo.FindTenantByCompanyID(context.Background(), "biz_1")
	require.NoError(t, err)
	require.NotNil(t, tenant)
	require.True(t, tenant.IsTenant)
	require.Equal(t, "free", tenant.SubscriptionTier)

	// 第二次解析不再建新租户
	again, err := svc.Resolve(context.Background(), "token")
	require.NoError(t, err)
	require.Equal(t, identity.TenantID, again.TenantID)
}

func TestResolveDuplicateKeyRace(t *testing.T) {
	t.Parallel()

	userRepo := newFakeUserRepo()
	userRepo.createErr = gorm.ErrDuplicatedKey
	userRepo.dupWinner = &model.User{
		WhopUserID:    "user_owner",
		WhopCompanyID: "biz_1",
		IsTenant:      true,
	}

	client := &fakeWhopClient{
		userID:      "user_owner",
		currentUser: &whop.User{ID: "user_owner", CompanyID: "biz_1"},
	}
	svc := NewIdentityService(userRepo, client, config.WhopConfig{})

	identity, err := svc.Resolve(context.Background(), "token")
	require.NoError(t, err)
	require.Equal(t, userRepo.dupWinner.ID, identity.TenantID)
}

func TestResolveUserWithoutCompany(t *testing.T) {
	t.Parallel()

	client := &fakeWhopClient{
		userID:      "user_x",
		currentUser: &whop.User{ID: "user_x"},
	}
	svc := NewIdentityService(newFakeUserRepo(), client, config.WhopConfig{})

	_, err := svc.Resolve(context.Background(), "token")
	require.ErrorIs(t, err, ErrInvalidCredential)
}

func TestResolveByCompanyID(t *testing.T) {
	t.Parallel()

	userRepo := newFakeUserRepo()
	require.NoError(t, userRepo.Create(context.Background(), &model.User{
		WhopUserID:    "user_owner",
		WhopCompanyID: "biz_1",
		IsTenant:      true,
	}))
	// 同公司下的终端用户引用行不得被当成租户
	require.NoError(t, userRepo.Create(context.Background(), &model.User{
		WhopUserID:    "user_member",
		WhopCompanyID: "biz_1",
		IsTenant:      false,
	}))

	svc := NewIdentityService(userRepo, &fakeWhopClient{}, config.WhopConfig{})

	identity, err := svc.ResolveByCompanyID(context.Background(), "biz_1")
	require.NoError(t, err)
	require.Equal(t, "user_owner", identity.WhopUserID)

	_, err = svc.ResolveByCompanyID(context.Background(), "biz_unknown")
	require.ErrorIs(t, err, ErrTenantNotFound)
}
