package model

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

// Member 终端用户与某租户社区之间的一条会员关系，
// 以平台 membership id 作为跨次同步稳定的合并键
type Member struct {
	ID               uint64  `gorm:"primaryKey"`
	TenantID         uint64  `gorm:"not null;index:idx_members_tenant_id"`
	UserID           *uint64 `gorm:"index:idx_members_user_id"`
	WhopMemberID     string  `gorm:"type:varchar(255);not null"`
	WhopMembershipID string  `gorm:"type:varchar(255);uniqueIndex:idx_whop_membership_id;not null"`
	WhopUserID       string  `gorm:"type:varchar(255);index:idx_members_whop_user_id"`
	Email            *string `gorm:"type:varchar(255)"`
	Status           string  `gorm:"type:varchar(50);index:idx_members_status"`
	JoinedAt         *time.Time
	CancelledAt      *time.Time
	ProductID        string          `gorm:"type:varchar(255)"`
	PlanID           string          `gorm:"type:varchar(255)"`
	RenewalPrice     decimal.Decimal `gorm:"type:decimal(10,2);default:0"`
	Currency         string          `gorm:"type:varchar(3);default:usd"`
	Metadata         json.RawMessage `gorm:"type:json"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (Member) TableName() string {
	return "members"
}
