package model

import (
	"time"

	"github.com/goccy/go-json"
)

// User 既是租户（管理员）记录也是社区成员的轻量引用，按平台用户 ID 唯一。
// 租户行以 WhopCompanyID 作为多租户边界，归属它的 Member / 快照行级联删除
type User struct {
	ID                 uint64  `gorm:"primaryKey"`
	WhopUserID         string  `gorm:"type:varchar(255);uniqueIndex:idx_whop_user_id;not null"`
	WhopCompanyID      string  `gorm:"type:varchar(255);index:idx_whop_company_id;not null"`
	IsTenant           bool    `gorm:"type:tinyint(1);default:0"`
	Email              *string `gorm:"type:varchar(255)"`
	Username           *string `gorm:"type:varchar(255)"`
	SubscriptionTier   string  `gorm:"type:varchar(50);default:free"`
	SubscriptionStatus string  `gorm:"type:varchar(50);default:active"`
	LastSyncAt         *time.Time
	Settings           json.RawMessage `gorm:"type:json"`
	CreatedAt          time.Time
	UpdatedAt          time.Time

	Members          []Member           `gorm:"foreignKey:TenantID;references:ID;constraint:OnDelete:CASCADE"`
	EngagementMetric []EngagementMetric `gorm:"foreignKey:TenantID;references:ID;constraint:OnDelete:CASCADE"`
	RevenueMetric    []RevenueMetric    `gorm:"foreignKey:TenantID;references:ID;constraint:OnDelete:CASCADE"`
}

func (User) TableName() string {
	return "users"
}
