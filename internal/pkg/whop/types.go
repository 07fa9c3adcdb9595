package whop

import (
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

// Config 远程平台客户端配置，显式传入构造函数，不做进程级单例
type Config struct {
	APIBase      string
	APIKey       string
	AppID        string
	JWTPublicKey string
	PageSize     int
	Timeout      time.Duration
}

// User 平台当前用户（who am I）
type User struct {
	ID        string `json:"id"`
	CompanyID string `json:"company_id"`
	// 平台两种拼写并存，归一化到 CompanyID
	CompanyIDAlt string `json:"companyId"`
	Email        string `json:"email"`
	Username     string `json:"username"`
}

// Company 归一化后的公司 ID
func (u *User) Company() string {
	if u.CompanyID != "" {
		return u.CompanyID
	}
	return u.CompanyIDAlt
}

// Membership 归一化后的会员记录，适配层之外不再感知原始键名
type Membership struct {
	ID          string
	MemberID    string
	UserID      string
	Username    string
	Status      string
	CompanyID   string
	ProductID   string
	PlanID      string
	JoinedAt    *time.Time
	CancelledAt *time.Time
	Metadata    json.RawMessage
}

// Plan 计划定价
type Plan struct {
	ID           string
	RenewalPrice decimal.Decimal
	Currency     string
}

// Channel 聊天频道
type Channel struct {
	ID   string
	Name string
}

// Message 频道消息
type Message struct {
	ID        string
	UserID    string
	CreatedAt time.Time
}

// MembershipPage 一页会员记录与下一页游标
type MembershipPage struct {
	Memberships []Membership
	NextCursor  string
}

// listEnvelope 平台列表响应的信封。分页信息存在两种形态：
// pagination.next_page 块或 meta.next_cursor，按固定优先级取用
type listEnvelope struct {
	Data       json.RawMessage  `json:"data"`
	Pagination *paginationBlock `json:"pagination"`
	Meta       *metaBlock       `json:"meta"`
}

type paginationBlock struct {
	NextPage string `json:"next_page"`
}

type metaBlock struct {
	NextCursor string `json:"next_cursor"`
}

func (e *listEnvelope) nextCursor() string {
	if e.Pagination != nil && e.Pagination.NextPage != "" {
		return e.Pagination.NextPage
	}
	if e.Meta != nil && e.Meta.NextCursor != "" {
		return e.Meta.NextCursor
	}
	return ""
}

type idRef struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// membershipPayload 原始会员记录，user 可能缺失，company 两种拼写
type membershipPayload struct {
	ID           string          `json:"id"`
	Status       string          `json:"status"`
	CreatedAt    json.Number     `json:"created_at"`
	CanceledAt   json.Number     `json:"canceled_at"`
	CompanyID    string          `json:"company_id"`
	CompanyIDAlt string          `json:"companyId"`
	User         *idRef          `json:"user"`
	Member       *idRef          `json:"member"`
	Product      *idRef          `json:"product"`
	Plan         *idRef          `json:"plan"`
	Metadata     json.RawMessage `json:"metadata"`
}

// normalize 在适配层边界完成一次性归一化
func (p *membershipPayload) normalize() Membership {
	m := Membership{
		ID:       p.ID,
		Status:   strings.ToLower(p.Status),
		Metadata: p.Metadata,
	}

	if p.CompanyID != "" {
		m.CompanyID = p.CompanyID
	} else {
		m.CompanyID = p.CompanyIDAlt
	}

	if p.User != nil {
		m.UserID = p.User.ID
		m.Username = p.User.Username
	}
	if p.Member != nil {
		m.MemberID = p.Member.ID
	}
	if m.MemberID == "" {
		m.MemberID = p.ID
	}
	if p.Product != nil {
		m.ProductID = p.Product.ID
	}
	if p.Plan != nil {
		m.PlanID = p.Plan.ID
	}

	m.JoinedAt = parseUnixSeconds(p.CreatedAt)
	m.CancelledAt = parseUnixSeconds(p.CanceledAt)

	return m
}

// parseUnixSeconds 平台时间戳为秒级 unix，字符串或数字形式都出现过
func parseUnixSeconds(n json.Number) *time.Time {
	if n.String() == "" {
		return nil
	}
	sec, err := strconv.ParseInt(n.String(), 10, 64)
	if err != nil || sec <= 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}

type planPayload struct {
	ID           string      `json:"id"`
	RenewalPrice json.Number `json:"renewal_price"`
	Currency     string      `json:"currency"`
}

func (p *planPayload) normalize() Plan {
	price, err := decimal.NewFromString(p.RenewalPrice.String())
	if err != nil {
		price = decimal.Zero
	}
	currency := strings.ToLower(p.Currency)
	if currency == "" {
		currency = "usd"
	}
	return Plan{ID: p.ID, RenewalPrice: price, Currency: currency}
}

type channelPayload struct {
	ID         string `json:"id"`
	Experience *struct {
		Name string `json:"name"`
	} `json:"experience"`
}

func (p *channelPayload) normalize() Channel {
	c := Channel{ID: p.ID, Name: "Chat"}
	if p.Experience != nil && p.Experience.Name != "" {
		c.Name = p.Experience.Name
	}
	return c
}

type messagePayload struct {
	ID        string `json:"id"`
	User      *idRef `json:"user"`
	CreatedAt string `json:"created_at"`
}

func (p *messagePayload) normalize() Message {
	m := Message{ID: p.ID}
	if p.User != nil {
		m.UserID = p.User.ID
	}
	if t, err := time.Parse(time.RFC3339, p.CreatedAt); err == nil {
		m.CreatedAt = t.UTC()
	} else if sec, err := strconv.ParseInt(p.CreatedAt, 10, 64); err == nil && sec > 0 {
		m.CreatedAt = time.Unix(sec, 0).UTC()
	}
	return m
}
