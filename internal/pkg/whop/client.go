package whop

import (
	"context"
	"fmt"
	log "log/slog"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
)

// Client 远程平台适配层。消费方只依赖该接口，便于测试替换
type Client interface {
	// VerifyUserToken 校验用户令牌并返回平台用户 ID
	VerifyUserToken(token string) (string, error)
	// GetCurrentUser 以用户令牌身份查询 who-am-I（令牌本身不含 company id）
	GetCurrentUser(ctx context.Context, token string) (*User, error)
	// ListMemberships 按游标拉取一页会员记录
	ListMemberships(ctx context.Context, companyID, cursor string) (*MembershipPage, error)
	ListPlans(ctx context.Context, companyID string) ([]Plan, error)
	ListChannels(ctx context.Context, companyID string) ([]Channel, error)
	ListMessages(ctx context.Context, channelID string, limit int) ([]Message, error)
}

// APIError 远程返回的非 2xx 响应
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("whop api error: status=%d body=%s", e.Status, e.Body)
}

// IsRateLimited 判断是否为 429 限流响应
func IsRateLimited(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.Status == 429
}

const defaultPageSize = 100

type restyClient struct {
	cfg      Config
	http     *resty.Client
	pageSize int
}

// NewClient 构造基于 resty 的平台客户端
func NewClient(cfg Config) Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}

	client := resty.New().
		SetBaseURL(cfg.APIBase).
		SetTimeout(cfg.Timeout).
		SetHeader("Authorization", "Bearer "+cfg.APIKey).
		SetHeader("Accept", "application/json")

	return &restyClient{
		cfg:      cfg,
		http:     client,
		pageSize: cfg.PageSize,
	}
}

// get 发起请求并把非 2xx 归一化为 APIError
func (s *restyClient) get(ctx context.Context, path string, query map[string]string, token string) ([]byte, error) {
	req := s.http.R().SetContext(ctx).SetQueryParams(query)
	if token != "" {
		// 以用户身份调用时换用用户令牌
		req.SetHeader("Authorization", "Bearer "+token)
	}

	resp, err := req.Get(path)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, &APIError{Status: resp.StatusCode(), Body: resp.String()}
	}
	return resp.Body(), nil
}

func (s *restyClient) GetCurrentUser(ctx context.Context, token string) (*User, error) {
	body, err := s.get(ctx, "/v5/me", nil, token)
	if err != nil {
		return nil, err
	}

	var user User
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *restyClient) ListMemberships(ctx context.Context, companyID, cursor string) (*MembershipPage, error) {
	query := map[string]string{
		"company_id": companyID,
		"first":      strconv.Itoa(s.pageSize),
	}
	if cursor != "" {
		query["after"] = cursor
	}

	body, err := s.get(ctx, "/v5/company/memberships", query, "")
	if err != nil {
		return nil, err
	}

	var envelope listEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, err
	}

	var payloads []membershipPayload
	if len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, &payloads); err != nil {
			return nil, err
		}
	}

	page := &MembershipPage{
		Memberships: make([]Membership, 0, len(payloads)),
		NextCursor:  envelope.nextCursor(),
	}
	for i := range payloads {
		page.Memberships = append(page.Memberships, payloads[i].normalize())
	}
	return page, nil
}

func (s *restyClient) ListPlans(ctx context.Context, companyID string) ([]Plan, error) {
	query := map[string]string{
		"company_id": companyID,
		"first":      strconv.Itoa(s.pageSize),
	}

	body, err := s.get(ctx, "/v5/company/plans", query, "")
	if err != nil {
		return nil, err
	}

	var envelope listEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, err
	}

	var payloads []planPayload
	if len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, &payloads); err != nil {
			return nil, err
		}
	}

	plans := make([]Plan, 0, len(payloads))
	for i := range payloads {
		plans = append(plans, payloads[i].normalize())
	}
	return plans, nil
}

func (s *restyClient) ListChannels(ctx context.Context, companyID string) ([]Channel, error) {
	query := map[string]string{
		"company_id": companyID,
		"first":      "20",
	}

	body, err := s.get(ctx, "/v5/company/chat_channels", query, "")
	if err != nil {
		return nil, err
	}

	var envelope listEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, err
	}

	var payloads []channelPayload
	if len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, &payloads); err != nil {
			return nil, err
		}
	}

	channels := make([]Channel, 0, len(payloads))
	for i := range payloads {
		channels = append(channels, payloads[i].normalize())
	}
	return channels, nil
}

func (s *restyClient) ListMessages(ctx context.Context, channelID string, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	query := map[string]string{
		"channel_id": channelID,
		"first":      strconv.Itoa(limit),
	}

	body, err := s.get(ctx, "/v5/chat/messages", query, "")
	if err != nil {
		return nil, err
	}

	var envelope listEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, err
	}

	var payloads []messagePayload
	if len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, &payloads); err != nil {
			return nil, err
		}
	}

	messages := make([]Message, 0, len(payloads))
	for i := range payloads {
		messages = append(messages, payloads[i].normalize())
	}

	log.DebugContext(ctx, "fetched channel messages", "channel_id", channelID, "count", len(messages))
	return messages, nil
}
