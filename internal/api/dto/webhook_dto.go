package dto

import (
	"github.com/goccy/go-json"
)

// WebhookEvent 平台回调事件。data 的结构随事件类型变化，只解出公共字段
type WebhookEvent struct {
	Action string          `json:"action"`
	Type   string          `json:"type"`
	Data   json.RawMessage `json:"data"`
}

// EventName 事件名，两代回调格式分别放在 action 与 type 字段
func (e *WebhookEvent) EventName() string {
	if e.Action != "" {
		return e.Action
	}
	return e.Type
}

// WebhookEventData 回调事件里公共的归属字段
type WebhookEventData struct {
	CompanyID    string `json:"company_id"`
	CompanyIDAlt string `json:"companyId"`
}

// Company 归一化后的公司 ID
func (d *WebhookEventData) Company() string {
	if d.CompanyID != "" {
		return d.CompanyID
	}
	return d.CompanyIDAlt
}
