package mongo

import (
	"time"
)

// CoachMessage 经营助手的一条会话消息
type CoachMessage struct {
	ID             string    `bson:"_id,omitempty" json:"id"`
	ConversationID string    `bson:"conversation_id" json:"conversationId"`
	TenantID       uint64    `bson:"tenant_id" json:"tenantId"`
	Role           string    `bson:"role" json:"role"` // user / assistant
	Content        string    `bson:"content" json:"content"`
	CreatedAt      time.Time `bson:"created_at" json:"createdAt"`
}
