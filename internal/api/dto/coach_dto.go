package dto

// CoachAskRequest 向经营助手提问
type CoachAskRequest struct {
	ConversationID string `json:"conversationId"`
	Question       string `json:"question" binding:"required" validate:"min=1,max=2000"`
}
