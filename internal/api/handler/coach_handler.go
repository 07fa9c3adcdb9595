package handler

import (
	"Pulseboard/internal/api/dto"
	"Pulseboard/internal/api/middleware"
	"Pulseboard/internal/pkg/response"
	"Pulseboard/internal/service"

	"github.com/gin-gonic/gin"
)

type CoachHandler struct {
	coachSvc service.CoachService
}

func NewCoachHandler(coachSvc service.CoachService) *CoachHandler {
	return &CoachHandler{coachSvc: coachSvc}
}

// Ask 向经营助手提问，conversationId 为空时开启新会话
func (s *CoachHandler) Ask(c *gin.Context) {
	var askDTO dto.CoachAskRequest
	if err := c.ShouldBindJSON(&askDTO); err != nil {
		response.Error(c, err)
		return
	}

	identity := middleware.Identity(c)
	reply, err := s.coachSvc.Ask(c.Request.Context(), identity, askDTO.ConversationID, askDTO.Question)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, reply)
}
