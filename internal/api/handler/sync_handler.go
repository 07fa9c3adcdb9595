package handler

import (
	"Pulseboard/internal/api/middleware"
	"Pulseboard/internal/pkg/consts"
	"Pulseboard/internal/pkg/response"
	"Pulseboard/internal/service"

	"github.com/gin-gonic/gin"
)

type SyncHandler struct {
	syncSvc service.SyncService
}

func NewSyncHandler(syncSvc service.SyncService) *SyncHandler {
	return &SyncHandler{syncSvc: syncSvc}
}

// TriggerSync 手动触发全量同步，同步执行并返回两阶段统计
func (s *SyncHandler) TriggerSync(c *gin.Context) {
	identity := middleware.Identity(c)
	result, err := s.syncSvc.SyncTenant(c.Request.Context(), identity, consts.SyncReasonManual)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}
