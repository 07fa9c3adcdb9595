package handler

import (
	"Pulseboard/internal/api/dto"
	"Pulseboard/internal/api/middleware"
	"Pulseboard/internal/pkg/response"
	"Pulseboard/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/copier"
)

type AnalyticsHandler struct {
	revenueSvc    service.RevenueService
	engagementSvc service.EngagementService
	riskSvc       service.RiskService
	coachSvc      service.CoachService
}

func NewAnalyticsHandler(
	revenueSvc service.RevenueService,
	engagementSvc service.EngagementService,
	riskSvc service.RiskService,
	coachSvc service.CoachService,
) *AnalyticsHandler {
	return &AnalyticsHandler{
		revenueSvc:    revenueSvc,
		engagementSvc: engagementSvc,
		riskSvc:       riskSvc,
		coachSvc:      coachSvc,
	}
}

func (s *AnalyticsHandler) GetRevenueStats(c *gin.Context) {
	identity := middleware.Identity(c)
	stats, err := s.revenueSvc.GetRevenueStats(c.Request.Context(), identity.TenantID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, stats)
}

func (s *AnalyticsHandler) GetRevenueHistory(c *gin.Context) {
	var query dto.RevenueHistoryQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, err)
		return
	}

	identity := middleware.Identity(c)
	metrics, err := s.revenueSvc.GetRevenueHistory(c.Request.Context(), identity.TenantID, query.Days)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.RevenueHistoryItem, 0, len(metrics))
	if err = copier.Copy(&items, metrics); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, items)
}

func (s *AnalyticsHandler) GetEngagementStats(c *gin.Context) {
	identity := middleware.Identity(c)
	stats, err := s.engagementSvc.GetDailyStats(c.Request.Context(), identity.TenantID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, stats)
}

func (s *AnalyticsHandler) GetRiskList(c *gin.Context) {
	identity := middleware.Identity(c)
	atRisk, err := s.riskSvc.ListAtRisk(c.Request.Context(), identity.TenantID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, atRisk)
}

func (s *AnalyticsHandler) GetDailyInsight(c *gin.Context) {
	identity := middleware.Identity(c)
	insight, err := s.coachSvc.DailyInsight(c.Request.Context(), identity.TenantID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.DailyInsightResponse{Insight: insight})
}
