package api

import (
	"Pulseboard/internal/api/middleware"
	"Pulseboard/internal/pkg/logger"
	"Pulseboard/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

func SetupRouter(group *HandlersGroup, identitySvc service.IdentityService) *gin.Engine {
	r := gin.New()
	_ = r.SetTrustedProxies([]string{"localhost"})

	// TraceId & Logger & CORS
	r.Use(middleware.TraceMiddleware())
	r.Use(middleware.AuditMiddleware())
	r.Use(middleware.CORSMiddleware())
	logger.SetupGin(r)

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"Code":    200,
				"Message": "pong",
				"Data":    nil,
			})
		})

		// 平台回调走验签，不走租户鉴权
		apiGroup.POST("/webhooks/whop", group.WebhookHandler.HandleWhopEvent)

		authGroup := apiGroup.Group("")
		authGroup.Use(middleware.AuthMiddleware(identitySvc))
		{
			analyticsGroup := authGroup.Group("/analytics")
			{
				analyticsGroup.GET("/revenue", group.AnalyticsHandler.GetRevenueStats)
				analyticsGroup.GET("/revenue/history", group.AnalyticsHandler.GetRevenueHistory)
				analyticsGroup.GET("/engagement", group.AnalyticsHandler.GetEngagementStats)
				analyticsGroup.GET("/risk", group.AnalyticsHandler.GetRiskList)
				analyticsGroup.GET("/insight", group.AnalyticsHandler.GetDailyInsight)
			}

			authGroup.POST("/sync", group.SyncHandler.TriggerSync)

			coachGroup := authGroup.Group("/coach")
			{
				coachGroup.POST("/ask", group.CoachHandler.Ask)
			}
		}
	}

	return r
}
