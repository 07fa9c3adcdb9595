package wire

import (
	"Pulseboard/internal/api"
	"Pulseboard/internal/api/config"
	"Pulseboard/internal/api/handler"
	"Pulseboard/internal/pkg/cron"
	"Pulseboard/internal/pkg/kafka"
	pkgmongo "Pulseboard/internal/pkg/mongo"
	"Pulseboard/internal/pkg/whop"
	"Pulseboard/internal/repository"
	"Pulseboard/internal/service"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"

	"Pulseboard/internal/job"
)

// ApplicationContainer 封装了应用运行所需的所有顶级组件
type ApplicationContainer struct {
	Router       *gin.Engine
	DB           *gorm.DB
	KafkaManager *kafka.ConsumerManager
	Producer     kafka.SyncTaskProducer
	CronMgr      *cron.Manager
}

func BuildApplication(db *gorm.DB, mongoDB *mongo.Database, cfg *config.Config) (*ApplicationContainer, error) {
	userRepo := repository.NewUserRepo(db)
	memberRepo := repository.NewMemberRepo(db)
	engagementRepo := repository.NewEngagementMetricRepo(db)
	revenueRepo := repository.NewRevenueMetricRepo(db)
	coachRepo := pkgmongo.NewCoachMessageRepo(mongoDB)

	whopClient := whop.NewClient(whop.Config{
		APIBase:      cfg.Whop.APIBase,
		APIKey:       cfg.Whop.APIKey,
		AppID:        cfg.Whop.AppID,
		JWTPublicKey: cfg.Whop.JWTPublicKey,
		PageSize:     cfg.Sync.PageSize,
		Timeout:      time.Duration(cfg.Whop.TimeoutSec) * time.Second,
	})

	identityService := service.NewIdentityService(userRepo, whopClient, cfg.Whop)
	revenueService := service.NewRevenueService(memberRepo, revenueRepo)
	engagementService := service.NewEngagementService(engagementRepo)
	riskService := service.NewRiskService(memberRepo, engagementRepo)
	syncService := service.NewSyncService(userRepo, memberRepo, engagementRepo, revenueService, whopClient, cfg.Sync)
	coachService := service.NewCoachService(revenueService, engagementService, riskService, coachRepo)

	producer, err := kafka.NewSyncTaskProducer(cfg)
	if err != nil {
		return nil, err
	}

	handlers := &api.HandlersGroup{
		AnalyticsHandler: handler.NewAnalyticsHandler(revenueService, engagementService, riskService, coachService),
		SyncHandler:      handler.NewSyncHandler(syncService),
		WebhookHandler:   handler.NewWebhookHandler(producer, cfg.Whop),
		CoachHandler:     handler.NewCoachHandler(coachService),
	}

	router := api.SetupRouter(handlers, identityService)

	kafkaMgr, err := kafka.NewConsumerManager(cfg, identityService, syncService)
	if err != nil {
		return nil, err
	}

	cronMgr := cron.NewCronManager(cfg.Sync, job.NewSyncJob(userRepo, producer))

	return &ApplicationContainer{
		Router:       router,
		DB:           db,
		KafkaManager: kafkaMgr,
		Producer:     producer,
		CronMgr:      cronMgr,
	}, nil
}
