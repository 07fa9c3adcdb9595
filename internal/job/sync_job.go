package job

import (
	"Pulseboard/internal/pkg/consts"
	"Pulseboard/internal/pkg/kafka"
	"Pulseboard/internal/pkg/logger"
	"Pulseboard/internal/repository"
	"context"
	log "log/slog"

	"github.com/google/uuid"
)

// SyncJob 定时为全部租户入队一次兜底同步，
// 补上 webhook 丢失或消费失败漏掉的变更
type SyncJob struct {
	userRepo repository.UserRepo
	producer kafka.SyncTaskProducer
}

func NewSyncJob(userRepo repository.UserRepo, producer kafka.SyncTaskProducer) *SyncJob {
	return &SyncJob{
		userRepo: userRepo,
		producer: producer,
	}
}

func (s *SyncJob) Run() {
	traceID := "job-" + uuid.NewString()
	ctx := context.WithValue(context.Background(), logger.TraceIDKey, traceID)

	tenants, err := s.userRepo.ListTenants(ctx)
	if err != nil {
		log.ErrorContext(ctx, "list tenants error", "err", err)
		return
	}

	enqueued := 0
	for _, tenant := range tenants {
		task := kafka.NewSyncTask(tenant.WhopCompanyID, consts.SyncReasonCron)
		if err = s.producer.EnqueueSyncTask(ctx, task); err != nil {
			log.ErrorContext(ctx, "enqueue cron sync task error",
				"company_id", tenant.WhopCompanyID, "err", err)
			continue
		}
		enqueued++
	}

	log.InfoContext(ctx, "cron resync enqueued", "tenants", len(tenants), "enqueued", enqueued)
}
