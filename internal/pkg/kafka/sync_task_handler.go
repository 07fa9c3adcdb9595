package kafka

import (
	"Pulseboard/internal/service"
	"context"
	"errors"
	log "log/slog"

	"github.com/IBM/sarama"
)

// SyncTasksHandler 消费同步任务：定位租户并执行全量同步
type SyncTasksHandler struct {
	identitySvc service.IdentityService
	syncSvc     service.SyncService
}

func NewSyncTasksHandler(identitySvc service.IdentityService, syncSvc service.SyncService) *SyncTasksHandler {
	return &SyncTasksHandler{
		identitySvc: identitySvc,
		syncSvc:     syncSvc,
	}
}

func (s *SyncTasksHandler) Setup(sarama.ConsumerGroupSession) error {
	log.Info("sync task consumer setup")
	return nil
}

func (s *SyncTasksHandler) Cleanup(sarama.ConsumerGroupSession) error {
	log.Info("sync task consumer cleanup")
	return nil
}

func (s *SyncTasksHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	log.Info("topic-sync-tasks consume claim")
	err := pullMessageBatch(session, claim, s.logic)
	if err != nil {
		log.Error("topic-sync-tasks process batch error", "err", err)
		return err
	}
	return nil
}

func (s *SyncTasksHandler) logic(ctx context.Context, msg *sarama.ConsumerMessage) error {
	task, err := ToSyncTask(msg)
	if err != nil {
		// 消息体损坏，重试也无济于事
		log.ErrorContext(ctx, "malformed sync task dropped", "offset", msg.Offset, "err", err)
		return nil
	}

	identity, err := s.identitySvc.ResolveByCompanyID(ctx, task.CompanyID)
	if err != nil {
		if errors.Is(err, service.ErrTenantNotFound) {
			// 回调先于首次登录到达，等租户建好后的下一次事件
			log.WarnContext(ctx, "sync task for unknown company dropped", "company_id", task.CompanyID)
			return nil
		}
		return err
	}

	result, err := s.syncSvc.SyncTenant(ctx, identity, task.Reason)
	if err != nil {
		if errors.Is(err, service.ErrSyncInProgress) {
			// 该租户已有同步在跑，结果等价
			log.InfoContext(ctx, "sync already running, task dropped", "tenant_id", identity.TenantID)
			return nil
		}
		return err
	}

	log.InfoContext(ctx, "sync task finished",
		"task_id", task.TaskID,
		"tenant_id", identity.TenantID,
		"member_upserted", result.Members.Upserted,
		"engagement_upserted", result.Engagement.Upserted)
	return nil
}
