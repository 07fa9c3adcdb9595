package kafka

import (
	"time"

	"github.com/IBM/sarama"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// SyncTask 一次租户同步请求。webhook 与定时任务都只投递该消息，
// 真正的拉取与落库在消费者内执行
type SyncTask struct {
	TaskID     string    `json:"task_id"`
	CompanyID  string    `json:"company_id"`
	Reason     string    `json:"reason"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

func NewSyncTask(companyID, reason string) *SyncTask {
	return &SyncTask{
		TaskID:     uuid.NewString(),
		CompanyID:  companyID,
		Reason:     reason,
		EnqueuedAt: time.Now(),
	}
}

// ToSyncTask 将kafka消息转换为同步任务结构体
func ToSyncTask(msg *sarama.ConsumerMessage) (*SyncTask, error) {
	var task SyncTask
	if err := json.Unmarshal(msg.Value, &task); err != nil {
		return nil, err
	}
	return &task, nil
}
