package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type CoachMessageRepo interface {
	SaveMessage(ctx context.Context, msg *CoachMessage) error
	GetHistory(ctx context.Context, tenantID uint64, convID string, limit int) ([]*CoachMessage, error)
}

type coachMessageRepoImpl struct {
	col *mongo.Collection
}

func NewCoachMessageRepo(db *mongo.Database) CoachMessageRepo {
	return &coachMessageRepoImpl{
		col: db.Collection("coach_messages"),
	}
}

// SaveMessage 直接存储
func (s *coachMessageRepoImpl) SaveMessage(ctx context.Context, msg *CoachMessage) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	_, err := s.col.InsertOne(ctx, msg)
	return err
}

// GetHistory 按时间线拉取最近 limit 条，会话必须归属当前租户
func (s *coachMessageRepoImpl) GetHistory(ctx context.Context, tenantID uint64, convID string, limit int) ([]*CoachMessage, error) {
	if limit <= 0 {
		limit = 20
	}

	filter := bson.M{"conversation_id": convID, "tenant_id": tenantID}

	findOptions := options.Find().
		SetSort(bson.D{
			{Key: "created_at", Value: -1},
			{Key: "_id", Value: -1},
		}).
		SetLimit(int64(limit))

	cursor, err := s.col.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	messages := make([]*CoachMessage, 0)
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, err
	}

	// 反转消息列表，保证消息从旧到新排列
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}
