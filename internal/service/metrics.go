package service

import (
	"time"
)

// EngagementScore 计算单个会员当日的互动分，范围 [0,100]。
// 当日零消息恒为 0 分；否则为消息分与资历分之和。
// 资历分档（<7 天 50 / 7~30 天 30 / >30 天 50）沿用现网口径，调整前需与业务确认
func EngagementScore(messageCount int, joinedAt time.Time, now time.Time) int {
	if messageCount == 0 {
		return 0
	}

	score := activityPoints(messageCount) + loyaltyScore(joinedAt, now)
	if score > 100 {
		score = 100
	}
	return score
}

// JoinRecencyScore 聊天功能完全不可用时的兜底估算，只看资历分
func JoinRecencyScore(joinedAt time.Time, now time.Time) int {
	return loyaltyScore(joinedAt, now)
}

// activityPoints 消息分部分，每条 5 分封顶 50
func activityPoints(messageCount int) int {
	points := messageCount * 5
	if points > 50 {
		points = 50
	}
	return points
}

func loyaltyScore(joinedAt time.Time, now time.Time) int {
	daysSinceJoined := now.Sub(joinedAt).Hours() / 24

	switch {
	case daysSinceJoined < 7:
		return 50
	case daysSinceJoined < 30:
		return 30
	default:
		return 50
	}
}

// midnight 截断到当日零点
func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
