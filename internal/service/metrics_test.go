package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEngagementScore(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		messageCount int
		joinedAt     time.Time
		expect       int
	}{
		{
			name:         "no messages always zero",
			messageCount: 0,
			joinedAt:     now.AddDate(0, 0, -100),
			expect:       0,
		},
		{
			name:         "new member with heavy chat caps at 100",
			messageCount: 20,
			joinedAt:     now.AddDate(0, 0, -1),
			expect:       100,
		},
		{
			name:         "single message mid tenure",
			messageCount: 1,
			joinedAt:     now.AddDate(0, 0, -10),
			expect:       35,
		},
		{
			name:         "message points cap at 50",
			messageCount: 11,
			joinedAt:     now.AddDate(0, 0, -10),
			expect:       80,
		},
		{
			name:         "long tenure member",
			messageCount: 2,
			joinedAt:     now.AddDate(0, 0, -60),
			expect:       60,
		},
		{
			name:         "boundary just under seven days",
			messageCount: 1,
			joinedAt:     now.Add(-6 * 24 * time.Hour),
			expect:       55,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.expect, EngagementScore(tt.messageCount, tt.joinedAt, now))
		})
	}
}

func TestJoinRecencyScore(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	require.Equal(t, 50, JoinRecencyScore(now.AddDate(0, 0, -2), now))
	require.Equal(t, 30, JoinRecencyScore(now.AddDate(0, 0, -15), now))
	require.Equal(t, 50, JoinRecencyScore(now.AddDate(0, 0, -90), now))
}

func TestActivityPoints(t *testing.T) {
	t.Parallel()

	require.Equal(t, 0, activityPoints(0))
	require.Equal(t, 5, activityPoints(1))
	require.Equal(t, 50, activityPoints(10))
	require.Equal(t, 50, activityPoints(100))
}
