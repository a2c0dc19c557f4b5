package reminder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOffsetPolicyContains(t *testing.T) {
	policy := OffsetPolicy{7, 3, 2, 1, 0}

	assert.True(t, policy.Contains(7))
	assert.True(t, policy.Contains(0))
	assert.False(t, policy.Contains(5))
	assert.False(t, policy.Contains(-1))
	assert.False(t, OffsetPolicy{}.Contains(0))
}

func TestDaysUntil(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, 5, 10, 15, 30, 0, 0, loc)

	tests := []struct {
		name   string
		target time.Time
		want   int
	}{
		{
			name:   "same calendar day at midnight",
			target: time.Date(2026, 5, 10, 0, 0, 0, 0, loc),
			want:   0,
		},
		{
			name:   "same calendar day later in the evening",
			target: time.Date(2026, 5, 10, 23, 59, 0, 0, loc),
			want:   0,
		},
		{
			name:   "three days ahead",
			target: time.Date(2026, 5, 13, 0, 0, 0, 0, loc),
			want:   3,
		},
		{
			name:   "one week ahead with time component",
			target: time.Date(2026, 5, 17, 9, 15, 0, 0, loc),
			want:   7,
		},
		{
			name:   "already past",
			target: time.Date(2026, 5, 8, 12, 0, 0, 0, loc),
			want:   -2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DaysUntil(tt.target, now, loc))
		})
	}
}

// The reference timezone decides which calendar day "now" falls on. Late
// evening UTC is already the next day in the UTC+7 business timezone, so the
// same instants yield different day counts per anchor.
func TestDaysUntilReferenceTimezone(t *testing.T) {
	bangkok := time.FixedZone("ICT", 7*60*60)
	now := time.Date(2026, 3, 10, 22, 30, 0, 0, time.UTC) // 2026-03-11 05:30 ICT
	target := time.Date(2026, 3, 12, 0, 0, 0, 0, bangkok)

	assert.Equal(t, 1, DaysUntil(target, now, bangkok))
	assert.Equal(t, 2, DaysUntil(target, now, time.UTC))
}
