package temporal

import (
	"testing"
	"time"

	"github.com/0xPolygonHermez/zkevm-swap-service/gerror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestIsReasonable(t *testing.T) {
	tcs := []struct {
		name string
		ts   time.Time
		ok   bool
	}{
		{"now", now, true},
		{"within skew", now.Add(-30 * time.Second), true},
		{"skew boundary", now.Add(-ClockSkewTolerance), true},
		{"too old", now.Add(-ClockSkewTolerance - time.Second), false},
		{"one hour", now.Add(time.Hour), true},
		{"max", now.Add(MaxDuration), true},
		{"beyond max", now.Add(MaxDuration + time.Second), false},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.ok, IsReasonable(tc.ts, now))
		})
	}
}

func TestExpiredActive(t *testing.T) {
	exp := now.Add(time.Minute)
	assert.False(t, IsExpired(exp, now))
	assert.True(t, IsActive(exp, now))
	assert.True(t, IsExpired(exp, exp))
	assert.False(t, IsActive(exp, exp))
	assert.True(t, IsExpired(exp, exp.Add(time.Nanosecond)))
}

func TestRemaining(t *testing.T) {
	exp := now.Add(time.Hour)
	assert.Equal(t, time.Hour, Remaining(exp, now))
	assert.Equal(t, time.Duration(0), Remaining(exp, exp))
	assert.Equal(t, time.Duration(0), Remaining(exp, exp.Add(time.Hour)))
}

func TestElapsedPercentage(t *testing.T) {
	start := now
	exp := now.Add(100 * time.Second)

	p, err := ElapsedPercentage(start, exp, now.Add(-time.Second))
	require.NoError(t, err)
	assert.Equal(t, uint64(0), p)

	p, err = ElapsedPercentage(start, exp, now.Add(25*time.Second))
	require.NoError(t, err)
	assert.Equal(t, uint64(25), p)

	p, err = ElapsedPercentage(start, exp, exp.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, uint64(100), p)

	_, err = ElapsedPercentage(exp, start, now)
	assert.ErrorIs(t, err, gerror.ErrInvalidSequence)
	_, err = ElapsedPercentage(start, start, now)
	assert.ErrorIs(t, err, gerror.ErrInvalidSequence)
}

func TestDurations(t *testing.T) {
	assert.False(t, IsValidDuration(MinDuration-time.Second))
	assert.True(t, IsValidDuration(MinDuration))
	assert.True(t, IsValidDuration(StandardDuration))
	assert.True(t, IsValidDuration(ExtendedDuration))
	assert.True(t, IsValidDuration(MaxDuration))
	assert.False(t, IsValidDuration(MaxDuration+time.Second))

	exp, err := ExpirationFrom(now, StandardDuration)
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), exp)
	_, err = ExpirationFrom(now, time.Minute)
	assert.ErrorIs(t, err, gerror.ErrInvalidDuration)
}
