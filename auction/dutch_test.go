package auction

import (
	"math/big"
	"testing"
	"time"

	"github.com/0xPolygonHermez/zkevm-swap-service/config/types"
	"github.com/0xPolygonHermez/zkevm-swap-service/gerror"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var orderTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func testConfig() Config {
	return Config{
		StartDelay:            types.NewDuration(2 * time.Minute),
		Duration:              types.NewDuration(30 * time.Minute),
		StartMultiplier:       decimal.RequireFromString("1.2"),
		DecreaseRatePerMinute: decimal.RequireFromString("0.01"),
		MinimumReturnRate:     decimal.RequireFromString("0.95"),
	}
}

func newPricer(t *testing.T) *Pricer {
	p, err := NewPricer(testConfig())
	require.NoError(t, err)
	return p
}

func TestCurrentRate(t *testing.T) {
	p := newPricer(t)
	market := decimal.NewFromInt(100)

	tcs := []struct {
		name     string
		at       time.Duration
		expected string
	}{
		{"at creation", 0, "120"},
		{"during delay", time.Minute, "120"},
		{"delay boundary", 2 * time.Minute, "120"},
		{"one minute in", 3 * time.Minute, "119"},
		{"ten minutes in", 12 * time.Minute, "110"},
		{"half a minute", 2*time.Minute + 30*time.Second, "119.5"},
		{"floored", 40 * time.Minute, "95"},
		{"long after", 48 * time.Hour, "95"},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			rate := p.CurrentRate(orderTime, market, orderTime.Add(tc.at))
			assert.True(t, decimal.RequireFromString(tc.expected).Equal(rate), "got %s", rate)
		})
	}
}

func TestCurrentRateMonotonic(t *testing.T) {
	p := newPricer(t)
	market := decimal.RequireFromString("1834.55")
	floor := p.FloorRate(market)
	prev := p.CurrentRate(orderTime, market, orderTime)
	for s := 0; s < 3600; s += 7 {
		rate := p.CurrentRate(orderTime, market, orderTime.Add(time.Duration(s)*time.Second))
		assert.True(t, rate.LessThanOrEqual(prev), "rate increased at %ds", s)
		assert.True(t, rate.GreaterThanOrEqual(floor), "rate below floor at %ds", s)
		prev = rate
	}
}

func TestStatus(t *testing.T) {
	p := newPricer(t)
	assert.Equal(t, StatusWaiting, p.Status(orderTime, orderTime))
	assert.Equal(t, StatusWaiting, p.Status(orderTime, orderTime.Add(119*time.Second)))
	assert.Equal(t, StatusActive, p.Status(orderTime, orderTime.Add(2*time.Minute)))
	assert.Equal(t, StatusActive, p.Status(orderTime, orderTime.Add(31*time.Minute)))
	assert.Equal(t, StatusExpired, p.Status(orderTime, orderTime.Add(32*time.Minute)))
	assert.Equal(t, orderTime.Add(32*time.Minute), p.EndTime(orderTime))
}

func TestIsProfitable(t *testing.T) {
	assert.True(t, IsProfitable(decimal.NewFromInt(10), decimal.NewFromInt(10)))
	assert.True(t, IsProfitable(decimal.NewFromInt(11), decimal.NewFromInt(10)))
	assert.False(t, IsProfitable(decimal.RequireFromString("9.99"), decimal.NewFromInt(10)))
}

func TestDestinationAmount(t *testing.T) {
	assert.Equal(t, big.NewInt(1199), DestinationAmount(decimal.RequireFromString("1.1999"), big.NewInt(1000)))
	assert.Equal(t, big.NewInt(0), DestinationAmount(decimal.RequireFromString("0.5"), big.NewInt(1)))
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, testConfig().Validate())

	c := testConfig()
	c.Duration = types.NewDuration(0)
	assert.ErrorIs(t, c.Validate(), gerror.ErrInvalidConfig)

	c = testConfig()
	c.MinimumReturnRate = decimal.Zero
	assert.ErrorIs(t, c.Validate(), gerror.ErrInvalidConfig)

	c = testConfig()
	c.StartMultiplier = decimal.RequireFromString("0.5")
	assert.ErrorIs(t, c.Validate(), gerror.ErrInvalidConfig)

	c = testConfig()
	c.DecreaseRatePerMinute = decimal.NewFromInt(-1)
	_, err := NewPricer(c)
	assert.ErrorIs(t, err, gerror.ErrInvalidConfig)
}
