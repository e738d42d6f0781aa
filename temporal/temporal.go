// Package temporal holds the timelock arithmetic shared by vaults and orders.
package temporal

import (
	"time"

	"github.com/0xPolygonHermez/zkevm-swap-service/gerror"
	"github.com/pkg/errors"
)

const (
	// MinDuration is the shortest timelock accepted for a custom duration
	MinDuration = 5 * time.Minute
	// StandardDuration is the default timelock
	StandardDuration = time.Hour
	// ExtendedDuration is used for slow chains
	ExtendedDuration = 24 * time.Hour
	// MaxDuration is the longest timelock accepted
	MaxDuration = 7 * 24 * time.Hour
	// ClockSkewTolerance is how far in the past a timestamp may be and still be reasonable
	ClockSkewTolerance = 60 * time.Second
)

// IsReasonable reports whether ts is neither too far in the past nor beyond MaxDuration from now.
func IsReasonable(ts, now time.Time) bool {
	if ts.Before(now.Add(-ClockSkewTolerance)) {
		return false
	}
	return !ts.After(now.Add(MaxDuration))
}

// IsExpired reports whether now has reached expiration.
func IsExpired(expiration, now time.Time) bool {
	return !now.Before(expiration)
}

// IsActive is the complement of IsExpired.
func IsActive(expiration, now time.Time) bool {
	return now.Before(expiration)
}

// Remaining returns the time left until expiration, zero once expired.
func Remaining(expiration, now time.Time) time.Duration {
	if IsExpired(expiration, now) {
		return 0
	}
	return expiration.Sub(now)
}

// ElapsedPercentage returns how much of [start, expiration) has passed, in [0,100].
func ElapsedPercentage(start, expiration, now time.Time) (uint64, error) {
	if !start.Before(expiration) {
		return 0, errors.Wrapf(gerror.ErrInvalidSequence, "start %v not before expiration %v", start, expiration)
	}
	if now.Before(start) {
		return 0, nil
	}
	if IsExpired(expiration, now) {
		return 100, nil //nolint:gomnd
	}
	total := expiration.Sub(start)
	elapsed := now.Sub(start)
	return uint64(elapsed * 100 / total), nil
}

// IsValidDuration checks d against the min and max bounds.
func IsValidDuration(d time.Duration) bool {
	return d >= MinDuration && d <= MaxDuration
}

// ValidateDuration is IsValidDuration returning a descriptive error.
func ValidateDuration(d time.Duration) error {
	if !IsValidDuration(d) {
		return errors.Wrapf(gerror.ErrInvalidDuration, "%v not in [%v,%v]", d, MinDuration, MaxDuration)
	}
	return nil
}

// ExpirationFrom returns now+d after validating d.
func ExpirationFrom(now time.Time, d time.Duration) (time.Time, error) {
	if err := ValidateDuration(d); err != nil {
		return time.Time{}, err
	}
	return now.Add(d), nil
}
