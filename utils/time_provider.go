package utils

import (
	"sync"
	"time"
)

// TimeProvider is a interface for classes that needs time and we want to be able to unittest it
type TimeProvider interface {
	// Now returns current time
	Now() time.Time
}

// TimeProviderSystemLocalTime is the default implementation of TimeProvider
type TimeProviderSystemLocalTime struct{}

func NewTimeProviderSystemLocalTime() *TimeProviderSystemLocalTime {
	return &TimeProviderSystemLocalTime{}
}

// Now returns current time
func (d TimeProviderSystemLocalTime) Now() time.Time {
	return time.Now()
}

// TimeProviderFixedTime is a implementation that returns the same time until
// it is moved explicitly, that is useful for testing
type TimeProviderFixedTime struct {
	mu        sync.RWMutex
	FixedTime time.Time
}

// NewTimeProviderFixedTime returns a fixed clock set to t
func NewTimeProviderFixedTime(t time.Time) *TimeProviderFixedTime {
	return &TimeProviderFixedTime{FixedTime: t}
}

// Now returns current time
func (d *TimeProviderFixedTime) Now() time.Time {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.FixedTime
}

// Advance moves the clock forward by dur
func (d *TimeProviderFixedTime) Advance(dur time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.FixedTime = d.FixedTime.Add(dur)
}

// Set moves the clock to t
func (d *TimeProviderFixedTime) Set(t time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.FixedTime = t
}
