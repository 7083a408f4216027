package utils

import (
	"context"
	"sync"
	"time"
)

// HealthCheck pings one dependency.
type HealthCheck func(ctx context.Context) error

// HealthStatus represents current status of external services.
type HealthStatus struct {
	Healthy    bool            `json:"healthy"`
	Components map[string]bool `json:"components"`
	CheckedAt  time.Time       `json:"checkedAt"`
}

// HealthMonitor runs the checks periodically and keeps the latest snapshot.
type HealthMonitor struct {
	checks   map[string]HealthCheck
	interval time.Duration

	mu      sync.RWMutex
	current HealthStatus
}

func NewHealthMonitor(checks map[string]HealthCheck, interval time.Duration) *HealthMonitor {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	return &HealthMonitor{checks: checks, interval: interval}
}

// Check runs every check once and stores the result.
func (m *HealthMonitor) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{Healthy: true, Components: make(map[string]bool, len(m.checks)), CheckedAt: time.Now().UTC()}
	for name, check := range m.checks {
		checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		ok := check(checkCtx) == nil
		cancel()
		status.Components[name] = ok
		if !ok {
			status.Healthy = false
		}
	}
	m.mu.Lock()
	m.current = status
	m.mu.Unlock()
	return status
}

// Status returns latest stored health snapshot.
func (m *HealthMonitor) Status() HealthStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Run checks immediately and then on every tick until ctx is done.
func (m *HealthMonitor) Run(ctx context.Context) {
	m.Check(ctx)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}
