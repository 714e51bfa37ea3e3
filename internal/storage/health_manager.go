package storage

import (
	"sync"
	"time"
)

const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// Health is the result of one storage backend health check
type Health struct {
	LastCheck time.Time `json:"last_check" msgpack:"last_check"`
	Status    string    `json:"status" msgpack:"status"`
	Message   string    `json:"message,omitempty" msgpack:"message,omitempty"`
	Error     string    `json:"error,omitempty" msgpack:"error,omitempty"`
}

// NewHealth creates a health record stamped with the current time
func NewHealth(status, message string, err error) *Health {
	h := &Health{
		LastCheck: time.Now(),
		Status:    status,
		Message:   message,
	}
	if err != nil {
		h.Error = err.Error()
	}
	return h
}

// HealthManager keeps the latest health of each storage backend in memory
type HealthManager struct {
	mu     sync.RWMutex
	health map[string]Health
}

// NewHealthManager creates a new health manager
func NewHealthManager() *HealthManager {
	return &HealthManager{
		health: make(map[string]Health),
	}
}

// UpdateHealth records the health status of a backend
func (hm *HealthManager) UpdateHealth(backend string, h *Health) {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	hm.health[backend] = *h
}

// GetHealth retrieves the health status of a backend
func (hm *HealthManager) GetHealth(backend string) (Health, bool) {
	hm.mu.RLock()
	defer hm.mu.RUnlock()
	h, ok := hm.health[backend]
	return h, ok
}

// GetAllHealth returns a copy of every recorded health status
func (hm *HealthManager) GetAllHealth() map[string]Health {
	hm.mu.RLock()
	defer hm.mu.RUnlock()
	out := make(map[string]Health, len(hm.health))
	for k, v := range hm.health {
		out[k] = v
	}
	return out
}

// IsHealthy reports whether the backend's last check passed within maxAge
func (hm *HealthManager) IsHealthy(backend string, maxAge time.Duration) bool {
	h, ok := hm.GetHealth(backend)
	if !ok || time.Since(h.LastCheck) > maxAge {
		return false
	}
	return h.Status == StatusHealthy
}
