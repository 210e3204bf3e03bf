package circuitbreaker

import (
	"sort"
	"sync"

	"portfolio-api/internal/common/logging"
)

// Manager hands out one breaker per provider name
type Manager struct {
	breakers map[string]*Breaker
	config   Config
	logger   logging.Logger
	mu       sync.RWMutex
}

// NewManager creates a manager whose breakers all share config
func NewManager(config Config, logger logging.Logger) *Manager {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	return &Manager{
		breakers: make(map[string]*Breaker),
		config:   config,
		logger:   logger,
	}
}

// Get returns the breaker for name, creating it on first use
func (m *Manager) Get(name string) *Breaker {
	m.mu.RLock()
	breaker, exists := m.breakers[name]
	m.mu.RUnlock()
	if exists {
		return breaker
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if breaker, exists := m.breakers[name]; exists {
		return breaker
	}

	breaker = New(name, m.config, m.logger)
	m.breakers[name] = breaker
	return breaker
}

// Execute runs fn behind the breaker for name
func (m *Manager) Execute(name string, fn func() error) error {
	return m.Get(name).Execute(fn)
}

// AllStats returns statistics for all breakers ordered by name
func (m *Manager) AllStats() []Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := make([]Stats, 0, len(m.breakers))
	for _, breaker := range m.breakers {
		stats = append(stats, breaker.Stats())
	}

	sort.Slice(stats, func(i, j int) bool { return stats[i].Name < stats[j].Name })
	return stats
}
