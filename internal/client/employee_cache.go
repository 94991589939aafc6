package client

import (
	"maps"
	"sync"
	"time"

	"Mansoor88-6/overtime-agent/internal/models"
)

// EmployeeCache holds the last successfully loaded employee directory.
// The map is replaced as a whole, never edited in place, so readers see
// either the old or the new directory.
type EmployeeCache struct {
	mu        sync.RWMutex
	employees map[string]models.Employee
	loadedAt  time.Time
	ttl       time.Duration
	now       func() time.Time
}

// NewEmployeeCache creates a cache whose entries stay fresh for ttl.
// now defaults to time.Now.
func NewEmployeeCache(ttl time.Duration, now func() time.Time) *EmployeeCache {
	if now == nil {
		now = time.Now
	}
	return &EmployeeCache{
		ttl: ttl,
		now: now,
	}
}

// Get returns a copy of the directory if it was loaded less than ttl ago
func (c *EmployeeCache) Get() (map[string]models.Employee, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.employees == nil || c.now().Sub(c.loadedAt) >= c.ttl {
		return nil, false
	}
	return maps.Clone(c.employees), true
}

// Set replaces the directory and restarts the ttl
func (c *EmployeeCache) Set(employees map[string]models.Employee) {
	snapshot := maps.Clone(employees)
	if snapshot == nil {
		snapshot = map[string]models.Employee{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.employees = snapshot
	c.loadedAt = c.now()
}

// Lookup finds an employee in the last loaded directory, fresh or not
func (c *EmployeeCache) Lookup(id string) (models.Employee, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.employees[id]
	return e, ok
}
