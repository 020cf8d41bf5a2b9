package registry

import (
	"sync"
	"time"

	"github.com/example/ride-dispatch/internal/geo"
	"github.com/example/ride-dispatch/internal/models"
)

// Registry tracks connected drivers and their last reported position, keyed
// by connection ID. All methods are safe for concurrent use; Nearby scans a
// consistent snapshot under the read lock.
type Registry struct {
	mu      sync.RWMutex
	drivers map[string]models.DriverEntry
}

func New() *Registry {
	return &Registry{drivers: make(map[string]models.DriverEntry)}
}

// Upsert inserts or replaces the entry for a connection and stamps the
// current time. A second Upsert for the same connection replaces, never
// appends.
func (r *Registry) Upsert(connID, driverID string, pos models.Coord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drivers[connID] = models.DriverEntry{
		ConnID:   connID,
		DriverID: driverID,
		Loc:      pos,
		Updated:  time.Now(),
	}
}

// Remove deletes the entry for a connection. Called on disconnect; removing
// an unknown connection is a no-op.
func (r *Registry) Remove(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.drivers, connID)
}

// Get returns the entry for a connection, if any.
func (r *Registry) Get(connID string) (models.DriverEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.drivers[connID]
	return e, ok
}

// Nearby returns every entry within radiusKm of point at the time of the
// call. No ordering is guaranteed. Entries were validated on ingress, so a
// distance error here only means the probe point itself is bad.
func (r *Registry) Nearby(point models.Coord, radiusKm float64) ([]models.DriverEntry, error) {
	if err := geo.Validate(point); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.DriverEntry, 0, len(r.drivers))
	for _, d := range r.drivers {
		dist, err := geo.DistanceKm(point, d.Loc)
		if err != nil {
			continue
		}
		if dist <= radiusKm {
			out = append(out, d)
		}
	}
	return out, nil
}

// Len reports the number of connected drivers with a known position.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.drivers)
}
