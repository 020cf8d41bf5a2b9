// Package fleet mirrors the driver location firehose into Redis so fleet
// dashboards and other consumers can query positions without touching the
// dispatch core's in-memory registry.
package fleet

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/ride-dispatch/internal/models"
)

// GeoWriter is the subset of redis operations the mirror needs; small enough
// to fake in tests.
type GeoWriter interface {
	GeoAdd(ctx context.Context, key string, loc *redis.GeoLocation) error
	HSet(ctx context.Context, key string, values map[string]interface{}) error
}

// Mirror writes each location update as a GEOADD plus a metadata hash, with
// retry and exponential backoff because redis hiccups must not drop the
// consumer out of its loop.
type Mirror struct {
	rc       GeoWriter
	geoKey   string
	attempts int
	delay    time.Duration
}

func NewMirror(rc GeoWriter, geoKey string, attempts int, delay time.Duration) *Mirror {
	if attempts < 1 {
		attempts = 1
	}
	return &Mirror{rc: rc, geoKey: geoKey, attempts: attempts, delay: delay}
}

func (m *Mirror) Record(ctx context.Context, u models.LocationUpdate) error {
	delay := m.delay
	for i := 0; i < m.attempts; i++ {
		if err := m.rc.GeoAdd(ctx, m.geoKey, &redis.GeoLocation{Longitude: u.Loc.Lng, Latitude: u.Loc.Lat, Name: u.DriverID}); err != nil {
			if i == m.attempts-1 {
				return err
			}
			time.Sleep(delay)
			delay *= 2
			continue
		}
		if err := m.rc.HSet(ctx, metaKey(u.DriverID), map[string]interface{}{
			"lat":     strconv.FormatFloat(u.Loc.Lat, 'f', 6, 64),
			"lng":     strconv.FormatFloat(u.Loc.Lng, 'f', 6, 64),
			"updated": u.At.Format(time.RFC3339),
		}); err != nil {
			if i == m.attempts-1 {
				return err
			}
			time.Sleep(delay)
			delay *= 2
			continue
		}
		return nil
	}
	return nil
}

func metaKey(id string) string { return "driver:meta:" + id }

// RedisAdapter adapts a real client to GeoWriter.
type RedisAdapter struct{ C *redis.Client }

func (r *RedisAdapter) GeoAdd(ctx context.Context, key string, loc *redis.GeoLocation) error {
	_, err := r.C.GeoAdd(ctx, key, loc).Result()
	return err
}

func (r *RedisAdapter) HSet(ctx context.Context, key string, values map[string]interface{}) error {
	_, err := r.C.HSet(ctx, key, values).Result()
	return err
}
