package fleet

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/ride-dispatch/internal/models"
)

// fakeWriter implements GeoWriter for tests
type fakeWriter struct {
	failGeo  int // number of times to fail GeoAdd before succeeding
	failH    int // number of times to fail HSet before succeeding
	geoCalls int
	hCalls   int
}

func (f *fakeWriter) GeoAdd(ctx context.Context, key string, loc *redis.GeoLocation) error {
	f.geoCalls++
	if f.geoCalls <= f.failGeo {
		return errors.New("geo fail")
	}
	return nil
}

func (f *fakeWriter) HSet(ctx context.Context, key string, values map[string]interface{}) error {
	f.hCalls++
	if f.hCalls <= f.failH {
		return errors.New("hset fail")
	}
	return nil
}

func update() models.LocationUpdate {
	return models.LocationUpdate{DriverID: "d1", Loc: models.Coord{Lat: 1, Lng: 2}, At: time.Now()}
}

func TestRecordSucceedsAfterRetries(t *testing.T) {
	f := &fakeWriter{failGeo: 1, failH: 1}
	m := NewMirror(f, "drivers_geo", 3, 10*time.Millisecond)
	start := time.Now()
	if err := m.Record(context.Background(), update()); err != nil {
		t.Fatalf("expected success, got err=%v", err)
	}
	if f.geoCalls < 2 || f.hCalls < 2 {
		t.Fatalf("expected retries, got geo=%d h=%d", f.geoCalls, f.hCalls)
	}
	if time.Since(start) < 10*time.Millisecond {
		t.Fatalf("expected at least one backoff")
	}
}

func TestRecordFailsWhenExhausted(t *testing.T) {
	f := &fakeWriter{failGeo: 5, failH: 0}
	m := NewMirror(f, "drivers_geo", 3, 5*time.Millisecond)
	if err := m.Record(context.Background(), update()); err == nil {
		t.Fatalf("expected error after retries")
	}
}
