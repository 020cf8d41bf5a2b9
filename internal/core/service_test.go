package core

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/example/ride-dispatch/internal/dispatch"
	"github.com/example/ride-dispatch/internal/fare"
	"github.com/example/ride-dispatch/internal/geo"
	"github.com/example/ride-dispatch/internal/ledger"
	"github.com/example/ride-dispatch/internal/models"
	"github.com/example/ride-dispatch/internal/registry"
	"github.com/example/ride-dispatch/internal/storage"
)

type fakeDriverNotifier struct {
	mu     sync.Mutex
	offers map[string][]models.RideOffer // connID -> offers
}

func (f *fakeDriverNotifier) Offer(connID string, offer models.RideOffer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.offers[connID] = append(f.offers[connID], offer)
	return nil
}

type fakePassengerNotifier struct {
	mu       sync.Mutex
	accepted map[string][]models.RideAccepted // passengerID -> notifications
}

func (f *fakePassengerNotifier) RideAccepted(passengerID string, msg models.RideAccepted) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accepted[passengerID] = append(f.accepted[passengerID], msg)
	return nil
}

type fixture struct {
	svc        *Service
	drivers    *fakeDriverNotifier
	passengers *fakePassengerNotifier
	store      *storage.MemoryStore
}

func newFixture() *fixture {
	drivers := &fakeDriverNotifier{offers: make(map[string][]models.RideOffer)}
	passengers := &fakePassengerNotifier{accepted: make(map[string][]models.RideAccepted)}
	store := storage.NewMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := registry.New()
	led := ledger.New()
	svc := &Service{
		Registry:    reg,
		Ledger:      led,
		Broadcaster: dispatch.New(reg, drivers, 5, logger),
		Passengers:  passengers,
		Store:       store,
		Rates:       fare.DefaultRates(),
		Logger:      logger,
	}
	return &fixture{svc: svc, drivers: drivers, passengers: passengers, store: store}
}

func TestDriverLocationRejectsInvalidCoordinates(t *testing.T) {
	f := newFixture()
	if err := f.svc.DriverLocation(context.Background(), "c1", "d1", 95, 0); !errors.Is(err, geo.ErrInvalidCoordinate) {
		t.Fatalf("expected ErrInvalidCoordinate, got %v", err)
	}
	if f.svc.Registry.Len() != 0 {
		t.Fatal("invalid report must not create a registry entry")
	}
}

func TestRequestBroadcastAcceptNotify(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if err := f.svc.DriverLocation(ctx, "conn-d1", "d1", 1.0, 1.0); err != nil {
		t.Fatalf("driver location: %v", err)
	}

	req, sent, err := f.svc.RideRequest(ctx, "p1",
		models.Coord{Lat: 1.0010, Lng: 1.0010}, models.Coord{Lat: 1.05, Lng: 1.05})
	if err != nil {
		t.Fatalf("ride request: %v", err)
	}
	if sent != 1 {
		t.Fatalf("expected 1 driver notified, got %d", sent)
	}
	if len(f.drivers.offers["conn-d1"]) != 1 {
		t.Fatal("expected offer delivered to the driver connection")
	}
	if got := f.drivers.offers["conn-d1"][0]; got.RequestID != req.ID || got.Fare.Total != req.Fare.Total {
		t.Fatalf("unexpected offer payload: %+v", got)
	}

	claim, err := f.svc.AcceptRide(ctx, "conn-d1", "d1", req.ID)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if claim.DriverID != "d1" || claim.PassengerID != "p1" {
		t.Fatalf("unexpected claim: %+v", claim)
	}
	if claim.DriverLoc.Lat != 1.0 || claim.DriverLoc.Lng != 1.0 {
		t.Fatalf("expected claim-time driver position, got %+v", claim.DriverLoc)
	}

	// request left the ledger
	if _, err := f.svc.Ledger.Get(req.ID); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected request removed, got %v", err)
	}
	// passenger was told
	notes := f.passengers.accepted["p1"]
	if len(notes) != 1 {
		t.Fatalf("expected 1 ride_accepted notification, got %d", len(notes))
	}
	if notes[0].DriverID != "d1" {
		t.Fatalf("unexpected notification: %+v", notes[0])
	}
	// ride handed off to persistence
	ride, ok := f.store.Get(req.ID)
	if !ok {
		t.Fatal("expected ride persisted")
	}
	if ride.DriverID != "d1" || ride.FareTotal != req.Fare.Total || ride.Status != "claimed" {
		t.Fatalf("unexpected persisted ride: %+v", ride)
	}
}

func TestConcurrentAcceptExactlyOneWinner(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_ = f.svc.DriverLocation(ctx, "conn-d1", "d1", 1.0, 1.0)
	_ = f.svc.DriverLocation(ctx, "conn-d2", "d2", 1.001, 1.001)

	req, sent, err := f.svc.RideRequest(ctx, "p1",
		models.Coord{Lat: 1.0005, Lng: 1.0005}, models.Coord{Lat: 1.05, Lng: 1.05})
	if err != nil {
		t.Fatalf("ride request: %v", err)
	}
	if sent != 2 {
		t.Fatalf("expected both drivers notified, got %d", sent)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for _, c := range []struct{ connID, driverID string }{
		{"conn-d1", "d1"}, {"conn-d2", "d2"},
	} {
		wg.Add(1)
		go func(connID, driverID string) {
			defer wg.Done()
			_, err := f.svc.AcceptRide(ctx, connID, driverID, req.ID)
			errs <- err
		}(c.connID, c.driverID)
	}
	wg.Wait()
	close(errs)

	success := 0
	for err := range errs {
		if err == nil {
			success++
			continue
		}
		if !errors.Is(err, ledger.ErrAlreadyClaimed) && !errors.Is(err, ledger.ErrNotFound) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if success != 1 {
		t.Fatalf("expected exactly one winner, got %d", success)
	}
	if len(f.passengers.accepted["p1"]) != 1 {
		t.Fatalf("expected exactly one ride_accepted, got %d", len(f.passengers.accepted["p1"]))
	}
	if f.store.Len() != 1 {
		t.Fatalf("expected exactly one persisted ride, got %d", f.store.Len())
	}
}

func TestAcceptFailureHasNoSideEffects(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, err := f.svc.AcceptRide(ctx, "conn-d1", "d1", "unknown"); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(f.passengers.accepted) != 0 {
		t.Fatal("failed claim must not notify anyone")
	}
	if f.store.Len() != 0 {
		t.Fatal("failed claim must not persist anything")
	}
}

func TestRideRequestWithNoDriversStaysPending(t *testing.T) {
	f := newFixture()
	req, sent, err := f.svc.RideRequest(context.Background(), "p1",
		models.Coord{Lat: 1, Lng: 1}, models.Coord{Lat: 1.05, Lng: 1.05})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sent != 0 {
		t.Fatalf("expected 0 notified, got %d", sent)
	}
	got, err := f.svc.Ledger.Get(req.ID)
	if err != nil {
		t.Fatalf("expected request retained, got %v", err)
	}
	if got.State != models.StatePending {
		t.Fatalf("expected pending, got %s", got.State)
	}
	if got.Fare.Total == 0 {
		t.Fatal("expected fare computed even with zero reach")
	}
}

func TestDisconnectRemovesDriverFromNearby(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_ = f.svc.DriverLocation(ctx, "conn-d1", "d1", 1.0, 1.0)
	req, sent, err := f.svc.RideRequest(ctx, "p1",
		models.Coord{Lat: 1.0010, Lng: 1.0010}, models.Coord{Lat: 1.05, Lng: 1.05})
	if err != nil || sent != 1 {
		t.Fatalf("setup broadcast failed: sent=%d err=%v", sent, err)
	}

	f.svc.Disconnect("conn-d1")

	// gone from subsequent broadcasts
	_, sent2, err := f.svc.RideRequest(ctx, "p2",
		models.Coord{Lat: 1.0010, Lng: 1.0010}, models.Coord{Lat: 1.05, Lng: 1.05})
	if err != nil {
		t.Fatalf("second request: %v", err)
	}
	if sent2 != 0 {
		t.Fatalf("disconnected driver must not be notified, got %d", sent2)
	}
	// but the already-broadcast request is untouched
	if got, err := f.svc.Ledger.Get(req.ID); err != nil || got.State != models.StatePending {
		t.Fatalf("expected first request still pending, got %+v err=%v", got, err)
	}
}

func TestRideRequestInvalidCoordinates(t *testing.T) {
	f := newFixture()
	if _, _, err := f.svc.RideRequest(context.Background(), "p1",
		models.Coord{Lat: 200, Lng: 0}, models.Coord{Lat: 1, Lng: 1}); !errors.Is(err, geo.ErrInvalidCoordinate) {
		t.Fatalf("expected ErrInvalidCoordinate, got %v", err)
	}
	if f.svc.Ledger.Len() != 0 {
		t.Fatal("invalid request must not reach the ledger")
	}
}
