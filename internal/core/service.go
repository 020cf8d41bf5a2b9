// Package core wires the dispatch components together and routes inbound
// connection events to them. All failures are returned to the immediate
// caller; nothing here can take down another connection's session.
package core

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/example/ride-dispatch/internal/dispatch"
	"github.com/example/ride-dispatch/internal/fare"
	"github.com/example/ride-dispatch/internal/geo"
	"github.com/example/ride-dispatch/internal/ledger"
	"github.com/example/ride-dispatch/internal/models"
	"github.com/example/ride-dispatch/internal/observability"
	"github.com/example/ride-dispatch/internal/registry"
	"github.com/example/ride-dispatch/internal/storage"
)

// PassengerNotifier pushes a claim notification to a passenger's live
// connection.
type PassengerNotifier interface {
	RideAccepted(passengerID string, msg models.RideAccepted) error
}

// LocationPublisher feeds accepted location reports to the firehose topic.
type LocationPublisher interface {
	PublishLocation(ctx context.Context, u models.LocationUpdate) error
}

// PaymentHolder places a hold for the fare total at claim time.
type PaymentHolder interface {
	Hold(ctx context.Context, amount int64, currency, customerID string) (string, error)
}

type Service struct {
	Registry    *registry.Registry
	Ledger      *ledger.Ledger
	Broadcaster *dispatch.Broadcaster
	Passengers  PassengerNotifier
	Store       storage.RideStore
	Publisher   LocationPublisher // optional
	Payments    PaymentHolder     // optional
	Rates       fare.Rates
	Logger      *slog.Logger
}

// DriverLocation handles a position report from a driver connection.
func (s *Service) DriverLocation(ctx context.Context, connID, driverID string, lat, lng float64) error {
	pos := models.Coord{Lat: lat, Lng: lng}
	if err := geo.Validate(pos); err != nil {
		return err
	}
	s.Registry.Upsert(connID, driverID, pos)
	observability.DriversConnected.Set(float64(s.Registry.Len()))
	if s.Publisher != nil {
		u := models.LocationUpdate{DriverID: driverID, Loc: pos, At: time.Now()}
		if err := s.Publisher.PublishLocation(ctx, u); err != nil {
			// the registry is authoritative; the firehose is best-effort
			s.Logger.Warn("location publish failed", "driver_id", driverID, "error", err)
		}
	}
	return nil
}

// RideRequest computes the fare, records the request in the ledger and
// broadcasts it to nearby drivers. The request ID and fare go back to the
// passenger even when zero drivers were reached; the request simply stays
// pending. Returns the created request and the number of drivers notified.
func (s *Service) RideRequest(ctx context.Context, passengerID string, pickup, dropoff models.Coord) (models.RideRequest, int, error) {
	distKm, err := geo.DistanceKm(pickup, dropoff)
	if err != nil {
		return models.RideRequest{}, 0, err
	}
	durationMin := geo.EstimateDurationMin(distKm)
	fb := fare.Compute(s.Rates, distKm, durationMin)

	req := s.Ledger.Create(passengerID, pickup, dropoff, fb)
	observability.RequestsTotal.Inc()

	sent, err := s.Broadcaster.Broadcast(req)
	observability.BroadcastsTotal.Inc()
	switch {
	case errors.Is(err, dispatch.ErrNoCandidateDrivers):
		observability.NoDriversTotal.Inc()
		s.Logger.Info("no drivers in range", "request_id", req.ID, "passenger_id", passengerID)
	case err != nil:
		return models.RideRequest{}, 0, err
	default:
		observability.OffersSentTotal.Add(float64(sent))
	}
	s.Logger.Info("ride_requested",
		"request_id", req.ID,
		"passenger_id", passengerID,
		"distance_km", distKm,
		"fare_total", fb.Total,
		"drivers_notified", sent,
	)
	return req, sent, nil
}

// AcceptRide resolves a driver's claim attempt. On a win the agreed ride is
// handed to the persistence collaborator and the passenger is notified; both
// happen strictly after the claim is committed and never under a lock. A
// lost race has no side effects beyond the returned error.
func (s *Service) AcceptRide(ctx context.Context, connID, driverID, requestID string) (models.Claim, error) {
	// claim-time position; a driver that never reported one can still win,
	// the passenger just sees a zero position until the next report
	var driverLoc models.Coord
	if entry, ok := s.Registry.Get(connID); ok {
		driverLoc = entry.Loc
	}

	claim, req, err := s.Ledger.TryClaim(requestID, driverID, driverLoc)
	if err != nil {
		observability.ClaimsRejectedTotal.Inc()
		return models.Claim{}, err
	}
	observability.ClaimsWonTotal.Inc()

	ride := &models.Ride{
		ID:          claim.RequestID,
		PassengerID: claim.PassengerID,
		DriverID:    claim.DriverID,
		Pickup:      req.Pickup,
		Dropoff:     req.Dropoff,
		FareTotal:   req.Fare.Total,
		Status:      "claimed",
		CreatedAt:   claim.ClaimedAt,
		UpdatedAt:   claim.ClaimedAt,
	}
	if err := s.Store.SaveRide(ctx, ride); err != nil {
		// the claim is already decided; losing the durable write is a
		// reconciliation problem, not a reason to retract the winner
		s.Logger.Error("ride persistence failed", "request_id", claim.RequestID, "error", err)
	}

	if s.Payments != nil && ride.FareTotal > 0 {
		if _, err := s.Payments.Hold(ctx, ride.FareTotal, "usd", claim.PassengerID); err != nil {
			s.Logger.Warn("payment hold failed", "request_id", claim.RequestID, "error", err)
		}
	}

	if err := s.Passengers.RideAccepted(claim.PassengerID, models.RideAccepted{
		RequestID: claim.RequestID,
		DriverID:  claim.DriverID,
		DriverLoc: claim.DriverLoc,
	}); err != nil {
		s.Logger.Warn("passenger notify failed", "request_id", claim.RequestID, "error", err)
	}

	s.Logger.Info("ride_claimed", "request_id", claim.RequestID, "driver_id", claim.DriverID)
	return claim, nil
}

// Disconnect drops a driver's registry entry. Outstanding requests from a
// disconnecting passenger stay pending; cancellation is an explicit event,
// not a disconnect side effect.
func (s *Service) Disconnect(connID string) {
	s.Registry.Remove(connID)
	observability.DriversConnected.Set(float64(s.Registry.Len()))
}
