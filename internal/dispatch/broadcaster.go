package dispatch

import (
	"errors"
	"log/slog"

	"github.com/example/ride-dispatch/internal/models"
	"github.com/example/ride-dispatch/internal/registry"
)

// ErrNoCandidateDrivers reports a broadcast that reached zero drivers. The
// request stays pending; this is a reportable outcome, not a failure.
var ErrNoCandidateDrivers = errors.New("no candidate drivers in range")

// Notifier pushes an offer to a single driver connection.
type Notifier interface {
	Offer(connID string, offer models.RideOffer) error
}

// Broadcaster fans a new ride request out to every driver within the
// configured radius of the pickup point.
type Broadcaster struct {
	Registry *registry.Registry
	Notifier Notifier
	RadiusKm float64
	Logger   *slog.Logger
}

func New(reg *registry.Registry, n Notifier, radiusKm float64, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{Registry: reg, Notifier: n, RadiusKm: radiusKm, Logger: logger}
}

// Broadcast selects candidates from the registry at call time and sends each
// one a new_ride_request offer. Drivers that move into range afterwards are
// not notified for this call. Send failures are logged and skipped; a dead
// connection must not block the rest of the fan-out. Returns the number of
// drivers notified; zero candidates yields ErrNoCandidateDrivers.
func (b *Broadcaster) Broadcast(req models.RideRequest) (int, error) {
	cands, err := b.Registry.Nearby(req.Pickup, b.RadiusKm)
	if err != nil {
		return 0, err
	}
	if len(cands) == 0 {
		return 0, ErrNoCandidateDrivers
	}
	offer := models.RideOffer{
		RequestID: req.ID,
		Pickup:    req.Pickup,
		Dropoff:   req.Dropoff,
		Fare:      req.Fare,
	}
	sent := 0
	for _, d := range cands {
		if err := b.Notifier.Offer(d.ConnID, offer); err != nil {
			b.Logger.Warn("offer send failed", "request_id", req.ID, "driver_id", d.DriverID, "error", err)
			continue
		}
		sent++
	}
	return sent, nil
}
