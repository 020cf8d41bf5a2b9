package fare

import (
	"math"

	"github.com/example/ride-dispatch/internal/models"
)

// Rates holds the pricing constants. All charges are in the currency's
// smallest unit before rounding.
type Rates struct {
	Base       float64 // flat charge per trip
	PerKm      float64 // charge per kilometer
	PerMin     float64 // charge per minute
	Commission float64 // platform cut as a fraction of the subtotal
}

// DefaultRates match the launch pricing: 50 base, 10/km, 2/min, 20% commission.
func DefaultRates() Rates {
	return Rates{Base: 50, PerKm: 10, PerMin: 2, Commission: 0.20}
}

// Compute builds an immutable fare breakdown from distance and duration.
// Total is rounded half-up to the nearest whole currency unit.
func Compute(r Rates, distanceKm, durationMin float64) models.FareBreakdown {
	distanceCharge := distanceKm * r.PerKm
	timeCharge := durationMin * r.PerMin
	subtotal := r.Base + distanceCharge + timeCharge
	commission := subtotal * r.Commission
	return models.FareBreakdown{
		Base:           r.Base,
		DistanceCharge: distanceCharge,
		TimeCharge:     timeCharge,
		Commission:     commission,
		Total:          int64(math.Round(subtotal + commission)),
	}
}
