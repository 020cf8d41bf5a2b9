package fare

import "testing"

func TestComputeTenKilometerTrip(t *testing.T) {
	// 10 km -> 20 min -> 50 + 100 + 40 = 190 subtotal, 38 commission, 228 total
	fb := Compute(DefaultRates(), 10, 20)
	if fb.Base != 50 {
		t.Fatalf("base: expected 50, got %f", fb.Base)
	}
	if fb.DistanceCharge != 100 {
		t.Fatalf("distance charge: expected 100, got %f", fb.DistanceCharge)
	}
	if fb.TimeCharge != 40 {
		t.Fatalf("time charge: expected 40, got %f", fb.TimeCharge)
	}
	if fb.Commission != 38 {
		t.Fatalf("commission: expected 38, got %f", fb.Commission)
	}
	if fb.Total != 228 {
		t.Fatalf("total: expected 228, got %d", fb.Total)
	}
}

func TestComputeZeroDistance(t *testing.T) {
	fb := Compute(DefaultRates(), 0, 0)
	if fb.Total != 60 {
		t.Fatalf("expected base 50 + 20%% commission = 60, got %d", fb.Total)
	}
}

func TestComputeRoundsHalfUp(t *testing.T) {
	// a rate set that lands the grand total exactly on .5
	r := Rates{Base: 10.5, PerKm: 0, PerMin: 0, Commission: 0}
	fb := Compute(r, 0, 0)
	if fb.Total != 11 {
		t.Fatalf("expected 10.5 to round up to 11, got %d", fb.Total)
	}
}
