package httpapi

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/example/ride-dispatch/internal/geo"
	"github.com/example/ride-dispatch/internal/models"
)

type rideRequestBody struct {
	PassengerID string       `json:"passenger_id,omitempty"`
	Pickup      models.Coord `json:"pickup"`
	Dropoff     models.Coord `json:"dropoff"`
}

type rideRequestResponse struct {
	RequestID       string               `json:"request_id"`
	Fare            models.FareBreakdown `json:"fare"`
	DriversNotified int                  `json:"drivers_notified"`
}

func (s *Server) handleRideRequest(w http.ResponseWriter, r *http.Request) {
	var body rideRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	passengerID, err := s.identity(r, body.PassengerID)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	req, sent, err := s.core.RideRequest(r.Context(), passengerID, body.Pickup, body.Dropoff)
	if err != nil {
		if errors.Is(err, geo.ErrInvalidCoordinate) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rideRequestResponse{RequestID: req.ID, Fare: req.Fare, DriversNotified: sent})
}

type driverLocationBody struct {
	DriverID string  `json:"driver_id"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
}

// handleDriverLocation is the service-to-service ingestion path for driver
// positions. Reports for the same driver replace each other under a synthetic
// connection key, mirroring what a live WS session would do.
func (s *Server) handleDriverLocation(w http.ResponseWriter, r *http.Request) {
	var body driverLocationBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if body.DriverID == "" {
		http.Error(w, "driver_id required", http.StatusBadRequest)
		return
	}
	if err := s.core.DriverLocation(r.Context(), "http:"+body.DriverID, body.DriverID, body.Lat, body.Lng); err != nil {
		if errors.Is(err, geo.ErrInvalidCoordinate) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// identity resolves the caller to an opaque user ID. With a verifier
// configured the bearer token decides; without one (local runs) the caller's
// declared ID is trusted.
func (s *Server) identity(r *http.Request, declared string) (string, error) {
	if s.verifier == nil {
		if declared == "" {
			return "", errors.New("no identity")
		}
		return declared, nil
	}
	token := bearerToken(r)
	if token == "" {
		return "", errors.New("missing token")
	}
	return s.verifier.Identify(token)
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

func newID() string { b := make([]byte, 8); _, _ = rand.Read(b); return hex.EncodeToString(b) }
