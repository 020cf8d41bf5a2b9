package session

import (
	"encoding/json"

	"github.com/example/ride-dispatch/internal/models"
)

// Event types exchanged with connected clients.
const (
	EventDriverLocation = "driver_location"
	EventRideRequest    = "ride_request"
	EventAcceptRide     = "accept_ride"

	EventNewRideRequest = "new_ride_request"
	EventRideAccepted   = "ride_accepted"
	EventRideRequested  = "ride_requested"
	EventAcceptResult   = "accept_result"
	EventError          = "error"
)

// Envelope frames every message on a session in both directions.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// DriverLocationEvent is sent by a driver to report its position.
type DriverLocationEvent struct {
	DriverID string  `json:"driver_id"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
}

// RideRequestEvent is sent by a passenger to request a trip.
type RideRequestEvent struct {
	PickupLat  float64 `json:"pickup_lat"`
	PickupLng  float64 `json:"pickup_lng"`
	DropoffLat float64 `json:"dropoff_lat"`
	DropoffLng float64 `json:"dropoff_lng"`
}

// AcceptRideEvent is sent by a driver to claim an offered request.
type AcceptRideEvent struct {
	DriverID  string `json:"driver_id"`
	RequestID string `json:"request_id"`
}

// RideRequestedEvent acknowledges a passenger's ride_request with the
// allocated ID and computed fare.
type RideRequestedEvent struct {
	RequestID       string               `json:"request_id"`
	Fare            models.FareBreakdown `json:"fare"`
	DriversNotified int                  `json:"drivers_notified"`
}

// AcceptResult is the synchronous reply to an accept attempt.
type AcceptResult struct {
	RequestID string `json:"request_id"`
	OK        bool   `json:"ok"`
	Reason    string `json:"reason,omitempty"`
}

// ErrorEvent reports a failed inbound event back to its sender only.
type ErrorEvent struct {
	Message string `json:"message"`
}
