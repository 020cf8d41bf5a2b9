package models

import "time"

type Coord struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// DriverEntry is one connected driver's last reported position. The registry
// keys entries by connection ID, so a driver that reconnects gets a fresh
// entry and the stale one dies with its old connection.
type DriverEntry struct {
	ConnID   string    `json:"conn_id"`
	DriverID string    `json:"driver_id"`
	Loc      Coord     `json:"loc"`
	Updated  time.Time `json:"updated"`
}

// RequestState is the lifecycle of a ride request. A request leaves
// StatePending exactly once; the other two states are terminal.
type RequestState int32

const (
	StatePending RequestState = iota
	StateClaimed
	StateExpired
)

func (s RequestState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateClaimed:
		return "claimed"
	case StateExpired:
		return "expired"
	}
	return "unknown"
}

// FareBreakdown is immutable once computed and derived solely from distance
// and duration. Total is in the currency's smallest whole unit.
type FareBreakdown struct {
	Base           float64 `json:"base"`
	DistanceCharge float64 `json:"distance_charge"`
	TimeCharge     float64 `json:"time_charge"`
	Commission     float64 `json:"commission"`
	Total          int64   `json:"total"`
}

type RideRequest struct {
	ID          string        `json:"id"`
	PassengerID string        `json:"passenger_id"`
	Pickup      Coord         `json:"pickup"`
	Dropoff     Coord         `json:"dropoff"`
	Fare        FareBreakdown `json:"fare"`
	State       RequestState  `json:"state"`
	CreatedAt   time.Time     `json:"created_at"`
}

// Claim records which driver won a request. It is produced exactly once per
// request and handed straight to the persistence collaborator.
type Claim struct {
	RequestID   string    `json:"request_id"`
	DriverID    string    `json:"driver_id"`
	PassengerID string    `json:"passenger_id"`
	DriverLoc   Coord     `json:"driver_loc"`
	ClaimedAt   time.Time `json:"claimed_at"`
}

// RideOffer is the new_ride_request payload pushed to nearby drivers.
type RideOffer struct {
	RequestID string        `json:"request_id"`
	Pickup    Coord         `json:"pickup"`
	Dropoff   Coord         `json:"dropoff"`
	Fare      FareBreakdown `json:"fare"`
}

// RideAccepted is the ride_accepted payload pushed to the passenger.
type RideAccepted struct {
	RequestID string `json:"request_id"`
	DriverID  string `json:"driver_id"`
	DriverLoc Coord  `json:"driver_loc"`
}

// LocationUpdate is the shape published to the driver-locations topic and
// consumed by the fleet mirror.
type LocationUpdate struct {
	DriverID string    `json:"driver_id"`
	Loc      Coord     `json:"loc"`
	At       time.Time `json:"at"`
}

// Ride is the durable record built from a Claim plus its request data.
type Ride struct {
	ID          string
	PassengerID string
	DriverID    string
	Pickup      Coord
	Dropoff     Coord
	FareTotal   int64
	Status      string // claimed, ongoing, completed, canceled
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
