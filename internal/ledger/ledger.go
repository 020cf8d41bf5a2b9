package ledger

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/example/ride-dispatch/internal/models"
)

var (
	// ErrNotFound means the request ID is unknown to the ledger: it never
	// existed, or it already reached a terminal state and was removed.
	ErrNotFound = errors.New("ride request not found")
	// ErrAlreadyClaimed means the request exists but is no longer pending.
	ErrAlreadyClaimed = errors.New("ride request already claimed")
)

// request is the ledger's internal record. The state field is the single
// serialization point for the accept race: a compare-and-swap on it decides
// the winner, and the map lock is never held across that decision.
type request struct {
	id          string
	passengerID string
	pickup      models.Coord
	dropoff     models.Coord
	fare        models.FareBreakdown
	createdAt   time.Time
	state       atomic.Int32
}

// Ledger tracks outstanding, unclaimed ride requests. IDs are unique for the
// life of the process and never reused.
type Ledger struct {
	mu       sync.RWMutex
	requests map[string]*request
}

func New() *Ledger {
	return &Ledger{requests: make(map[string]*request)}
}

// Create allocates a new pending request with a fresh unique ID and returns
// a snapshot of it.
func (l *Ledger) Create(passengerID string, pickup, dropoff models.Coord, fare models.FareBreakdown) models.RideRequest {
	r := &request{
		id:          newID(),
		passengerID: passengerID,
		pickup:      pickup,
		dropoff:     dropoff,
		fare:        fare,
		createdAt:   time.Now(),
	}
	l.mu.Lock()
	l.requests[r.id] = r
	l.mu.Unlock()
	return r.snapshot()
}

// Get returns the current snapshot of a request, or ErrNotFound.
func (l *Ledger) Get(id string) (models.RideRequest, error) {
	l.mu.RLock()
	r, ok := l.requests[id]
	l.mu.RUnlock()
	if !ok {
		return models.RideRequest{}, ErrNotFound
	}
	return r.snapshot(), nil
}

// TryClaim is the sole mutator that moves a request out of pending, and it
// is atomic with respect to all concurrent callers: exactly one claim per
// request succeeds, no matter how many arrive in the same instant. The
// winner receives the Claim plus the final request snapshot, and the entry
// leaves the ledger; every other caller gets ErrAlreadyClaimed, or
// ErrNotFound once the entry is gone. A failed claim mutates nothing.
func (l *Ledger) TryClaim(id, driverID string, driverLoc models.Coord) (models.Claim, models.RideRequest, error) {
	l.mu.RLock()
	r, ok := l.requests[id]
	l.mu.RUnlock()
	if !ok {
		return models.Claim{}, models.RideRequest{}, ErrNotFound
	}
	if !r.state.CompareAndSwap(int32(models.StatePending), int32(models.StateClaimed)) {
		return models.Claim{}, models.RideRequest{}, ErrAlreadyClaimed
	}
	l.mu.Lock()
	delete(l.requests, id)
	l.mu.Unlock()
	claim := models.Claim{
		RequestID:   r.id,
		DriverID:    driverID,
		PassengerID: r.passengerID,
		DriverLoc:   driverLoc,
		ClaimedAt:   time.Now(),
	}
	return claim, r.snapshot(), nil
}

// Expire moves a pending request to the expired terminal state. It uses the
// same compare-and-swap discipline as TryClaim, so an expiry racing a late
// accept still resolves to exactly one terminal state. The core never calls
// this on a timer; expiry policy belongs to the caller.
func (l *Ledger) Expire(id string) error {
	l.mu.RLock()
	r, ok := l.requests[id]
	l.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}
	if !r.state.CompareAndSwap(int32(models.StatePending), int32(models.StateExpired)) {
		return ErrAlreadyClaimed
	}
	l.mu.Lock()
	delete(l.requests, id)
	l.mu.Unlock()
	return nil
}

// Len reports the number of outstanding pending requests.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.requests)
}

func (r *request) snapshot() models.RideRequest {
	return models.RideRequest{
		ID:          r.id,
		PassengerID: r.passengerID,
		Pickup:      r.pickup,
		Dropoff:     r.dropoff,
		Fare:        r.fare,
		State:       models.RequestState(r.state.Load()),
		CreatedAt:   r.createdAt,
	}
}

func newID() string {
	b := make([]byte, 12)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
