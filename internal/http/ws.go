package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/example/ride-dispatch/internal/ledger"
	"github.com/example/ride-dispatch/internal/models"
	"github.com/example/ride-dispatch/internal/session"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

const maxMessageBytes = 4096

func (s *Server) handleDriverWS(w http.ResponseWriter, r *http.Request) {
	s.handleWS(w, r, session.RoleDriver)
}

func (s *Server) handlePassengerWS(w http.ResponseWriter, r *http.Request) {
	s.handleWS(w, r, session.RolePassenger)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request, role session.Role) {
	userID, err := s.identity(r, r.URL.Query().Get("id"))
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response
		return
	}
	connID := newID()
	s.hub.Add(connID, role, userID, conn)
	s.readLoop(connID, userID, role, conn)
}

// readLoop pumps inbound events for one session until the connection dies.
// It runs on the handler goroutine; every connection gets its own, so one
// slow or broken session never stalls another.
func (s *Server) readLoop(connID, userID string, role session.Role, conn *websocket.Conn) {
	defer func() {
		s.hub.Remove(connID)
		s.core.Disconnect(connID)
	}()
	conn.SetReadLimit(maxMessageBytes)
	for {
		var env session.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("ws read error", "conn_id", connID, "error", err)
			}
			return
		}
		if err := s.routeEvent(connID, userID, role, env); err != nil {
			// failures are local to this event; report and keep the session
			_ = s.hub.Send(connID, session.EventError, session.ErrorEvent{Message: err.Error()})
		}
	}
}

func (s *Server) routeEvent(connID, userID string, role session.Role, env session.Envelope) error {
	// events outlive no request; they belong to the connection's lifetime
	ctx := context.Background()
	switch env.Type {
	case session.EventDriverLocation:
		if role != session.RoleDriver {
			return errors.New("driver_location requires a driver session")
		}
		var ev session.DriverLocationEvent
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			return err
		}
		return s.core.DriverLocation(ctx, connID, userID, ev.Lat, ev.Lng)

	case session.EventAcceptRide:
		if role != session.RoleDriver {
			return errors.New("accept_ride requires a driver session")
		}
		var ev session.AcceptRideEvent
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			return err
		}
		result := session.AcceptResult{RequestID: ev.RequestID, OK: true}
		if _, err := s.core.AcceptRide(ctx, connID, userID, ev.RequestID); err != nil {
			result.OK = false
			switch {
			case errors.Is(err, ledger.ErrAlreadyClaimed):
				result.Reason = "already_claimed"
			case errors.Is(err, ledger.ErrNotFound):
				result.Reason = "not_found"
			default:
				result.Reason = "error"
			}
		}
		return s.hub.Send(connID, session.EventAcceptResult, result)

	case session.EventRideRequest:
		if role != session.RolePassenger {
			return errors.New("ride_request requires a passenger session")
		}
		var ev session.RideRequestEvent
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			return err
		}
		req, sent, err := s.core.RideRequest(ctx, userID,
			coord(ev.PickupLat, ev.PickupLng), coord(ev.DropoffLat, ev.DropoffLng))
		if err != nil {
			return err
		}
		return s.hub.Send(connID, session.EventRideRequested, session.RideRequestedEvent{
			RequestID:       req.ID,
			Fare:            req.Fare,
			DriversNotified: sent,
		})

	default:
		return errors.New("unknown event type: " + env.Type)
	}
}

func coord(lat, lng float64) models.Coord { return models.Coord{Lat: lat, Lng: lng} }
