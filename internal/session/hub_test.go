package session

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/example/ride-dispatch/internal/models"
)

var upgrader = websocket.Upgrader{}

// dialPair connects a client to a test server and registers the server side
// of the socket in the hub.
func dialPair(t *testing.T, h *Hub, connID string, role Role, userID string) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		h.Add(connID, role, userID, conn)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	// wait for the server handler to register the connection
	deadline := time.Now().Add(time.Second)
	for h.Len() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	return client
}

func readEnvelope(t *testing.T, c *websocket.Conn) Envelope {
	t.Helper()
	_ = c.SetReadDeadline(time.Now().Add(time.Second))
	var env Envelope
	if err := c.ReadJSON(&env); err != nil {
		t.Fatalf("read: %v", err)
	}
	return env
}

func TestOfferReachesDriverConnection(t *testing.T) {
	h := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	client := dialPair(t, h, "c1", RoleDriver, "d1")

	offer := models.RideOffer{RequestID: "r1", Fare: models.FareBreakdown{Total: 228}}
	if err := h.Offer("c1", offer); err != nil {
		t.Fatalf("offer: %v", err)
	}

	env := readEnvelope(t, client)
	if env.Type != EventNewRideRequest {
		t.Fatalf("expected %s, got %s", EventNewRideRequest, env.Type)
	}
	var got models.RideOffer
	if err := json.Unmarshal(env.Data, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.RequestID != "r1" || got.Fare.Total != 228 {
		t.Fatalf("unexpected payload: %+v", got)
	}
}

func TestRideAcceptedFindsPassengerByID(t *testing.T) {
	h := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	client := dialPair(t, h, "c2", RolePassenger, "p1")

	msg := models.RideAccepted{RequestID: "r1", DriverID: "d1", DriverLoc: models.Coord{Lat: 1, Lng: 1}}
	if err := h.RideAccepted("p1", msg); err != nil {
		t.Fatalf("notify: %v", err)
	}

	env := readEnvelope(t, client)
	if env.Type != EventRideAccepted {
		t.Fatalf("expected %s, got %s", EventRideAccepted, env.Type)
	}
	var got models.RideAccepted
	if err := json.Unmarshal(env.Data, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.DriverID != "d1" {
		t.Fatalf("unexpected payload: %+v", got)
	}
}

func TestSendToUnknownConnection(t *testing.T) {
	h := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err := h.Send("nope", EventError, ErrorEvent{Message: "x"}); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
	if err := h.RideAccepted("nobody", models.RideAccepted{}); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}

func TestRemoveDropsSessionAndIndex(t *testing.T) {
	h := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	dialPair(t, h, "c3", RolePassenger, "p2")

	h.Remove("c3")
	if h.Len() != 0 {
		t.Fatalf("expected empty hub, got %d", h.Len())
	}
	if err := h.RideAccepted("p2", models.RideAccepted{}); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected passenger index cleared, got %v", err)
	}
	// second remove is a no-op
	h.Remove("c3")
}
