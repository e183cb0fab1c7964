package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cx-tal-miterani/flight-booking-engine/internal/models"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	r := mux.NewRouter()
	r.HandleFunc("/api/flights/{id}/ws", hub.ServeFlight)
	srv := httptest.NewServer(r)

	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, flightID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/flights/" + flightID + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHub_BroadcastsToFlightWatchers(t *testing.T) {
	hub, srv := startHub(t)
	flightID := uuid.New()
	conn := dial(t, srv, flightID.String())

	require.Eventually(t, func() bool { return hub.ClientCount(flightID) == 1 }, time.Second, 10*time.Millisecond)

	// a change on another flight is not delivered
	hub.SeatChanged(models.FlightSeat{ID: uuid.New(), FlightID: uuid.New(), SeatNumber: "9F"})

	seatID := uuid.New()
	hub.SeatChanged(models.FlightSeat{
		ID:         seatID,
		FlightID:   flightID,
		SeatNumber: "12C",
		CabinClass: models.CabinEconomy,
		Status:     models.SeatStatusReserved,
		Version:    3,
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, MessageTypeSeatsUpdated, msg.Type)
	assert.Equal(t, flightID, msg.FlightID)
	require.Len(t, msg.Seats, 1)
	assert.Equal(t, seatID, msg.Seats[0].SeatID)
	assert.Equal(t, "12C", msg.Seats[0].SeatNumber)
	assert.Equal(t, models.SeatStatusReserved, msg.Seats[0].Status)
	assert.Equal(t, int64(3), msg.Seats[0].Version)
}

func TestHub_UnregistersOnDisconnect(t *testing.T) {
	hub, srv := startHub(t)
	flightID := uuid.New()
	conn := dial(t, srv, flightID.String())

	require.Eventually(t, func() bool { return hub.ClientCount(flightID) == 1 }, time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount(flightID) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_RejectsBadFlightID(t *testing.T) {
	_, srv := startHub(t)

	resp, err := http.Get(srv.URL + "/api/flights/nope/ws")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
