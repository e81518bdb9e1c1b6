package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"busdriver/internal/logging"
	"busdriver/internal/middleware"
	"busdriver/internal/models"
)

const testSecret = "secret"

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	hub, srv, _ := startCancellableHub(t)
	return hub, srv
}

func startCancellableHub(t *testing.T) (*Hub, *httptest.Server, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(logging.Nop())
	go hub.Run(ctx)

	srv := httptest.NewServer(HandleWebSocket(hub, testSecret, logging.Nop()))
	t.Cleanup(func() {
		srv.Close()
		cancel()
		<-hub.done
	})
	return hub, srv, cancel
}

func dial(t *testing.T, srv *httptest.Server, driverID, role string) *websocket.Conn {
	t.Helper()
	token, err := middleware.IssueToken(testSecret, middleware.DriverClaims{DriverID: driverID, Role: role}, time.Now())
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?token=" + token
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var e Event
	require.NoError(t, json.Unmarshal(data, &e))
	return e
}

func syncedEvent(routeID string) models.TripSyncedEvent {
	return models.TripSyncedEvent{TripID: "t1", DriverID: "driver-001", RouteID: routeID, PointCount: 12}
}

func TestTripSyncedReachesDispatchersAndOwner(t *testing.T) {
	hub, srv := startHub(t)
	dispatcher := dial(t, srv, "dispatcher-001", middleware.RoleDispatcher)
	owner := dial(t, srv, "driver-001", middleware.RoleDriver)
	other := dial(t, srv, "driver-002", middleware.RoleDriver)

	require.Eventually(t, func() bool { return hub.GetClientCount() == 3 }, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, 1, hub.BroadcastTripSynced(syncedEvent("route-101")))

	e := readEvent(t, dispatcher)
	assert.Equal(t, EventTripSynced, e.Type)
	data, ok := e.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "t1", data["trip_id"])
	assert.Equal(t, float64(12), data["point_count"])

	assert.Equal(t, EventTripSynced, readEvent(t, owner).Type)

	require.NoError(t, other.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err := other.ReadMessage()
	assert.Error(t, err, "another driver must not see the event")
}

func TestWatchRoutesNarrowsDispatcherFeed(t *testing.T) {
	hub, srv := startHub(t)
	dispatcher := dial(t, srv, "dispatcher-001", middleware.RoleDispatcher)
	require.Eventually(t, func() bool { return hub.GetClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, dispatcher.WriteJSON(IncomingMessage{Type: MsgWatchRoutes, RouteIDs: []string{"route-102", "", "route-102"}}))
	e := readEvent(t, dispatcher)
	assert.Equal(t, EventWatching, e.Type)
	assert.Equal(t, map[string]interface{}{"route_ids": []interface{}{"route-102"}}, e.Data)

	assert.Equal(t, 0, hub.BroadcastTripSynced(syncedEvent("route-101")))
	assert.Equal(t, 1, hub.BroadcastTripSynced(syncedEvent("route-102")))

	data := readEvent(t, dispatcher).Data.(map[string]interface{})
	assert.Equal(t, "route-102", data["route_id"])

	// An empty list watches everything again
	require.NoError(t, dispatcher.WriteJSON(IncomingMessage{Type: MsgWatchRoutes}))
	assert.Equal(t, EventWatching, readEvent(t, dispatcher).Type)
	assert.Equal(t, 1, hub.BroadcastTripSynced(syncedEvent("route-101")))
}

func TestClientAfterShutdown(t *testing.T) {
	c := NewClient("driver-001", middleware.RoleDriver, nil, NewHub(logging.Nop()), logging.Nop())
	assert.True(t, c.enqueue([]byte("a")))

	c.shutdown()
	c.shutdown()
	assert.False(t, c.enqueue([]byte("b")))
	c.reply(EventPong, nil)
}

func TestPingsDuringHubShutdown(t *testing.T) {
	hub, srv, cancel := startCancellableHub(t)
	conn := dial(t, srv, "dispatcher-001", middleware.RoleDispatcher)
	require.Eventually(t, func() bool { return hub.GetClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if err := conn.WriteJSON(IncomingMessage{Type: MsgPing}); err != nil {
				return
			}
			time.Sleep(time.Millisecond)
		}
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	<-hub.done

	// The server closes the connection, which ends the writer
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	conn.Close()
	<-done
	assert.Equal(t, 0, hub.GetClientCount())
}

func TestPingGetsPong(t *testing.T) {
	_, srv := startHub(t)
	conn := dial(t, srv, "dispatcher-001", middleware.RoleDispatcher)

	require.NoError(t, conn.WriteJSON(IncomingMessage{Type: MsgPing}))
	e := readEvent(t, conn)
	assert.Equal(t, EventPong, e.Type)
	assert.Contains(t, e.Data, "server_time")
}

func TestDisconnectUnregisters(t *testing.T) {
	hub, srv := startHub(t)
	conn := dial(t, srv, "driver-001", middleware.RoleDriver)
	require.Eventually(t, func() bool { return hub.GetClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.GetClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHandshakeRejectsBadToken(t *testing.T) {
	_, srv := startHub(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?token=garbage"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
