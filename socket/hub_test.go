package socket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"sharedcart/pkg/logger"
	"sharedcart/pkg/metrics"
	"sharedcart/store"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.Init()
	m.Run()
}

// readUntil reads messages until one of the wanted type arrives, skipping
// anything else (presence syncs interleave with change events).
func readUntil(t *testing.T, conn *websocket.Conn, msgType string) WSMessage {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		conn.SetReadDeadline(deadline)
		_, p, err := conn.ReadMessage()
		require.NoError(t, err, "Failed to read message from WebSocket")

		var msg WSMessage
		require.NoError(t, json.Unmarshal(p, &msg), "Failed to unmarshal WSMessage JSON")
		if msg.Type == msgType {
			return msg
		}
	}
}

func decodeMembers(t *testing.T, msg WSMessage) []store.OnlineUser {
	t.Helper()
	var members []store.OnlineUser
	require.NoError(t, json.Unmarshal(msg.Payload, &members))
	return members
}

func TestHubIntegration(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The auth middleware normally supplies these; tests pass them
		// directly.
		userID := r.URL.Query().Get("user_id")
		email := r.URL.Query().Get("email")
		ServeWs(hub, w, r, userID, email)
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	// Client 1 joins, subscribed to the items feed.
	conn1, _, err := websocket.DefaultDialer.Dial(wsURL+"/ws?tables=items&user_id=user1&email=alice@example.com", nil)
	require.NoError(t, err, "Client 1 failed to connect")
	defer conn1.Close()

	sync1 := readUntil(t, conn1, PresenceSyncType)
	members := decodeMembers(t, sync1)
	require.Len(t, members, 1)
	assert.Equal(t, "user1", members[0].UserID)
	assert.Equal(t, "alice@example.com", members[0].Email)

	// Client 2 joins; everyone gets a fresh full snapshot.
	conn2, _, err := websocket.DefaultDialer.Dial(wsURL+"/ws?tables=items,products&user_id=user2&email=bob@example.com", nil)
	require.NoError(t, err, "Client 2 failed to connect")
	defer conn2.Close()

	sync2 := readUntil(t, conn1, PresenceSyncType)
	members = decodeMembers(t, sync2)
	require.Len(t, members, 2, "Should be two users on the channel")
	userIDs := []string{members[0].UserID, members[1].UserID}
	assert.Contains(t, userIDs, "user1")
	assert.Contains(t, userIDs, "user2")

	// Client 2 publishes its presence payload; the next sync carries it.
	trackPayload, _ := json.Marshal(TrackPayload{Email: "bob@work.example.com"})
	trackMsg, _ := json.Marshal(WSMessage{Type: TrackType, Payload: trackPayload})
	require.NoError(t, conn2.WriteMessage(websocket.TextMessage, trackMsg))

	deadline := time.Now().Add(2 * time.Second)
	found := false
	for time.Now().Before(deadline) && !found {
		sync := readUntil(t, conn1, PresenceSyncType)
		for _, m := range decodeMembers(t, sync) {
			if m.UserID == "user2" && m.Email == "bob@work.example.com" {
				found = true
			}
		}
	}
	assert.True(t, found, "Track payload should show up in a presence sync")

	// A server-side insert fans out to every items subscriber, including
	// the author.
	item := store.ShoppingItem{ID: "item-1", Text: "Milk", UserID: "user1"}
	hub.NotifyInsert(TableItems, "user1", item)

	insert1 := readUntil(t, conn1, InsertType)
	assert.Equal(t, TableItems, insert1.Table)
	assert.Equal(t, "user1", insert1.UserID)

	insert2 := readUntil(t, conn2, InsertType)
	assert.Equal(t, TableItems, insert2.Table)

	var received store.ShoppingItem
	require.NoError(t, json.Unmarshal(insert2.Payload, &received))
	assert.Equal(t, "item-1", received.ID)
	assert.Equal(t, "Milk", received.Text)

	// A products event must not reach client 1, who only subscribed to
	// items. Verify with a follow-up items event: it arrives next.
	hub.NotifyDelete(TableProducts, "user2", "prod-9")
	hub.NotifyDelete(TableItems, "user2", "item-1")

	del := readUntil(t, conn1, DeleteType)
	assert.Equal(t, TableItems, del.Table)
	var delPayload DeletePayload
	require.NoError(t, json.Unmarshal(del.Payload, &delPayload))
	assert.Equal(t, "item-1", delPayload.ID)

	// Client 2 sees both deletes, products first.
	del2 := readUntil(t, conn2, DeleteType)
	assert.Equal(t, TableProducts, del2.Table)
}

func wsClientsGauge(reg *prometheus.Registry) float64 {
	fams, _ := reg.Gather()
	for _, f := range fams {
		if f.GetName() == "sharedcart_ws_clients" {
			return f.GetMetric()[0].GetGauge().GetValue()
		}
	}
	return 0
}

func TestHubDroppedClientDecrementsGaugeOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	hub := NewHub(metrics.NewCollector(reg))
	go hub.Run()

	// An unbuffered Send channel with no reader is full immediately, so
	// the first broadcast drops the client.
	client := &Client{
		Hub:    hub,
		UserID: "user1",
		Email:  "a@example.com",
		Tables: map[string]bool{TableItems: true},
		Send:   make(chan []byte),
	}
	hub.Register <- client

	require.Eventually(t, func() bool {
		return wsClientsGauge(reg) == 1
	}, 2*time.Second, 10*time.Millisecond, "register should raise the gauge")

	hub.NotifyInsert(TableItems, "user1", store.ShoppingItem{ID: "item-1", Text: "Milk"})

	require.Eventually(t, func() bool {
		return wsClientsGauge(reg) == 0
	}, 2*time.Second, 10*time.Millisecond, "dropping the client should lower the gauge")

	// The read pump delivers its own unregister once the connection
	// closes; that second unregister must not drive the gauge negative.
	hub.Unregister <- client
	assert.Never(t, func() bool {
		return wsClientsGauge(reg) < 0
	}, 300*time.Millisecond, 20*time.Millisecond)
}

func TestHubPresenceEmptiesOnDisconnect(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWs(hub, w, r, r.URL.Query().Get("user_id"), r.URL.Query().Get("email"))
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	conn1, _, err := websocket.DefaultDialer.Dial(wsURL+"/ws?user_id=user1&email=a@example.com", nil)
	require.NoError(t, err)
	defer conn1.Close()
	readUntil(t, conn1, PresenceSyncType)

	conn2, _, err := websocket.DefaultDialer.Dial(wsURL+"/ws?user_id=user2&email=b@example.com", nil)
	require.NoError(t, err)

	sync := readUntil(t, conn1, PresenceSyncType)
	require.Len(t, decodeMembers(t, sync), 2)

	// Closing the last connection of user2 drops it from the snapshot.
	conn2.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		sync = readUntil(t, conn1, PresenceSyncType)
		if len(decodeMembers(t, sync)) == 1 {
			break
		}
	}
	members := decodeMembers(t, sync)
	require.Len(t, members, 1)
	assert.Equal(t, "user1", members[0].UserID)
}
