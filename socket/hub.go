package socket

import (
	"encoding/json"
	"sync"
	"time"

	"sharedcart/pkg/logger"
	"sharedcart/pkg/metrics"
	"sharedcart/store"
)

const (
	InsertType       = "INSERT"        // A row was inserted into a table
	UpdateType       = "UPDATE"        // A row was updated
	DeleteType       = "DELETE"        // A row was deleted
	TrackType        = "TRACK"         // Client publishes its presence payload
	PresenceSyncType = "PRESENCE_SYNC" // Full presence membership snapshot

	TableItems    = "items"
	TableProducts = "products"
)

// WSMessage is the wire format for both row-change events and presence
// traffic. Table is set on change events, empty on presence messages.
type WSMessage struct {
	Type    string          `json:"type"`
	Table   string          `json:"table,omitempty"`
	UserID  string          `json:"user_id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// TrackPayload is what a client publishes about itself on the presence
// channel.
type TrackPayload struct {
	Email string `json:"email"`
}

// DeletePayload identifies the removed row on DELETE events.
type DeletePayload struct {
	ID string `json:"id"`
}

// Hub fans row-change events out to subscribed clients and maintains the
// presence channel. Change events go to every subscriber of the table,
// including the author; clients reconcile the echo by identifier.
type Hub struct {
	Clients    map[*Client]bool
	Broadcast  chan WSMessage
	Register   chan *Client
	Unregister chan *Client

	// Presence membership, userID -> entry. A user with several open
	// connections has a single entry.
	Presence map[string]store.OnlineUser

	mu      sync.Mutex
	metrics *metrics.Collector
}

func NewHub(collector *metrics.Collector) *Hub {
	return &Hub{
		Clients:    make(map[*Client]bool),
		Broadcast:  make(chan WSMessage),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Presence:   make(map[string]store.OnlineUser),
		metrics:    collector,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			h.Clients[client] = true
			// The entry starts with the identity from the token; a TRACK
			// message can overwrite it with the client's own payload.
			h.Presence[client.UserID] = store.OnlineUser{
				UserID:   client.UserID,
				Email:    client.Email,
				OnlineAt: time.Now(),
			}
			h.mu.Unlock()

			if h.metrics != nil {
				h.metrics.ClientConnected()
			}
			// Every membership change pushes a full snapshot; clients
			// replace their state wholesale ("last sync wins").
			h.broadcastPresenceSync()

		case client := <-h.Unregister:
			h.mu.Lock()
			_, ok := h.Clients[client]
			if ok {
				delete(h.Clients, client)
				close(client.Send)

				// Only drop the presence entry once the user's last
				// connection is gone.
				stillOnline := false
				for c := range h.Clients {
					if c.UserID == client.UserID {
						stillOnline = true
						break
					}
				}
				if !stillOnline {
					delete(h.Presence, client.UserID)
				}
			}
			h.mu.Unlock()

			// A client dropped for lagging still delivers a second
			// unregister from its read pump; only the first one counts.
			if !ok {
				continue
			}
			if h.metrics != nil {
				h.metrics.ClientDisconnected()
			}
			h.broadcastPresenceSync()

		case msg := <-h.Broadcast:
			if msg.Type == TrackType {
				h.applyTrack(msg)
				h.broadcastPresenceSync()
				continue
			}
			h.broadcastChange(msg)
		}
	}
}

// applyTrack merges a client's published presence payload into its entry.
func (h *Hub) applyTrack(msg WSMessage) {
	var payload TrackPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		logger.Sugar.Errorf("Error unmarshalling track payload from %s: %v", msg.UserID, err)
		return
	}

	h.mu.Lock()
	entry, ok := h.Presence[msg.UserID]
	if !ok {
		entry = store.OnlineUser{UserID: msg.UserID, OnlineAt: time.Now()}
	}
	if payload.Email != "" {
		entry.Email = payload.Email
	}
	h.Presence[msg.UserID] = entry
	h.mu.Unlock()
}

// broadcastChange sends a row-change event to every client subscribed to
// the table the event is scoped by.
func (h *Hub) broadcastChange(msg WSMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		logger.Sugar.Errorf("Error marshalling broadcast message: %v", err)
		return
	}

	// Collect recipients under the lock, send outside of it.
	h.mu.Lock()
	clientsToSend := make([]*Client, 0, len(h.Clients))
	for client := range h.Clients {
		if client.Tables[msg.Table] {
			clientsToSend = append(clientsToSend, client)
		}
	}
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.EventBroadcast(msg.Type, msg.Table)
	}

	for _, client := range clientsToSend {
		select {
		case client.Send <- payload:
		default:
			// If the send buffer is full, the client is lagging.
			// Unregister it to prevent blocking the hub.
			logger.Sugar.Warnf("Client %s's send buffer is full. Unregistering.", client.UserID)
			if h.metrics != nil {
				h.metrics.ClientDropped()
			}
			// Run is executing this method, so the unregister has to be
			// handed off to not block on our own channel.
			go func(c *Client) { h.Unregister <- c }(client)
		}
	}
}

// broadcastPresenceSync pushes the full membership snapshot to everyone on
// the channel.
func (h *Hub) broadcastPresenceSync() {
	h.mu.Lock()
	members := make([]store.OnlineUser, 0, len(h.Presence))
	for _, entry := range h.Presence {
		members = append(members, entry)
	}
	clientsToSend := make([]*Client, 0, len(h.Clients))
	for client := range h.Clients {
		clientsToSend = append(clientsToSend, client)
	}
	h.mu.Unlock()

	if len(clientsToSend) == 0 {
		return
	}

	payload, err := json.Marshal(members)
	if err != nil {
		logger.Sugar.Errorf("Error marshalling presence sync: %v", err)
		return
	}
	syncMsg, _ := json.Marshal(WSMessage{Type: PresenceSyncType, Payload: payload})

	if h.metrics != nil {
		h.metrics.PresenceSync()
	}

	for _, client := range clientsToSend {
		select {
		case client.Send <- syncMsg:
		default:
			// Don't unregister here, just log. The pumps will handle
			// unresponsive clients.
			logger.Sugar.Warnf("Client %s's send buffer was full during presence sync.", client.UserID)
		}
	}
}

// NotifyInsert publishes an INSERT event for a row. The payload carries
// the bare row; subscribers re-fetch the full record (with the joined
// owner email) before applying it.
func (h *Hub) NotifyInsert(table, userID string, row interface{}) {
	h.notify(InsertType, table, userID, row)
}

// NotifyUpdate publishes an UPDATE event carrying the full record.
func (h *Hub) NotifyUpdate(table, userID string, row interface{}) {
	h.notify(UpdateType, table, userID, row)
}

// NotifyDelete publishes a DELETE event identifying the removed row.
func (h *Hub) NotifyDelete(table, userID, rowID string) {
	h.notify(DeleteType, table, userID, DeletePayload{ID: rowID})
}

func (h *Hub) notify(eventType, table, userID string, payload interface{}) {
	raw, err := json.Marshal(payload)
	if err != nil {
		logger.Sugar.Errorf("Error marshalling %s payload for table %s: %v", eventType, table, err)
		return
	}
	h.Broadcast <- WSMessage{Type: eventType, Table: table, UserID: userID, Payload: raw}
}
