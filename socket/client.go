package socket

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"sharedcart/pkg/logger"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// CheckOrigin allows connections from the frontend dev server
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Client is one websocket connection. Tables holds the change-feed
// subscriptions requested at connect time; presence membership is
// implicit for every connection.
type Client struct {
	Hub    *Hub
	Conn   *websocket.Conn
	UserID string
	Email  string
	Tables map[string]bool
	Send   chan []byte
}

// ServeWs upgrades the request and registers the client with the hub.
// The tables query parameter lists the change feeds to subscribe to,
// defaulting to all of them.
func ServeWs(hub *Hub, w http.ResponseWriter, r *http.Request, userID, email string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Sugar.Error(err)
		return
	}

	tables := map[string]bool{}
	tablesParam := r.URL.Query().Get("tables")
	if tablesParam == "" {
		tables[TableItems] = true
		tables[TableProducts] = true
	} else {
		for _, t := range strings.Split(tablesParam, ",") {
			switch strings.TrimSpace(t) {
			case TableItems, TableProducts:
				tables[strings.TrimSpace(t)] = true
			}
		}
	}

	client := &Client{
		Hub:    hub,
		Conn:   conn,
		UserID: userID,
		Email:  email,
		Tables: tables,
		Send:   make(chan []byte, 256),
	}

	client.Hub.Register <- client

	// Reading and writing run in separate goroutines, the standard
	// pattern for WebSockets in Go.
	go client.writePump()
	go client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.Hub.Unregister <- c
		c.Conn.Close()
	}()

	for {
		_, rawMessage, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Sugar.Errorf("error: %v", err)
			}
			break
		}

		var msg WSMessage
		if err := json.Unmarshal(rawMessage, &msg); err != nil {
			logger.Sugar.Errorf("Error unmarshalling message: %v", err)
			continue
		}

		// Set server-authoritative fields to prevent spoofing.
		msg.UserID = c.UserID

		// Row-change events are only ever produced server-side after a
		// successful write; the one thing a client may publish is its
		// presence payload.
		if msg.Type != TrackType {
			logger.Sugar.Warnf("Dropping client-sent %s message from %s", msg.Type, c.UserID)
			continue
		}

		c.Hub.Broadcast <- msg
	}
}

func (c *Client) writePump() {
	// A ping every 30 seconds keeps the connection alive and detects
	// drops.
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case message, ok := <-c.Send:
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			c.Conn.WriteMessage(websocket.TextMessage, message)
		case <-ticker.C:
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return // Connection is dead
			}
		}
	}
}
