package client

import (
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"sync"
	"time"

	"sharedcart/pkg/logger"
	"sharedcart/socket"

	"github.com/gorilla/websocket"
)

// SubscriptionConfig configures a change-feed subscription.
type SubscriptionConfig struct {
	// URL is the websocket endpoint, e.g. ws://host:8080/ws.
	URL    string
	Token  string
	Tables []string

	// MaxRetries bounds reconnect attempts after a dropped connection.
	// The delay grows linearly: attempt * BackoffStep.
	MaxRetries  int
	BackoffStep time.Duration

	// OnEvent receives every decoded message (change events and
	// presence syncs).
	OnEvent func(socket.WSMessage)

	// OnFallback fires once reconnects are exhausted, so views can lean
	// on their periodic poll.
	OnFallback func()
}

// Subscription is a live connection to the change feed and presence
// channel, with bounded reconnect. Close is the teardown hook; it and the
// views' poll tickers are the only cancelable resources.
type Subscription struct {
	cfg    SubscriptionConfig
	dialer *websocket.Dialer

	mu   sync.Mutex
	conn *websocket.Conn

	done chan struct{}
	once sync.Once
}

// Subscribe dials the feed and starts the read loop. The first dial
// happens synchronously so callers learn immediately when the endpoint is
// unreachable; reconnects after that are handled internally.
func Subscribe(cfg SubscriptionConfig) (*Subscription, error) {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	if cfg.BackoffStep <= 0 {
		cfg.BackoffStep = time.Second
	}

	s := &Subscription{
		cfg:    cfg,
		dialer: websocket.DefaultDialer,
		done:   make(chan struct{}),
	}

	conn, err := s.dial()
	if err != nil {
		return nil, err
	}
	s.conn = conn

	go s.run(conn)
	return s, nil
}

// Track publishes the local user's presence payload on the channel.
func (s *Subscription) Track(email string) error {
	payload, _ := json.Marshal(socket.TrackPayload{Email: email})
	msg, _ := json.Marshal(socket.WSMessage{Type: socket.TrackType, Payload: payload})

	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()

	if conn == nil {
		return errors.New("subscription is not connected")
	}
	return conn.WriteMessage(websocket.TextMessage, msg)
}

// Close tears the subscription down and stops the reconnect loop.
func (s *Subscription) Close() {
	s.once.Do(func() {
		close(s.done)
		s.mu.Lock()
		if s.conn != nil {
			s.conn.Close()
		}
		s.mu.Unlock()
	})
}

func (s *Subscription) dial() (*websocket.Conn, error) {
	u, err := url.Parse(s.cfg.URL)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("token", s.cfg.Token)
	if len(s.cfg.Tables) > 0 {
		q.Set("tables", strings.Join(s.cfg.Tables, ","))
	}
	u.RawQuery = q.Encode()

	conn, _, err := s.dialer.Dial(u.String(), nil)
	return conn, err
}

// run reads until the connection drops, then retries with linearly
// increasing delay. A successful reconnect resets the attempt counter.
func (s *Subscription) run(conn *websocket.Conn) {
	attempt := 0
	for {
		if conn != nil {
			s.readLoop(conn)
			conn = nil
		}

		select {
		case <-s.done:
			return
		default:
		}

		attempt++
		if attempt > s.cfg.MaxRetries {
			logger.Sugar.Warnf("Subscription gave up after %d reconnect attempts", s.cfg.MaxRetries)
			if s.cfg.OnFallback != nil {
				s.cfg.OnFallback()
			}
			return
		}

		delay := time.Duration(attempt) * s.cfg.BackoffStep
		logger.Sugar.Infof("Subscription dropped, reconnecting in %s (attempt %d/%d)", delay, attempt, s.cfg.MaxRetries)

		select {
		case <-time.After(delay):
		case <-s.done:
			return
		}

		next, err := s.dial()
		if err != nil {
			// Try again on the next, longer delay.
			logger.Sugar.Errorf("Reconnect failed: %v", err)
			continue
		}

		s.mu.Lock()
		s.conn = next
		s.mu.Unlock()
		conn = next
		attempt = 0
	}
}

func (s *Subscription) readLoop(conn *websocket.Conn) {
	defer conn.Close()
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg socket.WSMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			logger.Sugar.Errorf("Bad feed message: %v", err)
			continue
		}
		if s.cfg.OnEvent != nil {
			s.cfg.OnEvent(msg)
		}
	}
}
