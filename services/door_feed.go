// The door feed fans ticket redemptions out to every connected scanning
// station. Register and Unregister hand clients to Run, which owns the
// client map; Broadcast carries encoded messages to all of them.
package services

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"runClubAPI/internal/timestamp"
	"runClubAPI/internal/types/booking"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512
)

type RedemptionMessage struct {
	Action      string `json:"action"`
	BookingID   string `json:"bookingId"`
	EventID     string `json:"eventId"`
	EventName   string `json:"eventName"`
	UserName    string `json:"userName"`
	IsFreeTrial bool   `json:"isFreeTrial"`
	UsedBy      string `json:"usedBy"`
	UsedAt      string `json:"usedAt"`
}

type DoorFeed struct {
	clients    map[*FeedClient]bool
	Broadcast  chan []byte
	Register   chan *FeedClient
	Unregister chan *FeedClient
	done       chan struct{}
}

func NewDoorFeed() *DoorFeed {
	return &DoorFeed{
		clients:    make(map[*FeedClient]bool),
		Broadcast:  make(chan []byte, 64),
		Register:   make(chan *FeedClient),
		Unregister: make(chan *FeedClient),
		done:       make(chan struct{}),
	}
}

func (f *DoorFeed) Run(ctx context.Context) {
	defer close(f.done)

	for {
		select {
		case <-ctx.Done():
			for client := range f.clients {
				close(client.Send)
				delete(f.clients, client)
			}
			return

		case client := <-f.Register:
			f.clients[client] = true
			zap.S().Infof("[door feed] station %s connected. Count: %d", client.StationID, len(f.clients))

		case client := <-f.Unregister:
			if _, ok := f.clients[client]; ok {
				delete(f.clients, client)
				close(client.Send)
				zap.S().Infof("[door feed] station %s disconnected. Count: %d", client.StationID, len(f.clients))
			}

		case message := <-f.Broadcast:
			for client := range f.clients {
				select {
				case client.Send <- message:
				default:
					close(client.Send)
					delete(f.clients, client)
				}
			}
		}
	}
}

// PublishRedemption queues a redemption for every station. It never blocks
// the redeeming request; messages are dropped when the queue is full.
func (f *DoorFeed) PublishRedemption(b *booking.Booking) {
	msg := RedemptionMessage{
		Action:      "ticket_redeemed",
		BookingID:   b.ID,
		EventID:     b.EventID,
		EventName:   b.EventName,
		UserName:    b.UserName,
		IsFreeTrial: b.IsFreeTrial,
		UsedBy:      b.UsedBy,
	}
	if b.UsedAt != nil {
		msg.UsedAt = timestamp.FormatISO(*b.UsedAt)
	}

	data, err := json.Marshal(msg)
	if err != nil {
		zap.S().Errorf("[door feed] failed to encode redemption %s: %v", b.ID, err)
		return
	}

	select {
	case f.Broadcast <- data:
	default:
		zap.S().Warnf("[door feed] queue full, dropping redemption %s", b.ID)
	}
}

// Attach registers a websocket connection and starts its pumps.
func (f *DoorFeed) Attach(conn *websocket.Conn, stationID string) {
	client := &FeedClient{
		Feed:      f,
		Conn:      conn,
		Send:      make(chan []byte, 256),
		StationID: stationID,
	}

	select {
	case f.Register <- client:
	case <-f.done:
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}

// FeedClient sits between one station's websocket and the feed.
type FeedClient struct {
	Feed      *DoorFeed
	Conn      *websocket.Conn
	Send      chan []byte
	StationID string
}

// ReadPump only keeps the read deadline alive; stations do not send data.
func (c *FeedClient) ReadPump() {
	defer func() {
		select {
		case c.Feed.Unregister <- c:
		case <-c.Feed.done:
		}
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				zap.S().Warnf("[door feed] station %s read error: %v", c.StationID, err)
			}
			return
		}
	}
}

// WritePump handles messages going to the station.
func (c *FeedClient) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The feed closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
