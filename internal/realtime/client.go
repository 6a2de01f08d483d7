package realtime

import (
	"context"
	"encoding/json"
	"time"

	ws "github.com/coder/websocket"
)

const (
	sendBufferSize = 16
	pingInterval   = 30 * time.Second
)

// controlMessage is what connected clients send to manage subscriptions.
type controlMessage struct {
	Action  string `json:"action"` // "subscribe" or "unsubscribe"
	Channel string `json:"channel"`
}

// Client represents a single WebSocket connection and its principal.
type Client struct {
	hub        *Hub
	conn       *ws.Conn
	authorizer *Authorizer
	principal  Principal
	send       chan []byte
}

// NewClient creates a Client tied to the given hub and connection.
func NewClient(hub *Hub, conn *ws.Conn, authorizer *Authorizer, principal Principal) *Client {
	return &Client{
		hub:        hub,
		conn:       conn,
		authorizer: authorizer,
		principal:  principal,
		send:       make(chan []byte, sendBufferSize),
	}
}

// Run registers the client, starts the write pump, and runs the read pump.
// It blocks until the connection is closed, then removes the client.
func (c *Client) Run(ctx context.Context) {
	c.hub.Register(c)
	defer c.hub.Remove(c)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go c.writePump(ctx)
	c.readPump(ctx)
}

// readPump handles subscribe/unsubscribe control messages. It returns on
// error (connection close), which triggers cleanup.
func (c *Client) readPump(ctx context.Context) {
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			return
		}

		var msg controlMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		switch msg.Action {
		case "subscribe":
			if c.authorizer.Authorize(c.principal, msg.Channel) {
				c.hub.Subscribe(c, msg.Channel)
				c.reply(msg.Channel, "subscription.succeeded")
			} else {
				c.reply(msg.Channel, "subscription.denied")
			}
		case "unsubscribe":
			c.hub.Unsubscribe(c, msg.Channel)
		}
	}
}

// reply queues an event envelope for this client only.
func (c *Client) reply(channel, event string) {
	data, err := json.Marshal(Event{Channel: channel, Event: event})
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// writePump drains the send channel and writes messages to the WebSocket.
// It also sends periodic pings to detect stale connections.
func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				// Hub closed the channel — connection is done
				return
			}
			if err := c.conn.Write(ctx, ws.MessageText, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.Ping(ctx); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
