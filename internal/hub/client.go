package hub

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Whiteboard frames carry the
	// full element collection, so this is generous.
	maxMessageSize = 512 * 1024
)

// Client is one websocket connection attached to the Hub. A single client may
// be a member of several rooms at once; the membership itself lives in the
// registry, the client only owns the connection and its outbound queue.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	connID   string
	username string
	send     chan []byte
}

func NewClient(hub *Hub, conn *websocket.Conn, connID, username string) *Client {
	return &Client{
		hub:      hub,
		conn:     conn,
		connID:   connID,
		username: username,
		send:     make(chan []byte, 256),
	}
}

// Run starts the read and write pumps.
func (c *Client) Run() {
	go c.WritePump()
	go c.ReadPump()
}

func (c *Client) ConnID() string   { return c.connID }
func (c *Client) Username() string { return c.username }
func (c *Client) CloseConn()       { c.conn.Close() }

// queue places a frame on the client's outbound channel without blocking.
// Only the hub run loop may call it: the loop is also the only closer of the
// channel, which is what makes the close safe. A full channel means the peer
// is too slow; the frame is dropped and the write pump or ping timeout will
// eventually tear the connection down.
func (c *Client) queue(message []byte) {
	select {
	case c.send <- message:
	default:
		logrus.WithFields(logrus.Fields{
			"conn_id":  c.connID,
			"username": c.username,
		}).Warn("Client send channel full, dropping frame")
	}
}

// ReadPump pumps frames from the websocket into the hub's message channel.
// Exactly one ReadPump runs per connection; it owns all reads.
func (c *Client) ReadPump() {
	defer func() {
		unregisterMsg := hubMessage{kind: msgUnregister, client: c}
		select {
		case c.hub.messageChan <- unregisterMsg:
		case <-time.After(1 * time.Second):
			logrus.WithField("conn_id", c.connID).Warn("Timeout sending unregister message to hub channel")
		}
		c.conn.Close()
		logrus.WithFields(logrus.Fields{"conn_id": c.connID, "username": c.username}).Info("Read pump exited, client unregistered")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			logCtx := logrus.WithFields(logrus.Fields{"conn_id": c.connID, "username": c.username})
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logCtx.WithError(err).Warn("WebSocket read error (unexpected close)")
			} else {
				logCtx.Debug("WebSocket connection closed")
			}
			break
		}

		if messageType != websocket.TextMessage {
			logrus.WithField("conn_id", c.connID).Debugf("Ignoring non-text message type: %d", messageType)
			continue
		}

		if !c.hub.QueueMessage(hubMessage{kind: msgFrame, client: c, raw: message}) {
			logrus.WithField("conn_id", c.connID).Warn("Hub message channel full, dropping client frame")
		}
	}
}

// WritePump pumps frames from the send channel to the websocket and keeps the
// connection alive with periodic pings. Exactly one WritePump runs per
// connection; it owns all writes.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		logrus.WithFields(logrus.Fields{"conn_id": c.connID, "username": c.username}).Info("Write pump exited")
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the send channel during unregister.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logrus.WithField("conn_id", c.connID).WithError(err).Warn("Failed to write message to websocket")
				return
			}
			_ = c.conn.SetWriteDeadline(time.Time{})

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logrus.WithField("conn_id", c.connID).WithError(err).Warn("Failed to send ping message")
				return
			}
			_ = c.conn.SetWriteDeadline(time.Time{})
		}
	}
}
